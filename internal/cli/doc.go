// Package cli implements tokenctl, the administrative command line for a
// token store.
//
// Commands:
//
//	issue <uid> [origin]    generate a token, store it and print it
//	store <uid> [origin]    store a token read from the terminal
//	verify <uid>            check a token read from the terminal
//	invalidate <uid>        remove the token of uid
//	exists <uid>            report whether uid has a token and its expiry
//	clear                   remove every token
//	count                   print the number of stored tokens
//
// Tokens are read without echo when stdin is a terminal, or as one line
// otherwise, and are never passed on the command line.
package cli
