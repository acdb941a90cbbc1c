package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/tokenstore"
)

// issuedTokenBytes is the entropy of tokens generated by issue.
const issuedTokenBytes = 32

var (
	// ErrUsage reports a malformed command line.
	ErrUsage = errors.New("usage error")
	// ErrTokenRejected is returned by verify when the token is not valid.
	ErrTokenRejected = errors.New("token rejected")
)

// Store is the part of tokenstore.Store the commands use.
type Store interface {
	tokenstore.TokenStore
	Exists(ctx context.Context, uid string) (bool, time.Time, error)
}

type App struct {
	store  Store
	ttl    time.Duration
	reader *bufio.Reader
	fd     int
	out    io.Writer
}

// NewApp returns an App issuing tokens valid for ttl. Tokens are read from in
// and results are written to out.
func NewApp(store Store, ttl time.Duration, in io.Reader, out io.Writer) *App {
	return &App{
		store:  store,
		ttl:    ttl,
		reader: bufio.NewReader(in),
		fd:     stdinFd(),
		out:    out,
	}
}

type command struct {
	usage   string
	minArgs int
	maxArgs int
	run     func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"issue":      {"issue <uid> [origin]", 1, 2, (*App).issue},
	"store":      {"store <uid> [origin]", 1, 2, (*App).storeToken},
	"verify":     {"verify <uid>", 1, 1, (*App).verify},
	"invalidate": {"invalidate <uid>", 1, 1, (*App).invalidate},
	"exists":     {"exists <uid>", 1, 1, (*App).exists},
	"clear":      {"clear", 0, 0, (*App).clear},
	"count":      {"count", 0, 0, (*App).count},
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.Usage()
		return fmt.Errorf("%w: no command given", ErrUsage)
	}

	cmd, ok := commands[args[0]]
	if !ok {
		a.Usage()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}

	rest := args[1:]
	if len(rest) < cmd.minArgs || len(rest) > cmd.maxArgs {
		return fmt.Errorf("%w: %s", ErrUsage, cmd.usage)
	}
	return cmd.run(a, ctx, rest)
}

// Usage lists the available commands.
func (a *App) Usage() {
	fmt.Fprintln(a.out, "Usage: tokenctl [flags] <command> [args]")
	fmt.Fprintln(a.out, "Commands:")
	for _, name := range []string{"issue", "store", "verify", "invalidate", "exists", "clear", "count"} {
		fmt.Fprintf(a.out, "  %s\n", commands[name].usage)
	}
}

func optionalArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return ""
}

func (a *App) issue(ctx context.Context, args []string) error {
	token, err := common.MakeRandHexString(issuedTokenBytes)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	if err := a.store.StoreOrUpdate(ctx, token, args[0], a.ttl, optionalArg(args, 1)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, token)
	return nil
}

func (a *App) storeToken(ctx context.Context, args []string) error {
	tok, err := GetToken(a.reader, a.fd, a.out)
	if err != nil {
		return err
	}

	if err := a.store.StoreOrUpdate(ctx, tok, args[0], a.ttl, optionalArg(args, 1)); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "stored, valid for %s\n", a.ttl)
	return nil
}

func (a *App) verify(ctx context.Context, args []string) error {
	tok, err := GetToken(a.reader, a.fd, a.out)
	if err != nil {
		return err
	}

	ok, origin, err := a.store.Authenticate(ctx, tok, args[0])
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "invalid")
		return ErrTokenRejected
	}
	if origin != "" {
		fmt.Fprintf(a.out, "valid, origin %s\n", origin)
	} else {
		fmt.Fprintln(a.out, "valid")
	}
	return nil
}

func (a *App) invalidate(ctx context.Context, args []string) error {
	if err := a.store.InvalidateUser(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "invalidated")
	return nil
}

func (a *App) exists(ctx context.Context, args []string) error {
	ok, expiry, err := a.store.Exists(ctx, args[0])
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "no token")
		return nil
	}
	fmt.Fprintf(a.out, "token expires %s\n", expiry.UTC().Format(time.RFC3339))
	return nil
}

func (a *App) clear(ctx context.Context, _ []string) error {
	if err := a.store.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "cleared")
	return nil
}

func (a *App) count(ctx context.Context, _ []string) error {
	n, err := a.store.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, n)
	return nil
}
