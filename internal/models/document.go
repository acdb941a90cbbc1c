// Package models holds the data types shared by the token store and the
// document repositories.
package models

// Document is an opaque JSON body stored under ID. Revision is the
// concurrency token of the stored version; empty means "not stored yet".
type Document struct {
	ID       string
	Body     []byte
	Revision string
}

// Info describes a document repository.
type Info struct {
	Backend  string
	DocCount int
}
