// Package store defines the persistence contract shared by the JSON document
// and PostgreSQL backends.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by lookups of absent keys.
	ErrNotFound = errors.New("store: not found")
	// ErrCodeTaken is returned by InsertFile when the code already exists.
	ErrCodeTaken = errors.New("store: file code taken")
)

// Tx is the view of the store inside one Atomic scope. It must not be used
// after the scope returns.
type Tx interface {
	User(id int64) (User, error)
	PutUser(u User) error
	// Users returns every user ordered by id.
	Users() ([]User, error)

	File(code string) (File, error)
	InsertFile(f File) error

	Invoice(id string) (Invoice, error)
	PutInvoice(inv Invoice) error

	Settings() (Settings, error)
	PutSettings(s Settings) error

	Counts() (Counts, error)
}

// Store runs read-modify-write sequences under mutual exclusion. When fn
// returns an error nothing it wrote is kept.
type Store interface {
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
