package bootstrap

import (
	"context"
	"io"
)

// Storage is the infrastructure handle produced by bootstrap and owned by the app.
type Storage interface {
	io.Closer
}

// Seeder loads reference data into freshly opened storage.
type Seeder[S Storage] interface {
	Seed(ctx context.Context, storage S) error
}

// SeederFunc adapts a bare function to the Seeder interface.
type SeederFunc[S Storage] func(ctx context.Context, storage S) error

// Seed executes the underlying function.
func (f SeederFunc[S]) Seed(ctx context.Context, storage S) error {
	return f(ctx, storage)
}
