package repository

import "context"

// Transactor runs a function as a single atomic unit against the store.
type Transactor interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
