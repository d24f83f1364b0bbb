package tournament

import (
	"context"
	"errors"
)

// ErrRecordNotFound is returned by Get when no record exists for the league.
var ErrRecordNotFound = errors.New("tournament record not found")

// Repository stores finished-tournament records keyed by league ID.
type Repository interface {
	Get(ctx context.Context, id int64) (Record, error)
	Set(ctx context.Context, record Record) error
	Delete(ctx context.Context, id int64) error
	Keys(ctx context.Context) ([]int64, error)
	List(ctx context.Context) ([]Record, error)
}
