package storage

import (
	"context"

	"studydex/internal/model"
)

// Store persists the single application state. Load reports false when
// nothing has been saved yet.
type Store interface {
	Init(ctx context.Context) error
	Load(ctx context.Context) (model.State, bool, error)
	Save(ctx context.Context, state model.State) error
}
