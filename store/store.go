// Package store defines the task store contract shared by the sqlite
// primary store and the hosted Postgres store, and the policy that falls
// back from one to the other.
package store

import (
	"context"

	"nexto/models"
)

// Store is the CRUD surface every task store implements.
type Store interface {
	List(ctx context.Context) ([]models.Task, error)
	Get(ctx context.Context, id string) (models.Task, error)
	Insert(ctx context.Context, in models.TaskInput) (models.Task, error)
	Update(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error)
	Remove(ctx context.Context, id string) error
}

// RemoteStore is a Store that may be switched off by configuration.
type RemoteStore interface {
	Store
	Configured() bool
}
