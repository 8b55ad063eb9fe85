package duplication

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists job snapshots so status survives restarts
type Repository interface {
	Save(ctx context.Context, job *Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*Job, error)
	// FailRunning marks jobs left running by a previous process as failed
	FailRunning(ctx context.Context, reason string) (int64, error)
}
