package payment

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows List queries.
type ListFilter struct {
	Status *Status
	Method *string
	Limit  int
	Offset int
}

// Repository persists payment records. Update applies a compare-and-set on
// the expected current status so only the first terminal transition wins;
// a stale expectation returns ErrAlreadyProcessed.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	Update(ctx context.Context, rec *Record, expected Status) error
	List(ctx context.Context, filter ListFilter) ([]*Record, error)
}
