package usecase

import (
	"context"

	"github.com/totegamma/gamecatalog/internal/domain"
)

// DocumentCollection defines storage operations for one entity type.
// Lookups that match nothing return domain.ErrNotFound.
type DocumentCollection interface {
	Find(ctx context.Context, projection domain.Projection) ([]domain.Record, error)
	FindByID(ctx context.Context, id string) (domain.Record, error)
	// FindByName matches the whole name, case-insensitively.
	FindByName(ctx context.Context, name string) (domain.Record, error)
	// SearchByName returns the oldest record whose name contains fragment,
	// case-insensitively.
	SearchByName(ctx context.Context, fragment string) (domain.Record, error)
	Create(ctx context.Context, fields map[string]any) (domain.Record, error)
	// Update sets the given fields and returns the updated record.
	Update(ctx context.Context, id string, fields map[string]any) (domain.Record, error)
	Delete(ctx context.Context, id string) error
}

// Store is the process-wide handle on the backing document store.
type Store interface {
	Collection(name string) DocumentCollection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// RecordCache keeps recently read records by identifier.
type RecordCache interface {
	Get(ctx context.Context, key string) (domain.Record, bool)
	Set(ctx context.Context, key string, record domain.Record)
	Delete(ctx context.Context, key string)
}

// EventPublisher announces mutations to realtime subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
}
