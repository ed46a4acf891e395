package ports

import (
	"context"
	"time"

	"outline-backend/application/transfer"
	"outline-backend/domain/events"
)

// ProjectMeta is the metadata stored alongside a project's outline document.
// Sequence is the monotonic save counter used to discard stale responses.
type ProjectMeta struct {
	ProjectID   string
	OwnerID     string
	Name        string
	Description string
	NoteCount   int
	Sequence    uint64
	UpdatedAt   time.Time
}

// ProjectRepository persists outline documents and their metadata.
// This is a port in hexagonal architecture - the domain doesn't know about
// the implementation.
type ProjectRepository interface {
	// Save persists the document and returns the stored metadata. The
	// returned meta is authoritative: the store may correct the name or
	// description, and callers must adopt what comes back.
	Save(ctx context.Context, meta ProjectMeta, doc *transfer.Document) (*ProjectMeta, error)

	// Load retrieves a project's document and metadata
	Load(ctx context.Context, ownerID, projectID string) (*transfer.Document, *ProjectMeta, error)

	// ListByOwner retrieves metadata for all of an owner's projects
	ListByOwner(ctx context.Context, ownerID string) ([]*ProjectMeta, error)

	// Delete removes a project and its document
	Delete(ctx context.Context, ownerID, projectID string) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// ChangeNotifier pushes outline-change notices to connected clients so other
// open views of the same project can refresh.
type ChangeNotifier interface {
	// NotifyOutlineChanged tells listeners the project advanced to sequence
	NotifyOutlineChanged(ctx context.Context, projectID string, sequence uint64) error
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}
