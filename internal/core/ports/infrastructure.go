package ports

import (
	"context"
	"io"

	"github.com/99minutos/shipment-legs/internal/core/domain"
)

// Locker serializes work on one key (a leg or a courier) across instances.
type Locker interface {
	// Lock blocks until the key is held or ctx is done. The returned func
	// releases the lock and is safe to call once.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// EventPublisher hands committed state changes to the event stream. It must
// not block the request path and never fails the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LegEvent)
}

// ProofObject is an evidence image on its way to the external store.
type ProofObject struct {
	LegID       string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ProofStore is the external evidence store. It returns an opaque reference.
type ProofStore interface {
	Put(ctx context.Context, obj ProofObject) (imageRef string, err error)
}
