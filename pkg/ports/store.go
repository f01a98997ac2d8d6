// Package ports defines the interfaces at the system boundaries: channel
// persistence, flow definition sources, the call-control client and email
// delivery. Adapters implement them; the runtime depends only on them.
package ports

import (
	"context"

	"github.com/voxflow/voxflow/pkg/domain"
)

// ChannelStore persists call-session records keyed by the protocol-assigned
// channel UID. Storage is authoritative; any in-process caching in front of
// it is an optimization only.
type ChannelStore interface {
	// Insert creates a new channel record. It returns
	// domain.ErrChannelExists when the UID is already taken, letting
	// concurrent creators resolve the race by re-reading.
	Insert(ctx context.Context, ch *domain.Channel) error

	// Update rewrites the record for ch.UID.
	Update(ctx context.Context, ch *domain.Channel) error

	// GetByUID loads a channel, or domain.ErrChannelNotFound.
	GetByUID(ctx context.Context, uid string) (*domain.Channel, error)
}

// FlowSource resolves flow definitions and the shared flow-utilities bundle
// by name. Implementations read files or a storage backend; the runtime
// caches whatever they return for the process lifetime.
type FlowSource interface {
	// Flow loads a flow by name, or domain.ErrFlowNotFound.
	Flow(ctx context.Context, name string) (*domain.Flow, error)

	// Utilities loads the middleware/email-server bundle. A missing bundle
	// is not an error; implementations return an empty bundle.
	Utilities(ctx context.Context) (*domain.FlowUtilities, error)
}
