package process

import (
	"context"

	"twinpass/internal/aas"
)

// Store is the durable process state store. All mutations on one process id
// are serialized relative to each other; mutations on different ids never
// block. Every attach is recorded as a new status transition so the history
// remains a faithful audit trail.
type Store interface {
	// Create registers a new process; conflict-coded error if the id exists.
	Create(ctx context.Context, id string) (*Process, error)
	// Get loads a process; not-found-coded error if absent.
	Get(ctx context.Context, id string) (*Process, error)
	// AppendStatus atomically appends a transition. History is append-only:
	// identical transitions are never deduplicated.
	AppendStatus(ctx context.Context, id, name string, state State, assetID string) (*Process, error)
	// AttachSearchRecord stores the fan-out manifest (last write wins).
	AttachSearchRecord(ctx context.Context, id string, record SearchRecord) error
	// AttachDigitalTwin stores the retrieved twin artifact (last write wins).
	AttachDigitalTwin(ctx context.Context, id string, twin *aas.DigitalTwin) error
	// AttachPassport records the storage location of the fetched passport.
	AttachPassport(ctx context.Context, id, location string) error
	// SetConnector records the negotiated connector address and owning BPN.
	SetConnector(ctx context.Context, id, address, bpn string) error
}
