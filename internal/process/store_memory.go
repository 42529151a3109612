package process

import (
	"context"
	"sync"

	"twinpass/internal/aas"
	dErrors "twinpass/pkg/domain-errors"
	"twinpass/pkg/requestcontext"
)

// InMemoryStore keeps processes in a map with one lock per process, so
// concurrent callbacks for different processes never contend.
type InMemoryStore struct {
	mu        sync.RWMutex
	processes map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	process *Process
}

// NewInMemoryStore creates an empty in-memory process store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{processes: make(map[string]*entry)}
}

func (s *InMemoryStore) Create(_ context.Context, id string) (*Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.processes[id]; exists {
		return nil, dErrors.New(dErrors.CodeConflict, "process ["+id+"] already exists")
	}
	p := &Process{ID: id}
	s.processes[id] = &entry{process: p}
	return p.clone(), nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Process, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.process.clone(), nil
}

func (s *InMemoryStore) AppendStatus(ctx context.Context, id, name string, state State, assetID string) (*Process, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.process.History = append(e.process.History, StatusTransition{
		Name:      name,
		State:     state,
		AssetID:   assetID,
		Timestamp: requestcontext.Now(ctx),
	})
	return e.process.clone(), nil
}

func (s *InMemoryStore) AttachSearchRecord(ctx context.Context, id string, record SearchRecord) error {
	return s.mutate(ctx, id, StatusSearchAttached, record.AssetID, func(p *Process) {
		p.Search = &record
	})
}

func (s *InMemoryStore) AttachDigitalTwin(ctx context.Context, id string, twin *aas.DigitalTwin) error {
	return s.mutate(ctx, id, StatusTwinAttached, "", func(p *Process) {
		p.DigitalTwin = twin
	})
}

func (s *InMemoryStore) AttachPassport(ctx context.Context, id, location string) error {
	return s.mutate(ctx, id, StatusPassportStored, "", func(p *Process) {
		p.PassportPath = location
	})
}

func (s *InMemoryStore) SetConnector(_ context.Context, id, address, bpn string) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.process.ConnectorAddress = address
	e.process.BPN = bpn
	return nil
}

// mutate applies fn under the per-process lock and appends the audit
// transition for the attach in the same critical section.
func (s *InMemoryStore) mutate(ctx context.Context, id, transition, assetID string, fn func(*Process)) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.process)
	e.process.History = append(e.process.History, StatusTransition{
		Name:      transition,
		State:     StateInProgress,
		AssetID:   assetID,
		Timestamp: requestcontext.Now(ctx),
	})
	return nil
}

func (s *InMemoryStore) lookup(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.processes[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "process ["+id+"] not found")
	}
	return e, nil
}
