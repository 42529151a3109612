// Package search drives the front half of the passport pipeline: resolving
// the asset owner, discovering its connectors, and fanning out the registry
// search.
package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"twinpass/internal/dataplane"
	"twinpass/internal/discovery"
	"twinpass/internal/platform/metrics"
	"twinpass/internal/process"
	dErrors "twinpass/pkg/domain-errors"
)

// Request is one inbound search: a specific asset id, its type, and an
// optional caller-chosen process id.
type Request struct {
	ID        string `json:"id"`
	IDType    string `json:"idType"`
	ProcessID string `json:"processId,omitempty"`
}

// PartnerResolver resolves the asset owner and its connector endpoints.
type PartnerResolver interface {
	ResolveBusinessPartner(ctx context.Context, identifier, identifierType string) (string, error)
	ResolveConnectors(ctx context.Context, bpns []string) ([]discovery.ConnectorReference, error)
}

// RegistrySearcher fans the search out over the resolved connectors.
type RegistrySearcher interface {
	Search(ctx context.Context, processID, assetID, idType string, connectors []discovery.ConnectorReference) (process.SearchRecord, error)
}

// Service orchestrates the search pipeline up to the point where callbacks
// take over, and serves the passport once a data callback stored it.
type Service struct {
	store     process.Store
	resolver  PartnerResolver
	engine    RegistrySearcher
	passports dataplane.PassportStore
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewService wires the search orchestrator. metrics may be nil.
func NewService(store process.Store, resolver PartnerResolver, engine RegistrySearcher, passports dataplane.PassportStore, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:     store,
		resolver:  resolver,
		engine:    engine,
		passports: passports,
		logger:    logger,
		metrics:   m,
	}
}

// StartSearch runs the synchronous half of a passport search and returns the
// process snapshot the caller polls or correlates callbacks against. A
// caller-supplied process id that already exists is a conflict; resolution or
// fan-out failures after process creation leave a FAILED transition behind.
func (s *Service) StartSearch(ctx context.Context, req Request) (*process.Process, error) {
	if req.ID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "the asset id is empty")
	}
	if req.IDType == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "the asset id type is empty")
	}

	processID := req.ProcessID
	if processID == "" {
		processID = uuid.NewString()
	} else if !validProcessID(processID) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "the process id contains invalid characters")
	}
	if _, err := s.store.Create(ctx, processID); err != nil {
		return nil, err
	}
	if _, err := s.store.AppendStatus(ctx, processID, process.StatusCreated, process.StateInProgress, ""); err != nil {
		return nil, err
	}
	s.metrics.CountSearchStarted()

	record, err := s.runPipeline(ctx, processID, req)
	if err != nil {
		// The process survives so the caller can inspect what failed.
		if _, appendErr := s.store.AppendStatus(ctx, processID, process.StatusSearchFailed, process.StateFailed, ""); appendErr != nil {
			s.logger.ErrorContext(ctx, "failed to record search failure",
				"process_id", processID,
				"error", appendErr.Error(),
			)
		}
		return nil, err
	}

	if _, err := s.store.AppendStatus(ctx, processID, process.StatusSearchCompleted, process.StateInProgress, ""); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "search completed",
		"process_id", processID,
		"id_type", req.IDType,
		"candidates", len(record.Candidates),
	)
	return s.store.Get(ctx, processID)
}

// Passport returns the stored passport document for a finished retrieval.
// Not-found until the data callback has delivered and persisted it.
func (s *Service) Passport(ctx context.Context, processID string) (json.RawMessage, error) {
	proc, err := s.store.Get(ctx, processID)
	if err != nil {
		return nil, err
	}
	if proc.PassportPath == "" {
		return nil, dErrors.New(dErrors.CodeNotFound, "no passport has been received for this process yet")
	}
	return s.passports.Load(ctx, processID)
}

// validProcessID rejects caller-chosen process ids that could not serve as
// safe storage keys. The id later names a directory under the passport
// storage root, so path separators and dot-dot sequences are refused.
func validProcessID(id string) bool {
	return !strings.ContainsAny(id, `/\`) && !strings.Contains(id, "..")
}

func (s *Service) runPipeline(ctx context.Context, processID string, req Request) (process.SearchRecord, error) {
	bpn, err := s.resolver.ResolveBusinessPartner(ctx, req.ID, req.IDType)
	if err != nil {
		return process.SearchRecord{}, err
	}
	connectors, err := s.resolver.ResolveConnectors(ctx, []string{bpn})
	if err != nil {
		return process.SearchRecord{}, err
	}
	return s.engine.Search(ctx, processID, req.ID, req.IDType, connectors)
}
