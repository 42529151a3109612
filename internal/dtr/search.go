// Package dtr implements the concurrent registry search across candidate
// connectors, producing the fan-out manifest callbacks correlate against.
package dtr

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"twinpass/internal/aas"
	"twinpass/internal/discovery"
	"twinpass/internal/platform/metrics"
	"twinpass/internal/process"
)

// SearchEngine probes every candidate connector for a reachable digital twin
// registry. Probes run concurrently and fail independently: one slow or
// broken connector never aborts or delays the others.
type SearchEngine struct {
	registries   aas.RegistryClient
	store        process.Store
	logger       *slog.Logger
	metrics      *metrics.Metrics
	probeTimeout time.Duration
}

// NewSearchEngine constructs the search engine. probeTimeout bounds each
// individual connector probe; metrics may be nil.
func NewSearchEngine(registries aas.RegistryClient, store process.Store, logger *slog.Logger, m *metrics.Metrics, probeTimeout time.Duration) *SearchEngine {
	return &SearchEngine{
		registries:   registries,
		store:        store,
		logger:       logger,
		metrics:      m,
		probeTimeout: probeTimeout,
	}
}

// Search fans out one probe per connector and joins all of them before
// returning. Each successful probe mints a fresh endpoint id and records a
// registry candidate; failures are logged and dropped. The accumulated
// record is attached to the process and returned — an empty record means "no
// reachable registries" and is not an error. Candidates for the same asset
// from different connectors are retained as separate endpoint ids;
// correlation at callback time disambiguates by endpoint id.
func (e *SearchEngine) Search(ctx context.Context, processID, assetID, idType string, connectors []discovery.ConnectorReference) (process.SearchRecord, error) {
	record := process.SearchRecord{
		AssetID:    assetID,
		IDType:     idType,
		Candidates: make(map[string]process.RegistryCandidate),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, connector := range connectors {
		connector := connector
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(gctx, e.probeTimeout)
			defer cancel()

			start := time.Now()
			registryEndpoint, err := e.registries.Probe(probeCtx, connector.Address)
			e.metrics.ObserveProbe(time.Since(start), err)
			if err != nil {
				// Probe failures are recovered locally; they must never
				// propagate and cancel sibling probes.
				e.logger.WarnContext(ctx, "connector probe failed",
					"process_id", processID,
					"bpn", connector.BPN,
					"connector", connector.Address,
					"error", err,
				)
				return nil
			}

			endpointID := uuid.NewString()
			mu.Lock()
			record.Candidates[endpointID] = process.RegistryCandidate{
				EndpointID:       endpointID,
				BPN:              connector.BPN,
				RegistryEndpoint: registryEndpoint,
			}
			mu.Unlock()
			return nil
		})
	}
	// Join point: the search blocks until the slowest probe completes.
	_ = g.Wait()

	if err := e.store.AttachSearchRecord(ctx, processID, record); err != nil {
		return process.SearchRecord{}, err
	}
	e.logger.InfoContext(ctx, "registry search completed",
		"process_id", processID,
		"connectors", len(connectors),
		"registries_found", len(record.Candidates),
	)
	return record, nil
}
