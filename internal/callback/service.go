// Package callback correlates asynchronous data-plane callbacks with running
// passport searches and drives the retrieval steps they unlock.
package callback

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"twinpass/internal/aas"
	"twinpass/internal/dataplane"
	"twinpass/internal/discovery"
	"twinpass/internal/edr"
	"twinpass/internal/platform/metrics"
	"twinpass/internal/process"
	dErrors "twinpass/pkg/domain-errors"
)

// Service handles the two callback kinds of the retrieval flow: the registry
// callback that unlocks the digital twin lookup, and the data callback that
// unlocks the passport fetch.
type Service struct {
	store      process.Store
	registries aas.RegistryClient
	dataplane  dataplane.Client
	passports  dataplane.PassportStore
	logger     *slog.Logger
	metrics    *metrics.Metrics

	// endpointInterface selects the submodel endpoint; dspEndpointKey names
	// the subprotocol parameter carrying the provider's connector address.
	endpointInterface string
	dspEndpointKey    string
}

// NewService wires the callback service. metrics may be nil.
func NewService(
	store process.Store,
	registries aas.RegistryClient,
	dataplaneClient dataplane.Client,
	passports dataplane.PassportStore,
	logger *slog.Logger,
	m *metrics.Metrics,
	endpointInterface, dspEndpointKey string,
) *Service {
	return &Service{
		store:             store,
		registries:        registries,
		dataplane:         dataplaneClient,
		passports:         passports,
		logger:            logger,
		metrics:           m,
		endpointInterface: endpointInterface,
		dspEndpointKey:    dspEndpointKey,
	}
}

// OnRegistryCallback correlates an inbound endpoint data reference with the
// registry candidate it answers, queries the registry for the digital twin,
// and records the provider connector extracted from the twin's submodel
// endpoint. Validation failures never mutate process state.
func (s *Service) OnRegistryCallback(ctx context.Context, processID, endpointID string, endpoint edr.DataPlaneEndpoint) error {
	if err := endpoint.Validate(); err != nil {
		return err
	}

	proc, err := s.store.Get(ctx, processID)
	if err != nil {
		return err
	}
	if proc.CurrentStatus() == nil {
		return dErrors.New(dErrors.CodeNotFound, "the process has no status history")
	}
	if proc.Search == nil {
		return dErrors.New(dErrors.CodeNotFound, "the process has no search record attached")
	}
	candidate, ok := proc.Search.Candidate(endpointID)
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "no registry candidate matches the endpoint id")
	}

	query := aas.TwinQuery{
		AssetID: proc.Search.AssetID,
		IDType:  proc.Search.IDType,
	}

	var (
		twin     *aas.DigitalTwin
		submodel *aas.SubModel
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		var queryErr error
		twin, submodel, queryErr = s.registries.QueryTwin(gctx, query, endpoint)
		s.metrics.ObserveRegistryQuery(time.Since(start))
		return queryErr
	})
	if err := g.Wait(); err != nil {
		return err
	}

	twinEndpoint := submodel.EndpointByInterface(s.endpointInterface)
	if twinEndpoint == nil {
		return dErrors.New(dErrors.CodeNotFound, "the submodel declares no endpoint for interface ["+s.endpointInterface+"]")
	}
	params := twinEndpoint.ProtocolInformation.ParsedSubprotocolBody()
	dspEndpoint := params[s.dspEndpointKey]
	assetID := params["id"]
	if dspEndpoint == "" {
		return dErrors.New(dErrors.CodeNotFound, "the submodel endpoint carries no ["+s.dspEndpointKey+"] parameter")
	}
	if assetID == "" {
		return dErrors.New(dErrors.CodeNotFound, "the submodel endpoint carries no asset id parameter")
	}

	address, err := discovery.NormalizeConnectorAddress(dspEndpoint)
	if err != nil {
		return err
	}

	if err := s.store.SetConnector(ctx, processID, address, candidate.BPN); err != nil {
		return err
	}
	if err := s.store.AttachDigitalTwin(ctx, processID, twin); err != nil {
		return err
	}
	if _, err := s.store.AppendStatus(ctx, processID, process.StatusTwinFound, process.StateReady, assetID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "digital twin resolved",
		"process_id", processID,
		"endpoint_id", endpointID,
		"bpn", candidate.BPN,
		"asset_id", assetID,
	)
	return nil
}

// OnDataCallback fetches the passport through the authorized data-plane
// endpoint and persists it. It is valid for this callback to arrive before
// the registry callback: only the process itself has to exist.
func (s *Service) OnDataCallback(ctx context.Context, processID string, endpoint edr.DataPlaneEndpoint) error {
	if err := endpoint.Validate(); err != nil {
		return err
	}

	if _, err := s.store.Get(ctx, processID); err != nil {
		return err
	}

	payload, err := s.dataplane.FetchPassport(ctx, endpoint)
	if err != nil {
		return err
	}

	location, err := s.passports.Save(ctx, processID, payload)
	if err != nil {
		return err
	}
	if err := s.store.AttachPassport(ctx, processID, location); err != nil {
		return err
	}
	if _, err := s.store.AppendStatus(ctx, processID, process.StatusPassportFound, process.StateReady, ""); err != nil {
		return err
	}

	s.metrics.CountPassportStored()
	s.logger.InfoContext(ctx, "passport stored",
		"process_id", processID,
		"location", location,
	)
	return nil
}
