package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"twinpass/internal/dataplane"
	"twinpass/internal/discovery"
	"twinpass/internal/process"
	dErrors "twinpass/pkg/domain-errors"
)

type fakeResolver struct {
	bpn          string
	bpnErr       error
	connectors   []discovery.ConnectorReference
	connectorErr error
	resolvedID   string
	resolvedBPNs []string
}

func (f *fakeResolver) ResolveBusinessPartner(ctx context.Context, identifier, identifierType string) (string, error) {
	f.resolvedID = identifier
	if f.bpnErr != nil {
		return "", f.bpnErr
	}
	return f.bpn, nil
}

func (f *fakeResolver) ResolveConnectors(ctx context.Context, bpns []string) ([]discovery.ConnectorReference, error) {
	f.resolvedBPNs = bpns
	if f.connectorErr != nil {
		return nil, f.connectorErr
	}
	return f.connectors, nil
}

type fakeEngine struct {
	store      process.Store
	record     process.SearchRecord
	err        error
	connectors []discovery.ConnectorReference
}

func (f *fakeEngine) Search(ctx context.Context, processID, assetID, idType string, connectors []discovery.ConnectorReference) (process.SearchRecord, error) {
	f.connectors = connectors
	if f.err != nil {
		return process.SearchRecord{}, f.err
	}
	record := f.record
	record.AssetID = assetID
	record.IDType = idType
	if err := f.store.AttachSearchRecord(ctx, processID, record); err != nil {
		return process.SearchRecord{}, err
	}
	return record, nil
}

type ServiceSuite struct {
	suite.Suite
	store     process.Store
	resolver  *fakeResolver
	engine    *fakeEngine
	passports dataplane.PassportStore
	service   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = process.NewInMemoryStore()
	s.resolver = &fakeResolver{
		bpn:        "BPNL001",
		connectors: []discovery.ConnectorReference{{BPN: "BPNL001", Address: "https://edc-a.example"}},
	}
	s.engine = &fakeEngine{
		store: s.store,
		record: process.SearchRecord{
			Candidates: map[string]process.RegistryCandidate{
				"e-1": {EndpointID: "e-1", BPN: "BPNL001", RegistryEndpoint: "https://edc-a.example"},
			},
		},
	}
	s.passports = dataplane.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = NewService(s.store, s.resolver, s.engine, s.passports, logger, nil)
}

func (s *ServiceSuite) TestStartSearch() {
	ctx := context.Background()

	s.Run("runs discovery, fan-out, and returns the snapshot", func() {
		s.SetupTest()

		proc, err := s.service.StartSearch(ctx, Request{ID: "X123", IDType: "partInstanceId"})
		s.Require().NoError(err)

		s.Equal("X123", s.resolver.resolvedID)
		s.Equal([]string{"BPNL001"}, s.resolver.resolvedBPNs)
		s.Equal(s.resolver.connectors, s.engine.connectors)

		s.Require().NotNil(proc.Search)
		s.Equal("X123", proc.Search.AssetID)
		s.Contains(proc.Search.Candidates, "e-1")

		status := proc.CurrentStatus()
		s.Require().NotNil(status)
		s.Equal(process.StatusSearchCompleted, status.Name)
		s.Equal(process.StateInProgress, status.State)
	})

	s.Run("honors a caller-chosen process id", func() {
		s.SetupTest()

		proc, err := s.service.StartSearch(ctx, Request{ID: "X123", IDType: "partInstanceId", ProcessID: "p-fixed"})
		s.Require().NoError(err)
		s.Equal("p-fixed", proc.ID)
	})

	s.Run("reusing a process id is a conflict", func() {
		s.SetupTest()

		_, err := s.service.StartSearch(ctx, Request{ID: "X123", IDType: "partInstanceId", ProcessID: "p-dup"})
		s.Require().NoError(err)

		_, err = s.service.StartSearch(ctx, Request{ID: "X123", IDType: "partInstanceId", ProcessID: "p-dup"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("empty id or id type is a bad request", func() {
		s.SetupTest()

		_, err := s.service.StartSearch(ctx, Request{IDType: "partInstanceId"})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

		_, err = s.service.StartSearch(ctx, Request{ID: "X123"})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("a process id with path separators is rejected before any process exists", func() {
		s.SetupTest()

		for _, id := range []string{"../escape", "a/b", `a\b`, ".."} {
			_, err := s.service.StartSearch(ctx, Request{ID: "X123", IDType: "partInstanceId", ProcessID: id})
			s.True(dErrors.HasCode(err, dErrors.CodeBadRequest), id)

			_, getErr := s.store.Get(ctx, id)
			s.True(dErrors.HasCode(getErr, dErrors.CodeNotFound), id)
		}
	})

	s.Run("bpn resolution failure leaves a failed transition", func() {
		s.SetupTest()
		s.resolver.bpnErr = dErrors.New(dErrors.CodeDiscovery, "no business partner number found")

		_, err := s.service.StartSearch(ctx, Request{ID: "X123", IDType: "partInstanceId", ProcessID: "p-fail"})
		s.True(dErrors.HasCode(err, dErrors.CodeDiscovery))

		proc, getErr := s.store.Get(ctx, "p-fail")
		s.Require().NoError(getErr)
		status := proc.CurrentStatus()
		s.Require().NotNil(status)
		s.Equal(process.StatusSearchFailed, status.Name)
		s.Equal(process.StateFailed, status.State)
	})

	s.Run("connector resolution failure leaves a failed transition", func() {
		s.SetupTest()
		s.resolver.connectorErr = dErrors.New(dErrors.CodeConfiguration, "the connector discovery endpoint is not cached")

		_, err := s.service.StartSearch(ctx, Request{ID: "X123", IDType: "partInstanceId", ProcessID: "p-cfg"})
		s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))

		proc, getErr := s.store.Get(ctx, "p-cfg")
		s.Require().NoError(getErr)
		s.Equal(process.StateFailed, proc.CurrentStatus().State)
	})

	s.Run("fan-out failure leaves a failed transition", func() {
		s.SetupTest()
		s.engine.err = errors.New("store write failed")

		_, err := s.service.StartSearch(ctx, Request{ID: "X123", IDType: "partInstanceId", ProcessID: "p-engine"})
		s.Error(err)

		proc, getErr := s.store.Get(ctx, "p-engine")
		s.Require().NoError(getErr)
		s.Equal(process.StateFailed, proc.CurrentStatus().State)
	})
}

func (s *ServiceSuite) TestPassport() {
	ctx := context.Background()

	s.Run("returns the stored payload once the passport has been received", func() {
		s.SetupTest()

		_, err := s.service.StartSearch(ctx, Request{ID: "X123", IDType: "partInstanceId", ProcessID: "p-pass"})
		s.Require().NoError(err)

		payload := json.RawMessage(`{"passport":{"serial":"X123"}}`)
		location, err := s.passports.Save(ctx, "p-pass", payload)
		s.Require().NoError(err)
		s.Require().NoError(s.store.AttachPassport(ctx, "p-pass", location))

		got, err := s.service.Passport(ctx, "p-pass")
		s.Require().NoError(err)
		s.JSONEq(string(payload), string(got))
	})

	s.Run("a process without a stored passport is not found", func() {
		s.SetupTest()

		_, err := s.service.StartSearch(ctx, Request{ID: "X123", IDType: "partInstanceId", ProcessID: "p-early"})
		s.Require().NoError(err)

		_, err = s.service.Passport(ctx, "p-early")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("an unknown process is not found", func() {
		s.SetupTest()

		_, err := s.service.Passport(ctx, "p-missing")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
