//go:build integration

package process_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"twinpass/internal/aas"
	"twinpass/internal/process"
	dErrors "twinpass/pkg/domain-errors"
	"twinpass/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *process.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = process.NewPostgresStore(s.pg.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) newID() string {
	return "p-" + uuid.NewString()
}

func (s *PostgresStoreSuite) TestCreateConflict() {
	ctx := context.Background()
	id := s.newID()

	_, err := s.store.Create(ctx, id)
	s.Require().NoError(err)

	_, err = s.store.Create(ctx, id)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *PostgresStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), "ghost")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *PostgresStoreSuite) TestHistoryOrdering() {
	ctx := context.Background()
	id := s.newID()

	_, err := s.store.Create(ctx, id)
	s.Require().NoError(err)

	for _, name := range []string{"created", "search-completed", "digital-twin-found"} {
		_, err := s.store.AppendStatus(ctx, id, name, process.StateInProgress, "")
		s.Require().NoError(err)
	}

	p, err := s.store.Get(ctx, id)
	s.Require().NoError(err)
	s.Require().Len(p.History, 3)
	s.Equal("created", p.History[0].Name)
	s.Equal("digital-twin-found", p.CurrentStatus().Name)
}

func (s *PostgresStoreSuite) TestArtifactsRoundTrip() {
	ctx := context.Background()
	id := s.newID()

	_, err := s.store.Create(ctx, id)
	s.Require().NoError(err)

	record := process.SearchRecord{
		AssetID: "X123",
		IDType:  "partInstanceId",
		Candidates: map[string]process.RegistryCandidate{
			"e-1": {EndpointID: "e-1", BPN: "BPNL001", RegistryEndpoint: "https://edc-a.example"},
		},
	}
	s.Require().NoError(s.store.AttachSearchRecord(ctx, id, record))
	s.Require().NoError(s.store.AttachDigitalTwin(ctx, id, &aas.DigitalTwin{ID: "urn:uuid:twin-1"}))
	s.Require().NoError(s.store.AttachPassport(ctx, id, "data/passports/"+id+"/passport.json"))
	s.Require().NoError(s.store.SetConnector(ctx, id, "https://edc-a.example", "BPNL001"))

	p, err := s.store.Get(ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(p.Search)
	candidate, ok := p.Search.Candidate("e-1")
	s.True(ok)
	s.Equal("BPNL001", candidate.BPN)
	s.Equal("urn:uuid:twin-1", p.DigitalTwin.ID)
	s.Equal("https://edc-a.example", p.ConnectorAddress)

	// Three attaches audited as transitions; SetConnector is not.
	s.Len(p.History, 3)
}

func (s *PostgresStoreSuite) TestConcurrentAppendsLoseNothing() {
	ctx := context.Background()
	id := s.newID()

	_, err := s.store.Create(ctx, id)
	s.Require().NoError(err)

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.AppendStatus(ctx, id, "concurrent", process.StateInProgress, "")
			s.NoError(err)
		}()
	}
	wg.Wait()

	p, err := s.store.Get(ctx, id)
	s.Require().NoError(err)
	s.Len(p.History, writers)
}
