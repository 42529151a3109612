package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"twinpass/internal/edr"
	dErrors "twinpass/pkg/domain-errors"
	"twinpass/pkg/testutil"
)

type fakeService struct {
	err               error
	registryProcessID string
	registryEndpoint  string
	dataProcessID     string
	lastEDR           edr.DataPlaneEndpoint
}

func (f *fakeService) OnRegistryCallback(ctx context.Context, processID, endpointID string, endpoint edr.DataPlaneEndpoint) error {
	f.registryProcessID = processID
	f.registryEndpoint = endpointID
	f.lastEDR = endpoint
	return f.err
}

func (f *fakeService) OnDataCallback(ctx context.Context, processID string, endpoint edr.DataPlaneEndpoint) error {
	f.dataProcessID = processID
	f.lastEDR = endpoint
	return f.err
}

type HandlerSuite struct {
	suite.Suite
	service *fakeService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.service = &fakeService{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(s.service, logger, nil).Register(s.router)
}

func (s *HandlerSuite) post(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

const validBody = `{"id":"t-1","endpoint":"https://provider.example/api/public","authCode":"token","offerId":"offer-1"}`

func (s *HandlerSuite) TestRegistryCallback() {
	s.Run("routes path params and body to the service", func() {
		s.SetupTest()
		rec := s.post("/endpoint/p-1/e-1", validBody)

		s.Equal(http.StatusOK, rec.Code)
		s.Equal("p-1", s.service.registryProcessID)
		s.Equal("e-1", s.service.registryEndpoint)
		s.Equal("offer-1", s.service.lastEDR.OfferID)

		body := testutil.DecodeBody[map[string]string](s.T(), rec)
		s.Equal("ok", body["message"])
	})

	s.Run("malformed body is a 400", func() {
		s.SetupTest()
		rec := s.post("/endpoint/p-1/e-1", "{not json")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("bad-request from the service passes through", func() {
		s.SetupTest()
		s.service.err = dErrors.New(dErrors.CodeBadRequest, "the authorization code is empty")
		rec := s.post("/endpoint/p-1/e-1", validBody)

		s.Equal(http.StatusBadRequest, rec.Code)
		body := testutil.DecodeBody[map[string]string](s.T(), rec)
		s.Equal("the authorization code is empty", body["error_description"])
	})

	s.Run("not-found from the service passes through", func() {
		s.SetupTest()
		s.service.err = dErrors.New(dErrors.CodeNotFound, "no registry candidate matches the endpoint id")
		rec := s.post("/endpoint/p-1/e-unknown", validBody)
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("every other failure is an opaque 403", func() {
		s.SetupTest()
		s.service.err = dErrors.New(dErrors.CodeConfiguration, "the edc discovery endpoint is not cached")
		rec := s.post("/endpoint/p-1/e-1", validBody)

		s.Equal(http.StatusForbidden, rec.Code)
		body := testutil.DecodeBody[map[string]string](s.T(), rec)
		s.Equal("forbidden", body["error"])
		s.NotContains(body, "error_description")
	})
}

func (s *HandlerSuite) TestDataCallback() {
	s.Run("routes the process id to the service", func() {
		s.SetupTest()
		rec := s.post("/endpoint/p-1", validBody)

		s.Equal(http.StatusOK, rec.Code)
		s.Equal("p-1", s.service.dataProcessID)
		s.Empty(s.service.registryProcessID)
	})

	s.Run("internal failure is an opaque 403", func() {
		s.SetupTest()
		s.service.err = dErrors.New(dErrors.CodeInternal, "storage write failed")
		rec := s.post("/endpoint/p-1", validBody)

		s.Equal(http.StatusForbidden, rec.Code)
		body := testutil.DecodeBody[map[string]string](s.T(), rec)
		s.NotContains(body, "error_description")
	})
}
