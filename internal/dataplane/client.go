// Package dataplane fetches passport payloads through authorized data-plane
// endpoints and persists them for later retrieval.
package dataplane

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"twinpass/internal/edr"
	dErrors "twinpass/pkg/domain-errors"
)

// Client retrieves the passport document exposed behind a negotiated
// data-plane endpoint.
type Client interface {
	// FetchPassport pulls the passport payload. A not-found-coded error means
	// the endpoint is reachable but serves no passport.
	FetchPassport(ctx context.Context, endpoint edr.DataPlaneEndpoint) (json.RawMessage, error)
}

// HTTPClient is the production Client.
type HTTPClient struct {
	http *http.Client
}

// NewHTTPClient builds a data-plane client on top of the given http.Client.
func NewHTTPClient(httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{http: httpClient}
}

// FetchPassport performs an authorized GET against the data-plane endpoint.
// The EDR's authorization code goes into the header the EDR names, falling
// back to Authorization.
func (c *HTTPClient) FetchPassport(ctx context.Context, endpoint edr.DataPlaneEndpoint) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build passport request: %w", err)
	}
	authKey := endpoint.AuthKey
	if authKey == "" {
		authKey = "Authorization"
	}
	req.Header.Set(authKey, endpoint.AuthCode)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch passport: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, dErrors.New(dErrors.CodeNotFound, "the data plane serves no passport for this transfer")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch passport: unexpected status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read passport payload: %w", err)
	}
	if !json.Valid(payload) {
		return nil, dErrors.New(dErrors.CodeNotFound, "the data plane returned a malformed passport document")
	}
	return payload, nil
}
