package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// FinderClient resolves discovery type keys at the central discovery finder.
type FinderClient interface {
	FindEndpoints(ctx context.Context, keys []string) (Discovery, error)
}

// PartnerClient performs BPN and connector discovery searches.
type PartnerClient interface {
	// SearchBPN searches the discovery service at searchEndpoint for the
	// business partners owning the identifier.
	SearchBPN(ctx context.Context, searchEndpoint, identifier, identifierType string) ([]string, error)
	// SearchConnectors resolves the connector endpoints for a BPN batch at
	// the EDC discovery endpoint.
	SearchConnectors(ctx context.Context, edcEndpoint string, bpns []string) ([]ConnectorReference, error)
}

// HTTPClient implements FinderClient and PartnerClient against the remote
// discovery services, attaching the technical-user token to every call.
type HTTPClient struct {
	http   *http.Client
	finder string
	tokens TokenProvider
}

// NewHTTPClient builds the discovery HTTP client. finderEndpoint is the
// central discovery finder URL.
func NewHTTPClient(httpClient *http.Client, finderEndpoint string, tokens TokenProvider) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{http: httpClient, finder: finderEndpoint, tokens: tokens}
}

func (c *HTTPClient) FindEndpoints(ctx context.Context, keys []string) (Discovery, error) {
	var discovery Discovery
	body := map[string]any{"types": keys}
	if err := c.postJSON(ctx, c.finder, body, &discovery); err != nil {
		return Discovery{}, fmt.Errorf("discovery finder: %w", err)
	}
	return discovery, nil
}

func (c *HTTPClient) SearchBPN(ctx context.Context, searchEndpoint, identifier, identifierType string) ([]string, error) {
	body := map[string]any{
		"searchFilter": []map[string]any{
			{"type": identifierType, "keys": []string{identifier}},
		},
	}
	var reply bpnDiscovery
	if err := c.postJSON(ctx, searchEndpoint, body, &reply); err != nil {
		return nil, fmt.Errorf("bpn discovery: %w", err)
	}
	bpns := make([]string, 0, len(reply.BPNs))
	for _, entry := range reply.BPNs {
		if entry.Value != "" {
			bpns = append(bpns, entry.Value)
		}
	}
	return bpns, nil
}

func (c *HTTPClient) SearchConnectors(ctx context.Context, edcEndpoint string, bpns []string) ([]ConnectorReference, error) {
	var reply []connectorEntry
	if err := c.postJSON(ctx, edcEndpoint, bpns, &reply); err != nil {
		return nil, fmt.Errorf("edc discovery: %w", err)
	}
	var refs []ConnectorReference
	for _, entry := range reply {
		for _, address := range entry.ConnectorEndpoints {
			refs = append(refs, ConnectorReference{BPN: entry.BPN, Address: address})
		}
	}
	return refs, nil
}

func (c *HTTPClient) postJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("acquire token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
