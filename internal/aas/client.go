package aas

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"twinpass/internal/edr"
	dErrors "twinpass/pkg/domain-errors"
)

// TwinQuery identifies the twin and submodel a callback needs to resolve.
type TwinQuery struct {
	// AssetID and IDType are the specific-asset-id pair from the original
	// search request, e.g. ("X123", "partInstanceId").
	AssetID string
	IDType  string
	// SubmodelIDShort optionally selects a submodel facet by idShort; empty
	// selects the first descriptor.
	SubmodelIDShort string
}

// RegistryClient talks to decentralized digital twin registries, both for
// reachability probes during search fan-out and for twin queries during
// callback handling.
type RegistryClient interface {
	// Probe checks whether the connector at address offers a reachable
	// registry, returning the registry endpoint to use for later queries.
	Probe(ctx context.Context, connectorAddress string) (string, error)
	// QueryTwin fetches the digital twin matching the query through the
	// authorized data-plane endpoint and selects its submodel.
	QueryTwin(ctx context.Context, query TwinQuery, endpoint edr.DataPlaneEndpoint) (*DigitalTwin, *SubModel, error)
}

// dtrOfferType is the catalog asset type identifying a digital twin registry
// offer on a connector.
const dtrOfferType = "data.core.digitalTwinRegistry"

// HTTPClient is the production RegistryClient speaking the registry's HTTP
// surface.
type HTTPClient struct {
	http *http.Client
}

// NewHTTPClient builds a registry client on top of the given http.Client.
func NewHTTPClient(httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{http: httpClient}
}

type catalogRequest struct {
	Type string `json:"@type"`
}

type catalogResponse struct {
	Datasets []struct {
		ID string `json:"@id"`
	} `json:"dcat:dataset"`
}

// Probe requests the connector's catalog filtered to registry offers. Any
// transport error, non-2xx status, or empty offer list marks the connector
// as unreachable for this search.
func (c *HTTPClient) Probe(ctx context.Context, connectorAddress string) (string, error) {
	body, err := json.Marshal(catalogRequest{Type: dtrOfferType})
	if err != nil {
		return "", fmt.Errorf("marshal catalog request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, connectorAddress+"/catalog/request", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("probe connector %q: %w", connectorAddress, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("probe connector %q: unexpected status %d", connectorAddress, resp.StatusCode)
	}

	var catalog catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&catalog); err != nil {
		return "", fmt.Errorf("decode catalog from %q: %w", connectorAddress, err)
	}
	if len(catalog.Datasets) == 0 {
		return "", fmt.Errorf("connector %q offers no digital twin registry", connectorAddress)
	}
	return connectorAddress, nil
}

type lookupResponse struct {
	Result []string `json:"result"`
}

// QueryTwin resolves the twin in two hops through the data plane proxy:
// a shell lookup by specific asset id, then the shell descriptor fetch.
// The EDR authorization code authenticates both calls.
func (c *HTTPClient) QueryTwin(ctx context.Context, query TwinQuery, endpoint edr.DataPlaneEndpoint) (*DigitalTwin, *SubModel, error) {
	assetIDs, err := json.Marshal([]map[string]string{{"name": query.IDType, "value": query.AssetID}})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal asset ids: %w", err)
	}

	lookupURL := fmt.Sprintf("%s/lookup/shells?assetIds=%s", endpoint.Endpoint, url.QueryEscape(string(assetIDs)))
	var lookup lookupResponse
	if err := c.getJSON(ctx, lookupURL, endpoint, &lookup); err != nil {
		return nil, nil, err
	}
	if len(lookup.Result) == 0 {
		return nil, nil, dErrors.New(dErrors.CodeNotFound, "no digital twin found for the searched asset id")
	}

	shellID := base64.StdEncoding.EncodeToString([]byte(lookup.Result[0]))
	var twin DigitalTwin
	if err := c.getJSON(ctx, endpoint.Endpoint+"/shell-descriptors/"+shellID, endpoint, &twin); err != nil {
		return nil, nil, err
	}

	submodel := twin.SubmodelByIDShort(query.SubmodelIDShort)
	if submodel == nil {
		return nil, nil, dErrors.New(dErrors.CodeNotFound, "the digital twin has no matching submodel")
	}
	return &twin, submodel, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, rawURL string, endpoint edr.DataPlaneEndpoint, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build registry request: %w", err)
	}
	authKey := endpoint.AuthKey
	if authKey == "" {
		authKey = "Authorization"
	}
	req.Header.Set(authKey, endpoint.AuthCode)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("query registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return dErrors.New(dErrors.CodeNotFound, "registry entry not found")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("query registry: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode registry response: %w", err)
	}
	return nil
}
