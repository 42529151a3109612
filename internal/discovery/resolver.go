package discovery

import (
	"context"
	"log/slog"

	dErrors "twinpass/pkg/domain-errors"
	pstrings "twinpass/pkg/platform/strings"
)

// Resolver maps asset identifiers to business partners and business partners
// to candidate connectors, using the Directory's endpoint cache. Both
// operations are side-effect free beyond that cache.
type Resolver struct {
	directory *Directory
	client    PartnerClient
	logger    *slog.Logger
	// searchPath is appended to a cached BPN discovery endpoint.
	searchPath string
	edcKey     string
}

// NewResolver constructs the partner and connector resolver.
func NewResolver(directory *Directory, client PartnerClient, logger *slog.Logger, searchPath, edcKey string) *Resolver {
	return &Resolver{
		directory:  directory,
		client:     client,
		logger:     logger,
		searchPath: searchPath,
		edcKey:     edcKey,
	}
}

// ResolveBusinessPartner finds the BPN owning the identifier. The discovery
// endpoint for the identifier type is resolved and cached lazily on first
// use.
func (r *Resolver) ResolveBusinessPartner(ctx context.Context, identifier, identifierType string) (string, error) {
	if !r.directory.HasCachedEndpoint(ctx, identifierType) {
		if err := r.directory.AddEndpoint(ctx, identifierType); err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeDiscovery, "the discovery endpoint for type ["+identifierType+"] could not be resolved")
		}
	}
	endpoint, err := r.directory.CachedEndpoint(ctx, identifierType)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeDiscovery, "it was not possible to retrieve the bpn discovery endpoint")
	}

	bpns, err := r.client.SearchBPN(ctx, endpoint+r.searchPath, identifier, identifierType)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeDiscovery, "the bpn discovery search failed")
	}
	if len(bpns) == 0 {
		return "", dErrors.New(dErrors.CodeDiscovery, "no business partner found for the searched identifier")
	}
	return bpns[0], nil
}

// ResolveConnectors maps a BPN batch to its connector references. The EDC
// discovery endpoint is on the hot path of every search and must have been
// cached at startup; it is never resolved lazily here.
func (r *Resolver) ResolveConnectors(ctx context.Context, bpns []string) ([]ConnectorReference, error) {
	if !r.directory.HasCachedEndpoint(ctx, r.edcKey) {
		return nil, dErrors.New(dErrors.CodeConfiguration, "the edc discovery endpoint was not resolved at startup")
	}
	endpoint, err := r.directory.CachedEndpoint(ctx, r.edcKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "it was not possible to retrieve the edc discovery endpoint")
	}

	refs, err := r.client.SearchConnectors(ctx, endpoint, pstrings.DedupeAndTrim(bpns))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDiscovery, "the edc discovery search failed")
	}
	return dedupeConnectors(refs), nil
}

// dedupeConnectors drops duplicate (bpn, address) pairs so the search engine
// never probes the same connector twice for one partner. Order is preserved.
func dedupeConnectors(refs []ConnectorReference) []ConnectorReference {
	seen := make(map[ConnectorReference]struct{}, len(refs))
	result := make([]ConnectorReference, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		result = append(result, ref)
	}
	return result
}
