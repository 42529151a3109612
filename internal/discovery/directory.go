package discovery

import (
	"context"
	"errors"
	"log/slog"

	"twinpass/internal/vault"
	dErrors "twinpass/pkg/domain-errors"
)

// cacheKeyPrefix namespaces discovery endpoints in the secret store.
const cacheKeyPrefix = "discovery."

// Directory resolves logical service keys through the discovery finder and
// caches resolved endpoints in the secret store, keyed by logical name.
type Directory struct {
	finder FinderClient
	vault  vault.SecretStore
	logger *slog.Logger
	// bpnKey and edcKey are the two well-known keys resolved at startup.
	bpnKey string
	edcKey string
}

// NewDirectory constructs the endpoint directory.
func NewDirectory(finder FinderClient, secrets vault.SecretStore, logger *slog.Logger, bpnKey, edcKey string) *Directory {
	return &Directory{
		finder: finder,
		vault:  secrets,
		logger: logger,
		bpnKey: bpnKey,
		edcKey: edcKey,
	}
}

// Resolve asks the finder for every requested key. Either all keys resolve
// or the whole call fails — a partial result is never returned silently.
func (d *Directory) Resolve(ctx context.Context, keys []string) (Discovery, error) {
	discovery, err := d.finder.FindEndpoints(ctx, keys)
	if err != nil {
		return Discovery{}, dErrors.Wrap(err, dErrors.CodeDiscovery, "the discovery finder is unreachable")
	}
	for _, key := range keys {
		if _, ok := discovery.Endpoint(key); !ok {
			return Discovery{}, dErrors.New(dErrors.CodeDiscovery, "the endpoint ["+key+"] is not available in the discovery finder")
		}
	}
	return discovery, nil
}

// CacheEndpoint idempotently upserts an endpoint in the secret store. It
// fails closed: an empty address or a store failure logs the omission and
// returns false so the caller can decide whether to abort.
func (d *Directory) CacheEndpoint(ctx context.Context, key, address string) bool {
	if address == "" {
		d.logger.ErrorContext(ctx, "the endpoint address is not defined", "key", key)
		return false
	}
	if err := d.vault.Set(ctx, cacheKeyPrefix+key, address); err != nil {
		d.logger.ErrorContext(ctx, "failed to cache discovery endpoint", "key", key, "error", err)
		return false
	}
	return true
}

// HasCachedEndpoint reports whether the key has a cached endpoint.
func (d *Directory) HasCachedEndpoint(ctx context.Context, key string) bool {
	ok, err := d.vault.Exists(ctx, cacheKeyPrefix+key)
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to check endpoint cache", "key", key, "error", err)
		return false
	}
	return ok
}

// CachedEndpoint returns the cached address for key; not-found-coded error
// when absent.
func (d *Directory) CachedEndpoint(ctx context.Context, key string) (string, error) {
	address, err := d.vault.Get(ctx, cacheKeyPrefix+key)
	if errors.Is(err, vault.ErrNotFound) {
		return "", dErrors.New(dErrors.CodeNotFound, "no cached endpoint for key ["+key+"]")
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to read endpoint cache")
	}
	return address, nil
}

// AddEndpoint resolves a single key at the finder and caches it.
func (d *Directory) AddEndpoint(ctx context.Context, key string) error {
	discovery, err := d.Resolve(ctx, []string{key})
	if err != nil {
		return err
	}
	endpoint, _ := discovery.Endpoint(key)
	if !d.CacheEndpoint(ctx, key, endpoint.Address) {
		return dErrors.New(dErrors.CodeDiscovery, "failed to cache the discovery endpoint for key ["+key+"]")
	}
	return nil
}

// Bootstrap eagerly resolves and caches the well-known BPN and EDC discovery
// endpoints. A failure here is non-fatal to process startup; the boolean
// status lets main decide how loudly to complain.
func (d *Directory) Bootstrap(ctx context.Context) bool {
	discovery, err := d.Resolve(ctx, []string{d.bpnKey, d.edcKey})
	if err != nil {
		d.logger.ErrorContext(ctx, "it was not possible to get the default discovery endpoints", "error", err)
		return false
	}
	ok := true
	for _, key := range []string{d.bpnKey, d.edcKey} {
		endpoint, _ := discovery.Endpoint(key)
		if !d.CacheEndpoint(ctx, key, endpoint.Address) {
			ok = false
		}
	}
	if ok {
		d.logger.InfoContext(ctx, "retrieved and stored the default discovery endpoints", "keys", []string{d.bpnKey, d.edcKey})
	}
	return ok
}
