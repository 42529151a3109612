// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"time"
)

// Discovery configures the central discovery finder and its well-known keys.
type Discovery struct {
	// Endpoint is the discovery finder URL resolving type keys to addresses.
	Endpoint string
	// BPNKey and EDCKey are the two well-known keys resolved at startup.
	BPNKey string
	EDCKey string
	// SearchPath is appended to a cached BPN discovery endpoint for searches.
	SearchPath string
}

// DTR configures digital-twin-registry probing and submodel selection.
type DTR struct {
	// EndpointInterface selects the submodel endpoint by declared interface.
	EndpointInterface string
	// DSPEndpointKey names the subprotocol parameter holding the connector
	// address.
	DSPEndpointKey string
	// ProbeTimeout bounds each connector probe during the search fan-out.
	ProbeTimeout time.Duration
}

// Config captures everything the server needs at startup.
type Config struct {
	Addr        string
	Discovery   Discovery
	DTR         DTR
	RedisURL    string
	PostgresDSN string
	StorageDir  string
	// APIToken is the technical-user bearer token attached to outbound
	// discovery and registry calls. Token acquisition lives outside this
	// service.
	APIToken string
	// AuthToken guards the inbound search API when set. Empty disables the
	// check for local development.
	AuthToken string
}

// FromEnv builds a Config from environment variables, applying development
// defaults where a value is optional.
func FromEnv() Config {
	return Config{
		Addr: envOr("TWINPASS_ADDR", ":8080"),
		Discovery: Discovery{
			Endpoint:   os.Getenv("DISCOVERY_ENDPOINT"),
			BPNKey:     envOr("DISCOVERY_BPN_KEY", "bpn"),
			EDCKey:     envOr("DISCOVERY_EDC_KEY", "edc"),
			SearchPath: envOr("BPN_DISCOVERY_SEARCH_PATH", "/api/administration/connectors/bpnDiscovery/search"),
		},
		DTR: DTR{
			EndpointInterface: envOr("DTR_ENDPOINT_INTERFACE", "SUBMODEL-3.0"),
			DSPEndpointKey:    envOr("DTR_DSP_ENDPOINT_KEY", "dspEndpoint"),
			ProbeTimeout:      envDurationOr("DTR_PROBE_TIMEOUT", 10*time.Second),
		},
		RedisURL:    os.Getenv("REDIS_URL"),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		StorageDir:  envOr("PASSPORT_STORAGE_DIR", "data/passports"),
		APIToken:    os.Getenv("TWINPASS_API_TOKEN"),
		AuthToken:   os.Getenv("TWINPASS_AUTH_TOKEN"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
