// Package discovery resolves logical service keys to network endpoints and
// maps asset identifiers to business partners and their connectors.
package discovery

// Endpoint is one resolved discovery entry. Immutable once resolved; cached
// by its type key.
type Endpoint struct {
	Type    string `json:"type"`
	Address string `json:"endpointAddress"`
}

// Discovery is the ordered endpoint set returned by the discovery finder for
// a set of requested type keys.
type Discovery struct {
	Endpoints []Endpoint `json:"endpoints"`
}

// Endpoint returns the entry for the given type key, or false when the finder
// omitted it.
func (d Discovery) Endpoint(key string) (Endpoint, bool) {
	for _, e := range d.Endpoints {
		if e.Type == key {
			return e, true
		}
	}
	return Endpoint{}, false
}

// ConnectorReference pairs a business partner with one of its connector
// addresses. The connector-discovery reply may yield duplicates across
// partners; downstream consumers tolerate them.
type ConnectorReference struct {
	BPN     string `json:"bpn"`
	Address string `json:"connectorEndpoint"`
}

// bpnDiscovery is the wire shape of a BPN discovery search reply.
type bpnDiscovery struct {
	BPNs []bpnEntry `json:"bpns"`
}

type bpnEntry struct {
	Type  string `json:"type"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// connectorEntry is the wire shape of one connector-discovery reply element.
type connectorEntry struct {
	BPN                string   `json:"bpn"`
	ConnectorEndpoints []string `json:"connectorEndpoint"`
}
