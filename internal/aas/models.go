// Package aas models the slice of the Asset Administration Shell registry
// surface this service consumes: digital twins, their submodel descriptors,
// and the submodel endpoints that carry connector routing parameters.
package aas

import "strings"

// DigitalTwin is a shell descriptor fetched from a decentralized registry.
// Beyond routing fields the payload is treated as opaque.
type DigitalTwin struct {
	ID        string     `json:"id"`
	IDShort   string     `json:"idShort"`
	Submodels []SubModel `json:"submodelDescriptors"`
}

// SubModel describes one data facet of a twin, e.g. the passport submodel.
type SubModel struct {
	ID        string     `json:"id"`
	IDShort   string     `json:"idShort"`
	Endpoints []Endpoint `json:"endpoints"`
}

// Endpoint is a declared access point of a submodel.
type Endpoint struct {
	Interface           string              `json:"interface"`
	ProtocolInformation ProtocolInformation `json:"protocolInformation"`
}

// ProtocolInformation carries the transport parameters of an endpoint. The
// subprotocol body is a semicolon-separated k=v list, e.g.
// "id=asset-7;dspEndpoint=https://edc-a.example".
type ProtocolInformation struct {
	Href            string `json:"href"`
	SubprotocolBody string `json:"subprotocolBody"`
}

// ParsedSubprotocolBody splits the subprotocol body into its parameters.
// Malformed fragments are skipped rather than failing the whole entry.
func (p ProtocolInformation) ParsedSubprotocolBody() map[string]string {
	params := make(map[string]string)
	for _, part := range strings.Split(p.SubprotocolBody, ";") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		params[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return params
}

// EndpointByInterface returns the first endpoint declaring the given
// interface name, or nil when none matches.
func (s SubModel) EndpointByInterface(name string) *Endpoint {
	for i := range s.Endpoints {
		if s.Endpoints[i].Interface == name {
			return &s.Endpoints[i]
		}
	}
	return nil
}

// SubmodelByIDShort returns the submodel with the given idShort. An empty
// idShort selects the first submodel, which is the common single-facet case.
func (t DigitalTwin) SubmodelByIDShort(idShort string) *SubModel {
	if len(t.Submodels) == 0 {
		return nil
	}
	if idShort == "" {
		return &t.Submodels[0]
	}
	for i := range t.Submodels {
		if t.Submodels[i].IDShort == idShort {
			return &t.Submodels[i]
		}
	}
	return nil
}
