// Package process holds the durable per-request state that lets asynchronous
// callbacks re-attach to a running passport search.
package process

import (
	"time"

	"twinpass/internal/aas"
)

// State classifies a status transition.
type State string

const (
	StateReady      State = "READY"
	StateInProgress State = "IN_PROGRESS"
	StateFailed     State = "FAILED"
)

// Well-known transition names written by the pipeline.
const (
	StatusCreated         = "created"
	StatusSearchCompleted = "search-completed"
	StatusSearchFailed    = "search-failed"
	StatusSearchAttached  = "search-record-attached"
	StatusTwinAttached    = "digital-twin-stored"
	StatusTwinFound       = "digital-twin-found"
	StatusPassportStored  = "passport-stored"
	StatusPassportFound   = "passport-received"
)

// StatusTransition is one append-only history entry. The current status of a
// process is always its most recent transition.
type StatusTransition struct {
	Name      string    `json:"name"`
	State     State     `json:"state"`
	AssetID   string    `json:"assetId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RegistryCandidate records one connector that answered the search fan-out
// with a reachable registry. Keyed by EndpointID for callback correlation;
// immutable after creation except for the late-resolved AssetID.
type RegistryCandidate struct {
	EndpointID       string `json:"endpointId"`
	BPN              string `json:"bpn"`
	RegistryEndpoint string `json:"registryEndpoint"`
	AssetID          string `json:"assetId,omitempty"`
}

// SearchRecord is the fan-out manifest: the original search request plus the
// registry candidates discovered for it.
type SearchRecord struct {
	AssetID    string                       `json:"assetId"`
	IDType     string                       `json:"idType"`
	Candidates map[string]RegistryCandidate `json:"candidates"`
}

// Candidate looks up a registry candidate by endpoint id.
func (r SearchRecord) Candidate(endpointID string) (RegistryCandidate, bool) {
	c, ok := r.Candidates[endpointID]
	return c, ok
}

// Process is the unit of work tracking one end-to-end passport retrieval.
type Process struct {
	ID               string             `json:"id"`
	History          []StatusTransition `json:"history"`
	Search           *SearchRecord      `json:"search,omitempty"`
	ConnectorAddress string             `json:"connectorAddress,omitempty"`
	BPN              string             `json:"bpn,omitempty"`
	DigitalTwin      *aas.DigitalTwin   `json:"digitalTwin,omitempty"`
	PassportPath     string             `json:"passportPath,omitempty"`
}

// CurrentStatus returns the most recent transition, or nil for a process
// that has no history yet.
func (p *Process) CurrentStatus() *StatusTransition {
	if len(p.History) == 0 {
		return nil
	}
	return &p.History[len(p.History)-1]
}

// clone returns a deep copy so store readers never share mutable state with
// concurrent writers.
func (p *Process) clone() *Process {
	cp := *p
	cp.History = append([]StatusTransition(nil), p.History...)
	if p.Search != nil {
		search := *p.Search
		search.Candidates = make(map[string]RegistryCandidate, len(p.Search.Candidates))
		for k, v := range p.Search.Candidates {
			search.Candidates[k] = v
		}
		cp.Search = &search
	}
	if p.DigitalTwin != nil {
		twin := *p.DigitalTwin
		twin.Submodels = append([]aas.SubModel(nil), p.DigitalTwin.Submodels...)
		cp.DigitalTwin = &twin
	}
	return &cp
}
