// Package edr models the Endpoint Data Reference delivered by the data-plane
// in asynchronous callbacks, and its acceptance rules.
package edr

import (
	"github.com/golang-jwt/jwt/v5"

	dErrors "twinpass/pkg/domain-errors"
)

// offerClaim is the token claim carrying the contract offer id when the
// callback body omits an explicit offerId.
const offerClaim = "cid"

// DataPlaneEndpoint is the short-lived authorized pointer to one transfer.
// It is never persisted beyond the fields needed to re-derive the registry
// query and the final fetch.
type DataPlaneEndpoint struct {
	ID         string            `json:"id"`
	Endpoint   string            `json:"endpoint"`
	AuthCode   string            `json:"authCode"`
	AuthKey    string            `json:"authKey,omitempty"`
	OfferID    string            `json:"offerId,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Validate applies the callback acceptance rules: the endpoint address and
// authorization code must be non-empty, and an offer must be identifiable
// either explicitly or through the auth-code token. Every violation is a
// bad-request error; validation never mutates state.
func (e DataPlaneEndpoint) Validate() error {
	if e.Endpoint == "" {
		return dErrors.New(dErrors.CodeBadRequest, "the data plane endpoint address is empty")
	}
	if e.AuthCode == "" {
		return dErrors.New(dErrors.CodeBadRequest, "the authorization code is empty")
	}
	if e.OfferID != "" {
		return nil
	}
	cid, err := TokenClaim(e.AuthCode, offerClaim)
	if err != nil {
		return err
	}
	if cid == "" {
		return dErrors.New(dErrors.CodeBadRequest, "the offer id is empty")
	}
	return nil
}

// TokenClaim decodes token without signature verification and returns the
// named claim as a string. It fails closed: a missing claim, a non-string
// claim, or an undecodable token all yield a bad-request error. Signature
// verification belongs to the data plane that minted the token; this service
// only needs the claim to correlate the offer.
func TokenClaim(token, name string) (string, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBadRequest, "the authorization code is not a decodable token")
	}
	value, ok := claims[name]
	if !ok {
		return "", dErrors.New(dErrors.CodeBadRequest, "the token claim ["+name+"] is absent")
	}
	s, ok := value.(string)
	if !ok {
		return "", dErrors.New(dErrors.CodeBadRequest, "the token claim ["+name+"] is not a string")
	}
	return s, nil
}
