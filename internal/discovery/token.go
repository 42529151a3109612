package discovery

import "context"

// TokenProvider supplies the technical-user bearer token attached to every
// outbound discovery call. Token acquisition itself (IdP round trips,
// refresh) lives outside this service.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticTokenProvider serves a fixed token, e.g. one injected through the
// environment or a sidecar.
type StaticTokenProvider string

func (t StaticTokenProvider) AccessToken(context.Context) (string, error) {
	return string(t), nil
}
