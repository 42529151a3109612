package discovery

import (
	"net/url"
	"strings"

	dErrors "twinpass/pkg/domain-errors"
)

// NormalizeConnectorAddress brings a connector address extracted from a DTR
// entry into canonical form: https scheme when none is declared, no trailing
// slash, and a validated host.
func NormalizeConnectorAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", dErrors.New(dErrors.CodeNotFound, "the connector address is empty")
	}
	if !strings.Contains(address, "://") {
		address = "https://" + address
	}
	u, err := url.Parse(address)
	if err != nil || u.Host == "" {
		return "", dErrors.New(dErrors.CodeNotFound, "the connector address could not be parsed")
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String(), nil
}
