// Package admin implements the Admin Control Endpoint (ACE): a small
// remote surface bound into the name service under a per-server name,
// whose only operation that touches the lifecycle engine is AdminStop
// (spec.md §4.2).
package admin

import (
	"os"
	"strings"

	"github.com/cqcsystem/cqcsrv/lifecycle"
)

// hostnameToken is the template placeholder substituted with the local
// canonical hostname when an endpoint is registered.
const hostnameToken = "%(h)"

// Endpoint is the ACE's registered identity: a binding path (possibly
// templated), a description, and up to four opaque extras (spec.md §3.5).
type Endpoint struct {
	BindingPath string
	Description string
	Extras      [4]string
}

// ResolveBinding substitutes hostnameToken in info.BindingPath with the
// local canonical hostname, returning the fully resolved Endpoint.
func ResolveBinding(info lifecycle.AdminInfo) (Endpoint, error) {
	host, err := os.Hostname()
	if err != nil {
		return Endpoint{}, err
	}
	return Endpoint{
		BindingPath: strings.ReplaceAll(info.BindingPath, hostnameToken, host),
		Description: info.Description,
		Extras:      info.Extras,
	}, nil
}
