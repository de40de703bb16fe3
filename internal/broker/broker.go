// Package broker manages reverse-proxy access tokens against the
// proxy's management service. The launcher acquires, links and destroys
// tokens over HTTP; redemption and the final destruction happen inside
// the generated batch script on the compute node, using the same
// endpoint URLs this package mints.
package broker

import (
	"fmt"
	"net/url"
)

// State tracks where a token is in its lifecycle.
type State string

const (
	// StateRequested: acquisition in flight, token not yet issued.
	StateRequested State = "REQUESTED"
	// StateAcquired: issued by the broker, not yet tied to a job.
	StateAcquired State = "ACQUIRED"
	// StateLinked: tied to a scheduler job id.
	StateLinked State = "LINKED"
	// StateRedeemed: the compute-side process announced its port. This
	// transition happens inside the job, outside the launcher's view.
	StateRedeemed State = "REDEEMED"
	// StateDestroyed: revoked. Terminal.
	StateDestroyed State = "DESTROYED"
)

// Token is an opaque bearer credential owned by exactly one session
// for its lifetime.
type Token struct {
	Value string
	state State
}

// State returns the token's current lifecycle state.
func (t *Token) State() State { return t.state }

// Endpoints mints the management URLs for a proxy domain. The path
// shapes are a fixed contract with the deployed broker service.
type Endpoints struct {
	base string
}

// NewEndpoints builds endpoints for the well-known management host
// under the configured reverse-proxy domain.
func NewEndpoints(proxyDomain string) Endpoints {
	return Endpoints{base: "https://manage." + proxyDomain}
}

// NewEndpointsWithBase builds endpoints rooted at an explicit base URL,
// for tests.
func NewEndpointsWithBase(base string) Endpoints {
	return Endpoints{base: base}
}

// AcquireURL returns the token issuance endpoint.
func (e Endpoints) AcquireURL() string {
	return e.base + "/getlink"
}

// LinkURL returns the endpoint associating a token with a job id.
func (e Endpoints) LinkURL(token, jobID string) string {
	return fmt.Sprintf("%s/linktoken?token=%s&jobid=%s",
		e.base, url.QueryEscape(token), url.QueryEscape(jobID))
}

// RedeemURL returns the endpoint announcing the server's port. portExpr
// is embedded verbatim so generated scripts can pass a shell variable
// reference that expands at job runtime.
func (e Endpoints) RedeemURL(token, portExpr string) string {
	return fmt.Sprintf("%s/redeemtoken?token=%s&port=%s",
		e.base, url.QueryEscape(token), portExpr)
}

// DestroyURL returns the token revocation endpoint.
func (e Endpoints) DestroyURL(token string) string {
	return fmt.Sprintf("%s/destroytoken?token=%s", e.base, url.QueryEscape(token))
}
