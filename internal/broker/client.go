package broker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chenyuetian/galyleo/internal/errdefs"
)

// Client talks to the reverse-proxy management service.
type Client struct {
	endpoints Endpoints
	http      *http.Client
	log       *slog.Logger
}

// New creates a client for the management host of the given proxy
// domain.
func New(proxyDomain string, log *slog.Logger) *Client {
	return NewWithEndpoints(NewEndpoints(proxyDomain), log)
}

// NewWithEndpoints creates a client against explicit endpoints, for
// tests.
func NewWithEndpoints(eps Endpoints, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		endpoints: eps,
		http:      &http.Client{Timeout: 30 * time.Second},
		log:       log,
	}
}

// Endpoints returns the endpoint set this client uses, so the script
// generator can embed the equivalent HTTP calls into batch scripts.
func (c *Client) Endpoints() Endpoints { return c.endpoints }

// Acquire requests a fresh token from the broker.
//
// The reply is structured text, not JSON: the token is the
// second-to-last whitespace-delimited field of the body and the status
// code the last. Both extraction rules are a fixed interoperability
// contract with the deployed broker and must not be "improved".
func (c *Client) Acquire(ctx context.Context) (*Token, error) {
	endpoint := c.endpoints.AcquireURL()
	c.log.Debug("acquiring reverse proxy token", "endpoint", endpoint)

	body, httpStatus, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, errdefs.BrokerUnreachable(endpoint, err)
	}
	if httpStatus != http.StatusOK {
		return nil, errdefs.BrokerRejected(endpoint, httpStatus)
	}

	value, replyStatus, err := parseAcquireReply(body)
	if err != nil {
		return nil, errdefs.BrokerRejected(endpoint, 0).WithCause(err).
			WithContext("body", strings.TrimSpace(body))
	}
	if replyStatus != http.StatusOK {
		return nil, errdefs.BrokerRejected(endpoint, replyStatus)
	}

	c.log.Debug("token acquired")
	return &Token{Value: value, state: StateAcquired}, nil
}

// Link associates a job id with an acquired token. Callers treat a
// failure here as a warning: the job is already real and charging, so
// only the user-facing token-to-job mapping is degraded.
func (c *Client) Link(ctx context.Context, tok *Token, jobID string) error {
	if tok.state != StateAcquired {
		return fmt.Errorf("cannot link token in state %s", tok.state)
	}

	endpoint := c.endpoints.LinkURL(tok.Value, jobID)
	body, httpStatus, err := c.get(ctx, endpoint)
	if err != nil {
		return errdefs.BrokerUnreachable(endpoint, err)
	}
	if httpStatus != http.StatusOK {
		return errdefs.BrokerRejected(endpoint, httpStatus).
			WithContext("body", strings.TrimSpace(body))
	}

	tok.state = StateLinked
	c.log.Debug("token linked", "jobid", jobID)
	return nil
}

// Destroy revokes a token. Destroying an already-destroyed token is not
// an error from the caller's perspective; the broker answer is only
// logged.
func (c *Client) Destroy(ctx context.Context, tok *Token) error {
	if tok.state == StateDestroyed {
		return nil
	}

	endpoint := c.endpoints.DestroyURL(tok.Value)
	body, httpStatus, err := c.get(ctx, endpoint)
	if err != nil {
		return errdefs.BrokerUnreachable(endpoint, err)
	}
	if httpStatus != http.StatusOK {
		return errdefs.BrokerRejected(endpoint, httpStatus).
			WithContext("body", strings.TrimSpace(body))
	}

	tok.state = StateDestroyed
	c.log.Debug("token destroyed")
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, err
	}

	return string(body), resp.StatusCode, nil
}

// parseAcquireReply extracts (token, status) from the broker's
// positional text reply.
func parseAcquireReply(body string) (string, int, error) {
	fields := strings.Fields(body)
	if len(fields) < 2 {
		return "", 0, fmt.Errorf("malformed broker reply: %q", strings.TrimSpace(body))
	}

	token := fields[len(fields)-2]
	status, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return "", 0, fmt.Errorf("malformed broker status field %q", fields[len(fields)-1])
	}

	return token, status, nil
}
