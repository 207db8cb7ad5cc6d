package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/walletlink-go/internal/core/domain"
	"github.com/yndnr/walletlink-go/internal/infra/buildinfo"
	"github.com/yndnr/walletlink-go/internal/infra/tlsroots"
	"github.com/yndnr/walletlink-go/internal/telemetry/logger"
)

// Endpoint paths.
const (
	PathChallenge = "/auth/challenge"
	PathLogin     = "/auth/login"
	PathLogout    = "/auth/logout"
)

// DefaultTimeout bounds a single backend request.
const DefaultTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	URL     string          `koanf:"url"`
	Timeout time.Duration   `koanf:"timeout"`
	TLS     tlsroots.Config `koanf:"tls"`
}

// TokenSource returns the bearer token to attach, or "" when the session
// is not authenticated.
type TokenSource func() string

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTLSConfig sets the TLS settings of the default transport.
func WithTLSConfig(tlsCfg *tls.Config) Option {
	return func(c *Client) {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = tlsCfg
		c.http.Transport = t
	}
}

// WithTokenSource sets the bearer token source.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// OnUnauthorized registers a hook called when a bearer-authenticated
// request is answered with 401.
func OnUnauthorized(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// OnAuthorized registers a hook called when a bearer-authenticated request
// succeeds.
func OnAuthorized(fn func()) Option {
	return func(c *Client) { c.onAuthorized = fn }
}

// Client talks to the backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  logger.Logger

	onUnauthorized func(ctx context.Context)
	onAuthorized   func()
}

// NewClient creates a client for cfg.URL. A URL without a scheme is
// treated as http.
func NewClient(cfg Config, opts ...Option) *Client {
	baseURL := strings.TrimRight(cfg.URL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.OrDefault(c.logger).With("component", "backend")
	return c
}

// BaseURL returns the base URL of the client.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type challengeRequest struct {
	WalletAddress string `json:"wallet_address"`
}

type challengeResponse struct {
	Challenge string `json:"challenge"`
}

type loginRequest struct {
	WalletAddress string `json:"wallet_address"`
	Signature     string `json:"signature"`
}

// LoginResult is the decoded login response.
type LoginResult struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// Challenge requests a nonce for address to sign.
func (c *Client) Challenge(ctx context.Context, address string) (string, error) {
	var out challengeResponse
	if err := c.send(ctx, http.MethodPost, PathChallenge, challengeRequest{WalletAddress: address}, &out, false); err != nil {
		return "", err
	}
	if out.Challenge == "" {
		return "", domain.ErrBackend.WithDetails("challenge response missing challenge")
	}
	return out.Challenge, nil
}

// Login redeems a signed challenge for a bearer token.
func (c *Client) Login(ctx context.Context, address, signature string) (LoginResult, error) {
	var out LoginResult
	req := loginRequest{WalletAddress: address, Signature: signature}
	if err := c.send(ctx, http.MethodPost, PathLogin, req, &out, false); err != nil {
		return LoginResult{}, err
	}
	if out.Token == "" {
		return LoginResult{}, domain.ErrBackend.WithDetails("login response missing token")
	}
	return out, nil
}

// Logout ends the backend session. The session hooks are not consulted.
func (c *Client) Logout(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, PathLogout, nil, nil, false)
}

// Do performs an arbitrary JSON request with the bearer token attached
// when available. out may be nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	return c.send(ctx, method, path, body, out, true)
}

func (c *Client) send(ctx context.Context, method, path string, body, out any, hooks bool) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return domain.ErrInvalidArgument.WithDetails("marshal body").WithCause(err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return domain.ErrInvalidArgument.WithDetails("create request").WithCause(err)
	}

	requestID := ulid.Make().String()
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	bearer := c.token()
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	log := logger.L(logger.WithRequestID(ctx, requestID))
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.Debug("backend request failed", "method", method, "path", path, "error", err)
		return domain.ErrBackend.WithDetails(fmt.Sprintf("%s %s", method, path)).WithCause(err)
	}
	log.Debug("backend request", "method", method, "path", path,
		"status", resp.StatusCode, "elapsed", time.Since(start))

	err = ParseResponse(resp, out)
	if !hooks || bearer == "" {
		return err
	}
	switch {
	case err == nil:
		if c.onAuthorized != nil {
			c.onAuthorized()
		}
	case IsUnauthorized(err):
		if c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
	}
	return err
}

func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens()
}

// StatusError is a non-2xx backend response.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("status %d: [%s] %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized
}

// ParseResponse decodes a JSON response body into target and closes the
// body. An empty body leaves target untouched. Responses with status >= 400
// become ErrBackend wrapping a StatusError parsed from the {code, message}
// error shape.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		se := &StatusError{StatusCode: resp.StatusCode}
		var errResp struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			se.Code, se.Message = errResp.Code, errResp.Message
		}
		return domain.ErrBackend.WithDetails(se.Error()).WithCause(se)
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil && !errors.Is(err, io.EOF) {
			return domain.ErrBackend.WithDetails("parse response").WithCause(err)
		}
	}
	return nil
}
