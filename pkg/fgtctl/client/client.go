package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const apiPrefix = "/api/v2"

// Client talks to one FortiGate device for the lifetime of one invocation.
// With an API key it sends a bearer token; with username/password it opens
// a session via /logincheck and carries the CSRF cookie.
type Client struct {
	host      string
	username  string
	password  string
	apikey    string
	useSSL    bool
	verifySSL bool
	userAgent string
	http      *http.Client
	log       *zap.Logger

	csrfToken string
	loggedIn  bool
}

type Option func(*Client) error

func New(opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		username:  "admin",
		useSSL:    true,
		userAgent: "fgtctl",
		http: &http.Client{
			Jar:     jar,
			Timeout: 300 * time.Second,
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.host == "" {
		return nil, errors.New("host is required")
	}
	if c.apikey == "" && c.password == "" {
		return nil, errors.New("either an API key or a password is required")
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: !c.verifySSL, //nolint:gosec // self-signed device certs are the norm
		},
	}
	c.http.Transport = transport
	return c, nil
}

func WithHost(host string) Option {
	return func(c *Client) error {
		if host == "" {
			return errors.New("host is required")
		}
		c.host = host
		return nil
	}
}

func WithAPIKey(apikey string) Option {
	return func(c *Client) error {
		c.apikey = apikey
		return nil
	}
}

// WithCredentials sets session-mode credentials. The username is kept even
// in API-key mode because the device attributes log entries to it.
func WithCredentials(username, password string) Option {
	return func(c *Client) error {
		if username != "" {
			c.username = username
		}
		c.password = password
		return nil
	}
}

func WithSSL(useSSL, verifySSL bool) Option {
	return func(c *Client) error {
		c.useSSL = useSSL
		c.verifySSL = verifySSL
		return nil
	}
}

func WithTimeout(seconds int) Option {
	return func(c *Client) error {
		if seconds <= 0 {
			return fmt.Errorf("timeout must be positive, got %d", seconds)
		}
		c.http.Timeout = time.Duration(seconds) * time.Second
		return nil
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) error {
		c.userAgent = userAgent
		return nil
	}
}

// WithLogger enables request tracing, used by --debug.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) error {
		if log != nil {
			c.log = log
		}
		return nil
	}
}

// QueryParam is one key=value pair. Order is preserved on the wire and
// duplicate keys accumulate; the device decides their semantics.
type QueryParam struct {
	Key   string
	Value string
}

// RequestSpec describes the single request an invocation performs.
type RequestSpec struct {
	Method   string
	Endpoint string
	Query    []QueryParam
	Body     any
}

func (c *Client) baseURL() string {
	scheme := "https"
	if !c.useSSL {
		scheme = "http"
	}
	return scheme + "://" + c.host
}

// Do executes the request and returns the decoded response envelope along
// with the HTTP status. Device errors (4xx/5xx) come back as *HTTPError,
// rejected credentials as *AuthError, and network failures as
// *TransportError. No retries.
func (c *Client) Do(ctx context.Context, spec RequestSpec) (any, int, error) {
	method := strings.ToUpper(spec.Method)
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return nil, 0, fmt.Errorf("unsupported HTTP method: %s", spec.Method)
	}

	if c.apikey == "" && !c.loggedIn {
		if err := c.login(ctx); err != nil {
			return nil, 0, err
		}
	}

	endpoint := spec.Endpoint
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	fullURL := c.baseURL() + apiPrefix + endpoint
	if q := encodeQuery(spec.Query); q != "" {
		fullURL += "?" + q
	}

	var payload io.Reader
	if spec.Body != nil {
		body, err := json.Marshal(spec.Body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, payload)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.apikey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apikey)
	} else if c.csrfToken != "" && method != http.MethodGet {
		req.Header.Set("X-CSRFTOKEN", c.csrfToken)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &TransportError{Op: method + " " + fullURL, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.log.Debug("request complete",
		zap.String("method", method),
		zap.String("url", fullURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &TransportError{Op: "read response", Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, resp.StatusCode, &AuthError{Message: errorMessage(resp, body)}
	}
	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, &HTTPError{StatusCode: resp.StatusCode, Message: errorMessage(resp, body)}
	}

	var envelope any
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, resp.StatusCode, fmt.Errorf("response is not valid JSON: %w", err)
		}
	}
	return envelope, resp.StatusCode, nil
}

// encodeQuery builds the raw query by hand because url.Values sorts keys
// and the device may be order-sensitive.
func encodeQuery(params []QueryParam) string {
	if len(params) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(params))
	for _, p := range params {
		pairs = append(pairs, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}
	return strings.Join(pairs, "&")
}

// login opens a session in username/password mode. The device answers the
// form post with a body starting in "1" on success and hands out a CSRF
// token cookie used on mutating requests.
func (c *Client) login(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("secretkey", c.password)
	form.Set("ajax", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+"/logincheck", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: "login", Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "read login response", Err: err}
	}
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(strings.TrimSpace(string(body)), "1") {
		return &AuthError{Message: fmt.Sprintf("login rejected for user %s", c.username)}
	}

	for _, cookie := range resp.Cookies() {
		if strings.HasPrefix(cookie.Name, "ccsrftoken") {
			c.csrfToken = strings.Trim(cookie.Value, `"`)
			break
		}
	}
	c.loggedIn = true
	c.log.Debug("session established", zap.String("user", c.username))
	return nil
}

// Close ends the session in username/password mode. API-key mode has no
// session to tear down.
func (c *Client) Close(ctx context.Context) error {
	if !c.loggedIn {
		return nil
	}
	c.loggedIn = false
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+"/logout", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: "logout", Err: err}
	}
	_ = resp.Body.Close()
	return nil
}

// errorMessage extracts the most useful message from an error response:
// structured FortiGate fields first, then the raw body, then the status
// line.
func errorMessage(resp *http.Response, body []byte) string {
	var fields struct {
		Error    any    `json:"error"`
		Status   any    `json:"status"`
		CLIError string `json:"cli_error"`
	}
	if len(body) > 0 && json.Unmarshal(body, &fields) == nil {
		if fields.CLIError != "" {
			return strings.TrimSpace(fields.CLIError)
		}
		if s, ok := fields.Error.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
		if len(bytes.TrimSpace(body)) > 0 {
			return string(bytes.TrimSpace(body))
		}
	}
	if msg := string(bytes.TrimSpace(body)); msg != "" {
		return msg
	}
	return resp.Status
}
