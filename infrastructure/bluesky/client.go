// Package bluesky implements the search client against the Bluesky XRPC API.
package bluesky

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hivewatch/hivewatch/domain/collection"
	"github.com/hivewatch/hivewatch/domain/post"
)

const (
	createSessionPath  = "/xrpc/com.atproto.server.createSession"
	refreshSessionPath = "/xrpc/com.atproto.server.refreshSession"
	searchPostsPath    = "/xrpc/app.bsky.feed.searchPosts"
)

// Client talks to a Bluesky PDS over XRPC. It classifies failures into the
// collection error taxonomy so callers can decide how to retry.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option is a functional option for Client.
type Option func(*Client)

// WithBaseURL sets the PDS base URL (for testing or self-hosted servers).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Bluesky client against the public PDS.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: "https://bsky.social",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticate opens a session with the account credentials. Rejected
// credentials return ErrAuth.
func (c *Client) Authenticate(ctx context.Context, creds collection.Credentials) (*collection.Session, error) {
	body := createSessionRequest{
		Identifier: creds.Identifier(),
		Password:   creds.Password(),
	}
	var resp sessionResponse
	if err := c.doRequest(ctx, http.MethodPost, createSessionPath, "", body, &resp); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return collection.NewSession(resp.AccessJwt, resp.RefreshJwt, resp.Handle, resp.DID), nil
}

// Search returns one page of posts matching the query. On an expired access
// token it refreshes the session once and replays the request; a second
// rejection is ErrAuth.
func (c *Client) Search(ctx context.Context, session *collection.Session, query string, limit int, cursor string) (collection.SearchPage, error) {
	page, err := c.searchOnce(ctx, session, query, limit, cursor)
	if err == nil || !isExpiredToken(err) {
		return page, err
	}
	if err := c.refresh(ctx, session); err != nil {
		return collection.SearchPage{}, fmt.Errorf("refresh session: %w", err)
	}
	return c.searchOnce(ctx, session, query, limit, cursor)
}

func (c *Client) searchOnce(ctx context.Context, session *collection.Session, query string, limit int, cursor string) (collection.SearchPage, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var resp searchPostsResponse
	path := searchPostsPath + "?" + params.Encode()
	if err := c.doRequest(ctx, http.MethodGet, path, session.AccessToken(), nil, &resp); err != nil {
		return collection.SearchPage{}, fmt.Errorf("search posts: %w", err)
	}

	hits := make([]post.SearchHit, 0, len(resp.Posts))
	for _, p := range resp.Posts {
		hits = append(hits, p.toHit())
	}
	return collection.SearchPage{Hits: hits, Cursor: resp.Cursor}, nil
}

func (c *Client) refresh(ctx context.Context, session *collection.Session) error {
	var resp sessionResponse
	if err := c.doRequest(ctx, http.MethodPost, refreshSessionPath, session.RefreshToken(), nil, &resp); err != nil {
		return err
	}
	session.Rotate(resp.AccessJwt, resp.RefreshJwt)
	return nil
}

// doRequest performs one XRPC call and maps failures onto the collection
// error taxonomy.
func (c *Client) doRequest(ctx context.Context, method, path, token string, reqBody, out any) error {
	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = strings.NewReader(string(b))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return collection.NewTransientError(method+" "+trimQuery(path), err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return collection.NewTransientError("read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return c.classifyError(resp, respBody, path)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

func (c *Client) classifyError(resp *http.Response, body []byte, path string) error {
	var apiErr xrpcError
	_ = json.Unmarshal(body, &apiErr)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return collection.NewRateLimitError(parseRetryAfter(resp.Header.Get("Retry-After")))
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		if apiErr.isExpiredToken() {
			return &expiredTokenError{detail: apiErr.Message}
		}
		return fmt.Errorf("%w: %s", collection.ErrAuth, apiErr.text(body))
	case resp.StatusCode == http.StatusBadRequest && strings.HasSuffix(path, createSessionPath):
		// Invalid identifier or password comes back as 400.
		return fmt.Errorf("%w: %s", collection.ErrAuth, apiErr.text(body))
	case resp.StatusCode >= http.StatusInternalServerError,
		resp.StatusCode == http.StatusRequestTimeout:
		return collection.NewTransientError(trimQuery(path),
			fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.text(body)))
	}
	return fmt.Errorf("%s: status %d: %s", trimQuery(path), resp.StatusCode, apiErr.text(body))
}

// parseRetryAfter handles both delay-seconds and HTTP-date forms. Returns 0
// when the header is missing or unparseable.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func trimQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}

// expiredTokenError marks an access token rejection that a session refresh
// can recover from. It stays internal to the client: callers only ever see
// ErrAuth once the refresh path is exhausted.
type expiredTokenError struct {
	detail string
}

func (e *expiredTokenError) Error() string {
	return "expired token: " + e.detail
}

func (e *expiredTokenError) Unwrap() error { return collection.ErrAuth }

func isExpiredToken(err error) bool {
	for err != nil {
		if _, ok := err.(*expiredTokenError); ok {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
