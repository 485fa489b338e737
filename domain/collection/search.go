package collection

import (
	"context"

	"github.com/hivewatch/hivewatch/domain/post"
)

// Credentials identify an account on the search backend.
type Credentials struct {
	identifier string
	password   string
}

// NewCredentials creates backend credentials.
func NewCredentials(identifier, password string) Credentials {
	return Credentials{identifier: identifier, password: password}
}

// Identifier returns the account identifier (handle or email).
func (c Credentials) Identifier() string { return c.identifier }

// Password returns the account password.
func (c Credentials) Password() string { return c.password }

// Session is an authenticated session with the search backend. Tokens are
// mutable because the client refreshes them in place on expiry; a session
// must not be shared between workers.
type Session struct {
	accessToken  string
	refreshToken string
	handle       string
	did          string
}

// NewSession creates a session from backend-issued tokens.
func NewSession(accessToken, refreshToken, handle, did string) *Session {
	return &Session{
		accessToken:  accessToken,
		refreshToken: refreshToken,
		handle:       handle,
		did:          did,
	}
}

// AccessToken returns the current access token.
func (s *Session) AccessToken() string { return s.accessToken }

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string { return s.refreshToken }

// Handle returns the authenticated account handle.
func (s *Session) Handle() string { return s.handle }

// DID returns the authenticated account DID.
func (s *Session) DID() string { return s.did }

// Rotate replaces the session tokens after a refresh.
func (s *Session) Rotate(accessToken, refreshToken string) {
	s.accessToken = accessToken
	s.refreshToken = refreshToken
}

// SearchPage is one page of search results. An empty Cursor means the
// backend has no further pages.
type SearchPage struct {
	Hits   []post.SearchHit
	Cursor string
}

// SearchClient talks to the search backend. Implementations classify
// failures: ErrAuth for rejected credentials or unrecoverable sessions,
// *RateLimitError for throttling, *TransientError for retryable faults.
type SearchClient interface {
	// Authenticate opens a new session for the credentials.
	Authenticate(ctx context.Context, creds Credentials) (*Session, error)

	// Search returns one page of posts matching the query. The session's
	// tokens may be rotated in place if the backend required a refresh.
	Search(ctx context.Context, session *Session, query string, limit int, cursor string) (SearchPage, error)
}
