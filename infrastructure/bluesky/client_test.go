package bluesky_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivewatch/hivewatch/domain/collection"
	"github.com/hivewatch/hivewatch/infrastructure/bluesky"
)

func sessionJSON(access, refresh string) map[string]string {
	return map[string]string{
		"accessJwt":  access,
		"refreshJwt": refresh,
		"handle":     "collector.example.com",
		"did":        "did:plc:abc123",
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestAuthenticate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/xrpc/com.atproto.server.createSession", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "collector.example.com", req["identifier"])
		writeJSON(t, w, http.StatusOK, sessionJSON("access-1", "refresh-1"))
	}))
	defer server.Close()

	client := bluesky.NewClient(bluesky.WithBaseURL(server.URL))
	session, err := client.Authenticate(context.Background(),
		collection.NewCredentials("collector.example.com", "app-password"))
	require.NoError(t, err)
	assert.Equal(t, "access-1", session.AccessToken())
	assert.Equal(t, "refresh-1", session.RefreshToken())
	assert.Equal(t, "did:plc:abc123", session.DID())
}

func TestAuthenticate_BadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{
			"error":   "AuthenticationRequired",
			"message": "Invalid identifier or password",
		})
	}))
	defer server.Close()

	client := bluesky.NewClient(bluesky.WithBaseURL(server.URL))
	_, err := client.Authenticate(context.Background(),
		collection.NewCredentials("collector.example.com", "wrong"))
	assert.ErrorIs(t, err, collection.ErrAuth)
}

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/xrpc/app.bsky.feed.searchPosts", r.URL.Path)
		require.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		require.Equal(t, "flood", r.URL.Query().Get("q"))
		require.Equal(t, "25", r.URL.Query().Get("limit"))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"cursor": "25",
			"posts": []map[string]any{
				{
					"uri":    "at://did:plc:xyz/app.bsky.feed.post/1",
					"author": map[string]string{"handle": "alice.example.com"},
					"record": map[string]any{
						"text":      "The flood is rising",
						"createdAt": "2025-06-01T12:00:00Z",
						"langs":     []string{"en"},
					},
					"likeCount":   4,
					"replyCount":  1,
					"repostCount": 2,
				},
			},
		})
	}))
	defer server.Close()

	client := bluesky.NewClient(bluesky.WithBaseURL(server.URL))
	session := collection.NewSession("access-1", "refresh-1", "collector.example.com", "did:plc:abc123")

	page, err := client.Search(context.Background(), session, "flood", 25, "")
	require.NoError(t, err)
	assert.Equal(t, "25", page.Cursor)
	require.Len(t, page.Hits, 1)
	hit := page.Hits[0]
	assert.Equal(t, "at://did:plc:xyz/app.bsky.feed.post/1", hit.ExternalID)
	assert.Equal(t, "alice.example.com", hit.AuthorHandle)
	assert.Equal(t, "en", hit.Language)
	assert.Equal(t, 4, hit.Engagement.Likes)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), hit.CreatedAt)
}

func TestSearch_RefreshesExpiredSessionOnce(t *testing.T) {
	var searches, refreshes int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/xrpc/app.bsky.feed.searchPosts":
			searches++
			if r.Header.Get("Authorization") != "Bearer access-2" {
				writeJSON(t, w, http.StatusUnauthorized, map[string]string{
					"error": "ExpiredToken", "message": "Token has expired",
				})
				return
			}
			writeJSON(t, w, http.StatusOK, map[string]any{"posts": []any{}})
		case "/xrpc/com.atproto.server.refreshSession":
			refreshes++
			require.Equal(t, "Bearer refresh-1", r.Header.Get("Authorization"))
			writeJSON(t, w, http.StatusOK, sessionJSON("access-2", "refresh-2"))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := bluesky.NewClient(bluesky.WithBaseURL(server.URL))
	session := collection.NewSession("access-1", "refresh-1", "collector.example.com", "did:plc:abc123")

	page, err := client.Search(context.Background(), session, "flood", 25, "")
	require.NoError(t, err)
	assert.Empty(t, page.Hits)
	assert.Equal(t, 2, searches)
	assert.Equal(t, 1, refreshes)
	assert.Equal(t, "access-2", session.AccessToken(), "session tokens rotated in place")
	assert.Equal(t, "refresh-2", session.RefreshToken())
}

func TestSearch_UnrecoverableSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/xrpc/com.atproto.server.refreshSession" {
			writeJSON(t, w, http.StatusUnauthorized, map[string]string{
				"error": "InvalidToken", "message": "Refresh token revoked",
			})
			return
		}
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{
			"error": "ExpiredToken", "message": "Token has expired",
		})
	}))
	defer server.Close()

	client := bluesky.NewClient(bluesky.WithBaseURL(server.URL))
	session := collection.NewSession("access-1", "refresh-1", "collector.example.com", "did:plc:abc123")

	_, err := client.Search(context.Background(), session, "flood", 25, "")
	assert.ErrorIs(t, err, collection.ErrAuth)
}

func TestSearch_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "30")
		writeJSON(t, w, http.StatusTooManyRequests, map[string]string{"error": "RateLimitExceeded"})
	}))
	defer server.Close()

	client := bluesky.NewClient(bluesky.WithBaseURL(server.URL))
	session := collection.NewSession("access-1", "refresh-1", "collector.example.com", "did:plc:abc123")

	_, err := client.Search(context.Background(), session, "flood", 25, "")
	rle, ok := collection.AsRateLimit(err)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, rle.RetryAfter())
}

func TestSearch_RateLimitedWithoutHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusTooManyRequests, map[string]string{"error": "RateLimitExceeded"})
	}))
	defer server.Close()

	client := bluesky.NewClient(bluesky.WithBaseURL(server.URL))
	session := collection.NewSession("access-1", "refresh-1", "collector.example.com", "did:plc:abc123")

	_, err := client.Search(context.Background(), session, "flood", 25, "")
	rle, ok := collection.AsRateLimit(err)
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), rle.RetryAfter())
}

func TestSearch_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusBadGateway, map[string]string{"error": "UpstreamFailure"})
	}))
	defer server.Close()

	client := bluesky.NewClient(bluesky.WithBaseURL(server.URL))
	session := collection.NewSession("access-1", "refresh-1", "collector.example.com", "did:plc:abc123")

	_, err := client.Search(context.Background(), session, "flood", 25, "")
	assert.True(t, collection.IsTransient(err))
}

func TestSearch_ConnectionFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // refuse connections

	client := bluesky.NewClient(bluesky.WithBaseURL(server.URL))
	session := collection.NewSession("access-1", "refresh-1", "collector.example.com", "did:plc:abc123")

	_, err := client.Search(context.Background(), session, "flood", 25, "")
	assert.True(t, collection.IsTransient(err))
}
