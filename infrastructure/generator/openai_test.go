package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeywords(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{
			name:     "plain array",
			content:  `["flood", "heat wave", "drought"]`,
			expected: []string{"flood", "heat wave", "drought"},
		},
		{
			name:     "code fenced",
			content:  "```json\n[\"flood\", \"drought\"]\n```",
			expected: []string{"flood", "drought"},
		},
		{
			name:     "reasoning tags stripped",
			content:  "<think>The user wants keywords.</think>[\"flood\"]",
			expected: []string{"flood"},
		},
		{
			name:     "object array",
			content:  `[{"keyword": "flood"}, {"keyword": "drought"}]`,
			expected: []string{"flood", "drought"},
		},
		{
			name:     "surrounding prose",
			content:  "Here are the keywords:\n[\"flood\", \"drought\"]\nHope this helps!",
			expected: []string{"flood", "drought"},
		},
		{
			name:     "line fallback",
			content:  "- flood\n- heat wave\n- drought",
			expected: []string{"flood", "heat wave", "drought"},
		},
		{
			name:     "normalized and deduplicated",
			content:  `["Flood", "flood", "Heat_Wave"]`,
			expected: []string{"flood", "heat wave"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseKeywords(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseKeywords_Empty(t *testing.T) {
	_, err := parseKeywords("   ")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = parseKeywords(`[]`)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerateKeywords(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel = req["model"].(string)

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{
					"role":    "assistant",
					"content": `["flood", "drought"]`,
				}},
			},
		}))
	}))
	defer server.Close()

	g := NewOpenAIGenerator(Config{
		BaseURL: server.URL + "/v1",
		Model:   "llama3.2",
	})

	keywords, err := g.GenerateKeywords(context.Background(), "climate", "en", 10)
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", gotModel)
	assert.Equal(t, []string{"flood", "drought"}, keywords)
}

func TestGenerateKeywords_RetriesServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": `["flood"]`}},
			},
		}))
	}))
	defer server.Close()

	g := NewOpenAIGenerator(Config{
		BaseURL:      server.URL + "/v1",
		Model:        "llama3.2",
		MaxRetries:   2,
		InitialDelay: 10 * time.Millisecond,
	})

	keywords, err := g.GenerateKeywords(context.Background(), "climate", "en", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"flood"}, keywords)
	assert.Equal(t, 2, calls)
}
