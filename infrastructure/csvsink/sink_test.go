package csvsink

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivewatch/hivewatch/domain/collection"
	"github.com/hivewatch/hivewatch/domain/keyword"
	"github.com/hivewatch/hivewatch/domain/post"
	"github.com/hivewatch/hivewatch/internal/config"
	"github.com/hivewatch/hivewatch/internal/log"
)

func testLogger() *log.Logger {
	return log.NewLoggerWithWriter(io.Discard, config.LogFormatJSON, "error")
}

func record(externalID, kw string) post.CollectedPost {
	return post.CollectedPost{
		Post: post.ReconstructPost(0, externalID, "alice.example.com", "the flood is here", "en",
			time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), time.Now().UTC(), post.Engagement{Likes: 2}),
		Keyword: keyword.NewKeyword(1, kw, "en"),
	}
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestSink_WritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.csv")
	sink, err := Open(path, testLogger())
	require.NoError(t, err)

	result, err := sink.Persist(context.Background(), []post.CollectedPost{
		record("at://1", "flood"),
		record("at://2", "flood"),
	})
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	assert.Equal(t, collection.SinkResult{Written: 2}, result)

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, "external_id", rows[0][0])
	assert.Equal(t, "at://1", rows[1][0])
	assert.Equal(t, "flood", rows[1][1])
	assert.Equal(t, "2", rows[1][7], "likes column")
}

func TestSink_DeduplicatesAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.csv")

	sink, err := Open(path, testLogger())
	require.NoError(t, err)
	_, err = sink.Persist(context.Background(), []post.CollectedPost{record("at://1", "flood")})
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	sink, err = Open(path, testLogger())
	require.NoError(t, err)
	result, err := sink.Persist(context.Background(), []post.CollectedPost{
		record("at://1", "flood"),
		record("at://1", "storm"),
	})
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.Equal(t, collection.SinkResult{Written: 1, Duplicates: 1}, result,
		"same pair skipped, same post under a new keyword written")

	rows := readRows(t, path)
	assert.Len(t, rows, 3, "header plus two data rows, no repeated header")
}

func TestSink_Scanned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.csv")

	sink, err := Open(path, testLogger())
	require.NoError(t, err)
	_, err = sink.Persist(context.Background(), []post.CollectedPost{record("at://1", "flood")})
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	sink, err = Open(path, testLogger())
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	scanned, err := sink.Scanned(context.Background())
	require.NoError(t, err)
	assert.Contains(t, scanned, "at://1")
}

func TestSink_MarkScannedSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.csv")

	sink, err := Open(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, sink.MarkScanned(context.Background(), []string{"at://1", "at://2"}))
	require.NoError(t, sink.MarkScanned(context.Background(), []string{"at://1"}), "remarking is a no-op")
	require.NoError(t, sink.Close())

	sink, err = Open(path, testLogger())
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	scanned, err := sink.Scanned(context.Background())
	require.NoError(t, err)
	assert.Len(t, scanned, 2)
	assert.Contains(t, scanned, "at://1")
	assert.Contains(t, scanned, "at://2")

	rows := readRows(t, path)
	assert.Len(t, rows, 1, "scan log rows do not go into the CSV")
}
