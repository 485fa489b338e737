package collection

import (
	"context"

	"github.com/hivewatch/hivewatch/domain/post"
)

// SinkResult summarizes one Persist call. Written + Duplicates + Failed
// equals the number of records submitted.
type SinkResult struct {
	// Written is the number of new (post, keyword) pairs stored.
	Written int
	// Duplicates is the number of pairs the sink had already stored.
	Duplicates int
	// Failed is the number of records the sink could not store.
	Failed int
}

// Add accumulates another result into this one.
func (r *SinkResult) Add(other SinkResult) {
	r.Written += other.Written
	r.Duplicates += other.Duplicates
	r.Failed += other.Failed
}

// Sink stores collected posts. Persisting the same (post, keyword) pair
// twice must leave a single record, so re-running a collection is safe.
type Sink interface {
	// Scanned returns the external IDs of posts stored by previous runs,
	// so the collector can skip them without refetching.
	Scanned(ctx context.Context) (map[string]struct{}, error)

	// Persist stores the records. Per-record failures are counted in the
	// result and logged by the implementation; the error return is for
	// failures of the sink as a whole.
	Persist(ctx context.Context, records []post.CollectedPost) (SinkResult, error)

	// MarkScanned records external IDs that were fetched and inspected but
	// not accepted, so later runs skip them too. Marking the same ID twice
	// is a no-op.
	MarkScanned(ctx context.Context, ids []string) error

	// Close flushes and releases the sink.
	Close() error
}
