package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hivewatch/hivewatch/domain/collection"
	"github.com/hivewatch/hivewatch/domain/post"
	"github.com/hivewatch/hivewatch/internal/config"
	"github.com/hivewatch/hivewatch/internal/log"
)

const writeBatchSize = 50

// Collector runs collection tasks across a bounded worker pool. Each worker
// authenticates its own session, pulls tasks from a shared queue and streams
// accepted posts to a single writer goroutine that owns the sink.
type Collector struct {
	client          collection.SearchClient
	sink            collection.Sink
	creds           collection.Credentials
	logger          *log.Logger
	workers         int
	pageSize        int
	maxPages        int
	defaultMaxPosts int
	retry           config.RetryConfig
}

// CollectorOption is a functional option for Collector.
type CollectorOption func(*Collector)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) CollectorOption {
	return func(c *Collector) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithPageSize sets the number of hits requested per search page.
func WithPageSize(n int) CollectorOption {
	return func(c *Collector) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithMaxPages sets the pagination ceiling per keyword.
func WithMaxPages(n int) CollectorOption {
	return func(c *Collector) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithMaxPostsPerCategory sets the default accepted-post cap for categories
// without their own cap.
func WithMaxPostsPerCategory(n int) CollectorOption {
	return func(c *Collector) {
		if n > 0 {
			c.defaultMaxPosts = n
		}
	}
}

// WithRetryConfig sets the retry policy for recoverable search failures.
func WithRetryConfig(r config.RetryConfig) CollectorOption {
	return func(c *Collector) { c.retry = r }
}

// NewCollector creates a collector.
func NewCollector(
	client collection.SearchClient,
	sink collection.Sink,
	creds collection.Credentials,
	logger *log.Logger,
	opts ...CollectorOption,
) *Collector {
	c := &Collector{
		client:          client,
		sink:            sink,
		creds:           creds,
		logger:          logger,
		workers:         config.DefaultWorkerCount,
		pageSize:        config.DefaultPageSize,
		maxPages:        config.DefaultMaxPagesPerKeyword,
		defaultMaxPosts: config.DefaultMaxPostsPerCategory,
		retry:           config.NewRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// budget is an accepted-post cap shared by every task of a category.
type budget struct {
	limit int64
	n     int64
	mu    sync.Mutex
}

func newBudget(limit int) *budget {
	return &budget{limit: int64(limit)}
}

// tryAcquire claims one slot. Returns false once the cap is reached.
func (b *budget) tryAcquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.n >= b.limit {
		return false
	}
	b.n++
	return true
}

func (b *budget) exhausted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n >= b.limit
}

// writeItem carries either an accepted post or a rejected post's ID to the
// writer. Rejected IDs are marked scanned so later runs do not refetch and
// refilter the same posts.
type writeItem struct {
	record    post.CollectedPost
	category  string
	scannedID string
}

// reporter accumulates per-category counters from workers and the writer.
type reporter struct {
	mu         sync.Mutex
	categories map[string]*collection.CategoryReport
}

func newReporter() *reporter {
	return &reporter{categories: make(map[string]*collection.CategoryReport)}
}

func (r *reporter) update(category string, fn func(*collection.CategoryReport)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cr, ok := r.categories[category]
	if !ok {
		cr = &collection.CategoryReport{Category: category}
		r.categories[category] = cr
	}
	fn(cr)
}

func (r *reporter) report(startedAt time.Time) collection.RunReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.categories))
	for name := range r.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	categories := make([]collection.CategoryReport, len(names))
	for i, name := range names {
		categories[i] = *r.categories[name]
	}
	return collection.RunReport{
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
		Categories: categories,
	}
}

// Run executes the tasks and returns a report of what happened. The
// returned error is fatal only: rejected credentials or a cancelled
// context. Everything else is recorded per task in the report.
func (c *Collector) Run(ctx context.Context, tasks []*collection.Task) (collection.RunReport, error) {
	startedAt := time.Now().UTC()
	rep := newReporter()

	budgets := make(map[string]*budget)
	for _, task := range tasks {
		name := task.Category().Name()
		if _, ok := budgets[name]; !ok {
			limit := task.Category().MaxPosts()
			if limit <= 0 {
				limit = c.defaultMaxPosts
			}
			budgets[name] = newBudget(limit)
		}
		rep.update(name, func(cr *collection.CategoryReport) { cr.Keywords++ })
	}

	scanned, err := c.sink.Scanned(ctx)
	if err != nil {
		return rep.report(startedAt), fmt.Errorf("load scanned posts: %w", err)
	}
	c.logger.InfoContext(ctx, "starting collection",
		"tasks", len(tasks),
		"workers", c.workers,
		"previously_scanned", len(scanned))

	queue := make(chan *collection.Task, len(tasks))
	for _, task := range tasks {
		queue <- task
	}
	close(queue)

	// The writer outlives context cancellation so posts accepted before an
	// abort still reach the sink.
	items := make(chan writeItem, 4*writeBatchSize)
	writerDone := make(chan struct{})
	go c.writeLoop(context.WithoutCancel(ctx), items, rep, writerDone)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.workers; i++ {
		worker := i
		g.Go(func() error {
			return c.runWorker(gctx, worker, queue, budgets, scanned, items, rep)
		})
	}
	runErr := g.Wait()

	// Tasks never picked up after an early shutdown.
	for task := range queue {
		task.Abort(runErr)
		rep.update(task.Category().Name(), func(cr *collection.CategoryReport) { cr.Aborted++ })
	}

	close(items)
	<-writerDone

	report := rep.report(startedAt)
	c.logger.InfoContext(ctx, "collection finished",
		"duration", report.Duration().Round(time.Millisecond).String(),
		"accepted", report.TotalAccepted(),
		"written", report.TotalWritten())
	return report, runErr
}

// runWorker authenticates one session and processes tasks until the queue
// drains or the run is cancelled. Only fatal errors are returned; they tear
// down the whole group.
func (c *Collector) runWorker(
	ctx context.Context,
	id int,
	queue <-chan *collection.Task,
	budgets map[string]*budget,
	scanned map[string]struct{},
	items chan<- writeItem,
	rep *reporter,
) error {
	logger := c.logger.With("worker", id)

	var session *collection.Session
	err := c.withRetry(ctx, logger, "authenticate", func() error {
		var err error
		session, err = c.client.Authenticate(ctx, c.creds)
		return err
	})
	if err != nil {
		return fmt.Errorf("worker %d: %w", id, err)
	}

	for task := range queue {
		if ctx.Err() != nil {
			task.Abort(context.Cause(ctx))
			rep.update(task.Category().Name(), func(cr *collection.CategoryReport) { cr.Aborted++ })
			continue
		}
		if err := c.runTask(ctx, logger, session, task, budgets[task.Category().Name()], scanned, items, rep); err != nil {
			return fmt.Errorf("worker %d: %w", id, err)
		}
	}
	return nil
}

func (c *Collector) runTask(
	ctx context.Context,
	logger *log.Logger,
	session *collection.Session,
	task *collection.Task,
	bud *budget,
	scanned map[string]struct{},
	items chan<- writeItem,
	rep *reporter,
) error {
	name := task.Category().Name()
	kw := task.Keyword()
	logger = logger.With("category", name, "keyword", kw.Text())

	task.Start()

	if bud.exhausted() {
		logger.DebugContext(ctx, "category cap already reached, skipping")
		task.Complete()
		rep.update(name, func(cr *collection.CategoryReport) { cr.Completed++ })
		return nil
	}

	filter, err := post.NewKeywordFilter(kw)
	if err != nil {
		task.Fail(err)
		rep.update(name, func(cr *collection.CategoryReport) { cr.PartiallyFailed++ })
		return nil
	}

	cursor := ""
	capped := false
	for page := 0; page < c.maxPages && !capped; page++ {
		var sp collection.SearchPage
		err := c.withRetry(ctx, logger, "search", func() error {
			var err error
			sp, err = c.client.Search(ctx, session, kw.Text(), c.pageSize, cursor)
			return err
		})
		if err != nil {
			if errors.Is(err, collection.ErrAuth) {
				task.Abort(err)
				rep.update(name, func(cr *collection.CategoryReport) { cr.Aborted++ })
				return err
			}
			if ctx.Err() != nil {
				task.Abort(context.Cause(ctx))
				rep.update(name, func(cr *collection.CategoryReport) { cr.Aborted++ })
				return nil
			}
			logger.WarnContext(ctx, "keyword search ended early", "page", page, "error", err)
			task.Fail(err)
			rep.update(name, func(cr *collection.CategoryReport) { cr.PartiallyFailed++ })
			return nil
		}

		for _, hit := range sp.Hits {
			rep.update(name, func(cr *collection.CategoryReport) { cr.Searched++ })
			if _, ok := scanned[hit.ExternalID]; ok {
				rep.update(name, func(cr *collection.CategoryReport) { cr.SkippedScanned++ })
				continue
			}
			p, ok := filter.Normalize(hit)
			if !ok {
				rep.update(name, func(cr *collection.CategoryReport) { cr.Rejected++ })
				items <- writeItem{scannedID: hit.ExternalID, category: name}
				continue
			}
			if !bud.tryAcquire() {
				capped = true
				break
			}
			rep.update(name, func(cr *collection.CategoryReport) { cr.Accepted++ })
			items <- writeItem{record: post.CollectedPost{Post: p, Keyword: kw}, category: name}
		}

		if sp.Cursor == "" || len(sp.Hits) == 0 {
			break
		}
		cursor = sp.Cursor
	}

	task.Complete()
	rep.update(name, func(cr *collection.CategoryReport) { cr.Completed++ })
	return nil
}

// writeLoop is the single goroutine that talks to the sink. Batching keeps
// sink round-trips off the worker hot path; each flush persists one category
// at a time so the per-category report counters stay exact.
func (c *Collector) writeLoop(ctx context.Context, items <-chan writeItem, rep *reporter, done chan<- struct{}) {
	defer close(done)

	batch := make([]writeItem, 0, writeBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		var inspected []string
		records := make(map[string][]post.CollectedPost)
		order := make([]string, 0, 1)
		for _, item := range batch {
			if item.scannedID != "" {
				inspected = append(inspected, item.scannedID)
				continue
			}
			if _, ok := records[item.category]; !ok {
				order = append(order, item.category)
			}
			records[item.category] = append(records[item.category], item.record)
		}
		for _, name := range order {
			c.persistCategory(ctx, name, records[name], rep)
		}
		if len(inspected) > 0 {
			if err := c.sink.MarkScanned(ctx, inspected); err != nil {
				c.logger.ErrorContext(ctx, "marking scanned posts failed",
					"posts", len(inspected), "error", err)
			}
		}
		batch = batch[:0]
	}

	for item := range items {
		batch = append(batch, item)
		if len(batch) == writeBatchSize {
			flush()
		}
	}
	flush()
}

func (c *Collector) persistCategory(ctx context.Context, name string, records []post.CollectedPost, rep *reporter) {
	result, err := c.sink.Persist(ctx, records)
	if err != nil {
		c.logger.ErrorContext(ctx, "sink batch failed",
			"category", name, "records", len(records), "error", err)
		missing := len(records) - result.Written - result.Duplicates - result.Failed
		result.Failed += missing
	}
	rep.update(name, func(cr *collection.CategoryReport) {
		cr.Written += result.Written
		cr.Duplicates += result.Duplicates
		cr.PersistFailures += result.Failed
	})
}

// withRetry runs fn, retrying for rate limits and transient failures per
// the retry policy. Auth failures and context cancellation return
// immediately.
func (c *Collector) withRetry(ctx context.Context, logger *log.Logger, op string, fn func() error) error {
	delay := c.retry.InitialDelay()
	var lastErr error

	for attempt := 0; attempt <= c.retry.MaxRetries(); attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, collection.ErrAuth) || ctx.Err() != nil {
			return lastErr
		}

		var wait time.Duration
		switch {
		case isRateLimit(lastErr):
			rle, _ := collection.AsRateLimit(lastErr)
			wait = rle.RetryAfter()
			if wait <= 0 {
				wait = delay
			}
		case collection.IsTransient(lastErr):
			wait = delay + jitter(delay)
			delay = time.Duration(float64(delay) * c.retry.BackoffFactor())
			if delay > c.retry.MaxDelay() {
				delay = c.retry.MaxDelay()
			}
		default:
			return lastErr
		}

		if attempt == c.retry.MaxRetries() {
			break
		}

		logger.WarnContext(ctx, op+" failed, retrying",
			"attempt", attempt+1,
			"wait", wait.Round(time.Millisecond).String(),
			"error", lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func isRateLimit(err error) bool {
	_, ok := collection.AsRateLimit(err)
	return ok
}

// jitter returns a random fraction of the delay, up to a quarter, so
// workers backing off together do not retry together.
func jitter(delay time.Duration) time.Duration {
	quarter := int64(delay / 4)
	if quarter <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(quarter))
}
