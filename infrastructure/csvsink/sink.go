// Package csvsink stores collected posts in a CSV file, for runs without a
// database.
package csvsink

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/hivewatch/hivewatch/domain/collection"
	"github.com/hivewatch/hivewatch/domain/post"
	"github.com/hivewatch/hivewatch/internal/log"
)

var header = []string{
	"external_id", "keyword", "author", "text", "language",
	"created_at", "collected_at", "likes", "replies", "reposts", "quotes",
}

// Sink implements collection.Sink on an append-only CSV file. Existing
// rows are indexed on open so re-running a collection never writes the
// same (post, keyword) pair twice. Inspected-but-rejected post IDs live in
// a sidecar scan log next to the CSV, one ID per line, so re-runs skip
// them without refiltering.
type Sink struct {
	file    *os.File
	writer  *csv.Writer
	scanLog *os.File
	seen    map[pairKey]struct{}
	scanned map[string]struct{}
	logger  *log.Logger
}

type pairKey struct {
	externalID string
	keyword    string
}

// Open creates or reopens a CSV sink at the given path.
func Open(path string, logger *log.Logger) (*Sink, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open csv sink: %w", err)
	}

	seen, rows, err := loadExisting(file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("seek csv sink: %w", err)
	}

	scanLog, scanned, err := openScanLog(path + ".scanned")
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	s := &Sink{
		file:    file,
		writer:  csv.NewWriter(file),
		scanLog: scanLog,
		seen:    seen,
		scanned: scanned,
		logger:  logger,
	}
	if rows == 0 {
		if err := s.writer.Write(header); err != nil {
			_ = file.Close()
			_ = scanLog.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		s.writer.Flush()
	}
	return s, nil
}

func loadExisting(file *os.File) (map[pairKey]struct{}, int, error) {
	seen := make(map[pairKey]struct{})
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return seen, rows, nil
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read existing csv rows: %w", err)
		}
		rows++
		if rows == 1 || len(record) < 2 {
			continue // header or malformed row
		}
		seen[pairKey{externalID: record[0], keyword: record[1]}] = struct{}{}
	}
}

func openScanLog(path string) (*os.File, map[string]struct{}, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open scan log: %w", err)
	}
	scanned := make(map[string]struct{})
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if id := scanner.Text(); id != "" {
			scanned[id] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("read scan log: %w", err)
	}
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("seek scan log: %w", err)
	}
	return file, scanned, nil
}

// Scanned returns the external IDs already written or marked scanned.
func (s *Sink) Scanned(context.Context) (map[string]struct{}, error) {
	scanned := make(map[string]struct{}, len(s.seen)+len(s.scanned))
	for key := range s.seen {
		scanned[key.externalID] = struct{}{}
	}
	for id := range s.scanned {
		scanned[id] = struct{}{}
	}
	return scanned, nil
}

// Persist appends the records, skipping pairs already in the file.
func (s *Sink) Persist(ctx context.Context, records []post.CollectedPost) (collection.SinkResult, error) {
	var result collection.SinkResult
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		key := pairKey{externalID: record.Post.ExternalID(), keyword: record.Keyword.Text()}
		if _, ok := s.seen[key]; ok {
			result.Duplicates++
			continue
		}
		if err := s.writer.Write(row(record)); err != nil {
			result.Failed++
			s.logger.WarnContext(ctx, "failed to write post",
				"external_id", key.externalID, "keyword", key.keyword, "error", err)
			continue
		}
		s.seen[key] = struct{}{}
		result.Written++
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return result, fmt.Errorf("flush csv sink: %w", err)
	}
	return result, nil
}

// MarkScanned appends inspected post IDs to the scan log.
func (s *Sink) MarkScanned(_ context.Context, ids []string) error {
	for _, id := range ids {
		if _, ok := s.scanned[id]; ok {
			continue
		}
		if _, err := fmt.Fprintln(s.scanLog, id); err != nil {
			return fmt.Errorf("append scan log: %w", err)
		}
		s.scanned[id] = struct{}{}
	}
	return nil
}

func row(record post.CollectedPost) []string {
	p := record.Post
	engagement := p.Engagement()
	return []string{
		p.ExternalID(),
		record.Keyword.Text(),
		p.Author(),
		p.Text(),
		p.Language(),
		p.CreatedAt().UTC().Format(time.RFC3339),
		p.CollectedAt().UTC().Format(time.RFC3339),
		strconv.Itoa(engagement.Likes),
		strconv.Itoa(engagement.Replies),
		strconv.Itoa(engagement.Reposts),
		strconv.Itoa(engagement.Quotes),
	}
}

// Close flushes and closes the file.
func (s *Sink) Close() error {
	s.writer.Flush()
	flushErr := s.writer.Error()
	fileErr := s.file.Close()
	logErr := s.scanLog.Close()
	if flushErr != nil {
		return fmt.Errorf("flush csv sink: %w", flushErr)
	}
	if fileErr != nil {
		return fmt.Errorf("close csv sink: %w", fileErr)
	}
	if logErr != nil {
		return fmt.Errorf("close scan log: %w", logErr)
	}
	return nil
}
