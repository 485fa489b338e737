package collection

import "time"

// CategoryReport summarizes collection for one category.
type CategoryReport struct {
	Category        string
	Keywords        int
	Searched        int
	Accepted        int
	Rejected        int
	SkippedScanned  int
	Written         int
	Duplicates      int
	PersistFailures int
	Completed       int
	PartiallyFailed int
	Aborted         int
}

// RunReport summarizes a whole collection run.
type RunReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Categories []CategoryReport
}

// Duration returns the wall-clock duration of the run.
func (r RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// TotalWritten returns the number of new records stored across categories.
func (r RunReport) TotalWritten() int {
	total := 0
	for _, c := range r.Categories {
		total += c.Written
	}
	return total
}

// TotalAccepted returns the number of hits that passed validation.
func (r RunReport) TotalAccepted() int {
	total := 0
	for _, c := range r.Categories {
		total += c.Accepted
	}
	return total
}

// Failed reports whether any task ended without completing.
func (r RunReport) Failed() bool {
	for _, c := range r.Categories {
		if c.PartiallyFailed > 0 || c.Aborted > 0 {
			return true
		}
	}
	return false
}
