package collection

import (
	"github.com/hivewatch/hivewatch/domain/category"
	"github.com/hivewatch/hivewatch/domain/keyword"
)

// TaskState tracks a task through its lifecycle.
type TaskState int

const (
	// TaskPending is the initial state: queued, not yet picked up.
	TaskPending TaskState = iota
	// TaskInFlight means a worker is searching and filtering.
	TaskInFlight
	// TaskCompleted means the task finished all pages or hit its cap.
	TaskCompleted
	// TaskPartiallyFailed means some pages were collected before a
	// non-recoverable page error ended the task early.
	TaskPartiallyFailed
	// TaskAborted means the run was cancelled before or during the task.
	TaskAborted
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskInFlight:
		return "in-flight"
	case TaskCompleted:
		return "completed"
	case TaskPartiallyFailed:
		return "partially-failed"
	case TaskAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskCompleted, TaskPartiallyFailed, TaskAborted:
		return true
	}
	return false
}

// Task is one unit of collection work: search every page of results for a
// single keyword within a category, subject to the category's post cap.
// A task is owned by exactly one worker once started, so state transitions
// need no locking.
type Task struct {
	category category.Category
	keyword  keyword.Keyword
	state    TaskState
	err      error
}

// NewTask creates a pending task for a category and keyword.
func NewTask(c category.Category, k keyword.Keyword) *Task {
	return &Task{category: c, keyword: k, state: TaskPending}
}

// Category returns the task's category.
func (t *Task) Category() category.Category { return t.category }

// Keyword returns the keyword to search for.
func (t *Task) Keyword() keyword.Keyword { return t.keyword }

// State returns the task's current state.
func (t *Task) State() TaskState { return t.state }

// Err returns the error that ended the task, if any.
func (t *Task) Err() error { return t.err }

// Start marks the task in-flight.
func (t *Task) Start() { t.state = TaskInFlight }

// Complete marks the task completed.
func (t *Task) Complete() { t.state = TaskCompleted }

// Fail marks the task partially failed with the error that ended it.
func (t *Task) Fail(err error) {
	t.state = TaskPartiallyFailed
	t.err = err
}

// Abort marks the task aborted. Completed tasks stay completed.
func (t *Task) Abort(cause error) {
	if t.state.Terminal() {
		return
	}
	t.state = TaskAborted
	t.err = cause
}
