package vocab

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ExportState captures export lifecycle states.
type ExportState string

const (
	StateRunning   ExportState = "running"
	StateCompleted ExportState = "completed"
	StateFailed    ExportState = "failed"
	StateSkipped   ExportState = "skipped"
)

// ExportRecord captures the history entry of a single export.
type ExportRecord struct {
	ID            string      `json:"id"`
	Filename      string      `json:"filename"`
	State         ExportState `json:"state"`
	Sheets        int         `json:"sheets"`
	PagesRendered int         `json:"pages_rendered"`
	PagesWritten  int         `json:"pages_written"`
	Trimmed       bool        `json:"trimmed"`
	Bytes         int64       `json:"bytes"`
	Error         string      `json:"error,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	CompletedAt   time.Time   `json:"completed_at,omitempty"`
}

// HistoryFilter filters tracker lists.
type HistoryFilter struct {
	State ExportState
	Limit int
}

// Tracker records export history for the session.
type Tracker interface {
	Start(ctx context.Context, record ExportRecord) (string, error)
	Complete(ctx context.Context, id string, result ExportResult) error
	Fail(ctx context.Context, id string, err error) error
	Skip(ctx context.Context, id string, reason string) error
	Status(ctx context.Context, id string) (ExportRecord, error)
	List(ctx context.Context, filter HistoryFilter) ([]ExportRecord, error)
}

// MemoryTracker stores export history in memory.
type MemoryTracker struct {
	mu      sync.RWMutex
	records map[string]ExportRecord
	counter uint64
	Now     func() time.Time
}

// NewMemoryTracker creates an in-memory tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{records: make(map[string]ExportRecord), Now: time.Now}
}

// Start creates a new record.
func (t *MemoryTracker) Start(ctx context.Context, record ExportRecord) (string, error) {
	_ = ctx
	if record.ID == "" {
		record.ID = t.nextID()
	}
	if record.State == "" {
		record.State = StateRunning
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = t.now()
	}

	t.mu.Lock()
	t.records[record.ID] = record
	t.mu.Unlock()
	return record.ID, nil
}

// Complete marks the export as completed.
func (t *MemoryTracker) Complete(ctx context.Context, id string, result ExportResult) error {
	return t.update(ctx, id, func(record *ExportRecord) {
		record.State = StateCompleted
		record.PagesRendered = result.PagesRendered
		record.PagesWritten = result.PagesWritten
		record.Trimmed = result.Trimmed
		record.Bytes = result.Bytes
	})
}

// Fail records failure state.
func (t *MemoryTracker) Fail(ctx context.Context, id string, err error) error {
	return t.update(ctx, id, func(record *ExportRecord) {
		record.State = StateFailed
		if err != nil {
			record.Error = err.Error()
		}
	})
}

// Skip records an export that did not run.
func (t *MemoryTracker) Skip(ctx context.Context, id string, reason string) error {
	return t.update(ctx, id, func(record *ExportRecord) {
		record.State = StateSkipped
		record.Error = reason
	})
}

func (t *MemoryTracker) update(ctx context.Context, id string, fn func(*ExportRecord)) error {
	_ = ctx

	t.mu.Lock()
	defer t.mu.Unlock()
	record, ok := t.records[id]
	if !ok {
		return NewError(KindNotFound, fmt.Sprintf("export %q not found", id), nil)
	}
	fn(&record)
	record.CompletedAt = t.now()
	t.records[id] = record
	return nil
}

// Status returns a record by ID.
func (t *MemoryTracker) Status(ctx context.Context, id string) (ExportRecord, error) {
	_ = ctx
	t.mu.RLock()
	record, ok := t.records[id]
	t.mu.RUnlock()
	if !ok {
		return ExportRecord{}, NewError(KindNotFound, fmt.Sprintf("export %q not found", id), nil)
	}
	return record, nil
}

// List returns records matching a filter, newest first.
func (t *MemoryTracker) List(ctx context.Context, filter HistoryFilter) ([]ExportRecord, error) {
	_ = ctx
	result := []ExportRecord{}

	t.mu.RLock()
	for _, record := range t.records {
		if filter.State != "" && record.State != filter.State {
			continue
		}
		result = append(result, record)
	}
	t.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (t *MemoryTracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *MemoryTracker) nextID() string {
	id := atomic.AddUint64(&t.counter, 1)
	return fmt.Sprintf("exp-%d", id)
}
