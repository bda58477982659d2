package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Strob0t/PaperDesk/internal/domain"
	"github.com/Strob0t/PaperDesk/internal/domain/workflow"
)

// History is a bounded in-memory history.Sink. When full, the oldest
// record is evicted.
type History struct {
	mu         sync.RWMutex
	maxRecords int // 0 = unbounded
	records    []workflow.Record
}

// NewHistory creates a history retaining at most maxRecords records (0 = unbounded).
func NewHistory(maxRecords int) *History {
	return &History{maxRecords: maxRecords}
}

// Append stores a copy of rec.
func (h *History) Append(_ context.Context, rec *workflow.Record) error {
	if rec == nil {
		return fmt.Errorf("history append: %w: nil record", domain.ErrValidation)
	}
	cp := *rec
	cp.Steps = slices.Clone(rec.Steps)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, cp)
	if h.maxRecords > 0 && len(h.records) > h.maxRecords {
		drop := len(h.records) - h.maxRecords
		clear(h.records[:drop])
		h.records = slices.Clone(h.records[drop:])
	}
	return nil
}

// List returns up to limit records, newest first.
func (h *History) List(_ context.Context, limit int) ([]workflow.Record, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := len(h.records)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]workflow.Record, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, h.records[i])
	}
	return out, nil
}

// Get returns the record with id.
func (h *History) Get(_ context.Context, id string) (*workflow.Record, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for i := range h.records {
		if h.records[i].ID == id {
			rec := h.records[i]
			return &rec, nil
		}
	}
	return nil, fmt.Errorf("workflow %s: %w", id, domain.ErrNotFound)
}

// Len returns the number of retained records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}
