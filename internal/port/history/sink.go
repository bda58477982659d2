// Package history defines the append-only audit log of finished workflows.
package history

import (
	"context"

	"github.com/Strob0t/PaperDesk/internal/domain/workflow"
)

// Sink stores finished workflow records. Implementations apply their own
// retention policy and must be safe for concurrent use.
type Sink interface {
	// Append stores a terminal record.
	Append(ctx context.Context, rec *workflow.Record) error

	// List returns up to limit records, newest first. limit <= 0 means all retained.
	List(ctx context.Context, limit int) ([]workflow.Record, error)

	// Get returns the record with id or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*workflow.Record, error)
}
