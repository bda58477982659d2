package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Closer allows flushing and stopping the async handler.
type Closer interface {
	Close()
}

// nopCloser is a no-op Closer for synchronous mode.
type nopCloser struct{}

func (nopCloser) Close() {}

// asyncItem pairs a record with the handler that must write it, so
// attributes added through WithAttrs survive the trip through the buffer.
type asyncItem struct {
	h   slog.Handler
	rec slog.Record
}

// asyncState is shared by an AsyncHandler and every handler derived from it.
type asyncState struct {
	ch        chan asyncItem
	wg        sync.WaitGroup
	dropped   atomic.Int64
	closeOnce sync.Once
}

// AsyncHandler hands records to a pool of writers over a buffered channel.
// Records below the keep level are dropped when the buffer is full; records
// at or above it wait for room, so workflow failures always reach the log.
type AsyncHandler struct {
	inner slog.Handler
	keep  slog.Level
	state *asyncState
}

// NewAsyncHandler starts workers writers draining a buffer of chanSize
// records. Records at slog.LevelWarn and above are never dropped.
func NewAsyncHandler(inner slog.Handler, chanSize, workers int) *AsyncHandler {
	return NewAsyncHandlerKeeping(inner, chanSize, workers, slog.LevelWarn)
}

// NewAsyncHandlerKeeping is NewAsyncHandler with an explicit keep level.
func NewAsyncHandlerKeeping(inner slog.Handler, chanSize, workers int, keep slog.Level) *AsyncHandler {
	st := &asyncState{ch: make(chan asyncItem, chanSize)}
	for range max(workers, 1) {
		st.wg.Add(1)
		go func() {
			defer st.wg.Done()
			for it := range st.ch {
				_ = it.h.Handle(context.Background(), it.rec)
			}
		}()
	}
	return &AsyncHandler{inner: inner, keep: keep, state: st}
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record. A wrapping ContextHandler has already copied
// context values onto it, so the record is written with a background context.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	it := asyncItem{h: h.inner, rec: rec.Clone()}
	if rec.Level >= h.keep {
		h.state.ch <- it
		return nil
	}
	select {
	case h.state.ch <- it:
	default:
		h.state.dropped.Add(1)
	}
	return nil
}

// WithAttrs shares the buffer and writers.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), keep: h.keep, state: h.state}
}

// WithGroup shares the buffer and writers.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), keep: h.keep, state: h.state}
}

// DroppedCount returns the number of dropped records.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.state.dropped.Load()
}

// Close drains the buffer and stops the writers. If anything was dropped a
// final WARN record reports the count. Safe to call more than once.
func (h *AsyncHandler) Close() {
	h.state.closeOnce.Do(func() {
		close(h.state.ch)
		h.state.wg.Wait()
		if n := h.state.dropped.Load(); n > 0 {
			rec := slog.NewRecord(time.Now(), slog.LevelWarn, "async log records dropped", 0)
			rec.AddAttrs(slog.Int64("count", n))
			_ = h.inner.Handle(context.Background(), rec)
		}
	})
}
