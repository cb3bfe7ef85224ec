package watcher

import (
	"context"
	"time"

	"marketwatcher/internal/memorystore"
	"marketwatcher/internal/schedule"
	"marketwatcher/pkg/storage"

	"go.uber.org/zap"
)

// FlushResult summarizes one cohort flush.
type FlushResult struct {
	Written int // artifacts written
	Skipped int // members with nothing buffered
	Failed  int // members whose write failed; their ticks are gone
	Ticks   int // ticks written
}

// Writer moves buffered ticks into the store. It shares the coordinator's
// goroutine and buffer.
type Writer struct {
	store   storage.Store
	buffer  *memorystore.TickBuffer
	loc     *time.Location
	now     func() time.Time
	timeout time.Duration
	logger  *zap.Logger
}

func NewWriter(store storage.Store, buffer *memorystore.TickBuffer, loc *time.Location,
	now func() time.Time, timeout time.Duration, logger *zap.Logger) *Writer {
	return &Writer{
		store:   store,
		buffer:  buffer,
		loc:     loc,
		now:     now,
		timeout: timeout,
		logger:  logger,
	}
}

// Prepare readies the store for every instrument. Failures are logged and
// counted; writes for that instrument will fail later on their own.
func (w *Writer) Prepare(ctx context.Context, instruments []string) int {
	failed := 0
	for _, id := range instruments {
		if err := w.store.Prepare(ctx, id); err != nil {
			failed++
			w.logger.Error("Failed to prepare storage", zap.String("instrument", id), zap.Error(err))
		}
	}
	return failed
}

// Flush writes each member's buffered ticks to a new artifact and empties
// the buffer, whether or not the write succeeds.
func (w *Writer) Flush(ctx context.Context, cohort schedule.Cohort) FlushResult {
	var res FlushResult
	for _, id := range cohort.Instruments {
		ticks := w.buffer.Take(id)
		if len(ticks) == 0 {
			res.Skipped++
			continue
		}

		key := storage.ArtifactKey(id, w.now().In(w.loc))
		if err := w.write(ctx, id, key, ticks); err != nil {
			res.Failed++
			w.logger.Error("Failed to persist ticks",
				zap.String("instrument", id),
				zap.String("artifact", key),
				zap.Int("ticks", len(ticks)),
				zap.Error(err),
			)
			continue
		}
		res.Written++
		res.Ticks += len(ticks)
		w.logger.Info("Ticks persisted",
			zap.String("instrument", id),
			zap.String("artifact", key),
			zap.Int("ticks", len(ticks)),
		)
	}
	return res
}

func (w *Writer) write(ctx context.Context, id, key string, ticks []memorystore.Tick) error {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	return w.store.Write(ctx, id, key, ticks)
}
