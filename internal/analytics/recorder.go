package analytics

import (
	"context"
	"errors"
	"time"

	"go.uber.org/multierr"

	"github.com/nearmarket/nearmarket-backend/internal/marketplace"
	"github.com/nearmarket/nearmarket-backend/pkg/logger"
)

const (
	defaultQueueSize     = 256
	defaultFlushInterval = 5 * time.Second
)

type rowWriter interface {
	Insert(ctx context.Context, row SearchEventRow) error
	Flush(ctx context.Context) error
}

// Recorder queues browse events and writes them to BigQuery off the request
// path. When the queue is full events are dropped rather than blocking a
// browse response.
type Recorder struct {
	writer        rowWriter
	logg          *logger.Logger
	queue         chan SearchEventRow
	flushInterval time.Duration
}

// RecorderConfig tunes the in-memory queue.
type RecorderConfig struct {
	QueueSize     int
	FlushInterval time.Duration
}

// NewRecorder builds the async recorder around a writer.
func NewRecorder(writer *BigQueryWriter, cfg RecorderConfig, logg *logger.Logger) (*Recorder, error) {
	if writer == nil {
		return nil, errors.New("analytics writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}

	return &Recorder{
		writer:        writer,
		logg:          logg,
		queue:         make(chan SearchEventRow, queueSize),
		flushInterval: flushInterval,
	}, nil
}

// RecordSearch enqueues one browse event without blocking the caller.
func (r *Recorder) RecordSearch(ctx context.Context, event marketplace.SearchEvent) {
	row := SearchEventRow{
		ViewerID:    event.ViewerID,
		Query:       event.Query,
		Categories:  event.Categories,
		Sort:        event.Sort,
		ResultCount: event.ResultCount,
		DurationMs:  event.DurationMs,
		HasLocation: event.HasLocation,
		RadiusKm:    event.RadiusKm,
		OccurredAt:  event.OccurredAt,
	}

	select {
	case r.queue <- row:
	default:
		r.logg.Warn(ctx, "analytics queue full, dropping search event")
	}
}

// Run drains the queue until the context is canceled, then flushes whatever
// remains. Insert failures are logged and never surface to browse traffic.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.drain(ctx)
			return ctx.Err()

		case row := <-r.queue:
			if err := r.writer.Insert(ctx, row); err != nil {
				r.logg.Error(ctx, "insert search event failed", err)
			}

		case <-ticker.C:
			if err := r.writer.Flush(ctx); err != nil {
				r.logg.Error(ctx, "flush search events failed", err)
			}
		}
	}
}

// drain empties the queue with a fresh context so shutdown still persists
// whatever was already accepted.
func (r *Recorder) drain(ctx context.Context) {
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	for {
		select {
		case row := <-r.queue:
			if err := r.writer.Insert(flushCtx, row); err != nil {
				errs = append(errs, err)
			}
		default:
			if err := r.writer.Flush(flushCtx); err != nil {
				errs = append(errs, err)
			}
			if combined := multierr.Combine(errs...); combined != nil {
				r.logg.Error(ctx, "search event drain finished with failures", combined)
			}
			return
		}
	}
}
