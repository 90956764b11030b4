package analytics

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"

	"github.com/nearmarket/nearmarket-backend/internal/marketplace"
	pkgbigquery "github.com/nearmarket/nearmarket-backend/pkg/bigquery"
	"github.com/nearmarket/nearmarket-backend/pkg/logger"
)

func TestNewWriterValidation(t *testing.T) {
	if _, err := NewWriter(nil, WriterConfig{SearchEventsTable: "search_events"}); err == nil {
		t.Fatal("expected error when client missing")
	}
	if _, err := NewWriter(&pkgbigquery.Client{}, WriterConfig{SearchEventsTable: " "}); err == nil {
		t.Fatal("expected error when table missing")
	}
}

func TestWriterRetriesOnTransientError(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{
		&googleapi.Error{Code: http.StatusServiceUnavailable},
		nil,
	}

	if err := writer.Insert(context.Background(), SearchEventRow{ViewerID: "v1"}); err != nil {
		t.Fatalf("unexpected error writing row: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected two insert attempts, got %d", len(fake.calls))
	}
	if fake.calls[1].table != writer.searchEventsTable {
		t.Fatalf("expected search events table on retry, got %s", fake.calls[1].table)
	}
	if len(writer.buffer) != 0 {
		t.Fatal("expected buffer to be empty after success")
	}
}

func TestWriterDoesNotRetryPermanentError(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{
		&googleapi.Error{Code: http.StatusBadRequest},
	}

	if err := writer.Insert(context.Background(), SearchEventRow{ViewerID: "v1"}); err == nil {
		t.Fatal("expected error for bad request")
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected single attempt, got %d", len(fake.calls))
	}
}

func TestWriterBatching(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	writer.batchSize = 2

	if err := writer.Insert(context.Background(), SearchEventRow{ViewerID: "v1"}); err != nil {
		t.Fatalf("unexpected error on first insert: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatalf("expected no insert before batch full, got %d", len(fake.calls))
	}

	if err := writer.Insert(context.Background(), SearchEventRow{ViewerID: "v2"}); err != nil {
		t.Fatalf("unexpected error on second insert: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected single insert after batch flush, got %d", len(fake.calls))
	}
	if fake.calls[0].rowCount != 2 {
		t.Fatalf("expected two rows inserted, got %d", fake.calls[0].rowCount)
	}
}

func TestWriterFlush(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	writer.batchSize = 10
	if err := writer.Insert(context.Background(), SearchEventRow{ViewerID: "v1"}); err != nil {
		t.Fatalf("unexpected insert error: %v", err)
	}
	if err := writer.Flush(context.Background()); err != nil {
		t.Fatalf("unexpected flush error: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected flush to insert once, got %d", len(fake.calls))
	}
}

func TestRecorderDropsWhenQueueFull(t *testing.T) {
	writer, _ := newWriterWithFakeInserter(t)
	recorder, err := NewRecorder(writer, RecorderConfig{QueueSize: 1}, testLogger())
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	// Nothing drains the queue, so the second event must be dropped silently.
	recorder.RecordSearch(context.Background(), marketplace.SearchEvent{ViewerID: "a"})
	recorder.RecordSearch(context.Background(), marketplace.SearchEvent{ViewerID: "b"})

	if len(recorder.queue) != 1 {
		t.Fatalf("expected 1 queued event, got %d", len(recorder.queue))
	}
}

func TestRecorderDrainsOnShutdown(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	recorder, err := NewRecorder(writer, RecorderConfig{QueueSize: 4}, testLogger())
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	recorder.RecordSearch(context.Background(), marketplace.SearchEvent{ViewerID: "a", OccurredAt: time.Now()})
	recorder.RecordSearch(context.Background(), marketplace.SearchEvent{ViewerID: "b", OccurredAt: time.Now()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := recorder.Run(ctx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	total := 0
	for _, call := range fake.calls {
		total += call.rowCount
	}
	if total != 2 {
		t.Fatalf("expected both events written on shutdown, got %d", total)
	}
}

type insertCall struct {
	table    string
	rowCount int
}

type fakeInserter struct {
	responses []error
	calls     []insertCall
	index     int
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, rows []any) error {
	f.calls = append(f.calls, insertCall{table: table, rowCount: len(rows)})
	var err error
	if f.index < len(f.responses) {
		err = f.responses[f.index]
	}
	f.index++
	return err
}

func newWriterWithFakeInserter(t *testing.T) (*BigQueryWriter, *fakeInserter) {
	t.Helper()
	writer, err := NewWriter(&pkgbigquery.Client{}, WriterConfig{SearchEventsTable: "search_events"})
	if err != nil {
		t.Fatalf("construct writer: %v", err)
	}

	fake := &fakeInserter{}
	writer.client = fake
	return writer, fake
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}
