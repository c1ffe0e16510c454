package triplog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/USA-RedDragon/camper-server/internal/config"
	"github.com/USA-RedDragon/camper-server/internal/metrics"
	"github.com/USA-RedDragon/camper-server/internal/planner"
	"github.com/USA-RedDragon/camper-server/internal/storage"
	"github.com/puzpuzpuz/xsync/v3"
)

const QueueDepth = 100

type Queue struct {
	store      storage.Storage
	queue      chan Entry
	closeChan  chan any
	metrics    *metrics.Metrics
	activeJobs *xsync.Counter
	jobs       sync.WaitGroup
	slots      chan struct{}

	summaryMu sync.Mutex
	// Set once summary.csv is known to exist
	summaryReady bool
}

func NewQueue(store storage.Storage, cfg config.Logs, metrics *metrics.Metrics) *Queue {
	writers := cfg.ParallelWriters
	if writers == 0 {
		writers = config.DefaultLogsParallelWriters
	}
	return &Queue{
		store:      store,
		queue:      make(chan Entry, QueueDepth),
		closeChan:  make(chan any),
		metrics:    metrics,
		activeJobs: xsync.NewCounter(),
		slots:      make(chan struct{}, writers),
	}
}

// Start consumes the queue until Stop is called. At most the configured number of
// writers run at once.
func (q *Queue) Start() {
	for entry := range q.queue {
		q.slots <- struct{}{}
		q.activeJobs.Inc()
		q.jobs.Add(1)
		go func() {
			defer func() {
				q.activeJobs.Dec()
				<-q.slots
				q.jobs.Done()
				q.metrics.SetTripLogActiveJobs(float64(q.activeJobs.Value()))
			}()
			if err := q.write(context.Background(), entry); err != nil {
				slog.Error("Error writing trip log", "trip", entry.Trip, "err", err)
			}
		}()
		q.metrics.SetTripLogActiveJobs(float64(q.activeJobs.Value()))
		q.metrics.SetTripLogQueueSize(float64(len(q.queue)))
	}
	q.jobs.Wait()
	q.closeChan <- struct{}{}
}

// Stop drains the queue and waits for in-flight writes.
func (q *Queue) Stop() {
	close(q.queue)
	<-q.closeChan
}

// Add queues a computation for logging. When the queue is full the log is dropped
// rather than blocking the request.
func (q *Queue) Add(req planner.Request, result planner.Result) bool {
	entry := Entry{
		Timestamp: time.Now().UTC(),
		Trip:      TripName(req),
		Request:   req,
		Result:    result,
		DebugLog:  result.DebugLog,
	}
	select {
	case q.queue <- entry:
		q.metrics.SetTripLogQueueSize(float64(len(q.queue)))
		return true
	default:
		q.metrics.IncrementTripLogErrors("queue_full")
		slog.Warn("Trip log queue is full, dropping log", "trip", entry.Trip)
		return false
	}
}

func (q *Queue) write(ctx context.Context, entry Entry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		q.metrics.IncrementTripLogErrors("encode")
		return fmt.Errorf("failed to encode trip log: %w", err)
	}
	if err := q.store.WriteFile(ctx, logPath(entry.Trip), data); err != nil {
		q.metrics.IncrementTripLogErrors("write_log")
		return fmt.Errorf("failed to write trip log: %w", err)
	}
	if err := q.appendSummary(ctx, entry); err != nil {
		q.metrics.IncrementTripLogErrors("append_summary")
		return err
	}
	return nil
}

func (q *Queue) appendSummary(ctx context.Context, entry Entry) error {
	q.summaryMu.Lock()
	defer q.summaryMu.Unlock()

	row, err := encodeCSV(summaryRecord(entry))
	if err != nil {
		return fmt.Errorf("failed to encode summary row: %w", err)
	}
	if q.summaryReady {
		if _, err := q.store.AppendFile(ctx, summaryFile, row); err != nil {
			return fmt.Errorf("failed to append summary: %w", err)
		}
		return nil
	}

	// Probe for the file so the header goes in the same write as the first row
	_, err = q.store.ReadFile(ctx, summaryFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		header, err := encodeCSV(summaryHeader)
		if err != nil {
			return err
		}
		row = append(header, row...)
	case err != nil:
		return fmt.Errorf("failed to read summary: %w", err)
	}
	if _, err := q.store.AppendFile(ctx, summaryFile, row); err != nil {
		return fmt.Errorf("failed to append summary: %w", err)
	}
	q.summaryReady = true
	return nil
}

// List returns every stored trip log and the parsed summary rows.
func (q *Queue) List(ctx context.Context) ([]Entry, []map[string]string, error) {
	names, err := q.store.List(ctx, tripsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list trip logs: %w", err)
	}
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		entry, err := q.readEntry(ctx, tripsDir+"/"+name)
		if err != nil {
			slog.Warn("Skipping unreadable trip log", "file", name, "err", err)
			continue
		}
		entries = append(entries, entry)
	}

	data, err := q.store.ReadFile(ctx, summaryFile)
	if errors.Is(err, fs.ErrNotExist) {
		return entries, []map[string]string{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read summary: %w", err)
	}
	rows, err := parseSummary(data)
	if err != nil {
		return nil, nil, err
	}
	return entries, rows, nil
}

// Get returns the log of one trip. A missing log matches fs.ErrNotExist.
func (q *Queue) Get(ctx context.Context, trip string) (Entry, error) {
	return q.readEntry(ctx, logPath(trip))
}
