package usecase

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pavelzubkov/qrlink/internal/entity"
)

// perEventTimeout bounds the sink append and the stats update for one event.
const perEventTimeout = 5 * time.Second

type scanStatsRepository interface {
	RecordScan(ctx context.Context, linkID string, scannedAt time.Time) error
}

type scanLogSink interface {
	AppendScan(ctx context.Context, event entity.ScanEvent) (string, error)
}

// ScanTracker accounts for scan events off the resolution path. Events are
// queued on a buffered channel and drained by a worker pool; enqueueing
// never blocks the caller, and no tracker failure is ever surfaced back to
// the resolution caller.
type ScanTracker struct {
	repo   scanStatsRepository
	sink   scanLogSink
	logger *slog.Logger

	queue chan entity.ScanEvent
	quit  chan struct{}
	wg    sync.WaitGroup

	workers         int
	shutdownTimeout time.Duration

	stopping atomic.Bool
	dropped  atomic.Int64
}

func NewScanTracker(repo scanStatsRepository, sink scanLogSink, logger *slog.Logger, queueSize, workers int, shutdownTimeout time.Duration) *ScanTracker {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if workers <= 0 {
		workers = 1
	}

	return &ScanTracker{
		repo:            repo,
		sink:            sink,
		logger:          logger,
		queue:           make(chan entity.ScanEvent, queueSize),
		quit:            make(chan struct{}),
		workers:         workers,
		shutdownTimeout: shutdownTimeout,
	}
}

// Track enqueues a scan event for asynchronous accounting. It returns false
// when the event was dropped because the queue is full or the tracker is
// shutting down; dropped events are counted and logged, never retried.
func (t *ScanTracker) Track(event entity.ScanEvent) bool {
	if t.stopping.Load() {
		t.dropped.Add(1)
		return false
	}

	select {
	case t.queue <- event:
		return true
	default:
		t.dropped.Add(1)
		t.logger.Warn("scan queue full, event dropped",
			slog.String("link_id", event.LinkID),
		)
		return false
	}
}

// Dropped returns the number of events dropped since the tracker started.
func (t *ScanTracker) Dropped() int64 {
	return t.dropped.Load()
}

// Run starts the worker pool and blocks until ctx is done, then drains the
// queue within the shutdown grace period. At most the events still queued
// when the grace period expires are lost; records are never corrupted.
func (t *ScanTracker) Run(ctx context.Context) error {
	for i := 0; i < t.workers; i++ {
		t.wg.Add(1)
		go t.worker()
	}

	<-ctx.Done()

	t.stopping.Store(true)
	close(t.quit)

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(t.shutdownTimeout):
		t.logger.Warn("scan tracker shutdown timed out",
			slog.Int("queued", len(t.queue)),
		)
	}

	return nil
}

func (t *ScanTracker) worker() {
	defer t.wg.Done()

	for {
		select {
		case event := <-t.queue:
			t.process(event)
		case <-t.quit:
			for {
				select {
				case event := <-t.queue:
					t.process(event)
				default:
					return
				}
			}
		}
	}
}

// process performs the two accounting actions for one event. They are
// independent: a sink failure must not prevent the stats update, and vice
// versa. Failures are logged and absorbed here.
func (t *ScanTracker) process(event entity.ScanEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), perEventTimeout)
	defer cancel()

	if _, err := t.sink.AppendScan(ctx, event); err != nil {
		t.logger.Error("failed to append scan audit entry",
			slog.String("link_id", event.LinkID),
			slog.Any("err", err),
		)
	}

	if err := t.repo.RecordScan(ctx, event.LinkID, event.ScannedAt); err != nil {
		t.logger.Error("failed to record scan stats",
			slog.String("link_id", event.LinkID),
			slog.Any("err", err),
		)
	}
}
