// Package audit implements the best-effort audit side channel. Entries are
// queued and drained by a background worker; a full queue drops the entry and
// a failing sink is logged and swallowed. Audit failures never abort the
// operation that produced them.
package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tenantdesk/tenantdesk/pkg/metrics"
	"github.com/tenantdesk/tenantdesk/pkg/model"
	"github.com/tenantdesk/tenantdesk/pkg/store"
)

const sinkTimeout = 5 * time.Second

// Recorder accepts audit entries without blocking the caller.
type Recorder interface {
	Record(entry model.AuditLog)
	Close() error
}

type queueRecorder struct {
	sink      store.AuditStore
	logger    *zap.Logger
	queue     chan model.AuditLog
	wg        sync.WaitGroup
	closeOnce sync.Once

	// mu guards closed against the queue send so a late Record after Close
	// drops the entry instead of panicking on the closed channel.
	mu     sync.RWMutex
	closed bool
}

// NewRecorder starts an in-process bounded queue drained into the sink.
func NewRecorder(sink store.AuditStore, queueSize int, logger *zap.Logger) Recorder {
	if queueSize <= 0 {
		queueSize = 1024
	}
	r := &queueRecorder{
		sink:   sink,
		logger: logger,
		queue:  make(chan model.AuditLog, queueSize),
	}
	r.wg.Add(1)
	go r.drain()
	return r
}

func (r *queueRecorder) Record(entry model.AuditLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		metrics.AuditDroppedTotal.Inc()
		r.logger.Warn("audit recorder closed, dropping entry", zap.String("action", entry.Action))
		return
	}

	select {
	case r.queue <- entry:
		metrics.AuditQueueDepth.Set(float64(len(r.queue)))
	default:
		metrics.AuditDroppedTotal.Inc()
		r.logger.Warn("audit queue full, dropping entry", zap.String("action", entry.Action))
	}
}

func (r *queueRecorder) drain() {
	defer r.wg.Done()
	for entry := range r.queue {
		metrics.AuditQueueDepth.Set(float64(len(r.queue)))
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		if err := r.sink.Append(ctx, &entry); err != nil {
			r.logger.Error("audit append failed", zap.String("action", entry.Action), zap.Error(err))
		}
		cancel()
	}
}

// Close stops accepting entries and waits for the queue to drain, bounded by
// a deadline so shutdown cannot hang on a dead sink.
func (r *queueRecorder) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		r.logger.Warn("audit recorder close timed out before queue drained")
	}
	return nil
}
