// Package sync implements the write-back drain loop and its retry ladder,
// which keep pending writes in memory, and the durable, debouncing work
// queue used by the watch-mode indexer.
package sync

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// opKind distinguishes the three ops the drain loop's inbox accepts.
type opKind int

const (
	opWrite opKind = iota
	opAppend
	opDelete
)

type pendingOp struct {
	kind    opKind
	path    string
	content []byte
	attempts int
}

// FlushFunc persists one path's pending content to the inner backend. It
// is supplied by the CachedBackend that owns this engine.
type FlushFunc func(ctx context.Context, path string, content []byte) error

// Stats mirrors the counters spec §4.4's drain loop keeps.
type Stats struct {
	Synced   uint64
	Failed   uint64
	LastSync time.Time
}

// EngineOptions configures a SyncEngine.
type EngineOptions struct {
	FlushInterval time.Duration
	MaxRetries    int
	BaseBackoff   time.Duration
	MaxPending    int // inbox channel capacity; 0 means default of 1024
	Logger        *logrus.Logger
}

// SyncEngine drains pending write-back writes on a timer, retrying
// failures with exponential backoff up to MaxRetries before dead-lettering
// them. One SyncEngine is created per CachedBackend in write-back mode.
type SyncEngine struct {
	opt    EngineOptions
	flush  FlushFunc
	log    *logrus.Logger

	inbox chan pendingOp

	mu      sync.Mutex
	pending map[string]*pendingOp // path -> latest pending op, preserves per-path order via queue below
	queue   []string               // FIFO of paths with a pending op

	deadLetter []pendingOp

	statsMu sync.Mutex
	stats   Stats

	shutdownOnce sync.Once
	done         chan struct{}
	stopped      chan struct{}
}

// NewEngine starts a SyncEngine whose drain loop calls flush for each
// pending write. The caller must call Shutdown to stop it; dropping the
// reference alone never flushes remaining writes. Pending writes are held
// in memory only, so writes not yet flushed are lost if the process exits
// without Shutdown.
func NewEngine(opt EngineOptions, flush FlushFunc) *SyncEngine {
	if opt.MaxPending <= 0 {
		opt.MaxPending = 1024
	}
	if opt.FlushInterval <= 0 {
		opt.FlushInterval = 500 * time.Millisecond
	}
	if opt.MaxRetries <= 0 {
		opt.MaxRetries = 5
	}
	if opt.BaseBackoff <= 0 {
		opt.BaseBackoff = 100 * time.Millisecond
	}
	if opt.Logger == nil {
		opt.Logger = logrus.StandardLogger()
	}
	e := &SyncEngine{
		opt:     opt,
		flush:   flush,
		log:     opt.Logger,
		inbox:   make(chan pendingOp, opt.MaxPending),
		pending: make(map[string]*pendingOp),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go e.drainLoop()
	return e
}

// QueueWrite enqueues a write of content to path. It never blocks: when
// the inbox is full it returns an error and the write is not queued, while
// the CachedBackend's cache entry for path stays in place.
func (e *SyncEngine) QueueWrite(path string, content []byte) error {
	return e.submit(pendingOp{kind: opWrite, path: path, content: content})
}

// QueueAppend enqueues a durable append for path.
func (e *SyncEngine) QueueAppend(path string, content []byte) error {
	return e.submit(pendingOp{kind: opAppend, path: path, content: content})
}

// QueueDelete enqueues a delete marker for path; once absorbed it discards
// any pending write for path. The engine itself never deletes from the
// inner backend.
func (e *SyncEngine) QueueDelete(path string) error {
	return e.submit(pendingOp{kind: opDelete, path: path})
}

func (e *SyncEngine) submit(op pendingOp) error {
	select {
	case e.inbox <- op:
		return nil
	default:
		e.log.WithField("path", op.path).Warn("sync engine inbox full, write not durable")
		return errBackpressure{path: op.path}
	}
}

type errBackpressure struct{ path string }

func (e errBackpressure) Error() string {
	return "sync engine submission channel full for path " + e.path
}

// drainLoop is the dedicated task that owns e.pending/e.queue. Only this
// goroutine and the channel writer touch the pending deque, matching
// spec §5's single-writer/single-consumer rule.
func (e *SyncEngine) drainLoop() {
	defer close(e.stopped)
	ticker := time.NewTicker(e.opt.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case op := <-e.inbox:
			e.absorb(op)
		case <-ticker.C:
			e.drainOnce(context.Background())
		case <-e.done:
			// final flush: absorb anything left in the inbox without blocking
			for {
				select {
				case op := <-e.inbox:
					e.absorb(op)
					continue
				default:
				}
				break
			}
			e.drainOnce(context.Background())
			return
		}
	}
}

// absorb merges an inbox op into the pending deque, preserving per-path
// FIFO order for flush while letting Write/Append/Delete collapse.
func (e *SyncEngine) absorb(op pendingOp) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch op.kind {
	case opDelete:
		delete(e.pending, op.path)
		// leave it in queue; drainOnce skips paths absent from pending
	case opAppend:
		if existing, ok := e.pending[op.path]; ok && existing.kind != opDelete {
			merged := append(append([]byte{}, existing.content...), op.content...)
			existing.content = merged
			existing.kind = opWrite
			return
		}
		fallthrough
	case opWrite:
		if _, ok := e.pending[op.path]; !ok {
			e.queue = append(e.queue, op.path)
		}
		cp := pendingOp{kind: opWrite, path: op.path, content: op.content}
		e.pending[op.path] = &cp
	}
}

// drainOnce flushes every currently pending path once, preserving per-path
// ordering (each path is flushed with its latest content) while letting
// distinct paths flush in any order.
func (e *SyncEngine) drainOnce(ctx context.Context) {
	e.mu.Lock()
	queue := e.queue
	e.queue = nil
	e.mu.Unlock()

	remaining := make([]string, 0, len(queue))
	for _, path := range queue {
		e.mu.Lock()
		op, ok := e.pending[path]
		if ok {
			delete(e.pending, path)
		}
		e.mu.Unlock()
		if !ok {
			continue // deleted before it was ever flushed
		}

		if op.kind == opDelete {
			continue
		}
		if err := e.flush(ctx, op.path, op.content); err != nil {
			op.attempts++
			if op.attempts >= e.opt.MaxRetries {
				e.statsMu.Lock()
				e.stats.Failed++
				e.statsMu.Unlock()
				e.mu.Lock()
				e.deadLetter = append(e.deadLetter, *op)
				e.mu.Unlock()
				e.log.WithFields(logrus.Fields{"path": op.path, "attempts": op.attempts}).
					Error("write-back flush exhausted retries, dead-lettering")
				continue
			}
			e.log.WithFields(logrus.Fields{"path": op.path, "attempts": op.attempts, "err": err}).
				Warn("write-back flush failed, retrying with backoff")
			backoff := e.opt.BaseBackoff * time.Duration(1<<uint(op.attempts))
			time.AfterFunc(backoff, func() {
				e.mu.Lock()
				if _, exists := e.pending[op.path]; !exists {
					e.pending[op.path] = op
					e.queue = append(e.queue, op.path)
				}
				e.mu.Unlock()
			})
			remaining = append(remaining, path)
			continue
		}
		e.statsMu.Lock()
		e.stats.Synced++
		e.stats.LastSync = time.Now()
		e.statsMu.Unlock()
	}
	_ = remaining
}

// Shutdown stops the drain loop after one final flush attempt at all
// remaining entries, and blocks until it has finished. Safe to call once;
// subsequent calls are no-ops.
func (e *SyncEngine) Shutdown() {
	e.shutdownOnce.Do(func() {
		close(e.done)
	})
	<-e.stopped
}

// Stats returns a snapshot of the drain loop's counters.
func (e *SyncEngine) Stats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats
}

// DeadLetter returns the paths that exhausted their retry ladder, for
// diagnostics.
func (e *SyncEngine) DeadLetter() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.deadLetter))
	for i, op := range e.deadLetter {
		out[i] = op.path
	}
	return out
}
