package audit

import (
	"context"
	"sync"
	"time"
)

// QueuedSink wraps a Sink with a bounded in-memory channel drained by a
// single worker goroutine.
// Emit never blocks the caller on a full queue: it drops the oldest
// pending record and emits a synthetic EventQueueOverflow record instead,
// because authentication and authorization must never fail due to
// auditing backpressure.
type QueuedSink struct {
	downstream Sink
	records    chan Record

	mu      sync.Mutex
	dropped uint64

	done chan struct{}
}

// NewQueuedSink starts the drain worker. capacity bounds how many records
// may be pending delivery at once.
func NewQueuedSink(downstream Sink, capacity int) *QueuedSink {
	q := &QueuedSink{
		downstream: downstream,
		records:    make(chan Record, capacity),
		done:       make(chan struct{}),
	}
	go q.drain()
	return q
}

// Emit enqueues a record, never blocking. On overflow it evicts the oldest
// queued record to make room and counts the drop so the next successful
// write can surface it.
func (q *QueuedSink) Emit(rec Record) {
	for {
		select {
		case q.records <- rec:
			return
		default:
		}
		select {
		case <-q.records:
			q.mu.Lock()
			q.dropped++
			q.mu.Unlock()
		default:
		}
	}
}

func (q *QueuedSink) drain() {
	for {
		select {
		case rec, ok := <-q.records:
			if !ok {
				return
			}
			q.flushDropNotice()
			q.downstream.Write(context.Background(), rec)
		case <-q.done:
			return
		}
	}
}

func (q *QueuedSink) flushDropNotice() {
	q.mu.Lock()
	n := q.dropped
	q.dropped = 0
	q.mu.Unlock()

	if n == 0 {
		return
	}
	q.downstream.Write(context.Background(), Record{
		Kind: EventQueueOverflow,
		At:   time.Now(),
		Payload: map[string]any{
			"dropped_count": n,
		},
	})
}

// Close stops the drain worker. Pending records already accepted are not
// guaranteed to be flushed; Close is for graceful-shutdown best effort.
func (q *QueuedSink) Close() {
	close(q.done)
}
