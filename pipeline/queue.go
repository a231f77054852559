package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lastmove/chatrelay/telemetry"
)

// Queue is the bounded buffer between all pollers and the single dispatcher.
// Each platform gets its own FIFO sub-queue so a chatty source cannot starve
// the others; the consumer merges them round-robin. Overflow drops the oldest
// item for that platform with a logged warning, so a stalled sink never
// blocks ingestion.
type Queue struct {
	capacity int

	mu     sync.Mutex
	queues map[Platform][]OutboundItem
	order  []Platform // round-robin order, platforms in first-push order
	next   int        // round-robin cursor into order

	signal chan struct{}
}

// NewQueue creates a queue with the given per-platform capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 256
	}
	return &Queue{
		capacity: capacity,
		queues:   make(map[Platform][]OutboundItem),
		signal:   make(chan struct{}, 1),
	}
}

// Push enqueues an item for the given platform, evicting that platform's
// oldest item when full. Safe for concurrent producers.
func (q *Queue) Push(platform Platform, item OutboundItem) {
	q.mu.Lock()
	sub, ok := q.queues[platform]
	if !ok {
		q.order = append(q.order, platform)
	}
	if len(sub) >= q.capacity {
		dropped := sub[0]
		sub = sub[1:]
		telemetry.QueueDropped()
		slog.Warn("outbound queue full; dropping oldest",
			slog.String("platform", string(platform)),
			slog.String("author", dropped.Author))
	}
	q.queues[platform] = append(sub, item)
	depth := q.depthLocked()
	q.mu.Unlock()

	telemetry.SetQueueDepth(depth)
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Dequeue blocks until an item is available or ctx is canceled. It is meant
// for a single consumer; platforms are drained round-robin, each platform's
// items in arrival order.
func (q *Queue) Dequeue(ctx context.Context) (OutboundItem, bool) {
	for {
		if item, ok := q.tryPop(); ok {
			return item, true
		}
		select {
		case <-ctx.Done():
			return OutboundItem{}, false
		case <-q.signal:
		}
	}
}

func (q *Queue) tryPop() (OutboundItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.order)
	for i := 0; i < n; i++ {
		p := q.order[(q.next+i)%n]
		sub := q.queues[p]
		if len(sub) == 0 {
			continue
		}
		item := sub[0]
		q.queues[p] = sub[1:]
		q.next = (q.next + i + 1) % n
		telemetry.SetQueueDepth(q.depthLocked())
		return item, true
	}
	return OutboundItem{}, false
}

// Depth returns the total number of buffered items across platforms.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.depthLocked()
}

func (q *Queue) depthLocked() int {
	total := 0
	for _, sub := range q.queues {
		total += len(sub)
	}
	return total
}
