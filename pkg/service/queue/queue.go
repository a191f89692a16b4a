package queue

import (
	"context"
	"sync"

	"github.com/unread-lab/catchup/pkg/domain/interfaces"
	"github.com/unread-lab/catchup/pkg/domain/model"
	"github.com/unread-lab/catchup/pkg/utils/logging"
)

// DefaultCapacity bounds the pending summaries when no capacity is given
const DefaultCapacity = 64

// queue is a bounded in-process buffer between the polling pipeline and the
// presentation layer. Publish drops the oldest entry on overflow so a stalled
// consumer never blocks the poller.
type queue struct {
	mu       sync.Mutex
	items    []*model.ChannelSummary
	capacity int
	closed   bool
}

var _ interfaces.DeliveryQueue = &queue{}

// New creates a delivery queue holding at most capacity summaries
func New(capacity int) interfaces.DeliveryQueue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &queue{capacity: capacity}
}

func (q *queue) Publish(ctx context.Context, summary *model.ChannelSummary) {
	if summary == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}

	if len(q.items) >= q.capacity {
		dropped := q.items[0]
		q.items = q.items[1:]
		logging.From(ctx).Warn("delivery queue full, dropping oldest summary",
			"channel", dropped.ChannelName, "capacity", q.capacity)
	}
	q.items = append(q.items, summary)
}

func (q *queue) Poll() (*model.ChannelSummary, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}

	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

func (q *queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
