// Package persistence implements the write-behind pipeline: a single
// unbounded queue fed by the engine loop, and a background loop that
// periodically drains, deduplicates and transactionally flushes batches to
// the durable store, then fires webhooks and evicts closed orders from
// memory.
//
// The lifecycle discipline — a supervised background goroutine that ticks,
// does I/O, and observes cancellation between ticks — runs under a
// gopkg.in/tomb.v2 Tomb, the same way every other long-lived goroutine in
// this program is supervised.
package persistence

import "sync"

// Queue is the single producer (engine loop), single consumer (flush loop)
// FIFO of pending persistence items. It is safe for concurrent use because
// the producer and consumer run on different goroutines even though each
// side, individually, is single-threaded.
type Queue struct {
	mu    sync.Mutex
	items []item
	wg    sync.WaitGroup
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// EnqueueNewOrder records a pristine order snapshot.
func (q *Queue) EnqueueNewOrder(o NewOrderItem) {
	q.push(item{kind: kindNewOrder, newOrder: o})
}

// EnqueueTrade records a trade with both sides' post-trade remaining.
func (q *Queue) EnqueueTrade(t TradeItem) {
	q.push(item{kind: kindTrade, trade: t})
}

// EnqueueOrderUpdate records a status/remaining-quantity change.
func (q *Queue) EnqueueOrderUpdate(u OrderUpdateItem) {
	q.push(item{kind: kindOrderUpdate, orderUpdate: u})
}

func (q *Queue) push(it item) {
	q.wg.Add(1)
	q.mu.Lock()
	q.items = append(q.items, it)
	q.mu.Unlock()
}

// drain removes every currently-queued item and returns it as a
// deduplicated Batch, preserving NewOrder -> Trade -> OrderUpdate ordering.
// Returns an empty batch (and a zero count) if nothing was queued.
func (q *Queue) drain() (Batch, int) {
	q.mu.Lock()
	drained := q.items
	q.items = nil
	q.mu.Unlock()

	if len(drained) == 0 {
		return Batch{}, 0
	}

	var b Batch
	updates := make(map[string]OrderUpdateItem)
	var updateOrder []string
	for _, it := range drained {
		switch it.kind {
		case kindNewOrder:
			b.NewOrders = append(b.NewOrders, it.newOrder)
		case kindTrade:
			b.Trades = append(b.Trades, it.trade)
		case kindOrderUpdate:
			if _, exists := updates[it.orderUpdate.OrderID]; !exists {
				updateOrder = append(updateOrder, it.orderUpdate.OrderID)
			}
			updates[it.orderUpdate.OrderID] = it.orderUpdate
		}
	}
	for _, id := range updateOrder {
		b.OrderUpdates = append(b.OrderUpdates, updates[id])
	}

	return b, len(drained)
}

// done marks n previously-enqueued items as processed, releasing any
// Wait() callers once their items have been accounted for.
func (q *Queue) done(n int) {
	for i := 0; i < n; i++ {
		q.wg.Done()
	}
}

// Wait blocks until every item enqueued before this call has been drained
// and flushed (or dropped on a failed flush — see Loop.tick). Used by
// graceful shutdown and by tests that need to observe durable state after
// a submit.
func (q *Queue) Wait() {
	q.wg.Wait()
}
