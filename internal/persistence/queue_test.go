package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/domain"
)

func TestDrainEmptyQueueReturnsZero(t *testing.T) {
	q := NewQueue()
	batch, n := q.drain()
	assert.Equal(t, 0, n)
	assert.True(t, batch.Empty())
}

func TestDrainPreservesKindOrdering(t *testing.T) {
	q := NewQueue()
	q.EnqueueOrderUpdate(OrderUpdateItem{OrderID: "o1", Status: domain.Closed})
	q.EnqueueNewOrder(NewOrderItem{Order: domain.Order{OrderID: "o2"}})
	q.EnqueueTrade(TradeItem{Trade: domain.Trade{TradeID: "t1"}})

	batch, n := q.drain()
	require.Equal(t, 3, n)
	require.Len(t, batch.NewOrders, 1)
	require.Len(t, batch.Trades, 1)
	require.Len(t, batch.OrderUpdates, 1)
	assert.Equal(t, "o2", batch.NewOrders[0].Order.OrderID)
	assert.Equal(t, "t1", batch.Trades[0].Trade.TradeID)
	assert.Equal(t, "o1", batch.OrderUpdates[0].OrderID)
}

func TestDrainDedupsOrderUpdatesKeepingLast(t *testing.T) {
	q := NewQueue()
	q.EnqueueOrderUpdate(OrderUpdateItem{OrderID: "o1", Status: domain.Open, RemainingQuantity: 100})
	q.EnqueueOrderUpdate(OrderUpdateItem{OrderID: "o2", Status: domain.Open, RemainingQuantity: 50})
	q.EnqueueOrderUpdate(OrderUpdateItem{OrderID: "o1", Status: domain.Closed, RemainingQuantity: 0})

	batch, n := q.drain()
	assert.Equal(t, 3, n, "drain count reflects items consumed, not deduped count")
	require.Len(t, batch.OrderUpdates, 2)

	byID := make(map[string]OrderUpdateItem)
	for _, u := range batch.OrderUpdates {
		byID[u.OrderID] = u
	}
	assert.Equal(t, domain.Closed, byID["o1"].Status)
	assert.Equal(t, int64(0), byID["o1"].RemainingQuantity)
	assert.Equal(t, domain.Open, byID["o2"].Status)
}

func TestDrainIsDestructive(t *testing.T) {
	q := NewQueue()
	q.EnqueueNewOrder(NewOrderItem{Order: domain.Order{OrderID: "o1"}})
	_, n := q.drain()
	require.Equal(t, 1, n)

	_, n2 := q.drain()
	assert.Equal(t, 0, n2, "a second drain with nothing new enqueued sees an empty queue")
}

func TestWaitUnblocksAfterDone(t *testing.T) {
	q := NewQueue()
	q.EnqueueNewOrder(NewOrderItem{Order: domain.Order{OrderID: "o1"}})
	_, n := q.drain()

	waited := make(chan struct{})
	go func() {
		q.Wait()
		close(waited)
	}()

	q.done(n)

	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("Wait never returned after done() released the in-flight item")
	}
}
