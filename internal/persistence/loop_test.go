package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/domain"
)

type fakeStore struct {
	batches []Batch
	err     error
}

func (f *fakeStore) Flush(_ context.Context, b Batch) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, b)
	return nil
}

type fakeEvictor struct {
	evicted []string
	brokers map[string]*domain.Broker
}

func newFakeEvictor() *fakeEvictor {
	return &fakeEvictor{brokers: make(map[string]*domain.Broker)}
}

func (f *fakeEvictor) EvictOrder(orderID string) { f.evicted = append(f.evicted, orderID) }

func (f *fakeEvictor) BrokerByID(id string) (*domain.Broker, bool) {
	b, ok := f.brokers[id]
	return b, ok
}

type dispatched struct {
	trade      domain.Trade
	side       domain.Side
	webhookURL string
}

type fakeDispatcher struct {
	calls []dispatched
}

func (f *fakeDispatcher) DispatchTrade(t domain.Trade, side domain.Side, webhookURL string, _ int64) {
	f.calls = append(f.calls, dispatched{trade: t, side: side, webhookURL: webhookURL})
}

func TestTickNoopsOnEmptyQueue(t *testing.T) {
	queue := NewQueue()
	store := &fakeStore{}
	loop := NewLoop(queue, store, newFakeEvictor(), &fakeDispatcher{})

	loop.tick(context.Background())
	assert.Empty(t, store.batches)
}

func TestTickFlushesEvictsAndDispatchesWebhooks(t *testing.T) {
	queue := NewQueue()
	store := &fakeStore{}
	evictor := newFakeEvictor()
	evictor.brokers["buyer"] = &domain.Broker{BrokerID: "buyer", WebhookURL: "https://buyer.example/hook"}
	evictor.brokers["seller"] = &domain.Broker{BrokerID: "seller"} // no webhook url
	dispatcher := &fakeDispatcher{}
	loop := NewLoop(queue, store, evictor, dispatcher)

	queue.EnqueueNewOrder(NewOrderItem{Order: domain.Order{OrderID: "o1"}})
	queue.EnqueueTrade(TradeItem{Trade: domain.Trade{TradeID: "t1", BuyerBrokerID: "buyer", SellerBrokerID: "seller"}})
	queue.EnqueueOrderUpdate(OrderUpdateItem{OrderID: "o1", Status: domain.Closed})
	queue.EnqueueOrderUpdate(OrderUpdateItem{OrderID: "o2", Status: domain.Open})

	loop.tick(context.Background())

	require.Len(t, store.batches, 1)
	assert.Len(t, store.batches[0].NewOrders, 1)
	assert.Len(t, store.batches[0].Trades, 1)
	assert.Len(t, store.batches[0].OrderUpdates, 2)

	assert.Equal(t, []string{"o1"}, evictor.evicted, "only the closed update evicts; the open one stays resident")

	require.Len(t, dispatcher.calls, 1, "only the buyer has a webhook url configured")
	assert.Equal(t, "https://buyer.example/hook", dispatcher.calls[0].webhookURL)
	assert.Equal(t, domain.Bid, dispatcher.calls[0].side)
}

func TestTickDropsBatchOnFlushFailureWithoutSideEffects(t *testing.T) {
	queue := NewQueue()
	store := &fakeStore{err: errors.New("transaction failed")}
	evictor := newFakeEvictor()
	dispatcher := &fakeDispatcher{}
	loop := NewLoop(queue, store, evictor, dispatcher)

	queue.EnqueueOrderUpdate(OrderUpdateItem{OrderID: "o1", Status: domain.Closed})

	loop.tick(context.Background())

	assert.Empty(t, evictor.evicted, "a failed flush must not evict — the update was never durably committed")
	assert.Empty(t, dispatcher.calls)

	// The batch was still drained (acknowledged), so a subsequent tick sees
	// nothing left queued — this is the documented durability-loss window.
	queue.EnqueueNewOrder(NewOrderItem{Order: domain.Order{OrderID: "o2"}})
	store.err = nil
	loop.tick(context.Background())
	require.Len(t, store.batches, 1)
	assert.Equal(t, "o2", store.batches[0].NewOrders[0].Order.OrderID)
}

func TestTickWaitReleasesAfterDrain(t *testing.T) {
	queue := NewQueue()
	store := &fakeStore{}
	loop := NewLoop(queue, store, newFakeEvictor(), &fakeDispatcher{})

	queue.EnqueueNewOrder(NewOrderItem{Order: domain.Order{OrderID: "o1"}})
	loop.tick(context.Background())

	done := make(chan struct{})
	go func() {
		queue.Wait()
		close(done)
	}()
	<-done
}
