package persistence

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"fenrir/internal/domain"
)

// tickInterval is the flush cadence. The spec calls for "≈ 30ms"; kept as
// a var (not const) so tests can drive the loop with a tomb-friendly
// interval without waiting on real wall-clock ticks in CI.
var tickInterval = 30 * time.Millisecond

// Store is the durable relational store's contract. A single call to
// Flush must apply NewOrders, then Trades, then OrderUpdates, then the
// balance deltas implied by Trades, all inside one transaction. See
// internal/store for the gorm-backed implementation.
type Store interface {
	Flush(ctx context.Context, batch Batch) error
}

// Evictor is the subset of in-memory state the flush loop touches after a
// successful commit: evicting closed orders, and resolving a broker's
// webhook URL for delivery. Balances are already authoritative in memory
// (applied synchronously at submit time) — the flush loop only persists
// the same deltas durably, it never re-applies them to memory.
type Evictor interface {
	EvictOrder(orderID string)
	BrokerByID(id string) (*domain.Broker, bool)
}

// WebhookDispatcher fires a best-effort, fire-and-forget notification for
// one side of a trade. Implemented by internal/webhook.Dispatcher; declared
// here as the minimal interface the loop needs to avoid an import cycle.
type WebhookDispatcher interface {
	DispatchTrade(t domain.Trade, side domain.Side, webhookURL string, orderRemainingQuantity int64)
}

// Loop is the background write-behind flush loop.
type Loop struct {
	queue    *Queue
	store    Store
	evictor  Evictor
	webhooks WebhookDispatcher
}

// NewLoop constructs a flush loop. Call Start to begin ticking.
func NewLoop(queue *Queue, store Store, evictor Evictor, webhooks WebhookDispatcher) *Loop {
	return &Loop{queue: queue, store: store, evictor: evictor, webhooks: webhooks}
}

// Start runs the loop under t until the tomb dies, performing one final
// best-effort drain+flush before returning. ctx is used for the store call
// on each tick; it is expected to be the context tomb.WithContext(parent)
// returned alongside t.
func (l *Loop) Start(t *tomb.Tomb, ctx context.Context) {
	t.Go(func() error {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-t.Dying():
				l.tick(ctx)
				return nil
			case <-ticker.C:
				l.tick(ctx)
			}
		}
	})
}

// tick drains the queue, flushes the batch transactionally, and on success
// fires webhooks and evicts closed orders. A flush failure is logged and
// the batch is dropped — a known durability-loss window — but in-memory
// state remains correct either way.
func (l *Loop) tick(ctx context.Context) {
	batch, n := l.queue.drain()
	if n == 0 {
		return
	}
	defer l.queue.done(n)

	if err := l.store.Flush(ctx, batch); err != nil {
		log.Error().Err(err).
			Int("newOrders", len(batch.NewOrders)).
			Int("trades", len(batch.Trades)).
			Int("orderUpdates", len(batch.OrderUpdates)).
			Msg("persistence flush failed, dropping batch")
		return
	}

	for _, t := range batch.Trades {
		l.dispatchWebhooks(t)
	}

	for _, u := range batch.OrderUpdates {
		if u.Status == domain.Closed {
			l.evictor.EvictOrder(u.OrderID)
		}
	}
}

func (l *Loop) dispatchWebhooks(t TradeItem) {
	if buyer, ok := l.evictor.BrokerByID(t.Trade.BuyerBrokerID); ok && buyer.WebhookURL != "" {
		l.webhooks.DispatchTrade(t.Trade, domain.Bid, buyer.WebhookURL, t.BuyerRemaining)
	}
	if seller, ok := l.evictor.BrokerByID(t.Trade.SellerBrokerID); ok && seller.WebhookURL != "" {
		l.webhooks.DispatchTrade(t.Trade, domain.Ask, seller.WebhookURL, t.SellerRemaining)
	}
}
