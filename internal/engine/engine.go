// Package engine is the single-executor heart of the exchange: one
// goroutine owns the order book and in-memory state, and every mutating
// operation (submit, cancel) runs as a closure dispatched onto that
// goroutine's command channel, so concurrent callers serialize naturally
// without a mutex. Reads that can be answered from memory go through the
// same channel; reads that miss (cold orders) fall back to the durable
// store outside the engine goroutine, since store access doesn't need
// serializing against in-memory mutation.
package engine

import (
	"time"

	"github.com/google/uuid"
	tomb "gopkg.in/tomb.v2"

	"fenrir/internal/book"
	"fenrir/internal/domain"
	"fenrir/internal/matching"
	"fenrir/internal/persistence"
	"fenrir/internal/state"
)

// Clock is overridable for deterministic tests (expiration scenarios in
// particular need to control "now").
type Clock func() time.Time

// Engine ties the book, in-memory state, and persistence queue together
// behind a single-goroutine command loop.
type Engine struct {
	book  *book.Book
	state *state.State
	queue *persistence.Queue
	clock Clock
	cmds  chan func()
}

// New constructs an Engine. Call Run to start its command loop before
// issuing any operation.
func New(queue *persistence.Queue) *Engine {
	return &Engine{
		book:  book.New(),
		state: state.New(),
		queue: queue,
		clock: time.Now,
		cmds:  make(chan func()),
	}
}

// SetClock overrides the engine's notion of "now"; used by tests of
// expiration behavior.
func (e *Engine) SetClock(c Clock) {
	e.do(func() { e.clock = c })
}

// Run starts the engine's single command-processing goroutine under t. All
// public Engine methods block until their closure has executed on this
// goroutine.
func (e *Engine) Run(t *tomb.Tomb) {
	t.Go(func() error {
		for {
			select {
			case <-t.Dying():
				return nil
			case cmd := <-e.cmds:
				cmd()
			}
		}
	})
}

// do dispatches fn onto the engine's command goroutine and blocks until it
// has run, giving every exported Engine method serialized access to book
// and state without a mutex.
func (e *Engine) do(fn func()) {
	done := make(chan struct{})
	e.cmds <- func() {
		fn()
		close(done)
	}
	<-done
}

// OrderCreate is the validated input to Submit.
type OrderCreate struct {
	BrokerID       string
	DocumentNumber string
	Side           domain.Side
	OrderType      domain.OrderType
	Symbol         string
	Price          *int64
	Quantity       int64
	ValidUntil     *time.Time
}

// Submit validates, creates, matches and enqueues persistence items for a
// new order, returning its fresh id.
func (e *Engine) Submit(in OrderCreate) (string, *domain.Error) {
	if err := validateOrderCreate(in); err != nil {
		return "", err
	}

	var orderID string
	e.do(func() {
		now := e.clock()
		orderID = uuid.NewString()

		validUntil := now
		if in.OrderType == domain.Limit {
			validUntil = *in.ValidUntil
		}

		order := &domain.Order{
			OrderID:           orderID,
			BrokerID:          in.BrokerID,
			Symbol:            in.Symbol,
			Side:              in.Side,
			OrderType:         in.OrderType,
			Price:             in.Price,
			Quantity:          in.Quantity,
			RemainingQuantity: in.Quantity,
			Status:            domain.Open,
			DocumentNumber:    in.DocumentNumber,
			ValidUntil:        validUntil,
			CreatedAt:         now,
		}

		e.state.PutOrder(order)
		e.queue.EnqueueNewOrder(persistence.NewOrderItem{Order: order.Clone()})

		res, err := matching.Match(e.book, order, now, func() string { return uuid.NewString() })
		if err != nil {
			panic(err)
		}

		incomingRemaining := order.Quantity
		for _, trade := range res.Trades {
			incomingRemaining -= trade.Quantity
			e.applyTrade(trade, order.OrderID, incomingRemaining)
		}
		for _, o := range e.touchedOrders(order, res) {
			e.queue.EnqueueOrderUpdate(persistence.OrderUpdateItem{
				OrderID:           o.OrderID,
				Status:            o.Status,
				RemainingQuantity: o.RemainingQuantity,
			})
		}
	})

	return orderID, nil
}

// applyTrade updates in-memory balances, trade history and the symbol's
// price ring for a single executed trade. incomingRemaining is the incoming
// order's remaining quantity right after this trade; a counterparty takes
// part in at most one trade per match, so its current remaining quantity is
// already its post-trade value. Must run inside e.do.
func (e *Engine) applyTrade(t domain.Trade, incomingID string, incomingRemaining int64) {
	buyerRemaining := e.remainingOf(t.BuyOrderID)
	sellerRemaining := e.remainingOf(t.SellOrderID)
	if t.BuyOrderID == incomingID {
		buyerRemaining = incomingRemaining
	} else {
		sellerRemaining = incomingRemaining
	}
	e.queue.EnqueueTrade(persistence.TradeItem{
		Trade:           t,
		BuyerRemaining:  buyerRemaining,
		SellerRemaining: sellerRemaining,
	})
	e.state.ApplyBalanceDelta(t.BuyerBrokerID, -t.Notional())
	e.state.ApplyBalanceDelta(t.SellerBrokerID, t.Notional())
	e.state.RecordTrade(t)
	e.state.RecordPrice(t.Symbol, t.Price)
}

func (e *Engine) remainingOf(orderID string) int64 {
	if o, ok := e.state.Order(orderID); ok {
		return o.RemainingQuantity
	}
	return 0
}

// touchedOrders returns every order whose status or remaining quantity
// changed as a result of a submit: the incoming order, every counterparty
// traded against, and every counterparty closed by lazy expiration.
func (e *Engine) touchedOrders(incoming *domain.Order, res matching.Result) []*domain.Order {
	seen := make(map[string]bool)
	var out []*domain.Order
	add := func(o *domain.Order) {
		if !seen[o.OrderID] {
			seen[o.OrderID] = true
			out = append(out, o)
		}
	}
	add(incoming)
	for _, t := range res.Trades {
		if o, ok := e.state.Order(t.BuyOrderID); ok {
			add(o)
		}
		if o, ok := e.state.Order(t.SellOrderID); ok {
			add(o)
		}
	}
	for _, o := range res.Expired {
		add(o)
	}
	return out
}

func validateOrderCreate(in OrderCreate) *domain.Error {
	if in.Quantity <= 0 {
		return domain.ValidationErrorf("quantity must be positive")
	}
	switch in.OrderType {
	case domain.Limit:
		if in.Price == nil || *in.Price <= 0 {
			return domain.ValidationErrorf("limit orders require a positive price")
		}
		if in.ValidUntil == nil || !in.ValidUntil.After(time.Now()) {
			return domain.ValidationErrorf("limit orders require a valid_until strictly in the future")
		}
	case domain.Market:
		if in.Price != nil {
			return domain.ValidationErrorf("market orders must not supply a price")
		}
	default:
		return domain.ValidationErrorf("unknown order type")
	}
	if in.Symbol == "" {
		return domain.ValidationErrorf("symbol is required")
	}
	return nil
}

// Cancel closes a resident order and removes it from the book. A missing
// order is a silent no-op (already evicted or unknown); an already-closed
// order is also a no-op. Returns Forbidden if callerBrokerID doesn't own
// the order.
func (e *Engine) Cancel(orderID, callerBrokerID string) *domain.Error {
	var forbidden bool
	e.do(func() {
		o, ok := e.state.Order(orderID)
		if !ok {
			return
		}
		if o.BrokerID != callerBrokerID {
			forbidden = true
			return
		}
		if !o.IsOpen() {
			return
		}
		e.book.Remove(o)
		o.Close()
		e.queue.EnqueueOrderUpdate(persistence.OrderUpdateItem{
			OrderID:           o.OrderID,
			Status:            o.Status,
			RemainingQuantity: o.RemainingQuantity,
		})
	})
	if forbidden {
		return domain.ForbiddenErrorf("order %s does not belong to broker %s", orderID, callerBrokerID)
	}
	return nil
}

// Reset wipes all in-memory state (orders, book, brokers, trades, price
// rings). The caller is responsible for also wiping the durable store.
func (e *Engine) Reset() {
	e.do(func() {
		e.book.Clear()
		e.state.Clear()
	})
}
