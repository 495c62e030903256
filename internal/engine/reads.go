package engine

import (
	"fenrir/internal/domain"
	"fenrir/internal/persistence"
)

// OrderDetail is the resident-order view returned by GetOrderResident, including
// its trade history.
type OrderDetail struct {
	Order  domain.Order
	Trades []domain.Trade
}

// GetOrderResident looks up an order that is still in memory, applying
// lazy expiration if its validity window has passed. Returns ok=false if
// the order isn't resident (caller should fall back to the durable
// store). Returns Forbidden if callerBrokerID doesn't own the order.
func (e *Engine) GetOrderResident(orderID, callerBrokerID string) (OrderDetail, bool, *domain.Error) {
	var detail OrderDetail
	var resident bool
	var forbidden bool

	e.do(func() {
		o, ok := e.state.Order(orderID)
		if !ok {
			return
		}
		resident = true

		if o.BrokerID != callerBrokerID {
			forbidden = true
			return
		}

		if o.IsOpen() && o.Expired(e.clock()) {
			e.book.Remove(o)
			o.Close()
			e.queue.EnqueueOrderUpdate(persistence.OrderUpdateItem{
				OrderID:           o.OrderID,
				Status:            o.Status,
				RemainingQuantity: o.RemainingQuantity,
			})
		}

		detail = OrderDetail{
			Order:  o.Clone(),
			Trades: append([]domain.Trade(nil), e.state.TradesForOrder(orderID)...),
		}
	})

	if forbidden {
		return OrderDetail{}, true, domain.ForbiddenErrorf("order %s does not belong to broker %s", orderID, callerBrokerID)
	}
	return detail, resident, nil
}

// LevelDepth is a single price level of a book-depth response.
type LevelDepth struct {
	Price         int64
	TotalQuantity int64
	OrderCount    int
}

// BookDepth walks the requested side best-first, up to levels deep.
func (e *Engine) BookDepth(symbol string, side domain.Side, levels int) []LevelDepth {
	var out []LevelDepth
	e.do(func() {
		for _, lvl := range e.book.Depth(symbol, side, levels) {
			out = append(out, LevelDepth{
				Price:         lvl.Price,
				TotalQuantity: lvl.TotalQuantity(),
				OrderCount:    lvl.OrderCount(),
			})
		}
	})
	return out
}

// PriceSummary is the response shape for a symbol's recent-price query.
type PriceSummary struct {
	LastPrice       int64
	AveragePrice    int64
	TradesInAverage int
}

// Price returns a summary over the last k trade prices for symbol. ok is
// false if the symbol has no recorded trades.
func (e *Engine) Price(symbol string, k int) (PriceSummary, bool) {
	var summary PriceSummary
	var ok bool
	e.do(func() {
		prices, found := e.state.LastPrices(symbol, k)
		if !found {
			return
		}
		ok = true
		var sum int64
		for _, p := range prices {
			sum += p
		}
		summary = PriceSummary{
			LastPrice:       prices[len(prices)-1],
			AveragePrice:    sum / int64(len(prices)),
			TradesInAverage: len(prices),
		}
	})
	return summary, ok
}

// Balance returns a broker's resident balance and display name.
func (e *Engine) Balance(brokerID string) (name string, balance int64, ok bool) {
	e.do(func() {
		b, found := e.state.BrokerByID(brokerID)
		if !found {
			return
		}
		ok = true
		name = b.Name
		balance = b.Balance
	})
	return
}

// BrokerByAPIKeyHash resolves a broker from the sha256 hash of a bearer
// token, for the broker-auth middleware.
func (e *Engine) BrokerByAPIKeyHash(hash string) (domain.Broker, bool) {
	var b domain.Broker
	var ok bool
	e.do(func() {
		found, foundOk := e.state.BrokerByKeyHash(hash)
		if foundOk {
			b, ok = *found, true
		}
	})
	return b, ok
}

// RegisterBroker makes a freshly-created broker resident. The caller is
// responsible for persisting it durably first (registration is
// synchronous, unlike order submission).
func (e *Engine) RegisterBroker(b domain.Broker) {
	e.do(func() { e.state.PutBroker(&b) })
}

// EvictOrder drops a closed order from residency. Satisfies
// internal/persistence.Evictor; called from the flush loop's goroutine
// after a commit, so it must serialize through the command channel like
// every other mutation.
func (e *Engine) EvictOrder(orderID string) {
	e.do(func() { e.state.EvictOrder(orderID) })
}

// BrokerByID looks up a broker by id. Satisfies internal/persistence.Evictor.
func (e *Engine) BrokerByID(id string) (*domain.Broker, bool) {
	var b *domain.Broker
	var ok bool
	e.do(func() { b, ok = e.state.BrokerByID(id) })
	return b, ok
}
