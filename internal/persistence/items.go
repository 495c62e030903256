package persistence

import "fenrir/internal/domain"

// NewOrderItem is the pristine snapshot of an order taken at submit time,
// before the matcher has touched it, so a later OrderUpdate always refers
// to a row the durable store already has.
type NewOrderItem struct {
	Order domain.Order
}

// TradeItem is a trade plus both sides' post-trade remaining quantity,
// captured by value at the moment the trade was produced.
type TradeItem struct {
	Trade           domain.Trade
	BuyerRemaining  int64
	SellerRemaining int64
}

// OrderUpdateItem records an order's new status and remaining quantity.
// Multiple updates for the same order within a batch are deduplicated,
// keeping only the last.
type OrderUpdateItem struct {
	OrderID           string
	Status            domain.Status
	RemainingQuantity int64
}

// item is the sum type stored in the queue; exactly one of its fields is
// populated, discriminated by kind.
type item struct {
	kind        itemKind
	newOrder    NewOrderItem
	trade       TradeItem
	orderUpdate OrderUpdateItem
}

type itemKind int

const (
	kindNewOrder itemKind = iota
	kindTrade
	kindOrderUpdate
)

// Batch is a drained, deduplicated set of items ready to flush in a single
// transaction. Ordering is NewOrders, then Trades, then OrderUpdates so
// foreign keys resolve in the durable store.
type Batch struct {
	NewOrders    []NewOrderItem
	Trades       []TradeItem
	OrderUpdates []OrderUpdateItem
}

func (b Batch) Empty() bool {
	return len(b.NewOrders) == 0 && len(b.Trades) == 0 && len(b.OrderUpdates) == 0
}
