package domain

import "time"

// Trade is an immutable record of a single match between a bid and an ask.
// Price and Quantity are always positive; the roles are fixed at creation
// time by the matcher, never re-derived.
type Trade struct {
	TradeID        string
	BuyOrderID     string
	SellOrderID    string
	Symbol         string
	Price          int64
	Quantity       int64
	BuyerBrokerID  string
	SellerBrokerID string
	CreatedAt      time.Time
}

// Notional returns price * quantity, the cash amount that moves between the
// buyer and seller's balances.
func (t Trade) Notional() int64 {
	return t.Price * t.Quantity
}
