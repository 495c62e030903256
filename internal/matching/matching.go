// Package matching implements the price-time matching algorithm: crossing
// an incoming order against the resting side of the book, producing trades
// in price-time priority, closing fully-filled or expired counterparties,
// and applying immediate-or-cancel semantics to market orders. Matching
// sweeps the book's best price level while incoming and resting orders
// cross, lazily expiring stale counterparties it encounters along the way,
// and returns the produced trades by value rather than via a callback.
package matching

import (
	"time"

	"fenrir/internal/book"
	"fenrir/internal/domain"
)

// Result is everything a single Match call produced: the trades executed in
// order, and the counterparties discovered to be expired and closed along
// the way (neither traded against nor returned to the book).
type Result struct {
	Trades  []domain.Trade
	Expired []*domain.Order
}

// NewTradeID is overridden in tests; production code supplies a real
// generator (see internal/engine).
type NewTradeID func() string

// Match crosses incoming against the opposite side of b for incoming.Symbol,
// mutating incoming and every counterparty's RemainingQuantity/Status in
// place, and removing fully-filled or expired counterparties from b. If
// incoming has remaining quantity after the sweep: a market order is closed
// (IOC cancel of the remainder); a limit order is inserted into its side of
// the book. now is passed in (not time.Now()) so expiration is deterministic
// under test.
func Match(b *book.Book, incoming *domain.Order, now time.Time, newTradeID NewTradeID) (Result, error) {
	if !incoming.IsOpen() {
		return Result{}, domain.NewInvariantViolation("matcher called with closed incoming order %s", incoming.OrderID)
	}

	opposite := domain.Ask
	if incoming.Side == domain.Ask {
		opposite = domain.Bid
	}

	var res Result

	for incoming.RemainingQuantity > 0 {
		lvl, ok := b.Best(incoming.Symbol, opposite)
		if !ok {
			break
		}

		if incoming.OrderType == domain.Limit && crossed(incoming, lvl.Price) {
			break
		}

		counter := lvl.Front()
		if counter == nil {
			// The level should never be empty here (Book prunes empty
			// levels), but guard against it rather than loop forever.
			break
		}

		if counter.Expired(now) {
			b.PopFront(incoming.Symbol, opposite, lvl.Price)
			counter.Close()
			res.Expired = append(res.Expired, counter)
			continue
		}

		qty := min(incoming.RemainingQuantity, counter.RemainingQuantity)
		price := sellerPrice(incoming, counter)

		trade := buildTrade(incoming, counter, qty, price, now, newTradeID())
		res.Trades = append(res.Trades, trade)

		incoming.RemainingQuantity -= qty
		counter.RemainingQuantity -= qty

		if counter.RemainingQuantity == 0 {
			counter.Close()
			b.PopFront(incoming.Symbol, opposite, lvl.Price)
		}
	}

	if incoming.RemainingQuantity > 0 {
		if incoming.OrderType == domain.Market {
			// Immediate-or-cancel: the unmatched remainder does not rest.
			incoming.Close()
		} else if err := b.Insert(incoming); err != nil {
			return res, err
		}
	} else {
		incoming.Close()
	}

	return res, nil
}

// crossed reports whether a limit order's price no longer reaches the
// resting counterparty's best price — i.e. matching should stop.
func crossed(incoming *domain.Order, bestCounterPrice int64) bool {
	limitPrice := *incoming.Price
	if incoming.Side == domain.Bid {
		return bestCounterPrice > limitPrice
	}
	return bestCounterPrice < limitPrice
}

// sellerPrice implements the seller-price rule: the execution price is the
// seller's order price whenever the seller has one (a resting ask, or an
// incoming ask with a limit price), and otherwise the buyer's resting
// price (a market sell matching a resting bid).
func sellerPrice(incoming, counter *domain.Order) int64 {
	if incoming.Side == domain.Ask {
		if incoming.Price != nil {
			return *incoming.Price
		}
		return *counter.Price
	}
	return *counter.Price
}

func buildTrade(incoming, counter *domain.Order, qty, price int64, now time.Time, tradeID string) domain.Trade {
	buy, sell := incoming, counter
	if incoming.Side == domain.Ask {
		buy, sell = counter, incoming
	}
	return domain.Trade{
		TradeID:        tradeID,
		BuyOrderID:     buy.OrderID,
		SellOrderID:    sell.OrderID,
		Symbol:         incoming.Symbol,
		Price:          price,
		Quantity:       qty,
		BuyerBrokerID:  buy.BrokerID,
		SellerBrokerID: sell.BrokerID,
		CreatedAt:      now,
	}
}

