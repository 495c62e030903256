package engine

import (
	"time"

	"fenrir/internal/domain"
)

// Loader is the subset of internal/store.Store the startup restore needs.
// Declared here (rather than importing internal/store directly) so engine
// depends only on the read shape it actually uses.
type Loader interface {
	LoadBrokers() ([]domain.Broker, error)
	LoadOpenOrders(now time.Time) ([]domain.Order, error)
	LoadTradesForOrders(orderIDs []string) ([]domain.Trade, error)
	LoadRecentPrices(limit int) (map[string][]int64, error)
}

const recentPriceLoadLimit = 1000

// LoadFrom rebuilds in-memory state from a durable store: brokers, every
// open non-expired order (re-inserted into the book in created_at order to
// preserve FIFO within a price level), the trade history of those orders,
// and each symbol's recent-price ring. Must be called before Run, while no
// other goroutine can reach the engine.
func (e *Engine) LoadFrom(l Loader, now time.Time) error {
	brokers, err := l.LoadBrokers()
	if err != nil {
		return err
	}
	for i := range brokers {
		e.state.PutBroker(&brokers[i])
	}

	orders, err := l.LoadOpenOrders(now)
	if err != nil {
		return err
	}
	orderIDs := make([]string, len(orders))
	for i := range orders {
		o := &orders[i]
		orderIDs[i] = o.OrderID
		e.state.PutOrder(o)
		if err := e.book.Insert(o); err != nil {
			return err
		}
	}

	trades, err := l.LoadTradesForOrders(orderIDs)
	if err != nil {
		return err
	}
	for _, t := range trades {
		e.state.RecordTrade(t)
	}

	prices, err := l.LoadRecentPrices(recentPriceLoadLimit)
	if err != nil {
		return err
	}
	for symbol, ps := range prices {
		for _, p := range ps {
			e.state.RecordPrice(symbol, p)
		}
	}

	return nil
}
