// Package state holds the exchange's authoritative in-memory read model:
// orders by id, brokers by id and by API-key hash, the trades touching
// each resident order, and each symbol's recent-trade-price ring. None of
// it is safe for concurrent use — like the book, it is owned exclusively
// by the single engine-loop goroutine (see internal/engine) and requires
// no locking as a result.
package state

import "fenrir/internal/domain"

// ringCapacity bounds how many recent trade prices a symbol remembers.
const ringCapacity = 1000

// priceRing is a bounded FIFO of trade prices in arrival order.
type priceRing struct {
	prices []int64
}

func (r *priceRing) push(price int64) {
	r.prices = append(r.prices, price)
	if len(r.prices) > ringCapacity {
		r.prices = r.prices[len(r.prices)-ringCapacity:]
	}
}

// last returns up to k most recent prices, most-recent-last.
func (r *priceRing) last(k int) []int64 {
	if k > len(r.prices) {
		k = len(r.prices)
	}
	return r.prices[len(r.prices)-k:]
}

// State is the exchange's in-memory state, excluding the book itself
// (which lives in internal/book and is indexed differently).
type State struct {
	orders        map[string]*domain.Order
	brokersByID   map[string]*domain.Broker
	brokersByKey  map[string]*domain.Broker // keyed by api_key_hash
	tradesByOrder map[string][]domain.Trade
	prices        map[string]*priceRing
}

// New returns an empty State.
func New() *State {
	return &State{
		orders:        make(map[string]*domain.Order),
		brokersByID:   make(map[string]*domain.Broker),
		brokersByKey:  make(map[string]*domain.Broker),
		tradesByOrder: make(map[string][]domain.Trade),
		prices:        make(map[string]*priceRing),
	}
}

// Clear drops all resident state, as performed by /debug/reset.
func (s *State) Clear() {
	s.orders = make(map[string]*domain.Order)
	s.brokersByID = make(map[string]*domain.Broker)
	s.brokersByKey = make(map[string]*domain.Broker)
	s.tradesByOrder = make(map[string][]domain.Trade)
	s.prices = make(map[string]*priceRing)
}

// --- orders ---

// PutOrder makes o resident in memory under its id.
func (s *State) PutOrder(o *domain.Order) {
	s.orders[o.OrderID] = o
}

// Order returns the resident order for id, or ok=false for a cold or
// unknown id.
func (s *State) Order(id string) (*domain.Order, bool) {
	o, ok := s.orders[id]
	return o, ok
}

// EvictOrder removes an order from residency. Called only once the order's
// closed status has been durably committed; the order's trade history is
// evicted alongside it (the store serves it from then on).
func (s *State) EvictOrder(id string) {
	delete(s.orders, id)
	delete(s.tradesByOrder, id)
}

// --- brokers ---

// PutBroker makes a broker resident, indexed both by id and by key hash.
func (s *State) PutBroker(b *domain.Broker) {
	s.brokersByID[b.BrokerID] = b
	s.brokersByKey[b.APIKeyHash] = b
}

// BrokerByID looks up a broker by id.
func (s *State) BrokerByID(id string) (*domain.Broker, bool) {
	b, ok := s.brokersByID[id]
	return b, ok
}

// BrokerByKeyHash looks up a broker by the sha256 hash of its API key.
func (s *State) BrokerByKeyHash(hash string) (*domain.Broker, bool) {
	b, ok := s.brokersByKey[hash]
	return b, ok
}

// ApplyBalanceDelta adjusts a resident broker's balance. The broker must
// already be resident (brokers are loaded wholesale at startup and never
// evicted).
func (s *State) ApplyBalanceDelta(brokerID string, delta int64) {
	if b, ok := s.brokersByID[brokerID]; ok {
		b.Balance += delta
	}
}

// --- trades-by-order ---

// RecordTrade appends t to the trade history of both its buy and sell
// order, for whichever of the two remain resident.
func (s *State) RecordTrade(t domain.Trade) {
	if _, ok := s.orders[t.BuyOrderID]; ok {
		s.tradesByOrder[t.BuyOrderID] = append(s.tradesByOrder[t.BuyOrderID], t)
	}
	if _, ok := s.orders[t.SellOrderID]; ok {
		s.tradesByOrder[t.SellOrderID] = append(s.tradesByOrder[t.SellOrderID], t)
	}
}

// TradesForOrder returns the in-memory trade history for a resident order.
func (s *State) TradesForOrder(orderID string) []domain.Trade {
	return s.tradesByOrder[orderID]
}

// --- price ring ---

// RecordPrice pushes a trade price into its symbol's recent-price ring.
func (s *State) RecordPrice(symbol string, price int64) {
	r, ok := s.prices[symbol]
	if !ok {
		r = &priceRing{}
		s.prices[symbol] = r
	}
	r.push(price)
}

// LastPrices returns up to k of the most recent trade prices for a symbol,
// oldest-first among the returned window, or ok=false if the symbol has no
// recorded trades.
func (s *State) LastPrices(symbol string, k int) ([]int64, bool) {
	r, ok := s.prices[symbol]
	if !ok || len(r.prices) == 0 {
		return nil, false
	}
	return r.last(k), true
}
