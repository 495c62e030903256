// Package book implements the per-symbol, price-indexed order book: a
// sorted map from price to a FIFO queue of resting orders, one such map per
// side per symbol. Price levels are indexed with github.com/tidwall/btree's
// generic BTreeG, keyed on integer-cents prices, giving O(log n) best-price
// lookup and insertion per (symbol, side).
package book

import (
	"github.com/tidwall/btree"

	"fenrir/internal/domain"
)

// side holds the price-ordered levels for one side of one symbol's book.
type side struct {
	levels     *btree.BTreeG[*Level]
	descending bool
}

func newSide(descending bool) *side {
	less := func(a, b *Level) bool { return a.Price < b.Price }
	if descending {
		less = func(a, b *Level) bool { return a.Price > b.Price }
	}
	return &side{levels: btree.NewBTreeG(less), descending: descending}
}

func (s *side) level(price int64) (*Level, bool) {
	return s.levels.Get(&Level{Price: price})
}

func (s *side) levelOrCreate(price int64) *Level {
	if lvl, ok := s.levels.Get(&Level{Price: price}); ok {
		return lvl
	}
	lvl := &Level{Price: price}
	s.levels.Set(lvl)
	return lvl
}

func (s *side) best() (*Level, bool) {
	lvl, ok := s.levels.Min()
	if !ok || lvl.Empty() {
		return nil, false
	}
	return lvl, true
}

func (s *side) dropIfEmpty(lvl *Level) {
	if lvl.Empty() {
		s.levels.Delete(lvl)
	}
}

// Book is the full exchange order book, keyed by symbol.
type Book struct {
	symbols map[string]*symbolSides
}

type symbolSides struct {
	bids *side // descending: highest bid first
	asks *side // ascending: lowest ask first
}

// New returns an empty book.
func New() *Book {
	return &Book{symbols: make(map[string]*symbolSides)}
}

func (b *Book) symbol(sym string) *symbolSides {
	s, ok := b.symbols[sym]
	if !ok {
		s = &symbolSides{bids: newSide(true), asks: newSide(false)}
		b.symbols[sym] = s
	}
	return s
}

func (b *Book) sideFor(sym string, sd domain.Side) *side {
	s := b.symbol(sym)
	if sd == domain.Bid {
		return s.bids
	}
	return s.asks
}

// Insert appends an order to the tail of its (symbol, side, price) queue.
// The order must be open and carry a non-nil Price; inserting a closed or
// market order is a caller bug.
func (b *Book) Insert(o *domain.Order) error {
	if !o.IsOpen() {
		return domain.NewInvariantViolation("cannot insert closed order %s into book", o.OrderID)
	}
	if o.Price == nil {
		return domain.NewInvariantViolation("cannot insert order %s with no price into book", o.OrderID)
	}
	b.sideFor(o.Symbol, o.Side).levelOrCreate(*o.Price).Push(o)
	return nil
}

// Best returns the best (lowest ask / highest bid) level for a symbol's
// side, or ok=false if that side is empty. An empty level is never
// returned — a level whose last order was popped is pruned immediately.
func (b *Book) Best(sym string, sd domain.Side) (*Level, bool) {
	return b.sideFor(sym, sd).best()
}

// PopFront removes and returns the head order of the queue at the given
// price, deleting the level if it becomes empty.
func (b *Book) PopFront(sym string, sd domain.Side, price int64) *domain.Order {
	s := b.sideFor(sym, sd)
	lvl, ok := s.level(price)
	if !ok {
		return nil
	}
	o := lvl.PopFront()
	s.dropIfEmpty(lvl)
	return o
}

// Remove excises a specific resting order from the book. No-op (returns
// false) if the order isn't resting at its recorded price — e.g. already
// matched away.
func (b *Book) Remove(o *domain.Order) bool {
	if o.Price == nil {
		return false
	}
	s := b.sideFor(o.Symbol, o.Side)
	lvl, ok := s.level(*o.Price)
	if !ok {
		return false
	}
	removed := lvl.Remove(o.OrderID)
	s.dropIfEmpty(lvl)
	return removed
}

// Depth walks the requested side best-first (asks ascending, bids
// descending) up to levels deep, returning a value snapshot safe to
// serialize.
func (b *Book) Depth(sym string, sd domain.Side, levels int) []Level {
	s := b.sideFor(sym, sd)
	out := make([]Level, 0, levels)
	s.levels.Scan(func(lvl *Level) bool {
		if len(out) >= levels {
			return false
		}
		out = append(out, Level{Price: lvl.Price, orders: lvl.Orders()})
		return true
	})
	return out
}

// Clear drops all book state for every symbol.
func (b *Book) Clear() {
	b.symbols = make(map[string]*symbolSides)
}
