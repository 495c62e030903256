package book

import "fenrir/internal/domain"

// Level holds every open order resting at a single (symbol, side, price)
// point, in FIFO arrival order. Orders are appended at Push and removed
// from the front by PopFront (the hot path, used by the matcher) or from
// anywhere by Remove (the cold path, used by cancel and lazy expiration).
type Level struct {
	Price  int64
	orders []*domain.Order
}

// Front returns the head of the queue without removing it, or nil if the
// level is empty.
func (l *Level) Front() *domain.Order {
	if len(l.orders) == 0 {
		return nil
	}
	return l.orders[0]
}

// Push appends an order to the tail of the queue.
func (l *Level) Push(o *domain.Order) {
	l.orders = append(l.orders, o)
}

// PopFront removes and returns the head of the queue.
func (l *Level) PopFront() *domain.Order {
	if len(l.orders) == 0 {
		return nil
	}
	o := l.orders[0]
	l.orders = l.orders[1:]
	return o
}

// Remove excises a specific order from the queue, wherever it sits. O(N)
// in the level's size; used only off the matching hot path (cancel,
// lazy expiration on read).
func (l *Level) Remove(orderID string) bool {
	for i, o := range l.orders {
		if o.OrderID == orderID {
			l.orders = append(l.orders[:i], l.orders[i+1:]...)
			return true
		}
	}
	return false
}

// Empty reports whether the level has no resting orders left.
func (l *Level) Empty() bool {
	return len(l.orders) == 0
}

// TotalQuantity sums RemainingQuantity across every order at this level.
func (l *Level) TotalQuantity() int64 {
	var total int64
	for _, o := range l.orders {
		total += o.RemainingQuantity
	}
	return total
}

// OrderCount returns the number of orders resting at this level.
func (l *Level) OrderCount() int {
	return len(l.orders)
}

// Orders returns the resting orders in FIFO order. Callers must not mutate
// the returned slice.
func (l *Level) Orders() []*domain.Order {
	return l.orders
}
