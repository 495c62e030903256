// Package store is the durable relational adapter: a gorm.io/gorm
// connection (sqlite driver) satisfying internal/persistence.Store, plus
// the startup-loader queries and the cold-path order fallback read that
// let the rest of the engine remain ignorant of SQL entirely.
package store

import "time"

// brokerRow is the durable row for a broker. api_key_hash carries a unique
// index; the in-memory hash lookup (state.State.BrokerByKeyHash) is the
// read-side concern — this index exists for load-time dedup and integrity,
// not as a query path.
type brokerRow struct {
	ID         string `gorm:"column:id;primaryKey"`
	Name       string `gorm:"column:name"`
	APIKeyHash string `gorm:"column:api_key_hash;uniqueIndex"`
	WebhookURL string `gorm:"column:webhook_url"`
	Balance    int64  `gorm:"column:balance;default:0"`
}

func (brokerRow) TableName() string { return "brokers" }

// orderRow is the durable row for an order. Price is a nullable column
// (market orders carry no price). The composite index on
// (symbol, side, price, created_at) backs the cold-book query path; sqlite
// doesn't support gorm's partial-index syntax, so the WHERE status='open'
// condition is applied at query time instead of at the index level.
type orderRow struct {
	ID                string    `gorm:"column:id;primaryKey"`
	BrokerID          string    `gorm:"column:broker_id;index"`
	DocumentNumber    string    `gorm:"column:document_number"`
	Side              int       `gorm:"column:side;index:idx_orders_cold_book,priority:2"`
	OrderType         int       `gorm:"column:order_type"`
	Symbol            string    `gorm:"column:symbol;index:idx_orders_cold_book,priority:1"`
	Price             *int64    `gorm:"column:price;index:idx_orders_cold_book,priority:3"`
	Quantity          int64     `gorm:"column:quantity"`
	RemainingQuantity int64     `gorm:"column:remaining_quantity"`
	ValidUntil        time.Time `gorm:"column:valid_until"`
	Status            int       `gorm:"column:status;index"`
	CreatedAt         time.Time `gorm:"column:created_at;index:idx_orders_cold_book,priority:4"`
}

func (orderRow) TableName() string { return "orders" }

// tradeRow is the durable row for a trade.
type tradeRow struct {
	ID             string    `gorm:"column:id;primaryKey"`
	BuyOrderID     string    `gorm:"column:buy_order_id;index"`
	SellOrderID    string    `gorm:"column:sell_order_id;index"`
	Symbol         string    `gorm:"column:symbol;index:idx_trades_symbol_time,priority:1"`
	Price          int64     `gorm:"column:price"`
	Quantity       int64     `gorm:"column:quantity"`
	BuyerBrokerID  string    `gorm:"column:buyer_broker_id"`
	SellerBrokerID string    `gorm:"column:seller_broker_id"`
	CreatedAt      time.Time `gorm:"column:created_at;index:idx_trades_symbol_time,priority:2"`
}

func (tradeRow) TableName() string { return "trades" }
