package store

import (
	"context"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"fenrir/internal/domain"
	"fenrir/internal/persistence"
)

// Store is the gorm-backed durable relational store. It satisfies
// internal/persistence.Store and adds the startup-loader and cold-read
// queries the rest of the engine needs.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if necessary) a sqlite database at path and ensures
// its schema is current.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&brokerRow{}, &orderRow{}, &tradeRow{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Flush applies one drained batch in a single transaction: new orders,
// then trades, then order updates, then the balance deltas implied by the
// trades. Satisfies internal/persistence.Store.
func (s *Store) Flush(ctx context.Context, batch persistence.Batch) error {
	if batch.Empty() {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, it := range batch.NewOrders {
			if err := tx.Create(toOrderRow(it.Order)).Error; err != nil {
				return err
			}
		}

		for _, it := range batch.Trades {
			if err := tx.Create(toTradeRow(it.Trade)).Error; err != nil {
				return err
			}
		}

		for _, u := range batch.OrderUpdates {
			err := tx.Model(&orderRow{}).Where("id = ?", u.OrderID).
				Updates(map[string]any{
					"status":             int(u.Status),
					"remaining_quantity": u.RemainingQuantity,
				}).Error
			if err != nil {
				return err
			}
		}

		deltas := make(map[string]int64)
		for _, it := range batch.Trades {
			deltas[it.Trade.BuyerBrokerID] -= it.Trade.Notional()
			deltas[it.Trade.SellerBrokerID] += it.Trade.Notional()
		}
		for brokerID, delta := range deltas {
			err := tx.Model(&brokerRow{}).Where("id = ?", brokerID).
				Update("balance", gorm.Expr("balance + ?", delta)).Error
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// CreateBroker persists a freshly-registered broker.
func (s *Store) CreateBroker(b domain.Broker) error {
	return s.db.Create(toBrokerRow(b)).Error
}

// Reset wipes every row from every table, used by the /debug/reset route.
func (s *Store) Reset() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM trades").Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM orders").Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM brokers").Error; err != nil {
			return err
		}
		return nil
	})
}

func toBrokerRow(b domain.Broker) *brokerRow {
	return &brokerRow{
		ID:         b.BrokerID,
		Name:       b.Name,
		APIKeyHash: b.APIKeyHash,
		WebhookURL: b.WebhookURL,
		Balance:    b.Balance,
	}
}

func toOrderRow(o domain.Order) *orderRow {
	return &orderRow{
		ID:                o.OrderID,
		BrokerID:          o.BrokerID,
		DocumentNumber:    o.DocumentNumber,
		Side:              int(o.Side),
		OrderType:         int(o.OrderType),
		Symbol:            o.Symbol,
		Price:             o.Price,
		Quantity:          o.Quantity,
		RemainingQuantity: o.RemainingQuantity,
		ValidUntil:        o.ValidUntil,
		Status:            int(o.Status),
		CreatedAt:         o.CreatedAt,
	}
}

func toTradeRow(t domain.Trade) *tradeRow {
	return &tradeRow{
		ID:             t.TradeID,
		BuyOrderID:     t.BuyOrderID,
		SellOrderID:    t.SellOrderID,
		Symbol:         t.Symbol,
		Price:          t.Price,
		Quantity:       t.Quantity,
		BuyerBrokerID:  t.BuyerBrokerID,
		SellerBrokerID: t.SellerBrokerID,
		CreatedAt:      t.CreatedAt,
	}
}

func fromOrderRow(r orderRow) domain.Order {
	return domain.Order{
		OrderID:           r.ID,
		BrokerID:          r.BrokerID,
		Symbol:            r.Symbol,
		Side:              domain.Side(r.Side),
		OrderType:         domain.OrderType(r.OrderType),
		Price:             r.Price,
		Quantity:          r.Quantity,
		RemainingQuantity: r.RemainingQuantity,
		Status:            domain.Status(r.Status),
		DocumentNumber:    r.DocumentNumber,
		ValidUntil:        r.ValidUntil,
		CreatedAt:         r.CreatedAt,
	}
}

func fromTradeRow(r tradeRow) domain.Trade {
	return domain.Trade{
		TradeID:        r.ID,
		BuyOrderID:     r.BuyOrderID,
		SellOrderID:    r.SellOrderID,
		Symbol:         r.Symbol,
		Price:          r.Price,
		Quantity:       r.Quantity,
		BuyerBrokerID:  r.BuyerBrokerID,
		SellerBrokerID: r.SellerBrokerID,
		CreatedAt:      r.CreatedAt,
	}
}

func fromBrokerRow(r brokerRow) domain.Broker {
	return domain.Broker{
		BrokerID:   r.ID,
		Name:       r.Name,
		APIKeyHash: r.APIKeyHash,
		WebhookURL: r.WebhookURL,
		Balance:    r.Balance,
	}
}
