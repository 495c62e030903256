package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"fenrir/internal/domain"
)

// LoadBrokers returns every registered broker, for populating
// brokers-by-id and brokers-by-key-hash at startup.
func (s *Store) LoadBrokers() ([]domain.Broker, error) {
	var rows []brokerRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Broker, len(rows))
	for i, r := range rows {
		out[i] = fromBrokerRow(r)
	}
	return out, nil
}

// LoadOpenOrders returns every order with status=open and valid_until in
// the future as of now, ordered by created_at ascending so re-inserting
// them into the book preserves FIFO within each price level.
func (s *Store) LoadOpenOrders(now time.Time) ([]domain.Order, error) {
	var rows []orderRow
	err := s.db.
		Where("status = ? AND valid_until > ?", int(domain.Open), now).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Order, len(rows))
	for i, r := range rows {
		out[i] = fromOrderRow(r)
	}
	return out, nil
}

// LoadTradesForOrders returns every trade touching any of orderIDs, for
// populating the trades-by-order index of the orders re-loaded at startup.
func (s *Store) LoadTradesForOrders(orderIDs []string) ([]domain.Trade, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	var rows []tradeRow
	err := s.db.
		Where("buy_order_id IN ? OR sell_order_id IN ?", orderIDs, orderIDs).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Trade, len(rows))
	for i, r := range rows {
		out[i] = fromTradeRow(r)
	}
	return out, nil
}

// LoadRecentPrices returns, per symbol, up to limit of the most recent
// trade prices in chronological order, for seeding each symbol's price
// ring at startup.
func (s *Store) LoadRecentPrices(limit int) (map[string][]int64, error) {
	var symbols []string
	if err := s.db.Model(&tradeRow{}).Distinct("symbol").Pluck("symbol", &symbols).Error; err != nil {
		return nil, err
	}

	out := make(map[string][]int64, len(symbols))
	for _, sym := range symbols {
		var rows []tradeRow
		err := s.db.
			Where("symbol = ?", sym).
			Order("created_at DESC").
			Limit(limit).
			Find(&rows).Error
		if err != nil {
			return nil, err
		}
		prices := make([]int64, len(rows))
		for i := range rows {
			prices[len(rows)-1-i] = rows[i].Price
		}
		out[sym] = prices
	}
	return out, nil
}

// GetOrder is the cold-path fallback: an order no longer resident in
// memory is looked up directly in the store, along with its trades.
func (s *Store) GetOrder(orderID string) (domain.Order, []domain.Trade, bool, error) {
	var row orderRow
	err := s.db.Where("id = ?", orderID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Order{}, nil, false, nil
	}
	if err != nil {
		return domain.Order{}, nil, false, err
	}

	var tradeRows []tradeRow
	err = s.db.
		Where("buy_order_id = ? OR sell_order_id = ?", orderID, orderID).
		Order("created_at ASC").
		Find(&tradeRows).Error
	if err != nil {
		return domain.Order{}, nil, false, err
	}

	trades := make([]domain.Trade, len(tradeRows))
	for i, r := range tradeRows {
		trades[i] = fromTradeRow(r)
	}
	return fromOrderRow(row), trades, true, nil
}
