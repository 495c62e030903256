package api

import (
	"time"

	"fenrir/internal/domain"
	"fenrir/internal/engine"
)

func parseSide(s string) (domain.Side, bool) {
	switch s {
	case "bid":
		return domain.Bid, true
	case "ask":
		return domain.Ask, true
	default:
		return 0, false
	}
}

func parseOrderType(s string) (domain.OrderType, bool) {
	switch s {
	case "limit":
		return domain.Limit, true
	case "market":
		return domain.Market, true
	default:
		return 0, false
	}
}

func toOrderCreate(brokerID string, req orderCreateRequest) (engine.OrderCreate, *domain.Error) {
	side, ok := parseSide(req.Side)
	if !ok {
		return engine.OrderCreate{}, domain.ValidationErrorf("side must be bid or ask")
	}
	orderType, ok := parseOrderType(req.OrderType)
	if !ok {
		return engine.OrderCreate{}, domain.ValidationErrorf("order_type must be limit or market")
	}

	var validUntil *time.Time
	if req.ValidUntil != nil {
		t := time.Unix(*req.ValidUntil, 0).UTC()
		validUntil = &t
	}

	return engine.OrderCreate{
		BrokerID:       brokerID,
		DocumentNumber: req.DocumentNumber,
		Side:           side,
		OrderType:      orderType,
		Symbol:         req.Symbol,
		Price:          req.Price,
		Quantity:       req.Quantity,
		ValidUntil:     validUntil,
	}, nil
}

func toTradeView(t domain.Trade) tradeView {
	return tradeView{
		TradeID:        t.TradeID,
		BuyOrderID:     t.BuyOrderID,
		SellOrderID:    t.SellOrderID,
		Price:          t.Price,
		Quantity:       t.Quantity,
		BuyerBrokerID:  t.BuyerBrokerID,
		SellerBrokerID: t.SellerBrokerID,
		CreatedAt:      t.CreatedAt.Unix(),
	}
}

func toOrderDetailResponse(o domain.Order, trades []domain.Trade) orderDetailResponse {
	views := make([]tradeView, len(trades))
	for i, t := range trades {
		views[i] = toTradeView(t)
	}
	return orderDetailResponse{
		OrderID:           o.OrderID,
		BrokerID:          o.BrokerID,
		DocumentNumber:    o.DocumentNumber,
		Side:              o.Side.String(),
		OrderType:         o.OrderType.String(),
		Symbol:            o.Symbol,
		Price:             o.Price,
		Quantity:          o.Quantity,
		RemainingQuantity: o.RemainingQuantity,
		Status:            o.Status.String(),
		ValidUntil:        o.ValidUntil.Unix(),
		CreatedAt:         o.CreatedAt.Unix(),
		Trades:            views,
	}
}

func toLevelViews(levels []engine.LevelDepth) []levelView {
	out := make([]levelView, len(levels))
	for i, l := range levels {
		out[i] = levelView{Price: l.Price, TotalQuantity: l.TotalQuantity, OrderCount: l.OrderCount}
	}
	return out
}
