package api

// registerRequest is the body of POST /register.
type registerRequest struct {
	Name       string `json:"name"`
	WebhookURL string `json:"webhook_url,omitempty"`
}

type registerResponse struct {
	BrokerID string `json:"broker_id"`
	APIKey   string `json:"api_key"`
}

type balanceResponse struct {
	BrokerID   string `json:"broker_id"`
	BrokerName string `json:"broker_name"`
	Balance    int64  `json:"balance"`
}

// orderCreateRequest is the body of POST /orders.
type orderCreateRequest struct {
	DocumentNumber string `json:"document_number"`
	Side           string `json:"side"`
	OrderType      string `json:"order_type"`
	Symbol         string `json:"symbol"`
	Price          *int64 `json:"price,omitempty"`
	Quantity       int64  `json:"quantity"`
	ValidUntil     *int64 `json:"valid_until,omitempty"` // unix seconds
}

type orderCreateResponse struct {
	OrderID string `json:"order_id"`
}

type tradeView struct {
	TradeID        string `json:"trade_id"`
	BuyOrderID     string `json:"buy_order_id"`
	SellOrderID    string `json:"sell_order_id"`
	Price          int64  `json:"price"`
	Quantity       int64  `json:"quantity"`
	BuyerBrokerID  string `json:"buyer_broker_id"`
	SellerBrokerID string `json:"seller_broker_id"`
	CreatedAt      int64  `json:"created_at"`
}

// orderDetailResponse is the body of GET /orders/{id}.
type orderDetailResponse struct {
	OrderID           string      `json:"order_id"`
	BrokerID          string      `json:"broker_id"`
	DocumentNumber    string      `json:"document_number"`
	Side              string      `json:"side"`
	OrderType         string      `json:"order_type"`
	Symbol            string      `json:"symbol"`
	Price             *int64      `json:"price,omitempty"`
	Quantity          int64       `json:"quantity"`
	RemainingQuantity int64       `json:"remaining_quantity"`
	Status            string      `json:"status"`
	ValidUntil        int64       `json:"valid_until"`
	CreatedAt         int64       `json:"created_at"`
	Trades            []tradeView `json:"trades"`
}

type levelView struct {
	Price         int64 `json:"price"`
	TotalQuantity int64 `json:"total_quantity"`
	OrderCount    int   `json:"order_count"`
}

// bookResponse is the body of GET /stocks/{sym}/book.
type bookResponse struct {
	Symbol string      `json:"symbol"`
	Depth  int         `json:"depth"`
	Asks   []levelView `json:"asks"`
	Bids   []levelView `json:"bids"`
}

// priceResponse is the body of GET /stocks/{sym}/price.
type priceResponse struct {
	Symbol          string `json:"symbol"`
	LastPrice       int64  `json:"last_price"`
	AveragePrice    int64  `json:"average_price"`
	TradesInAverage int    `json:"trades_in_average"`
}

type errorResponse struct {
	Error string `json:"error"`
}
