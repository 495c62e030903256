package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"fenrir/internal/auth"
	"fenrir/internal/domain"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		writeError(w, domain.ValidationErrorf("name is required"))
		return
	}

	brokerID := uuid.NewString()
	apiKey := uuid.NewString()
	broker := domain.Broker{
		BrokerID:   brokerID,
		Name:       req.Name,
		APIKeyHash: auth.HashAPIKey(apiKey),
		WebhookURL: req.WebhookURL,
		Balance:    0,
	}

	if err := s.store.CreateBroker(broker); err != nil {
		writeError(w, domain.ValidationErrorf("failed to register broker: %v", err))
		return
	}
	s.engine.RegisterBroker(broker)

	writeJSON(w, http.StatusCreated, registerResponse{BrokerID: brokerID, APIKey: apiKey})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Reset(); err != nil {
		writeError(w, domain.ValidationErrorf("failed to reset durable store: %v", err))
		return
	}
	s.engine.Reset()
	if s.onReset != nil {
		if err := s.onReset(); err != nil {
			writeError(w, domain.ValidationErrorf("failed to restart persistence loop: %v", err))
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	brokerID := brokerIDFromContext(r)
	name, balance, ok := s.engine.Balance(brokerID)
	if !ok {
		writeError(w, domain.NotFoundErrorf("broker %s not found", brokerID))
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{BrokerID: brokerID, BrokerName: name, Balance: balance})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	brokerID := brokerIDFromContext(r)

	var req orderCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, domain.ValidationErrorf("malformed request body: %v", err))
		return
	}

	in, verr := toOrderCreate(brokerID, req)
	if verr != nil {
		writeError(w, verr)
		return
	}

	orderID, err := s.engine.Submit(in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderCreateResponse{OrderID: orderID})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	brokerID := brokerIDFromContext(r)
	orderID := mux.Vars(r)["id"]

	detail, resident, err := s.engine.GetOrderResident(orderID, brokerID)
	if err != nil {
		writeError(w, err)
		return
	}
	if resident {
		writeJSON(w, http.StatusOK, toOrderDetailResponse(detail.Order, detail.Trades))
		return
	}

	order, trades, found, storeErr := s.store.GetOrder(orderID)
	if storeErr != nil {
		writeError(w, domain.ValidationErrorf("store lookup failed: %v", storeErr))
		return
	}
	if !found {
		writeError(w, domain.NotFoundErrorf("order %s not found", orderID))
		return
	}
	if order.BrokerID != brokerID {
		writeError(w, domain.ForbiddenErrorf("order %s does not belong to broker %s", orderID, brokerID))
		return
	}
	writeJSON(w, http.StatusOK, toOrderDetailResponse(order, trades))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	brokerID := brokerIDFromContext(r)
	orderID := mux.Vars(r)["id"]

	if err := s.engine.Cancel(orderID, brokerID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["sym"]
	depth := queryInt(r, "depth", 10, 1, 50)

	asks := s.engine.BookDepth(symbol, domain.Ask, depth)
	bids := s.engine.BookDepth(symbol, domain.Bid, depth)

	writeJSON(w, http.StatusOK, bookResponse{
		Symbol: symbol,
		Depth:  depth,
		Asks:   toLevelViews(asks),
		Bids:   toLevelViews(bids),
	})
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["sym"]
	trades := queryInt(r, "trades", 50, 1, 1000)

	summary, ok := s.engine.Price(symbol, trades)
	if !ok {
		writeError(w, domain.NotFoundErrorf("no trades recorded for symbol %s", symbol))
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{
		Symbol:          symbol,
		LastPrice:       summary.LastPrice,
		AveragePrice:    summary.AveragePrice,
		TradesInAverage: summary.TradesInAverage,
	})
}

func queryInt(r *http.Request, key string, def, min, max int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
