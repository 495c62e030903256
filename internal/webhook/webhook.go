// Package webhook fires at-most-once, best-effort notifications to
// brokers when their trades settle. Each delivery is an independent,
// fire-and-forget HTTP POST with a short timeout and no retries; failures
// are logged and otherwise invisible to the caller.
//
// The event envelope is a single fixed Go struct with a string Event tag
// (design note, SPEC_FULL.md §9 "Dynamic payloads"), so a second event kind
// can be added later without breaking existing consumers. Outbound
// delivery uses net/http's client directly rather than a third-party HTTP
// client library: a one-shot POST with a timeout has no behavior a
// wrapper library would meaningfully add (see DESIGN.md).
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"fenrir/internal/domain"
)

// Event is the JSON body delivered to a broker's webhook_url.
type Event struct {
	Event                  string `json:"event"`
	TradeID                string `json:"trade_id"`
	OrderID                string `json:"order_id"`
	Symbol                 string `json:"symbol"`
	Side                   string `json:"side"`
	Price                  int64  `json:"price"`
	Quantity               int64  `json:"quantity"`
	OrderRemainingQuantity int64  `json:"order_remaining_quantity"`
	ExecutedAt             int64  `json:"executed_at"`
}

const sendTimeout = 2 * time.Second

// Dispatcher sends webhook deliveries on background goroutines supervised
// by a tomb.Tomb, so deliveries in flight are given a chance to finish (or
// are abandoned cleanly) on shutdown.
type Dispatcher struct {
	client *http.Client
	t      *tomb.Tomb
}

// NewDispatcher returns a Dispatcher whose sends are tracked under t.
func NewDispatcher(t *tomb.Tomb) *Dispatcher {
	return &Dispatcher{
		client: &http.Client{Timeout: sendTimeout},
		t:      t,
	}
}

// DispatchTrade fires one delivery for one side of a trade. It returns
// immediately; the actual send happens on a goroutine tracked by the
// dispatcher's tomb so it is visible to (but not blocking) shutdown.
func (d *Dispatcher) DispatchTrade(trade domain.Trade, side domain.Side, webhookURL string, orderRemainingQuantity int64) {
	orderID := trade.BuyOrderID
	if side == domain.Ask {
		orderID = trade.SellOrderID
	}
	ev := Event{
		Event:                  "trade_executed",
		TradeID:                trade.TradeID,
		OrderID:                orderID,
		Symbol:                 trade.Symbol,
		Side:                   side.String(),
		Price:                  trade.Price,
		Quantity:               trade.Quantity,
		OrderRemainingQuantity: orderRemainingQuantity,
		ExecutedAt:             trade.CreatedAt.Unix(),
	}

	d.t.Go(func() error {
		d.send(webhookURL, ev)
		return nil
	})
}

func (d *Dispatcher) send(url string, ev Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("failed to encode webhook payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("failed to build webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("url", url).Str("tradeId", ev.TradeID).Msg("webhook delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Error().Int("status", resp.StatusCode).Str("url", url).Str("tradeId", ev.TradeID).Msg("webhook delivery rejected")
	}
}
