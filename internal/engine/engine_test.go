package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tomb "gopkg.in/tomb.v2"

	"fenrir/internal/domain"
	"fenrir/internal/persistence"
)

// newRunningEngine returns an Engine with its command loop started, and the
// tomb supervising that loop. The persistence queue is wired but nothing
// drains it in these tests: Submit and Cancel only depend on in-memory
// state, which is applied synchronously on the engine goroutine.
func newRunningEngine(t *testing.T) (*Engine, *tomb.Tomb) {
	t.Helper()
	queue := persistence.NewQueue()
	eng := New(queue)

	var tb tomb.Tomb
	eng.Run(&tb)
	t.Cleanup(func() {
		tb.Kill(nil)
		_ = tb.Wait()
	})
	return eng, &tb
}

func registerBroker(e *Engine, id string) {
	e.RegisterBroker(domain.Broker{BrokerID: id, Name: id})
}

func price(p int64) *int64 { return &p }

func TestSubmitExactMatchSettlesBalances(t *testing.T) {
	e, _ := newRunningEngine(t)
	registerBroker(e, "A")
	registerBroker(e, "B")

	future := time.Now().Add(time.Hour)
	_, err := e.Submit(OrderCreate{BrokerID: "A", Side: domain.Ask, OrderType: domain.Limit, Symbol: "SYM", Price: price(1000), Quantity: 1000, ValidUntil: &future})
	require.Nil(t, err)

	_, err = e.Submit(OrderCreate{BrokerID: "B", Side: domain.Bid, OrderType: domain.Limit, Symbol: "SYM", Price: price(1000), Quantity: 1000, ValidUntil: &future})
	require.Nil(t, err)

	_, balA, _ := e.Balance("A")
	_, balB, _ := e.Balance("B")
	assert.Equal(t, int64(1_000_000), balA)
	assert.Equal(t, int64(-1_000_000), balB)
	assert.Equal(t, int64(0), balA+balB, "conservation: balances sum to zero")
}

func TestSubmitNoMatchBothOrdersRest(t *testing.T) {
	e, _ := newRunningEngine(t)
	registerBroker(e, "A")
	registerBroker(e, "B")
	future := time.Now().Add(time.Hour)

	_, err := e.Submit(OrderCreate{BrokerID: "A", Side: domain.Ask, OrderType: domain.Limit, Symbol: "SYM", Price: price(2000), Quantity: 1000, ValidUntil: &future})
	require.Nil(t, err)
	_, err = e.Submit(OrderCreate{BrokerID: "B", Side: domain.Bid, OrderType: domain.Limit, Symbol: "SYM", Price: price(1000), Quantity: 1000, ValidUntil: &future})
	require.Nil(t, err)

	asks := e.BookDepth("SYM", domain.Ask, 10)
	bids := e.BookDepth("SYM", domain.Bid, 10)
	require.Len(t, asks, 1)
	require.Len(t, bids, 1)
	assert.Equal(t, int64(2000), asks[0].Price)
	assert.Equal(t, int64(1000), bids[0].Price)
}

func TestMarketIOCPartialLeavesDeficitClosed(t *testing.T) {
	e, _ := newRunningEngine(t)
	registerBroker(e, "A")
	registerBroker(e, "B")
	future := time.Now().Add(time.Hour)

	_, err := e.Submit(OrderCreate{BrokerID: "A", Side: domain.Ask, OrderType: domain.Limit, Symbol: "SYM", Price: price(1000), Quantity: 50, ValidUntil: &future})
	require.Nil(t, err)

	bidID, err := e.Submit(OrderCreate{BrokerID: "B", Side: domain.Bid, OrderType: domain.Market, Symbol: "SYM", Quantity: 100})
	require.Nil(t, err)

	detail, resident, verr := e.GetOrderResident(bidID, "B")
	require.Nil(t, verr)
	require.True(t, resident)
	assert.Equal(t, domain.Closed, detail.Order.Status)
	assert.Equal(t, int64(50), detail.Order.RemainingQuantity)
	require.Len(t, detail.Trades, 1)
	assert.Equal(t, int64(50), detail.Trades[0].Quantity)
}

func TestCancelThenSubmitDoesNotMatch(t *testing.T) {
	e, _ := newRunningEngine(t)
	registerBroker(e, "A")
	registerBroker(e, "B")
	future := time.Now().Add(time.Hour)

	askID, err := e.Submit(OrderCreate{BrokerID: "A", Side: domain.Ask, OrderType: domain.Limit, Symbol: "SYM", Price: price(1000), Quantity: 100, ValidUntil: &future})
	require.Nil(t, err)

	require.Nil(t, e.Cancel(askID, "A"))

	detail, resident, verr := e.GetOrderResident(askID, "A")
	require.Nil(t, verr)
	require.True(t, resident)
	assert.Equal(t, domain.Closed, detail.Order.Status)
	assert.Equal(t, int64(100), detail.Order.RemainingQuantity, "cancel closes without consuming remaining quantity")

	_, err = e.Submit(OrderCreate{BrokerID: "B", Side: domain.Bid, OrderType: domain.Limit, Symbol: "SYM", Price: price(1000), Quantity: 100, ValidUntil: &future})
	require.Nil(t, err)

	_, balB, _ := e.Balance("B")
	assert.Equal(t, int64(0), balB, "no trade occurred, balance untouched")
}

func TestCancelForbiddenForNonOwner(t *testing.T) {
	e, _ := newRunningEngine(t)
	registerBroker(e, "A")
	registerBroker(e, "B")
	future := time.Now().Add(time.Hour)

	askID, err := e.Submit(OrderCreate{BrokerID: "A", Side: domain.Ask, OrderType: domain.Limit, Symbol: "SYM", Price: price(1000), Quantity: 100, ValidUntil: &future})
	require.Nil(t, err)

	verr := e.Cancel(askID, "B")
	require.NotNil(t, verr)
	assert.Equal(t, domain.KindForbidden, verr.Kind)
}

func TestCancelUnknownOrderIsSilentNoop(t *testing.T) {
	e, _ := newRunningEngine(t)
	assert.Nil(t, e.Cancel("ghost", "nobody"))
}

func TestLazyExpirationOnReadClosesOrder(t *testing.T) {
	e, _ := newRunningEngine(t)
	registerBroker(e, "A")

	base := time.Now()
	e.SetClock(func() time.Time { return base })

	future := base.Add(time.Second)
	askID, err := e.Submit(OrderCreate{BrokerID: "A", Side: domain.Ask, OrderType: domain.Limit, Symbol: "SYM", Price: price(1000), Quantity: 100, ValidUntil: &future})
	require.Nil(t, err)

	e.SetClock(func() time.Time { return base.Add(2 * time.Second) })

	detail, resident, verr := e.GetOrderResident(askID, "A")
	require.Nil(t, verr)
	require.True(t, resident)
	assert.Equal(t, domain.Closed, detail.Order.Status, "expired order is lazily closed on read")

	asks := e.BookDepth("SYM", domain.Ask, 10)
	assert.Empty(t, asks, "expired order is removed from the book")
}

func TestSubmitValidationRejectsBadInput(t *testing.T) {
	e, _ := newRunningEngine(t)

	_, err := e.Submit(OrderCreate{BrokerID: "A", Side: domain.Ask, OrderType: domain.Limit, Symbol: "SYM", Quantity: 100})
	require.NotNil(t, err)
	assert.Equal(t, domain.KindValidation, err.Kind)

	past := time.Now().Add(-time.Hour)
	_, err = e.Submit(OrderCreate{BrokerID: "A", Side: domain.Ask, OrderType: domain.Limit, Symbol: "SYM", Price: price(1000), Quantity: 100, ValidUntil: &past})
	require.NotNil(t, err)
	assert.Equal(t, domain.KindValidation, err.Kind)

	_, err = e.Submit(OrderCreate{BrokerID: "A", Side: domain.Ask, OrderType: domain.Market, Symbol: "SYM", Price: price(1000), Quantity: 100})
	require.NotNil(t, err)
	assert.Equal(t, domain.KindValidation, err.Kind)
}

func TestPartialMultiFillAcrossFiveAsks(t *testing.T) {
	e, _ := newRunningEngine(t)
	future := time.Now().Add(time.Hour)
	brokers := []string{"A", "B", "C", "D", "E"}
	for _, b := range brokers {
		registerBroker(e, b)
		_, err := e.Submit(OrderCreate{BrokerID: b, Side: domain.Ask, OrderType: domain.Limit, Symbol: "SYM", Price: price(1000), Quantity: 100, ValidUntil: &future})
		require.Nil(t, err)
	}

	registerBroker(e, "Z")
	bidID, err := e.Submit(OrderCreate{BrokerID: "Z", Side: domain.Bid, OrderType: domain.Limit, Symbol: "SYM", Price: price(1000), Quantity: 500, ValidUntil: &future})
	require.Nil(t, err)

	detail, resident, verr := e.GetOrderResident(bidID, "Z")
	require.Nil(t, verr)
	require.True(t, resident)
	assert.Equal(t, domain.Closed, detail.Order.Status)
	assert.Len(t, detail.Trades, 5)

	asks := e.BookDepth("SYM", domain.Ask, 10)
	assert.Empty(t, asks, "all five resting asks fully filled")
}

func TestPriceReadReflectsRecentTrades(t *testing.T) {
	e, _ := newRunningEngine(t)
	registerBroker(e, "A")
	registerBroker(e, "B")
	future := time.Now().Add(time.Hour)

	_, ok := e.Price("SYM", 50)
	assert.False(t, ok, "no trades recorded yet")

	_, err := e.Submit(OrderCreate{BrokerID: "A", Side: domain.Ask, OrderType: domain.Limit, Symbol: "SYM", Price: price(1000), Quantity: 100, ValidUntil: &future})
	require.Nil(t, err)
	_, err = e.Submit(OrderCreate{BrokerID: "B", Side: domain.Bid, OrderType: domain.Limit, Symbol: "SYM", Price: price(1000), Quantity: 100, ValidUntil: &future})
	require.Nil(t, err)

	summary, ok := e.Price("SYM", 50)
	require.True(t, ok)
	assert.Equal(t, int64(1000), summary.LastPrice)
	assert.Equal(t, int64(1000), summary.AveragePrice)
	assert.Equal(t, 1, summary.TradesInAverage)
}

func TestResetClearsBookAndState(t *testing.T) {
	e, _ := newRunningEngine(t)
	registerBroker(e, "A")
	future := time.Now().Add(time.Hour)
	_, err := e.Submit(OrderCreate{BrokerID: "A", Side: domain.Ask, OrderType: domain.Limit, Symbol: "SYM", Price: price(1000), Quantity: 100, ValidUntil: &future})
	require.Nil(t, err)

	e.Reset()

	asks := e.BookDepth("SYM", domain.Ask, 10)
	assert.Empty(t, asks)
	_, _, ok := e.Balance("A")
	assert.False(t, ok)
}
