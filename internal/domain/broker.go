package domain

// Broker is an exchange participant. Balance is signed, integer, minor
// units, and mutated only by trade settlement: the engine applies each
// trade's delta in memory at submit time, and the persistence flush loop
// writes the same deltas to the durable store.
type Broker struct {
	BrokerID   string
	Name       string
	APIKeyHash string // sha256 of the raw API key, hex-encoded
	WebhookURL string // empty if the broker has none registered
	Balance    int64
}
