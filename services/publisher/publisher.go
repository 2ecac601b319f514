package publisher

import "encoding/json"

// Event is emitted after each listing is persisted
type Event struct {
	ZPID   string   `json:"zpid"`
	URL    string   `json:"url"`
	Action string   `json:"action"`
	Price  *float64 `json:"price,omitempty"`
	City   string   `json:"city,omitempty"`
	State  string   `json:"state,omitempty"`
}

// Encode renders the event for the wire
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher represents a service for publishing listing events
type Publisher interface {
	// Publish publishes a message under the given key
	Publish(key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}
