package amqp

import (
	"encoding/json"
	"time"

	"transstats/internal/core"
)

// LoadCompletedType is the AMQP message type of load-completed events.
const LoadCompletedType = "stats.load_completed"

// LoadCompletedMessage announces that a new generation of month records is available.
type LoadCompletedMessage struct {
	Type      string           `json:"type"`
	Summary   core.LoadSummary `json:"summary"`
	Timestamp time.Time        `json:"timestamp"`
}

func NewLoadCompletedMessage(summary core.LoadSummary) *LoadCompletedMessage {
	return &LoadCompletedMessage{
		Type:      LoadCompletedType,
		Summary:   summary,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LoadCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LoadCompletedMessageFromJSON creates a message from JSON bytes
func LoadCompletedMessageFromJSON(data []byte) (*LoadCompletedMessage, error) {
	var msg LoadCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
