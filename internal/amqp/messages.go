package amqp

import (
	"encoding/json"
	"time"
)

// Message types routed through the bills queue.
const (
	TypeBillSync   = "bill.sync"
	TypeBillDelete = "bill.delete"
)

// Message is a lightweight bill event. It carries only the id and a
// version, the record's last-modified time in Unix milliseconds; the
// worker fetches the full record from the local store and can drop events
// older than one it already applied.
type Message struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Version   int64     `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBillSyncMessage creates a sync event for a created or updated bill.
func NewBillSyncMessage(id string, version int64) *Message {
	return &Message{
		Type:      TypeBillSync,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// NewBillDeleteMessage creates a delete event for a removed bill.
func NewBillDeleteMessage(id string) *Message {
	return &Message{
		Type:      TypeBillDelete,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON creates a message from JSON bytes.
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
