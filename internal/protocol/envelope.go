// Package protocol defines the wire envelope carried between the
// controller and its mailbox transport: one classify.Message per
// envelope, addressed and timestamped for routing and correlation.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/holla2040/steamboiler/internal/classify"
)

// SchemaVersion is the current protocol version.
const SchemaVersion = "v1.0.0"

// Message is one envelope-wrapped classify.Message, the unit mailbox.Redis
// reads and writes.
type Message struct {
	Envelope Envelope         `json:"envelope"`
	Payload  classify.Message `json:"payload"`
}

// Envelope contains message metadata and routing information.
type Envelope struct {
	ID            string `json:"id"`
	Timestamp     int64  `json:"timestamp"`
	Source        Source `json:"source"`
	SchemaVersion string `json:"schema_version"`
	Type          string `json:"type"`
	CorrelationID string `json:"correlation_id,omitempty"`
	ReplyTo       string `json:"reply_to,omitempty"`
}

// Source identifies who sent a message: the controller instance or the
// plant/harness on the other end of the mailbox.
type Source struct {
	Service  string `json:"service"`
	Instance string `json:"instance"`
	Version  string `json:"version"`
}

// NewEnvelope creates a new envelope with a generated UUIDv4 and the
// current UTC timestamp.
func NewEnvelope(source Source, kind classify.Kind) Envelope {
	return Envelope{
		ID:            uuid.New().String(),
		Timestamp:     time.Now().UTC().Unix(),
		Source:        source,
		SchemaVersion: SchemaVersion,
		Type:          string(kind),
	}
}

// NewMessage wraps a classify.Message in a freshly stamped envelope.
func NewMessage(source Source, m classify.Message) Message {
	return Message{
		Envelope: NewEnvelope(source, m.Kind),
		Payload:  m,
	}
}

// Encode marshals a Message to JSON, the form mailbox.Redis stores in a
// stream entry's single field.
func Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode: %w", err)
	}
	return data, nil
}

// Decode parses JSON bytes into a Message.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("protocol: decode: %w", err)
	}
	return msg, nil
}
