package protocol

import (
	"testing"

	"github.com/holla2040/steamboiler/internal/classify"
)

func validMessage() Message {
	return Message{
		Envelope: Envelope{
			ID:            "550e8400-e29b-41d4-a716-446655440000",
			Timestamp:     1771329600,
			Source:        Source{Service: "boiler_controller", Instance: "ctrl-01", Version: "1.0.0"},
			SchemaVersion: SchemaVersion,
			Type:          string(classify.KindLevel),
		},
		Payload: classify.Level(400),
	}
}

func TestValidateAcceptsWellFormedMessage(t *testing.T) {
	if err := Validate(validMessage()); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestValidateEveryKnownKind(t *testing.T) {
	for _, k := range classify.AllKinds {
		msg := validMessage()
		msg.Envelope.Type = string(k)
		if err := Validate(msg); err != nil {
			t.Errorf("Validate() rejected known kind %q: %v", k, err)
		}
	}
}

func TestValidateRejectsMalformedMessages(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Message)
	}{
		{"empty_id", func(m *Message) { m.Envelope.ID = "" }},
		{"invalid_id_format", func(m *Message) { m.Envelope.ID = "not-a-uuid" }},
		{"uuid_v1_rejected", func(m *Message) { m.Envelope.ID = "550e8400-e29b-11d4-a716-446655440000" }},
		{"negative_timestamp", func(m *Message) { m.Envelope.Timestamp = -1 }},
		{"wrong_schema_version", func(m *Message) { m.Envelope.SchemaVersion = "v2.0.0" }},
		{"unknown_type", func(m *Message) { m.Envelope.Type = "UNKNOWN_KIND" }},
		{"uppercase_service", func(m *Message) { m.Envelope.Source.Service = "Controller" }},
		{"service_starts_with_number", func(m *Message) { m.Envelope.Source.Service = "1controller" }},
		{"empty_service", func(m *Message) { m.Envelope.Source.Service = "" }},
		{"invalid_instance", func(m *Message) { m.Envelope.Source.Instance = "STATION 01" }},
		{"invalid_version", func(m *Message) { m.Envelope.Source.Version = "v1.0" }},
		{"invalid_correlation_id", func(m *Message) { m.Envelope.CorrelationID = "not-a-valid-uuid" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validMessage()
			tt.modify(&msg)
			if err := Validate(msg); err == nil {
				t.Error("Validate() expected error, got nil")
			}
		})
	}
}

func TestValidateAcceptsOptionalFieldsAbsent(t *testing.T) {
	msg := validMessage()
	msg.Envelope.CorrelationID = ""
	msg.Envelope.ReplyTo = ""
	if err := Validate(msg); err != nil {
		t.Errorf("Validate() error on minimal message: %v", err)
	}
}
