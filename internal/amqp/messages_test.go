package amqp

import "testing"

func TestEmissionRecordedMessageRoundTrip(t *testing.T) {
	msg := NewEmissionRecordedMessage(42, 7, "2025-06-01", "manual")

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := EmissionRecordedMessageFromJSON(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.EmissionID != 42 || got.UserID != 7 || got.Date != "2025-06-01" || got.Source != "manual" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestEmissionRecordedMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := EmissionRecordedMessageFromJSON([]byte("not json")); err == nil {
		t.Fatalf("expected error for invalid payload")
	}
}
