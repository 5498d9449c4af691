package amqp

import (
	"encoding/json"
	"time"
)

// EmissionRecordedMessage announces that an emission row was written.
// It carries only identifiers; consumers re-read the store, so a stale
// message is harmless.
type EmissionRecordedMessage struct {
	EmissionID int64     `json:"emission_id"`
	UserID     int64     `json:"user_id"`
	Date       string    `json:"date"` // YYYY-MM-DD
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewEmissionRecordedMessage(emissionID, userID int64, date, source string) *EmissionRecordedMessage {
	return &EmissionRecordedMessage{
		EmissionID: emissionID,
		UserID:     userID,
		Date:       date,
		Source:     source,
		Timestamp:  time.Now(),
	}
}

func (m *EmissionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EmissionRecordedMessageFromJSON(data []byte) (*EmissionRecordedMessage, error) {
	var msg EmissionRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
