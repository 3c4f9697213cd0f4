package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// RecurrenceExpansionMessage asks the worker to generate the follow-on
// occurrences of a recurring transaction. The worker loads the transaction
// itself, so the message only carries its identity.
type RecurrenceExpansionMessage struct {
	ProfileID     string    `json:"profileId"`
	TransactionID string    `json:"transactionId"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewRecurrenceExpansionMessage(profileID, transactionID string) *RecurrenceExpansionMessage {
	return &RecurrenceExpansionMessage{
		ProfileID:     profileID,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

func (m *RecurrenceExpansionMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecurrenceExpansionMessageFromJSON decodes and validates a message body.
func RecurrenceExpansionMessageFromJSON(data []byte) (*RecurrenceExpansionMessage, error) {
	var msg RecurrenceExpansionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ProfileID == "" || msg.TransactionID == "" {
		return nil, errors.New("message is missing profile or transaction id")
	}
	return &msg, nil
}
