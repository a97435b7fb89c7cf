package amqp

import (
	"encoding/json"
	"time"

	"followe/internal/notify"
)

// AlertMessage carries a rendered alert to an out-of-process consumer.
type AlertMessage struct {
	Payload notify.Payload `json:"payload"`
	FiredAt time.Time      `json:"fired_at"`
}

func NewAlertMessage(p notify.Payload) *AlertMessage {
	return &AlertMessage{Payload: p, FiredAt: time.Now()}
}

func (m *AlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AlertMessageFromJSON(data []byte) (*AlertMessage, error) {
	var msg AlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
