package amqp

import (
	"encoding/json"
	"time"
)

// SummaryRefreshMessage asks the worker to recompute an owner's monthly
// summary snapshot. It carries only the owner id and the reason; the worker
// reads current state from the database.
type SummaryRefreshMessage struct {
	OwnerID   string    `json:"owner_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSummaryRefreshMessage(ownerID, reason string) *SummaryRefreshMessage {
	return &SummaryRefreshMessage{
		OwnerID:   ownerID,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func (m *SummaryRefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SummaryRefreshMessageFromJSON(data []byte) (*SummaryRefreshMessage, error) {
	var msg SummaryRefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.OwnerID == "" {
		return nil, errEmptyOwner
	}
	return &msg, nil
}
