package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Row change operations carried by RowEvent.Op.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpUpload = "upload"
	OpOCR    = "ocr"
	OpDelete = "delete"
)

// RowEvent announces that a row changed. It carries only the id and version;
// consumers fetch the current row from the API.
type RowEvent struct {
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRowEvent(id string, version int64, op string) *RowEvent {
	return &RowEvent{
		ID:        id,
		Version:   version,
		Op:        op,
		Timestamp: time.Now().UTC(),
	}
}

func (m *RowEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RowEventFromJSON decodes an event and rejects ones without an id or op.
func RowEventFromJSON(data []byte) (*RowEvent, error) {
	var msg RowEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" || msg.Op == "" {
		return nil, fmt.Errorf("row event missing id or op")
	}
	return &msg, nil
}
