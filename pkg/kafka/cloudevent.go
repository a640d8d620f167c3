package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CloudEvent is the CloudEvents 1.0 structured envelope carried on every topic.
type CloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	Type            string          `json:"type"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data,omitempty"`
}

// NewCloudEvent wraps data in an envelope with a fresh id. A nil data leaves Data empty.
func NewCloudEvent(source, eventType string, data interface{}) (CloudEvent, error) {
	ce := CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.NewString(),
		Source:          source,
		Type:            eventType,
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return CloudEvent{}, fmt.Errorf("marshal event data: %w", err)
		}
		ce.Data = raw
	}
	return ce, nil
}

// ParseCloudEvent decodes an envelope and checks the required attributes.
func ParseCloudEvent(raw []byte) (CloudEvent, error) {
	var ce CloudEvent
	if err := json.Unmarshal(raw, &ce); err != nil {
		return CloudEvent{}, fmt.Errorf("decode cloud event: %w", err)
	}
	if ce.ID == "" || ce.Type == "" {
		return CloudEvent{}, fmt.Errorf("cloud event missing id or type")
	}
	return ce, nil
}

// ParseData decodes the event payload into v.
func (ce CloudEvent) ParseData(v interface{}) error {
	if len(ce.Data) == 0 {
		return fmt.Errorf("cloud event %s has no data", ce.ID)
	}
	return json.Unmarshal(ce.Data, v)
}
