package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Engine event types recorded in the append-only audit log.
const (
	EventRatingUpdated      = "rating_updated"
	EventModelTrained       = "model_trained"
	EventDriftDetected      = "drift_detected"
	EventPredictionVerified = "prediction_verified"
	EventRetrainTriggered   = "retrain_triggered"
)

// EngineEvent is one append-only audit log entry. Events are written, never
// updated or deleted.
type EngineEvent struct {
	ID        uuid.UUID       `db:"id" json:"id" validate:"required,uuid4"`
	Type      string          `db:"event_type" json:"event_type" validate:"required"`
	Market    string          `db:"market" json:"market"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// NewEngineEvent builds an event with a marshaled payload. Marshal failures
// produce an event with a nil payload rather than dropping the event.
func NewEngineEvent(eventType, market string, payload interface{}) *EngineEvent {
	var raw json.RawMessage
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			raw = data
		}
	}
	return &EngineEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Market:    market,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}
}
