package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`   // uuid
	EventType     string          `json:"event_type"` // salah satu const di atas
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"` // RFC3339
	Producer      string          `json:"producer"`    // e.g., "koperasi-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order code
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type OrderCreatedPayload struct {
	OrderID    int64  `json:"order_id"`
	OrderCode  string `json:"order_code"`
	UserID     int64  `json:"user_id"`
	SubtotalRp int64  `json:"subtotal_rp"`
	LineCount  int    `json:"line_count"`
}

type OrderStatusChangedPayload struct {
	OrderID   int64  `json:"order_id"`
	OrderCode string `json:"order_code"`
	OldStatus Status `json:"old_status"`
	NewStatus Status `json:"new_status"`
	Notes     string `json:"notes,omitempty"`
}
