package models

import "time"

// Event types
const (
	EventTypePageView          = "PAGE_VIEW"
	EventTypeProductSelected   = "PRODUCT_SELECTED"
	EventTypeVariationSelected = "VARIATION_SELECTED"
	EventTypeProductUpdated    = "PRODUCT_UPDATED"
	EventTypeProductDeleted    = "PRODUCT_DELETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// TelemetryEvent is a fire-and-forget browsing event
type TelemetryEvent struct {
	BaseEvent
	SessionID string                 `json:"session_id,omitempty"`
	Payload   map[string]interface{} `json:"payload"`
}

// ProductChangedEvent is published by the catalog when a product changes
type ProductChangedEvent struct {
	BaseEvent
	ProductID string `json:"product_id"`
}
