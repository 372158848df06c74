package models

// EventType identifies a realtime event published on the internal bus
// and broadcast to websocket subscribers.
type EventType string

const (
	// EventNewRequest fires when a request record is first persisted.
	EventNewRequest EventType = "new_request"
	// EventRequestUpdated fires when a record's classification or
	// status changes.
	EventRequestUpdated EventType = "request_updated"
)

// Event is the internal pub/sub envelope. Payload carries the full
// request snapshot so subscribers never need a read-back.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

// WSMessage is the websocket wire envelope sent to clients.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}
