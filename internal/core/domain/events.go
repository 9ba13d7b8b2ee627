package domain

// EventType defines the type of real-time event.
type EventType string

const (
	EventNewDonor EventType = "NEW_DONOR"
	EventPong     EventType = "PONG"
)

// Event is the envelope sent over WebSocket.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// DonorEvent is the payload of a NEW_DONOR event. It carries only the fields
// the stage display renders.
type DonorEvent struct {
	Name    string `json:"name"`
	Amount  int64  `json:"amount"`
	Grade   string `json:"grade"`
	Message string `json:"message"`
}

// NewDonorEvent wraps a persisted donor in a NEW_DONOR envelope.
func NewDonorEvent(d *Donor) Event {
	return Event{
		Type: EventNewDonor,
		Payload: DonorEvent{
			Name:    d.Name,
			Amount:  d.Amount,
			Grade:   d.Grade,
			Message: d.Message,
		},
	}
}
