package events

import (
	"encoding/json"
	"time"
)

// Event types
const (
	LoanUpdated = "loan.updated"
	LoanDeleted = "loan.deleted"

	CardUpdated = "card.updated"
	CardDeleted = "card.deleted"
)

// Stream names. The write side of each domain appends to its stream; the
// read side consumes it to keep cached views fresh.
const (
	LoanEventsStream = "loans.events"
	CardEventsStream = "cards.events"
)

// Base event structure
type Event struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// RecordChangedEvent identifies the customer whose loan or card changed.
type RecordChangedEvent struct {
	MobileNumber string `json:"mobileNumber"`
}
