// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair that moves them.
package queue

// BookingConfirmedEvent is published after a booking commits.  It carries
// enough information for downstream consumers to log or notify without
// querying the primary database.
type BookingConfirmedEvent struct {
	BookingID        uint64 `json:"booking_id"`
	UserID           uint64 `json:"user_id"`
	SlotID           uint64 `json:"slot_id"`
	SlotDate         string `json:"slot_date"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	Room             string `json:"room"`
	Trainer          string `json:"trainer"`
	CreditsDebited   uint32 `json:"credits_debited"`
	ConfirmedAt      string `json:"confirmed_at"`
}

// BookingCancelledEvent is published after a cancellation commits.
type BookingCancelledEvent struct {
	BookingID       uint64 `json:"booking_id"`
	UserID          uint64 `json:"user_id"`
	SlotID          uint64 `json:"slot_id"`
	SlotDate        string `json:"slot_date"`
	StartTime       string `json:"start_time"`
	Room            string `json:"room"`
	Trainer         string `json:"trainer"`
	CreditsRefunded uint32 `json:"credits_refunded"`
	CancelledAt     string `json:"cancelled_at"`
}
