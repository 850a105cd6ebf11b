// Package queue defines the booking messages exchanged over RabbitMQ and
// the audit consumer that records them.
package queue

import (
	"fmt"
	"time"

	"github.com/iliyamo/event-booking/internal/model"
)

// Routing keys on the booking topic exchange.
const (
	KeyBookingCreated       = "booking.created"
	KeyBookingStatusChanged = "booking.status_changed"
)

// BookingEvent is published when a booking is created or changes status.
// It carries enough for consumers to log or notify without querying the
// database.
type BookingEvent struct {
	Type           string `json:"type"`
	BookingID      string `json:"bookingId"`
	BookingCode    string `json:"bookingCode"`
	EventID        string `json:"eventId"`
	EventTitle     string `json:"eventTitle,omitempty"`
	AttendeeEmail  string `json:"attendeeEmail"`
	Quantity       int    `json:"quantity"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previousStatus,omitempty"`
	Actor          string `json:"actor,omitempty"`
	OccurredAt     string `json:"occurredAt"`
}

func newEvent(kind string, b *model.Booking, at time.Time) BookingEvent {
	ev := BookingEvent{
		Type:          kind,
		BookingID:     b.ID,
		BookingCode:   b.BookingCode,
		EventID:       b.EventID,
		AttendeeEmail: b.AttendeeEmail,
		Quantity:      b.Quantity,
		Status:        string(b.Status),
		OccurredAt:    at.UTC().Format(time.RFC3339),
	}
	if b.Event != nil {
		ev.EventTitle = b.Event.Title
	}
	return ev
}

// Created builds the message for a new booking.
func Created(b *model.Booking, at time.Time) BookingEvent {
	return newEvent(KeyBookingCreated, b, at)
}

// StatusChanged builds the message for a status change made by actor.
func StatusChanged(b *model.Booking, prev model.BookingStatus, actor string, at time.Time) BookingEvent {
	ev := newEvent(KeyBookingStatusChanged, b, at)
	ev.PreviousStatus = string(prev)
	ev.Actor = actor
	return ev
}

// AuditLine renders ev as one line of the audit log.
func AuditLine(ev BookingEvent) string {
	switch ev.Type {
	case KeyBookingStatusChanged:
		return fmt.Sprintf("[%s] Booking status changed | booking_id=%s | code=%s | event_id=%s | event=%q | %s -> %s | by=%s\n",
			ev.OccurredAt, ev.BookingID, ev.BookingCode, ev.EventID, ev.EventTitle, ev.PreviousStatus, ev.Status, ev.Actor)
	default:
		return fmt.Sprintf("[%s] Booking created | booking_id=%s | code=%s | event_id=%s | event=%q | attendee=%s | quantity=%d | status=%s\n",
			ev.OccurredAt, ev.BookingID, ev.BookingCode, ev.EventID, ev.EventTitle, ev.AttendeeEmail, ev.Quantity, ev.Status)
	}
}
