package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusPending   BookingStatus = "pending"
	StatusWaitlist  BookingStatus = "waitlist"
	StatusCancelled BookingStatus = "cancelled"
	StatusCheckedIn BookingStatus = "checked_in"
)

// Valid reports whether s is one of the known booking states.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusPending, StatusWaitlist, StatusCancelled, StatusCheckedIn:
		return true
	}
	return false
}

// Counts reports whether bookings in this state occupy capacity.
func (s BookingStatus) Counts() bool {
	return s == StatusConfirmed || s == StatusCheckedIn
}

// Booking represents a row in the `bookings` table.  Attendee fields and
// quantity are fixed at creation; afterwards only Status and Notes change.
//
// Fields:
//  ID            – primary key (UUID string).
//  EventID       – owning event; deleting the event deletes the booking.
//  AttendeeName  – name given on the booking form.
//  AttendeeEmail – email given on the booking form (lower-cased).
//  Quantity      – number of tickets, at least 1.
//  Status        – see BookingStatus.
//  BookingCode   – human readable EVT-XXXXX code, unique.
//  Notes         – optional free text.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last status/notes change.
type Booking struct {
	ID            string        `json:"id"`
	EventID       string        `json:"eventId"`
	AttendeeName  string        `json:"attendeeName"`
	AttendeeEmail string        `json:"attendeeEmail"`
	Quantity      int           `json:"quantity"`
	Status        BookingStatus `json:"status"`
	BookingCode   string        `json:"bookingCode"`
	Notes         *string       `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`

	Event *Event `json:"event,omitempty"`
}

// BookingRequest is the input of a new booking.
type BookingRequest struct {
	EventID       string  `json:"eventId"`
	AttendeeName  string  `json:"attendeeName"`
	AttendeeEmail string  `json:"attendeeEmail"`
	Quantity      int     `json:"quantity"`
	Notes         *string `json:"notes"`
}

// BookingFilter narrows booking listings.  Zero values mean "any".
type BookingFilter struct {
	EventID       string
	AttendeeEmail string
	Status        BookingStatus
	Query         string
}

// BookingPatch is the raw admin update.  Any known status is accepted;
// guarded transitions go through the action endpoints instead.
type BookingPatch struct {
	Status *BookingStatus `json:"status"`
	Notes  *string        `json:"notes"`
}

// Empty reports whether the patch changes nothing.
func (p BookingPatch) Empty() bool { return p.Status == nil && p.Notes == nil }
