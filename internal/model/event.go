package model

import "time"

// EventStatus is the publishing state of an event.
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
)

// Valid reports whether s is one of the known event states.
func (s EventStatus) Valid() bool {
	switch s {
	case EventDraft, EventPublished, EventCancelled:
		return true
	}
	return false
}

// BookingType controls how a booking request is admitted.
type BookingType string

const (
	BookingFree     BookingType = "free"
	BookingTicketed BookingType = "ticketed"
	BookingApproval BookingType = "approval"
)

// Valid reports whether t is one of the known booking types.
func (t BookingType) Valid() bool {
	switch t {
	case BookingFree, BookingTicketed, BookingApproval:
		return true
	}
	return false
}

// Event represents a row in the `events` table.  Events are owned by a
// flat organizer name/email pair and are not related to the users
// table.  Bookings are only populated when the caller asked for them.
//
// Fields:
//  ID               – primary key (UUID string).
//  Title            – display title.
//  ShortDescription – one line summary shown in listings.
//  LongDescription  – optional long form description.
//  Location         – venue or "Online".
//  OnlineURL        – optional meeting link.
//  CoverImageURL    – optional image link.
//  StartDateTime    – when the event starts (UTC).
//  EndDateTime      – when the event ends; always after StartDateTime.
//  Timezone         – IANA zone used for display.
//  Capacity         – number of tickets available, at least 1.
//  BookingType      – free, ticketed or approval.
//  Price            – ticket price; set only for ticketed events.
//  Tags             – free form labels.
//  Status           – draft, published or cancelled.
//  OrganizerName    – organizer display name.
//  OrganizerEmail   – organizer contact email.
type Event struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	ShortDescription string      `json:"shortDescription"`
	LongDescription  *string     `json:"longDescription,omitempty"`
	Location         string      `json:"location"`
	OnlineURL        *string     `json:"onlineUrl,omitempty"`
	CoverImageURL    *string     `json:"coverImageUrl,omitempty"`
	StartDateTime    time.Time   `json:"startDateTime"`
	EndDateTime      time.Time   `json:"endDateTime"`
	Timezone         string      `json:"timezone"`
	Capacity         int         `json:"capacity"`
	BookingType      BookingType `json:"bookingType"`
	Price            *float64    `json:"price,omitempty"`
	Tags             []string    `json:"tags"`
	Status           EventStatus `json:"status"`
	OrganizerName    string      `json:"organizerName"`
	OrganizerEmail   string      `json:"organizerEmail"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`

	// Derived on read, never stored.
	BookedCount int        `json:"bookedCount"`
	Remaining   int        `json:"remaining"`
	Bookings    []*Booking `json:"bookings,omitempty"`
}

// EventPatch carries the optional fields of a partial event update.  A nil
// pointer leaves the column untouched.
type EventPatch struct {
	Title            *string      `json:"title"`
	ShortDescription *string      `json:"shortDescription"`
	LongDescription  *string      `json:"longDescription"`
	Location         *string      `json:"location"`
	OnlineURL        *string      `json:"onlineUrl"`
	CoverImageURL    *string      `json:"coverImageUrl"`
	StartDateTime    *time.Time   `json:"startDateTime"`
	EndDateTime      *time.Time   `json:"endDateTime"`
	Timezone         *string      `json:"timezone"`
	Capacity         *int         `json:"capacity"`
	BookingType      *BookingType `json:"bookingType"`
	Price            *float64     `json:"price"`
	Tags             []string     `json:"tags"`
	Status           *EventStatus `json:"status"`
	OrganizerName    *string      `json:"organizerName"`
	OrganizerEmail   *string      `json:"organizerEmail"`
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.ShortDescription == nil && p.LongDescription == nil &&
		p.Location == nil && p.OnlineURL == nil && p.CoverImageURL == nil &&
		p.StartDateTime == nil && p.EndDateTime == nil && p.Timezone == nil &&
		p.Capacity == nil && p.BookingType == nil && p.Price == nil && p.Tags == nil &&
		p.Status == nil && p.OrganizerName == nil && p.OrganizerEmail == nil
}

// Apply copies the set fields of p onto e.
func (p EventPatch) Apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.ShortDescription != nil {
		e.ShortDescription = *p.ShortDescription
	}
	if p.LongDescription != nil {
		e.LongDescription = p.LongDescription
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.OnlineURL != nil {
		e.OnlineURL = p.OnlineURL
	}
	if p.CoverImageURL != nil {
		e.CoverImageURL = p.CoverImageURL
	}
	if p.StartDateTime != nil {
		e.StartDateTime = p.StartDateTime.UTC()
	}
	if p.EndDateTime != nil {
		e.EndDateTime = p.EndDateTime.UTC()
	}
	if p.Timezone != nil {
		e.Timezone = *p.Timezone
	}
	if p.Capacity != nil {
		e.Capacity = *p.Capacity
	}
	if p.BookingType != nil {
		e.BookingType = *p.BookingType
	}
	if p.Price != nil {
		e.Price = p.Price
	}
	if p.Tags != nil {
		e.Tags = p.Tags
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.OrganizerName != nil {
		e.OrganizerName = *p.OrganizerName
	}
	if p.OrganizerEmail != nil {
		e.OrganizerEmail = *p.OrganizerEmail
	}
}

// EventFilter narrows event listings.  Zero values mean "any".
type EventFilter struct {
	Status      EventStatus
	BookingType BookingType
	Tag         string
	Query       string
	From        *time.Time
	To          *time.Time
}

// EventStats aggregates the numbers shown on the admin dashboard.
type EventStats struct {
	UpcomingEvents   int `json:"upcomingEvents"`
	TodayBookings    int `json:"todayBookings"`
	TotalCapacity    int `json:"totalCapacity"`
	TotalBooked      int `json:"totalBooked"`
	OccupancyRate    int `json:"occupancyRate"`
	Cancellations    int `json:"cancellations"`
	PendingApprovals int `json:"pendingApprovals"`
}
