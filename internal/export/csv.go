// Package export renders bookings and events as downloadable files: CSV
// for spreadsheets and iCalendar for calendar apps.
package export

import (
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/iliyamo/event-booking/internal/model"
)

// EventBookingRow is one line of the per-event attendee list.
type EventBookingRow struct {
	Code     string `csv:"Booking Code"`
	Name     string `csv:"Name"`
	Email    string `csv:"Email"`
	Quantity int    `csv:"Quantity"`
	Status   string `csv:"Status"`
	Notes    string `csv:"Notes"`
	BookedOn string `csv:"Booked On"`
}

// BookingRow is one line of the all-bookings export.
type BookingRow struct {
	Code     string `csv:"Booking Code"`
	Attendee string `csv:"Attendee"`
	Email    string `csv:"Email"`
	Event    string `csv:"Event"`
	Quantity int    `csv:"Quantity"`
	Status   string `csv:"Status"`
	Date     string `csv:"Date"`
}

// EventRow is one line of the events export.
type EventRow struct {
	ID             string `csv:"ID"`
	Title          string `csv:"Title"`
	Status         string `csv:"Status"`
	BookingType    string `csv:"Booking Type"`
	Start          string `csv:"Start"`
	End            string `csv:"End"`
	Timezone       string `csv:"Timezone"`
	Location       string `csv:"Location"`
	Capacity       int    `csv:"Capacity"`
	Booked         int    `csv:"Booked"`
	Remaining      int    `csv:"Remaining"`
	Price          string `csv:"Price"`
	Tags           string `csv:"Tags"`
	OrganizerName  string `csv:"Organizer"`
	OrganizerEmail string `csv:"Organizer Email"`
}

const (
	minuteLayout = "2006-01-02 15:04"
	dayLayout    = "2006-01-02"
)

// WriteEventBookings writes the attendee list of one event.
func WriteEventBookings(w io.Writer, bookings []*model.Booking) error {
	rows := make([]*EventBookingRow, 0, len(bookings))
	for _, b := range bookings {
		notes := ""
		if b.Notes != nil {
			notes = *b.Notes
		}
		rows = append(rows, &EventBookingRow{
			Code:     b.BookingCode,
			Name:     b.AttendeeName,
			Email:    b.AttendeeEmail,
			Quantity: b.Quantity,
			Status:   string(b.Status),
			Notes:    notes,
			BookedOn: b.CreatedAt.UTC().Format(minuteLayout),
		})
	}
	return gocsv.Marshal(&rows, w)
}

// WriteBookings writes bookings across events.  Bookings whose event was
// not loaded show "Unknown".
func WriteBookings(w io.Writer, bookings []*model.Booking) error {
	rows := make([]*BookingRow, 0, len(bookings))
	for _, b := range bookings {
		title := "Unknown"
		if b.Event != nil {
			title = b.Event.Title
		}
		date := "TBD"
		if !b.CreatedAt.IsZero() {
			date = b.CreatedAt.UTC().Format(dayLayout)
		}
		rows = append(rows, &BookingRow{
			Code:     b.BookingCode,
			Attendee: b.AttendeeName,
			Email:    b.AttendeeEmail,
			Event:    title,
			Quantity: b.Quantity,
			Status:   string(b.Status),
			Date:     date,
		})
	}
	return gocsv.Marshal(&rows, w)
}

// WriteEvents writes the event catalogue.  Times are rendered in each
// event's own timezone.
func WriteEvents(w io.Writer, events []*model.Event) error {
	rows := make([]*EventRow, 0, len(events))
	for _, e := range events {
		price := ""
		if e.Price != nil {
			price = strconv.FormatFloat(*e.Price, 'f', 2, 64)
		}
		rows = append(rows, &EventRow{
			ID:             e.ID,
			Title:          e.Title,
			Status:         string(e.Status),
			BookingType:    string(e.BookingType),
			Start:          localTime(e.StartDateTime, e.Timezone).Format(minuteLayout),
			End:            localTime(e.EndDateTime, e.Timezone).Format(minuteLayout),
			Timezone:       e.Timezone,
			Location:       e.Location,
			Capacity:       e.Capacity,
			Booked:         e.BookedCount,
			Remaining:      e.Remaining,
			Price:          price,
			Tags:           strings.Join(e.Tags, ";"),
			OrganizerName:  e.OrganizerName,
			OrganizerEmail: e.OrganizerEmail,
		})
	}
	return gocsv.Marshal(&rows, w)
}

var spaces = regexp.MustCompile(`\s+`)

// FileName turns a title into a download name: whitespace runs become
// hyphens and path separators are dropped.
func FileName(title, ext string) string {
	name := spaces.ReplaceAllString(strings.TrimSpace(title), "-")
	name = strings.NewReplacer("/", "", "\\", "", "\"", "").Replace(name)
	if name == "" {
		name = "export"
	}
	return name + ext
}
