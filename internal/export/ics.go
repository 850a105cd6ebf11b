package export

import (
	"time"
	_ "time/tzdata"

	ics "github.com/arran4/golang-ical"

	"github.com/iliyamo/event-booking/internal/model"
)

// ProductID identifies this service in generated calendars.
const ProductID = "-//EventBook//EN"

// BookingCalendar renders a single-event calendar for a booking so the
// attendee can add it to their calendar.  The UID is derived from the
// booking code, which keeps re-downloads idempotent in calendar clients.
func BookingCalendar(b *model.Booking, e *model.Event, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ics.MethodPublish)

	ev := cal.AddEvent(b.BookingCode + "@eventbook")
	ev.SetDtStampTime(now.UTC())
	ev.SetStartAt(e.StartDateTime.UTC())
	ev.SetEndAt(e.EndDateTime.UTC())
	ev.SetSummary(e.Title)
	ev.SetDescription(e.ShortDescription + "\n\nBooking Code: " + b.BookingCode)
	ev.SetLocation(e.Location)
	if e.OnlineURL != nil {
		ev.SetURL(*e.OnlineURL)
	}
	if e.OrganizerEmail != "" {
		ev.SetOrganizer("mailto:"+e.OrganizerEmail, ics.WithCN(e.OrganizerName))
	}
	return cal.Serialize()
}

func localTime(t time.Time, tz string) time.Time {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return t.UTC()
	}
	return t.In(loc)
}
