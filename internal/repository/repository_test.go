package repository

import (
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var (
	testNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

	eventCols = []string{
		"id", "title", "short_description", "long_description", "location",
		"online_url", "cover_image_url", "start_at", "end_at", "timezone", "capacity",
		"booking_type", "price", "tags", "status", "organizer_name", "organizer_email",
		"created_at", "updated_at", "booked",
	}
	bookingCols = []string{
		"id", "event_id", "attendee_name", "attendee_email", "quantity",
		"status", "booking_code", "notes", "created_at", "updated_at",
	}
	userCols = []string{"id", "username", "email", "password_hash", "role", "created_at", "updated_at"}
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

type testEvent struct {
	id, bookingType, status string
	capacity, booked        int
	price                   any
}

func (e testEvent) values() []driver.Value {
	return []driver.Value{
		e.id, "Go Meetup", "Monthly meetup", nil, "Warsaw",
		nil, nil, testNow.Add(24 * time.Hour), testNow.Add(27 * time.Hour), "Europe/Warsaw", e.capacity,
		e.bookingType, e.price, `["go","meetup"]`, e.status, "Gophers", "hi@gophers.pl",
		testNow, testNow, e.booked,
	}
}

func eventRows(events ...testEvent) *sqlmock.Rows {
	rows := sqlmock.NewRows(eventCols)
	for _, e := range events {
		rows.AddRow(e.values()...)
	}
	return rows
}

type testBooking struct {
	id, eventID, status, code string
	quantity                  int
}

func (b testBooking) values() []driver.Value {
	return []driver.Value{
		b.id, b.eventID, "Anna Nowak", "anna@example.com", b.quantity,
		b.status, b.code, nil, testNow, testNow,
	}
}

func bookingWithEventRows(pairs ...[2]any) *sqlmock.Rows {
	rows := sqlmock.NewRows(append(append([]string{}, bookingCols...), eventCols...))
	for _, p := range pairs {
		b := p[0].(testBooking)
		e := p[1].(testEvent)
		rows.AddRow(append(b.values(), e.values()...)...)
	}
	return rows
}
