package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking/internal/booking"
	"github.com/iliyamo/event-booking/internal/model"
)

func TestEventRepo_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db)

	e := &model.Event{
		Title:       "Go Meetup",
		Capacity:    40,
		BookingType: model.BookingFree,
		Status:      model.EventDraft,
		Tags:        nil,
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WithArgs(sqlmock.AnyArg(), "Go Meetup", "", nil, "", nil, nil,
			sqlmock.AnyArg(), sqlmock.AnyArg(), "", 40, "free", nil, "[]", "draft", "", "",
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), e))
	assert.Len(t, e.ID, 36)
	assert.Equal(t, 40, e.Remaining)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestEventRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM events e WHERE e.id = ?").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := NewEventRepo(db).GetByID(context.Background(), "missing", false)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestEventRepo_GetByID_WithBookings(t *testing.T) {
	db, mock := newMock(t)
	price := 25.5
	mock.ExpectQuery("FROM events e WHERE e.id = ?").WithArgs("e1").
		WillReturnRows(eventRows(testEvent{id: "e1", bookingType: "ticketed", status: "published", capacity: 10, booked: 3, price: price}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings b WHERE b.event_id IN (?)")).WithArgs("e1").
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(testBooking{id: "b1", eventID: "e1", status: "confirmed", code: "EVT-AAAAA", quantity: 3}.values()...).
			AddRow(testBooking{id: "b2", eventID: "e1", status: "waitlist", code: "EVT-BBBBB", quantity: 9}.values()...))

	e, err := NewEventRepo(db).GetByID(context.Background(), "e1", true)
	require.NoError(t, err)
	assert.Equal(t, 3, e.BookedCount)
	assert.Equal(t, 7, e.Remaining)
	require.NotNil(t, e.Price)
	assert.Equal(t, 25.5, *e.Price)
	assert.Equal(t, []string{"go", "meetup"}, e.Tags)
	require.Len(t, e.Bookings, 2)
	assert.Equal(t, booking.BookedCount(e.Bookings), e.BookedCount)
}

func TestEventRepo_List_Filters(t *testing.T) {
	db, mock := newMock(t)
	f := model.EventFilter{
		Status:      model.EventPublished,
		BookingType: model.BookingFree,
		Tag:         "Go",
		Query:       "50%",
		From:        &testNow,
	}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.status = ? AND e.booking_type = ? AND e.tags LIKE ? AND (e.title LIKE ?")).
		WithArgs("published", "free", `%"go"%`, `%50\%%`, `%50\%%`, `%50\%%`, `%50\%%`, testNow).
		WillReturnRows(eventRows(
			testEvent{id: "e1", bookingType: "free", status: "published", capacity: 10},
			testEvent{id: "e2", bookingType: "free", status: "published", capacity: 5, booked: 5},
		))

	events, err := NewEventRepo(db).List(context.Background(), f, false)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 0, events[1].Remaining)
	assert.Nil(t, events[0].Bookings)
}

func TestEventRepo_List_EmptyIsNotNil(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("ORDER BY e.start_at ASC").WillReturnRows(sqlmock.NewRows(eventCols))

	events, err := NewEventRepo(db).List(context.Background(), model.EventFilter{}, true)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestEventRepo_Delete_RemovesBookingsInTx(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookings WHERE event_id = ?")).WithArgs("e1").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM events WHERE id = ?")).WithArgs("e1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, NewEventRepo(db).Delete(context.Background(), "e1"))
}

func TestEventRepo_Delete_NotFoundRollsBack(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM bookings").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM events").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, NewEventRepo(db).Delete(context.Background(), "nope"), ErrEventNotFound)
}

func TestEventRepo_Update_MutateErrorRollsBack(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("e1").
		WillReturnRows(eventRows(testEvent{id: "e1", bookingType: "free", status: "draft", capacity: 10}))
	mock.ExpectRollback()

	boom := errors.New("invalid")
	_, err := NewEventRepo(db).Update(context.Background(), "e1", func(*model.Event) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestEventRepo_Update_WritesMergedRow(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("e1").
		WillReturnRows(eventRows(testEvent{id: "e1", bookingType: "free", status: "draft", capacity: 10, booked: 4}))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET title = ?")).
		WithArgs("Renamed", sqlmock.AnyArg(), nil, sqlmock.AnyArg(), nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), 12, "free", nil, `["go","meetup"]`, "draft", sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), "e1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	title, capacity := "Renamed", 12
	patch := model.EventPatch{Title: &title, Capacity: &capacity}
	e, err := NewEventRepo(db).Update(context.Background(), "e1", func(e *model.Event) error {
		patch.Apply(e)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", e.Title)
	assert.Equal(t, 8, e.Remaining)
}

func TestEventRepo_SetStatus_Guarded(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(eventRows(testEvent{id: "e1", bookingType: "free", status: "draft", capacity: 10}))
	mock.ExpectRollback()

	_, err := NewEventRepo(db).SetStatus(context.Background(), "e1", booking.EventUnpublish)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestEventRepo_Duplicate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM events e WHERE e.id = ?").WithArgs("e1").
		WillReturnRows(eventRows(testEvent{id: "e1", bookingType: "free", status: "published", capacity: 10, booked: 6}))
	mock.ExpectExec("INSERT INTO events").
		WithArgs(sqlmock.AnyArg(), "Go Meetup (Copy)", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), 10,
			"free", nil, `["go","meetup"]`, "draft", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	cp, err := NewEventRepo(db).Duplicate(context.Background(), "e1")
	require.NoError(t, err)
	assert.NotEqual(t, "e1", cp.ID)
	assert.Equal(t, model.EventDraft, cp.Status)
	assert.Equal(t, 0, cp.BookedCount)
	assert.Equal(t, 10, cp.Remaining)
}

func TestEventRepo_Stats(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM events WHERE status = 'published' AND start_at > ?")).
		WithArgs(testNow, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(sqlmock.NewRows([]string{"a", "b", "c", "d", "e", "f"}).AddRow(3, 2, 120, 45, 1, 4))

	s, err := NewEventRepo(db).Stats(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, model.EventStats{
		UpcomingEvents:   3,
		TodayBookings:    2,
		TotalCapacity:    120,
		TotalBooked:      45,
		OccupancyRate:    38,
		Cancellations:    1,
		PendingApprovals: 4,
	}, s)
}
