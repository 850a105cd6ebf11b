package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking/internal/booking"
	"github.com/iliyamo/event-booking/internal/model"
)

func TestDemoEvents_AreValidAndPublished(t *testing.T) {
	events := DemoEvents(testNow)
	require.Len(t, events, 5)
	for _, e := range events {
		booking.NormalizeEvent(e)
		assert.NoError(t, booking.ValidateEvent(e), e.Title)
		assert.Equal(t, model.EventPublished, e.Status)
		assert.True(t, e.StartDateTime.After(testNow), e.Title)
	}
}

func TestSeed(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	for _, table := range []string{"bookings", "events", "refresh_tokens", "users"} {
		mock.ExpectExec("DELETE FROM " + table).WillReturnResult(sqlmock.NewResult(0, 3))
	}
	for range DemoUsers {
		mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))
	}
	for range DemoEvents(testNow) {
		mock.ExpectExec("INSERT INTO events").WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	res, err := NewSeedRepo(db, 4).Seed(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Users: 2, Events: 5}, res)
}

func TestSeed_RollsBackOnFailure(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM bookings").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := NewSeedRepo(db, 4).Seed(context.Background(), testNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear bookings")
}
