package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking/internal/model"
)

func TestApply_AllowedTransitions(t *testing.T) {
	cases := []struct {
		action Action
		from   model.BookingStatus
		to     model.BookingStatus
	}{
		{ActionApprove, model.StatusPending, model.StatusConfirmed},
		{ActionReject, model.StatusPending, model.StatusCancelled},
		{ActionCheckIn, model.StatusConfirmed, model.StatusCheckedIn},
		{ActionUndoCheckIn, model.StatusCheckedIn, model.StatusConfirmed},
		{ActionCancel, model.StatusWaitlist, model.StatusCancelled},
		{ActionCancel, model.StatusConfirmed, model.StatusCancelled},
	}
	for _, tc := range cases {
		got, err := Apply(tc.action, tc.from)
		require.NoError(t, err, "%s from %s", tc.action, tc.from)
		assert.Equal(t, tc.to, got)
	}
}

func TestApply_RejectedTransitions(t *testing.T) {
	_, err := Apply(ActionApprove, model.StatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Apply(ActionCheckIn, model.StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Apply(ActionCancel, model.StatusCheckedIn)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Apply(Action("teleport"), model.StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestParseAction(t *testing.T) {
	a, ok := ParseAction("undo-check-in")
	assert.True(t, ok)
	assert.Equal(t, ActionUndoCheckIn, a)

	_, ok = ParseAction("delete")
	assert.False(t, ok)
}

func TestApplyEvent(t *testing.T) {
	st, err := ApplyEvent(EventPublish, model.EventDraft)
	require.NoError(t, err)
	assert.Equal(t, model.EventPublished, st)

	// No guard keeps a cancelled event from being published again.
	st, err = ApplyEvent(EventPublish, model.EventCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.EventPublished, st)

	st, err = ApplyEvent(EventUnpublish, model.EventPublished)
	require.NoError(t, err)
	assert.Equal(t, model.EventDraft, st)

	_, err = ApplyEvent(EventUnpublish, model.EventDraft)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = ApplyEvent(EventCancel, model.EventCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDuplicate(t *testing.T) {
	price := 49.0
	src := &model.Event{
		ID:          "e1",
		Title:       "Go Meetup",
		Status:      model.EventPublished,
		Capacity:    30,
		Price:       &price,
		Tags:        []string{"go"},
		BookedCount: 12,
		Bookings:    []*model.Booking{{ID: "b1"}},
	}
	cp := Duplicate(src)
	assert.Empty(t, cp.ID)
	assert.Equal(t, "Go Meetup (Copy)", cp.Title)
	assert.Equal(t, model.EventDraft, cp.Status)
	assert.Nil(t, cp.Bookings)
	assert.Equal(t, 30, cp.Remaining)

	cp.Tags[0] = "changed"
	assert.Equal(t, "go", src.Tags[0])
}

func TestGenerateSlots(t *testing.T) {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	slots, err := GenerateSlots(start, SlotPlan{SessionMinutes: 60, BreakMinutes: 15, Sessions: 3})
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, start, slots[0].StartTime)
	assert.Equal(t, start.Add(time.Hour), slots[0].EndTime)
	assert.Equal(t, start.Add(75*time.Minute), slots[1].StartTime)
	assert.Equal(t, start.Add(3*time.Hour+30*time.Minute), slots[2].EndTime)

	assert.NoError(t, SlotsFit(slots, start.Add(4*time.Hour)))
	assert.Error(t, SlotsFit(slots, start.Add(3*time.Hour)))
}

func TestGenerateSlots_InvalidPlan(t *testing.T) {
	_, err := GenerateSlots(time.Now(), SlotPlan{SessionMinutes: 10, BreakMinutes: -1, Sessions: 0})
	require.Error(t, err)
	verr, ok := err.(Errors)
	require.True(t, ok)
	assert.Len(t, verr, 3)
}
