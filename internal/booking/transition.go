package booking

import (
	"errors"
	"fmt"

	"github.com/iliyamo/event-booking/internal/model"
)

// ErrInvalidTransition is returned when an action is applied to a booking
// or event whose current status does not allow it.
var ErrInvalidTransition = errors.New("invalid status transition")

// Action names an admin or attendee operation on a booking.
type Action string

const (
	ActionApprove     Action = "approve"
	ActionReject      Action = "reject"
	ActionCheckIn     Action = "check-in"
	ActionUndoCheckIn Action = "undo-check-in"
	ActionCancel      Action = "cancel"
)

type transition struct {
	from []model.BookingStatus
	to   model.BookingStatus
}

var bookingTransitions = map[Action]transition{
	ActionApprove:     {from: []model.BookingStatus{model.StatusPending}, to: model.StatusConfirmed},
	ActionReject:      {from: []model.BookingStatus{model.StatusPending}, to: model.StatusCancelled},
	ActionCheckIn:     {from: []model.BookingStatus{model.StatusConfirmed}, to: model.StatusCheckedIn},
	ActionUndoCheckIn: {from: []model.BookingStatus{model.StatusCheckedIn}, to: model.StatusConfirmed},
	ActionCancel: {
		from: []model.BookingStatus{model.StatusConfirmed, model.StatusPending, model.StatusWaitlist},
		to:   model.StatusCancelled,
	},
}

// ParseAction validates an action name taken from a URL.
func ParseAction(s string) (Action, bool) {
	a := Action(s)
	_, ok := bookingTransitions[a]
	return a, ok
}

// Apply returns the status a booking moves to when action is applied in
// state current.  It wraps ErrInvalidTransition when the action is not
// allowed from current.
func Apply(action Action, current model.BookingStatus) (model.BookingStatus, error) {
	t, ok := bookingTransitions[action]
	if !ok {
		return "", fmt.Errorf("unknown action %q: %w", action, ErrInvalidTransition)
	}
	for _, f := range t.from {
		if f == current {
			return t.to, nil
		}
	}
	return "", fmt.Errorf("cannot %s a %s booking: %w", action, current, ErrInvalidTransition)
}

// EventAction names a publishing lifecycle operation.
type EventAction string

const (
	EventPublish   EventAction = "publish"
	EventUnpublish EventAction = "unpublish"
	EventCancel    EventAction = "cancel"
)

// ApplyEvent returns the status an event moves to.  Publishing is allowed
// from any state, including cancelled; unpublish requires published;
// cancel is allowed from draft or published.
func ApplyEvent(action EventAction, current model.EventStatus) (model.EventStatus, error) {
	switch action {
	case EventPublish:
		return model.EventPublished, nil
	case EventUnpublish:
		if current != model.EventPublished {
			return "", fmt.Errorf("cannot unpublish a %s event: %w", current, ErrInvalidTransition)
		}
		return model.EventDraft, nil
	case EventCancel:
		if current == model.EventCancelled {
			return "", fmt.Errorf("event already cancelled: %w", ErrInvalidTransition)
		}
		return model.EventCancelled, nil
	}
	return "", fmt.Errorf("unknown event action %q: %w", action, ErrInvalidTransition)
}

// DuplicateTitle returns the title given to a copied event.
func DuplicateTitle(title string) string {
	return title + " (Copy)"
}

// Duplicate returns a draft copy of src without id, timestamps or bookings.
func Duplicate(src *model.Event) *model.Event {
	cp := *src
	cp.ID = ""
	cp.Title = DuplicateTitle(src.Title)
	cp.Status = model.EventDraft
	cp.Bookings = nil
	cp.BookedCount = 0
	cp.Remaining = src.Capacity
	cp.Tags = append([]string(nil), src.Tags...)
	return &cp
}
