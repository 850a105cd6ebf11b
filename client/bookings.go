package client

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/iliyamo/event-booking/internal/booking"
	"github.com/iliyamo/event-booking/internal/model"
)

// BookingsSlice is the local copy of the bookings the session may see.
type BookingsSlice struct {
	api *Client

	mu    sync.RWMutex
	items []*model.Booking
}

func NewBookingsSlice(api *Client) *BookingsSlice { return &BookingsSlice{api: api} }

// Load replaces the slice with the server's list.  eventID and status may
// be empty.
func (s *BookingsSlice) Load(ctx context.Context, eventID string, status model.BookingStatus) error {
	q := url.Values{}
	if eventID != "" {
		q.Set("eventId", eventID)
	}
	if status != "" {
		q.Set("status", string(status))
	}
	var list []*model.Booking
	if err := s.api.do(ctx, http.MethodGet, "/bookings", q, nil, &list); err != nil {
		return err
	}
	s.mu.Lock()
	s.items = list
	s.mu.Unlock()
	return nil
}

// All returns a copy of the loaded bookings.
func (s *BookingsSlice) All() []*model.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*model.Booking(nil), s.items...)
}

// ForEvent returns the loaded bookings of one event.
func (s *BookingsSlice) ForEvent(eventID string) []*model.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Booking
	for _, b := range s.items {
		if b.EventID == eventID {
			out = append(out, b)
		}
	}
	return out
}

// BookedCount sums the tickets of the event's confirmed and checked-in
// bookings among those loaded.
func (s *BookingsSlice) BookedCount(eventID string) int {
	return booking.BookedCount(s.ForEvent(eventID))
}

func (s *BookingsSlice) upsert(b *model.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.items {
		if cur.ID == b.ID {
			s.items[i] = b
			return
		}
	}
	s.items = append(s.items, b)
}

// Book submits the booking form.  The server decides the status.
func (s *BookingsSlice) Book(ctx context.Context, req model.BookingRequest) (*model.Booking, error) {
	var out model.Booking
	if err := s.api.do(ctx, http.MethodPost, "/bookings", nil, req, &out); err != nil {
		return nil, err
	}
	s.upsert(&out)
	return &out, nil
}

// Act runs a guarded transition such as approve or check-in.
func (s *BookingsSlice) Act(ctx context.Context, id string, a booking.Action) (*model.Booking, error) {
	var out model.Booking
	if err := s.api.do(ctx, http.MethodPost, "/bookings/"+url.PathEscape(id)+"/"+string(a), nil, nil, &out); err != nil {
		return nil, err
	}
	s.upsert(&out)
	return &out, nil
}

// Patch is the admin overwrite of status or notes.
func (s *BookingsSlice) Patch(ctx context.Context, id string, p model.BookingPatch) (*model.Booking, error) {
	var out model.Booking
	if err := s.api.do(ctx, http.MethodPatch, "/bookings/"+url.PathEscape(id), nil, p, &out); err != nil {
		return nil, err
	}
	s.upsert(&out)
	return &out, nil
}

// DropEvent forgets the loaded bookings of eventID.
func (s *BookingsSlice) DropEvent(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	for _, b := range s.items {
		if b.EventID != eventID {
			kept = append(kept, b)
		}
	}
	clear(s.items[len(kept):])
	s.items = kept
}

func (s *BookingsSlice) Delete(ctx context.Context, id string) error {
	if err := s.api.do(ctx, http.MethodDelete, "/bookings/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.items {
		if cur.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return nil
}

// Calendar downloads the .ics file of a booking.
func (s *BookingsSlice) Calendar(ctx context.Context, id string) ([]byte, error) {
	return s.api.send(ctx, http.MethodGet, "/bookings/"+url.PathEscape(id)+"/calendar.ics", nil, nil)
}
