package client

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/event-booking/internal/model"
)

// EventFilter mirrors the query parameters of GET /api/events.
type EventFilter struct {
	Status      model.EventStatus
	BookingType model.BookingType
	Tag         string
	Query       string
	From, To    time.Time
}

func (f EventFilter) values() url.Values {
	v := url.Values{}
	if f.Status != "" {
		v.Set("status", string(f.Status))
	}
	if f.BookingType != "" {
		v.Set("bookingType", string(f.BookingType))
	}
	if f.Tag != "" {
		v.Set("tag", f.Tag)
	}
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	if !f.From.IsZero() {
		v.Set("from", f.From.UTC().Format(time.RFC3339))
	}
	if !f.To.IsZero() {
		v.Set("to", f.To.UTC().Format(time.RFC3339))
	}
	return v
}

// EventsSlice is the local copy of the event list.
type EventsSlice struct {
	api *Client

	mu    sync.RWMutex
	items []*model.Event
}

func NewEventsSlice(api *Client) *EventsSlice { return &EventsSlice{api: api} }

// Load replaces the slice with the server's list for f.
func (s *EventsSlice) Load(ctx context.Context, f EventFilter) error {
	var list []*model.Event
	if err := s.api.do(ctx, http.MethodGet, "/events", f.values(), nil, &list); err != nil {
		return err
	}
	s.mu.Lock()
	s.items = list
	s.mu.Unlock()
	return nil
}

// All returns a copy of the loaded events.
func (s *EventsSlice) All() []*model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*model.Event(nil), s.items...)
}

// Get returns a loaded event by id.
func (s *EventsSlice) Get(id string) (*model.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.items {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// Tags returns the sorted set of tags across the loaded events.
func (s *EventsSlice) Tags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]struct{}{}
	for _, e := range s.items {
		for _, t := range e.Tags {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (s *EventsSlice) upsert(e *model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.items {
		if cur.ID == e.ID {
			s.items[i] = e
			return
		}
	}
	s.items = append(s.items, e)
}

func (s *EventsSlice) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.items {
		if cur.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// Fetch loads a single event from the server and stores it.
func (s *EventsSlice) Fetch(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	if err := s.api.do(ctx, http.MethodGet, "/events/"+url.PathEscape(id), nil, nil, &e); err != nil {
		return nil, err
	}
	s.upsert(&e)
	return &e, nil
}

// Create stores a new event on the server.
func (s *EventsSlice) Create(ctx context.Context, e *model.Event) (*model.Event, error) {
	var out model.Event
	if err := s.api.do(ctx, http.MethodPost, "/events", nil, e, &out); err != nil {
		return nil, err
	}
	s.upsert(&out)
	return &out, nil
}

// Update sends a partial update.
func (s *EventsSlice) Update(ctx context.Context, id string, p model.EventPatch) (*model.Event, error) {
	var out model.Event
	if err := s.api.do(ctx, http.MethodPatch, "/events/"+url.PathEscape(id), nil, p, &out); err != nil {
		return nil, err
	}
	s.upsert(&out)
	return &out, nil
}

// Delete removes the event.  The server also deletes its bookings, but a
// BookingsSlice is not touched; use DeleteEvent to prune both.
func (s *EventsSlice) Delete(ctx context.Context, id string) error {
	if err := s.api.do(ctx, http.MethodDelete, "/events/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return err
	}
	s.remove(id)
	return nil
}

func (s *EventsSlice) action(ctx context.Context, id, name string) (*model.Event, error) {
	var out model.Event
	if err := s.api.do(ctx, http.MethodPost, "/events/"+url.PathEscape(id)+"/"+name, nil, nil, &out); err != nil {
		return nil, err
	}
	s.upsert(&out)
	return &out, nil
}

func (s *EventsSlice) Publish(ctx context.Context, id string) (*model.Event, error) {
	return s.action(ctx, id, "publish")
}

func (s *EventsSlice) Unpublish(ctx context.Context, id string) (*model.Event, error) {
	return s.action(ctx, id, "unpublish")
}

func (s *EventsSlice) Cancel(ctx context.Context, id string) (*model.Event, error) {
	return s.action(ctx, id, "cancel")
}

// Duplicate copies the event as a new draft.
func (s *EventsSlice) Duplicate(ctx context.Context, id string) (*model.Event, error) {
	return s.action(ctx, id, "duplicate")
}
