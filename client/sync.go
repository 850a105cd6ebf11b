package client

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Reload fetches events and bookings concurrently.  Bookings are only
// loaded for a signed-in session; guests cannot list them.
func Reload(ctx context.Context, s *Session, events *EventsSlice, bookings *BookingsSlice, f EventFilter) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return events.Load(ctx, f) })
	if s.SignedIn() && bookings != nil {
		g.Go(func() error { return bookings.Load(ctx, "", "") })
	}
	return g.Wait()
}

// DeleteEvent deletes an event on the server and drops it, together with
// the bookings the server removed with it, from the local slices.
func DeleteEvent(ctx context.Context, events *EventsSlice, bookings *BookingsSlice, id string) error {
	if err := events.Delete(ctx, id); err != nil {
		return err
	}
	if bookings != nil {
		bookings.DropEvent(id)
	}
	return nil
}
