package handler

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/booking"
	"github.com/iliyamo/event-booking/internal/export"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/service"
)

// BookingStore is the booking persistence the handlers need.
type BookingStore interface {
	Book(ctx context.Context, req model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	List(ctx context.Context, f model.BookingFilter) ([]*model.Booking, error)
	Patch(ctx context.Context, id string, p model.BookingPatch) (*model.Booking, error)
	Transition(ctx context.Context, id string, action booking.Action) (*model.Booking, model.BookingStatus, error)
	Delete(ctx context.Context, id string) error
}

// BookingHandler serves /api/bookings.
type BookingHandler struct {
	Bookings  BookingStore
	Publisher service.Publisher
	Timeout   time.Duration
	Now       func() time.Time
}

func NewBookingHandler(bookings BookingStore, pub service.Publisher, timeout time.Duration) *BookingHandler {
	if pub == nil {
		pub = service.NopPublisher{}
	}
	return &BookingHandler{Bookings: bookings, Publisher: pub, Timeout: timeout, Now: time.Now}
}

func (h *BookingHandler) publish(c echo.Context, ev queue.BookingEvent) {
	// Publishing never fails the request; the booking is already stored.
	if err := h.Publisher.Publish(context.WithoutCancel(c.Request().Context()), ev); err != nil {
		logger.Warnf("publish %s for booking %s: %v", ev.Type, ev.BookingID, err)
	}
}

// Create handles POST /api/bookings.  The status (confirmed, pending or
// waitlist) is decided by the store under the event row lock.
func (h *BookingHandler) Create(c echo.Context) error {
	var req model.BookingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	booking.NormalizeBookingRequest(&req)
	if err := booking.ValidateBookingRequest(req); err != nil {
		return respondError(c, err, "")
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	b, err := h.Bookings.Book(ctx, req)
	if err != nil {
		return respondError(c, err, "could not create booking")
	}
	h.publish(c, queue.Created(b, h.Now()))
	return c.JSON(http.StatusCreated, b)
}

func bookingFilter(c echo.Context) (model.BookingFilter, error) {
	f := model.BookingFilter{
		EventID:       c.QueryParam("eventId"),
		AttendeeEmail: c.QueryParam("attendeeEmail"),
		Status:        model.BookingStatus(c.QueryParam("status")),
		Query:         c.QueryParam("q"),
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, booking.Errors{"status": "Unknown status"}
	}
	return f, nil
}

// List handles GET /api/bookings.  Non-admins are pinned to bookings made
// with their own email whatever attendeeEmail they ask for.
func (h *BookingHandler) List(c echo.Context) error {
	f, err := bookingFilter(c)
	if err != nil {
		return respondError(c, err, "")
	}
	if s := session(c); !s.IsAdmin() {
		if s.Email == "" {
			return c.JSON(http.StatusOK, []*model.Booking{})
		}
		f.AttendeeEmail = s.Email
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	list, err := h.Bookings.List(ctx, f)
	if err != nil {
		return respondError(c, err, "failed to list bookings")
	}
	return c.JSON(http.StatusOK, list)
}

// load fetches the booking in the path and hides it from callers who do
// not own it.
func (h *BookingHandler) load(ctx context.Context, c echo.Context) (*model.Booking, error) {
	b, err := h.Bookings.GetByID(ctx, c.Param("id"))
	if err != nil {
		return nil, err
	}
	if !ownsBooking(c, b) {
		return nil, repository.ErrBookingNotFound
	}
	return b, nil
}

// Get handles GET /api/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	b, err := h.load(ctx, c)
	if err != nil {
		return respondError(c, err, "failed to load booking")
	}
	return c.JSON(http.StatusOK, b)
}

// Patch handles PATCH /api/bookings/:id, the raw admin overwrite.  Any
// known status is accepted regardless of the current one.
func (h *BookingHandler) Patch(c echo.Context) error {
	var p model.BookingPatch
	if err := c.Bind(&p); err != nil {
		return badRequest(c, "invalid request body")
	}
	if p.Empty() {
		return badRequest(c, "no fields to update")
	}
	if p.Status != nil && !p.Status.Valid() {
		return respondError(c, booking.Errors{"status": "Unknown status"}, "")
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	before, err := h.Bookings.GetByID(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err, "failed to load booking")
	}
	b, err := h.Bookings.Patch(ctx, before.ID, p)
	if err != nil {
		return respondError(c, err, "could not update booking")
	}
	if b.Status != before.Status {
		h.publish(c, queue.StatusChanged(b, before.Status, session(c).Username, h.Now()))
	}
	return c.JSON(http.StatusOK, b)
}

// Delete handles DELETE /api/bookings/:id.
func (h *BookingHandler) Delete(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	if err := h.Bookings.Delete(ctx, c.Param("id")); err != nil {
		return respondError(c, err, "could not delete booking")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Action returns the handler for one guarded transition, e.g. POST
// /api/bookings/:id/approve.  An action the current status does not allow
// answers 409.  Only cancel is open to the booking's owner; the router
// keeps the others admin only.
func (h *BookingHandler) Action(action booking.Action) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := withTimeout(c, h.Timeout)
		defer cancel()
		if !isAdmin(c) {
			if action != booking.ActionCancel {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			if _, err := h.load(ctx, c); err != nil {
				return respondError(c, err, "failed to load booking")
			}
		}
		b, prev, err := h.Bookings.Transition(ctx, c.Param("id"), action)
		if err != nil {
			return respondError(c, err, "could not update booking")
		}
		h.publish(c, queue.StatusChanged(b, prev, session(c).Username, h.Now()))
		return c.JSON(http.StatusOK, b)
	}
}

// Calendar handles GET /api/bookings/:id/calendar.ics.
func (h *BookingHandler) Calendar(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	b, err := h.load(ctx, c)
	if err != nil {
		return respondError(c, err, "failed to load booking")
	}
	if b.Event == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	attachment(c, export.FileName(b.Event.Title, ".ics"))
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(export.BookingCalendar(b, b.Event, h.Now())))
}

// ExportCSV handles GET /api/bookings/export.csv.  It honours the list
// filters.
func (h *BookingHandler) ExportCSV(c echo.Context) error {
	f, err := bookingFilter(c)
	if err != nil {
		return respondError(c, err, "")
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	list, err := h.Bookings.List(ctx, f)
	if err != nil {
		return respondError(c, err, "failed to list bookings")
	}
	var buf bytes.Buffer
	if err := export.WriteBookings(&buf, list); err != nil {
		return respondError(c, err, "export failed")
	}
	attachment(c, "bookings-"+h.Now().UTC().Format("2006-01-02")+".csv")
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
