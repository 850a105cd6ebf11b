package handler

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/booking"
	"github.com/iliyamo/event-booking/internal/export"
	"github.com/iliyamo/event-booking/internal/model"
)

// EventStore is the event persistence the handlers need.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id string, withBookings bool) (*model.Event, error)
	List(ctx context.Context, f model.EventFilter, withBookings bool) ([]*model.Event, error)
	Update(ctx context.Context, id string, mutate func(*model.Event) error) (*model.Event, error)
	SetStatus(ctx context.Context, id string, action booking.EventAction) (*model.Event, error)
	Delete(ctx context.Context, id string) error
	Duplicate(ctx context.Context, id string) (*model.Event, error)
	Stats(ctx context.Context, now time.Time) (model.EventStats, error)
}

// EventHandler serves /api/events.
type EventHandler struct {
	Events  EventStore
	Timeout time.Duration
}

func NewEventHandler(events EventStore, timeout time.Duration) *EventHandler {
	return &EventHandler{Events: events, Timeout: timeout}
}

// parseDay accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDay(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, true
		}
	}
	return nil, false
}

func eventFilter(c echo.Context) (model.EventFilter, error) {
	f := model.EventFilter{
		Status:      model.EventStatus(c.QueryParam("status")),
		BookingType: model.BookingType(c.QueryParam("bookingType")),
		Tag:         c.QueryParam("tag"),
		Query:       c.QueryParam("q"),
	}
	v := booking.Errors{}
	if f.Status != "" && !f.Status.Valid() {
		v.Add("status", "Unknown status")
	}
	if f.BookingType != "" && !f.BookingType.Valid() {
		v.Add("bookingType", "Unknown booking type")
	}
	var ok bool
	if f.From, ok = parseDay(c.QueryParam("from")); !ok {
		v.Add("from", "Use YYYY-MM-DD or RFC 3339")
	}
	if f.To, ok = parseDay(c.QueryParam("to")); !ok {
		v.Add("to", "Use YYYY-MM-DD or RFC 3339")
	}
	if f.To != nil && len(strings.TrimSpace(c.QueryParam("to"))) == len("2006-01-02") {
		end := f.To.Add(24*time.Hour - time.Nanosecond) // whole day inclusive
		f.To = &end
	}
	return f, v.Err()
}

// visible reports whether the caller may see e.  Drafts are admin only.
func visible(c echo.Context, e *model.Event) bool {
	return e.Status != model.EventDraft || isAdmin(c)
}

// List handles GET /api/events.  Guests and users only ever see published
// events; admins see everything, with bookings embedded.
func (h *EventHandler) List(c echo.Context) error {
	f, err := eventFilter(c)
	if err != nil {
		return respondError(c, err, "")
	}
	admin := isAdmin(c)
	if !admin {
		f.Status = model.EventPublished
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	events, err := h.Events.List(ctx, f, admin)
	if err != nil {
		return respondError(c, err, "failed to list events")
	}
	return c.JSON(http.StatusOK, events)
}

// Get handles GET /api/events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	admin := isAdmin(c)
	e, err := h.Events.GetByID(ctx, c.Param("id"), admin)
	if err != nil {
		return respondError(c, err, "failed to load event")
	}
	if !visible(c, e) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	return c.JSON(http.StatusOK, e)
}

// Create handles POST /api/events.
func (h *EventHandler) Create(c echo.Context) error {
	var e model.Event
	if err := c.Bind(&e); err != nil {
		return badRequest(c, "invalid request body")
	}
	e.Bookings, e.BookedCount, e.Remaining = nil, 0, 0
	booking.NormalizeEvent(&e)
	if err := booking.ValidateEvent(&e); err != nil {
		return respondError(c, err, "")
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	if err := h.Events.Create(ctx, &e); err != nil {
		return respondError(c, err, "could not create event")
	}
	return c.JSON(http.StatusCreated, &e)
}

// Update handles PATCH /api/events/:id.  The patch is merged into the
// locked row and the merged event is validated as a whole, so a new end
// time is checked against the stored start time.
func (h *EventHandler) Update(c echo.Context) error {
	var p model.EventPatch
	if err := c.Bind(&p); err != nil {
		return badRequest(c, "invalid request body")
	}
	if p.Empty() {
		return badRequest(c, "no fields to update")
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	e, err := h.Events.Update(ctx, c.Param("id"), func(e *model.Event) error {
		p.Apply(e)
		booking.NormalizeEvent(e)
		return booking.ValidateEvent(e)
	})
	if err != nil {
		return respondError(c, err, "could not update event")
	}
	return c.JSON(http.StatusOK, e)
}

// Delete handles DELETE /api/events/:id.  Bookings go with the event.
func (h *EventHandler) Delete(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	if err := h.Events.Delete(ctx, c.Param("id")); err != nil {
		return respondError(c, err, "could not delete event")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *EventHandler) setStatus(action booking.EventAction) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := withTimeout(c, h.Timeout)
		defer cancel()
		e, err := h.Events.SetStatus(ctx, c.Param("id"), action)
		if err != nil {
			return respondError(c, err, "could not change event status")
		}
		return c.JSON(http.StatusOK, e)
	}
}

// Publish handles POST /api/events/:id/publish.
func (h *EventHandler) Publish(c echo.Context) error { return h.setStatus(booking.EventPublish)(c) }

// Unpublish handles POST /api/events/:id/unpublish.
func (h *EventHandler) Unpublish(c echo.Context) error { return h.setStatus(booking.EventUnpublish)(c) }

// Cancel handles POST /api/events/:id/cancel.
func (h *EventHandler) Cancel(c echo.Context) error { return h.setStatus(booking.EventCancel)(c) }

// Duplicate handles POST /api/events/:id/duplicate.
func (h *EventHandler) Duplicate(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	e, err := h.Events.Duplicate(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err, "could not duplicate event")
	}
	return c.JSON(http.StatusCreated, e)
}

type slotsResp struct {
	EventID string         `json:"eventId"`
	Slots   []booking.Slot `json:"slots"`
	Fits    bool           `json:"fits"`
	Warning string         `json:"warning,omitempty"`
}

// Slots handles GET /api/events/:id/slots: a preview of the event cut into
// back-to-back sessions.  Sessions running past the event end are still
// returned, flagged with fits=false.
func (h *EventHandler) Slots(c echo.Context) error {
	var plan booking.SlotPlan
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &plan); err != nil {
		return badRequest(c, "invalid query parameters")
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	e, err := h.Events.GetByID(ctx, c.Param("id"), false)
	if err != nil {
		return respondError(c, err, "failed to load event")
	}
	if !visible(c, e) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	slots, err := booking.GenerateSlots(e.StartDateTime, plan)
	if err != nil {
		return respondError(c, err, "")
	}
	resp := slotsResp{EventID: e.ID, Slots: slots, Fits: true}
	if err := booking.SlotsFit(slots, e.EndDateTime); err != nil {
		resp.Fits, resp.Warning = false, err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

// BookingsCSV handles GET /api/events/:id/bookings.csv.
func (h *EventHandler) BookingsCSV(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	e, err := h.Events.GetByID(ctx, c.Param("id"), true)
	if err != nil {
		return respondError(c, err, "failed to load event")
	}
	var buf bytes.Buffer
	if err := export.WriteEventBookings(&buf, e.Bookings); err != nil {
		return respondError(c, err, "export failed")
	}
	attachment(c, export.FileName(e.Title+" bookings", ".csv"))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportCSV handles GET /api/events/export.csv.  It honours the list
// filters.
func (h *EventHandler) ExportCSV(c echo.Context) error {
	f, err := eventFilter(c)
	if err != nil {
		return respondError(c, err, "")
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	events, err := h.Events.List(ctx, f, false)
	if err != nil {
		return respondError(c, err, "failed to list events")
	}
	var buf bytes.Buffer
	if err := export.WriteEvents(&buf, events); err != nil {
		return respondError(c, err, "export failed")
	}
	attachment(c, "events-"+time.Now().UTC().Format("2006-01-02")+".csv")
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
