package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/event-booking/internal/booking"
	"github.com/iliyamo/event-booking/internal/middleware"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/repository"
)

var logger = log.New("handler")

// defaultTimeout bounds database work per request when no timeout is
// configured.
const defaultTimeout = 5 * time.Second

func withTimeout(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultTimeout
	}
	return context.WithTimeout(c.Request().Context(), d)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// respondError maps domain errors onto status codes.  Anything it does not
// recognise is logged and answered with a 500 carrying only fallback.
func respondError(c echo.Context, err error, fallback string) error {
	var verr booking.Errors
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "details": verr})
	case errors.Is(err, repository.ErrEventNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrEventClosed):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrLastAdmin),
		errors.Is(err, repository.ErrUsernameExists),
		errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "request timed out"})
	}
	logger.Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
}

// session returns the caller, or a zero guest session.
func session(c echo.Context) middleware.Session {
	s, _ := middleware.CurrentSession(c)
	return s
}

func isAdmin(c echo.Context) bool { return session(c).IsAdmin() }

// ownsBooking reports whether the caller may see b: admins see all,
// everyone else only bookings made with their email.
func ownsBooking(c echo.Context, b *model.Booking) bool {
	s := session(c)
	if s.IsAdmin() {
		return true
	}
	return s.Email != "" && s.Email == b.AttendeeEmail
}

func attachment(c echo.Context, name string) {
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
}
