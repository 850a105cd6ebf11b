// Package repository holds the MySQL data access code.  Every repository
// speaks raw SQL through database/sql and reports domain failures through
// the sentinel errors below so handlers can map them onto HTTP codes with
// errors.Is.  Driver errors are wrapped with context and surface as 500s.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/event-booking/internal/booking"
)

var (
	// ErrEventNotFound is returned when no event has the requested id.
	ErrEventNotFound = errors.New("event not found")
	// ErrBookingNotFound is returned when no booking has the requested id.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrLastAdmin blocks deleting or demoting the only admin account.
	ErrLastAdmin = errors.New("cannot remove the last admin")
	// ErrUsernameExists signals a duplicate username on insert or update.
	ErrUsernameExists = errors.New("username already exists")
	// ErrEmailExists signals a duplicate email on insert or update.
	ErrEmailExists = errors.New("email already exists")
	// ErrCodeExhausted means every generated booking code collided.
	ErrCodeExhausted = errors.New("could not allocate a unique booking code")
	// ErrEventClosed rejects bookings for events that are not published.
	ErrEventClosed = errors.New("event is not open for booking")
	// ErrInvalidTransition is re-exported so callers need a single import.
	ErrInvalidTransition = booking.ErrInvalidTransition
)

// ER_DUP_ENTRY
const mysqlDuplicateEntry = 1062

// duplicateKey reports whether err is a unique index violation and, if so,
// the message the server gave (it names the violated key).
func duplicateKey(err error) (string, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return me.Message, true
	}
	return "", false
}

// userConflict maps a duplicate key violation on users to the matching
// sentinel.  Other errors are returned unchanged.
func userConflict(err error) error {
	msg, ok := duplicateKey(err)
	if !ok {
		return err
	}
	if strings.Contains(msg, "email") {
		return ErrEmailExists
	}
	return ErrUsernameExists
}

func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}
