package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-booking/internal/booking"
	"github.com/iliyamo/event-booking/internal/model"
)

// BookingRepo stores bookings.  Book is the only way to create one: it
// holds the event row lock while it counts seats and inserts, so two
// concurrent requests can never both take the last seats.
type BookingRepo struct {
	db       *sql.DB
	attempts int
	newCode  booking.CodeGenerator
}

// NewBookingRepo returns a BookingRepo that tries up to attempts codes
// before giving up on a booking insert.
func NewBookingRepo(db *sql.DB, attempts int) *BookingRepo {
	if attempts < 1 {
		attempts = 1
	}
	return &BookingRepo{db: db, attempts: attempts, newCode: booking.NewCode}
}

const bookingColumns = `b.id, b.event_id, b.attendee_name, b.attendee_email, b.quantity,
	b.status, b.booking_code, b.notes, b.created_at, b.updated_at`

const insertBookingSQL = `INSERT INTO bookings (id, event_id, attendee_name, attendee_email,
	quantity, status, booking_code, notes, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// selectBookingWithEvent joins every booking to its event so responses
// carry the event the way the listing pages show it.
const selectBookingWithEvent = "SELECT " + bookingColumns + ", " + eventColumns + ", " + bookedExpr +
	" FROM bookings b JOIN events e ON e.id = b.event_id"

func bookingDest(b *model.Booking, notes *sql.NullString) []any {
	return []any{
		&b.ID, &b.EventID, &b.AttendeeName, &b.AttendeeEmail, &b.Quantity,
		&b.Status, &b.BookingCode, notes, &b.CreatedAt, &b.UpdatedAt,
	}
}

func scanBooking(s rowScanner) (*model.Booking, error) {
	var (
		b     model.Booking
		notes sql.NullString
	)
	if err := s.Scan(bookingDest(&b, &notes)...); err != nil {
		return nil, err
	}
	b.Notes = nullString(notes)
	return &b, nil
}

// prefixScanner lets scanEvent read the trailing columns of a joined row.
type prefixScanner struct {
	s      rowScanner
	prefix []any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.s.Scan(append(p.prefix, dest...)...)
}

func scanBookingWithEvent(s rowScanner) (*model.Booking, error) {
	var (
		b     model.Booking
		notes sql.NullString
	)
	e, err := scanEvent(prefixScanner{s: s, prefix: bookingDest(&b, &notes)})
	if err != nil {
		return nil, err
	}
	b.Notes = nullString(notes)
	b.Event = e
	return &b, nil
}

// Book admits req.  Inside one transaction it locks the event row, reads
// the booked count, decides the status and inserts the booking.  A
// collision on the unique booking code is retried with a fresh code.
func (r *BookingRepo) Book(ctx context.Context, req model.BookingRequest) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	q := "SELECT " + eventColumns + ", " + bookedExpr + " FROM events e WHERE e.id = ? FOR UPDATE"
	ev, err := scanEvent(tx.QueryRowContext(ctx, q, req.EventID))
	if err != nil {
		return nil, notFound(err, ErrEventNotFound)
	}
	if ev.Status != model.EventPublished {
		return nil, ErrEventClosed
	}
	// The subquery above is a consistent read and takes no locks; the count
	// that decides the status is a locking read taken under the event lock.
	if err := tx.QueryRowContext(ctx, lockedBookedSQL, ev.ID).Scan(&ev.BookedCount); err != nil {
		return nil, fmt.Errorf("count booked: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	b := &model.Booking{
		EventID:       ev.ID,
		AttendeeName:  req.AttendeeName,
		AttendeeEmail: req.AttendeeEmail,
		Quantity:      req.Quantity,
		Status:        booking.DecideStatus(ev.BookingType, ev.Capacity, ev.BookedCount, req.Quantity),
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	inserted := false
	for attempt := 0; attempt < r.attempts && !inserted; attempt++ {
		code, err := r.newCode()
		if err != nil {
			return nil, fmt.Errorf("booking code: %w", err)
		}
		b.ID = uuid.NewString()
		b.BookingCode = code
		_, err = tx.ExecContext(ctx, insertBookingSQL,
			b.ID, b.EventID, b.AttendeeName, b.AttendeeEmail, b.Quantity,
			string(b.Status), b.BookingCode, b.Notes, b.CreatedAt, b.UpdatedAt)
		switch {
		case err == nil:
			inserted = true
		case isDuplicate(err):
			// InnoDB rolls back only the failed statement; the lock is kept.
			continue
		default:
			return nil, fmt.Errorf("insert booking: %w", err)
		}
	}
	if !inserted {
		return nil, ErrCodeExhausted
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	if b.Status.Counts() {
		ev.BookedCount += b.Quantity
	}
	ev.Remaining = booking.Remaining(ev.Capacity, ev.BookedCount)
	b.Event = ev
	return b, nil
}

const lockedBookedSQL = `SELECT COALESCE(SUM(quantity), 0) FROM bookings
	WHERE event_id = ? AND status IN ('confirmed','checked_in') FOR SHARE`

func isDuplicate(err error) bool {
	_, ok := duplicateKey(err)
	return ok
}

// GetByID loads one booking with its event.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	b, err := scanBookingWithEvent(r.db.QueryRowContext(ctx, selectBookingWithEvent+" WHERE b.id = ?", id))
	if err != nil {
		return nil, notFound(err, ErrBookingNotFound)
	}
	return b, nil
}

// List returns the bookings matching f, newest first.  Query searches the
// attendee name and email, the booking code and the event title.
func (r *BookingRepo) List(ctx context.Context, f model.BookingFilter) ([]*model.Booking, error) {
	var (
		where []string
		args  []any
	)
	if f.EventID != "" {
		where = append(where, "b.event_id = ?")
		args = append(args, f.EventID)
	}
	if f.AttendeeEmail != "" {
		where = append(where, "b.attendee_email = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(f.AttendeeEmail)))
	}
	if f.Status != "" {
		where = append(where, "b.status = ?")
		args = append(args, string(f.Status))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "(b.attendee_name LIKE ? OR b.attendee_email LIKE ? OR b.booking_code LIKE ? OR e.title LIKE ?)")
		like := "%" + escapeLike(q) + "%"
		args = append(args, like, like, like, like)
	}
	q := selectBookingWithEvent
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY b.created_at DESC, b.id ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()
	out := []*model.Booking{}
	for rows.Next() {
		b, err := scanBookingWithEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Patch overwrites status and/or notes without consulting the transition
// table.  It returns the booking as stored afterwards.
func (r *BookingRepo) Patch(ctx context.Context, id string, p model.BookingPatch) (*model.Booking, error) {
	var (
		set  []string
		args []any
	)
	if p.Status != nil {
		set = append(set, "status = ?")
		args = append(args, string(*p.Status))
	}
	if p.Notes != nil {
		set = append(set, "notes = ?")
		if n := strings.TrimSpace(*p.Notes); n != "" {
			args = append(args, n)
		} else {
			args = append(args, nil)
		}
	}
	if len(set) > 0 {
		set = append(set, "updated_at = ?")
		args = append(args, time.Now().UTC().Truncate(time.Second), id)
		// MySQL reports 0 affected rows when nothing changed, so a missing
		// booking is detected by the read below instead.
		if _, err := r.db.ExecContext(ctx, "UPDATE bookings SET "+strings.Join(set, ", ")+" WHERE id = ?", args...); err != nil {
			return nil, fmt.Errorf("patch booking: %w", err)
		}
	}
	return r.GetByID(ctx, id)
}

// Transition applies a guarded action.  The booking row is locked while
// its current status is checked.  It returns the updated booking and the
// status it had before.
func (r *BookingRepo) Transition(ctx context.Context, id string, action booking.Action) (*model.Booking, model.BookingStatus, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var current model.BookingStatus
	err = tx.QueryRowContext(ctx, "SELECT status FROM bookings WHERE id = ? FOR UPDATE", id).Scan(&current)
	if err != nil {
		return nil, "", notFound(err, ErrBookingNotFound)
	}
	next, err := booking.Apply(action, current)
	if err != nil {
		return nil, current, err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?",
		string(next), time.Now().UTC().Truncate(time.Second), id); err != nil {
		return nil, current, fmt.Errorf("transition booking: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, current, err
	}
	committed = true

	b, err := r.GetByID(ctx, id)
	return b, current, err
}

// Delete removes one booking.
func (r *BookingRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}
