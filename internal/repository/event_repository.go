package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-booking/internal/booking"
	"github.com/iliyamo/event-booking/internal/model"
)

// EventRepo provides CRUD operations for events.  Booked counts are
// computed by the database on every read and never stored.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `e.id, e.title, e.short_description, e.long_description, e.location,
	e.online_url, e.cover_image_url, e.start_at, e.end_at, e.timezone, e.capacity,
	e.booking_type, e.price, e.tags, e.status, e.organizer_name, e.organizer_email,
	e.created_at, e.updated_at`

// bookedExpr sums the quantity of bookings that occupy capacity.
const bookedExpr = `COALESCE((SELECT SUM(b.quantity) FROM bookings b
	WHERE b.event_id = e.id AND b.status IN ('confirmed','checked_in')), 0)`

const insertEventSQL = `INSERT INTO events (id, title, short_description, long_description, location,
	online_url, cover_image_url, start_at, end_at, timezone, capacity, booking_type, price, tags,
	status, organizer_name, organizer_email, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const updateEventSQL = `UPDATE events SET title = ?, short_description = ?, long_description = ?,
	location = ?, online_url = ?, cover_image_url = ?, start_at = ?, end_at = ?, timezone = ?,
	capacity = ?, booking_type = ?, price = ?, tags = ?, status = ?, organizer_name = ?,
	organizer_email = ?, updated_at = ? WHERE id = ?`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanEvent(s rowScanner) (*model.Event, error) {
	var (
		e                          model.Event
		longDesc, onlineURL, cover sql.NullString
		price                      sql.NullFloat64
		tags                       string
	)
	err := s.Scan(
		&e.ID, &e.Title, &e.ShortDescription, &longDesc, &e.Location,
		&onlineURL, &cover, &e.StartDateTime, &e.EndDateTime, &e.Timezone, &e.Capacity,
		&e.BookingType, &price, &tags, &e.Status, &e.OrganizerName, &e.OrganizerEmail,
		&e.CreatedAt, &e.UpdatedAt, &e.BookedCount,
	)
	if err != nil {
		return nil, err
	}
	e.LongDescription = nullString(longDesc)
	e.OnlineURL = nullString(onlineURL)
	e.CoverImageURL = nullString(cover)
	if price.Valid {
		p := price.Float64
		e.Price = &p
	}
	if e.Tags, err = decodeTags(tags); err != nil {
		return nil, fmt.Errorf("event %s tags: %w", e.ID, err)
	}
	e.Remaining = booking.Remaining(e.Capacity, e.BookedCount)
	return &e, nil
}

func insertEvent(ctx context.Context, x execer, e *model.Event) error {
	tags, err := encodeTags(e.Tags)
	if err != nil {
		return err
	}
	_, err = x.ExecContext(ctx, insertEventSQL,
		e.ID, e.Title, e.ShortDescription, e.LongDescription, e.Location,
		e.OnlineURL, e.CoverImageURL, e.StartDateTime, e.EndDateTime, e.Timezone, e.Capacity,
		string(e.BookingType), e.Price, tags, string(e.Status), e.OrganizerName, e.OrganizerEmail,
		e.CreatedAt, e.UpdatedAt)
	return err
}

// Create assigns an id and timestamps to e and inserts it.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	now := time.Now().UTC().Truncate(time.Second)
	e.ID = uuid.NewString()
	e.CreatedAt, e.UpdatedAt = now, now
	if err := insertEvent(ctx, r.db, e); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	e.BookedCount = 0
	e.Remaining = e.Capacity
	return nil
}

// GetByID loads one event.  withBookings also attaches its bookings,
// oldest first.  ErrEventNotFound is returned for unknown ids.
func (r *EventRepo) GetByID(ctx context.Context, id string, withBookings bool) (*model.Event, error) {
	q := "SELECT " + eventColumns + ", " + bookedExpr + " FROM events e WHERE e.id = ?"
	e, err := scanEvent(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err, ErrEventNotFound)
	}
	if withBookings {
		if err := r.attachBookings(ctx, []*model.Event{e}); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// List returns the events matching f ordered by start time.
func (r *EventRepo) List(ctx context.Context, f model.EventFilter, withBookings bool) ([]*model.Event, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "e.status = ?")
		args = append(args, string(f.Status))
	}
	if f.BookingType != "" {
		where = append(where, "e.booking_type = ?")
		args = append(args, string(f.BookingType))
	}
	if tag := strings.ToLower(strings.TrimSpace(f.Tag)); tag != "" {
		// tags is a JSON array of strings; match the quoted element.
		where = append(where, "e.tags LIKE ?")
		args = append(args, `%"`+escapeLike(tag)+`"%`)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "(e.title LIKE ? OR e.short_description LIKE ? OR e.location LIKE ? OR e.organizer_name LIKE ?)")
		like := "%" + escapeLike(q) + "%"
		args = append(args, like, like, like, like)
	}
	if f.From != nil {
		where = append(where, "e.start_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		where = append(where, "e.start_at <= ?")
		args = append(args, f.To.UTC())
	}
	q := "SELECT " + eventColumns + ", " + bookedExpr + " FROM events e"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY e.start_at ASC, e.id ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	out := []*model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if withBookings && len(out) > 0 {
		if err := r.attachBookings(ctx, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *EventRepo) attachBookings(ctx context.Context, events []*model.Event) error {
	byID := make(map[string]*model.Event, len(events))
	ids := make([]any, 0, len(events))
	for _, e := range events {
		e.Bookings = []*model.Booking{}
		byID[e.ID] = e
		ids = append(ids, e.ID)
	}
	q := "SELECT " + bookingColumns + " FROM bookings b WHERE b.event_id IN (" +
		placeholders(len(ids)) + ") ORDER BY b.created_at ASC, b.id ASC"
	rows, err := r.db.QueryContext(ctx, q, ids...)
	if err != nil {
		return fmt.Errorf("load bookings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return err
		}
		if e := byID[b.EventID]; e != nil {
			e.Bookings = append(e.Bookings, b)
		}
	}
	return rows.Err()
}

// Update locks the event row, lets mutate change it and writes every column
// back in the same transaction.  An error from mutate aborts the update and
// is returned unchanged, so callers can validate the merged record.
func (r *EventRepo) Update(ctx context.Context, id string, mutate func(*model.Event) error) (*model.Event, error) {
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
	e, err := scanEvent(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err, ErrEventNotFound)
	}
	if err := mutate(e); err != nil {
		return nil, err
	}
	e.ID = id
	e.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	tags, err := encodeTags(e.Tags)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, updateEventSQL,
		e.Title, e.ShortDescription, e.LongDescription, e.Location, e.OnlineURL,
		e.CoverImageURL, e.StartDateTime, e.EndDateTime, e.Timezone, e.Capacity,
		string(e.BookingType), e.Price, tags, string(e.Status), e.OrganizerName,
		e.OrganizerEmail, e.UpdatedAt, id); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	e.Remaining = booking.Remaining(e.Capacity, e.BookedCount)
	return e, nil
}

// SetStatus applies a publishing lifecycle action under the row lock.
func (r *EventRepo) SetStatus(ctx context.Context, id string, action booking.EventAction) (*model.Event, error) {
	return r.Update(ctx, id, func(e *model.Event) error {
		next, err := booking.ApplyEvent(action, e.Status)
		if err != nil {
			return err
		}
		e.Status = next
		return nil
	})
}

// Delete removes the event and its bookings in one transaction.  The
// foreign key also cascades; the explicit delete keeps the behaviour when
// the schema was created without it.
func (r *EventRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM bookings WHERE event_id = ?", id); err != nil {
		return fmt.Errorf("delete bookings: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Duplicate copies the event into a new draft titled "<title> (Copy)".
func (r *EventRepo) Duplicate(ctx context.Context, id string) (*model.Event, error) {
	src, err := r.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	cp := booking.Duplicate(src)
	if err := r.Create(ctx, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

const statsSQL = `SELECT
	(SELECT COUNT(*) FROM events WHERE status = 'published' AND start_at > ?),
	(SELECT COUNT(*) FROM bookings WHERE created_at >= ? AND created_at < ?),
	(SELECT COALESCE(SUM(capacity), 0) FROM events WHERE status = 'published'),
	(SELECT COALESCE(SUM(quantity), 0) FROM bookings WHERE status IN ('confirmed','checked_in')),
	(SELECT COUNT(*) FROM bookings WHERE status = 'cancelled'),
	(SELECT COUNT(*) FROM bookings WHERE status = 'pending')`

// Stats computes the dashboard numbers.  "Today" is the calendar day of now
// in now's location.
func (r *EventRepo) Stats(ctx context.Context, now time.Time) (model.EventStats, error) {
	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	var s model.EventStats
	err := r.db.QueryRowContext(ctx, statsSQL,
		now.UTC(), dayStart.UTC(), dayStart.AddDate(0, 0, 1).UTC(),
	).Scan(&s.UpcomingEvents, &s.TodayBookings, &s.TotalCapacity, &s.TotalBooked,
		&s.Cancellations, &s.PendingApprovals)
	if err != nil {
		return model.EventStats{}, fmt.Errorf("stats: %w", err)
	}
	s.OccupancyRate = booking.Occupancy(s.TotalBooked, s.TotalCapacity)
	return s, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	return string(b), err
}

func decodeTags(s string) ([]string, error) {
	tags := []string{}
	if strings.TrimSpace(s) == "" {
		return tags, nil
	}
	err := json.Unmarshal([]byte(s), &tags)
	return tags, err
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
