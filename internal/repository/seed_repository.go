package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-booking/internal/booking"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/utils"
)

// SeedRepo replaces the database contents with the demo dataset.
type SeedRepo struct {
	db   *sql.DB
	cost int
}

// NewSeedRepo returns a SeedRepo hashing the demo passwords with cost.
func NewSeedRepo(db *sql.DB, cost int) *SeedRepo { return &SeedRepo{db: db, cost: cost} }

// SeedResult reports what Seed inserted.
type SeedResult struct {
	Users  int `json:"users"`
	Events int `json:"count"`
}

// DemoUsers are the two accounts the demo dataset logs in with.
var DemoUsers = []struct {
	Username, Email, Password string
	Role                      model.Role
}{
	{"admin", "admin@eventnext.com", "admin", model.RoleAdmin},
	{"user", "user@eventnext.com", "user", model.RoleUser},
}

// DemoEvents returns the published demo events, scheduled relative to now.
func DemoEvents(now time.Time) []*model.Event {
	day := 24 * time.Hour
	tomorrow := now.Add(day)
	nextWeek := now.Add(7 * day)
	nextMonth := now.Add(30 * day)
	price := func(v float64) *float64 { return &v }
	text := func(s string) *string { return &s }
	mk := func(e model.Event, start time.Time, length time.Duration) *model.Event {
		e.StartDateTime = start.UTC().Truncate(time.Second)
		e.EndDateTime = e.StartDateTime.Add(length)
		e.Timezone = booking.DefaultTimezone
		e.Status = model.EventPublished
		return &e
	}
	return []*model.Event{
		mk(model.Event{
			Title:            "Tech Startup Networking Night",
			ShortDescription: "Connect with founders, investors, and tech enthusiasts in Warsaw's vibrant startup scene.",
			LongDescription:  text("Join us for an evening of networking, lightning talks, and discussions about the latest trends in technology and entrepreneurship."),
			Location:         "WeWork Mennica Legacy, Warsaw",
			Capacity:         50,
			BookingType:      model.BookingFree,
			Tags:             []string{"networking", "tech", "startup"},
			OrganizerName:    "Warsaw Tech Hub",
			OrganizerEmail:   "events@warsawtechhub.com",
		}, tomorrow, 3*time.Hour),
		mk(model.Event{
			Title:            "Advanced React Workshop",
			ShortDescription: "Deep dive into React 19, Server Components, and modern patterns with hands-on exercises.",
			LongDescription:  text("This intensive workshop covers advanced React concepts including Server Components, Suspense, concurrent features, and performance optimization."),
			Location:         "Google Campus Warsaw",
			OnlineURL:        text("https://meet.google.com/abc-defg-hij"),
			Capacity:         30,
			BookingType:      model.BookingTicketed,
			Price:            price(199),
			Tags:             []string{"workshop", "react", "programming"},
			OrganizerName:    "Code Academy",
			OrganizerEmail:   "workshops@codeacademy.pl",
		}, nextWeek, 8*time.Hour),
		mk(model.Event{
			Title:            "AI Ethics Roundtable",
			ShortDescription: "Invitation-only discussion on responsible AI development with industry leaders.",
			LongDescription:  text("An intimate gathering of AI researchers, ethicists, and policy makers to discuss the challenges and opportunities in responsible AI development."),
			Location:         "University of Warsaw, Main Hall",
			Capacity:         20,
			BookingType:      model.BookingApproval,
			Tags:             []string{"ai", "ethics", "discussion"},
			OrganizerName:    "AI Research Institute",
			OrganizerEmail:   "events@airesearch.edu.pl",
		}, nextMonth.Add(2*day), 4*time.Hour),
		mk(model.Event{
			Title:            "Summer Music Festival",
			ShortDescription: "A full day of live music featuring local and international artists.",
			LongDescription:  text("Experience the best of summer with an all-day music festival featuring multiple stages, food vendors, and art installations."),
			Location:         "Lazienki Park, Warsaw",
			Capacity:         5,
			BookingType:      model.BookingTicketed,
			Price:            price(89),
			Tags:             []string{"music", "festival", "outdoor"},
			OrganizerName:    "Warsaw Events Co",
			OrganizerEmail:   "info@warsawevents.pl",
		}, nextMonth.Add(15*day), 10*time.Hour),
		mk(model.Event{
			Title:            "Community Yoga Session",
			ShortDescription: "Free weekly yoga session for all skill levels in the park.",
			LongDescription:  text("Join us for a relaxing yoga session in the heart of the city. All levels welcome!"),
			Location:         "Polo Mokotowskie Park",
			Capacity:         40,
			BookingType:      model.BookingFree,
			Tags:             []string{"yoga", "wellness", "outdoor"},
			OrganizerName:    "Wellness Warriors",
			OrganizerEmail:   "hello@wellnesswarriors.pl",
		}, nextMonth.Add(day), time.Hour),
	}
}

// Seed wipes bookings, events, users and refresh tokens and inserts the demo
// dataset, all in one transaction.
func (r *SeedRepo) Seed(ctx context.Context, now time.Time) (SeedResult, error) {
	// Hash outside the transaction; bcrypt is slow on purpose.
	users := make([]*model.User, 0, len(DemoUsers))
	stamp := now.UTC().Truncate(time.Second)
	for _, du := range DemoUsers {
		hash, err := utils.HashPassword(du.Password, r.cost)
		if err != nil {
			return SeedResult{}, err
		}
		users = append(users, &model.User{
			ID: uuid.NewString(), Username: du.Username, Email: du.Email,
			PasswordHash: hash, Role: du.Role, CreatedAt: stamp, UpdatedAt: stamp,
		})
	}
	events := DemoEvents(now)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return SeedResult{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"bookings", "events", "refresh_tokens", "users"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return SeedResult{}, fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for _, u := range users {
		if err := insertUser(ctx, tx, u); err != nil {
			return SeedResult{}, fmt.Errorf("seed user %s: %w", u.Username, err)
		}
	}
	for _, e := range events {
		e.ID = uuid.NewString()
		e.CreatedAt, e.UpdatedAt = stamp, stamp
		if err := insertEvent(ctx, tx, e); err != nil {
			return SeedResult{}, fmt.Errorf("seed event %q: %w", e.Title, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return SeedResult{}, err
	}
	committed = true
	return SeedResult{Users: len(users), Events: len(events)}, nil
}
