package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/event-booking/internal/auth"
	"github.com/iliyamo/event-booking/internal/booking"
	"github.com/iliyamo/event-booking/internal/middleware"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/repository"
)

var (
	guest    *middleware.Session
	admin    = &middleware.Session{UserID: "u-admin", Username: "admin", Email: "admin@example.com", Role: model.RoleAdmin}
	attendee = &middleware.Session{UserID: "u-anna", Username: "anna", Email: "anna@example.com", Role: model.RoleUser}
	fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
)

// newCtx builds an echo context for target.  params are name/value pairs.
func newCtx(method, target, body string, s *middleware.Session, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if s != nil {
		middleware.SetSession(c, *s)
	}
	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	if len(names) > 0 {
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	return c, rec
}

type mockEvents struct{ mock.Mock }

func (m *mockEvents) Create(ctx context.Context, e *model.Event) error {
	err := m.Called(ctx, e).Error(0)
	if err == nil {
		e.ID = "e-new"
	}
	return err
}

func (m *mockEvents) GetByID(ctx context.Context, id string, withBookings bool) (*model.Event, error) {
	args := m.Called(ctx, id, withBookings)
	e, _ := args.Get(0).(*model.Event)
	return e, args.Error(1)
}

func (m *mockEvents) List(ctx context.Context, f model.EventFilter, withBookings bool) ([]*model.Event, error) {
	args := m.Called(ctx, f, withBookings)
	list, _ := args.Get(0).([]*model.Event)
	return list, args.Error(1)
}

// Update hands the configured event to mutate, the way the repository does
// with the locked row.
func (m *mockEvents) Update(ctx context.Context, id string, mutate func(*model.Event) error) (*model.Event, error) {
	args := m.Called(ctx, id)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	e := args.Get(0).(*model.Event)
	if err := mutate(e); err != nil {
		return nil, err
	}
	return e, nil
}

func (m *mockEvents) SetStatus(ctx context.Context, id string, action booking.EventAction) (*model.Event, error) {
	args := m.Called(ctx, id, action)
	e, _ := args.Get(0).(*model.Event)
	return e, args.Error(1)
}

func (m *mockEvents) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockEvents) Duplicate(ctx context.Context, id string) (*model.Event, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*model.Event)
	return e, args.Error(1)
}

func (m *mockEvents) Stats(ctx context.Context, now time.Time) (model.EventStats, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(model.EventStats), args.Error(1)
}

type mockBookings struct{ mock.Mock }

func (m *mockBookings) Book(ctx context.Context, req model.BookingRequest) (*model.Booking, error) {
	args := m.Called(ctx, req)
	b, _ := args.Get(0).(*model.Booking)
	return b, args.Error(1)
}

func (m *mockBookings) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*model.Booking)
	return b, args.Error(1)
}

func (m *mockBookings) List(ctx context.Context, f model.BookingFilter) ([]*model.Booking, error) {
	args := m.Called(ctx, f)
	list, _ := args.Get(0).([]*model.Booking)
	return list, args.Error(1)
}

func (m *mockBookings) Patch(ctx context.Context, id string, p model.BookingPatch) (*model.Booking, error) {
	args := m.Called(ctx, id, p)
	b, _ := args.Get(0).(*model.Booking)
	return b, args.Error(1)
}

func (m *mockBookings) Transition(ctx context.Context, id string, action booking.Action) (*model.Booking, model.BookingStatus, error) {
	args := m.Called(ctx, id, action)
	b, _ := args.Get(0).(*model.Booking)
	return b, args.Get(1).(model.BookingStatus), args.Error(2)
}

func (m *mockBookings) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Create(ctx context.Context, username, email, password string, role model.Role, cost int) (*model.User, error) {
	args := m.Called(ctx, username, email, password, role, cost)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUsers) GetByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUsers) List(ctx context.Context) ([]*model.User, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]*model.User)
	return list, args.Error(1)
}

func (m *mockUsers) Update(ctx context.Context, id string, p model.UserPatch, cost int) (*model.User, error) {
	args := m.Called(ctx, id, p, cost)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUsers) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error {
	return m.Called(ctx, userID, tokenHash, exp).Error(0)
}

func (m *mockTokens) ValidateRefresh(ctx context.Context, tokenHash string) (string, error) {
	args := m.Called(ctx, tokenHash)
	return args.String(0), args.Error(1)
}

func (m *mockTokens) RevokeByHash(ctx context.Context, tokenHash string) error {
	return m.Called(ctx, tokenHash).Error(0)
}

func (m *mockTokens) RevokeAllForUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockAuth struct{ mock.Mock }

func (m *mockAuth) Authenticate(ctx context.Context, username, password string) (auth.Identity, error) {
	args := m.Called(ctx, username, password)
	return args.Get(0).(auth.Identity), args.Error(1)
}

func (m *mockAuth) Lookup(ctx context.Context, id string) (auth.Identity, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(auth.Identity), args.Error(1)
}

type mockSeeder struct{ mock.Mock }

func (m *mockSeeder) Seed(ctx context.Context, now time.Time) (repository.SeedResult, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(repository.SeedResult), args.Error(1)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func testEvent(status model.EventStatus) *model.Event {
	start := time.Date(2026, 6, 1, 16, 0, 0, 0, time.UTC)
	return &model.Event{
		ID:               "e1",
		Title:            "Go Meetup",
		ShortDescription: "Monthly Go meetup",
		Location:         "Warsaw",
		StartDateTime:    start,
		EndDateTime:      start.Add(3 * time.Hour),
		Timezone:         "Europe/Warsaw",
		Capacity:         30,
		BookingType:      model.BookingFree,
		Tags:             []string{"go"},
		Status:           status,
		OrganizerName:    "Gophers",
		OrganizerEmail:   "gophers@example.com",
		Remaining:        30,
	}
}

func testBooking(status model.BookingStatus, email string) *model.Booking {
	return &model.Booking{
		ID:            "b1",
		EventID:       "e1",
		AttendeeName:  "Anna Nowak",
		AttendeeEmail: email,
		Quantity:      2,
		Status:        status,
		BookingCode:   "EVT-ABCDE",
		CreatedAt:     fixedNow,
		UpdatedAt:     fixedNow,
		Event:         testEvent(model.EventPublished),
	}
}
