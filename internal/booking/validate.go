package booking

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
	_ "time/tzdata" // timezone validation must not depend on the host zoneinfo
	"unicode/utf8"

	"github.com/iliyamo/event-booking/internal/model"
)

// DefaultTimezone is applied to events created without one.
const DefaultTimezone = "Europe/Warsaw"

const (
	maxCapacity       = 100000
	maxPrice          = 999999
	maxTicketsPerForm = 100
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	tagRe   = regexp.MustCompile(`(?i)^[a-z0-9\-]+$`)
)

// Errors maps a field name to a human readable message.  It implements
// error so validation results travel through the usual error returns.
type Errors map[string]string

// Add records msg for field unless the field already has a message.
func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Err returns nil when no field failed, e otherwise.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return strings.Join(parts, "; ")
}

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool { return emailRe.MatchString(s) }

// NormalizeEvent trims text fields, lower-cases the organizer email, fills
// defaults for timezone and status, dedupes tags and drops the price of
// events that are not ticketed.
func NormalizeEvent(e *model.Event) {
	e.Title = strings.TrimSpace(e.Title)
	e.ShortDescription = strings.TrimSpace(e.ShortDescription)
	e.Location = strings.TrimSpace(e.Location)
	e.OrganizerName = strings.TrimSpace(e.OrganizerName)
	e.OrganizerEmail = strings.ToLower(strings.TrimSpace(e.OrganizerEmail))
	e.Timezone = strings.TrimSpace(e.Timezone)
	if e.Timezone == "" {
		e.Timezone = DefaultTimezone
	}
	if e.Status == "" {
		e.Status = model.EventDraft
	}
	e.LongDescription = blankToNil(e.LongDescription)
	e.OnlineURL = blankToNil(e.OnlineURL)
	e.CoverImageURL = blankToNil(e.CoverImageURL)
	e.StartDateTime = e.StartDateTime.UTC()
	e.EndDateTime = e.EndDateTime.UTC()
	if e.BookingType != model.BookingTicketed {
		e.Price = nil
	}
	seen := make(map[string]struct{}, len(e.Tags))
	tags := make([]string, 0, len(e.Tags))
	for _, t := range e.Tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	e.Tags = tags
}

// ValidateEvent checks a complete event as it will be stored.
func ValidateEvent(e *model.Event) error {
	v := Errors{}
	if n := utf8.RuneCountInString(e.Title); n < 3 {
		v.Add("title", "Title must be at least 3 characters")
	} else if n > 200 {
		v.Add("title", "Title must be less than 200 characters")
	}
	if e.ShortDescription == "" {
		v.Add("shortDescription", "Short description is required")
	} else if utf8.RuneCountInString(e.ShortDescription) > 200 {
		v.Add("shortDescription", "Max 200 characters")
	}
	if e.Location == "" {
		v.Add("location", "Location is required")
	}
	if e.OnlineURL != nil && !validURL(*e.OnlineURL) {
		v.Add("onlineUrl", "Must be a valid URL")
	}
	if e.StartDateTime.IsZero() {
		v.Add("startDateTime", "Start date is required")
	}
	if e.EndDateTime.IsZero() {
		v.Add("endDateTime", "End date is required")
	} else if !e.StartDateTime.IsZero() && !e.EndDateTime.After(e.StartDateTime) {
		v.Add("endDateTime", "End date must be after start date")
	}
	if _, err := time.LoadLocation(e.Timezone); err != nil {
		v.Add("timezone", "Unknown timezone")
	}
	if e.Capacity < 1 {
		v.Add("capacity", "Capacity must be at least 1")
	} else if e.Capacity > maxCapacity {
		v.Add("capacity", "Capacity must be at most 100000")
	}
	if !e.BookingType.Valid() {
		v.Add("bookingType", "Booking type must be free, ticketed or approval")
	}
	if e.BookingType == model.BookingTicketed {
		if e.Price == nil || *e.Price <= 0 {
			v.Add("price", "Price is required and must be greater than 0 for ticketed events")
		} else if *e.Price > maxPrice {
			v.Add("price", "Price is too high")
		}
	}
	for _, t := range e.Tags {
		if !tagRe.MatchString(t) {
			v.Add("tags", "Tags must contain only letters, numbers and hyphens")
			break
		}
	}
	if !e.Status.Valid() {
		v.Add("status", "Status must be draft, published or cancelled")
	}
	if e.OrganizerName == "" {
		v.Add("organizerName", "Organizer name is required")
	}
	if !ValidEmail(e.OrganizerEmail) {
		v.Add("organizerEmail", "Must be a valid email")
	}
	return v.Err()
}

// NormalizeBookingRequest trims the attendee fields and lower-cases the email.
func NormalizeBookingRequest(r *model.BookingRequest) {
	r.EventID = strings.TrimSpace(r.EventID)
	r.AttendeeName = strings.TrimSpace(r.AttendeeName)
	r.AttendeeEmail = strings.ToLower(strings.TrimSpace(r.AttendeeEmail))
	r.Notes = blankToNil(r.Notes)
}

// ValidateBookingRequest checks the booking form.
func ValidateBookingRequest(r model.BookingRequest) error {
	v := Errors{}
	if r.EventID == "" {
		v.Add("eventId", "Event is required")
	}
	if n := utf8.RuneCountInString(r.AttendeeName); n < 2 {
		v.Add("attendeeName", "Name must be at least 2 characters")
	} else if n > 100 {
		v.Add("attendeeName", "Name must be less than 100 characters")
	}
	if !ValidEmail(r.AttendeeEmail) {
		v.Add("attendeeEmail", "Invalid email format")
	}
	if r.Quantity < 1 {
		v.Add("quantity", "At least 1 ticket required")
	} else if r.Quantity > maxTicketsPerForm {
		v.Add("quantity", "Maximum 100 tickets per booking")
	}
	return v.Err()
}

// NewUserInput is the payload of an admin creating an account.
type NewUserInput struct {
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

// ValidateNewUser normalizes and checks a new account.  An empty role
// defaults to user.
func ValidateNewUser(in *NewUserInput) error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Role == "" {
		in.Role = model.RoleUser
	}
	v := Errors{}
	if utf8.RuneCountInString(in.Username) < 3 {
		v.Add("username", "Username must be at least 3 characters")
	}
	if !ValidEmail(in.Email) {
		v.Add("email", "Invalid email format")
	}
	if len(in.Password) < 6 {
		v.Add("password", "Password must be at least 6 characters")
	}
	if !in.Role.Valid() {
		v.Add("role", "Role must be user or admin")
	}
	return v.Err()
}

// ValidateUserPatch normalizes and checks a user update.
func ValidateUserPatch(p *model.UserPatch) error {
	v := Errors{}
	if p.Username != nil {
		u := strings.TrimSpace(*p.Username)
		p.Username = &u
		if utf8.RuneCountInString(u) < 3 {
			v.Add("username", "Username must be at least 3 characters")
		}
	}
	if p.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*p.Email))
		p.Email = &e
		if !ValidEmail(e) {
			v.Add("email", "Invalid email format")
		}
	}
	if p.Password != nil && len(*p.Password) < 6 {
		v.Add("password", "Password must be at least 6 characters")
	}
	if p.Role != nil && !p.Role.Valid() {
		v.Add("role", "Role must be user or admin")
	}
	return v.Err()
}

func validURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
