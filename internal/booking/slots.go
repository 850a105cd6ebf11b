package booking

import (
	"fmt"
	"time"
)

// Slot is one generated session inside an event.
type Slot struct {
	Index     int       `json:"index"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// SlotPlan describes how to cut an event into back-to-back sessions.
type SlotPlan struct {
	SessionMinutes int `query:"sessionDuration" json:"sessionDuration"`
	BreakMinutes   int `query:"breakDuration" json:"breakDuration"`
	Sessions       int `query:"numberOfSessions" json:"numberOfSessions"`
}

// Validate checks the plan bounds: sessions of at least 15 minutes, a
// non-negative break and at least one session.
func (p SlotPlan) Validate() error {
	v := Errors{}
	if p.SessionMinutes < 15 {
		v.Add("sessionDuration", "Minimum 15 minutes")
	}
	if p.BreakMinutes < 0 {
		v.Add("breakDuration", "Cannot be negative")
	}
	if p.Sessions < 1 {
		v.Add("numberOfSessions", "At least 1 session required")
	} else if p.Sessions > 100 {
		v.Add("numberOfSessions", "At most 100 sessions")
	}
	return v.Err()
}

// GenerateSlots lays out plan.Sessions sessions starting at start, each
// followed by plan.BreakMinutes of break.
func GenerateSlots(start time.Time, plan SlotPlan) ([]Slot, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	session := time.Duration(plan.SessionMinutes) * time.Minute
	pause := time.Duration(plan.BreakMinutes) * time.Minute
	out := make([]Slot, 0, plan.Sessions)
	cur := start
	for i := 0; i < plan.Sessions; i++ {
		end := cur.Add(session)
		out = append(out, Slot{Index: i + 1, StartTime: cur, EndTime: end})
		cur = end.Add(pause)
	}
	return out, nil
}

// SlotsFit reports whether the last slot ends by the event end.
func SlotsFit(slots []Slot, eventEnd time.Time) error {
	if len(slots) == 0 {
		return nil
	}
	last := slots[len(slots)-1]
	if last.EndTime.After(eventEnd) {
		return fmt.Errorf("last session ends at %s, after the event end %s",
			last.EndTime.Format(time.RFC3339), eventEnd.Format(time.RFC3339))
	}
	return nil
}
