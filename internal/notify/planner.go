// Package notify plans lesson reminders and detects changes between schedule
// refreshes. It only computes what should fire and when; delivering the
// notification is the caller's concern.
package notify

import (
	"time"

	"github.com/google/uuid"

	"nureschedule/internal/model"
)

// DefaultLead is how long before a lesson its reminder fires.
const DefaultLead = 10 * time.Minute

// DefaultHorizon bounds how far ahead reminders are planned.
const DefaultHorizon = 7 * 24 * time.Hour

// Reminder is one planned notification for an upcoming lesson.
type Reminder struct {
	ID       string    `json:"id"`
	ItemID   string    `json:"item_id"`
	Subject  string    `json:"subject"`
	Auditory string    `json:"auditory"`
	// At is when the reminder fires, StartsAt when the lesson begins.
	At       time.Time `json:"at"`
	StartsAt time.Time `json:"starts_at"`
}

// Planner computes reminders from a canonical schedule.
type Planner struct {
	// Lead defaults to DefaultLead when zero.
	Lead time.Duration
	// Horizon defaults to DefaultHorizon when zero.
	Horizon time.Duration
	// Loc decides day boundaries for the horizon window; time.Local if nil.
	Loc *time.Location
}

// Plan returns one reminder per upcoming non-break lesson within the horizon,
// in schedule order. Lessons already started and lessons past the horizon
// (counted from the start of today) are skipped.
func (p Planner) Plan(items []model.ScheduleItem, now time.Time) []Reminder {
	lead := p.Lead
	if lead <= 0 {
		lead = DefaultLead
	}
	horizon := p.Horizon
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	loc := p.Loc
	if loc == nil {
		loc = time.Local
	}

	local := now.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	windowEnd := dayStart.Add(horizon)

	out := make([]Reminder, 0)
	for _, item := range items {
		if item.IsBreak() {
			continue
		}
		if !item.OccursAt.After(now) || !item.OccursAt.Before(windowEnd) {
			continue
		}
		out = append(out, Reminder{
			ID:       "lesson_" + uuid.NewString(),
			ItemID:   item.ID,
			Subject:  item.ShortTitle,
			Auditory: item.Auditory,
			At:       item.OccursAt.Add(-lead),
			StartsAt: item.OccursAt,
		})
	}
	return out
}
