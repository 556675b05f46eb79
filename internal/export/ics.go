// Package export renders a canonical schedule as an iCalendar feed, the
// replacement for the mobile client's device-calendar sync.
package export

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"

	"nureschedule/internal/model"
)

// DefaultEventDuration is applied when a lesson has no usable end time.
const DefaultEventDuration = 90 * time.Minute

// Options controls calendar generation.
type Options struct {
	// CalendarName becomes the calendar display name (X-WR-CALNAME).
	CalendarName string
	// ContextTitle names the group or teacher the schedule belongs to; it is
	// appended to every event description.
	ContextTitle string
	// DefaultDuration replaces DefaultEventDuration when positive.
	DefaultDuration time.Duration
}

// BuildCalendar creates one VEVENT per non-break schedule item. Event UIDs
// are derived from the stable item ids, so re-exports of the same schedule
// replace rather than duplicate events in subscribing clients.
func BuildCalendar(items []model.ScheduleItem, opts Options) *ics.Calendar {
	name := opts.CalendarName
	if name == "" {
		name = "NureSchedule"
	}
	dur := opts.DefaultDuration
	if dur <= 0 {
		dur = DefaultEventDuration
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//nureschedule//schedule export//EN")
	cal.SetName(name)

	for _, item := range items {
		if item.IsBreak() {
			continue
		}

		end := item.EndsAt
		if !end.After(item.OccursAt) {
			end = item.OccursAt.Add(dur)
		}

		ev := cal.AddEvent(item.ID + "@nureschedule")
		ev.SetDtStampTime(item.OccursAt)
		ev.SetStartAt(item.OccursAt)
		ev.SetEndAt(end)
		ev.SetSummary(fmt.Sprintf("%s • %s", item.ShortTitle, item.LessonType))
		if item.Auditory != "" {
			ev.SetLocation(item.Auditory)
		}
		ev.SetDescription(eventDescription(item, opts.ContextTitle))
	}

	return cal
}

// WriteICS serializes the calendar for items into w.
func WriteICS(w io.Writer, items []model.ScheduleItem, opts Options) error {
	return BuildCalendar(items, opts).SerializeTo(w)
}

func eventDescription(item model.ScheduleItem, contextTitle string) string {
	desc := item.FullTitle
	if item.TeacherOrGroupLabel != "" {
		desc += "\nВикладач: " + item.TeacherOrGroupLabel
	}
	if contextTitle != "" {
		desc += "\nКонтекст: " + contextTitle
	}
	for _, sub := range item.SubItems {
		desc += fmt.Sprintf("\n- %s (%s)", sub.GroupOrTeacherLabel, sub.Auditory)
	}
	return desc
}
