package model

import (
	"fmt"
	"time"
)

// Mode selects whose timetable the API is describing. The upstream payloads
// differ per mode: group-mode records carry teacher names, teacher-mode
// records carry group names.
type Mode string

const (
	ModeGroup   Mode = "group"
	ModeTeacher Mode = "teacher"
)

// RawLessonRecord is one timetabled occurrence as reported by the API, after
// the decoding adapter has flattened both API generations and both audience
// modes into a single shape. Records are immutable once decoded.
//
// Records with identical (StartTime, SubjectID) are parallel sessions of one
// timetable slot (e.g. the same course split across subgroups).
type RawLessonRecord struct {
	SubjectID    int64
	SubjectTitle string
	SubjectBrief string

	StartTime time.Time
	EndTime   time.Time

	Auditory   string
	LessonType string

	// TeacherNames is populated in group mode, GroupNames in teacher mode.
	TeacherNames []string
	GroupNames   []string
}

// ItemKind distinguishes real lessons from synthetic break entries. Breaks
// are an explicit variant rather than a magic title so that consumers cannot
// forget to check.
type ItemKind int

const (
	KindLesson ItemKind = iota
	KindBreak
)

// BreakTitle and BreakLessonType are the legacy sentinel values still carried
// on break items for wire compatibility with existing consumers.
const (
	BreakTitle      = "Break"
	BreakLessonType = "Перерва"
)

// ScheduleItem is a canonical timetable entry produced by the grouping
// engine. The whole sequence is replaced wholesale on every refresh; nothing
// is mutated in place.
type ScheduleItem struct {
	ID   string
	Kind ItemKind

	ShortTitle string
	FullTitle  string
	Caption    string

	OccursAt time.Time
	// EndsAt is the end time of the underlying raw record(s). It is not part
	// of the UI contract but the break-insertion step and the calendar
	// exporter need it.
	EndsAt time.Time

	Color      HighlightColor
	Auditory   string
	LessonType string

	// TeacherOrGroupLabel is the comma-joined teacher short names in group
	// mode, or the comma-joined group names in teacher mode.
	TeacherOrGroupLabel string

	// SubItems is non-empty only when this item represents a merged parallel
	// slot; each member is one parallel session.
	SubItems []SubScheduleItem
}

// IsBreak reports whether the item is a synthetic gap.
func (s ScheduleItem) IsBreak() bool { return s.Kind == KindBreak }

// Completed reports whether the lesson has already started relative to now.
// It is derived on demand and never stored.
func (s ScheduleItem) Completed(now time.Time) bool {
	return s.OccursAt.Before(now)
}

// SubScheduleItem is one parallel session folded into a merged ScheduleItem.
// It has no identity outside its parent beyond a locally-unique id used for
// list diffing.
type SubScheduleItem struct {
	ID string

	ShortTitle string
	FullTitle  string
	Caption    string

	Auditory   string
	LessonType string

	TeacherOrGroupLabel string
	GroupOrTeacherLabel string
}

// NewBreak builds the synthetic gap item placed between two non-adjacent
// lessons. The break occurs at the preceding lesson's end time.
func NewBreak(at time.Time) ScheduleItem {
	return ScheduleItem{
		ID:         fmt.Sprintf("break-%d", at.Unix()),
		Kind:       KindBreak,
		ShortTitle: BreakTitle,
		OccursAt:   at,
		EndsAt:     at,
		Color:      ColorGray,
		LessonType: BreakLessonType,
	}
}
