// Package stats derives per-subject lesson-type completion statistics from a
// canonical schedule, scoped to an optional semester window.
package stats

import (
	"sort"
	"time"

	"nureschedule/internal/model"
	"nureschedule/internal/semester"
)

// DateInterval is one distinct calendar day on which a lesson type occurred,
// spanning from the first to the last occurrence of that day.
type DateInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// LessonCount aggregates one (subject, lesson type) pair within the window.
// Total always equals len(DateIntervals) and Completed never exceeds Total.
type LessonCount struct {
	Completed      int            `json:"completed"`
	Total          int            `json:"total"`
	NextOccurrence *time.Time     `json:"next_occurrence,omitempty"`
	DateIntervals  []DateInterval `json:"date_intervals"`
}

// Progress is the completed fraction, 0 when nothing is scheduled.
func (c LessonCount) Progress() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Completed) / float64(c.Total)
}

// SubjectStatistics bundles the five canonical lesson-type counts for one
// subject, keyed by the full subject title.
type SubjectStatistics struct {
	SubjectName   string      `json:"subject_name"`
	Practical     LessonCount `json:"practical"`
	Laboratory    LessonCount `json:"laboratory"`
	Exams         LessonCount `json:"exams"`
	Consultations LessonCount `json:"consultations"`
	Tests         LessonCount `json:"tests"`
}

// Category indices into the per-subject bucket array.
const (
	catPractical = iota
	catLaboratory
	catExam
	catConsultation
	catTest
	catCount
)

// categoryForType maps a domain lesson-type code to its bucket. Codes outside
// the five canonical categories are dropped from statistics, not an error.
func categoryForType(lessonType string) (int, bool) {
	switch lessonType {
	case "Пз":
		return catPractical, true
	case "Лб":
		return catLaboratory, true
	case "Екз":
		return catExam, true
	case "Конс":
		return catConsultation, true
	case "Зал":
		return catTest, true
	default:
		return 0, false
	}
}

type subjectBuckets struct {
	name    string
	buckets [catCount][]model.ScheduleItem
}

func (b *subjectBuckets) empty() bool {
	for _, items := range b.buckets {
		if len(items) > 0 {
			return false
		}
	}
	return true
}

// Compute derives statistics from a schedule. Break items are ignored. When
// window is non-nil, only date intervals fully contained in it count. now is
// injected so results are reproducible; loc decides calendar-day boundaries.
//
// Subjects with zero occurrences in every category are absent from the
// result. Output is sorted by subject name.
func Compute(schedule []model.ScheduleItem, window *semester.Window, now time.Time, loc *time.Location) []SubjectStatistics {
	if loc == nil {
		loc = time.Local
	}

	bySubject := make(map[string]*subjectBuckets)
	order := make([]string, 0)

	for _, item := range schedule {
		if item.IsBreak() {
			continue
		}
		cat, ok := categoryForType(item.LessonType)
		if !ok {
			continue
		}

		sb := bySubject[item.FullTitle]
		if sb == nil {
			sb = &subjectBuckets{name: item.FullTitle}
			bySubject[item.FullTitle] = sb
			order = append(order, item.FullTitle)
		}

		// A subject may legitimately hold two labs or practicals on one day,
		// but at most one exam or test per day counts; later same-day
		// duplicates of those categories are discarded.
		if cat == catExam || cat == catTest {
			if containsSameDay(sb.buckets[cat], item.OccursAt, loc) {
				continue
			}
		}
		sb.buckets[cat] = append(sb.buckets[cat], item)
	}

	out := make([]SubjectStatistics, 0, len(order))
	for _, name := range order {
		sb := bySubject[name]
		if sb.empty() {
			continue
		}
		out = append(out, SubjectStatistics{
			SubjectName:   name,
			Practical:     lessonCount(sb.buckets[catPractical], window, now, loc),
			Laboratory:    lessonCount(sb.buckets[catLaboratory], window, now, loc),
			Exams:         lessonCount(sb.buckets[catExam], window, now, loc),
			Consultations: lessonCount(sb.buckets[catConsultation], window, now, loc),
			Tests:         lessonCount(sb.buckets[catTest], window, now, loc),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SubjectName < out[j].SubjectName })
	return out
}

// lessonCount collapses one category bucket into day-level intervals and the
// completed/total/next summary over the window-filtered intervals.
func lessonCount(items []model.ScheduleItem, window *semester.Window, now time.Time, loc *time.Location) LessonCount {
	sorted := make([]model.ScheduleItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccursAt.Before(sorted[j].OccursAt)
	})

	intervals := make([]DateInterval, 0, len(sorted))
	for i := 0; i < len(sorted); {
		j := i
		for j+1 < len(sorted) && sameDay(sorted[j+1].OccursAt, sorted[i].OccursAt, loc) {
			j++
		}
		intervals = append(intervals, DateInterval{
			Start: sorted[i].OccursAt,
			End:   sorted[j].OccursAt,
		})
		i = j + 1
	}

	if window != nil {
		kept := intervals[:0]
		for _, iv := range intervals {
			// Full containment: an interval straddling the window boundary is
			// excluded even if one end falls inside.
			if !iv.Start.Before(window.Start) && !iv.End.After(window.End) {
				kept = append(kept, iv)
			}
		}
		intervals = kept
	}

	count := LessonCount{
		Total:         len(intervals),
		DateIntervals: intervals,
	}
	for _, iv := range intervals {
		if iv.Start.Before(now) {
			count.Completed++
		} else if iv.Start.After(now) && count.NextOccurrence == nil {
			next := iv.Start
			count.NextOccurrence = &next
		}
	}
	return count
}

func containsSameDay(items []model.ScheduleItem, t time.Time, loc *time.Location) bool {
	for _, it := range items {
		if sameDay(it.OccursAt, t, loc) {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	a, b = a.In(loc), b.In(loc)
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
