package stats

import (
	"sort"
	"time"
)

// Upcoming is one subject's next occurrence of a lesson category.
type Upcoming struct {
	Subject  string    `json:"subject"`
	Category string    `json:"category"`
	At       time.Time `json:"at"`
}

// UpcomingLessons flattens every subject's next occurrence per category into
// one ascending list, so a caller can render "what is coming up" across the
// whole semester window the statistics were computed for.
func UpcomingLessons(statistics []SubjectStatistics) []Upcoming {
	out := make([]Upcoming, 0)
	for _, s := range statistics {
		for _, c := range []struct {
			name  string
			count LessonCount
		}{
			{"practical", s.Practical},
			{"laboratory", s.Laboratory},
			{"exam", s.Exams},
			{"consultation", s.Consultations},
			{"test", s.Tests},
		} {
			if c.count.NextOccurrence != nil {
				out = append(out, Upcoming{
					Subject:  s.SubjectName,
					Category: c.name,
					At:       *c.count.NextOccurrence,
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Category < out[j].Category
	})
	return out
}
