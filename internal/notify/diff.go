package notify

import (
	"fmt"
	"sort"
	"time"

	"nureschedule/internal/model"
)

// ChangeType classifies a schedule difference.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

// Change is one detected difference between two schedule snapshots.
type Change struct {
	Type     ChangeType `json:"type"`
	Subject  string     `json:"subject"`
	OldValue string     `json:"old_value,omitempty"`
	NewValue string     `json:"new_value,omitempty"`
	Date     time.Time  `json:"date"`
}

// Diff compares two raw schedule snapshots keyed by (startTime, subjectId)
// slot and reports added and removed slots plus auditory moves. Output order
// is deterministic: by date, then subject.
func Diff(prev, curr []model.RawLessonRecord) []Change {
	oldBySlot := bySlot(prev)
	newBySlot := bySlot(curr)

	changes := make([]Change, 0)

	for key, oldRecs := range oldBySlot {
		newRecs, ok := newBySlot[key]
		if !ok {
			o := oldRecs[0]
			changes = append(changes, Change{
				Type:     ChangeRemoved,
				Subject:  o.SubjectTitle,
				OldValue: o.Auditory,
				Date:     o.StartTime,
			})
			continue
		}
		o, n := oldRecs[0], newRecs[0]
		if o.Auditory != n.Auditory {
			changes = append(changes, Change{
				Type:     ChangeModified,
				Subject:  n.SubjectTitle,
				OldValue: o.Auditory,
				NewValue: n.Auditory,
				Date:     n.StartTime,
			})
		}
	}

	for key, newRecs := range newBySlot {
		if _, ok := oldBySlot[key]; !ok {
			n := newRecs[0]
			changes = append(changes, Change{
				Type:     ChangeAdded,
				Subject:  n.SubjectTitle,
				NewValue: n.Auditory,
				Date:     n.StartTime,
			})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		if !changes[i].Date.Equal(changes[j].Date) {
			return changes[i].Date.Before(changes[j].Date)
		}
		if changes[i].Subject != changes[j].Subject {
			return changes[i].Subject < changes[j].Subject
		}
		return changes[i].Type < changes[j].Type
	})
	return changes
}

func bySlot(records []model.RawLessonRecord) map[string][]model.RawLessonRecord {
	m := make(map[string][]model.RawLessonRecord, len(records))
	for _, r := range records {
		key := fmt.Sprintf("%d_%d", r.StartTime.Unix(), r.SubjectID)
		m[key] = append(m[key], r)
	}
	return m
}
