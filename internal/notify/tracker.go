package notify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"nureschedule/internal/model"
)

// Tracker remembers a fingerprint of the last schedule that reminders were
// planned for, so unchanged refreshes do not re-plan (and re-fire) the same
// notifications. It is an explicit state object the caller owns, not process
// state.
type Tracker struct {
	mu       sync.Mutex
	lastHash string
}

// Changed reports whether the schedule differs from the last accepted one
// and, if so, records its fingerprint.
func (t *Tracker) Changed(items []model.ScheduleItem) bool {
	h := fingerprint(items)

	t.mu.Lock()
	defer t.mu.Unlock()
	if h == t.lastHash {
		return false
	}
	t.lastHash = h
	return true
}

// Reset forgets the last fingerprint so the next Changed reports true.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.lastHash = ""
	t.mu.Unlock()
}

// fingerprint hashes the fields a reminder depends on: start time, title and
// auditory of every item.
func fingerprint(items []model.ScheduleItem) string {
	h := sha256.New()
	for _, item := range items {
		fmt.Fprintf(h, "%d_%s_%s\n", item.OccursAt.Unix(), item.ShortTitle, item.Auditory)
	}
	return hex.EncodeToString(h.Sum(nil))
}
