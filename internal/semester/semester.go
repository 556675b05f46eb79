// Package semester supplies the two academic-semester date ranges used to
// bound statistics filtering. Default boundaries are Sep 1 – Jan 31 and
// Feb 1 – Jun 30; the first semester's end and the second semester's start
// may be overridden by the user, the outer boundaries may not.
package semester

import (
	"sync"
	"time"
)

// Window is one semester date range, inclusive on both ends.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Term identifies the period of the academic year a date falls into.
type Term int

const (
	TermHolidays Term = iota // July–August
	TermFirst
	TermSecond
)

// Overrides holds the user-adjustable semester boundaries. A zero day or
// month means "use the default". Only semester 1's end and semester 2's start
// are adjustable.
type Overrides struct {
	FirstEndDay      int `yaml:"first_end_day" json:"first_end_day"`
	FirstEndMonth    int `yaml:"first_end_month" json:"first_end_month"`
	SecondStartDay   int `yaml:"second_start_day" json:"second_start_day"`
	SecondStartMonth int `yaml:"second_start_month" json:"second_start_month"`
}

// OverrideStore persists the boundary overrides across runs.
type OverrideStore interface {
	Load() (Overrides, error)
	Save(Overrides) error
}

// MemoryStore is an in-process OverrideStore, used in tests and when no
// persistence is configured.
type MemoryStore struct {
	mu sync.Mutex
	ov Overrides
}

func (m *MemoryStore) Load() (Overrides, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ov, nil
}

func (m *MemoryStore) Save(ov Overrides) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ov = ov
	return nil
}

// Provider computes and caches the semester windows. Windows are cached until
// a settings write invalidates them; a read-write lock guards the cache so
// the provider is safe for concurrent callers.
type Provider struct {
	now   func() time.Time
	loc   *time.Location
	store OverrideStore

	mu     sync.RWMutex
	cached *[2]Window
}

// NewProvider creates a Provider. A nil store keeps overrides in memory; a
// nil now uses the wall clock; a nil loc uses time.Local.
func NewProvider(store OverrideStore, loc *time.Location, now func() time.Time) *Provider {
	if store == nil {
		store = &MemoryStore{}
	}
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Provider{now: now, loc: loc, store: store}
}

// AcademicYearStart returns the calendar year the current academic year
// started in: the current year from September onward, else the previous one.
func (p *Provider) AcademicYearStart() int {
	t := p.now().In(p.loc)
	if t.Month() >= time.September {
		return t.Year()
	}
	return t.Year() - 1
}

// CurrentTerm classifies "now" into first semester (Sep–Jan), second
// semester (Feb–Jun) or holidays (Jul–Aug).
func (p *Provider) CurrentTerm() Term {
	switch m := p.now().In(p.loc).Month(); {
	case m >= time.September || m == time.January:
		return TermFirst
	case m >= time.February && m <= time.June:
		return TermSecond
	default:
		return TermHolidays
	}
}

// Windows returns both semester ranges for the current academic year, first
// semester first. The result is cached until Invalidate.
func (p *Provider) Windows() [2]Window {
	p.mu.RLock()
	if c := p.cached; c != nil {
		p.mu.RUnlock()
		return *c
	}
	p.mu.RUnlock()

	w := p.compute()

	p.mu.Lock()
	p.cached = &w
	p.mu.Unlock()
	return w
}

// First returns the first-semester window.
func (p *Provider) First() Window { return p.Windows()[0] }

// Second returns the second-semester window.
func (p *Provider) Second() Window { return p.Windows()[1] }

// Current returns the window matching the current term, or nil during the
// holidays when no semester is in progress.
func (p *Provider) Current() *Window {
	switch p.CurrentTerm() {
	case TermFirst:
		w := p.First()
		return &w
	case TermSecond:
		w := p.Second()
		return &w
	default:
		return nil
	}
}

func (p *Provider) compute() [2]Window {
	startYear := p.AcademicYearStart()
	endYear := startYear + 1

	ov, err := p.store.Load()
	if err != nil {
		// Unreadable overrides degrade to the defaults.
		ov = Overrides{}
	}

	first := Window{
		Start: time.Date(startYear, time.September, 1, 0, 0, 0, 0, p.loc),
		End:   time.Date(endYear, time.January, 31, 0, 0, 0, 0, p.loc),
	}
	if ov.FirstEndDay > 0 && ov.FirstEndMonth > 0 {
		first.End = time.Date(endYear, time.Month(ov.FirstEndMonth), ov.FirstEndDay, 0, 0, 0, 0, p.loc)
	}

	second := Window{
		Start: time.Date(endYear, time.February, 1, 0, 0, 0, 0, p.loc),
		End:   time.Date(endYear, time.June, 30, 0, 0, 0, 0, p.loc),
	}
	if ov.SecondStartDay > 0 && ov.SecondStartMonth > 0 {
		second.Start = time.Date(endYear, time.Month(ov.SecondStartMonth), ov.SecondStartDay, 0, 0, 0, 0, p.loc)
	}

	return [2]Window{first, second}
}

// SetFirstSemesterEnd overrides the first semester's end boundary and drops
// the cached windows.
func (p *Provider) SetFirstSemesterEnd(day, month int) error {
	ov, err := p.store.Load()
	if err != nil {
		return err
	}
	ov.FirstEndDay = day
	ov.FirstEndMonth = month
	if err := p.store.Save(ov); err != nil {
		return err
	}
	p.Invalidate()
	return nil
}

// SetSecondSemesterStart overrides the second semester's start boundary and
// drops the cached windows.
func (p *Provider) SetSecondSemesterStart(day, month int) error {
	ov, err := p.store.Load()
	if err != nil {
		return err
	}
	ov.SecondStartDay = day
	ov.SecondStartMonth = month
	if err := p.store.Save(ov); err != nil {
		return err
	}
	p.Invalidate()
	return nil
}

// Reset restores the default boundaries.
func (p *Provider) Reset() error {
	if err := p.store.Save(Overrides{}); err != nil {
		return err
	}
	p.Invalidate()
	return nil
}

// Invalidate drops the cached windows so the next read recomputes them.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}
