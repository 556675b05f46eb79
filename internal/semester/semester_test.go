package semester

import (
	"testing"
	"time"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestDefaultWindows(t *testing.T) {
	now := time.Date(2025, time.November, 10, 12, 0, 0, 0, time.UTC)
	p := NewProvider(nil, time.UTC, fixedNow(now))

	w := p.Windows()
	if !w[0].Start.Equal(time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first start = %v", w[0].Start)
	}
	if !w[0].End.Equal(time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first end = %v", w[0].End)
	}
	if !w[1].Start.Equal(time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("second start = %v", w[1].Start)
	}
	if !w[1].End.Equal(time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("second end = %v", w[1].End)
	}
}

func TestAcademicYearPivotsAtSeptember(t *testing.T) {
	tests := []struct {
		now  time.Time
		want int
	}{
		{time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC), 2025},
		{time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC), 2025},
		{time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC), 2025},
		{time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC), 2025},
	}

	for _, tc := range tests {
		p := NewProvider(nil, time.UTC, fixedNow(tc.now))
		if got := p.AcademicYearStart(); got != tc.want {
			t.Errorf("AcademicYearStart at %v = %d, want %d", tc.now, got, tc.want)
		}
	}
}

func TestCurrentTerm(t *testing.T) {
	tests := []struct {
		month time.Month
		want  Term
	}{
		{time.November, TermFirst},
		{time.January, TermFirst},
		{time.September, TermFirst},
		{time.February, TermSecond},
		{time.June, TermSecond},
		{time.July, TermHolidays},
		{time.August, TermHolidays},
	}

	for _, tc := range tests {
		now := time.Date(2025, tc.month, 15, 0, 0, 0, 0, time.UTC)
		p := NewProvider(nil, time.UTC, fixedNow(now))
		if got := p.CurrentTerm(); got != tc.want {
			t.Errorf("CurrentTerm in %v = %v, want %v", tc.month, got, tc.want)
		}
	}
}

func TestCurrentWindowNilDuringHolidays(t *testing.T) {
	now := time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC)
	p := NewProvider(nil, time.UTC, fixedNow(now))
	if w := p.Current(); w != nil {
		t.Fatalf("expected nil window during holidays, got %+v", w)
	}
}

func TestOverridesAdjustOnlyInnerBoundaries(t *testing.T) {
	now := time.Date(2025, time.November, 10, 0, 0, 0, 0, time.UTC)
	p := NewProvider(nil, time.UTC, fixedNow(now))

	if err := p.SetFirstSemesterEnd(15, 1); err != nil {
		t.Fatal(err)
	}
	if err := p.SetSecondSemesterStart(10, 2); err != nil {
		t.Fatal(err)
	}

	w := p.Windows()
	if !w[0].End.Equal(time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("overridden first end = %v", w[0].End)
	}
	if !w[1].Start.Equal(time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("overridden second start = %v", w[1].Start)
	}
	// Outer boundaries stay at the defaults.
	if !w[0].Start.Equal(time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first start moved: %v", w[0].Start)
	}
	if !w[1].End.Equal(time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("second end moved: %v", w[1].End)
	}
}

func TestWriteInvalidatesCache(t *testing.T) {
	now := time.Date(2025, time.November, 10, 0, 0, 0, 0, time.UTC)
	p := NewProvider(nil, time.UTC, fixedNow(now))

	before := p.First()
	if err := p.SetFirstSemesterEnd(20, 12); err != nil {
		t.Fatal(err)
	}
	after := p.First()
	if after.End.Equal(before.End) {
		t.Fatal("cached window survived an override write")
	}

	if err := p.Reset(); err != nil {
		t.Fatal(err)
	}
	if !p.First().End.Equal(before.End) {
		t.Errorf("reset did not restore defaults: %v", p.First().End)
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{
		Start: time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC),
	}
	if !w.Contains(w.Start) || !w.Contains(w.End) {
		t.Error("window must be inclusive on both ends")
	}
	if w.Contains(w.Start.Add(-time.Second)) || w.Contains(w.End.Add(time.Second)) {
		t.Error("window must exclude times outside the range")
	}
}
