package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nureschedule/internal/api"
	"nureschedule/internal/config"
	"nureschedule/internal/semester"
)

// Two lessons with a gap: the grouped schedule is lesson, break, lesson.
const stubPayload = `[
  {
    "subject": {"id": 5, "title": "Алгоритми", "brief": "АЛГ"},
    "startTime": 1765009800,
    "endTime": 1765015500,
    "auditory": "285",
    "type": "Лб",
    "teachers": [{"id": 1, "shortName": "Іванов І. І."}]
  },
  {
    "subject": {"id": 7, "title": "Фізика", "brief": "ФІЗ"},
    "startTime": 1765017300,
    "endTime": 1765023000,
    "auditory": "104i",
    "type": "Пз",
    "teachers": []
  }
]`

func testServer(t *testing.T, body string) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	source := SourceFunc(func(context.Context) (api.FetchResult, error) {
		return api.FetchResult{Body: []byte(body)}, nil
	})
	// Fixed clock between the two lessons of the payload.
	now := func() time.Time { return time.Unix(1765016000, 0) }
	sem := semester.NewProvider(nil, time.UTC, now)
	return NewServer(cfg, source, sem, time.UTC, now)
}

func TestHealth(t *testing.T) {
	s := testServer(t, stubPayload)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK || rr.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rr.Code, rr.Body.String())
	}
}

func TestScheduleEndpoint(t *testing.T) {
	s := testServer(t, stubPayload)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/schedule", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Items []struct {
			ID          string `json:"id"`
			Kind        string `json:"kind"`
			IsCompleted bool   `json:"is_completed"`
		} `json:"items"`
		Mode string `json:"mode"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.Items) != 3 {
		t.Fatalf("expected lesson, break, lesson; got %d items", len(resp.Items))
	}
	if resp.Items[1].Kind != "break" {
		t.Errorf("middle item kind = %q", resp.Items[1].Kind)
	}
	// The clock sits between the lessons: first done, second not.
	if !resp.Items[0].IsCompleted || resp.Items[2].IsCompleted {
		t.Errorf("completion flags = %v / %v", resp.Items[0].IsCompleted, resp.Items[2].IsCompleted)
	}
	if resp.Mode != "group" {
		t.Errorf("mode = %q", resp.Mode)
	}
}

func TestScheduleEndpointUpstreamFailure(t *testing.T) {
	cfg := config.DefaultConfig()
	source := SourceFunc(func(context.Context) (api.FetchResult, error) {
		return api.FetchResult{}, errors.New("upstream down")
	})
	sem := semester.NewProvider(nil, time.UTC, nil)
	s := NewServer(cfg, source, sem, time.UTC, nil)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/schedule", nil))

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}
}

func TestScheduleCachedBetweenRequests(t *testing.T) {
	calls := 0
	cfg := config.DefaultConfig()
	source := SourceFunc(func(context.Context) (api.FetchResult, error) {
		calls++
		return api.FetchResult{Body: []byte(stubPayload)}, nil
	})
	now := func() time.Time { return time.Unix(1765016000, 0) }
	sem := semester.NewProvider(nil, time.UTC, now)
	s := NewServer(cfg, source, sem, time.UTC, now)

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/schedule", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rr.Code)
		}
	}
	if calls != 1 {
		t.Fatalf("upstream fetched %d times within the cache TTL", calls)
	}
}

func TestStatisticsEndpoint(t *testing.T) {
	s := testServer(t, stubPayload)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/statistics?semester=all", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp struct {
		Subjects []struct {
			SubjectName string `json:"subject_name"`
		} `json:"subjects"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Subjects) != 2 {
		t.Fatalf("expected 2 subjects, got %d", len(resp.Subjects))
	}
	if resp.Subjects[0].SubjectName != "Алгоритми" {
		t.Errorf("subjects not sorted by name: %+v", resp.Subjects)
	}
}

func TestSemesterEndpointGetAndOverride(t *testing.T) {
	s := testServer(t, stubPayload)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/semester", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rr.Code)
	}

	body := strings.NewReader(`{"first_end_day": 15, "first_end_month": 1}`)
	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/semester", body))
	if rr.Code != http.StatusOK {
		t.Fatalf("POST status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp map[string]semester.Window
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	// The payload clock is in December 2025, so the boundary lands in 2026.
	want := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
	if !resp["first"].End.Equal(want) {
		t.Errorf("first.End = %v, want %v", resp["first"].End, want)
	}
}

func TestICSEndpoint(t *testing.T) {
	s := testServer(t, stubPayload)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/schedule.ics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}
	out := rr.Body.String()
	if !strings.Contains(out, "BEGIN:VCALENDAR") {
		t.Error("not an iCalendar document")
	}
	if got := strings.Count(out, "BEGIN:VEVENT"); got != 2 {
		t.Errorf("expected 2 events (break excluded), got %d", got)
	}
}

func TestRemindersEndpoint(t *testing.T) {
	s := testServer(t, stubPayload)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/reminders", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var reminders []struct {
		ItemID   string    `json:"item_id"`
		At       time.Time `json:"at"`
		StartsAt time.Time `json:"starts_at"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &reminders); err != nil {
		t.Fatal(err)
	}
	// Only the second lesson is still ahead of the fixed clock.
	if len(reminders) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(reminders))
	}
	if !reminders[0].At.Equal(reminders[0].StartsAt.Add(-10 * time.Minute)) {
		t.Errorf("reminder lead wrong: %v vs %v", reminders[0].At, reminders[0].StartsAt)
	}
}
