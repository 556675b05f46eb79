// Package web exposes the schedule pipeline over a small HTTP API.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"nureschedule/internal/api"
	"nureschedule/internal/config"
	"nureschedule/internal/export"
	appLog "nureschedule/internal/log"
	"nureschedule/internal/model"
	"nureschedule/internal/notify"
	"nureschedule/internal/schedule"
	"nureschedule/internal/semester"
	"nureschedule/internal/stats"
)

// ScheduleSource fetches the raw upstream schedule payload. The HTTP client
// satisfies it in production; tests substitute a stub.
type ScheduleSource interface {
	FetchSchedule(ctx context.Context) (api.FetchResult, error)
}

// SourceFunc adapts a function to ScheduleSource.
type SourceFunc func(ctx context.Context) (api.FetchResult, error)

func (f SourceFunc) FetchSchedule(ctx context.Context) (api.FetchResult, error) { return f(ctx) }

// ClientSource binds an api.Client to the configured audience mode and id.
func ClientSource(c *api.Client, mode model.Mode, id int64) ScheduleSource {
	return SourceFunc(func(ctx context.Context) (api.FetchResult, error) {
		if mode == model.ModeTeacher {
			return c.TeacherSchedule(ctx, id)
		}
		return c.GroupSchedule(ctx, id)
	})
}

// Server serves the schedule, statistics and export endpoints.
type Server struct {
	cfg      *config.Config
	source   ScheduleSource
	semester *semester.Provider
	mode     model.Mode
	loc      *time.Location
	now      func() time.Time
	mux      *http.ServeMux

	// Short-TTL cache of the grouped schedule so UI polling does not trigger
	// redundant fetch/decode/group work.
	scheduleMu    sync.RWMutex
	scheduleCache *scheduleCache
}

type scheduleCache struct {
	items     []model.ScheduleItem
	fromCache bool
	updatedAt time.Time
}

const scheduleCacheTTL = 30 * time.Second

// NewServer constructs a Server. now is injectable for tests; nil uses the
// wall clock.
func NewServer(cfg *config.Config, source ScheduleSource, sem *semester.Provider, loc *time.Location, now func() time.Time) *Server {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	s := &Server{
		cfg:      cfg,
		source:   source,
		semester: sem,
		mode:     model.Mode(cfg.Mode),
		loc:      loc,
		now:      now,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler { return s.mux }

// StartServer binds to cfg.Listen and serves until the listener fails.
func StartServer(_ context.Context, cfg *config.Config, source ScheduleSource, sem *semester.Provider, loc *time.Location) error {
	s := NewServer(cfg, source, sem, loc, nil)
	appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
	return http.ListenAndServe(cfg.Listen, s.Handler())
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/schedule", s.handleSchedule)
	s.mux.HandleFunc("/api/statistics", s.handleStatistics)
	s.mux.HandleFunc("/api/upcoming", s.handleUpcoming)
	s.mux.HandleFunc("/api/reminders", s.handleReminders)
	s.mux.HandleFunc("/api/semester", s.handleSemester)
	s.mux.HandleFunc("/schedule.ics", s.handleICS)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// loadSchedule fetches, decodes and groups the schedule, reusing a cached
// result while it is fresh.
func (s *Server) loadSchedule(ctx context.Context) ([]model.ScheduleItem, bool, error) {
	now := s.now()

	s.scheduleMu.RLock()
	sc := s.scheduleCache
	s.scheduleMu.RUnlock()
	if sc != nil && now.Sub(sc.updatedAt) < scheduleCacheTTL {
		return sc.items, sc.fromCache, nil
	}

	res, err := s.source.FetchSchedule(ctx)
	if err != nil {
		return nil, false, err
	}
	records, err := api.DecodeRecords(res.Body)
	if err != nil {
		return nil, false, err
	}
	items := schedule.Group(records, s.mode)

	s.scheduleMu.Lock()
	s.scheduleCache = &scheduleCache{items: items, fromCache: res.FromCache, updatedAt: s.now()}
	s.scheduleMu.Unlock()

	return items, res.FromCache, nil
}

// scheduleResponse is the JSON shape of /api/schedule.
type scheduleResponse struct {
	Items     []itemDTO `json:"items"`
	FromCache bool      `json:"from_cache"`
	Mode      string    `json:"mode"`
	Timezone  string    `json:"timezone"`
}

type itemDTO struct {
	ID                  string               `json:"id"`
	Kind                string               `json:"kind"`
	ShortTitle          string               `json:"short_title"`
	FullTitle           string               `json:"full_title,omitempty"`
	Caption             string               `json:"caption,omitempty"`
	OccursAt            time.Time            `json:"occurs_at"`
	Color               model.HighlightColor `json:"color"`
	IsCompleted         bool                 `json:"is_completed"`
	Auditory            string               `json:"auditory,omitempty"`
	LessonType          string               `json:"lesson_type"`
	TeacherOrGroupLabel string               `json:"teacher_or_group_label,omitempty"`
	SubItems            []subItemDTO         `json:"sub_items,omitempty"`
}

type subItemDTO struct {
	ID                  string `json:"id"`
	ShortTitle          string `json:"short_title"`
	FullTitle           string `json:"full_title,omitempty"`
	Caption             string `json:"caption,omitempty"`
	Auditory            string `json:"auditory,omitempty"`
	LessonType          string `json:"lesson_type"`
	TeacherOrGroupLabel string `json:"teacher_or_group_label,omitempty"`
	GroupOrTeacherLabel string `json:"group_or_teacher_label,omitempty"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	items, fromCache, err := s.loadSchedule(r.Context())
	if err != nil {
		appLog.Error("api schedule failed", err)
		writeError(w, http.StatusBadGateway, "failed to load schedule")
		return
	}

	now := s.now()
	dtos := make([]itemDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, toItemDTO(item, now))
	}

	writeJSON(w, http.StatusOK, scheduleResponse{
		Items:     dtos,
		FromCache: fromCache,
		Mode:      string(s.mode),
		Timezone:  s.loc.String(),
	})
}

func toItemDTO(item model.ScheduleItem, now time.Time) itemDTO {
	kind := "lesson"
	if item.IsBreak() {
		kind = "break"
	}
	dto := itemDTO{
		ID:                  item.ID,
		Kind:                kind,
		ShortTitle:          item.ShortTitle,
		FullTitle:           item.FullTitle,
		Caption:             item.Caption,
		OccursAt:            item.OccursAt,
		Color:               item.Color,
		IsCompleted:         item.Completed(now),
		Auditory:            item.Auditory,
		LessonType:          item.LessonType,
		TeacherOrGroupLabel: item.TeacherOrGroupLabel,
	}
	for _, sub := range item.SubItems {
		dto.SubItems = append(dto.SubItems, subItemDTO{
			ID:                  sub.ID,
			ShortTitle:          sub.ShortTitle,
			FullTitle:           sub.FullTitle,
			Caption:             sub.Caption,
			Auditory:            sub.Auditory,
			LessonType:          sub.LessonType,
			TeacherOrGroupLabel: sub.TeacherOrGroupLabel,
			GroupOrTeacherLabel: sub.GroupOrTeacherLabel,
		})
	}
	return dto
}

// statisticsResponse is the JSON shape of /api/statistics.
type statisticsResponse struct {
	Subjects []stats.SubjectStatistics `json:"subjects"`
	Window   *semester.Window          `json:"window,omitempty"`
}

// resolveWindow maps the ?semester query parameter onto a filtering window:
// "1", "2", "current" (default) or "all" for no filtering.
func (s *Server) resolveWindow(param string) *semester.Window {
	switch param {
	case "all":
		return nil
	case "1":
		w := s.semester.First()
		return &w
	case "2":
		w := s.semester.Second()
		return &w
	default:
		return s.semester.Current()
	}
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	items, _, err := s.loadSchedule(r.Context())
	if err != nil {
		appLog.Error("api statistics failed", err)
		writeError(w, http.StatusBadGateway, "failed to load schedule")
		return
	}

	window := s.resolveWindow(r.URL.Query().Get("semester"))
	subjects := stats.Compute(items, window, s.now(), s.loc)

	writeJSON(w, http.StatusOK, statisticsResponse{Subjects: subjects, Window: window})
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	items, _, err := s.loadSchedule(r.Context())
	if err != nil {
		appLog.Error("api upcoming failed", err)
		writeError(w, http.StatusBadGateway, "failed to load schedule")
		return
	}

	window := s.resolveWindow(r.URL.Query().Get("semester"))
	subjects := stats.Compute(items, window, s.now(), s.loc)

	writeJSON(w, http.StatusOK, stats.UpcomingLessons(subjects))
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	items, _, err := s.loadSchedule(r.Context())
	if err != nil {
		appLog.Error("api reminders failed", err)
		writeError(w, http.StatusBadGateway, "failed to load schedule")
		return
	}

	planner := notify.Planner{
		Lead: time.Duration(s.cfg.ReminderLeadMinutes) * time.Minute,
		Loc:  s.loc,
	}
	writeJSON(w, http.StatusOK, planner.Plan(items, s.now()))
}

// handleSemester exposes the semester windows and accepts boundary override
// updates. Only semester 1's end and semester 2's start are adjustable.
func (s *Server) handleSemester(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		windows := s.semester.Windows()
		writeJSON(w, http.StatusOK, map[string]semester.Window{
			"first":  windows[0],
			"second": windows[1],
		})

	case http.MethodPost:
		var ov semester.Overrides
		if err := json.NewDecoder(r.Body).Decode(&ov); err != nil {
			writeError(w, http.StatusBadRequest, "invalid overrides payload")
			return
		}
		if ov.FirstEndDay > 0 && ov.FirstEndMonth > 0 {
			if err := s.semester.SetFirstSemesterEnd(ov.FirstEndDay, ov.FirstEndMonth); err != nil {
				appLog.Error("semester override save failed", err)
				writeError(w, http.StatusInternalServerError, "failed to save overrides")
				return
			}
		}
		if ov.SecondStartDay > 0 && ov.SecondStartMonth > 0 {
			if err := s.semester.SetSecondSemesterStart(ov.SecondStartDay, ov.SecondStartMonth); err != nil {
				appLog.Error("semester override save failed", err)
				writeError(w, http.StatusInternalServerError, "failed to save overrides")
				return
			}
		}
		windows := s.semester.Windows()
		writeJSON(w, http.StatusOK, map[string]semester.Window{
			"first":  windows[0],
			"second": windows[1],
		})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	items, _, err := s.loadSchedule(r.Context())
	if err != nil {
		appLog.Error("ics export failed", err)
		writeError(w, http.StatusBadGateway, "failed to load schedule")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.ics"`)
	opts := export.Options{
		CalendarName:    s.cfg.Calendar.Name,
		DefaultDuration: time.Duration(s.cfg.Calendar.DefaultDurationMinutes) * time.Minute,
	}
	if err := export.WriteICS(w, items, opts); err != nil {
		appLog.Error("ics serialize failed", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
