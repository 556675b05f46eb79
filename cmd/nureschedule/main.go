package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"nureschedule/internal/api"
	"nureschedule/internal/config"
	"nureschedule/internal/export"
	appLog "nureschedule/internal/log"
	"nureschedule/internal/model"
	"nureschedule/internal/notify"
	"nureschedule/internal/schedule"
	"nureschedule/internal/semester"
	"nureschedule/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	exportPath string
	groupID    int64
	teacherID  int64
	debug      bool
}

func main() {
	appLog.Info("nureschedule starting", "version", "0.1.0")

	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI flags override the config file.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.groupID > 0 {
		conf.Mode = "group"
		conf.GroupID = flags.groupID
	}
	if flags.teacherID > 0 {
		conf.Mode = "teacher"
		conf.TeacherID = flags.teacherID
	}

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", conf.Timezone)
		loc = time.Local
	}

	mode := model.Mode(conf.Mode)
	scheduleID := conf.GroupID
	if mode == model.ModeTeacher {
		scheduleID = conf.TeacherID
	}
	if scheduleID == 0 {
		appLog.Error("no group or teacher configured", errors.New("missing schedule id"), "mode", conf.Mode)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"mode", conf.Mode,
		"schedule_id", scheduleID,
		"refresh", conf.RefreshCron,
		"once", flags.once,
	)

	client := api.NewClient(conf.APIBaseURL, conf.CacheDir)
	source := web.ClientSource(client, mode, scheduleID)
	sem := semester.NewProvider(config.NewSemesterStore(flags.configPath), loc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.once {
		if err := runOnce(ctx, conf, source, mode, flags.exportPath); err != nil {
			appLog.Error("one-shot run failed", err)
			os.Exit(1)
		}
		return
	}

	refresher := newRefresher(conf, source, mode, loc)
	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, func() { refresher.run(ctx) }); err != nil {
		appLog.Error("invalid refresh cron spec", err, "spec", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	// Prime the caches before the first cron tick.
	go refresher.run(ctx)

	go func() {
		if err := web.StartServer(ctx, conf, source, sem, loc); err != nil {
			appLog.Error("HTTP server failed", err)
			cancel()
		}
	}()

	<-ctx.Done()
	time.Sleep(100 * time.Millisecond)
	appLog.Info("nureschedule exiting")
}

// runOnce performs a single fetch+group cycle and optionally writes the
// iCalendar export.
func runOnce(ctx context.Context, conf *config.Config, source web.ScheduleSource, mode model.Mode, exportPath string) error {
	res, err := source.FetchSchedule(ctx)
	if err != nil {
		return err
	}
	records, err := api.DecodeRecords(res.Body)
	if err != nil {
		return err
	}
	items := schedule.Group(records, mode)
	appLog.Info("schedule loaded", "records", len(records), "items", len(items), "from_cache", res.FromCache)

	if exportPath == "" {
		return nil
	}
	f, err := os.Create(exportPath)
	if err != nil {
		return err
	}
	defer f.Close()

	opts := export.Options{
		CalendarName:    conf.Calendar.Name,
		DefaultDuration: time.Duration(conf.Calendar.DefaultDurationMinutes) * time.Minute,
	}
	if err := export.WriteICS(f, items, opts); err != nil {
		return err
	}
	appLog.Info("calendar exported", "path", exportPath)
	return nil
}

// refresher is the periodic job: refetch the schedule, detect changes
// against the previous snapshot and re-plan reminders when anything moved.
type refresher struct {
	conf    *config.Config
	source  web.ScheduleSource
	mode    model.Mode
	loc     *time.Location
	tracker *notify.Tracker

	mu   sync.Mutex
	prev []model.RawLessonRecord
}

func newRefresher(conf *config.Config, source web.ScheduleSource, mode model.Mode, loc *time.Location) *refresher {
	return &refresher{
		conf:    conf,
		source:  source,
		mode:    mode,
		loc:     loc,
		tracker: &notify.Tracker{},
	}
}

func (r *refresher) run(ctx context.Context) {
	res, err := r.source.FetchSchedule(ctx)
	if err != nil {
		appLog.Error("refresh fetch failed", err)
		return
	}
	records, err := api.DecodeRecords(res.Body)
	if err != nil {
		appLog.Error("refresh decode failed", err)
		return
	}

	r.mu.Lock()
	prev := r.prev
	r.prev = records
	r.mu.Unlock()

	if prev != nil {
		for _, ch := range notify.Diff(prev, records) {
			appLog.Info("schedule change detected",
				"type", string(ch.Type),
				"subject", ch.Subject,
				"old", ch.OldValue,
				"new", ch.NewValue,
				"date", ch.Date.In(r.loc).Format(time.RFC3339),
			)
		}
	}

	items := schedule.Group(records, r.mode)
	if !r.tracker.Changed(items) {
		appLog.Debug("schedule unchanged, reminders kept")
		return
	}

	planner := notify.Planner{
		Lead: time.Duration(r.conf.ReminderLeadMinutes) * time.Minute,
		Loc:  r.loc,
	}
	reminders := planner.Plan(items, time.Now())
	appLog.Info("reminders planned", "count", len(reminders))
	for _, rem := range reminders {
		appLog.Debug("reminder",
			"subject", rem.Subject,
			"auditory", rem.Auditory,
			"at", rem.At.In(r.loc).Format(time.RFC3339),
		)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one fetch+group cycle and exit")
	flag.StringVar(&cfg.exportPath, "export", "", "Write an iCalendar export to this path (with -once)")
	flag.Int64Var(&cfg.groupID, "group", 0, "Group id (switches to group mode)")
	flag.Int64Var(&cfg.teacherID, "teacher", 0, "Teacher id (switches to teacher mode)")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
