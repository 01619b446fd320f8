package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"qajalicense/internal/infrastructure"
	"qajalicense/internal/license"
)

// ObjectPrefix starts every backup object name
const ObjectPrefix = "licenses-backup-"

// Snapshotter produces a read-only copy of the license document
type Snapshotter interface {
	Snapshot(ctx context.Context, serverURL string) (*license.Backup, error)
}

// RunResult summarizes one backup run
type RunResult struct {
	StartedAt     time.Time    `json:"started_at"`
	TotalLicenses int          `json:"total_licenses"`
	Sinks         []SinkResult `json:"sinks"`
}

// Failed reports whether any sink failed
func (r *RunResult) Failed() bool {
	for _, s := range r.Sinks {
		if s.Error != "" {
			return true
		}
	}
	return false
}

// Status describes the scheduler state
type Status struct {
	Running   bool       `json:"running"`
	Schedule  string     `json:"schedule"`
	Sinks     []string   `json:"sinks"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	Runs      int        `json:"runs"`
}

// Scheduler runs backups on a cron expression
type Scheduler struct {
	mu        sync.Mutex
	source    Snapshotter
	sinks     []Sink
	schedule  cron.Schedule
	spec      string
	serverURL string
	logger    *slog.Logger
	metrics   *infrastructure.BusinessMetrics
	now       func() time.Time

	cron    *cron.Cron
	running bool
	lastRun *time.Time
	lastErr string
	runs    int
}

// SchedulerOption configures a Scheduler
type SchedulerOption func(*Scheduler)

// WithLogger sets the scheduler logger
func WithLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger.With(slog.String("component", "backup_scheduler"))
		}
	}
}

// WithMetrics records run metrics on the business meter
func WithMetrics(metrics *infrastructure.BusinessMetrics) SchedulerOption {
	return func(s *Scheduler) { s.metrics = metrics }
}

// WithServerURL sets the URL written into backup metadata
func WithServerURL(url string) SchedulerOption {
	return func(s *Scheduler) { s.serverURL = url }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// ParseSchedule parses a standard five-field cron expression or a
// descriptor such as @daily. A non-empty timeZone is applied with CRON_TZ.
func ParseSchedule(expr, timeZone string) (cron.Schedule, error) {
	if expr == "" {
		return nil, errors.New("backup schedule is empty")
	}
	if timeZone != "" {
		if _, err := time.LoadLocation(timeZone); err != nil {
			return nil, fmt.Errorf("invalid backup time zone %q: %w", timeZone, err)
		}
		expr = fmt.Sprintf("CRON_TZ=%s %s", timeZone, expr)
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", expr, err)
	}
	return sched, nil
}

// NewScheduler creates a scheduler for the given source and sinks
func NewScheduler(source Snapshotter, expr, timeZone string, sinks []Sink, opts ...SchedulerOption) (*Scheduler, error) {
	if source == nil {
		return nil, errors.New("backup source is required")
	}
	if len(sinks) == 0 {
		return nil, errors.New("at least one backup sink is required")
	}
	sched, err := ParseSchedule(expr, timeZone)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		source:   source,
		sinks:    sinks,
		schedule: sched,
		spec:     expr,
		logger:   infrastructure.GetLogger().With(slog.String("component", "backup_scheduler")),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start schedules backups until Stop is called
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	s.cron = cron.New()
	s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		jobCtx := infrastructure.EnsureTraceID(ctx)
		if _, err := s.RunOnce(jobCtx); err != nil {
			s.logger.ErrorContext(jobCtx, "scheduled backup failed", slog.String("error", err.Error()))
		}
	}))
	s.cron.Start()
	s.running = true

	s.logger.InfoContext(ctx, "backup scheduler started",
		slog.String("schedule", s.spec),
		slog.Int("sinks", len(s.sinks)),
	)
}

// Stop halts scheduling and waits for a running backup to finish or ctx to
// expire
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	done := s.cron.Stop()
	s.running = false
	s.mu.Unlock()

	select {
	case <-done.Done():
		s.logger.Info("backup scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("backup scheduler stop: %w", ctx.Err())
	}
}

// RunOnce takes a snapshot and writes it to every sink. The returned error
// is non-nil when the snapshot failed or any sink failed.
func (s *Scheduler) RunOnce(ctx context.Context) (*RunResult, error) {
	started := s.now().UTC()
	result := &RunResult{StartedAt: started}

	snapshot, err := s.source.Snapshot(ctx, s.serverURL)
	if err != nil {
		s.finish(started, err)
		return result, fmt.Errorf("failed to snapshot licenses: %w", err)
	}
	if snapshot.BackupInfo != nil {
		result.TotalLicenses = snapshot.BackupInfo.TotalLicenses
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		s.finish(started, err)
		return result, fmt.Errorf("failed to encode backup: %w", err)
	}

	name := ObjectName(started, uuid.NewString())
	result.Sinks = make([]SinkResult, len(s.sinks))

	g, gctx := errgroup.WithContext(ctx)
	for i, sink := range s.sinks {
		g.Go(func() error {
			t0 := time.Now()
			putErr := sink.Put(gctx, name, data)
			elapsed := time.Since(t0)

			infrastructure.RecordBackupRun(ctx, s.metrics, sink.Name(), int64(len(data)), elapsed, putErr)

			res := SinkResult{
				Sink:     sink.Name(),
				Object:   name,
				Bytes:    len(data),
				Duration: elapsed.String(),
			}
			if putErr != nil {
				res.Error = putErr.Error()
				s.logger.ErrorContext(ctx, "backup sink failed",
					slog.String("sink", sink.Name()),
					slog.String("object", name),
					slog.String("error", putErr.Error()),
				)
			}
			result.Sinks[i] = res
			// sink failures are reported per result, not by cancelling siblings
			return nil
		})
	}
	_ = g.Wait()

	var runErr error
	if result.Failed() {
		var failed []string
		for _, r := range result.Sinks {
			if r.Error != "" {
				failed = append(failed, r.Sink)
			}
		}
		runErr = fmt.Errorf("backup failed for sinks %v", failed)
	}
	s.finish(started, runErr)

	if runErr == nil {
		s.logger.InfoContext(ctx, "backup completed",
			slog.String("object", name),
			slog.Int("total_licenses", result.TotalLicenses),
			slog.Int("bytes", len(data)),
		)
	}
	return result, runErr
}

func (s *Scheduler) finish(at time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = &at
	s.runs++
	s.lastErr = ""
	if err != nil {
		s.lastErr = err.Error()
	}
}

// Status reports the scheduler state
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running:   s.running,
		Schedule:  s.spec,
		LastError: s.lastErr,
		Runs:      s.runs,
	}
	for _, sink := range s.sinks {
		st.Sinks = append(st.Sinks, sink.Name())
	}
	if s.lastRun != nil {
		last := *s.lastRun
		st.LastRun = &last
	}
	next := s.schedule.Next(s.now())
	if !next.IsZero() {
		st.NextRun = &next
	}
	return st
}

// ObjectName builds the stored name for a backup taken at t
func ObjectName(t time.Time, id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s%s-%s.json", ObjectPrefix, t.UTC().Format("20060102T150405Z"), id)
}
