// Package report mails the unfiltered table on a cron schedule.
//
// Each tick renders one export and sends it to the configured recipients.
// A failed run is logged and the next tick starts fresh; nothing is retried.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/JonMunkholm/dados/internal/access"
	"github.com/JonMunkholm/dados/internal/config"
	"github.com/JonMunkholm/dados/internal/export"
	"github.com/JonMunkholm/dados/internal/service"
)

// Identity is the session identity scheduled reports run under.
const Identity = "report-scheduler"

// Emailer renders and mails an export.
type Emailer interface {
	Email(ctx context.Context, sess access.Session, req service.EmailRequest) error
}

// Scheduler runs the report job on its cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	emailer Emailer
	cfg     config.ReportConfig
	session access.Session
	logger  *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler validates cfg and registers the report job. The scheduler does
// nothing until Start.
func NewScheduler(emailer Emailer, cfg config.ReportConfig, logger *slog.Logger) (*Scheduler, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("report: schedule and recipients are required")
	}
	if _, err := export.ParseFormat(cfg.Format); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		cron:    cron.New(),
		emailer: emailer,
		cfg:     cfg,
		session: access.Session{Identity: Identity, Role: access.RoleAnalyst},
		logger:  logger.With("component", "report"),
		ctx:     context.Background(),
	}
	if _, err := s.cron.AddFunc(cfg.Schedule, s.tick); err != nil {
		return nil, fmt.Errorf("report: invalid schedule %q: %w", cfg.Schedule, err)
	}
	return s, nil
}

// Start begins running the job. Runs in flight when ctx ends are canceled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("report scheduler started",
		"schedule", s.cfg.Schedule,
		"format", s.cfg.Format,
		"recipients", len(s.cfg.Recipients),
	)
}

// Stop halts the schedule and waits for a running job to finish or for ctx
// to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
		}
		s.mu.Unlock()
	}
	s.logger.Info("report scheduler stopped")
}

// Next returns the time of the next scheduled run, or the zero time before
// Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	_ = s.RunOnce(ctx)
}

// RunOnce renders and sends one report immediately.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()
	err := s.emailer.Email(ctx, s.session, service.EmailRequest{
		To:      s.cfg.Recipients,
		Subject: s.cfg.Subject,
		Body:    fmt.Sprintf("Scheduled dados report generated %s.", start.UTC().Format(time.RFC1123)),
		Format:  s.cfg.Format,
	})
	if err != nil {
		s.logger.Error("scheduled report failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return err
	}
	s.logger.Info("scheduled report sent",
		"recipients", len(s.cfg.Recipients),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
