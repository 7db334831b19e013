// Package service is the single entry point to the dados pipeline.
//
// Every gated operation takes an explicit access.Session and checks its
// capability before touching the store. Operations run synchronously under
// a caller-independent timeout: UPLOAD_TIMEOUT for ingestion,
// EXPORT_TIMEOUT for query and render, MAIL_TIMEOUT for dispatch.
package service

import (
	"context"
	"time"

	"github.com/JonMunkholm/dados/internal/config"
	"github.com/JonMunkholm/dados/internal/core"
	"github.com/JonMunkholm/dados/internal/mail"
)

// Repository is the relational store as seen by the service.
type Repository interface {
	Ping(ctx context.Context) error
	EnsureSchema(ctx context.Context) error
	ReplaceAll(ctx context.Context, rows []core.Record) (int64, error)
	FetchAll(ctx context.Context) (core.Table, error)
}

// Mailer delivers one message with an attachment.
type Mailer interface {
	Send(ctx context.Context, m mail.Message) error
}

// Timeouts bounds each kind of operation.
type Timeouts struct {
	Ingest time.Duration
	Export time.Duration
	Mail   time.Duration
}

// Service composes store, filter, renderers and dispatch.
type Service struct {
	repo     Repository
	mailer   Mailer
	timeouts Timeouts

	ingestLimiter *Limiter
	exportLimiter *Limiter
}

// New creates a service from its collaborators and the loaded config.
func New(repo Repository, mailer Mailer, cfg *config.Config) *Service {
	return &Service{
		repo:   repo,
		mailer: mailer,
		timeouts: Timeouts{
			Ingest: cfg.Upload.Timeout,
			Export: cfg.Export.Timeout,
			Mail:   cfg.Mail.Timeout,
		},
		ingestLimiter: NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		exportLimiter: NewLimiter(cfg.Export.MaxConcurrent, cfg.Upload.MaxWaitTime),
	}
}

// Ready reports whether the store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Status is a snapshot of in-flight work.
type Status struct {
	Ingest LimiterStatus `json:"ingest"`
	Export LimiterStatus `json:"export"`
}

// Status returns the current limiter state.
func (s *Service) Status() Status {
	return Status{
		Ingest: s.ingestLimiter.Status(),
		Export: s.exportLimiter.Status(),
	}
}

// WaitForDrain blocks until in-flight ingestions and exports finish or ctx
// ends. It is used during graceful shutdown.
func (s *Service) WaitForDrain(ctx context.Context) error {
	if err := s.ingestLimiter.WaitForDrain(ctx); err != nil {
		return err
	}
	return s.exportLimiter.WaitForDrain(ctx)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
