package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/dados/internal/access"
	"github.com/JonMunkholm/dados/internal/core"
	"github.com/JonMunkholm/dados/internal/export"
	"github.com/JonMunkholm/dados/internal/logging"
	"github.com/JonMunkholm/dados/internal/mail"
)

const (
	defaultSubject = "Dados export"
	defaultBody    = "The requested export is attached."
)

// View returns the table contents narrowed by spec.
// An active spec additionally needs the filter capability.
func (s *Service) View(ctx context.Context, sess access.Session, spec core.FilterSpec) (core.Table, error) {
	if err := sess.Require(access.CapView); err != nil {
		return core.Table{}, err
	}
	if spec.Active() {
		if err := sess.Require(access.CapFilter); err != nil {
			return core.Table{}, err
		}
	}
	if err := core.ValidateFilter(spec); err != nil {
		return core.Table{}, err
	}

	ctx = access.ContextWithSession(ctx, sess)
	ctx, cancel := withTimeout(ctx, s.timeouts.Export)
	defer cancel()

	return s.view(ctx, spec)
}

func (s *Service) view(ctx context.Context, spec core.FilterSpec) (core.Table, error) {
	t, err := s.repo.FetchAll(ctx)
	if err != nil {
		return core.Table{}, fmt.Errorf("fetch: %w", err)
	}
	return core.Apply(t, spec), nil
}

// Options lists the selectable filter values per text column.
type Options struct {
	Column1 []string `json:"column1"`
	Column2 []string `json:"column2"`
}

// Options returns the distinct column1 and column2 values of the table.
func (s *Service) Options(ctx context.Context, sess access.Session) (Options, error) {
	if err := sess.Require(access.CapView); err != nil {
		return Options{}, err
	}

	ctx, cancel := withTimeout(ctx, s.timeouts.Export)
	defer cancel()

	t, err := s.repo.FetchAll(ctx)
	if err != nil {
		return Options{}, fmt.Errorf("fetch: %w", err)
	}
	return Options{
		Column1: core.Distinct(t, core.ColumnOne),
		Column2: core.Distinct(t, core.ColumnTwo),
	}, nil
}

// Export renders the filtered table in format.
func (s *Service) Export(ctx context.Context, sess access.Session, format string, spec core.FilterSpec) (core.ExportArtifact, error) {
	if err := sess.Require(access.CapExport); err != nil {
		return core.ExportArtifact{}, err
	}

	ctx = access.ContextWithSession(ctx, sess)
	ctx, cancel := withTimeout(ctx, s.timeouts.Export)
	defer cancel()

	return s.export(ctx, format, spec)
}

func (s *Service) export(ctx context.Context, format string, spec core.FilterSpec) (core.ExportArtifact, error) {
	if _, err := export.ParseFormat(format); err != nil {
		return core.ExportArtifact{}, err
	}
	if err := core.ValidateFilter(spec); err != nil {
		return core.ExportArtifact{}, err
	}

	if err := s.exportLimiter.Acquire(ctx); err != nil {
		return core.ExportArtifact{}, err
	}
	defer s.exportLimiter.Release()

	t, err := s.view(ctx, spec)
	if err != nil {
		return core.ExportArtifact{}, err
	}

	artifact, err := export.Render(format, t)
	if err != nil {
		return core.ExportArtifact{}, err
	}

	logging.FromContext(ctx).Info("export rendered",
		"format", format,
		"rows", t.Len(),
		"bytes", artifact.Size(),
	)
	return artifact, nil
}

// EmailRequest asks for a filtered export to be mailed.
type EmailRequest struct {
	To      []string
	Subject string
	Body    string
	Format  string
	Filter  core.FilterSpec
}

// Email renders the requested export and sends it as an attachment.
// A failed delivery leaves the store untouched; the only store access is
// the read that feeds the renderer.
func (s *Service) Email(ctx context.Context, sess access.Session, req EmailRequest) error {
	if err := sess.Require(access.CapEmail); err != nil {
		return err
	}
	if len(req.To) == 0 {
		return &core.DeliveryError{Op: "address", Err: fmt.Errorf("no recipients")}
	}

	ctx = access.ContextWithSession(ctx, sess)

	exportCtx, cancel := withTimeout(ctx, s.timeouts.Export)
	artifact, err := s.export(exportCtx, req.Format, req.Filter)
	cancel()
	if err != nil {
		return err
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = defaultSubject
	}
	body := req.Body
	if strings.TrimSpace(body) == "" {
		body = defaultBody
	}

	mailCtx, cancel := withTimeout(ctx, s.timeouts.Mail)
	defer cancel()

	err = s.mailer.Send(mailCtx, mail.Message{
		To:         req.To,
		Subject:    subject,
		Body:       body,
		Attachment: artifact,
	})
	if err != nil {
		logging.FromContext(ctx).Error("email dispatch failed",
			"error", err,
			"recipients", len(req.To),
			"attachment", artifact.Filename,
		)
		return err
	}
	return nil
}
