package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dados/internal/access"
	"github.com/JonMunkholm/dados/internal/core"
	"github.com/JonMunkholm/dados/internal/logging"
)

// IngestResult describes a completed replace-load.
type IngestResult struct {
	LoadID   string        `json:"load_id"`
	FileName string        `json:"file_name"`
	Rows     int64         `json:"rows"`
	Bytes    int64         `json:"bytes"`
	Duration time.Duration `json:"duration_ns"`
}

// Ingest replaces the table contents with the rows of the CSV in r.
//
// The whole input is parsed before the store is touched, so a ParseError
// leaves the previous contents in place. Only sessions with the ingest
// capability reach the parser.
func (s *Service) Ingest(ctx context.Context, sess access.Session, r io.Reader, fileName string) (*IngestResult, error) {
	if err := sess.Require(access.CapIngest); err != nil {
		return nil, err
	}

	ctx = access.ContextWithSession(ctx, sess)
	ctx, cancel := withTimeout(ctx, s.timeouts.Ingest)
	defer cancel()

	if err := s.ingestLimiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.ingestLimiter.Release()

	start := time.Now()
	result := &IngestResult{
		LoadID:   uuid.NewString(),
		FileName: fileName,
	}
	logger := logging.WithFields(ctx, "load_id", result.LoadID, "file", fileName)
	logger.Info("ingestion started")

	parsed, err := core.ParseCSV(r)
	if err != nil {
		logger.Warn("ingestion rejected", "error", err)
		return nil, err
	}
	result.Bytes = parsed.Bytes

	n, err := s.repo.ReplaceAll(ctx, parsed.Records)
	if err != nil {
		logger.Error("ingestion failed", "error", err, "rows", len(parsed.Records))
		return nil, fmt.Errorf("load %s: %w", result.LoadID, err)
	}

	result.Rows = n
	result.Duration = time.Since(start)
	logger.Info("ingestion completed",
		"rows", result.Rows,
		"bytes", result.Bytes,
		"duration", result.Duration,
	)
	return result, nil
}

// EnsureSchema provisions the dados table. It needs the ingest capability.
func (s *Service) EnsureSchema(ctx context.Context, sess access.Session) error {
	if err := sess.Require(access.CapIngest); err != nil {
		return err
	}
	return s.repo.EnsureSchema(ctx)
}
