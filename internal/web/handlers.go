package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dados/internal/access"
	"github.com/JonMunkholm/dados/internal/core"
	"github.com/JonMunkholm/dados/internal/logging"
	"github.com/JonMunkholm/dados/internal/service"
)

// multipartMemory is the part of an upload kept in memory; the rest spills
// to a temporary file managed by net/http.
const multipartMemory = 32 << 20

var (
	errNoFile       = errors.New("no file provided")
	errFileTooLarge = errors.New("file too large")
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports whether the store accepts connections.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ready(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type sessionResponse struct {
	Identity     string              `json:"identity"`
	Role         access.Role         `json:"role"`
	Capabilities []access.Capability `json:"capabilities"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := sess.Require(access.CapView); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Identity:     sess.Identity,
		Role:         sess.Role,
		Capabilities: sess.Role.Capabilities(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if err := sessionFrom(r).Require(access.CapView); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Status())
}

func (s *Server) handleEnsureSchema(w http.ResponseWriter, r *http.Request) {
	if err := s.service.EnsureSchema(r.Context(), sessionFrom(r)); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleIngest replaces the table with the CSV sent as multipart field "file".
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	// Reject before reading the body.
	if err := sess.Require(access.CapIngest); err != nil {
		respondError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			respondErrorStatus(w, r, fmt.Errorf("%w: limit %d bytes", errFileTooLarge, s.cfg.Upload.MaxFileSize), http.StatusRequestEntityTooLarge)
			return
		}
		respondErrorStatus(w, r, fmt.Errorf("%w: %v", errNoFile, err), http.StatusBadRequest)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondErrorStatus(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	result, err := s.service.Ingest(r.Context(), sess, file, header.Filename)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type viewResponse struct {
	Columns []string        `json:"columns"`
	Rows    []rowJSON       `json:"rows"`
	Count   int             `json:"count"`
	Filter  core.FilterSpec `json:"filter,omitempty"`
}

type rowJSON struct {
	Column1 string  `json:"column1"`
	Column2 string  `json:"column2"`
	Value   float64 `json:"value"`
}

// handleView returns the table narrowed by the column1, column2 and value
// query parameters.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	spec := filterFromQuery(r.URL.Query())

	t, err := s.service.View(r.Context(), sessionFrom(r), spec)
	if err != nil {
		respondError(w, r, err)
		return
	}

	rows := make([]rowJSON, 0, t.Len())
	for _, rec := range t.Rows {
		rows = append(rows, rowJSON{Column1: rec.Column1, Column2: rec.Column2, Value: rec.Value})
	}
	writeJSON(w, http.StatusOK, viewResponse{
		Columns: t.Columns,
		Rows:    rows,
		Count:   len(rows),
		Filter:  spec,
	})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.service.Options(r.Context(), sessionFrom(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// handleExport streams the filtered table as an attachment download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	spec := filterFromQuery(r.URL.Query())

	artifact, err := s.service.Export(r.Context(), sessionFrom(r), format, spec)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", artifact.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(artifact.Size()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifact.Data); err != nil {
		logging.FromContext(r.Context()).Warn("export write failed", "error", err)
	}
}

type emailRequest struct {
	To      []string        `json:"to"`
	Subject string          `json:"subject"`
	Body    string          `json:"body"`
	Filter  core.FilterSpec `json:"filter"`
}

// handleEmail mails the filtered export to the recipients in the JSON body.
func (s *Server) handleEmail(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondErrorStatus(w, r, fmt.Errorf("decode email request: %w", err), http.StatusBadRequest)
		return
	}

	err := s.service.Email(r.Context(), sessionFrom(r), service.EmailRequest{
		To:      req.To,
		Subject: req.Subject,
		Body:    req.Body,
		Format:  chi.URLParam(r, "format"),
		Filter:  req.Filter,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "sent", "recipients": len(req.To)})
}
