package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.temporal.io/sdk/temporal"

	"example.com/personalize-go/internal/dataset"
	"example.com/personalize-go/internal/metrics"
)

// RunLister reads the export history.
type RunLister interface {
	List(ctx context.Context, kind dataset.Kind, limit int) ([]Run, error)
}

// Server exposes the export trigger API.
type Server struct {
	orchestrator Orchestrator
	runs         RunLister
	logger       *slog.Logger
}

// NewServer wires the trigger API. runs may be nil.
func NewServer(orchestrator Orchestrator, runs RunLister, logger *slog.Logger) *Server {
	return &Server{orchestrator: orchestrator, runs: runs, logger: logger}
}

// Router configures all export routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/exports", func(r chi.Router) {
		r.Get("/", s.handleListRuns)
		r.Post("/{kind}", s.handleExport)
		r.Post("/{kind}/async", s.handleExportAsync)
	})
	return r
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	kind, err := dataset.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, "%v", err)
		return
	}
	result, err := s.orchestrator.RunExport(r.Context(), WorkflowInput{Kind: kind, Reason: "api-export"})
	if err != nil {
		s.logger.Error("export via api failed", "kind", kind, "error", err)
		writeError(w, statusFor(err), "export %s: %v", kind, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExportAsync(w http.ResponseWriter, r *http.Request) {
	kind, err := dataset.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, "%v", err)
		return
	}
	id, err := s.orchestrator.RunExportAsync(r.Context(), WorkflowInput{Kind: kind, Reason: "api-export-async"})
	if err != nil {
		writeError(w, statusFor(err), "dispatch export %s: %v", kind, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"kind":        kind,
		"workflow_id": id,
		"task_queue":  exportTaskQueue,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeJSON(w, http.StatusOK, map[string]any{"runs": []Run{}})
		return
	}
	var kind dataset.Kind
	if raw := r.URL.Query().Get("kind"); raw != "" {
		parsed, err := dataset.ParseKind(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "%v", err)
			return
		}
		kind = parsed
	}
	runs, err := s.runs.List(r.Context(), kind, parseIntDefault(r.URL.Query().Get("limit"), 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list runs: %v", err)
		return
	}
	if runs == nil {
		runs = []Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// statusFor maps taxonomy errors to client errors and a busy kind to a conflict;
// everything else is an upstream failure.
// Errors coming back from a workflow only keep their type name.
func statusFor(err error) int {
	if errors.Is(err, ErrExportInFlight) {
		return http.StatusConflict
	}
	errType := dataset.ErrorType(err)
	var appErr *temporal.ApplicationError
	if errType == "" && errors.As(err, &appErr) {
		errType = appErr.Type()
	}
	switch errType {
	case "MissingConfig":
		return http.StatusPreconditionFailed
	case "EmptyDataset":
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

// StartAutoExport dispatches every dataset kind each interval until ctx is done.
func (s *Server) StartAutoExport(ctx context.Context, interval time.Duration) {
	go func() {
		s.logger.Info("autoexport loop started", "interval", interval)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("autoexport loop stopped", "reason", ctx.Err())
				return
			case <-ticker.C:
				s.dispatchAll(ctx, "autoexport-interval")
			}
		}
	}()
}

func (s *Server) dispatchAll(ctx context.Context, reason string) {
	for _, kind := range dataset.Kinds() {
		if err := ctx.Err(); err != nil {
			return
		}
		id, err := s.orchestrator.RunExportAsync(ctx, WorkflowInput{Kind: kind, Reason: reason})
		if errors.Is(err, ErrExportInFlight) {
			s.logger.Info("autoexport skipped, previous run still going", "kind", kind, "reason", reason)
			continue
		}
		if err != nil {
			s.logger.Error("autoexport dispatch failed", "kind", kind, "error", err)
			continue
		}
		s.logger.Info("autoexport dispatched workflow", "kind", kind, "workflow_id", id, "reason", reason)
	}
}

func parseIntDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": strings.TrimSpace(fmt.Sprintf(format, args...)),
			"status":  status,
		},
	})
}
