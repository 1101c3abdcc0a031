package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"saa-question-importer/internal/app"
	"saa-question-importer/internal/domain"
)

// ReportSource exposes the outcome of the most recent import.
type ReportSource interface {
	Last(ctx context.Context) (domain.ImportReport, bool, error)
}

// TagSearcher finds questions by tag across every topic.
type TagSearcher interface {
	QuestionsByTag(ctx context.Context, tag string) ([]domain.QuestionRecord, error)
}

// RouterConfig wires the HTTP surface. Runs, Tags and Imports are optional.
type RouterConfig struct {
	Bank           *app.BankService
	Runs           ReportSource
	Tags           TagSearcher
	Imports        *WSHandler
	AllowedOrigins []string
}

// NewRouter mounts the read API, health check and (when configured) the import socket.
func NewRouter(cfg RouterConfig) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	h := &bankHandlers{bank: cfg.Bank, runs: cfg.Runs, tags: cfg.Tags}
	r.Route("/api", func(ar chi.Router) {
		// websocket upgrades must not be cut short by the timeout middleware
		ar.Use(middleware.Timeout(30 * time.Second))
		ar.Get("/index", h.index)
		ar.Get("/topics/{topic}/questions", h.questions)
		ar.Get("/questions/{id}", h.question)
		if cfg.Tags != nil {
			ar.Get("/tags/{tag}/questions", h.tagged)
		}
		if cfg.Runs != nil {
			ar.Get("/runs/last", h.lastRun)
		}
	})
	if cfg.Imports != nil {
		r.Get("/ws/import", cfg.Imports.ServeWS)
	}
	return r
}

type bankHandlers struct {
	bank *app.BankService
	runs ReportSource
	tags TagSearcher
}

func (h *bankHandlers) index(w http.ResponseWriter, r *http.Request) {
	index, err := h.bank.Index(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, index)
}

func (h *bankHandlers) questions(w http.ResponseWriter, r *http.Request) {
	filter := app.QuestionFilter{
		Difficulty: domain.Difficulty(r.URL.Query().Get("difficulty")),
		Tag:        r.URL.Query().Get("tag"),
	}
	if filter.Difficulty != "" && !filter.Difficulty.Valid() {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "unknown difficulty " + string(filter.Difficulty)})
		return
	}
	records, err := h.bank.Questions(r.Context(), chi.URLParam(r, "topic"), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *bankHandlers) question(w http.ResponseWriter, r *http.Request) {
	record, err := h.bank.Question(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *bankHandlers) tagged(w http.ResponseWriter, r *http.Request) {
	records, err := h.tags.QuestionsByTag(r.Context(), chi.URLParam(r, "tag"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *bankHandlers) lastRun(w http.ResponseWriter, r *http.Request) {
	report, ok, err := h.runs.Last(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorPayload{Message: "no import has finished yet"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTopicNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrDatasetNotFound):
		writeJSON(w, http.StatusNotFound, errorPayload{Message: err.Error()})
	default:
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorPayload{Message: "internal error"})
	}
}
