// Package web serves the sprint store and the sync engine over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/dt-pm-tools/burndown-sync/internal/burndown"
	"github.com/dt-pm-tools/burndown-sync/internal/config"
	"github.com/dt-pm-tools/burndown-sync/internal/jira"
	"github.com/dt-pm-tools/burndown-sync/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SprintStore is the persistence the server needs. *store.Store implements it.
type SprintStore interface {
	ListSprints(ctx context.Context) ([]store.SprintSummary, error)
	GetSprint(ctx context.Context, id string) (*burndown.Sprint, error)
	SaveSprint(ctx context.Context, sprint *burndown.Sprint) error
	RecordSyncRun(ctx context.Context, run store.SyncRun) (int64, error)
	SyncRuns(ctx context.Context, sprintID string, limit int) ([]store.SyncRun, error)
}

// Server handles HTTP requests
type Server struct {
	Router *chi.Mux

	cfg    config.Config
	loc    *time.Location
	store  SprintStore
	source burndown.IssueSource
	logger *log.Logger

	// One sync at a time per sprint id.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewServer creates a server. If logger is nil, a default logger writing to
// stderr is used.
func NewServer(cfg config.Config, st SprintStore, source burndown.IssueSource, logger *log.Logger) (*Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[web] ", log.LstdFlags)
	}

	s := &Server{
		cfg:    cfg,
		loc:    loc,
		store:  st,
		source: source,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/health", s.healthCheck)

	r.Route("/api/sprints", func(r chi.Router) {
		r.Get("/", s.listSprints)
		r.Get("/{id}", s.getSprint)
		r.Post("/{id}/sync", s.syncSprint)
	})

	s.Router = r
}

// ServeHTTP lets the server be used directly as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "burndown-sync",
	})
}

func (s *Server) listSprints(w http.ResponseWriter, r *http.Request) {
	sprints, err := s.store.ListSprints(r.Context())
	if err != nil {
		s.logger.Printf("Error listing sprints: %v", err)
		writeError(w, http.StatusInternalServerError, "Error listing sprints")
		return
	}
	if sprints == nil {
		sprints = []store.SprintSummary{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"data":      sprints,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) getSprint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sprint, err := s.store.GetSprint(r.Context(), id)
	if errors.Is(err, store.ErrSprintNotFound) {
		writeError(w, http.StatusNotFound, "Sprint "+id+" not found")
		return
	}
	if err != nil {
		s.logger.Printf("Error loading sprint %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Error loading sprint")
		return
	}

	runs, err := s.store.SyncRuns(r.Context(), id, 10)
	if err != nil {
		s.logger.Printf("Error loading sync runs of %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Error loading sync runs")
		return
	}
	if runs == nil {
		runs = []store.SyncRun{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data": map[string]any{
			"sprint":    sprint,
			"sync_runs": runs,
		},
		"timestamp": time.Now().UTC(),
	})
}

// syncSprint runs the sync engine for one sprint. Query parameters: team
// overrides the sprint's team, dry_run=true skips saving.
func (s *Server) syncSprint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	dryRun := false
	if v := r.URL.Query().Get("dry_run"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "dry_run must be a boolean")
			return
		}
		dryRun = b
	}

	lock := s.sprintLock(id)
	lock.Lock()
	defer lock.Unlock()

	sprint, err := s.store.GetSprint(ctx, id)
	if errors.Is(err, store.ErrSprintNotFound) {
		writeError(w, http.StatusNotFound, "Sprint "+id+" not found")
		return
	}
	if err != nil {
		s.logger.Printf("Error loading sprint %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Error loading sprint")
		return
	}

	teamName := sprint.Team
	if v := r.URL.Query().Get("team"); v != "" {
		teamName = v
	}
	team, err := s.cfg.Team(teamName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	syncer := burndown.NewSyncer(s.source, s.logger)
	syncer.Workers = s.cfg.Workers
	syncer.Location = s.loc

	started := time.Now()
	report, syncErr := syncer.SyncSprint(ctx, team, sprint)

	if syncErr == nil && !dryRun {
		if err := s.store.SaveSprint(ctx, sprint); err != nil {
			syncErr = err
		}
	}
	if !dryRun {
		if _, err := s.store.RecordSyncRun(ctx, store.NewSyncRun(id, started, report, syncErr)); err != nil {
			s.logger.Printf("Error recording sync run of %s: %v", id, err)
		}
	}

	if syncErr != nil {
		s.logger.Printf("Error syncing sprint %s: %v", id, syncErr)
		var authErr *jira.AuthenticationError
		if errors.As(syncErr, &authErr) {
			writeError(w, http.StatusBadGateway, syncErr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, syncErr.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data": map[string]any{
			"sprint":  sprint,
			"report":  report,
			"dry_run": dryRun,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) sprintLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"status": "error",
		"error":  msg,
	})
}
