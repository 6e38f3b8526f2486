// Package server exposes a small HTTP API over the per-day store and the
// pipeline runner.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MilesGuan/NewsDistill/internal/config"
	"github.com/MilesGuan/NewsDistill/internal/pipeline"
	"github.com/MilesGuan/NewsDistill/internal/store"
	"github.com/MilesGuan/NewsDistill/pkg/source"
)

// Server provides the HTTP API.
type Server struct {
	cfg      *config.Config
	runner   *pipeline.Runner
	registry *source.Registry
	log      *slog.Logger
	port     int
}

// New creates a server. runner may be nil (read-only mode).
func New(cfg *config.Config, runner *pipeline.Runner, registry *source.Registry, port int, log *slog.Logger) *Server {
	if port == 0 {
		port = 8080
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{cfg: cfg, runner: runner, registry: registry, log: log, port: port}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/news", s.handleNews)
	mux.HandleFunc("/api/v1/sources", s.handleSources)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/run", s.handleRun)

	addr := fmt.Sprintf(":%d", s.port)
	s.log.Info("server listening", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// openDay opens the store for the requested date (query param "date",
// default today).
func (s *Server) openDay(r *http.Request) (*store.Store, error) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	return store.Open(s.cfg.Database.Dir, date, store.Opts{
		RefreshOnSeen: s.cfg.Database.RefreshOnSeen,
		Logger:        s.log,
	})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	db, err := s.openDay(r)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	defer db.Close()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	var recs []store.Record
	switch {
	case r.URL.Query().Get("q") != "":
		recs, err = db.Search(r.Context(), r.URL.Query().Get("q"), limit)
	case r.URL.Query().Get("source") != "":
		recs, err = db.BySource(r.Context(), r.URL.Query().Get("source"), limit)
	default:
		recs, err = db.All(r.Context(), limit)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": recs, "count": len(recs)})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	type sourceInfo struct {
		Key  string `json:"key"`
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	var infos []sourceInfo
	for _, key := range s.registry.Keys() {
		entry, _ := s.registry.Lookup(key)
		infos = append(infos, sourceInfo{Key: entry.Key, Name: entry.Name, Kind: string(entry.Kind)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": infos, "count": len(infos)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	db, err := s.openDay(r)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	defer db.Close()

	stats, err := db.GetStats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if s.runner == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "pipeline not configured"})
		return
	}

	rep, err := s.runner.RunOnce(r.Context())
	if err != nil {
		resp := map[string]any{"error": err.Error()}
		if rep != nil {
			resp["report"] = rep
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
