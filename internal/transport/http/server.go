package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	historyService "github.com/mirrelia/tweet-relay-bot/internal/modules/history/service"
	monitorRepo "github.com/mirrelia/tweet-relay-bot/internal/modules/monitor/repository"
	"github.com/mirrelia/tweet-relay-bot/internal/shared/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sloghttp "github.com/samber/slog-http"
)

// Server exposes health, the watch registry, per-channel relay feeds and
// Prometheus metrics over HTTP.
type Server struct {
	cfg     *config.Config
	repo    monitorRepo.Repository
	history *historyService.Service
	logger  *slog.Logger
}

// New creates a status HTTP server
func New(cfg *config.Config, repo monitorRepo.Repository, history *historyService.Service) *Server {
	return &Server{
		cfg:     cfg,
		repo:    repo,
		history: history,
		logger:  slog.Default(),
	}
}

// SetLogger overrides the request logger
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Start runs the server until it fails; it blocks
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /watches", s.handleWatches)
	mux.HandleFunc("GET /feed/{channelID}", s.handleFeed)
	mux.Handle("GET /metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%s", s.cfg.HTTPPort)
	s.logger.Info("Status server starting", "addr", addr)

	handler := sloghttp.Recovery(mux)
	handler = sloghttp.New(s.logger)(handler)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleWatches(w http.ResponseWriter, r *http.Request) {
	monitors, err := s.repo.SelectAll(r.Context())
	if err != nil {
		s.logger.Error("Failed to load monitors", "error", err)
		http.Error(w, "Failed to load watches", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(monitors); err != nil {
		s.logger.Error("Failed to encode watches", "error", err)
	}
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	channelID, err := strconv.ParseInt(r.PathValue("channelID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid channel ID", http.StatusBadRequest)
		return
	}

	baseURL := fmt.Sprintf("%s://%s", getScheme(r), r.Host)
	feed, err := s.history.Feed(r.Context(), channelID, baseURL)
	if err != nil {
		s.logger.Error("Error generating feed", "channel_id", channelID, "error", err)
		http.Error(w, "Failed to generate feed", http.StatusInternalServerError)
		return
	}

	rss, err := feed.ToRss()
	if err != nil {
		s.logger.Error("Error converting feed to RSS", "error", err)
		http.Error(w, "Failed to generate RSS", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rss))
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
