package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/socialfeed/pkg/domain"
	"github.com/umputun/socialfeed/pkg/feed"
)

// Server represents HTTP server instance
type Server struct {
	config    ConfigProvider
	feeds     FeedService
	configs   ConfigStore
	moderated ModerationStore
	version   string
	debug     bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// FeedService serves aggregated feed items
type FeedService interface {
	Feed(ctx context.Context, fc domain.FeedConfig, limit int) ([]domain.Item, error)
	Live(ctx context.Context, fc domain.FeedConfig, opts feed.Options) ([]domain.Item, error)
	Merge(ctx context.Context, configs []domain.FeedConfig, limit int) ([]domain.Item, error)
}

// ConfigStore persists feed configurations
type ConfigStore interface {
	Create(ctx context.Context, fc *domain.FeedConfig) error
	Get(ctx context.Context, id int64) (domain.FeedConfig, error)
	List(ctx context.Context) ([]domain.FeedConfig, error)
	SetModerated(ctx context.Context, id int64, moderated bool) error
	Delete(ctx context.Context, id int64) error
}

// ModerationStore persists operator approvals
type ModerationStore interface {
	GetOrCreateFor(ctx context.Context, configID int64, serialized string) (domain.ModeratedItem, bool, error)
	ExternalIDs(ctx context.Context, configID int64) ([]string, error)
	Delete(ctx context.Context, configID int64, externalID string) error
}

// ConfigProvider provides server configuration
type ConfigProvider interface {
	GetServerConfig() (listen string, timeout time.Duration)
}

// New initializes a new server instance
func New(cfg ConfigProvider, feeds FeedService, configs ConfigStore, moderated ModerationStore, version string, debug bool) *Server {
	s := &Server{
		config:    cfg,
		feeds:     feeds,
		configs:   configs,
		moderated: moderated,
		version:   version,
		debug:     debug,
		router:    routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	listen, timeout := s.config.GetServerConfig()
	log.Printf("[INFO] starting server on %s", listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         listen,
		Handler:      s.router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		log.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("socialfeed", "umputun", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)

		r.HandleFunc("GET /configs", s.listConfigsHandler)
		r.HandleFunc("POST /configs", s.createConfigHandler)
		r.HandleFunc("PUT /configs/{id}/moderated", s.setModeratedHandler)
		r.HandleFunc("DELETE /configs/{id}", s.deleteConfigHandler)

		r.HandleFunc("GET /feeds", s.mergedFeedHandler)
		r.HandleFunc("GET /feeds/{id}", s.feedHandler)
		r.HandleFunc("GET /feeds/{id}/queue", s.moderationQueueHandler)
		r.HandleFunc("POST /feeds/{id}/moderation", s.approveHandler)
		r.HandleFunc("DELETE /feeds/{id}/moderation/{postID}", s.removeApprovalHandler)
	})
}

// statusHandler returns server status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"time":    time.Now().UTC(),
	}
	renderJSON(w, r, http.StatusOK, status)
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends error response as JSON
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, r, code, map[string]string{"error": errMsg})
}
