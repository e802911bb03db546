// Package server exposes the translation wizard over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alkime/saywhat/internal/config"
	"github.com/alkime/saywhat/internal/jobs"
	"github.com/alkime/saywhat/internal/qa"
	"github.com/alkime/saywhat/internal/translate"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const shutdownTimeout = 10 * time.Second

// Deps are the translation services the handlers drive.
type Deps struct {
	Jobs     *jobs.Manager
	Answerer translate.Answerer
	// ReplyDelay is the pause before a question is answered.
	ReplyDelay time.Duration
}

// Server represents the HTTP server
type Server struct {
	config *config.Config
	logger *slog.Logger
	router *gin.Engine

	jobs       *jobs.Manager
	answerer   translate.Answerer
	replyDelay time.Duration
	now        func() time.Time

	sessions *sessionStore
	chats    *chatStore
	upgrader websocket.Upgrader
}

// New creates a new Server instance
func New(cfg *config.Config, logger *slog.Logger, deps Deps) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	if cfg.IsProduction() {
		router.TrustedPlatform = gin.PlatformFlyIO
		logger.Debug("Configured trusted platform", "platform", "fly.io")
	}

	if err := router.SetTrustedProxies(cfg.Proxies); err != nil {
		logger.Error("Failed to set trusted proxies", "error", err)
	}

	if deps.Answerer == nil {
		deps.Answerer = translate.CannedAnswerer{}
	}

	server := &Server{
		config:     cfg,
		logger:     logger,
		router:     router,
		jobs:       deps.Jobs,
		answerer:   deps.Answerer,
		replyDelay: deps.ReplyDelay,
		now:        time.Now,
		sessions:   newSessionStore(),
		chats:      newChatStore(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	setupSecurityMiddleware(router, cfg, logger)
	setupStaticFiles(router, cfg, logger)
	server.setupRoutes()

	return server
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully. Wizard sessions
// are reset so their jobs are cancelled.
func Run(ctx context.Context, s *Server) error {
	srv := &http.Server{
		Addr:              ":" + s.config.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "port", s.config.Port)
		errC <- srv.ListenAndServe()
	}()

	go s.janitor(ctx)

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Server shutting down")
	s.sessions.resetAll()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errC; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// janitor sweeps expired state every SweepInterval until ctx is done.
func (s *Server) janitor(ctx context.Context) {
	if s.config.SweepInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep drops finished jobs past JobRetention with their chats, and wizard
// sessions idle longer than SessionIdleTTL.
func (s *Server) sweep() {
	now := s.now()

	if ttl := s.config.SessionIdleTTL; ttl > 0 {
		expired := s.sessions.expire(now.Add(-ttl))
		for _, sess := range expired {
			s.release(sess)
		}
		if len(expired) > 0 {
			s.logger.Info("expired idle wizard sessions", "count", len(expired))
		}
	}

	if keep := s.config.JobRetention; keep > 0 {
		s.chats.remove(s.jobs.Prune(now.Add(-keep))...)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api/v1")
	{
		api.GET("/languages", s.handleLanguages)

		wizards := api.Group("/wizards")
		wizards.POST("", s.handleCreateWizard)
		wizards.GET("/:id", s.handleGetWizard)
		wizards.DELETE("/:id", s.handleDeleteWizard)
		wizards.PUT("/:id/method", s.handleSetMethod)
		wizards.PUT("/:id/payload", s.handleSetPayload)
		wizards.DELETE("/:id/payload", s.handleClearPayload)
		wizards.PUT("/:id/config", s.handleSetConfig)
		wizards.POST("/:id/advance", s.handleAdvance)
		wizards.POST("/:id/retreat", s.handleRetreat)
		wizards.POST("/:id/reset", s.handleReset)

		jobsGroup := api.Group("/jobs")
		jobsGroup.POST("", s.handleCreateJob)
		jobsGroup.GET("/:id", s.handleGetJob)
		jobsGroup.DELETE("/:id", s.handleCancelJob)
		jobsGroup.GET("/:id/events", s.handleJobEvents)
		jobsGroup.GET("/:id/questions", s.handleListQuestions)
		jobsGroup.POST("/:id/questions", s.handleAskQuestion)
	}
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "saywhat",
	})
}

// chatStore holds one Q&A transcript per job.
type chatStore struct {
	mu    sync.Mutex
	chats map[string]*qa.Chat
}

func newChatStore() *chatStore {
	return &chatStore{chats: make(map[string]*qa.Chat)}
}

func (s *chatStore) get(jobID string) *qa.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[jobID]
	if !ok {
		chat = qa.NewChat()
		s.chats[jobID] = chat
	}

	return chat
}

func (s *chatStore) remove(jobIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range jobIDs {
		delete(s.chats, id)
	}
}
