// Package api provides the local HTTP gateway over the client engine. A UI
// process talks to this gateway; the gateway talks to the engine; the engine
// talks to the remote backend.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/pizoo-client/internal/logging"
	"github.com/pizoo-client/internal/service"
	"github.com/pizoo-client/internal/session"
)

// Server represents the gateway HTTP server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	engine     *service.Engine
	session    *session.Session
	config     *ServerConfig
	logger     *logging.Logger
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new gateway server instance.
func NewServer(config *ServerConfig, engine *service.Engine, sess *session.Session, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	s := &Server{
		router:  mux.NewRouter(),
		engine:  engine,
		session: sess,
		config:  config,
		logger:  logger,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(CORSMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all gateway routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// session endpoints
	api.HandleFunc("/session/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/session/logout", s.handleLogout).Methods("POST")

	// discovery and swiping
	api.HandleFunc("/discover/current", s.handleCurrentProfile).Methods("GET")
	api.HandleFunc("/discover/refill", s.handleRefill).Methods("POST")
	api.HandleFunc("/discover/swipe", s.handleSwipe).Methods("POST")

	// match overlay
	api.HandleFunc("/match/active", s.handleActiveMatch).Methods("GET")
	api.HandleFunc("/match/dismiss", s.handleDismissMatch).Methods("POST")

	// likes notifications
	api.HandleFunc("/likes/prompt", s.handleLikesPrompt).Methods("GET")
	api.HandleFunc("/likes/dismiss", s.handleLikesDismiss).Methods("POST")
	api.HandleFunc("/likes/sent", s.handleLikesSent).Methods("GET")

	// own profile
	api.HandleFunc("/profile", s.handleOwnProfile).Methods("GET")

	// conversations and chat
	api.HandleFunc("/conversations", s.handleConversations).Methods("GET")
	api.HandleFunc("/chats/{matchID}/open", s.handleOpenChat).Methods("POST")
	api.HandleFunc("/chats/{matchID}/close", s.handleCloseChat).Methods("POST")
	api.HandleFunc("/chats/{matchID}/messages", s.handleMessages).Methods("GET")
	api.HandleFunc("/chats/{matchID}/send", s.handleSend).Methods("POST")
	api.HandleFunc("/chats/{matchID}/consent/accept", s.handleAcceptConsent).Methods("POST")
	api.HandleFunc("/chats/{matchID}/consent/decline", s.handleDeclineConsent).Methods("POST")

	// subscription
	api.HandleFunc("/subscription", s.handleSubscription).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "pizoo-client",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting gateway")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down gateway")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
