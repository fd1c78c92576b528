package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/form/v4"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/chessbroker/auth"
	"github.com/wricardo/chessbroker/game/service"
)

// Identity resolves request players and issues guest identities
type Identity interface {
	auth.Authenticator
	IssueGuest() (playerID, token string, expires time.Time, err error)
}

// Options configures a Server
type Options struct {
	Logger       *zap.Logger
	CookieSecure bool
	// MCP, when set, is mounted at POST /mcp
	MCP http.Handler
}

// Server represents the HTTP API server
type Server struct {
	service  service.BrokerService
	identity Identity
	router   *mux.Router
	handler  http.Handler
	forms    *form.Decoder
	logger   *zap.Logger
	opts     Options
}

// NewServer creates a new API server
func NewServer(svc service.BrokerService, identity Identity, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{
		service:  svc,
		identity: identity,
		router:   mux.NewRouter(),
		forms:    newFormDecoder(),
		logger:   opts.Logger,
		opts:     opts,
	}

	s.setupRoutes()
	s.handler = Wrap(s.router, Recover(s.logger), LogRequests(s.logger))
	return s
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Event streams (server-sent events)
	board := api.PathPrefix("/board").Subrouter()
	board.HandleFunc("/new_random_game", s.serveSSE(s.randomGame())).Methods("GET")
	board.HandleFunc("/new_custom_game", s.serveSSE(s.customGame())).Methods("GET")
	board.HandleFunc("/join_game/{id}", s.serveSSE(s.joinGame())).Methods("GET")
	board.HandleFunc("/spectate/{id}", s.serveSSE(s.spectateGame())).Methods("GET")

	// Gameplay
	board.HandleFunc("/play_move", s.handlePlayMove).Methods("POST")

	// Inspection
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Identity
	api.HandleFunc("/auth/guest", s.handleGuest).Methods("POST")
	api.HandleFunc("/auth/me", s.handleMe).Methods("GET")

	// Event streams (WebSocket)
	ws := s.router.PathPrefix("/ws/board").Subrouter()
	ws.HandleFunc("/new_random_game", s.serveWS(s.randomGame()))
	ws.HandleFunc("/new_custom_game", s.serveWS(s.customGame()))
	ws.HandleFunc("/join_game/{id}", s.serveWS(s.joinGame()))
	ws.HandleFunc("/spectate/{id}", s.serveWS(s.spectateGame()))

	if s.opts.MCP != nil {
		s.router.Handle("/mcp", s.opts.MCP).Methods("POST")
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps broker errors onto status codes
func respondServiceError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	respondJSON(w, status, map[string]string{"error": err.Error(), "code": code})
}
