package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/tiles-server/game/service"
	"github.com/wricardo/tiles-server/game/session"
	"github.com/wricardo/tiles-server/transport/websocket"
)

// Server represents the status API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil, which disables /ws.
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Full paths on the root router; a subrouter answers 404 on method mismatch.
	r := s.router

	// Live game
	r.HandleFunc("/api/status", s.handleStatus).Methods("GET")
	r.HandleFunc("/api/history", s.handleHistory).Methods("GET")
	r.HandleFunc("/api/board", s.handleBoard).Methods("GET")

	// Archive
	r.HandleFunc("/api/games", s.handleListGames).Methods("GET")
	r.HandleFunc("/api/games/{id}", s.handleGetGame).Methods("GET")

	// Rules
	r.HandleFunc("/api/rules", s.handleRules).Methods("GET")
	r.HandleFunc("/api/configs", s.handleListConfigs).Methods("GET")
	r.HandleFunc("/api/tiles", s.handleTiles).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Debug().Err(err).Msg("failed to write response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Live game handlers

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.Status(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	opts := service.HistoryOptions{Order: query.Get("order")}
	if pageStr := query.Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			respondError(w, http.StatusBadRequest, "Invalid page parameter")
			return
		}
		opts.Page = page
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			respondError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		opts.Limit = limit
	}
	if opts.Order != "" && opts.Order != "asc" && opts.Order != "desc" {
		respondError(w, http.StatusBadRequest, "order must be asc or desc")
		return
	}

	history, err := s.service.History(r.Context(), opts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	board, err := s.service.Board(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, board)
}

// Archive handlers

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.service.ListGames(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total": len(games),
		"games": games,
	})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	gameID := vars["id"]

	rec, err := s.service.GetGame(r.Context(), gameID)
	switch {
	case errors.Is(err, session.ErrInvalidGameID):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, session.ErrGameNotFound):
		respondError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// Rules handlers

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.Rules(r.Context()))
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListPresets(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleTiles(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.Tiles(r.Context()))
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "spectator feed disabled", http.StatusNotFound)
		return
	}
	s.hub.ServeWS(w, r)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
