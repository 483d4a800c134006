// internal/handlers/api_server.go
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jason-s-yu/pokdeng/internal/game"
	"github.com/jason-s-yu/pokdeng/internal/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// APIServer serves the HTTP surface: health, session listing and the game socket.
type APIServer struct {
	Registry   *game.SessionRegistry
	Hub        *Hub
	Dispatcher *game.Dispatcher
	WS         WSOptions
	Logger     logrus.FieldLogger
	StartedAt  time.Time

	// HTTPRateMax requests per HTTPRateWindow are allowed from each address.
	// Zero disables the limit.
	HTTPRateMax    int
	HTTPRateWindow time.Duration
}

// NewAPIServer wires a hub and dispatcher around the registry.
func NewAPIServer(reg *game.SessionRegistry, hub *Hub, disp *game.Dispatcher, ws WSOptions, logger logrus.FieldLogger) *APIServer {
	return &APIServer{
		Registry:   reg,
		Hub:        hub,
		Dispatcher: disp,
		WS:         ws,
		Logger:     logger,
		StartedAt:  time.Now(),
	}
}

// Router builds the routes and wraps them in logging, security headers,
// per-address rate limiting and CORS.
func (s *APIServer) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(
		middleware.LogMiddleware(s.Logger),
		middleware.SecurityHeaders,
		middleware.RateLimit(s.HTTPRateMax, s.HTTPRateWindow, s.Logger),
	)

	r.HandleFunc("/", s.index).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.HandleFunc("/sessions", s.listSessions).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", s.getSession).Methods(http.MethodGet)
	r.HandleFunc("/ws", GameWSHandler(s.Logger, s.Hub, s.Dispatcher, s.WS))

	c := cors.New(cors.Options{
		AllowedOrigins:   s.WS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

func (s *APIServer) index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":      "pokdeng",
		"websocket": "/ws",
	})
}

func (s *APIServer) health(w http.ResponseWriter, r *http.Request) {
	sessions, players := s.Registry.Counts()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"sessions":    sessions,
		"players":     players,
		"connections": s.Hub.Count(),
		"uptime":      time.Since(s.StartedAt).Round(time.Second).String(),
	})
}

func (s *APIServer) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": s.Registry.AllSessions()})
}

func (s *APIServer) getSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	session, ok := s.Registry.GetSession(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, session.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("Failed to encode JSON response")
	}
}
