/*
Package handler provides the HTTP handlers and routing setup for the lobby server.

This file defines the main Router, applying middleware like logging, CORS and IP-based rate
limiting before delegating requests to the API and WebSocket handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"lobby/internal/pkg/errs"
	"lobby/internal/pkg/limiter"
	"lobby/internal/pkg/logx"
	"lobby/internal/pkg/resp"
)

const (
	ConnectRate  = 0.5
	ConnectBurst = 5
)

// ServiceName is reported by the health endpoint.
const ServiceName = "Lobby Server"

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes the per-IP connection limiter, configures CORS and the WebSocket origin check,
// and applies global and per-route middleware.
func Router(deps *AppDeps) http.Handler {
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			logx.Warn("WebSocket upgrade failed.", "status", status, "reason", reason.Error())

			if status == http.StatusForbidden {
				resp.RespondError(w, errs.NewError(errs.ErrOriginNotAllowed))
				return
			}
			resp.RespondError(w, errs.NewError(errs.ErrInvalidParams))
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"status":      "ok",
			"service":     ServiceName,
			"connections": deps.Hub.Len(),
		}
		resp.RespondSuccess(w, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/rooms", HandleListRooms(deps))
	})

	r.With(connectLimiter.Middleware).Get("/ws", HandleWebSocket(wsUpgrader, deps))

	return r
}
