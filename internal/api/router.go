package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/audit", s.handleListAuditLogs)

		r.Route("/areas", func(r chi.Router) {
			r.Get("/", s.handleListAreas)
			r.Post("/", s.handleCreateArea)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetArea)
				r.Put("/", s.handleUpdateArea)
				r.Delete("/", s.handleDeleteArea)
				r.Get("/devices", s.handleListAreaDevices)
			})
		})

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Put("/", s.handleUpdateDevice)
				r.Delete("/", s.handleDeleteDevice)
				r.Get("/bins", s.handleListDeviceBins)
				r.Put("/status", s.handleUpdateDeviceStatus)
				r.Put("/color", s.handleUpdateDeviceColor)
				r.Put("/proximity", s.handleUpdateDeviceProximity)
			})
		})

		r.Route("/bins", func(r chi.Router) {
			r.Get("/", s.handleListBins)
			r.Put("/level", s.handleUpdateBinLevel)
			r.Get("/{id}", s.handleGetBin)
			r.Delete("/{id}", s.handleDeleteBin)
		})

		r.Route("/mqtt", func(r chi.Router) {
			r.Get("/messages", s.handleMQTTMessages)
			r.Post("/publish", s.handleMQTTPublish)
		})

		r.Get(s.wsPath(), s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	mqttStatus := "disconnected"
	if s.mqtt != nil && s.mqtt.IsConnected() {
		mqttStatus = "connected"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"version":     s.version,
		"mqtt_status": mqttStatus,
	})
}

// wsPath returns the WebSocket route relative to /api/v1.
func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}
