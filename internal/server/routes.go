package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Maintenance requests
	mux.HandleFunc("/api/requests", s.handleRequestsRoute)  // GET (list), POST (submit)
	mux.HandleFunc("/api/requests/", s.handleRequestRoutes) // /mine, /{id} and subpaths

	// API routes - Stats
	mux.HandleFunc("/api/stats", s.app.StatsHandler.GetStatsHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleRequestsRoute routes the request collection endpoint
func (s *Server) handleRequestsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "POST":
		s.app.RequestHandler.SubmitHandler(w, r)
	case "GET":
		s.app.RequestHandler.ListHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRequestRoutes routes request sub-paths to the appropriate handler
func (s *Server) handleRequestRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/requests/"), "/")
	if path == "" {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	// GET /api/requests/mine
	if path == "mine" {
		s.app.RequestHandler.ListMineHandler(w, r)
		return
	}

	parts := strings.Split(path, "/")
	requestID := parts[0]

	// /api/requests/{id}
	if len(parts) == 1 {
		switch r.Method {
		case "GET":
			s.app.RequestHandler.GetHandler(w, r, requestID)
		case "PATCH":
			s.app.RequestHandler.UpdateHandler(w, r, requestID)
		case "DELETE":
			s.app.RequestHandler.DeleteHandler(w, r, requestID)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if len(parts) == 2 {
		switch parts[1] {
		case "task-status":
			// GET /api/requests/{id}/task-status
			s.app.RequestHandler.TaskStatusHandler(w, r, requestID)
			return
		case "reclassify":
			// POST /api/requests/{id}/reclassify
			s.app.RequestHandler.ReclassifyHandler(w, r, requestID)
			return
		}
	}

	http.Error(w, "Not found", http.StatusNotFound)
}
