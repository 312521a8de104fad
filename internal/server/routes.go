package server

import (
	"net/http"
	"strings"

	"github.com/ternarybob/bulkops/internal/handlers"
)

const (
	bulkJobsPrefix      = "/api/bulk/jobs/"
	notificationsPrefix = "/api/notifications/"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route - bulk job progress stream
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Bulk actions
	mux.HandleFunc("/api/bulk/jobs", s.handleBulkJobsRoute) // GET (list), POST (execute)
	mux.HandleFunc(bulkJobsPrefix, s.handleBulkJobRoutes)   // GET /{id}, POST /{id}/cancel, GET /{id}/download
	mux.HandleFunc("/api/bulk/actions", s.app.BulkHandler.ActionsHandler)
	mux.HandleFunc("/api/bulk/stats", s.app.BulkHandler.StatsHandler)
	mux.HandleFunc("/api/bulk/cleanup", s.app.BulkHandler.CleanupHandler)

	// API routes - Audit trail
	mux.HandleFunc("/api/audit", s.app.AuditHandler.ListHandler)

	// API routes - Notifications
	mux.HandleFunc("/api/notifications", s.app.NotificationHandler.ListHandler)
	mux.HandleFunc(notificationsPrefix, s.handleNotificationRoutes) // POST /{id}/read

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleBulkJobsRoute routes /api/bulk/jobs requests (list and execute)
func (s *Server) handleBulkJobsRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r, s.app.BulkHandler.ListHandler, s.app.BulkHandler.ExecuteHandler)
}

// handleBulkJobRoutes routes /api/bulk/jobs/{id} and its subpaths
func (s *Server) handleBulkJobRoutes(w http.ResponseWriter, r *http.Request) {
	if handlers.PathID(r.URL.Path, bulkJobsPrefix) == "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	matched := RouteByPathSuffix(w, r, bulkJobsPrefix, []PathSuffixRouter{
		{Suffix: "/cancel", Handler: s.app.BulkHandler.CancelHandler},
		{Suffix: "/download", Handler: s.app.BulkHandler.DownloadHandler},
	})
	if matched {
		return
	}

	// Anything deeper than /{id} is unknown
	if strings.Contains(strings.TrimPrefix(r.URL.Path, bulkJobsPrefix), "/") {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	s.app.BulkHandler.GetHandler(w, r)
}

// handleNotificationRoutes routes /api/notifications/{id}/read
func (s *Server) handleNotificationRoutes(w http.ResponseWriter, r *http.Request) {
	if handlers.PathID(r.URL.Path, notificationsPrefix) == "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	matched := RouteByPathSuffix(w, r, notificationsPrefix, []PathSuffixRouter{
		{Suffix: "/read", Handler: s.app.NotificationHandler.MarkReadHandler},
	})
	if !matched {
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}
