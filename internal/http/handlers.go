package http

import (
	"context"
	"net/http"
	"time"

	"ezfin/internal/core"
	"ezfin/internal/identity"
	"ezfin/internal/log"
)

// readyTimeout bounds the store ping behind /readyz.
const readyTimeout = 3 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks the store and reports middleware counters.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}

	switch {
	case s.svc.Store == nil:
		checks["store"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	default:
		if err := s.svc.Store.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			checks["store"] = "unreachable"
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	rl := s.rateLimiter.GetMetrics()
	sec := s.securityDetector.GetMetrics()
	tr := s.traceMiddleware.GetMetrics()
	checks["rate_limiter"] = map[string]int64{"active_clients": rl.ClientCount, "rejected": rl.Rejected}
	checks["security"] = map[string]int64{"suspicious": sec.SuspiciousRequests, "blocked": sec.BlockedRequests}
	checks["requests"] = map[string]int64{"total": tr.TotalRequests, "server_errors": tr.ServerErrors}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status": status,
		"checks": checks,
	}).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, err := identity.UserID(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.svc.Dashboard.Build(r.Context(), userID, r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, d)
}

// handleGetPreferences answers anonymous callers with the defaults.
func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity.UserID(r.Context())
	prefs, err := s.svc.Preferences.Get(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, prefs)
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, err := identity.UserID(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in core.PreferencesInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	prefs, err := s.svc.Preferences.Update(r.Context(), userID, sanitizePreferences(in))
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).WithComponent(log.ComponentPrefs).InfoContext(r.Context(), "Preferences updated",
		log.NewFields().User(userID).Op(log.OpUpdate).Slice()...)
	writeOK(w, prefs)
}
