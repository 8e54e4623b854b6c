package http

import (
	"net/http"
	"strings"

	"ezfin/internal/core"
	"ezfin/internal/identity"
)

// authed resolves the caller or answers 401.
func authed(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := identity.UserID(r.Context())
	if err != nil {
		writeError(w, r, err)
		return "", false
	}
	return userID, true
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := authed(w, r)
	if !ok {
		return
	}
	cats, err := s.svc.Finance.ListCategories(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, nonNil(cats))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := authed(w, r)
	if !ok {
		return
	}
	var in core.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.svc.Finance.CreateCategory(r.Context(), userID, sanitizeCategory(in))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCreated(w, c)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := authed(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, r, core.NewValidationError("id", "is required"))
		return
	}
	if err := s.svc.Finance.DeleteCategory(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleListTransactions returns recent activity, newest first, optionally
// bounded by from/to and limit.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := authed(w, r)
	if !ok {
		return
	}
	f, err := ParseRecentFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.svc.Finance.RecentTransactions(r.Context(), userID, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, nonNil(txs))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := authed(w, r)
	if !ok {
		return
	}
	var in core.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.svc.Finance.CreateTransaction(r.Context(), userID, sanitizeTransaction(in))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCreated(w, tx)
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := authed(w, r)
	if !ok {
		return
	}
	subs, err := s.svc.Finance.ListSubscriptions(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, nonNil(subs))
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := authed(w, r)
	if !ok {
		return
	}
	var in core.SubscriptionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := s.svc.Finance.CreateSubscription(r.Context(), userID, sanitizeSubscription(in))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCreated(w, sub)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	userID, ok := authed(w, r)
	if !ok {
		return
	}
	goals, err := s.svc.Finance.ListGoals(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, nonNil(goals))
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := authed(w, r)
	if !ok {
		return
	}
	var in core.GoalInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.svc.Finance.CreateGoal(r.Context(), userID, sanitizeGoal(in))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCreated(w, g)
}

// nonNil makes empty lists encode as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
