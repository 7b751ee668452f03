package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"notejournal/auth"
	"notejournal/middleware"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterInput
	if !decode(w, r, &req) {
		return
	}
	user, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().Int64("user_id", user.ID).Msg("user registered")
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pair, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeMessage(w, http.StatusBadRequest, "invalid request")
		return
	}
	pair, err := h.tokens.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Logout revokes the presented access token and, when sent, the refresh
// token that came with it.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if r.ContentLength > 0 && !decode(w, r, &req) {
		return
	}

	if err := h.tokens.Revoke(r.Context(), claims); err != nil {
		writeError(w, r, err)
		return
	}
	if req.RefreshToken != "" {
		refresh, err := h.tokens.Parse(r.Context(), req.RefreshToken, auth.RefreshToken)
		if err == nil && refresh.UserID == claims.UserID {
			if err := h.tokens.Revoke(r.Context(), refresh); err != nil {
				writeError(w, r, err)
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.accounts.User(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
