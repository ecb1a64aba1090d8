package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"FleetStock/internal/auth"
	"FleetStock/internal/config"
	"FleetStock/internal/middleware"
)

// AuthHandler обрабатывает вход по PIN и смену PIN.
type AuthHandler struct {
	Auth   *auth.Service
	Logger *zap.SugaredLogger
	Config *config.Config
}

func NewAuthHandler(a *auth.Service, logger *zap.SugaredLogger, cfg *config.Config) *AuthHandler {
	return &AuthHandler{Auth: a, Logger: logger, Config: cfg}
}

type loginRequest struct {
	PIN string `json:"pin"`
}

type loginResponse struct {
	Name    string `json:"name"`
	TruckID string `json:"truck,omitempty"`
	IsOwner bool   `json:"isOwner"`
}

// Login проверяет PIN по свежей таблице пользователей и ставит cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.Auth.Login(r.Context(), req.PIN)
	if err != nil {
		// неверный PIN и локаут — штатные исходы, не ошибки сервера
		h.Logger.Infow("login rejected", "error", err)
		writeError(w, err)
		return
	}

	if err := middleware.SetLoginCookie(w, user, h.Config.AuthSecret); err != nil {
		h.Logger.Errorw("failed to issue session token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Name: user.Name, TruckID: user.TruckID, IsOwner: user.IsOwner})
}

// Logout снимает сессионную cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearLoginCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

type changePINRequest struct {
	OldPIN string `json:"oldPin"`
	NewPIN string `json:"newPin"`
}

// ChangePIN ротация PIN. После успешной смены своя сессия остаётся живой:
// cookie несёт имя, а не PIN.
func (h *AuthHandler) ChangePIN(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req changePINRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Auth.ChangePIN(r.Context(), actor, req.OldPIN, req.NewPIN); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
