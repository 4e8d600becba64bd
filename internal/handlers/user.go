package handlers

import (
	"net/http"

	"ChipTrack/internal/auth"
	"ChipTrack/internal/config"
	"ChipTrack/internal/middleware"
	"ChipTrack/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UserHandler - вход, выход, сессия и пользователи.
type UserHandler struct {
	UserService *service.UserService
	Logger      *zap.SugaredLogger
	Config      *config.Config
}

func NewUserHandler(userService *service.UserService, logger *zap.SugaredLogger, cfg *config.Config) *UserHandler {
	return &UserHandler{UserService: userService, Logger: logger, Config: cfg}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	auth.Principal
	Permissions []auth.Permission `json:"permissions"`
}

// Login проверяет пароль, выставляет cookie сессии и CSRF.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, h.Logger, "Login", &req) {
		return
	}

	sess, err := h.UserService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, h.Logger, h.Config.IsDevelopment(), "Login", err, "User not found")
		return
	}

	middleware.SetSessionCookies(w, sess.Token, sess.Principal.CSRFToken, sess.ExpiresAt, h.Config.SecureCookies())
	h.Logger.Infow("Login: user logged in", "username", sess.Principal.Username, "role", sess.Principal.Role)
	writeJSON(w, http.StatusOK, sess.Principal)
}

// Logout стирает cookie. Выданный токен остаётся действительным до истечения срока.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearSessionCookies(w, h.Config.SecureCookies())
	w.WriteHeader(http.StatusNoContent)
}

// Session возвращает текущего пользователя и его права.
func (h *UserHandler) Session(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipalFromContext(r.Context())
	writeJSON(w, http.StatusOK, sessionResponse{Principal: *p, Permissions: auth.PermissionsFor(p.Role)})
}

// ListUsers - список техников для фильтра по технику.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, h.Logger, h.Config.IsDevelopment(), "ListUsers", err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ChangePassword меняет пароль пользователя из пути.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipalFromContext(r.Context())

	var req service.ChangePasswordInput
	if !decodeJSON(w, r, h.Logger, "ChangePassword", &req) {
		return
	}

	username := chi.URLParam(r, "username")
	if err := h.UserService.ChangePassword(r.Context(), *p, username, req); err != nil {
		writeServiceError(w, h.Logger, h.Config.IsDevelopment(), "ChangePassword", err, "User not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
