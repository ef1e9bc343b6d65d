package handler

import (
	"net/http"
	"todo_collab/internal/api/validate"
	"todo_collab/internal/app/service"
	"todo_collab/internal/common"
	"todo_collab/internal/common/security"

	"github.com/go-chi/chi/v5"
)

// TokenCookie is the cookie jwtauth.Verifier reads besides the
// Authorization header.
const TokenCookie = "jwt"

type AuthHandler struct {
	authService  *service.AuthService
	cookieSecure bool
}

func NewAuthHandler(authService *service.AuthService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{authService: authService, cookieSecure: cookieSecure}
}

// LoginView backs the login page. Error is set after a failed attempt.
type LoginView struct {
	Fields []string `json:"fields"`
	Error  bool     `json:"error"`
}

func (h *AuthHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/login", h.loginForm)
	r.Post("/login", h.login)
}

func (h *AuthHandler) loginForm(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, LoginView{
		Fields: []string{"email", "password"},
		Error:  r.URL.Query().Get("error") == "true",
	})
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/logout", h.logout)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := validate.Decode(r, validate.Login, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    resp.Token,
		Path:     "/",
		Expires:  resp.Issue.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	ident, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	if err := h.authService.Logout(r.Context(), ident); err != nil {
		respondErr(w, r, err)
		return
	}
	h.clearCookie(w)
	common.Redirect(w, r, "/login")
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// endSession revokes the caller's token and drops the cookie.
func (h *AuthHandler) endSession(w http.ResponseWriter, r *http.Request, ident security.Identity) error {
	if err := h.authService.Logout(r.Context(), ident); err != nil {
		return err
	}
	h.clearCookie(w)
	return nil
}
