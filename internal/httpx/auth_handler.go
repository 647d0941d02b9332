package httpx

import (
	"encoding/json"
	"net/http"

	"markethub-be/internal/user"

	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	Users user.Service
}

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResp struct {
	Token string   `json:"token"`
	User  userResp `json:"user"`
}

type userResp struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/register", h.register)
	r.Post("/auth/login", h.login)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	token, u, err := h.Users.Register(r.Context(), req.Name, req.Email, req.Password, user.Role(req.Role))
	if err != nil {
		writeError(w, err)
		return
	}

	setAccessCookie(w, token)
	writeJSON(w, http.StatusCreated, authResp{Token: token, User: toUserResp(u)})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	token, u, err := h.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	setAccessCookie(w, token)
	writeJSON(w, http.StatusOK, authResp{Token: token, User: toUserResp(u)})
}

func setAccessCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   24 * 60 * 60,
	})
}

func toUserResp(u user.User) userResp {
	return userResp{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)}
}
