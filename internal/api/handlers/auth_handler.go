package handlers

import (
	"context"
	"errors"
	"net/http"

	"catalog-service/internal/api/middleware"
	"catalog-service/internal/auth"
	"catalog-service/internal/metrics"
	"catalog-service/internal/models"
)

// Authenticator is the login side of auth.CredentialService.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, auth.Identity, error)
}

// AccountManager is the account side of auth.CredentialService.
type AccountManager interface {
	CreateAccount(ctx context.Context, username, password string, isAdmin bool) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(a Authenticator) *AuthHandler {
	return &AuthHandler{auth: a}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      int    `json:"user_id"`
	Username    string `json:"username"`
	IsAdmin     bool   `json:"is_admin"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	token, id, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.RecordLogin(metrics.LoginInvalid)
			middleware.LoggerFrom(r.Context()).WithField("username", req.Username).Warn("failed login")
		} else {
			metrics.RecordLogin(metrics.LoginError)
		}
		respondError(w, r, err, "failed to log in")
		return
	}

	metrics.RecordLogin(metrics.LoginSuccess)
	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		UserID:      id.UserID,
		Username:    id.Username,
		IsAdmin:     id.IsAdmin,
	})
}

type UserHandler struct {
	accounts AccountManager
}

func NewUserHandler(accounts AccountManager) *UserHandler {
	return &UserHandler{accounts: accounts}
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
}

func (h *UserHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.ListUsers(r.Context())
	if err != nil {
		respondError(w, r, err, "failed to get users")
		return
	}

	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req UserCreateRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	user, err := h.accounts.CreateAccount(r.Context(), req.Username, req.Password, req.IsAdmin)
	if err != nil {
		respondError(w, r, err, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}
