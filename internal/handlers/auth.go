package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Novip1906/todo-api/internal/contextkeys"
	"github.com/Novip1906/todo-api/internal/gate"
	"github.com/Novip1906/todo-api/internal/identity"
	"github.com/Novip1906/todo-api/internal/respond"
	"github.com/Novip1906/todo-api/pkg/logging"
)

type IdentityProvider interface {
	Register(ctx context.Context, email, password string) (*identity.Account, error)
	Login(ctx context.Context, email, password string) (string, error)
	Validate(ctx context.Context, token string) (*identity.TokenClaims, error)
	Logout(ctx context.Context, token string) error
}

type AuthHandler struct {
	provider IdentityProvider
}

func NewAuthHandler(provider IdentityProvider) *AuthHandler {
	return &AuthHandler{provider: provider}
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/validate", h.validate)
		r.Post("/logout", h.logout)
	})
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AccountResponse struct {
	Id    string `json:"id"`
	Email string `json:"email"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decode(w, r, credentialsSchema, &req) {
		return
	}

	acc, err := h.provider.Register(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, identity.ErrInvalidEmail), errors.Is(err, identity.ErrInvalidPassword):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrUserAlreadyExists):
		respond.Error(w, http.StatusConflict, err.Error())
	case err != nil:
		contextkeys.GetLogger(r.Context()).Error("register failed", logging.Err(err))
		respond.Error(w, http.StatusInternalServerError, MsgInternal)
	default:
		respond.JSON(w, http.StatusCreated, AccountResponse{Id: acc.Id, Email: acc.Email})
	}
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decode(w, r, credentialsSchema, &req) {
		return
	}

	token, err := h.provider.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, identity.ErrWrongCredentials):
		respond.Error(w, http.StatusForbidden, err.Error())
	case err != nil:
		contextkeys.GetLogger(r.Context()).Error("login failed", logging.Err(err))
		respond.Error(w, http.StatusInternalServerError, MsgInternal)
	default:
		respond.JSON(w, http.StatusOK, TokenResponse{Token: token})
	}
}

func (h *AuthHandler) validate(w http.ResponseWriter, r *http.Request) {
	var req identity.ValidateRequest
	if !decode(w, r, validateTokenSchema, &req) {
		return
	}

	claims, err := h.provider.Validate(r.Context(), req.Token)
	switch {
	case err != nil && identity.IsTokenError(err):
		respond.Error(w, http.StatusForbidden, gate.MsgInvalidToken)
	case err != nil:
		contextkeys.GetLogger(r.Context()).Error("validate failed", logging.Err(err))
		respond.Error(w, http.StatusInternalServerError, MsgInternal)
	default:
		respond.JSON(w, http.StatusOK, identity.ValidateResponse{UserId: claims.Subject, Email: claims.Email})
	}
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	token, ok := gate.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		respond.Error(w, http.StatusForbidden, gate.MsgAccessDenied)
		return
	}

	err := h.provider.Logout(r.Context(), token)
	switch {
	case err != nil && identity.IsTokenError(err):
		respond.Error(w, http.StatusForbidden, gate.MsgInvalidToken)
	case err != nil:
		contextkeys.GetLogger(r.Context()).Error("logout failed", logging.Err(err))
		respond.Error(w, http.StatusInternalServerError, MsgInternal)
	default:
		respond.JSON(w, http.StatusOK, respond.MessageBody{Message: "Logged out"})
	}
}
