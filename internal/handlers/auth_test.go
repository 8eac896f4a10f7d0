package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Novip1906/todo-api/internal/identity"
)

type stubProvider struct {
	loggedOut []string
}

func (s *stubProvider) Register(_ context.Context, email, password string) (*identity.Account, error) {
	switch {
	case email == "taken@example.com":
		return nil, identity.ErrUserAlreadyExists
	case len(password) < 6:
		return nil, identity.ErrInvalidPassword
	case email == "explode@example.com":
		return nil, errors.New("db down")
	}
	return &identity.Account{Id: "u1", Email: email}, nil
}

func (s *stubProvider) Login(_ context.Context, email, password string) (string, error) {
	if email == "a@example.com" && password == "secret123" {
		return "signed-token", nil
	}
	return "", identity.ErrWrongCredentials
}

func (s *stubProvider) Validate(_ context.Context, token string) (*identity.TokenClaims, error) {
	switch token {
	case "signed-token":
		return &identity.TokenClaims{Email: "a@example.com", RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}}, nil
	case "revoked":
		return nil, identity.ErrRevokedToken
	}
	return nil, identity.ErrInvalidToken
}

func (s *stubProvider) Logout(ctx context.Context, token string) error {
	if _, err := s.Validate(ctx, token); err != nil {
		return err
	}
	s.loggedOut = append(s.loggedOut, token)
	return nil
}

func newAuthRouter(p IdentityProvider) http.Handler {
	r := chi.NewRouter()
	NewAuthHandler(p).Register(r)
	return r
}

func post(h http.Handler, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthRegister(t *testing.T) {
	h := newAuthRouter(&stubProvider{})

	tests := []struct {
		body string
		want int
	}{
		{`{"email":"new@example.com","password":"secret123"}`, http.StatusCreated},
		{`{"email":"taken@example.com","password":"secret123"}`, http.StatusConflict},
		{`{"email":"new@example.com","password":"123"}`, http.StatusBadRequest},
		{`{"email":"explode@example.com","password":"secret123"}`, http.StatusInternalServerError},
		{`nope`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		if rec := post(h, "/auth/register", tt.body, ""); rec.Code != tt.want {
			t.Errorf("register %s = %d, want %d", tt.body, rec.Code, tt.want)
		}
	}
}

func TestAuthLoginAndValidate(t *testing.T) {
	h := newAuthRouter(&stubProvider{})

	rec := post(h, "/auth/login", `{"email":"a@example.com","password":"secret123"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d", rec.Code)
	}
	var tok TokenResponse
	json.NewDecoder(rec.Body).Decode(&tok)
	if tok.Token != "signed-token" {
		t.Fatalf("token = %q", tok.Token)
	}

	if rec := post(h, "/auth/login", `{"email":"a@example.com","password":"bad"}`, ""); rec.Code != http.StatusForbidden {
		t.Errorf("bad login = %d", rec.Code)
	}

	rec = post(h, "/auth/validate", `{"token":"signed-token"}`, "")
	var v identity.ValidateResponse
	json.NewDecoder(rec.Body).Decode(&v)
	if rec.Code != http.StatusOK || v.UserId != "u1" {
		t.Errorf("validate = %d %+v", rec.Code, v)
	}

	for _, token := range []string{"revoked", "junk"} {
		if rec := post(h, "/auth/validate", `{"token":"`+token+`"}`, ""); rec.Code != http.StatusForbidden {
			t.Errorf("validate %s = %d", token, rec.Code)
		}
	}
}

func TestAuthLogout(t *testing.T) {
	p := &stubProvider{}
	h := newAuthRouter(p)

	if rec := post(h, "/auth/logout", "", ""); rec.Code != http.StatusForbidden {
		t.Errorf("logout without token = %d", rec.Code)
	}
	if rec := post(h, "/auth/logout", "", "junk"); rec.Code != http.StatusForbidden {
		t.Errorf("logout with junk = %d", rec.Code)
	}
	if rec := post(h, "/auth/logout", "", "signed-token"); rec.Code != http.StatusOK {
		t.Errorf("logout = %d", rec.Code)
	}
	if len(p.loggedOut) != 1 {
		t.Errorf("loggedOut = %v", p.loggedOut)
	}
}
