package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Novip1906/todo-api/internal/contextkeys"
	"github.com/Novip1906/todo-api/internal/models"
)

// Verifier turns a bearer token into a caller identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (models.Caller, error)
}

// LocalVerifier checks token signatures with the shared secret. It cannot see
// revocations made through the identity provider.
type LocalVerifier struct {
	secret string
}

func NewLocalVerifier(secret string) *LocalVerifier {
	return &LocalVerifier{secret: secret}
}

func (v *LocalVerifier) Verify(_ context.Context, token string) (models.Caller, error) {
	claims, err := DecodeToken(token, v.secret)
	if err != nil {
		return models.Caller{}, err
	}
	return models.Caller{Id: claims.Subject, Email: claims.Email}, nil
}

// RemoteVerifier asks the identity provider to validate every token.
type RemoteVerifier struct {
	baseURL string
	client  *http.Client
}

func NewRemoteVerifier(baseURL string, client *http.Client) *RemoteVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteVerifier{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type ValidateRequest struct {
	Token string `json:"token"`
}

type ValidateResponse struct {
	UserId string `json:"userId"`
	Email  string `json:"email"`
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (models.Caller, error) {
	body, err := json.Marshal(ValidateRequest{Token: token})
	if err != nil {
		return models.Caller{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/auth/validate", bytes.NewReader(body))
	if err != nil {
		return models.Caller{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if id, ok := contextkeys.GetRequestID(ctx); ok {
		req.Header.Set(contextkeys.RequestIDHeader, id)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return models.Caller{}, fmt.Errorf("identity provider request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.Caller{}, ErrInvalidToken
	default:
		return models.Caller{}, fmt.Errorf("identity provider: unexpected status %d", resp.StatusCode)
	}

	var out ValidateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.Caller{}, fmt.Errorf("decode validate response: %w", err)
	}
	if out.UserId == "" {
		return models.Caller{}, ErrInvalidToken
	}
	return models.Caller{Id: out.UserId, Email: out.Email}, nil
}
