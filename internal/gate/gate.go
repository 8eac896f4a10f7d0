// Package gate authenticates task requests. Every task route is wrapped by
// Gate.Require, and the verified caller is handed to the route as an
// argument rather than stashed on the request.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Novip1906/todo-api/internal/contextkeys"
	"github.com/Novip1906/todo-api/internal/identity"
	"github.com/Novip1906/todo-api/internal/models"
	"github.com/Novip1906/todo-api/internal/respond"
	"github.com/Novip1906/todo-api/pkg/logging"
)

const (
	MsgAccessDenied = "Access denied"
	MsgInvalidToken = "Invalid or expired token"
)

var (
	ErrMissingToken    = errors.New("authorization header required")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// CallerHandler is a route that runs only after the gate has verified its caller.
type CallerHandler func(w http.ResponseWriter, r *http.Request, caller models.Caller)

type Gate struct {
	verifier identity.Verifier
	timeout  time.Duration
}

func New(verifier identity.Verifier, timeout time.Duration) *Gate {
	return &Gate{verifier: verifier, timeout: timeout}
}

// Authorize verifies the bearer credential on r. It never caches a result.
func (g *Gate) Authorize(r *http.Request) (models.Caller, error) {
	token, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return models.Caller{}, ErrMissingToken
	}

	ctx := r.Context()
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	caller, err := g.verifier.Verify(ctx, token)
	if err != nil {
		return models.Caller{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if caller.Id == "" {
		return models.Caller{}, fmt.Errorf("%w: empty caller id", ErrUnauthenticated)
	}
	return caller, nil
}

func (g *Gate) Require(next CallerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := contextkeys.GetLogger(r.Context()).With(slog.String("gate", "auth"))

		caller, err := g.Authorize(r)
		switch {
		case errors.Is(err, ErrMissingToken):
			log.Warn("auth header missing")
			respond.Error(w, http.StatusForbidden, MsgAccessDenied)
			return
		case err != nil && identity.IsTokenError(err):
			log.Warn("token rejected", logging.Err(err))
			respond.Error(w, http.StatusForbidden, MsgInvalidToken)
			return
		case err != nil:
			log.Error("token verification failed", logging.Err(err))
			respond.Error(w, http.StatusForbidden, MsgInvalidToken)
			return
		}

		log = contextkeys.GetLogger(r.Context()).With(slog.String("user_id", caller.Id))
		ctx := contextkeys.WithLogger(r.Context(), log)

		next(w, r.WithContext(ctx), caller)
	}
}

// BearerToken extracts the credential from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
