package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Novip1906/todo-api/internal/config"
	"github.com/Novip1906/todo-api/internal/handlers"
	"github.com/Novip1906/todo-api/internal/identity"
)

type AuthServer struct {
	*httpServer
	cfg *config.AuthConfig
}

func NewAuthServer(cfg *config.AuthConfig, log *slog.Logger) *AuthServer {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	p := cfg.DB
	accounts, err := identity.NewPostgresAccounts(p.Host, p.Port, p.User, p.Password, p.DBName)
	if err != nil {
		panic(err)
	}

	revocations, err := identity.NewRedisRevocations(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, log)
	if err != nil {
		panic(err)
	}

	provider := identity.NewProvider(cfg, accounts, revocations, log)

	s := &AuthServer{
		httpServer: newHTTPServer(cfg.Address, NewAuthRouter(log, provider), cfg.Server, log),
		cfg:        cfg,
	}
	s.onClose(func(context.Context) error { return accounts.Close() })
	s.onClose(func(context.Context) error { return revocations.Close() })
	return s
}

func NewAuthRouter(log *slog.Logger, provider handlers.IdentityProvider) http.Handler {
	r := baseRouter(log)
	handlers.NewAuthHandler(provider).Register(r)
	return r
}
