package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Novip1906/todo-api/internal/config"
	"github.com/Novip1906/todo-api/internal/models"
	"github.com/Novip1906/todo-api/pkg/logging"
)

const bcryptCost = 10

type AccountStore interface {
	CreateAccount(ctx context.Context, acc *Account) error
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
}

type RevocationStore interface {
	Revoke(ctx context.Context, tokenId string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenId string) (bool, error)
}

// Provider issues, validates and revokes identity tokens.
type Provider struct {
	accounts    AccountStore
	revocations RevocationStore
	secret      string
	ttl         time.Duration
	password    config.MinMaxLen
	log         *slog.Logger

	// compared against on unknown emails so both failure paths cost one bcrypt run
	dummyHash []byte
}

func NewProvider(cfg *config.AuthConfig, accounts AccountStore, revocations RevocationStore, log *slog.Logger) *Provider {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcryptCost)
	return &Provider{
		accounts:    accounts,
		revocations: revocations,
		secret:      cfg.JWT.Secret,
		ttl:         cfg.JWT.TTL,
		password:    cfg.Params.Password,
		log:         log,
		dummyHash:   dummy,
	}
}

func (p *Provider) Register(ctx context.Context, email, password string) (*Account, error) {
	email = normalizeEmail(email)
	if !emailIsValid(email) {
		return nil, ErrInvalidEmail
	}
	if n := utf8.RuneCountInString(password); n < p.password.Min || n > p.password.Max {
		return nil, ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acc := &Account{Id: uuid.NewString(), Email: email, PasswordHash: string(hash)}
	if err := p.accounts.CreateAccount(ctx, acc); err != nil {
		return nil, err
	}

	p.log.Info("account registered", slog.String("user_id", acc.Id))
	return acc, nil
}

func (p *Provider) Login(ctx context.Context, email, password string) (string, error) {
	acc, err := p.accounts.GetAccountByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		bcrypt.CompareHashAndPassword(p.dummyHash, []byte(password))
		return "", ErrWrongCredentials
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return "", ErrWrongCredentials
	}

	token, _, err := EncodeToken(acc.Id, acc.Email, p.secret, p.ttl)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (p *Provider) Validate(ctx context.Context, token string) (*TokenClaims, error) {
	claims, err := DecodeToken(token, p.secret)
	if err != nil {
		return nil, err
	}

	revoked, err := p.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrRevokedToken
	}
	return claims, nil
}

// Verify lets the provider serve as an in-process Verifier.
func (p *Provider) Verify(ctx context.Context, token string) (models.Caller, error) {
	claims, err := p.Validate(ctx, token)
	if err != nil {
		return models.Caller{}, err
	}
	return models.Caller{Id: claims.Subject, Email: claims.Email}, nil
}

func (p *Provider) Logout(ctx context.Context, token string) error {
	claims, err := p.Validate(ctx, token)
	if err != nil {
		return err
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := p.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		p.log.Error("revoke token", logging.Err(err))
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func emailIsValid(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
