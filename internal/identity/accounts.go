package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type Account struct {
	Id           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type PostgresAccounts struct {
	db *sql.DB
}

func NewPostgresAccounts(host, port, user, password, dbname string) (*PostgresAccounts, error) {
	psqlInfo := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname,
	)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("cannot open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("cannot connect to db: %w", err)
	}

	s := &PostgresAccounts{db: db}

	if err := s.init(); err != nil {
		return nil, fmt.Errorf("cannot initialize db schema: %w", err)
	}

	return s, nil
}

func (s *PostgresAccounts) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`
	_, err := s.db.Exec(schema)
	return err
}

func (s *PostgresAccounts) CreateAccount(ctx context.Context, acc *Account) error {
	query := "INSERT INTO accounts (id, email, password) VALUES ($1, $2, $3) RETURNING created_at"
	err := s.db.QueryRowContext(ctx, query, acc.Id, acc.Email, acc.PasswordHash).Scan(&acc.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrUserAlreadyExists
	}
	return err
}

func (s *PostgresAccounts) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	query := "SELECT id, email, password, created_at FROM accounts WHERE email=$1"

	var acc Account
	err := s.db.QueryRowContext(ctx, query, email).Scan(&acc.Id, &acc.Email, &acc.PasswordHash, &acc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *PostgresAccounts) Close() error {
	return s.db.Close()
}
