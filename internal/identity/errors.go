package identity

import "errors"

var (
	ErrInvalidToken      = errors.New("token invalid")
	ErrExpiredToken      = errors.New("token expired")
	ErrRevokedToken      = errors.New("token revoked")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrWrongCredentials  = errors.New("wrong email or password")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrInvalidPassword   = errors.New("invalid password length")
)

// IsTokenError reports whether err means the presented credential must be rejected.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrExpiredToken) || errors.Is(err, ErrRevokedToken)
}
