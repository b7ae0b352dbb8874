package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type CredentialsDTO struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

var (
	ErrUserExists      = errors.New("username already exists")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidToken    = errors.New("invalid token")
)

// IAuthService is the credential collaborator. The match core only ever
// calls VerifyToken; Register and Login back the REST surface.
type IAuthService interface {
	Register(ctx context.Context, username, password string) (*CredentialsDTO, error)
	Login(ctx context.Context, username, password string) (*CredentialsDTO, error)
	VerifyToken(token string) (string, error)
}

const bcryptCost = 10

type authService struct {
	db       *sql.DB
	secret   []byte
	tokenTTL time.Duration
}

func NewAuthService(db *sql.DB, secret string, tokenTTL time.Duration) IAuthService {
	return &authService{
		db:       db,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

func (svc *authService) Register(ctx context.Context, username, password string) (*CredentialsDTO, error) {
	var exists bool
	err := svc.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username,
	).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}

	const ins = `INSERT INTO users (username, password_hash, created_at)
	             VALUES ($1, $2, now())`
	if _, err = svc.db.ExecContext(ctx, ins, username, string(hash)); err != nil {
		return nil, err
	}

	token, err := svc.signToken(username)
	if err != nil {
		return nil, err
	}
	return &CredentialsDTO{Username: username, Token: token}, nil
}

func (svc *authService) Login(ctx context.Context, username, password string) (*CredentialsDTO, error) {
	var hash string
	err := svc.db.QueryRowContext(ctx,
		`SELECT password_hash FROM users WHERE username = $1`, username,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidPassword
	}

	token, err := svc.signToken(username)
	if err != nil {
		return nil, err
	}
	return &CredentialsDTO{Username: username, Token: token}, nil
}

// VerifyToken returns the identity a token was issued for. It is pure
// CPU work, no store round-trip, so the websocket handshake path stays
// cheap.
func (svc *authService) VerifyToken(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return svc.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	username, _ := claims["username"].(string)
	if username == "" {
		return "", ErrInvalidToken
	}
	return username, nil
}

func (svc *authService) signToken(username string) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"iat":      now.Unix(),
		"exp":      now.Add(svc.tokenTTL).Unix(),
	})
	return tok.SignedString(svc.secret)
}
