package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/petermazzocco/go-catalog-api/internal/store"
	"github.com/petermazzocco/go-catalog-api/models"
)

// TokenTTL is the lifetime of every issued token.
const TokenTTL = time.Hour

const passwordCost = bcrypt.DefaultCost

// MaxPasswordBytes is the longest password bcrypt hashes.
const MaxPasswordBytes = 72

var (
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrPasswordTooLong    = errors.New("password too long")
)

type TokenUser struct {
	ID string `json:"id"`
}

// Claims is the token payload: {"user":{"id":...}} plus iat and exp.
type Claims struct {
	User TokenUser `json:"user"`
	jwt.RegisteredClaims
}

type Service struct {
	users  store.UserStore
	secret []byte
	now    func() time.Time
}

func NewService(users store.UserStore, secret string) *Service {
	return &Service{users: users, secret: []byte(secret), now: time.Now}
}

// Signup creates a user with a hashed password and returns a token for it.
// Emails are compared exactly as given.
func (s *Service) Signup(ctx context.Context, name, email, password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return "", ErrDuplicateUser
	case !errors.Is(err, store.ErrNotFound):
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{Name: name, Email: email, Password: string(hash)}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return "", ErrDuplicateUser
		}
		return "", err
	}
	return s.IssueToken(user.ID)
}

// Login returns ErrInvalidCredentials both for unknown emails and for wrong
// passwords.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.IssueToken(user.ID)
}

func (s *Service) IssueToken(userID string) (string, error) {
	now := s.now()
	claims := Claims{
		User: TokenUser{ID: userID},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the claims.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid || claims.User.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
