package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenTTL   = 24 * time.Hour
	BcryptCost = 10
	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72
)

var (
	ErrNoToken            = errors.New("no token provided")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordTooLong    = errors.New("password too long")
)

// Identity is what a verified token says about the caller.
type Identity struct {
	ID   string
	Name string
}

type Claims struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

type Token struct {
	Value     string
	ID        string
	Name      string
	ExpiresAt time.Time
}

type Service struct {
	secret []byte
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewService signs tokens with secret. now defaults to time.Now.
func NewService(secret string, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{secret: []byte(secret), now: now}
}

func (s *Service) HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword returns ErrInvalidCredentials unless password matches hash.
// An empty hash still costs one bcrypt comparison so unknown accounts take
// as long as wrong passwords.
func (s *Service) CheckPassword(hash, password string) error {
	h := []byte(hash)
	if hash == "" {
		h = s.dummy()
	}
	if err := bcrypt.CompareHashAndPassword(h, []byte(password)); err != nil || hash == "" {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("inkpost-placeholder"), BcryptCost)
	})
	return s.dummyHash
}

func (s *Service) IssueToken(id Identity) (Token, error) {
	issued := s.now()
	expires := issued.Add(TokenTTL)
	claims := Claims{
		ID:   id.ID,
		Name: id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, ID: id.ID, Name: id.Name, ExpiresAt: expires}, nil
}

// Authenticate verifies signature, algorithm and expiry.
func (s *Service) Authenticate(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrNoToken
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{ID: claims.ID, Name: claims.Name}, nil
}

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrNoToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
