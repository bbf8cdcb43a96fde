package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"herbstore/internal/models"
	"herbstore/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// Identity is the authenticated caller behind a session token.
type Identity struct {
	UserID  string
	Email   string
	IsAdmin bool
}

// sessionClaims is the JWT payload issued at login.
type sessionClaims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	jwt.StandardClaims
}

// AuthService registers accounts and issues and checks session tokens.
type AuthService struct {
	users  repositories.UserRepository
	secret []byte
	ttl    time.Duration
}

// NewAuthService creates a new AuthService. A non-positive ttl means 24h.
func NewAuthService(users repositories.UserRepository, secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Register hashes the user's password and stores the account. The caller
// decides IsAdmin; the public endpoint always leaves it false.
func (s *AuthService) Register(user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if existing, err := s.users.FindByEmail(user.Email); err == nil && existing != nil {
		return fmt.Errorf("%w: %s", ErrEmailTaken, user.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hash)

	err = s.users.Insert(user)
	switch {
	case errors.Is(err, repositories.ErrDuplicateEmail):
		return fmt.Errorf("%w: %s", ErrEmailTaken, user.Email)
	case err != nil:
		return fmt.Errorf("failed to register %s: %w", user.Email, err)
	}
	return nil
}

// EnsureAdmin creates the bootstrap administrator if no user owns email yet.
func (s *AuthService) EnsureAdmin(name, email, password string) error {
	if _, err := s.users.FindByEmail(email); err == nil {
		return nil
	}
	admin := &models.User{Name: name, Email: email, Password: password, IsAdmin: true}
	if err := s.Register(admin); err != nil && !errors.Is(err, ErrEmailTaken) {
		return err
	}
	log.Printf("Created administrator account %s", admin.Email)
	return nil
}

// Login checks the password and returns a signed session token. Unknown
// emails and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(email, password string) (string, error) {
	user, err := s.users.FindByEmail(email)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	claims := sessionClaims{
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.ttl).Unix(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Authenticate turns a session token into the caller's identity.
func (s *AuthService) Authenticate(token string) (*Identity, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" {
		return nil, errors.New("invalid token: missing user_id")
	}
	return &Identity{UserID: claims.UserID, Email: claims.Email, IsAdmin: claims.IsAdmin}, nil
}
