// Package service implements the application's business operations on top of the repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"campusnet/internal/models"
	"campusnet/internal/observability"
	"campusnet/internal/repository"
	"campusnet/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer   = "campusnet-api"
	tokenAudience = "campusnet-client"
)

// AuthConfig configures session tokens and password hashing.
type AuthConfig struct {
	Secret     string
	TTL        time.Duration
	BcryptCost int
}

// Session is a signed credential and the moment it stops being accepted.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Username string
	Kind     models.UserKind
	ClubName string
}

type AuthService struct {
	userRepo repository.UserRepository
	cfg      AuthConfig
}

func NewAuthService(userRepo repository.UserRepository, cfg AuthConfig) *AuthService {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{userRepo: userRepo, cfg: cfg}
}

// TTL reports how long issued sessions stay valid.
func (s *AuthService) TTL() time.Duration {
	return s.cfg.TTL
}

// Register stores a new account. It does not open a session.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	in.ClubName = strings.TrimSpace(in.ClubName)
	if in.Kind == "" {
		in.Kind = models.UserKindUser
	}

	if in.Email == "" || in.Password == "" || in.Name == "" || in.Username == "" {
		return nil, models.NewValidationError("All fields are required")
	}
	if !in.Kind.Valid() {
		return nil, models.NewValidationError("user_type must be one of: user, club")
	}
	if in.Kind == models.UserKindClub && in.ClubName == "" {
		return nil, models.NewValidationError("Club name is required for club accounts")
	}
	if in.Kind == models.UserKindUser {
		in.ClubName = ""
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	exists, err := s.userRepo.ExistsByEmailOrUsername(ctx, in.Email, in.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewConflictError("User already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Email:    in.Email,
		Username: in.Username,
		Name:     in.Name,
		Password: string(hash),
		Kind:     in.Kind,
		ClubName: in.ClubName,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		observability.RecordAuthEvent("register", false)
		return nil, err
	}
	observability.RecordAuthEvent("register", true)

	user.Password = ""
	return user, nil
}

// Login verifies credentials and issues a session for the account.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, nil, models.NewValidationError("Email and password are required")
	}

	user, err := s.userRepo.GetByEmailWithPassword(ctx, email)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			observability.RecordAuthEvent("login", false)
			return nil, nil, models.NewUnauthorizedError("User does not exist")
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		observability.RecordAuthEvent("login", false)
		return nil, nil, models.NewUnauthorizedError("Invalid credentials")
	}

	session, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, nil, models.NewInternalError(err)
	}
	observability.RecordAuthEvent("login", true)

	// The public projection carries the edge arrays.
	public, err := s.userRepo.GetByID(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return public, session, nil
}

// IssueToken signs a session token bound to userID.
func (s *AuthService) IssueToken(userID string) (*Session, error) {
	if s.cfg.Secret == "" {
		return nil, fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	expiresAt := now.Add(s.cfg.TTL)
	claims := jwt.MapClaims{
		"sub": userID,
		"iss": tokenIssuer,
		"aud": tokenAudience,
		"exp": expiresAt.Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, err
	}
	return &Session{Token: signed, ExpiresAt: expiresAt}, nil
}

// ParseToken validates a session token and returns the user it is bound to.
func (s *AuthService) ParseToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", models.NewUnauthorizedError("Invalid or expired session")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", models.NewUnauthorizedError("Invalid session subject")
	}
	return sub, nil
}
