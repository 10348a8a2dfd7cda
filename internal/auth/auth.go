// server/internal/auth/auth.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"recycle-pickup-api-server/config"
	"recycle-pickup-api-server/internal/lifecycle"
	"recycle-pickup-api-server/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// HashCost is the bcrypt cost used for stored passwords.
var HashCost = 14

// JWTClaims defines the payload for the JWT.
type JWTClaims struct {
	UserID      string `json:"userID"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	CommunityID string `json:"communityID,omitempty"`
	jwt.RegisteredClaims
}

// Actor maps the token identity onto a lifecycle actor.
func (c *JWTClaims) Actor() (lifecycle.Actor, error) {
	return lifecycle.NewActor(c.UserID, c.Role)
}

// Hashing
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenService issues and verifies HS256 access tokens.
type TokenService struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

func NewTokenService(cfg config.JWTConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	exp, err := time.ParseDuration(cfg.Expiration)
	if err != nil {
		return nil, fmt.Errorf("invalid jwt expiration %q: %w", cfg.Expiration, err)
	}
	return &TokenService{secret: []byte(cfg.Secret), expiration: exp, now: time.Now}, nil
}

// JWT Generation
func (s *TokenService) Generate(u models.User) (string, error) {
	now := s.now()
	claims := &JWTClaims{
		UserID:      u.ID,
		Email:       u.Email,
		Role:        u.Role,
		CommunityID: u.CommunityID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *TokenService) Parse(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
