// Package auth validates the bearer tokens issued by the identity provider
// and turns them into the acting user of a request.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appctx "hubchantier/internal/core/context"
)

// clockSkew tolerated on exp, nbf and iat.
const clockSkew = 30 * time.Second

var errNoUser = errors.New("token carries no user id")

// JWTConfig holds the shared HS256 secret and expected issuer.
type JWTConfig struct {
	Secret         string
	Issuer         string // checked when non-empty
	AccessTokenTTL time.Duration
}

func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{Secret: secret, Issuer: "hubchantier", AccessTokenTTL: 15 * time.Minute}
}

// Claims adds the estimator identity to the registered claims. uid wins
// over sub when both are present.
type Claims struct {
	jwt.RegisteredClaims
	UserID string   `json:"uid,omitempty"`
	Email  string   `json:"email,omitempty"`
	Roles  []string `json:"roles,omitempty"`
}

// JWTService signs and checks HS256 tokens.
type JWTService struct {
	cfg    JWTConfig
	key    []byte
	parser *jwt.Parser
}

func NewJWTService(cfg JWTConfig) *JWTService {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &JWTService{cfg: cfg, key: []byte(cfg.Secret), parser: jwt.NewParser(opts...)}
}

// GenerateAccessToken signs a token for userID. quotectl and the tests use
// it; in production the identity provider issues tokens with the same
// secret.
func (s *JWTService) GenerateAccessToken(userID, email string, roles []string) (string, time.Time, error) {
	issued := time.Now()
	expires := issued.Add(s.cfg.AccessTokenTTL)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UserID: userID,
		Email:  email,
		Roles:  roles,
	}).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// ValidateToken checks signature, issuer and expiry and returns the user.
func (s *JWTService) ValidateToken(raw string) (*appctx.UserContext, error) {
	var claims Claims
	if _, err := s.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	}); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	user := &appctx.UserContext{UserID: claims.UserID, Email: claims.Email, Roles: claims.Roles}
	if user.UserID == "" {
		user.UserID = claims.Subject
	}
	if user.UserID == "" {
		return nil, errNoUser
	}
	return user, nil
}
