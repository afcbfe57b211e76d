package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/reelgate/reelgate/internal/models"
)

// Default token lifetimes used when configuration does not override them.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
	// VerificationTokenTTL bounds email verification tokens.
	VerificationTokenTTL = 24 * time.Hour
	// ResetTokenTTL bounds password reset tokens.
	ResetTokenTTL = time.Hour
)

// ActionPurpose namespaces single-use tokens so a verification token can
// never be replayed as a reset token.
type ActionPurpose string

const (
	PurposeVerifyEmail   ActionPurpose = "verify_email"
	PurposePasswordReset ActionPurpose = "password_reset"
)

// TokenConfig bundles the configuration required to build a TokenService.
// Access, refresh, and single-use tokens each sign with their own secret so
// one compromise does not imply the others.
type TokenConfig struct {
	AccessSecret    string
	RefreshSecret   string
	ActionSecret    string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Clock           func() time.Time
}

// SessionClaims represents the custom claims embedded in session JWTs.
type SessionClaims struct {
	UserID string      `json:"uid"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// ActionClaims represents the claims carried by single-use tokens.
type ActionClaims struct {
	Email   string        `json:"email"`
	Purpose ActionPurpose `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenPair represents an access token and refresh token pair. It is
// ephemeral and never persisted.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenService issues and validates the JWTs used across the auth flows.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	actionSecret  []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenService constructs a TokenService instance when provided with the required configuration.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" || cfg.ActionSecret == "" {
		return nil, errors.New("tokens: access, refresh and action secrets must be provided")
	}
	if cfg.AccessSecret == cfg.RefreshSecret || cfg.AccessSecret == cfg.ActionSecret || cfg.RefreshSecret == cfg.ActionSecret {
		return nil, errors.New("tokens: signing secrets must be distinct")
	}

	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		actionSecret:  []byte(cfg.ActionSecret),
		issuer:        cfg.Issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           now,
	}, nil
}

// IssuePair signs a fresh access/refresh token pair carrying the subject and role.
func (s *TokenService) IssuePair(userID string, role models.Role) (TokenPair, error) {
	if userID == "" {
		return TokenPair{}, errors.New("tokens: user id is required")
	}

	access, err := s.signSession(userID, role, s.accessSecret, s.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("tokens: sign access token: %w", err)
	}

	refresh, err := s.signSession(userID, role, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("tokens: sign refresh token: %w", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// DecodeAccess parses and validates an access token.
func (s *TokenService) DecodeAccess(token string) (*SessionClaims, error) {
	return s.decodeSession(token, s.accessSecret)
}

// DecodeRefresh parses and validates a refresh token.
func (s *TokenService) DecodeRefresh(token string) (*SessionClaims, error) {
	return s.decodeSession(token, s.refreshSecret)
}

// IssueActionToken signs a single-use token bound to an email and purpose.
// Validity additionally depends on the value stored on the user record; the
// signed token alone is necessary but not sufficient.
func (s *TokenService) IssueActionToken(email string, purpose ActionPurpose, ttl time.Duration) (string, error) {
	if email == "" {
		return "", errors.New("tokens: email is required")
	}
	if ttl <= 0 {
		return "", errors.New("tokens: ttl must be positive")
	}

	now := s.now()
	claims := &ActionClaims{
		Email:   email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.actionSecret)
	if err != nil {
		return "", fmt.Errorf("tokens: sign action token: %w", err)
	}
	return signed, nil
}

// VerifyActionToken validates a single-use token and checks its purpose.
func (s *TokenService) VerifyActionToken(token string, purpose ActionPurpose) (*ActionClaims, error) {
	if token == "" {
		return nil, errors.New("tokens: token string is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims ActionClaims
	_, err := parser.ParseWithClaims(token, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.actionSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("tokens: parse action token: %w", err)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, errors.New("tokens: invalid issuer")
	}
	if claims.Purpose != purpose {
		return nil, errors.New("tokens: unexpected token purpose")
	}
	if claims.Email == "" {
		return nil, errors.New("tokens: missing email claim")
	}

	return &claims, nil
}

func (s *TokenService) signSession(userID string, role models.Role, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()

	claims := &SessionClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (s *TokenService) decodeSession(token string, secret []byte) (*SessionClaims, error) {
	if token == "" {
		return nil, errors.New("tokens: token string is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims SessionClaims
	_, err := parser.ParseWithClaims(token, &claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("tokens: parse token: %w", err)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, errors.New("tokens: invalid issuer")
	}
	if claims.UserID == "" {
		return nil, errors.New("tokens: missing user id claim")
	}

	return &claims, nil
}
