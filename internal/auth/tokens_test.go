package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/reelgate/reelgate/internal/models"
)

func newTestTokenService(t *testing.T, clock func() time.Time) *TokenService {
	t.Helper()

	svc, err := NewTokenService(TokenConfig{
		AccessSecret:    "access-secret",
		RefreshSecret:   "refresh-secret",
		ActionSecret:    "action-secret",
		Issuer:          "reelgate",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 30 * 24 * time.Hour,
		Clock:           clock,
	})
	require.NoError(t, err)
	return svc
}

func TestNewTokenServiceRequiresSecrets(t *testing.T) {
	_, err := NewTokenService(TokenConfig{AccessSecret: "a", RefreshSecret: "b"})
	require.Error(t, err)
	require.EqualError(t, err, "tokens: access, refresh and action secrets must be provided")
}

func TestNewTokenServiceRejectsSharedSecrets(t *testing.T) {
	_, err := NewTokenService(TokenConfig{
		AccessSecret:  "same",
		RefreshSecret: "same",
		ActionSecret:  "other",
	})
	require.Error(t, err)
	require.EqualError(t, err, "tokens: signing secrets must be distinct")
}

func TestIssuePairRoundTrip(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, func() time.Time { return current })

	pair, err := svc.IssuePair("user-123", models.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	access, err := svc.DecodeAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-123", access.UserID)
	require.Equal(t, models.RoleAdmin, access.Role)
	require.Equal(t, "reelgate", access.Issuer)
	require.True(t, access.IssuedAt.Time.Equal(current))
	require.True(t, access.ExpiresAt.Time.Equal(current.Add(15*time.Minute)))

	refresh, err := svc.DecodeRefresh(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, "user-123", refresh.UserID)
	require.True(t, refresh.ExpiresAt.Time.Equal(current.Add(30*24*time.Hour)))
}

func TestAccessAndRefreshSecretsAreIsolated(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, func() time.Time { return current })

	pair, err := svc.IssuePair("user-123", models.RoleUser)
	require.NoError(t, err)

	// A refresh token must never pass access validation and vice versa.
	_, err = svc.DecodeAccess(pair.RefreshToken)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenSignatureInvalid))

	_, err = svc.DecodeRefresh(pair.AccessToken)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenSignatureInvalid))
}

func TestDecodeAccessExpired(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, func() time.Time { return current })

	pair, err := svc.IssuePair("user-123", models.RoleUser)
	require.NoError(t, err)

	current = current.Add(16 * time.Minute)

	_, err = svc.DecodeAccess(pair.AccessToken)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestActionTokenRoundTrip(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, func() time.Time { return current })

	token, err := svc.IssueActionToken("user@example.com", PurposeVerifyEmail, VerificationTokenTTL)
	require.NoError(t, err)

	claims, err := svc.VerifyActionToken(token, PurposeVerifyEmail)
	require.NoError(t, err)
	require.Equal(t, "user@example.com", claims.Email)
	require.Equal(t, PurposeVerifyEmail, claims.Purpose)
	require.True(t, claims.ExpiresAt.Time.Equal(current.Add(VerificationTokenTTL)))
}

func TestVerifyActionTokenRejectsWrongPurpose(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, func() time.Time { return current })

	token, err := svc.IssueActionToken("user@example.com", PurposeVerifyEmail, VerificationTokenTTL)
	require.NoError(t, err)

	_, err = svc.VerifyActionToken(token, PurposePasswordReset)
	require.Error(t, err)
	require.EqualError(t, err, "tokens: unexpected token purpose")
}

func TestVerifyActionTokenExpired(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, func() time.Time { return current })

	token, err := svc.IssueActionToken("user@example.com", PurposePasswordReset, ResetTokenTTL)
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)

	_, err = svc.VerifyActionToken(token, PurposePasswordReset)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestActionTokenNotValidForSessions(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, func() time.Time { return current })

	token, err := svc.IssueActionToken("user@example.com", PurposeVerifyEmail, VerificationTokenTTL)
	require.NoError(t, err)

	_, err = svc.DecodeAccess(token)
	require.Error(t, err)
}
