package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/reelgate/reelgate/internal/auth"
	"github.com/reelgate/reelgate/internal/models"
)

func newAuthTestRouter(t *testing.T) (*gin.Engine, *iauth.TokenService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := iauth.NewTokenService(iauth.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		ActionSecret:  "action-secret",
		Issuer:        "reelgate",
	})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/protected", Auth(tokens), func(c *gin.Context) {
		userID, _ := c.Get(CtxUserIDKey)
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	r.GET("/admin", Auth(tokens), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r, tokens
}

func doRequest(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	r, _ := newAuthTestRouter(t)

	w := doRequest(r, "/protected", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsMalformedHeader(t *testing.T) {
	r, _ := newAuthTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	r, _ := newAuthTestRouter(t)

	w := doRequest(r, "/protected", "not-a-jwt")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestAuthRejectsRefreshToken(t *testing.T) {
	r, tokens := newAuthTestRouter(t)

	pair, err := tokens.IssuePair("user-1", models.RoleUser)
	require.NoError(t, err)

	w := doRequest(r, "/protected", pair.RefreshToken)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthAcceptsValidAccessToken(t *testing.T) {
	r, tokens := newAuthTestRouter(t)

	pair, err := tokens.IssuePair("user-1", models.RoleUser)
	require.NoError(t, err)

	w := doRequest(r, "/protected", pair.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "user-1")
}

func TestRequireAdminRejectsRegularUser(t *testing.T) {
	r, tokens := newAuthTestRouter(t)

	pair, err := tokens.IssuePair("user-1", models.RoleUser)
	require.NoError(t, err)

	w := doRequest(r, "/admin", pair.AccessToken)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	r, tokens := newAuthTestRouter(t)

	pair, err := tokens.IssuePair("admin-1", models.RoleAdmin)
	require.NoError(t, err)

	w := doRequest(r, "/admin", pair.AccessToken)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuthTokenExpiry(t *testing.T) {
	gin.SetMode(gin.TestMode)

	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tokens, err := iauth.NewTokenService(iauth.TokenConfig{
		AccessSecret:   "access-secret",
		RefreshSecret:  "refresh-secret",
		ActionSecret:   "action-secret",
		AccessTokenTTL: time.Minute,
		Clock:          func() time.Time { return current },
	})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/protected", Auth(tokens), func(c *gin.Context) { c.Status(http.StatusOK) })

	pair, err := tokens.IssuePair("user-1", models.RoleUser)
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)

	w := doRequest(r, "/protected", pair.AccessToken)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
