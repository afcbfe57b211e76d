package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/reelgate/reelgate/internal/api"
	"github.com/reelgate/reelgate/internal/app"
	"github.com/reelgate/reelgate/internal/audit"
	iauth "github.com/reelgate/reelgate/internal/auth"
	sharedtestutil "github.com/reelgate/reelgate/internal/database/testutil"
	"github.com/reelgate/reelgate/internal/models"
	"github.com/reelgate/reelgate/internal/store"
	"github.com/reelgate/reelgate/pkg/crypto"
	"github.com/reelgate/reelgate/pkg/response"
)

// CaptureEmails records outbound verification and reset tokens instead of
// delivering them, letting tests replay the emailed links.
type CaptureEmails struct {
	Verifications []string
	Resets        []string
	LastRecipient string
	Err           error
}

func (c *CaptureEmails) SendVerificationEmail(ctx context.Context, email, token string) error {
	if c.Err != nil {
		return c.Err
	}
	c.LastRecipient = email
	c.Verifications = append(c.Verifications, token)
	return nil
}

func (c *CaptureEmails) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	if c.Err != nil {
		return c.Err
	}
	c.LastRecipient = email
	c.Resets = append(c.Resets, token)
	return nil
}

// StubGoogle lets tests choose the identity the verifier reports.
type StubGoogle struct {
	Identity *iauth.GoogleIdentity
	Err      error
}

func (s *StubGoogle) Verify(ctx context.Context, idToken string) (*iauth.GoogleIdentity, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Identity == nil {
		return nil, context.Canceled
	}
	return s.Identity, nil
}

func (s *StubGoogle) Exchange(ctx context.Context, code string) (*iauth.GoogleIdentity, error) {
	return s.Verify(ctx, code)
}

// Env encapsulates a fully-wired API instance backed by an in-memory database
// for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	Tokens *iauth.TokenService
	Users  store.UserStore
	Emails *CaptureEmails
	Google *StubGoogle
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	tokens, err := iauth.NewTokenService(iauth.TokenConfig{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		ActionSecret:  "test-action-secret",
		Issuer:        "test-suite",
	})
	require.NoError(t, err)

	users, err := store.NewGormUserStore(db)
	require.NoError(t, err)

	recorder, err := audit.NewRecorder(db)
	require.NoError(t, err)

	emails := &CaptureEmails{}
	google := &StubGoogle{}

	authSvc, err := iauth.NewService(iauth.ServiceConfig{
		Users:    users,
		Tokens:   tokens,
		Recorder: recorder,
		Emails:   emails,
		Google:   google,
	})
	require.NoError(t, err)

	cfg := &app.Config{
		Monitoring: app.MonitoringConfig{
			Health: app.HealthConfig{Enabled: true},
		},
	}

	router, err := api.NewRouter(api.Deps{
		DB:       db,
		Config:   cfg,
		Auth:     authSvc,
		Tokens:   tokens,
		Users:    users,
		Recorder: recorder,
	})
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		Tokens: tokens,
		Users:  users,
		Emails: emails,
		Google: google,
	}
}

// CreateActiveUser inserts an active user with the given role and password.
func (e *Env) CreateActiveUser(email, password string, role models.Role) *models.User {
	e.T.Helper()

	hashed, err := crypto.HashPassword(password)
	require.NoError(e.T, err)

	user := &models.User{
		Email:    email,
		Password: hashed,
		Role:     role,
		Status:   models.StatusActive,
	}
	require.NoError(e.T, e.DB.Create(user).Error)
	return user
}

// TokenPair mirrors the token payload returned by auth endpoints.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginResult bundles the JSON response from POST /api/auth/login.
type LoginResult struct {
	User              map[string]any `json:"user"`
	Tokens            TokenPair      `json:"tokens"`
	NeedsVerification bool           `json:"needs_verification"`
	Email             string         `json:"email"`
}

// Login authenticates with credentials and returns the issued session.
func (e *Env) Login(email, password string) LoginResult {
	e.T.Helper()

	payload := map[string]string{
		"email":    email,
		"password": password,
	}

	w := e.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	return result
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON
// encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
