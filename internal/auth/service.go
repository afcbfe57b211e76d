package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/reelgate/reelgate/internal/audit"
	"github.com/reelgate/reelgate/internal/crm"
	"github.com/reelgate/reelgate/internal/models"
	"github.com/reelgate/reelgate/internal/notify"
	"github.com/reelgate/reelgate/internal/store"
	"github.com/reelgate/reelgate/pkg/crypto"
	apperrors "github.com/reelgate/reelgate/pkg/errors"
	"github.com/reelgate/reelgate/pkg/logger"
	"github.com/reelgate/reelgate/pkg/mail"
)

// Audit failure reasons recorded with unsuccessful login attempts.
const (
	ReasonUnknownEmail    = "Unknown email"
	ReasonRestricted      = "Account Restricted"
	ReasonNotVerified     = "Account not verified"
	ReasonInvalidPassword = "Invalid password"
)

// LoginRecorder is the slice of the audit recorder the orchestrator needs.
type LoginRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// ClientContext carries request metadata recorded with login attempts.
type ClientContext struct {
	IPAddress string
	UserAgent string
	Device    string
}

// SignUpInput captures the fields accepted when registering an account.
type SignUpInput struct {
	Email        string
	Password     string
	DisplayName  string
	Company      string
	Country      string
	ConsentFlags map[string]any
	Role         models.Role
}

// LoginResult is returned by the flows that may issue sessions. When
// NeedsVerification is set no tokens were issued and the caller should
// redirect to verification rather than treat the attempt as a hard failure.
type LoginResult struct {
	User              *models.User `json:"user,omitempty"`
	Tokens            TokenPair    `json:"tokens"`
	NeedsVerification bool         `json:"needs_verification,omitempty"`
	Email             string       `json:"email,omitempty"`
}

// Service is the auth orchestrator: it ties the credential store, token
// issuer, audit recorder and notification collaborators into the signup,
// login, refresh, verification and recovery flows. All dependencies are
// injected at construction.
type Service struct {
	users    store.UserStore
	tokens   *TokenService
	recorder LoginRecorder
	emails   notify.EmailSender
	contacts crm.ContactSyncer
	google   IdentityVerifier
	log      *zap.Logger
	now      func() time.Time
}

// ServiceConfig bundles the orchestrator dependencies. Contacts and Google
// are optional; the other collaborators are required.
type ServiceConfig struct {
	Users    store.UserStore
	Tokens   *TokenService
	Recorder LoginRecorder
	Emails   notify.EmailSender
	Contacts crm.ContactSyncer
	Google   IdentityVerifier
	Clock    func() time.Time
}

// NewService constructs the auth orchestrator.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Users == nil {
		return nil, errors.New("auth service: user store is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("auth service: token service is required")
	}
	if cfg.Recorder == nil {
		return nil, errors.New("auth service: login recorder is required")
	}
	if cfg.Emails == nil {
		return nil, errors.New("auth service: email sender is required")
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &Service{
		users:    cfg.Users,
		tokens:   cfg.Tokens,
		recorder: cfg.Recorder,
		emails:   cfg.Emails,
		contacts: cfg.Contacts,
		google:   cfg.Google,
		log:      logger.WithModule("auth"),
		now:      now,
	}, nil
}

// SignUp registers a new account in the unverified state and dispatches the
// verification email. The returned user is sanitized on every path.
func (s *Service) SignUp(ctx context.Context, input SignUpInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.ErrEmailTaken
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth service: hash password: %w", err)
	}

	verification, err := s.tokens.IssueActionToken(email, PurposeVerifyEmail, VerificationTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth service: issue verification token: %w", err)
	}

	role := input.Role
	if role == "" {
		role = models.RoleUser
	}

	user := &models.User{
		Email:             email,
		Password:          hashed,
		Role:              role,
		Status:            models.StatusUnverified,
		VerificationToken: verification,
		Profile: &models.Profile{
			DisplayName: strings.TrimSpace(input.DisplayName),
			Company:     strings.TrimSpace(input.Company),
			Country:     strings.TrimSpace(input.Country),
		},
	}
	if len(input.ConsentFlags) > 0 {
		user.ConsentFlags = datatypes.JSONMap(input.ConsentFlags)
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.emails.SendVerificationEmail(ctx, email, verification); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		return nil, fmt.Errorf("auth service: send verification email: %w", err)
	}

	// Contact sync is best-effort: a broken CRM must not fail account creation.
	if s.contacts != nil {
		if err := s.contacts.CreateContact(ctx, crm.Contact{
			Email:       email,
			DisplayName: strings.TrimSpace(input.DisplayName),
			Source:      "signup",
		}); err != nil {
			s.log.Warn("crm contact sync failed", zap.String("email", email), zap.Error(err))
		}
	}

	return user.Sanitized(), nil
}

// Login authenticates credentials and issues a token pair. Every branch
// funnels through the audit recorder exactly once.
func (s *Service) Login(ctx context.Context, email, password string, client ClientContext) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		s.recordAttempt(ctx, nil, email, false, models.MethodCredentials, ReasonUnknownEmail, client)
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	switch user.Status {
	case models.StatusInactive:
		s.recordAttempt(ctx, user, email, false, models.MethodCredentials, ReasonRestricted, client)
		return nil, apperrors.ErrAccountRestricted
	case models.StatusUnverified:
		// Soft response: the caller redirects to verification, not to retry.
		s.recordAttempt(ctx, user, email, false, models.MethodCredentials, ReasonNotVerified, client)
		return &LoginResult{NeedsVerification: true, Email: user.Email}, nil
	}

	if !crypto.VerifyPassword(user.Password, password) {
		s.recordAttempt(ctx, user, email, false, models.MethodCredentials, ReasonInvalidPassword, client)
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := s.touchLastLogin(ctx, user, client); err != nil {
		return nil, err
	}

	s.recordAttempt(ctx, user, email, true, models.MethodCredentials, "", client)

	pair, err := s.tokens.IssuePair(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("auth service: issue token pair: %w", err)
	}

	return &LoginResult{User: user.Sanitized(), Tokens: pair}, nil
}

// RefreshTokens exchanges a valid refresh token for a brand-new pair. Every
// failure collapses to access denied so callers cannot tell which check
// failed.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.tokens.DecodeRefresh(strings.TrimSpace(refreshToken))
	if err != nil {
		return nil, apperrors.ErrAccessDenied
	}

	// Explicit expiry comparison on top of the signature check.
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(s.now()) {
		return nil, apperrors.ErrAccessDenied
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.ErrAccessDenied
	}
	if user.Status == models.StatusInactive {
		return nil, apperrors.ErrAccessDenied
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("auth service: issue token pair: %w", err)
	}

	return &LoginResult{User: user.Sanitized(), Tokens: pair}, nil
}

// GoogleLogin authenticates a Google ID token. The first federated login
// doubles as implicit signup: unknown emails get an active account with no
// password hash.
func (s *Service) GoogleLogin(ctx context.Context, idToken string, client ClientContext) (*LoginResult, error) {
	if s.google == nil {
		return nil, apperrors.ErrUnauthorized
	}

	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, apperrors.ErrUnauthorized.WithInternal(err)
	}

	return s.googleSession(ctx, identity, client)
}

// GoogleCodeLogin redeems a Google authorization code and signs the resulting
// identity in. The verifier must be configured for code exchange.
func (s *Service) GoogleCodeLogin(ctx context.Context, code string, client ClientContext) (*LoginResult, error) {
	if s.google == nil {
		return nil, apperrors.ErrUnauthorized
	}

	exchanger, ok := s.google.(CodeExchanger)
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}

	identity, err := exchanger.Exchange(ctx, code)
	if err != nil {
		return nil, apperrors.ErrUnauthorized.WithInternal(err)
	}

	return s.googleSession(ctx, identity, client)
}

func (s *Service) googleSession(ctx context.Context, identity *GoogleIdentity, client ClientContext) (*LoginResult, error) {
	// First federated login doubles as signup, so the address must be
	// attested by Google before it can claim an account.
	if !identity.EmailVerified {
		return nil, apperrors.ErrUnauthorized
	}

	user, err := s.users.FindByEmail(ctx, identity.Email)
	if errors.Is(err, apperrors.ErrNotFound) {
		user = &models.User{
			Email:  identity.Email,
			Role:   models.RoleUser,
			Status: models.StatusActive,
			Profile: &models.Profile{
				DisplayName: strings.TrimSpace(identity.Name),
				AvatarURL:   strings.TrimSpace(identity.Picture),
			},
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if user.Status == models.StatusInactive {
		s.recordAttempt(ctx, user, identity.Email, false, models.MethodGoogle, ReasonRestricted, client)
		return nil, apperrors.ErrAccountRestricted
	}

	if err := s.touchLastLogin(ctx, user, client); err != nil {
		return nil, err
	}

	s.recordAttempt(ctx, user, identity.Email, true, models.MethodGoogle, "", client)

	pair, err := s.tokens.IssuePair(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("auth service: issue token pair: %w", err)
	}

	return &LoginResult{User: user.Sanitized(), Tokens: pair}, nil
}

// VerifyEmail consumes a verification token and activates the account. The
// stored token must match the presented one and is cleared on success. Only
// unverified accounts can transition to active; deactivated accounts stay
// deactivated regardless of outstanding tokens.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	token = strings.TrimSpace(token)

	claims, err := s.tokens.VerifyActionToken(token, PurposeVerifyEmail)
	if err != nil {
		return nil, apperrors.ErrInvalidOrExpired
	}

	user, err := s.users.FindByEmail(ctx, claims.Email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if user.VerificationToken == "" || user.VerificationToken != token {
		return nil, apperrors.ErrInvalidOrExpired
	}

	if user.Status != models.StatusUnverified {
		return nil, apperrors.ErrAccountRestricted
	}

	if err := s.users.UpdateFields(ctx, user.ID, map[string]any{
		"status":             models.StatusActive,
		"verification_token": "",
	}); err != nil {
		return nil, err
	}

	user.Status = models.StatusActive
	user.VerificationToken = ""
	return user.Sanitized(), nil
}

// ResendVerificationEmail issues a fresh verification token, overwriting any
// outstanding one.
func (s *Service) ResendVerificationEmail(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	switch user.Status {
	case models.StatusActive:
		return apperrors.ErrAlreadyVerified
	case models.StatusInactive:
		return apperrors.ErrAccountRestricted
	}

	token, err := s.tokens.IssueActionToken(user.Email, PurposeVerifyEmail, VerificationTokenTTL)
	if err != nil {
		return fmt.Errorf("auth service: issue verification token: %w", err)
	}

	if err := s.users.UpdateFields(ctx, user.ID, map[string]any{
		"verification_token": token,
	}); err != nil {
		return err
	}

	if err := s.emails.SendVerificationEmail(ctx, user.Email, token); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		return fmt.Errorf("auth service: send verification email: %w", err)
	}
	return nil
}

// ForgotPassword issues a reset token and persists both the token string and
// an explicit expiry on the user record.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := s.tokens.IssueActionToken(user.Email, PurposePasswordReset, ResetTokenTTL)
	if err != nil {
		return fmt.Errorf("auth service: issue reset token: %w", err)
	}

	expiresAt := s.now().Add(ResetTokenTTL)
	if err := s.users.UpdateFields(ctx, user.ID, map[string]any{
		"reset_token":            token,
		"reset_token_expires_at": expiresAt,
	}); err != nil {
		return err
	}

	if err := s.emails.SendPasswordResetEmail(ctx, user.Email, token); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		return fmt.Errorf("auth service: send reset email: %w", err)
	}
	return nil
}

// ResetPassword changes the password when the presented token verifies
// cryptographically, matches the stored token string, and the stored expiry
// has not passed. The stored token and expiry are cleared on success.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if strings.TrimSpace(newPassword) == "" {
		return apperrors.NewBadRequest("new password is required")
	}

	claims, err := s.tokens.VerifyActionToken(token, PurposePasswordReset)
	if err != nil {
		return apperrors.ErrInvalidOrExpired
	}

	user, err := s.users.FindByEmail(ctx, claims.Email)
	if err != nil {
		return apperrors.ErrInvalidOrExpired
	}

	if user.ResetToken == "" || user.ResetToken != token {
		return apperrors.ErrInvalidOrExpired
	}
	if user.ResetTokenExpiresAt == nil || !user.ResetTokenExpiresAt.After(s.now()) {
		return apperrors.ErrInvalidOrExpired
	}

	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth service: hash password: %w", err)
	}

	return s.users.UpdateFields(ctx, user.ID, map[string]any{
		"password":               hashed,
		"reset_token":            "",
		"reset_token_expires_at": nil,
	})
}

// touchLastLogin updates last_login fields. Last write wins; concurrent
// logins by the same user are independent.
func (s *Service) touchLastLogin(ctx context.Context, user *models.User, client ClientContext) error {
	now := s.now()
	ip := strings.TrimSpace(client.IPAddress)

	if err := s.users.UpdateFields(ctx, user.ID, map[string]any{
		"last_login_at": now,
		"last_login_ip": ip,
	}); err != nil {
		return fmt.Errorf("auth service: update last login: %w", err)
	}

	user.LastLoginAt = &now
	user.LastLoginIP = ip
	return nil
}

// recordAttempt writes the audit entry for a login branch. Recorder failures
// are logged but never surface to the caller.
func (s *Service) recordAttempt(ctx context.Context, user *models.User, email string, successful bool, method models.LoginMethod, reason string, client ClientContext) {
	entry := audit.Entry{
		Email:         email,
		Successful:    successful,
		Method:        method,
		FailureReason: reason,
		IPAddress:     client.IPAddress,
		UserAgent:     client.UserAgent,
		Device:        client.Device,
	}
	if user != nil {
		id := user.ID
		entry.UserID = &id
	}

	if err := s.recorder.Record(ctx, entry); err != nil {
		s.log.Error("failed to record login attempt", zap.String("email", email), zap.Error(err))
	}
}
