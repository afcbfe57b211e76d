package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/reelgate/reelgate/internal/auth"
	"github.com/reelgate/reelgate/internal/middleware"
	"github.com/reelgate/reelgate/internal/store"
	apperrors "github.com/reelgate/reelgate/pkg/errors"
	"github.com/reelgate/reelgate/pkg/metrics"
	"github.com/reelgate/reelgate/pkg/response"
)

// AuthHandler exposes the signup, login, refresh, verification and recovery flows.
type AuthHandler struct {
	auth  *iauth.Service
	users store.UserStore
}

func NewAuthHandler(auth *iauth.Service, users store.UserStore) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

type signUpRequest struct {
	Email       string         `json:"email" validate:"required,email"`
	Password    string         `json:"password" validate:"required,min=8,max=72"`
	DisplayName string         `json:"display_name" validate:"max=120"`
	Company     string         `json:"company" validate:"max=120"`
	Country     string         `json:"country" validate:"max=64"`
	Consent     map[string]any `json:"consent,omitempty"`
}

// POST /api/auth/signup
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.auth.SignUp(c.Request.Context(), iauth.SignUpInput{
		Email:        req.Email,
		Password:     req.Password,
		DisplayName:  req.DisplayName,
		Company:      req.Company,
		Country:      req.Country,
		ConsentFlags: req.Consent,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrEmailTaken) {
			metrics.Signups.WithLabelValues("conflict").Inc()
		} else {
			metrics.Signups.WithLabelValues("error").Inc()
		}
		response.Error(c, err)
		return
	}

	metrics.Signups.WithLabelValues("success").Inc()
	response.Success(c, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Device   string `json:"device" validate:"max=120"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, clientContext(c, req.Device))
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("credentials", "failure").Inc()
		response.Error(c, err)
		return
	}

	if result.NeedsVerification {
		metrics.LoginAttempts.WithLabelValues("credentials", "needs_verification").Inc()
		response.Success(c, http.StatusOK, gin.H{
			"needs_verification": true,
			"email":              result.Email,
		})
		return
	}

	metrics.LoginAttempts.WithLabelValues("credentials", "success").Inc()
	response.Success(c, http.StatusOK, result)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.auth.RefreshTokens(c.Request.Context(), req.RefreshToken)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("denied").Inc()
		response.Error(c, err)
		return
	}

	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	response.Success(c, http.StatusOK, result)
}

type googleLoginRequest struct {
	IDToken string `json:"id_token" validate:"required_without=Code"`
	Code    string `json:"code" validate:"required_without=IDToken"`
	Device  string `json:"device" validate:"max=120"`
}

// POST /api/auth/google
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req googleLoginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	var (
		result *iauth.LoginResult
		err    error
	)
	if req.Code != "" {
		result, err = h.auth.GoogleCodeLogin(c.Request.Context(), req.Code, clientContext(c, req.Device))
	} else {
		result, err = h.auth.GoogleLogin(c.Request.Context(), req.IDToken, clientContext(c, req.Device))
	}
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("google", "failure").Inc()
		response.Error(c, err)
		return
	}

	metrics.LoginAttempts.WithLabelValues("google", "success").Inc()
	response.Success(c, http.StatusOK, result)
}

type verifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// POST /api/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.auth.VerifyEmail(c.Request.Context(), req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

type resendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// POST /api/auth/resend-verification
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req resendVerificationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.ResendVerificationEmail(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sent": true})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sent": true})
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}

	metrics.PasswordResets.Inc()
	response.Success(c, http.StatusOK, gin.H{"reset": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	v, ok := c.Get(middleware.CtxUserIDKey)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}
	userID, _ := v.(string)

	user, err := h.users.FindByID(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, user.Sanitized())
}

func clientContext(c *gin.Context, device string) iauth.ClientContext {
	return iauth.ClientContext{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Device:    device,
	}
}
