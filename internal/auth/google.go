package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const googleIssuer = "https://accounts.google.com"

// GoogleIdentity carries the verified claims extracted from a Google ID token.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// IdentityVerifier validates a third-party identity token and returns the
// identity it asserts.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

// CodeExchanger swaps an authorization code for a verified identity. Only
// verifiers configured with a client secret and redirect url support it.
type CodeExchanger interface {
	Exchange(ctx context.Context, code string) (*GoogleIdentity, error)
}

// GoogleVerifierOptions configures the Google ID-token verifier.
type GoogleVerifierOptions struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	HTTPClient   *http.Client
	Timeout      time.Duration
}

// GoogleVerifier verifies Google ID tokens through OIDC discovery.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
	oauth    *oauth2.Config
	timeout  time.Duration
}

// NewGoogleVerifier performs OIDC discovery against Google and returns a
// verifier bound to the supplied client id.
func NewGoogleVerifier(ctx context.Context, opts GoogleVerifierOptions) (*GoogleVerifier, error) {
	if strings.TrimSpace(opts.ClientID) == "" {
		return nil, errors.New("google verifier: client id is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	if opts.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, opts.HTTPClient)
	}

	discoverCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	provider, err := oidc.NewProvider(discoverCtx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("google verifier: discovery failed: %w", err)
	}

	v := &GoogleVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: opts.ClientID}),
		timeout:  timeout,
	}

	if strings.TrimSpace(opts.ClientSecret) != "" && strings.TrimSpace(opts.RedirectURL) != "" {
		v.oauth = &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  opts.RedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		}
	}

	return v, nil
}

// Exchange redeems an authorization code for tokens and verifies the id token
// the exchange returns.
func (g *GoogleVerifier) Exchange(ctx context.Context, code string) (*GoogleIdentity, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("google verifier: authorization code is required")
	}
	if g.oauth == nil {
		return nil, errors.New("google verifier: code exchange is not configured")
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	token, err := g.oauth.Exchange(exchangeCtx, code)
	if err != nil {
		return nil, fmt.Errorf("google verifier: exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("google verifier: id token missing from exchange")
	}

	return g.Verify(ctx, rawIDToken)
}

// Verify validates the ID token signature, audience and expiry, and extracts
// the identity claims.
func (g *GoogleVerifier) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, errors.New("google verifier: id token is required")
	}

	token, err := g.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("google verifier: verify token: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("google verifier: decode claims: %w", err)
	}

	if strings.TrimSpace(claims.Email) == "" {
		return nil, errors.New("google verifier: token carries no email")
	}

	return &GoogleIdentity{
		Subject:       token.Subject,
		Email:         strings.ToLower(strings.TrimSpace(claims.Email)),
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}
