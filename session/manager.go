// Package session owns the human-facing authentication flows and the
// "is the user logged in" decision. Tokens and the cached profile live in a
// credentials.Store; the access and refresh tokens are persisted and cleared
// together, never one without the other.
package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/pocketledger/pocketledger-go/apierror"
	"github.com/pocketledger/pocketledger-go/authapi"
	"github.com/pocketledger/pocketledger-go/credentials"
	"github.com/pocketledger/pocketledger-go/validation"
)

// Manager orchestrates login, registration, logout, and the password reset
// flow. Safe for concurrent use.
type Manager struct {
	store     credentials.Store
	api       *authapi.Client
	validator *validation.Validator
	logger    zerolog.Logger

	mu        sync.Mutex
	onExpired []func(error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session Manager backed by store and api.
func NewManager(store credentials.Store, api *authapi.Client, options ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[NewManager] store is required")
	}
	if api == nil {
		return nil, errors.New("[NewManager] api client is required")
	}

	v, err := validation.New()
	if err != nil {
		return nil, errors.Wrap(err, "[NewManager] validator")
	}

	manager := &Manager{
		store:     store,
		api:       api,
		validator: v,
		logger:    zerolog.Nop(),
	}

	for _, opt := range options {
		opt(manager)
	}

	return manager, nil
}

// Login authenticates with email and password, persists the resulting token
// pair and profile, and returns the normalized profile.
func (m *Manager) Login(ctx context.Context, email, password string) (*authapi.UserProfile, error) {
	if err := m.validator.Check(validation.LoginInput{Email: email, Password: password}); err != nil {
		return nil, err
	}

	result, err := m.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err := m.persist(result); err != nil {
		return nil, errors.Wrap(err, "[Login]")
	}

	m.logger.Info().Str("email", email).Msg("logged in")
	return &result.User, nil
}

// Register creates an account and persists the initial session, same
// contract as Login.
func (m *Manager) Register(ctx context.Context, params authapi.RegisterParams) (*authapi.UserProfile, error) {
	input := validation.RegisterInput{
		FullName:     params.FullName,
		Email:        params.Email,
		MobileNumber: params.MobileNumber,
		DateOfBirth:  params.DateOfBirth,
		Password:     params.Password,
	}
	if err := m.validator.Check(input); err != nil {
		return nil, err
	}

	result, err := m.api.Register(ctx, params)
	if err != nil {
		return nil, err
	}

	if err := m.persist(result); err != nil {
		return nil, errors.Wrap(err, "[Register]")
	}

	m.logger.Info().Str("email", params.Email).Msg("registered")
	return &result.User, nil
}

// Logout clears the stored credentials. It is local-only: the refresh token
// is not revoked server-side. Idempotent; logging out while logged out is
// not an error.
func (m *Manager) Logout() error {
	if err := m.store.ClearAll(); err != nil {
		return errors.Wrap(err, "[Logout]")
	}

	m.logger.Info().Msg("logged out")
	return nil
}

// LoggedIn reports whether a non-empty access token is stored.
func (m *Manager) LoggedIn() bool {
	token, ok, err := m.store.Get(credentials.KeyAccessToken)
	return err == nil && ok && token != ""
}

// CurrentUser returns the cached profile from the last successful login or
// register, if any.
func (m *Manager) CurrentUser() (*authapi.UserProfile, bool) {
	data, ok, err := m.store.Get(credentials.KeyUserData)
	if err != nil || !ok {
		return nil, false
	}

	var user authapi.UserProfile
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		m.logger.Warn().Err(err).Msg("stored user profile is corrupt")
		return nil, false
	}

	return &user, true
}

// ForgotPassword requests a reset code for email.
func (m *Manager) ForgotPassword(ctx context.Context, email string) (string, error) {
	return m.api.ForgotPassword(ctx, email)
}

// VerifyResetCode checks a reset code sent to email.
func (m *Manager) VerifyResetCode(ctx context.Context, email, code string) (bool, string, error) {
	return m.api.VerifyResetCode(ctx, email, code)
}

// ResetPassword completes the reset flow.
func (m *Manager) ResetPassword(ctx context.Context, email, code, newPassword string) (string, error) {
	input := validation.ResetPasswordInput{Email: email, Code: code, NewPassword: newPassword}
	if err := m.validator.Check(input); err != nil {
		return "", err
	}

	return m.api.ResetPassword(ctx, email, code, newPassword)
}

// OnSessionExpired registers fn to run when the session is terminally lost.
// Observers receive a session-expired error suitable for display.
func (m *Manager) OnSessionExpired(fn func(error)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onExpired = append(m.onExpired, fn)
}

// NotifySessionExpired is wired to the gateway's session-expired hook. The
// Manager is the one component that turns a cleared credential store into a
// "must re-authenticate" signal for the rest of the app.
func (m *Manager) NotifySessionExpired() {
	err := apierror.SessionExpired()
	m.logger.Warn().Err(err).Msg("session expired")

	m.mu.Lock()
	observers := make([]func(error), len(m.onExpired))
	copy(observers, m.onExpired)
	m.mu.Unlock()

	for _, fn := range observers {
		fn(err)
	}
}

// persist writes both tokens and the profile together. A failure on any key
// clears the store so no mixed pair is ever observable afterwards.
func (m *Manager) persist(result *authapi.AuthResult) error {
	if err := m.write(result); err != nil {
		if clearErr := m.store.ClearAll(); clearErr != nil {
			m.logger.Error().Err(clearErr).Msg("failed to clear credentials after partial write")
		}
		return err
	}
	return nil
}

func (m *Manager) write(result *authapi.AuthResult) error {
	if err := m.store.Set(credentials.KeyAccessToken, result.Tokens.AccessToken); err != nil {
		return errors.Wrap(err, "persist access token")
	}
	if err := m.store.Set(credentials.KeyRefreshToken, result.Tokens.RefreshToken); err != nil {
		return errors.Wrap(err, "persist refresh token")
	}

	userData, err := json.Marshal(result.User)
	if err != nil {
		return errors.Wrap(err, "marshal user profile")
	}
	if err := m.store.Set(credentials.KeyUserData, string(userData)); err != nil {
		return errors.Wrap(err, "persist user profile")
	}

	return nil
}
