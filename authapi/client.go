// Package authapi is the raw client for the unauthenticated /auth endpoints:
// login, register, token refresh, and the password reset flow. It normalizes
// the backend's two field-naming conventions at this boundary and maps
// failures onto the apierror taxonomy. It holds no session state.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/pocketledger/pocketledger-go/apierror"
)

// Client issues requests to the /auth endpoints. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client for the API rooted at baseURL
// (e.g. "https://api.pocketledger.app/api").
func NewClient(baseURL string, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[NewClient] baseURL is required")
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		logger:     zerolog.Nop(),
	}

	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

// Login exchanges credentials for a token pair and the user's profile.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}

	var wire wireAuthResponse
	if err := c.post(ctx, "/auth/login", body, &wire); err != nil {
		return nil, errors.Wrap(err, "[Login]")
	}

	result := wire.normalize()
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		return nil, errors.New("[Login] server response is missing tokens")
	}

	return &result, nil
}

// Register creates an account and returns the initial session, same contract
// as Login.
func (c *Client) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	body := map[string]string{
		"full_name":     params.FullName,
		"email":         params.Email,
		"mobile_number": params.MobileNumber,
		"date_of_birth": params.DateOfBirth,
		"password":      params.Password,
	}

	var wire wireAuthResponse
	if err := c.post(ctx, "/auth/register", body, &wire); err != nil {
		return nil, errors.Wrap(err, "[Register]")
	}

	result := wire.normalize()
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		return nil, errors.New("[Register] server response is missing tokens")
	}

	return &result, nil
}

// Renew exchanges a refresh token for a new token pair.
func (c *Client) Renew(ctx context.Context, refreshToken string) (TokenPair, error) {
	body := map[string]string{
		"refreshToken": refreshToken,
	}

	var wire wireTokenResponse
	if err := c.post(ctx, "/auth/refresh", body, &wire); err != nil {
		return TokenPair{}, errors.Wrap(err, "[Renew]")
	}

	pair := wire.normalize()
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return TokenPair{}, errors.New("[Renew] server response is missing tokens")
	}

	return pair, nil
}

// ForgotPassword requests a reset code to be sent to email.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	body := map[string]string{
		"email": email,
	}

	var resp struct {
		Message string `json:"message"`
	}
	if err := c.post(ctx, "/auth/forgot-password", body, &resp); err != nil {
		return "", errors.Wrap(err, "[ForgotPassword]")
	}

	return resp.Message, nil
}

// VerifyResetCode checks a reset code before the user picks a new password.
func (c *Client) VerifyResetCode(ctx context.Context, email, code string) (bool, string, error) {
	body := map[string]string{
		"email": email,
		"code":  code,
	}

	var resp struct {
		Message string `json:"message"`
		Valid   bool   `json:"valid"`
	}
	if err := c.post(ctx, "/auth/verify-reset-code", body, &resp); err != nil {
		return false, "", errors.Wrap(err, "[VerifyResetCode]")
	}

	return resp.Valid, resp.Message, nil
}

// ResetPassword completes the reset flow with the verified code.
func (c *Client) ResetPassword(ctx context.Context, email, code, newPassword string) (string, error) {
	body := map[string]string{
		"email":        email,
		"code":         code,
		"new_password": newPassword,
	}

	var resp struct {
		Message string `json:"message"`
		Success bool   `json:"success"`
	}
	if err := c.post(ctx, "/auth/reset-password", body, &resp); err != nil {
		return "", errors.Wrap(err, "[ResetPassword]")
	}

	return resp.Message, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("path", path).Msg("auth request transport failure")
		return apierror.Network(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apierror.Network(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug().Int("status", resp.StatusCode).Str("path", path).Msg("auth request rejected")
		return apierror.FromResponse(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &apierror.Error{
			Kind:       apierror.KindServerError,
			StatusCode: resp.StatusCode,
			Message:    "server returned an unreadable response",
			Body:       respBody,
		}
	}

	return nil
}
