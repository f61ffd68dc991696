// Package gateway wraps every authenticated API call: it attaches the bearer
// token from the credential store, detects expiry through 401 responses,
// coordinates a single shared token renewal across concurrent callers,
// replays the failed request exactly once, and clears the stored credentials
// when the session cannot be recovered.
package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/pocketledger/pocketledger-go/apierror"
	"github.com/pocketledger/pocketledger-go/authapi"
	"github.com/pocketledger/pocketledger-go/credentials"
)

// TokenRenewer exchanges a refresh token for a new token pair. Implemented
// by authapi.Client.
type TokenRenewer interface {
	Renew(ctx context.Context, refreshToken string) (authapi.TokenPair, error)
}

// Client is the authenticated request gateway. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      credentials.Store
	renewer    TokenRenewer
	renewals   renewalCoordinator
	onExpired  func()
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

// WithSessionExpiredHook registers fn to run once per terminal renewal
// failure, after the credential store has been cleared. In-flight requests
// that did not hit a 401 are left to run to completion.
func WithSessionExpiredHook(fn func()) Option {
	return func(c *Client) {
		c.onExpired = fn
	}
}

// NewClient creates a gateway for the API rooted at baseURL. The store
// provides the tokens; the renewer is called for the 401 recovery path.
func NewClient(baseURL string, store credentials.Store, renewer TokenRenewer, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[NewClient] baseURL is required")
	}
	if store == nil {
		return nil, errors.New("[NewClient] store is required")
	}
	if renewer == nil {
		return nil, errors.New("[NewClient] renewer is required")
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		store:      store,
		renewer:    renewer,
		logger:     zerolog.Nop(),
	}

	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

// Do executes req with the current access token. A 401 triggers one shared
// renewal followed by a single replay; every other status is returned as-is.
// Transport failures are never retried and surface as NetworkError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	token, _, err := c.store.Get(credentials.KeyAccessToken)
	if err != nil {
		return nil, errors.Wrap(err, "[Do] read access token")
	}

	resp, err := c.send(ctx, req, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	c.logger.Debug().Str("method", req.Method).Str("path", req.Path).Msg("unauthorized, joining token renewal")

	pair, renewErr := c.renewals.await(ctx, c.renewOnce)
	if renewErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && renewErr == ctxErr {
			return nil, apierror.Network(renewErr)
		}
		// Terminal renewal failure: the credentials are already cleared and
		// every waiter receives its original 401 unchanged.
		return resp, nil
	}

	replay, err := c.send(ctx, req, pair.AccessToken)
	if err != nil {
		return nil, err
	}

	// A second 401 after replay is returned as-is; renewal never recurses.
	return replay, nil
}

// renewOnce is the body of the shared renewal flight. It runs at most once
// per observed expiry, regardless of how many requests hit a 401 together.
func (c *Client) renewOnce(ctx context.Context) (authapi.TokenPair, error) {
	refreshToken, ok, err := c.store.Get(credentials.KeyRefreshToken)
	if err == nil && (!ok || refreshToken == "") {
		err = errors.New("no refresh token stored")
	}

	var pair authapi.TokenPair
	if err == nil {
		pair, err = c.renewer.Renew(ctx, refreshToken)
	}

	if err != nil {
		c.logger.Warn().Err(err).Msg("token renewal failed, clearing session")
		if clearErr := c.store.ClearAll(); clearErr != nil {
			c.logger.Error().Err(clearErr).Msg("failed to clear credentials after renewal failure")
		}
		if c.onExpired != nil {
			c.onExpired()
		}
		return authapi.TokenPair{}, errors.Wrap(err, "[renewOnce]")
	}

	if err := c.persistPair(pair); err != nil {
		c.logger.Error().Err(err).Msg("failed to persist renewed tokens, clearing session")
		if clearErr := c.store.ClearAll(); clearErr != nil {
			c.logger.Error().Err(clearErr).Msg("failed to clear credentials after partial write")
		}
		if c.onExpired != nil {
			c.onExpired()
		}
		return authapi.TokenPair{}, errors.Wrap(err, "[renewOnce]")
	}

	c.logger.Debug().Msg("token renewal succeeded")
	return pair, nil
}

// persistPair writes the renewed pair. A failure on either key must not leave
// a mixed pair in the store, so the caller clears everything.
func (c *Client) persistPair(pair authapi.TokenPair) error {
	if err := c.store.Set(credentials.KeyAccessToken, pair.AccessToken); err != nil {
		return errors.Wrap(err, "persist access token")
	}
	if err := c.store.Set(credentials.KeyRefreshToken, pair.RefreshToken); err != nil {
		return errors.Wrap(err, "persist refresh token")
	}
	return nil
}

func (c *Client) send(ctx context.Context, req *Request, token string) (*Response, error) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, errors.Wrap(err, "[send] build request")
	}

	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.New().String())
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apierror.Network(err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, apierror.Network(err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
	}, nil
}
