package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/pocketledger/pocketledger-go/credentials"
)

// TokenDetails are claims decoded from the access token for display. The
// token is NOT verified here; nothing may make an authorization decision
// from these fields. Expiry is still enforced by the server through 401s.
type TokenDetails struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token's exp claim is in the past. Advisory
// only, for UI display.
func (d *TokenDetails) Expired() bool {
	return !d.ExpiresAt.IsZero() && d.ExpiresAt.Before(time.Now())
}

// AccessTokenDetails decodes the stored access token's registered claims.
func (m *Manager) AccessTokenDetails() (*TokenDetails, error) {
	token, ok, err := m.store.Get(credentials.KeyAccessToken)
	if err != nil {
		return nil, errors.Wrap(err, "[AccessTokenDetails]")
	}
	if !ok || token == "" {
		return nil, errors.New("[AccessTokenDetails] not logged in")
	}

	return decodeTokenDetails(token)
}

func decodeTokenDetails(tokenString string) (*TokenDetails, error) {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, &claims); err != nil {
		return nil, errors.Wrap(err, "[decodeTokenDetails] parse")
	}

	details := &TokenDetails{Subject: claims.Subject}
	if claims.IssuedAt != nil {
		details.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		details.ExpiresAt = claims.ExpiresAt.Time
	}

	return details, nil
}
