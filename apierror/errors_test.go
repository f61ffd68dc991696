package apierror_test

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/pocketledger/pocketledger-go/apierror"
)

func TestFromResponse_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   apierror.Kind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"invalid credentials"}`, apierror.KindInvalidCredentials},
		{"conflict", http.StatusConflict, `{"message":"email already registered"}`, apierror.KindConflict},
		{"bad request", http.StatusBadRequest, `{"errors":{"email":["must be valid"]}}`, apierror.KindValidationFailed},
		{"server error", http.StatusInternalServerError, `{"message":"boom"}`, apierror.KindServerError},
		{"bad gateway", http.StatusBadGateway, ``, apierror.KindServerError},
		{"forbidden", http.StatusForbidden, `{"message":"not yours"}`, apierror.KindRequestFailed},
		{"not found", http.StatusNotFound, `{"message":"no such goal"}`, apierror.KindRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := apierror.FromResponse(tt.status, []byte(tt.body))
			require.Equal(t, tt.kind, apiErr.Kind)
			require.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestFromResponse_ServerMessage(t *testing.T) {
	t.Run("message field", func(t *testing.T) {
		apiErr := apierror.FromResponse(http.StatusConflict, []byte(`{"message":"email already registered"}`))
		require.Equal(t, "email already registered", apiErr.Error())
	})

	t.Run("error field fallback", func(t *testing.T) {
		apiErr := apierror.FromResponse(http.StatusUnauthorized, []byte(`{"error":"invalid credentials"}`))
		require.Equal(t, "invalid credentials", apiErr.Error())
	})

	t.Run("generic fallback when absent", func(t *testing.T) {
		apiErr := apierror.FromResponse(http.StatusInternalServerError, []byte(`{}`))
		require.Contains(t, apiErr.Error(), "something went wrong")
	})
}

func TestFromResponse_FieldErrorsJoined(t *testing.T) {
	body := `{"message":"validation failed","errors":{"email":["must be valid"],"password":["too short","needs a digit"]}}`
	apiErr := apierror.FromResponse(http.StatusBadRequest, []byte(body))

	require.Equal(t, apierror.KindValidationFailed, apiErr.Kind)
	require.Equal(t, "must be valid", apiErr.Fields["email"])
	require.Equal(t, "too short, needs a digit", apiErr.Fields["password"])
	require.Contains(t, apiErr.Error(), "email: must be valid")
	require.Contains(t, apiErr.Error(), "password: too short, needs a digit")
}

func TestFromResponse_UnparseableBodyIsServerError(t *testing.T) {
	apiErr := apierror.FromResponse(http.StatusBadRequest, []byte(`<html>oops</html>`))
	require.Equal(t, apierror.KindServerError, apiErr.Kind)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestNetwork(t *testing.T) {
	cause := errors.New("connection refused")
	apiErr := apierror.Network(cause)

	require.Equal(t, apierror.KindNetworkError, apiErr.Kind)
	require.Zero(t, apiErr.StatusCode)
	require.ErrorIs(t, apiErr, cause)
}

func TestKindOf(t *testing.T) {
	t.Run("direct", func(t *testing.T) {
		kind, ok := apierror.KindOf(apierror.SessionExpired())
		require.True(t, ok)
		require.Equal(t, apierror.KindSessionExpired, kind)
	})

	t.Run("wrapped", func(t *testing.T) {
		err := errors.Wrap(apierror.FromResponse(http.StatusConflict, nil), "[Register]")
		require.True(t, apierror.IsKind(err, apierror.KindConflict))
	})

	t.Run("unrelated error", func(t *testing.T) {
		_, ok := apierror.KindOf(errors.New("plain"))
		require.False(t, ok)
	})
}
