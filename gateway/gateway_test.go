package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/pocketledger/pocketledger-go/apierror"
	"github.com/pocketledger/pocketledger-go/authapi"
	"github.com/pocketledger/pocketledger-go/credentials"
	"github.com/pocketledger/pocketledger-go/gateway"
)

const (
	oldAccessToken  = "old-access-token"
	oldRefreshToken = "old-refresh-token"
	newAccessToken  = "new-access-token"
	newRefreshToken = "new-refresh-token"
)

// fakeRenewer is a controllable TokenRenewer that records every call.
type fakeRenewer struct {
	mu      sync.Mutex
	calls   int
	pair    authapi.TokenPair
	err     error
	started chan struct{} // closed on first call, when non-nil
	release chan struct{} // blocks the call until closed, when non-nil
}

func (f *fakeRenewer) Renew(ctx context.Context, refreshToken string) (authapi.TokenPair, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	f.mu.Unlock()

	if first && f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}

	if f.err != nil {
		return authapi.TokenPair{}, f.err
	}
	return f.pair, nil
}

func (f *fakeRenewer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// faultyStore wraps a real store and fails Set for one key, simulating a
// write error while persisting renewed tokens.
type faultyStore struct {
	credentials.Store
	failKey string
}

func (s *faultyStore) Set(key, value string) error {
	if key == s.failKey {
		return errors.New("disk full")
	}
	return s.Store.Set(key, value)
}

func seededStore(t *testing.T) *credentials.MemoryStore {
	t.Helper()

	store := credentials.NewMemoryStore()
	require.NoError(t, store.Set(credentials.KeyAccessToken, oldAccessToken))
	require.NoError(t, store.Set(credentials.KeyRefreshToken, oldRefreshToken))
	return store
}

func newGateway(t *testing.T, baseURL string, store credentials.Store, renewer gateway.TokenRenewer, options ...gateway.Option) *gateway.Client {
	t.Helper()

	client, err := gateway.NewClient(baseURL, store, renewer, options...)
	require.NoError(t, err)
	return client
}

func TestDo_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := newGateway(t, server.URL, seededStore(t), &fakeRenewer{})

	resp, err := client.Do(context.Background(), &gateway.Request{Method: http.MethodGet, Path: "/budget"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Bearer "+oldAccessToken, gotAuth)
}

func TestDo_NoTokenSendsWithoutHeader(t *testing.T) {
	var sawHeader bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawHeader = r.Header.Get("Authorization") != ""
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	store := credentials.NewMemoryStore()
	renewer := &fakeRenewer{}
	client := newGateway(t, server.URL, store, renewer)

	resp, err := client.Do(context.Background(), &gateway.Request{Method: http.MethodGet, Path: "/budget"})
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.False(t, sawHeader)
	// No refresh token stored, so the renewal resolves failed without a
	// network call.
	require.Equal(t, 0, renewer.callCount())
}

func TestDo_Non401Passthrough(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				w.Write([]byte(`{"message":"nope"}`))
			}))
			defer server.Close()

			renewer := &fakeRenewer{}
			client := newGateway(t, server.URL, seededStore(t), renewer)

			resp, err := client.Do(context.Background(), &gateway.Request{Method: http.MethodGet, Path: "/goals"})
			require.NoError(t, err)
			require.Equal(t, status, resp.StatusCode)
			require.JSONEq(t, `{"message":"nope"}`, string(resp.Body))
			require.Equal(t, 0, renewer.callCount())
		})
	}
}

func TestDo_RenewAndReplay(t *testing.T) {
	var replays atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer " + newAccessToken:
			replays.Add(1)
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"name":"Groceries"}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer server.Close()

	store := seededStore(t)
	renewer := &fakeRenewer{pair: authapi.TokenPair{AccessToken: newAccessToken, RefreshToken: newRefreshToken}}
	client := newGateway(t, server.URL, store, renewer)

	resp, err := client.Do(context.Background(), &gateway.Request{Method: http.MethodGet, Path: "/categories/1"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"name":"Groceries"}`, string(resp.Body))
	require.Equal(t, 1, renewer.callCount())
	require.Equal(t, int32(1), replays.Load())

	// The store now holds the renewed pair.
	access, ok, err := store.Get(credentials.KeyAccessToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, newAccessToken, access)

	refresh, ok, err := store.Get(credentials.KeyRefreshToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, newRefreshToken, refresh)
}

func TestDo_ReplayThatFailsAgainIsReturnedAsIs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"still no"}`))
	}))
	defer server.Close()

	renewer := &fakeRenewer{pair: authapi.TokenPair{AccessToken: newAccessToken, RefreshToken: newRefreshToken}}
	client := newGateway(t, server.URL, seededStore(t), renewer)

	resp, err := client.Do(context.Background(), &gateway.Request{Method: http.MethodGet, Path: "/budget"})
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	// Exactly one renewal: a 401 on the replay never recurses.
	require.Equal(t, 1, renewer.callCount())
}

func TestDo_SingleRenewalUnderConcurrentStorm(t *testing.T) {
	const concurrency = 5

	var initial401s atomic.Int32
	var replays atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer " + newAccessToken:
			replays.Add(1)
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`[]`))
		default:
			initial401s.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer server.Close()

	store := seededStore(t)
	renewer := &fakeRenewer{
		pair:    authapi.TokenPair{AccessToken: newAccessToken, RefreshToken: newRefreshToken},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	client := newGateway(t, server.URL, store, renewer)

	var wg sync.WaitGroup
	results := make([]*gateway.Response, concurrency)
	errs := make([]error, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = client.Do(context.Background(), &gateway.Request{Method: http.MethodGet, Path: "/goals"})
		}(i)
	}

	// Hold the renewal open until every request has observed its 401, so
	// all of them are forced to join the same in-flight renewal.
	<-renewer.started
	require.Eventually(t, func() bool {
		return initial401s.Load() == concurrency
	}, 5*time.Second, 5*time.Millisecond)
	close(renewer.release)

	wg.Wait()

	for i := 0; i < concurrency; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, http.StatusOK, results[i].StatusCode)
	}
	require.Equal(t, 1, renewer.callCount())
	require.Equal(t, int32(concurrency), replays.Load())
}

func TestDo_TerminalRenewalFailureClearsStore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"token expired"}`))
	}))
	defer server.Close()

	store := seededStore(t)
	require.NoError(t, store.Set(credentials.KeyUserData, `{"id":"1"}`))

	var expiredCalls atomic.Int32
	renewer := &fakeRenewer{err: apierror.FromResponse(http.StatusUnauthorized, []byte(`{"message":"refresh token expired"}`))}
	client := newGateway(t, server.URL, store, renewer,
		gateway.WithSessionExpiredHook(func() { expiredCalls.Add(1) }))

	resp, err := client.Do(context.Background(), &gateway.Request{Method: http.MethodGet, Path: "/budget"})
	require.NoError(t, err)

	// Callers receive the original 401 unchanged.
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.JSONEq(t, `{"message":"token expired"}`, string(resp.Body))
	require.Equal(t, 1, renewer.callCount())
	require.Equal(t, int32(1), expiredCalls.Load())

	// Every credential is gone, nothing partial left behind.
	for _, key := range []string{credentials.KeyAccessToken, credentials.KeyRefreshToken, credentials.KeyUserData} {
		_, ok, err := store.Get(key)
		require.NoError(t, err)
		require.False(t, ok, "key %s should be cleared", key)
	}
}

func TestDo_RenewedTokenPersistFailureClearsStore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"token expired"}`))
	}))
	defer server.Close()

	// The refresh-token write fails after the new access token was stored.
	inner := seededStore(t)
	store := &faultyStore{Store: inner, failKey: credentials.KeyRefreshToken}

	var expiredCalls atomic.Int32
	renewer := &fakeRenewer{pair: authapi.TokenPair{AccessToken: newAccessToken, RefreshToken: newRefreshToken}}
	client := newGateway(t, server.URL, store, renewer,
		gateway.WithSessionExpiredHook(func() { expiredCalls.Add(1) }))

	resp, err := client.Do(context.Background(), &gateway.Request{Method: http.MethodGet, Path: "/budget"})
	require.NoError(t, err)

	// Callers receive their original 401 and the half-written pair is rolled
	// back instead of pairing the new access token with the old refresh token.
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, 1, renewer.callCount())
	require.Equal(t, int32(1), expiredCalls.Load())

	for _, key := range []string{credentials.KeyAccessToken, credentials.KeyRefreshToken} {
		_, ok, getErr := inner.Get(key)
		require.NoError(t, getErr)
		require.False(t, ok, "key %s should be cleared", key)
	}
}

func TestDo_TerminalFailureSharedAcrossWaiters(t *testing.T) {
	const concurrency = 3

	var initial401s atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		initial401s.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"expired"}`))
	}))
	defer server.Close()

	var expiredCalls atomic.Int32
	renewer := &fakeRenewer{
		err:     apierror.FromResponse(http.StatusUnauthorized, []byte(`{}`)),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	store := seededStore(t)
	client := newGateway(t, server.URL, store, renewer,
		gateway.WithSessionExpiredHook(func() { expiredCalls.Add(1) }))

	var wg sync.WaitGroup
	results := make([]*gateway.Response, concurrency)
	errs := make([]error, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = client.Do(context.Background(), &gateway.Request{Method: http.MethodGet, Path: "/notifications"})
		}(i)
	}

	<-renewer.started
	require.Eventually(t, func() bool {
		return initial401s.Load() == concurrency
	}, 5*time.Second, 5*time.Millisecond)
	close(renewer.release)

	wg.Wait()

	for i := 0; i < concurrency; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, http.StatusUnauthorized, results[i].StatusCode)
	}
	require.Equal(t, 1, renewer.callCount())
	require.Equal(t, int32(1), expiredCalls.Load())
	// Only the failed flight's 401s plus nothing else: no replays happened.
	require.Equal(t, int32(concurrency), initial401s.Load())
}

func TestDo_CancelledWaiterDoesNotCancelRenewal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	store := seededStore(t)
	renewer := &fakeRenewer{
		pair:    authapi.TokenPair{AccessToken: newAccessToken, RefreshToken: newRefreshToken},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	client := newGateway(t, server.URL, store, renewer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.Do(ctx, &gateway.Request{Method: http.MethodGet, Path: "/budget"})
		done <- err
	}()

	<-renewer.started
	cancel()

	err := <-done
	require.Error(t, err)
	require.True(t, apierror.IsKind(err, apierror.KindNetworkError))

	// The shared renewal still completes and persists the new pair.
	close(renewer.release)
	require.Eventually(t, func() bool {
		access, ok, err := store.Get(credentials.KeyAccessToken)
		return err == nil && ok && access == newAccessToken
	}, 5*time.Second, 5*time.Millisecond)
}

func TestDo_RefreshEndpointObservedOnceOnNetwork(t *testing.T) {
	// Wires the real authapi client as the renewer so the single-renewal
	// invariant is checked at the network layer, not just on a fake.
	const concurrency = 3

	var refreshCalls atomic.Int32
	var initial401s atomic.Int32
	var mu sync.Mutex
	var sentRefreshTokens []string
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		<-release

		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		sentRefreshTokens = append(sentRefreshTokens, body["refreshToken"])
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"accessToken":  newAccessToken,
			"refreshToken": newRefreshToken,
		})
	})
	mux.HandleFunc("GET /goals", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.Header.Get("Authorization"), newAccessToken) {
			w.Write([]byte(`[]`))
			return
		}
		initial401s.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	store := seededStore(t)
	authClient, err := authapi.NewClient(server.URL)
	require.NoError(t, err)
	client := newGateway(t, server.URL, store, authClient)

	var wg sync.WaitGroup
	errs := make([]error, concurrency)
	results := make([]*gateway.Response, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = client.Do(context.Background(), &gateway.Request{Method: http.MethodGet, Path: "/goals"})
		}(i)
	}

	require.Eventually(t, func() bool {
		return initial401s.Load() == concurrency && refreshCalls.Load() == 1
	}, 5*time.Second, 5*time.Millisecond)
	close(release)

	wg.Wait()

	for i := 0; i < concurrency; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, http.StatusOK, results[i].StatusCode)
	}
	require.Equal(t, int32(1), refreshCalls.Load())
	require.Equal(t, []string{oldRefreshToken}, sentRefreshTokens)
}

func TestDo_TransportFailureIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := newGateway(t, server.URL, seededStore(t), &fakeRenewer{})

	_, err := client.Do(context.Background(), &gateway.Request{Method: http.MethodGet, Path: "/budget"})
	require.Error(t, err)
	require.True(t, apierror.IsKind(err, apierror.KindNetworkError))
}
