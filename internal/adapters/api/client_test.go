package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/essencia-app/essencia-cli/internal/domain"
)

type memStore struct {
	mu sync.Mutex
	m  map[string]string
}

func newMemStore(initial map[string]string) *memStore {
	m := map[string]string{}
	for k, v := range initial {
		m[k] = v
	}
	return &memStore{m: m}
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.m[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("token %q: %w", key, domain.ErrTokenNotFound)
}

func (s *memStore) Put(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *memStore) snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]string{}
	for k, v := range s.m {
		out[k] = v
	}
	return out
}

func newTestClient(t *testing.T, baseURL string, tokens *memStore) *Client {
	t.Helper()

	client, err := NewClient(Config{BaseURL: baseURL, Tokens: tokens, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return client
}

func TestDoAttachesBearerToken(t *testing.T) {
	t.Parallel()

	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer server.Close()

	tokens := newMemStore(map[string]string{domain.StorageKeyAccessToken: "tok-1"})
	client := newTestClient(t, server.URL, tokens)

	var out map[string]any
	require.NoError(t, client.doJSON(context.Background(), http.MethodGet, "/profile/", nil, &out, false))
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestRetriesExactlyOnceAfterRefresh(t *testing.T) {
	t.Parallel()

	var profileCalls, refreshCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh-1", body["refresh"])
		_ = json.NewEncoder(w).Encode(map[string]string{"access": "fresh"})
	})
	mux.HandleFunc("/profile/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&profileCalls, 1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tokens := newMemStore(map[string]string{
		domain.StorageKeyAccessToken:  "stale",
		domain.StorageKeyRefreshToken: "refresh-1",
	})
	client := newTestClient(t, server.URL, tokens)

	var out map[string]any
	require.NoError(t, client.doJSON(context.Background(), http.MethodGet, "/profile/", nil, &out, false))

	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&profileCalls))
	assert.Equal(t, "fresh", tokens.snapshot()[domain.StorageKeyAccessToken])
}

func TestSecondUnauthorizedEndsSessionWithoutThirdAttempt(t *testing.T) {
	t.Parallel()

	var profileCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh/", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access": "fresh"})
	})
	mux.HandleFunc("/profile/", func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&profileCalls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tokens := newMemStore(map[string]string{
		domain.StorageKeyAccessToken:  "stale",
		domain.StorageKeyRefreshToken: "refresh-1",
	})
	client := newTestClient(t, server.URL, tokens)

	ended := false
	client.SetSessionEndHook(func() { ended = true })

	err := client.doJSON(context.Background(), http.MethodGet, "/profile/", nil, nil, false)
	require.ErrorIs(t, err, domain.ErrSessionExpired)

	assert.Equal(t, int32(2), atomic.LoadInt32(&profileCalls))
	assert.True(t, ended)
	assert.Empty(t, tokens.snapshot())
}

func TestRefreshFailureClearsSession(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "refresh token invalid"})
	})
	mux.HandleFunc("/profile/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tokens := newMemStore(map[string]string{
		domain.StorageKeyAccessToken:  "stale",
		domain.StorageKeyRefreshToken: "dead",
	})
	client := newTestClient(t, server.URL, tokens)

	ended := false
	client.SetSessionEndHook(func() { ended = true })

	err := client.doJSON(context.Background(), http.MethodGet, "/profile/", nil, nil, false)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
	assert.True(t, ended)
	assert.Empty(t, tokens.snapshot())
}

func TestConcurrentUnauthorizedRequestsCoalesceIntoOneRefresh(t *testing.T) {
	t.Parallel()

	const workers = 8

	var refreshCalls int32
	arrivals := make(chan struct{}, workers)
	release := make(chan struct{})
	var releaseOnce sync.Once

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh/", func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		// Slow exchange: every 401-holder must still be waiting on it.
		time.Sleep(100 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]string{"access": "fresh"})
	})
	mux.HandleFunc("/profile/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer fresh" {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
			return
		}
		// Hold every stale request until all workers are in flight so the
		// 401s land together and exercise the coalescing path.
		arrivals <- struct{}{}
		if len(arrivals) == workers {
			releaseOnce.Do(func() { close(release) })
		}
		<-release
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tokens := newMemStore(map[string]string{
		domain.StorageKeyAccessToken:  "stale",
		domain.StorageKeyRefreshToken: "refresh-1",
	})
	client := newTestClient(t, server.URL, tokens)

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.doJSON(context.Background(), http.MethodGet, "/profile/", nil, nil, false)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "worker %d", i)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
}

func TestAuthEndpointsDoNotTriggerRefresh(t *testing.T) {
	t.Parallel()

	var refreshCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh/", func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		_ = json.NewEncoder(w).Encode(map[string]string{"access": "fresh"})
	})
	mux.HandleFunc("/auth/login/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "invalid credentials"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tokens := newMemStore(nil)
	client := newTestClient(t, server.URL, tokens)

	_, err := client.Login(context.Background(), "ana@example.com", "wrong")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, int32(0), atomic.LoadInt32(&refreshCalls))
}

func TestTimeoutIsADistinctErrorKind(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	tokens := newMemStore(nil)
	client, err := NewClient(Config{BaseURL: server.URL, Tokens: tokens, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	err = client.doJSON(context.Background(), http.MethodGet, "/slow/", nil, nil, true)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Timeout)
	assert.False(t, apiErr.Offline)
}

func TestConnectionRefusedIsClassifiedOffline(t *testing.T) {
	t.Parallel()

	// Grab a port that nothing listens on.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	baseURL := "http://" + listener.Addr().String()
	require.NoError(t, listener.Close())

	tokens := newMemStore(nil)
	client := newTestClient(t, baseURL, tokens)

	err = client.doJSON(context.Background(), http.MethodGet, "/profile/", nil, nil, true)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Offline)
}

func TestDecodeErrorShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
		wantFirst  string
	}{
		{
			name:       "detail string",
			status:     400,
			body:       `{"detail":"Invalid email"}`,
			wantDetail: "Invalid email",
			wantFirst:  "Invalid email",
		},
		{
			name:      "flat field errors",
			status:    422,
			body:      `{"errors":{"bio":"too short"}}`,
			wantFirst: "too short",
		},
		{
			name:      "nested field errors",
			status:    422,
			body:      `{"errors":{"services":["pick at least one"]}}`,
			wantFirst: "pick at least one",
		},
		{
			name:      "raw payload fallback",
			status:    400,
			body:      `{"whatsapp":["invalid number"]}`,
			wantFirst: "invalid number",
		},
		{
			name:      "unusable body",
			status:    400,
			body:      `not json`,
			wantFirst: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL, newMemStore(nil))

			err := client.doJSON(context.Background(), http.MethodGet, "/x/", nil, nil, true)
			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantDetail, apiErr.Detail)
			assert.Equal(t, tt.wantFirst, apiErr.FirstMessage())
		})
	}
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{BaseURL: "ftp://example.com", Tokens: newMemStore(nil)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http or https")

	_, err = NewClient(Config{BaseURL: "", Tokens: newMemStore(nil)})
	require.Error(t, err)
}

func TestBaseURLPathPrefixIsPreserved(t *testing.T) {
	t.Parallel()

	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL+"/api/v1", newMemStore(nil))
	require.NoError(t, client.doJSON(context.Background(), http.MethodGet, "/professionals/", nil, nil, true))
	assert.Equal(t, "/api/v1/professionals/", gotPath)
}

func TestWrapTransportErrorGeneric(t *testing.T) {
	t.Parallel()

	wrapped := wrapTransportError(errors.New("connection reset by peer"))
	assert.False(t, wrapped.Timeout)
	assert.False(t, wrapped.Offline)
	assert.Equal(t, 0, wrapped.StatusCode)
}
