package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCitiesAreCachedPerStateCaseInsensitively(t *testing.T) {
	t.Parallel()

	var hits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/professionals/cities/SP/", func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		_ = json.NewEncoder(w).Encode(map[string][]string{"cities": {"Campinas", "São Paulo"}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, newMemStore(nil))
	ctx := context.Background()

	first, err := client.Cities(ctx, "sp")
	require.NoError(t, err)
	second, err := client.Cities(ctx, "SP")
	require.NoError(t, err)
	third, err := client.Cities(ctx, " sp ")
	require.NoError(t, err)

	assert.Equal(t, []string{"Campinas", "São Paulo"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestRefetchCitiesBypassesCacheOnce(t *testing.T) {
	t.Parallel()

	var hits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/professionals/cities/SP/", func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		cities := []string{"Campinas"}
		if n > 1 {
			cities = []string{"Campinas", "Santos"}
		}
		_ = json.NewEncoder(w).Encode(map[string][]string{"cities": cities})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, newMemStore(nil))
	ctx := context.Background()

	_, err := client.Cities(ctx, "SP")
	require.NoError(t, err)

	refreshed, err := client.RefetchCities(ctx, "SP")
	require.NoError(t, err)
	assert.Equal(t, []string{"Campinas", "Santos"}, refreshed)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))

	// The refetched payload replaces the cached entry.
	cached, err := client.Cities(ctx, "sp")
	require.NoError(t, err)
	assert.Equal(t, refreshed, cached)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestCitiesFetchFailureIsNotCached(t *testing.T) {
	t.Parallel()

	var hits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/professionals/cities/RJ/", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string][]string{"cities": {"Niterói"}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, newMemStore(nil))
	ctx := context.Background()

	_, err := client.Cities(ctx, "RJ")
	require.Error(t, err)

	cities, err := client.Cities(ctx, "RJ")
	require.NoError(t, err)
	assert.Equal(t, []string{"Niterói"}, cities)
}

func TestServiceTypes(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/service-types/", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string][]string{"service_types": {"reiki", "yoga"}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, newMemStore(nil))

	types, err := client.ServiceTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"reiki", "yoga"}, types)
}
