package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

type citiesResponse struct {
	Cities []string `json:"cities"`
}

type serviceTypesResponse struct {
	ServiceTypes []string `json:"service_types"`
}

// Cities returns the cities of a state, hitting the network once per state.
// The cache key is case-insensitive: "sp" and "SP" share one entry.
func (c *Client) Cities(ctx context.Context, state string) ([]string, error) {
	key := strings.ToUpper(strings.TrimSpace(state))

	c.citiesMu.Lock()
	cached, ok := c.cities[key]
	c.citiesMu.Unlock()
	if ok {
		return cached, nil
	}

	return c.fetchCities(ctx, key)
}

// RefetchCities drops the cached entry for the state and fetches again.
func (c *Client) RefetchCities(ctx context.Context, state string) ([]string, error) {
	key := strings.ToUpper(strings.TrimSpace(state))

	c.citiesMu.Lock()
	delete(c.cities, key)
	c.citiesMu.Unlock()

	return c.fetchCities(ctx, key)
}

func (c *Client) fetchCities(ctx context.Context, key string) ([]string, error) {
	var res citiesResponse
	path := fmt.Sprintf("/professionals/cities/%s/", key)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &res, false); err != nil {
		return nil, err
	}

	c.citiesMu.Lock()
	c.cities[key] = res.Cities
	c.citiesMu.Unlock()

	return res.Cities, nil
}

func (c *Client) ServiceTypes(ctx context.Context) ([]string, error) {
	var res serviceTypesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/service-types/", nil, &res, false); err != nil {
		return nil, err
	}
	return res.ServiceTypes, nil
}
