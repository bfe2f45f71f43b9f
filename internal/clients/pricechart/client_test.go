package pricechart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MurderWizard/pokemon-pricing/internal/clientdata"
	"github.com/MurderWizard/pokemon-pricing/internal/domain"
	apptest "github.com/MurderWizard/pokemon-pricing/internal/testing"
)

func soldListingsServer(t *testing.T, hits *int32, listings []apiListing) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "/sold", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.URL.Query().Get("name"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(apiResponse{Listings: listings})
	}))
}

func newCacheRepo(t *testing.T) *clientdata.Repository {
	t.Helper()
	db, cleanup := apptest.NewTestDB(t, "cache")
	t.Cleanup(cleanup)
	return clientdata.NewRepository(db.Conn())
}

func TestRecentListings(t *testing.T) {
	var hits int32
	soldAt := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	srv := soldListingsServer(t, &hits, []apiListing{
		{Price: 80, Shipping: 4.5, SoldAt: soldAt, Title: "Charizard VMAX NM"},
		{Price: 85, SoldAt: soldAt, Title: "Charizard VMAX near mint"},
	})
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", nil, zerolog.Nop())
	card := domain.NewCardKey("Charizard VMAX", "Champions Path")

	listings, err := c.RecentListings(context.Background(), card, domain.Raw(domain.RawNearMint))
	require.NoError(t, err)
	require.Len(t, listings, 2)

	// Shipping folds into the effective price.
	assert.Equal(t, 84.5, listings[0].Price)
	assert.Equal(t, "Charizard VMAX NM", listings[0].SampleDescription)
	assert.True(t, listings[0].Timestamp.Equal(soldAt))
}

func TestRecentListingsUsesCache(t *testing.T) {
	var hits int32
	srv := soldListingsServer(t, &hits, []apiListing{{Price: 100, SoldAt: time.Now()}})
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", newCacheRepo(t), zerolog.Nop())
	card := domain.NewCardKey("Umbreon VMAX", "Evolving Skies")
	cond := domain.Raw(domain.RawNearMint)

	_, err := c.RecentListings(context.Background(), card, cond)
	require.NoError(t, err)
	_, err = c.RecentListings(context.Background(), card, cond)
	require.NoError(t, err)

	// Second call is served from the fresh cache.
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestRecentListingsStaleFallback(t *testing.T) {
	var hits int32
	srv := soldListingsServer(t, &hits, []apiListing{{Price: 100, SoldAt: time.Now()}})

	repo := newCacheRepo(t)
	c := NewClient(srv.URL, "test-key", repo, zerolog.Nop())
	card := domain.NewCardKey("Umbreon VMAX", "Evolving Skies")
	cond := domain.Raw(domain.RawNearMint)

	_, err := c.RecentListings(context.Background(), card, cond)
	require.NoError(t, err)

	// Expire the cached entry, then kill the API.
	cacheKey := card.Normalized().String() + "|" + cond.StoreKey()
	raw, err := repo.Get(listingsTable, cacheKey)
	require.NoError(t, err)
	require.NoError(t, repo.Store(listingsTable, cacheKey, json.RawMessage(raw), -time.Hour))
	srv.Close()

	listings, err := c.RecentListings(context.Background(), card, cond)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, 100.0, listings[0].Price)
}

func TestRecentListingsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", nil, zerolog.Nop())
	_, err := c.RecentListings(context.Background(),
		domain.NewCardKey("Pikachu V", "Vivid Voltage"), domain.Raw(domain.RawNearMint))
	assert.Error(t, err)
}
