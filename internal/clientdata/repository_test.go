package clientdata

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apptest "github.com/MurderWizard/pokemon-pricing/internal/testing"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, cleanup := apptest.NewTestDB(t, "cache")
	t.Cleanup(cleanup)
	return NewRepository(db.Conn())
}

type payload struct {
	Price float64 `json:"price"`
}

func TestStoreAndGetIfFresh(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store("marketplace_listings", "charizard", payload{Price: 85}, TTLListings))

	raw, err := repo.GetIfFresh("marketplace_listings", "charizard")
	require.NoError(t, err)
	require.NotNil(t, raw)

	var got payload
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, 85.0, got.Price)
}

func TestGetIfFreshMiss(t *testing.T) {
	repo := newTestRepo(t)

	raw, err := repo.GetIfFresh("marketplace_listings", "missing")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestGetIfFreshExpired(t *testing.T) {
	repo := newTestRepo(t)

	// Negative TTL writes an already-expired row.
	require.NoError(t, repo.Store("sold_comparables", "umbreon", payload{Price: 120}, -time.Hour))

	raw, err := repo.GetIfFresh("sold_comparables", "umbreon")
	require.NoError(t, err)
	assert.Nil(t, raw)

	// Stale fallback still serves it.
	raw, err = repo.Get("sold_comparables", "umbreon")
	require.NoError(t, err)
	require.NotNil(t, raw)
}

func TestStoreUpserts(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store("card_catalog", "sets", payload{Price: 1}, TTLCatalog))
	require.NoError(t, repo.Store("card_catalog", "sets", payload{Price: 2}, TTLCatalog))

	raw, err := repo.GetIfFresh("card_catalog", "sets")
	require.NoError(t, err)

	var got payload
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, 2.0, got.Price)
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store("marketplace_listings", "pikachu", payload{Price: 12}, TTLListings))
	require.NoError(t, repo.Delete("marketplace_listings", "pikachu"))

	raw, err := repo.Get("marketplace_listings", "pikachu")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestDeleteAllExpired(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store("marketplace_listings", "fresh", payload{Price: 1}, TTLListings))
	require.NoError(t, repo.Store("marketplace_listings", "stale", payload{Price: 2}, -time.Hour))
	require.NoError(t, repo.Store("sold_comparables", "stale", payload{Price: 3}, -time.Hour))

	results, err := repo.DeleteAllExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), results["marketplace_listings"])
	assert.Equal(t, int64(1), results["sold_comparables"])
	assert.Equal(t, int64(0), results["card_catalog"])

	// Fresh entries survive.
	raw, err := repo.GetIfFresh("marketplace_listings", "fresh")
	require.NoError(t, err)
	assert.NotNil(t, raw)
}

func TestInvalidTableRejected(t *testing.T) {
	repo := newTestRepo(t)

	assert.Error(t, repo.Store("price_observations; DROP TABLE", "k", payload{}, TTLListings))
	_, err := repo.GetIfFresh("unknown_table", "k")
	assert.Error(t, err)
	assert.Error(t, repo.Delete("unknown_table", "k"))
}

func TestCleanupJob(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store("marketplace_listings", "stale", payload{Price: 2}, -time.Hour))

	job := NewCleanupJob(repo, zerolog.Nop())
	assert.Equal(t, "client_data_cleanup", job.Name())
	require.NoError(t, job.Run())

	raw, err := repo.Get("marketplace_listings", "stale")
	require.NoError(t, err)
	assert.Nil(t, raw)
}
