// Package pricechart provides a client for a sold-listings price API with
// persistent caching.
package pricechart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/MurderWizard/pokemon-pricing/internal/adapters"
	"github.com/MurderWizard/pokemon-pricing/internal/clientdata"
	"github.com/MurderWizard/pokemon-pricing/internal/domain"
)

const listingsTable = "marketplace_listings"

// Client fetches recent sold listings from a price API. It implements the
// marketplace lookup contract used by the marketplace adapter.
type Client struct {
	baseURL   string
	apiKey    string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a sold-listings API client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(baseURL, apiKey string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "pricechart").Logger(),
		cacheRepo: cacheRepo,
	}
}

// apiResponse is the wire format of the sold-listings endpoint.
type apiResponse struct {
	Listings []apiListing `json:"listings"`
}

type apiListing struct {
	Price    float64   `json:"price"`
	SoldAt   time.Time `json:"sold_at"`
	Title    string    `json:"title"`
	Shipping float64   `json:"shipping,omitempty"`
}

// cachedListings is the structure stored in the cache.
type cachedListings struct {
	Listings []adapters.Listing `json:"listings"`
}

// RecentListings returns recent sold listings for the card at the given
// condition. If the API fails, stale cached data is returned when
// available (stale data > no data).
func (c *Client) RecentListings(ctx context.Context, card domain.CardKey, cond domain.ConditionSpec) ([]adapters.Listing, error) {
	cacheKey := card.Normalized().String() + "|" + cond.StoreKey()

	// Check persistent cache for fresh data
	if c.cacheRepo != nil {
		data, err := c.cacheRepo.GetIfFresh(listingsTable, cacheKey)
		if err == nil && data != nil {
			var cached cachedListings
			if err := json.Unmarshal(data, &cached); err == nil {
				c.log.Debug().
					Str("card", card.String()).
					Int("listings", len(cached.Listings)).
					Msg("Cache hit")
				return cached.Listings, nil
			}
		}
	}

	listings, err := c.fetch(ctx, card, cond)
	if err != nil {
		// API failed - fall back to stale cache
		if c.cacheRepo != nil {
			data, cacheErr := c.cacheRepo.Get(listingsTable, cacheKey)
			if cacheErr == nil && data != nil {
				var cached cachedListings
				if jsonErr := json.Unmarshal(data, &cached); jsonErr == nil {
					c.log.Warn().
						Err(err).
						Str("card", card.String()).
						Msg("API failed, using stale cached listings")
					return cached.Listings, nil
				}
			}
		}
		return nil, err
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store(listingsTable, cacheKey, cachedListings{Listings: listings}, clientdata.TTLListings); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache listings")
		}
	}

	return listings, nil
}

// fetch performs the HTTP request against the sold-listings endpoint.
func (c *Client) fetch(ctx context.Context, card domain.CardKey, cond domain.ConditionSpec) ([]adapters.Listing, error) {
	q := url.Values{}
	q.Set("name", card.Name)
	q.Set("set", card.Set)
	q.Set("condition", cond.StoreKey())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sold?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sold listings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sold listings API returned status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode sold listings: %w", err)
	}

	listings := make([]adapters.Listing, 0, len(body.Listings))
	for _, l := range body.Listings {
		listings = append(listings, adapters.Listing{
			Price:             l.Price + l.Shipping,
			Timestamp:         l.SoldAt,
			SampleDescription: l.Title,
		})
	}

	c.log.Debug().
		Str("card", card.String()).
		Str("condition", cond.String()).
		Int("listings", len(listings)).
		Msg("Fetched sold listings")

	return listings, nil
}
