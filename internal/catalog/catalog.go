// Package catalog answers category and offer questions over the bundle
// hierarchy, optionally through a cache.
package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"telecom-bundle-chat/internal/cache"
	"telecom-bundle-chat/internal/features"
	"telecom-bundle-chat/internal/models"
)

// Source is the read side of the catalog store.
type Source interface {
	ListMainCategories(ctx context.Context) ([]string, error)
	ListSubcategories(ctx context.Context, main string) ([]string, error)
	FindOffers(ctx context.Context, filter models.OfferFilter) ([]models.Offer, error)
}

// Options configures a Catalog.
type Options struct {
	Cache  cache.Cache
	TTL    time.Duration
	Flags  *features.Manager
	Logger *slog.Logger
}

// Catalog is the catalog query layer.
type Catalog struct {
	src    Source
	cache  cache.Cache
	ttl    time.Duration
	flags  *features.Manager
	logger *slog.Logger
}

// New creates a catalog over src. Caching is active only when opts.Cache is
// set and the catalog_cache flag is enabled.
func New(src Source, opts Options) *Catalog {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Catalog{
		src:    src,
		cache:  opts.Cache,
		ttl:    opts.TTL,
		flags:  opts.Flags,
		logger: opts.Logger,
	}
}

// ListMainCategories returns all main category names in catalog order.
func (c *Catalog) ListMainCategories(ctx context.Context) ([]string, error) {
	var names []string
	err := c.cached(ctx, cache.Key("catalog", "main"), &names, func() error {
		var err error
		names, err = c.src.ListMainCategories(ctx)
		return err
	})
	return names, err
}

// ListSubcategories returns sub category names, restricted to main when set.
func (c *Catalog) ListSubcategories(ctx context.Context, main string) ([]string, error) {
	var names []string
	err := c.cached(ctx, cache.Key("catalog", "sub", main), &names, func() error {
		var err error
		names, err = c.src.ListSubcategories(ctx, main)
		return err
	})
	return names, err
}

// FindOffers returns offers matching every non-empty filter field.
func (c *Catalog) FindOffers(ctx context.Context, filter models.OfferFilter) ([]models.Offer, error) {
	var offers []models.Offer
	key := cache.Key("catalog", "offers", filter.MainCategory, filter.SubCategory, filter.Period)
	err := c.cached(ctx, key, &offers, func() error {
		var err error
		offers, err = c.src.FindOffers(ctx, filter)
		return err
	})
	return offers, err
}

// cached fills dest from the cache or, on a miss, through load. Cache
// failures degrade to the source; source failures are returned as-is.
func (c *Catalog) cached(ctx context.Context, key string, dest interface{}, load func() error) error {
	if c.cache == nil || !c.flags.IsEnabled(features.CatalogCache) {
		return load()
	}

	err := cache.GetJSON(ctx, c.cache, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		c.logger.Warn("catalog cache read failed", "key", key, "error", err)
	}

	if err := load(); err != nil {
		return err
	}
	if err := cache.SetJSON(ctx, c.cache, key, dest, c.ttl); err != nil {
		c.logger.Warn("catalog cache write failed", "key", key, "error", err)
	}
	return nil
}
