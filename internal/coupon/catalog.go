package coupon

import (
	"context"
	"fmt"
	"sync"

	"hardware-checkout/internal/model"

	"github.com/rs/zerolog"
)

// CatalogConfig holds configuration for the coupon catalog.
type CatalogConfig struct {
	// FilePaths is the list of catalog files to load. Later files override
	// earlier ones for the same code.
	FilePaths []string
}

// DefaultCatalogConfig returns the default catalog configuration.
func DefaultCatalogConfig() *CatalogConfig {
	return &CatalogConfig{
		FilePaths: []string{"data/coupons/catalog.csv.gz"},
	}
}

// catalog is an immutable, in-memory coupon index.
type catalog struct {
	coupons map[string]*model.Coupon
}

// NewCatalog loads every configured file concurrently and merges them into a
// read-only catalog.
func NewCatalog(ctx context.Context, cfg *CatalogConfig, loader Loader, logger zerolog.Logger) (Catalog, error) {
	if cfg == nil {
		cfg = DefaultCatalogConfig()
	}

	logger = logger.With().Str("component", "coupon-catalog").Logger()

	type loadResult struct {
		index int
		set   CouponSet
		err   error
	}

	results := make([]loadResult, len(cfg.FilePaths))
	var wg sync.WaitGroup

	for i, filePath := range cfg.FilePaths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()
			set, err := loader.Load(ctx, path)
			results[index] = loadResult{index: index, set: set, err: err}
		}(i, filePath)
	}
	wg.Wait()

	c := &catalog{coupons: make(map[string]*model.Coupon)}
	for i, result := range results {
		if result.err != nil {
			logger.Error().
				Err(result.err).
				Str("file", cfg.FilePaths[i]).
				Msg("failed to load coupon file")
			return nil, fmt.Errorf("failed to load coupon file %s: %w", cfg.FilePaths[i], result.err)
		}
		result.set.Each(func(cp *model.Coupon) {
			c.coupons[cp.Code] = cp
		})
	}

	logger.Info().
		Int("file_count", len(cfg.FilePaths)).
		Int("total_coupons", len(c.coupons)).
		Msg("coupon catalog initialised")

	return c, nil
}

// NewStaticCatalog builds a catalog from coupons already in memory.
func NewStaticCatalog(coupons ...model.Coupon) Catalog {
	c := &catalog{coupons: make(map[string]*model.Coupon, len(coupons))}
	for i := range coupons {
		cp := coupons[i]
		cp.Code = model.NormalizeCouponCode(cp.Code)
		c.coupons[cp.Code] = &cp
	}
	return c
}

// Lookup returns the coupon for a code, normalizing the code first.
func (c *catalog) Lookup(code string) (*model.Coupon, bool) {
	cp, ok := c.coupons[model.NormalizeCouponCode(code)]
	return cp, ok
}

// Size returns the number of coupons in the catalog.
func (c *catalog) Size() int {
	return len(c.coupons)
}
