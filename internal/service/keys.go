package service

import (
	"strings"

	"github.com/mwehr/cardpulse/internal/domain"
)

// metricCacheKey builds a deterministic cache key from the metric kind, the
// scope (a card ID or a product-type aggregate), the segmentation filter,
// and any metric-specific parameters. Every filter field is emitted in a
// fixed order even when empty, so two calls with identical parameters
// always produce byte-identical keys and a change to any parameter always
// produces a different key.
func metricCacheKey(kind domain.MetricKind, scope string, f domain.ObservationFilter, extra ...string) string {
	parts := make([]string, 0, 5+len(extra))
	parts = append(parts,
		string(kind),
		scope,
		"r="+f.Rarity,
		"t="+f.Treatment,
		"p="+f.Platform,
	)
	parts = append(parts, extra...)
	return strings.Join(parts, ":")
}

// productScope returns the cache-key scope segment for a product-type
// aggregate, kept disjoint from card-ID scopes.
func productScope(pt domain.ProductType) string {
	return "product_type=" + string(pt)
}
