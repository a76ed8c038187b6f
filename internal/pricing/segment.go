package pricing

import (
	"fmt"

	"github.com/mwehr/cardpulse/internal/domain"
)

// unknownSegment stands in for an empty rarity or treatment so partitions
// remain addressable.
const unknownSegment = "Unknown"

// groupKeyFuncs is the single place that maps a grouping mode to its
// partition-key extraction. Every primitive that supports grouping resolves
// keys through this table so identical requests partition identically.
var groupKeyFuncs = map[domain.GroupMode]func(domain.PriceObservation) string{
	domain.GroupNone: func(domain.PriceObservation) string {
		return "all"
	},
	domain.GroupRarity: func(o domain.PriceObservation) string {
		return orUnknown(o.Rarity)
	},
	domain.GroupTreatment: func(o domain.PriceObservation) string {
		return orUnknown(o.Treatment)
	},
	domain.GroupRarityTreatment: func(o domain.PriceObservation) string {
		return orUnknown(o.Rarity) + "_" + orUnknown(o.Treatment)
	},
}

func orUnknown(s string) string {
	if s == "" {
		return unknownSegment
	}
	return s
}

// Partition splits observations into groups keyed by the given mode.
func Partition(mode domain.GroupMode, obs []domain.PriceObservation) (map[string][]domain.PriceObservation, error) {
	keyFn, ok := groupKeyFuncs[mode]
	if !ok {
		return nil, fmt.Errorf("%w: unknown group mode %q", domain.ErrInvalidParameter, mode)
	}
	parts := make(map[string][]domain.PriceObservation)
	for _, o := range obs {
		k := keyFn(o)
		parts[k] = append(parts[k], o)
	}
	return parts, nil
}
