package domain

import "fmt"

// GroupMode selects how floor-price partitions are keyed.
type GroupMode string

const (
	GroupNone            GroupMode = "none"
	GroupRarity          GroupMode = "rarity"
	GroupTreatment       GroupMode = "treatment"
	GroupRarityTreatment GroupMode = "rarity_treatment"
)

// ParseGroupMode validates a grouping token. The empty string maps to
// GroupNone so callers can omit the parameter.
func ParseGroupMode(s string) (GroupMode, error) {
	switch GroupMode(s) {
	case "", GroupNone:
		return GroupNone, nil
	case GroupRarity, GroupTreatment, GroupRarityTreatment:
		return GroupMode(s), nil
	default:
		return "", fmt.Errorf("%w: unknown group mode %q", ErrInvalidParameter, s)
	}
}

// ObservationFilter narrows store queries to a segmentation subset. Empty
// fields match everything.
type ObservationFilter struct {
	Rarity    string
	Treatment string
	Platform  string
}
