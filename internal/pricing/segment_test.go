package pricing

import (
	"errors"
	"testing"

	"github.com/mwehr/cardpulse/internal/domain"
)

func TestPartitionModes(t *testing.T) {
	a := saleAt(10, 1, 1)
	a.Rarity, a.Treatment = "Rare", "Classic Foil"
	b := saleAt(12, 1, 1)
	b.Rarity, b.Treatment = "Rare", "Classic Paper"
	c := saleAt(14, 1, 1)
	c.Rarity, c.Treatment = "Common", "Classic Paper"
	obs := []domain.PriceObservation{a, b, c}

	cases := []struct {
		mode     domain.GroupMode
		wantKeys int
	}{
		{domain.GroupNone, 1},
		{domain.GroupRarity, 2},
		{domain.GroupTreatment, 2},
		{domain.GroupRarityTreatment, 3},
	}
	for _, tc := range cases {
		parts, err := Partition(tc.mode, obs)
		if err != nil {
			t.Fatalf("mode %s: unexpected error: %v", tc.mode, err)
		}
		if len(parts) != tc.wantKeys {
			t.Errorf("mode %s: want %d partitions, got %d", tc.mode, tc.wantKeys, len(parts))
		}
	}
}

func TestPartitionUnknownPlaceholder(t *testing.T) {
	parts, err := Partition(domain.GroupRarity, []domain.PriceObservation{saleAt(10, 1, 1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := parts["Unknown"]; !ok {
		t.Errorf("empty rarity should partition under Unknown, got keys %v", keysOf(parts))
	}
}

func TestPartitionInvalidMode(t *testing.T) {
	_, err := Partition(domain.GroupMode("bogus"), nil)
	if !errors.Is(err, domain.ErrInvalidParameter) {
		t.Errorf("want ErrInvalidParameter, got %v", err)
	}
}

func keysOf(m map[string][]domain.PriceObservation) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
