package pricing

import (
	"errors"
	"testing"

	"github.com/mwehr/cardpulse/internal/domain"
)

func treatmentSale(price float64, treatment string, daysAgo float64) domain.PriceObservation {
	o := saleAt(price, 1, daysAgo)
	o.Treatment = treatment
	return o
}

func TestFloorMinSalesGate(t *testing.T) {
	// Foil has 3 sales, Paper has 8: with threshold 5 only Paper qualifies.
	var obs []domain.PriceObservation
	for i := 0; i < 3; i++ {
		obs = append(obs, treatmentSale(50+float64(i), "Classic Foil", float64(i)+1))
	}
	for i := 0; i < 8; i++ {
		obs = append(obs, treatmentSale(10+float64(i), "Classic Paper", float64(i%5)+1))
	}

	res, err := Floor(obs, domain.Period30D, domain.GroupTreatment, 5, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("want 1 entry, got %d", len(res.Entries))
	}
	e := res.Entries[0]
	if e.Key != "Classic Paper" {
		t.Errorf("want Classic Paper, got %q", e.Key)
	}
	if !almostEqual(e.Floor, 10.0) {
		t.Errorf("want floor 10.0, got %v", e.Floor)
	}
	if e.SampleSize != 8 {
		t.Errorf("want sample size 8, got %d", e.SampleSize)
	}
	if e.Average < e.Floor {
		t.Errorf("average %v below floor %v", e.Average, e.Floor)
	}
}

func TestFloorInvalidThreshold(t *testing.T) {
	for _, minSales := range []int{0, -1} {
		_, err := Floor(nil, domain.Period30D, domain.GroupTreatment, minSales, testNow)
		if !errors.Is(err, domain.ErrInvalidParameter) {
			t.Errorf("min_sales=%d: want ErrInvalidParameter, got %v", minSales, err)
		}
	}
}

func TestFloorEntriesSortedByKey(t *testing.T) {
	obs := []domain.PriceObservation{
		treatmentSale(30, "OCM Serialized", 1),
		treatmentSale(10, "Classic Paper", 1),
		treatmentSale(20, "Classic Foil", 1),
	}
	res, err := Floor(obs, domain.Period30D, domain.GroupTreatment, 1, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Classic Foil", "Classic Paper", "OCM Serialized"}
	if len(res.Entries) != len(want) {
		t.Fatalf("want %d entries, got %d", len(want), len(res.Entries))
	}
	for i, e := range res.Entries {
		if e.Key != want[i] {
			t.Errorf("entry %d: want key %q, got %q", i, want[i], e.Key)
		}
	}
}

func TestFloorCombinedGrouping(t *testing.T) {
	o := saleAt(25, 1, 1)
	o.Rarity = "Legendary"
	o.Treatment = "OCM Serialized"

	res, err := Floor([]domain.PriceObservation{o}, domain.Period30D, domain.GroupRarityTreatment, 1, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Key != "Legendary_OCM Serialized" {
		t.Errorf("combined key wrong: %+v", res.Entries)
	}
}

func TestFloorRespectsPeriod(t *testing.T) {
	obs := []domain.PriceObservation{
		treatmentSale(5, "Classic Paper", 40), // outside 30d
		treatmentSale(12, "Classic Paper", 1),
	}
	res, err := Floor(obs, domain.Period30D, domain.GroupTreatment, 1, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 || !almostEqual(res.Entries[0].Floor, 12.0) {
		t.Errorf("stale observation leaked into floor: %+v", res.Entries)
	}
}
