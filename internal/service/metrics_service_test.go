package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mwehr/cardpulse/internal/domain"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type fakeCardStore struct {
	cards   map[string]domain.Card
	failAll bool
}

func (f *fakeCardStore) Upsert(ctx context.Context, card domain.Card) error {
	if f.cards == nil {
		f.cards = make(map[string]domain.Card)
	}
	f.cards[card.ID] = card
	return nil
}

func (f *fakeCardStore) GetByID(ctx context.Context, id string) (domain.Card, error) {
	if f.failAll {
		return domain.Card{}, errors.New("connection refused")
	}
	card, ok := f.cards[id]
	if !ok {
		return domain.Card{}, domain.ErrNotFound
	}
	return card, nil
}

func (f *fakeCardStore) List(ctx context.Context, pt domain.ProductType, opts domain.ListOpts) ([]domain.Card, error) {
	var out []domain.Card
	for _, c := range f.cards {
		if pt == "" || c.ProductType == pt {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCardStore) Count(ctx context.Context) (int64, error) {
	return int64(len(f.cards)), nil
}

type fakeObsStore struct {
	obs       []domain.PriceObservation
	listCalls int
	failList  bool
}

func (f *fakeObsStore) InsertBatch(ctx context.Context, obs []domain.PriceObservation) error {
	f.obs = append(f.obs, obs...)
	return nil
}

func (f *fakeObsStore) ListByCard(ctx context.Context, cardID string, filter domain.ObservationFilter, tr domain.TimeRange) ([]domain.PriceObservation, error) {
	f.listCalls++
	if f.failList {
		return nil, errors.New("connection refused")
	}
	var out []domain.PriceObservation
	for _, o := range f.obs {
		if o.CardID != cardID {
			continue
		}
		if filter.Rarity != "" && o.Rarity != filter.Rarity {
			continue
		}
		if filter.Treatment != "" && o.Treatment != filter.Treatment {
			continue
		}
		if tr.Since != nil && o.ObservedAt.Before(*tr.Since) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeObsStore) ListByProductType(ctx context.Context, pt domain.ProductType, filter domain.ObservationFilter, tr domain.TimeRange) ([]domain.PriceObservation, error) {
	f.listCalls++
	if f.failList {
		return nil, errors.New("connection refused")
	}
	var out []domain.PriceObservation
	for _, o := range f.obs {
		if o.ProductType != pt {
			continue
		}
		if filter.Rarity != "" && o.Rarity != filter.Rarity {
			continue
		}
		if filter.Treatment != "" && o.Treatment != filter.Treatment {
			continue
		}
		if tr.Since != nil && o.ObservedAt.Before(*tr.Since) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeObsStore) ListBefore(ctx context.Context, before time.Time) ([]domain.PriceObservation, error) {
	var out []domain.PriceObservation
	for _, o := range f.obs {
		if o.ObservedAt.Before(before) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeObsStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	var kept []domain.PriceObservation
	var n int64
	for _, o := range f.obs {
		if o.ObservedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, o)
	}
	f.obs = kept
	return n, nil
}

type fakeListingStore struct {
	snap *domain.ListingSnapshot
}

func (f *fakeListingStore) Upsert(ctx context.Context, snap domain.ListingSnapshot) error {
	f.snap = &snap
	return nil
}

func (f *fakeListingStore) GetCurrent(ctx context.Context, cardID string, filter domain.ObservationFilter) (domain.ListingSnapshot, error) {
	if f.snap == nil || f.snap.CardID != cardID {
		return domain.ListingSnapshot{}, domain.ErrNotFound
	}
	return *f.snap, nil
}

type fakeCache struct {
	entries map[string][]byte
	sets    int
}

func (f *fakeCache) Get(ctx context.Context, key string, dest any) error {
	data, ok := f.entries[key]
	if !ok {
		return domain.ErrNotFound
	}
	return json.Unmarshal(data, dest)
}

func (f *fakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if f.entries == nil {
		f.entries = make(map[string][]byte)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = data
	f.sets++
	return nil
}

type fixture struct {
	svc      *MetricsService
	cards    *fakeCardStore
	obs      *fakeObsStore
	listings *fakeListingStore
	cache    *fakeCache
}

func newFixture() *fixture {
	f := &fixture{
		cards:    &fakeCardStore{cards: map[string]domain.Card{"card-1": {ID: "card-1", Name: "Test Card"}}},
		obs:      &fakeObsStore{},
		listings: &fakeListingStore{},
		cache:    &fakeCache{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewMetricsService(f.cards, f.obs, f.listings, f.cache, logger, EngineOptions{})
	f.svc.now = func() time.Time { return testNow }
	return f
}

func (f *fixture) addSale(price float64, daysAgo float64) {
	f.obs.obs = append(f.obs.obs, domain.PriceObservation{
		ID:         fmt.Sprintf("obs-%d", len(f.obs.obs)),
		CardID:     "card-1",
		Price:      price,
		Quantity:   1,
		Rarity:     "Rare",
		Treatment:  "Classic Paper",
		ObservedAt: testNow.Add(-time.Duration(daysAgo * 24 * float64(time.Hour))),
	})
}

func (f *fixture) addTypedSale(cardID string, pt domain.ProductType, price float64, daysAgo float64) {
	f.obs.obs = append(f.obs.obs, domain.PriceObservation{
		ID:          fmt.Sprintf("obs-%d", len(f.obs.obs)),
		CardID:      cardID,
		ProductType: pt,
		Price:       price,
		Quantity:    1,
		Rarity:      "Rare",
		Treatment:   "Classic Paper",
		ObservedAt:  testNow.Add(-time.Duration(daysAgo * 24 * float64(time.Hour))),
	})
}

func TestVWAPCacheMissThenHit(t *testing.T) {
	f := newFixture()
	f.addSale(10, 1)
	f.addSale(14, 2)

	res, err := f.svc.VWAP(context.Background(), "card-1", domain.Period7D, domain.ObservationFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Value == nil || *res.Value != 12.0 {
		t.Fatalf("expected vwap 12.0, got %v", res.Value)
	}
	if f.obs.listCalls != 1 {
		t.Fatalf("expected 1 store fetch, got %d", f.obs.listCalls)
	}

	again, err := f.svc.VWAP(context.Background(), "card-1", domain.Period7D, domain.ObservationFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.obs.listCalls != 1 {
		t.Fatalf("second call should hit the cache, store fetched %d times", f.obs.listCalls)
	}
	if *again.Value != *res.Value || again.SampleSize != res.SampleSize {
		t.Fatalf("cached result differs: %+v vs %+v", again, res)
	}
}

func TestVWAPParameterChangeIsCacheMiss(t *testing.T) {
	f := newFixture()
	f.addSale(10, 1)

	if _, err := f.svc.VWAP(context.Background(), "card-1", domain.Period7D, domain.ObservationFilter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.VWAP(context.Background(), "card-1", domain.Period30D, domain.ObservationFilter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.VWAP(context.Background(), "card-1", domain.Period7D, domain.ObservationFilter{Rarity: "Rare"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.obs.listCalls != 3 {
		t.Fatalf("each distinct parameter tuple should fetch, got %d fetches", f.obs.listCalls)
	}
	if f.cache.sets != 3 {
		t.Fatalf("expected 3 cache entries, got %d", f.cache.sets)
	}
}

func TestVWAPInvalidPeriod(t *testing.T) {
	f := newFixture()
	_, err := f.svc.VWAP(context.Background(), "card-1", domain.Period("2w"), domain.ObservationFilter{})
	if !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestVWAPUnknownCard(t *testing.T) {
	f := newFixture()
	_, err := f.svc.VWAP(context.Background(), "no-such-card", domain.Period7D, domain.ObservationFilter{})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreFailureNotCached(t *testing.T) {
	f := newFixture()
	f.obs.failList = true

	_, err := f.svc.VWAP(context.Background(), "card-1", domain.Period7D, domain.ObservationFilter{})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if f.cache.sets != 0 {
		t.Fatalf("store failures must not be cached, got %d sets", f.cache.sets)
	}

	// Once the store recovers, the next call computes fresh.
	f.obs.failList = false
	f.addSale(10, 1)
	res, err := f.svc.VWAP(context.Background(), "card-1", domain.Period7D, domain.ObservationFilter{})
	if err != nil {
		t.Fatalf("unexpected error after recovery: %v", err)
	}
	if res.Value == nil || *res.Value != 10.0 {
		t.Fatalf("expected vwap 10.0 after recovery, got %v", res.Value)
	}
}

func TestEMAInvalidWindow(t *testing.T) {
	f := newFixture()
	_, err := f.svc.EMA(context.Background(), "card-1", 10, domain.ObservationFilter{})
	if !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestDeltaRejectsUnsupportedPeriod(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Delta(context.Background(), "card-1", domain.Period7D, domain.ObservationFilter{})
	if !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for 7d delta, got %v", err)
	}
}

func TestSpreadWithoutSnapshotIsNull(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Spread(context.Background(), "card-1", domain.ObservationFilter{})
	if err != nil {
		t.Fatalf("missing snapshot must not be an error: %v", err)
	}
	if res.Amount != nil || res.Percent != nil || res.CapturedAt != nil {
		t.Fatalf("expected null spread, got %+v", res)
	}
}

func TestFloorZeroMinSalesUsesDefault(t *testing.T) {
	f := newFixture()
	// Three sales satisfy the default threshold of 3.
	f.addSale(10, 1)
	f.addSale(12, 2)
	f.addSale(14, 3)

	res, err := f.svc.Floor(context.Background(), "card-1", domain.Period7D, domain.GroupNone, 0, domain.ObservationFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("expected 1 floor entry under the default threshold, got %d", len(res.Entries))
	}
	if res.Entries[0].Floor != 10.0 {
		t.Fatalf("expected floor 10.0, got %v", res.Entries[0].Floor)
	}
	if res.MinSales != 3 {
		t.Fatalf("expected default min sales 3, got %d", res.MinSales)
	}
}

func TestComprehensiveSharedFetch(t *testing.T) {
	f := newFixture()
	f.addSale(10, 1)
	f.addSale(12, 2)
	f.addSale(14, 40)
	f.listings.snap = &domain.ListingSnapshot{
		CardID:     "card-1",
		BestBid:    domain.Float64Ptr(9),
		BestAsk:    domain.Float64Ptr(13),
		CapturedAt: testNow.Add(-time.Hour),
	}

	res, err := f.svc.Comprehensive(context.Background(), "card-1", domain.Period30D, domain.ObservationFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.obs.listCalls != 1 {
		t.Fatalf("comprehensive must fetch observations once, got %d fetches", f.obs.listCalls)
	}
	if res.VWAP.Value == nil || *res.VWAP.Value != 11.0 {
		t.Fatalf("expected 30d vwap 11.0, got %v", res.VWAP.Value)
	}
	if res.VWAP.SampleSize != 2 {
		t.Fatalf("expected 2 samples inside 30d, got %d", res.VWAP.SampleSize)
	}
	if res.Spread.Amount == nil || *res.Spread.Amount != 4.0 {
		t.Fatalf("expected spread amount 4.0, got %v", res.Spread.Amount)
	}
	if res.PriceToSale.Ratio == nil {
		t.Fatal("expected a price-to-sale ratio with ask and vwap present")
	}
	if res.EMA7.Window != 7 || res.EMA14.Window != 14 || res.EMA30.Window != 30 {
		t.Fatalf("ema windows wrong: %d/%d/%d", res.EMA7.Window, res.EMA14.Window, res.EMA30.Window)
	}

	// Second call is served from the cache.
	if _, err := f.svc.Comprehensive(context.Background(), "card-1", domain.Period30D, domain.ObservationFilter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.obs.listCalls != 1 {
		t.Fatalf("cached comprehensive should not refetch, got %d fetches", f.obs.listCalls)
	}
}

func TestComprehensivePartialDataStaysNull(t *testing.T) {
	f := newFixture()
	f.addSale(10, 1)

	res, err := f.svc.Comprehensive(context.Background(), "card-1", domain.Period7D, domain.ObservationFilter{})
	if err != nil {
		t.Fatalf("partial data must not fail the bundle: %v", err)
	}
	if res.VWAP.Value == nil {
		t.Fatal("vwap should be computed from the single sale")
	}
	if res.EMA14.Value != nil {
		t.Fatal("ema with one daily point should stay null")
	}
	if res.Spread.Amount != nil {
		t.Fatal("spread without a snapshot should stay null")
	}
	if res.PriceToSale.Ratio != nil {
		t.Fatal("price-to-sale without an ask should stay null")
	}
}

func TestTimeSeriesCached(t *testing.T) {
	f := newFixture()
	f.addSale(10, 1)
	f.addSale(12, 3)

	res, err := f.svc.TimeSeries(context.Background(), "card-1", domain.Period7D, domain.IntervalDaily, domain.ObservationFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Buckets) != 7 {
		t.Fatalf("expected 7 daily buckets, got %d", len(res.Buckets))
	}

	if _, err := f.svc.TimeSeries(context.Background(), "card-1", domain.Period7D, domain.IntervalDaily, domain.ObservationFilter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.obs.listCalls != 1 {
		t.Fatalf("cached series should not refetch, got %d fetches", f.obs.listCalls)
	}
}

func TestFloorByProductTypeSpansCards(t *testing.T) {
	f := newFixture()
	f.addTypedSale("card-1", domain.ProductTypeBox, 10, 1)
	f.addTypedSale("card-2", domain.ProductTypeBox, 8, 2)
	f.addTypedSale("card-1", domain.ProductTypeBox, 12, 3)
	// A cheap single must not drag the box floor down.
	f.addTypedSale("card-3", domain.ProductTypeSingle, 2, 1)

	res, err := f.svc.FloorByProductType(context.Background(), domain.ProductTypeBox, domain.Period7D, domain.GroupNone, 0, domain.ObservationFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("expected 1 floor entry, got %d", len(res.Entries))
	}
	if res.Entries[0].Floor != 8.0 {
		t.Fatalf("expected box floor 8.0 across cards, got %v", res.Entries[0].Floor)
	}

	// A lowercase token canonicalizes and lands on the same cache entry.
	if _, err := f.svc.FloorByProductType(context.Background(), domain.ProductType("box"), domain.Period7D, domain.GroupNone, 0, domain.ObservationFilter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.obs.listCalls != 1 {
		t.Fatalf("second call should hit the cache, store fetched %d times", f.obs.listCalls)
	}
}

func TestFloorByProductTypeUnknownType(t *testing.T) {
	f := newFixture()
	_, err := f.svc.FloorByProductType(context.Background(), domain.ProductType("Deck"), domain.Period7D, domain.GroupNone, 0, domain.ObservationFilter{})
	if !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestFloorByProductTypeStoreFailureNotCached(t *testing.T) {
	f := newFixture()
	f.obs.failList = true

	_, err := f.svc.FloorByProductType(context.Background(), domain.ProductTypeBox, domain.Period7D, domain.GroupNone, 0, domain.ObservationFilter{})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if f.cache.sets != 0 {
		t.Fatalf("failures must not be cached, got %d sets", f.cache.sets)
	}
}

func TestTimeSeriesByProductTypeSpansCards(t *testing.T) {
	f := newFixture()
	f.addTypedSale("card-1", domain.ProductTypeBox, 10, 1)
	f.addTypedSale("card-2", domain.ProductTypeBox, 14, 1)
	f.addTypedSale("card-2", domain.ProductTypeBox, 9, 3)

	res, err := f.svc.TimeSeriesByProductType(context.Background(), domain.ProductTypeBox, domain.Period7D, domain.IntervalDaily, domain.ObservationFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Buckets) != 7 {
		t.Fatalf("expected 7 daily buckets, got %d", len(res.Buckets))
	}
	if res.SampleSize != 3 {
		t.Fatalf("expected 3 samples across both cards, got %d", res.SampleSize)
	}
	var merged *domain.TimeSeriesBucket
	for i := range res.Buckets {
		if res.Buckets[i].Count == 2 {
			merged = &res.Buckets[i]
		}
	}
	if merged == nil {
		t.Fatal("expected a bucket holding both same-day sales")
	}
	if merged.VWAP == nil || *merged.VWAP != 12.0 {
		t.Fatalf("expected merged bucket vwap 12.0, got %v", merged.VWAP)
	}

	if _, err := f.svc.TimeSeriesByProductType(context.Background(), domain.ProductTypeBox, domain.Period7D, domain.IntervalDaily, domain.ObservationFilter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.obs.listCalls != 1 {
		t.Fatalf("cached series should not refetch, got %d fetches", f.obs.listCalls)
	}
}

func TestProductScopeKeysDistinctFromCards(t *testing.T) {
	card := metricCacheKey(domain.MetricFloor, "card-1", domain.ObservationFilter{}, "period=7d")
	agg := metricCacheKey(domain.MetricFloor, productScope(domain.ProductTypeBox), domain.ObservationFilter{}, "period=7d")
	if card == agg {
		t.Fatal("aggregate and per-card keys must not collide")
	}
	other := metricCacheKey(domain.MetricFloor, productScope(domain.ProductTypeSingle), domain.ObservationFilter{}, "period=7d")
	if agg == other {
		t.Fatal("keys for different product types must differ")
	}
}

func TestCacheKeyDeterminism(t *testing.T) {
	a := metricCacheKey(domain.MetricVWAP, "card-1", domain.ObservationFilter{Rarity: "Rare"}, "period=7d")
	b := metricCacheKey(domain.MetricVWAP, "card-1", domain.ObservationFilter{Rarity: "Rare"}, "period=7d")
	if a != b {
		t.Fatalf("identical parameters must produce identical keys: %q vs %q", a, b)
	}

	c := metricCacheKey(domain.MetricVWAP, "card-1", domain.ObservationFilter{Treatment: "Rare"}, "period=7d")
	if a == c {
		t.Fatal("a value moving between filter fields must change the key")
	}
}
