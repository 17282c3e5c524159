package geo

import (
	"context"
	"errors"
	"testing"

	"github.com/paulmach/orb"
)

func TestDistanceKM_StaticTable(t *testing.T) {
	r := NewResolver(nil)
	km, ok := r.DistanceKM(context.Background(), "Paris", "Lyon")
	if !ok {
		t.Fatal("expected both cities to resolve")
	}
	if km < 380 || km > 420 {
		t.Fatalf("unexpected distance Paris-Lyon: %.1f km", km)
	}
}

func TestDistanceKM_SameCityIsZero(t *testing.T) {
	r := NewResolver(nil)
	km, ok := r.DistanceKM(context.Background(), "Paris", "Paris")
	if !ok || km > 0.01 {
		t.Fatalf("same city should be ~0km, got %.4f ok=%v", km, ok)
	}
}

func TestDistanceKM_UnknownCityNoGeocoder(t *testing.T) {
	r := NewResolver(nil)
	if _, ok := r.DistanceKM(context.Background(), "Paris", "Perpignan"); ok {
		t.Fatal("expected Perpignan to be unresolved without a geocoder")
	}
}

type fakeGeocoder struct {
	calls int
	pt    orb.Point
	found bool
	err   error
}

func (f *fakeGeocoder) Geocode(_ context.Context, _ string) (orb.Point, bool, error) {
	f.calls++
	return f.pt, f.found, f.err
}

func TestDistanceKM_GeocoderCached(t *testing.T) {
	fg := &fakeGeocoder{pt: orb.Point{2.8954, 42.6986}, found: true}
	r := NewResolver(fg)

	if _, ok := r.DistanceKM(context.Background(), "Paris", "Perpignan"); !ok {
		t.Fatal("expected geocoder fallback to resolve Perpignan")
	}
	if _, ok := r.DistanceKM(context.Background(), "Paris", "Perpignan"); !ok {
		t.Fatal("expected second lookup to also resolve")
	}
	if fg.calls != 1 {
		t.Fatalf("expected geocoder to be called once (cached), got %d calls", fg.calls)
	}
}

func TestDistanceKM_GeocoderNegativeCache(t *testing.T) {
	fg := &fakeGeocoder{found: false, err: errors.New("not found")}
	r := NewResolver(fg)

	if _, ok := r.DistanceKM(context.Background(), "Paris", "Atlantis"); ok {
		t.Fatal("expected Atlantis to remain unresolved")
	}
	if _, ok := r.DistanceKM(context.Background(), "Paris", "Atlantis"); ok {
		t.Fatal("expected negative cache on second lookup")
	}
	if fg.calls != 1 {
		t.Fatalf("expected a single geocoder call due to negative caching, got %d", fg.calls)
	}
}
