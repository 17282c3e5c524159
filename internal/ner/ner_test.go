package ner

import (
	"context"
	"testing"
	"time"

	"manifold/internal/catalog"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

func newTestExtractor() *Extractor {
	return NewExtractor(fixedClock{t: time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)}, nil)
}

func strp(s string) *string { return &s }

func TestExtractCity(t *testing.T) {
	e := newTestExtractor()
	cases := map[string]string{
		"besoin garde 2 enfants à Paris":    "Paris",
		"mission sur Lyon la semaine":       "Lyon",
		"mutation vers marseille bientôt":   "Marseille",
		"unité à toulouse":                  "Toulouse",
		"pas de ville mentionnee ici du tout": "",
	}
	for msg, want := range cases {
		got := e.ExtractCity(msg)
		if want == "" {
			if got != nil {
				t.Errorf("ExtractCity(%q) = %q, want nil", msg, *got)
			}
			continue
		}
		if got == nil || *got != want {
			t.Errorf("ExtractCity(%q) = %v, want %q", msg, got, want)
		}
	}
}

func TestExtractTemporality_Immediate(t *testing.T) {
	e := newTestExtractor()
	tp := e.ExtractTemporality("mission imprévue demain matin")
	if tp.Horizon != catalog.Immediate {
		t.Fatalf("expected IMMEDIATE, got %v", tp.Horizon)
	}
	if tp.Date == nil || *tp.Date != "2026-07-30" {
		t.Fatalf("expected tomorrow's date, got %v", tp.Date)
	}
}

func TestExtractTemporality_ShortTermWithDays(t *testing.T) {
	e := newTestExtractor()
	tp := e.ExtractTemporality("j'ai besoin dans 5 jours")
	if tp.Horizon != catalog.ShortTerm {
		t.Fatalf("expected SHORT_TERM, got %v", tp.Horizon)
	}
	if tp.DaysEstimate == nil || *tp.DaysEstimate != 5 {
		t.Fatalf("expected 5 days, got %v", tp.DaysEstimate)
	}
}

func TestExtractTemporality_PlannedDefault(t *testing.T) {
	e := newTestExtractor()
	tp := e.ExtractTemporality("déménagement planifié pour l'année prochaine")
	if tp.Horizon != catalog.Planned {
		t.Fatalf("expected PLANNED, got %v", tp.Horizon)
	}
	if tp.DaysEstimate == nil || *tp.DaysEstimate != 90 {
		t.Fatalf("expected default 90 days, got %v", tp.DaysEstimate)
	}
}

func TestExtractUrgency_ExplicitField(t *testing.T) {
	e := newTestExtractor()
	if got := e.ExtractUrgency("peu importe", strp("Immédiat")); got != catalog.Immediate {
		t.Fatalf("got %v, want IMMEDIATE", got)
	}
	if got := e.ExtractUrgency("peu importe", strp("Planifié")); got != catalog.Planned {
		t.Fatalf("got %v, want PLANNED", got)
	}
}

func TestExtractUrgency_KeywordSweep(t *testing.T) {
	e := newTestExtractor()
	if got := e.ExtractUrgency("fuite d'eau dans la salle de bain", nil); got != catalog.Immediate {
		t.Fatalf("got %v, want IMMEDIATE", got)
	}
}

func TestExtractAll_ConstraintsDerivation(t *testing.T) {
	e := newTestExtractor()
	ents := e.ExtractAll("mission imprévue demain matin, besoin garde 2 enfants à Paris", nil)
	if ents.City == nil || *ents.City != "Paris" {
		t.Fatalf("expected Paris, got %v", ents.City)
	}
	if ents.Urgency != catalog.Immediate {
		t.Fatalf("expected IMMEDIATE urgency, got %v", ents.Urgency)
	}
	if ents.Constraints.City != catalog.CityPreferred {
		t.Fatalf("expected PREFERRED city constraint, got %v", ents.Constraints.City)
	}
	if ents.Constraints.Availability != catalog.Avail247 {
		t.Fatalf("expected 24/7 availability constraint, got %v", ents.Constraints.Availability)
	}
}

func TestIsAvailabilityCompatible(t *testing.T) {
	cases := []struct {
		dispo      string
		constraint catalog.AvailabilityConstraint
		want       bool
	}{
		{"24/7", catalog.Avail247, true},
		{"Service urgence", catalog.Avail247, true},
		{"Semaine uniquement 9h-18h", catalog.Avail247, false},
		{"Rapide, samedi matin", catalog.AvailRapide, true},
		{"Semaine uniquement", catalog.AvailRapide, false},
		{"Semaine uniquement", catalog.AvailSemaine, true},
		{"N'importe quoi", catalog.AvailAll, true},
	}
	for _, c := range cases {
		if got := IsAvailabilityCompatible(c.dispo, c.constraint); got != c.want {
			t.Errorf("IsAvailabilityCompatible(%q, %v) = %v, want %v", c.dispo, c.constraint, got, c.want)
		}
	}
}

func TestCalculateGeoScore(t *testing.T) {
	e := newTestExtractor()
	ctx := context.Background()

	if s, err := e.CalculateGeoScore(ctx, strp("Paris"), "Lyon", 0); err != nil || s != 1.0 {
		t.Fatalf("impact_geo=0 should always be 1.0, got %v err=%v", s, err)
	}
	if s, err := e.CalculateGeoScore(ctx, nil, "Lyon", 1); err != nil || s != 0.8 {
		t.Fatalf("missing need city should score 0.8, got %v err=%v", s, err)
	}
	if s, err := e.CalculateGeoScore(ctx, strp("Paris"), "Paris", 2); err != nil || s != 1.0 {
		t.Fatalf("same city should score 1.0, got %v err=%v", s, err)
	}
	if s, err := e.CalculateGeoScore(ctx, strp("Paris"), "Lyon", 1); err != nil || s <= 0 || s >= 1 {
		t.Fatalf("expected a score strictly in (0,1), got %v err=%v", s, err)
	}
	if _, err := e.CalculateGeoScore(ctx, strp("Paris"), "Lyon", 3); err == nil {
		t.Fatal("expected an error for invalid impact_geo")
	}
}

func TestCalculateGeoScore_UnknownCityFallback(t *testing.T) {
	e := newTestExtractor()
	s, err := e.CalculateGeoScore(context.Background(), strp("Perpignan"), "Paris", 1)
	if err != nil || s != 0.7 {
		t.Fatalf("expected 0.7 fallback for unresolved city, got %v err=%v", s, err)
	}
}
