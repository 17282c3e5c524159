// Package ner implements the rule-based (non-learned) entity extraction
// described in spec.md §4.3: city, temporal horizon, and deduced urgency,
// plus the matching constraints and availability-compatibility predicate
// derived from them.
package ner

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"manifold/internal/catalog"
	"manifold/internal/geo"
	"manifold/internal/textnorm"
)

// Clock abstracts "now" so extraction is deterministic under test, grounded
// on the Clock/SystemClock pair in the teacher's rag/service package.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// villesFrance is the closed city vocabulary recognized by the extractor,
// ported from original_source/src/utils/ner_extractor.py VILLES_FRANCE.
var villesFrance = []string{
	"Paris", "Lyon", "Marseille", "Toulouse", "Lille", "Bordeaux",
	"Nice", "Nantes", "Strasbourg", "Montpellier", "Rennes", "Toulon",
	"Grenoble", "Dijon", "Angers", "Brest", "Le Mans", "Metz",
	"Reims", "Orléans", "Bourges", "Vendée", "Versailles", "Rouen",
	"Mulhouse", "Caen", "Nancy", "Saint-Étienne", "Avignon",
}

var cityPrefixes = []string{"à", "sur", "de", "vers", "pour"}

var (
	patternsImmediate = []string{
		`demain`, `aujourd'hui`, `ce soir`, `tout de suite`,
		`immédiat`, `urgent`, `dans \d{1,2}h`, `sous \d{1,2}h`,
		`dans 24h`, `dans 48h`, `après-demain`,
	}
	patternsShortTerm = []string{
		`dans \d+ jours?`, `dans \d+ semaines?`, `d'ici \d+ jours?`,
		`d'ici \d+ semaines?`, `la semaine prochaine`, `le mois prochain`,
		`court terme`, `prochainement`,
	}
	patternsPlanned = []string{
		`dans \d+ mois`, `en \w+`, `pour \w+ \d{4}`,
		`planifié`, `prévu`, `programmé`, `dans \d+ ans?`,
	}
)

var keywordsUrgenceHigh = []string{
	"urgence", "urgent", "immédiat", "critique", "panne",
	"fuite", "cassé", "bloqué", "rage de dent", "douleur",
	"mission imprévue", "imprévu", "dernière minute",
}

var keywordsUrgenceMedium = []string{
	"rapidement", "vite", "bientôt", "court terme",
	"sous peu", "dès que possible",
}

var moisFrancais = map[string]time.Month{
	"janvier": time.January, "février": time.February, "mars": time.March,
	"avril": time.April, "mai": time.May, "juin": time.June,
	"juillet": time.July, "août": time.August, "septembre": time.September,
	"octobre": time.October, "novembre": time.November, "décembre": time.December,
}

// Extractor extracts entities from free-text service requests.
type Extractor struct {
	clock Clock
	geo   *geo.Resolver
}

// NewExtractor constructs an Extractor. clock and resolver may be nil, in
// which case SystemClock and a geo.Resolver with no geocoder are used.
func NewExtractor(clock Clock, resolver *geo.Resolver) *Extractor {
	if clock == nil {
		clock = SystemClock{}
	}
	if resolver == nil {
		resolver = geo.NewResolver(nil)
	}
	return &Extractor{clock: clock, geo: resolver}
}

// ExtractCity scans message for a whole-word known city, optionally preceded
// by one of {"à","sur","de","vers","pour"}, or the "mutation/unité" context
// patterns. Returns the city in its canonical capitalization.
func (e *Extractor) ExtractCity(message string) *string {
	lower := strings.ToLower(message)

	for _, ville := range villesFrance {
		vl := strings.ToLower(ville)
		if matchesCityPattern(lower, vl) {
			v := ville
			return &v
		}
	}

	if m := regexp.MustCompile(`mutation (?:sur|à|vers) (\w+)`).FindStringSubmatch(lower); m != nil {
		if v := matchKnownCity(m[1]); v != "" {
			return &v
		}
	}
	if m := regexp.MustCompile(`unité (?:de|à) (\w+)`).FindStringSubmatch(lower); m != nil {
		if v := matchKnownCity(m[1]); v != "" {
			return &v
		}
	}
	return nil
}

func matchKnownCity(candidate string) string {
	for _, ville := range villesFrance {
		if strings.EqualFold(ville, candidate) {
			return ville
		}
	}
	return ""
}

func matchesCityPattern(lowerMessage, lowerCity string) bool {
	escaped := regexp.QuoteMeta(lowerCity)
	patterns := make([]string, 0, len(cityPrefixes)+1)
	for _, p := range cityPrefixes {
		patterns = append(patterns, `\b`+p+` `+escaped+`\b`)
	}
	patterns = append(patterns, `\b`+escaped+`\b`)
	for _, pat := range patterns {
		if regexp.MustCompile(pat).MatchString(lowerMessage) {
			return true
		}
	}
	return false
}

// Temporality is the raw result of temporal-pattern extraction.
type Temporality struct {
	Date         *string
	Horizon      catalog.Horizon
	DaysEstimate *int
}

// ExtractTemporality implements the three ordered pattern groups of
// spec.md §4.3, in order IMMEDIATE, SHORT_TERM, PLANNED, with date
// resolution when a quantity or month name is present and reference
// defaults otherwise.
func (e *Extractor) ExtractTemporality(message string) Temporality {
	lower := strings.ToLower(message)
	now := e.clock.Now()

	for _, pat := range patternsImmediate {
		if regexp.MustCompile(pat).MatchString(lower) {
			days := 0
			t := Temporality{Horizon: catalog.Immediate, DaysEstimate: &days}
			switch {
			case strings.Contains(lower, "après-demain"):
				t.Date = isoDate(now.AddDate(0, 0, 2))
			case strings.Contains(lower, "demain"):
				t.Date = isoDate(now.AddDate(0, 0, 1))
			case strings.Contains(lower, "aujourd'hui") || strings.Contains(lower, "ce soir"):
				t.Date = isoDate(now)
			}
			return t
		}
	}

	for _, pat := range patternsShortTerm {
		re := regexp.MustCompile(pat)
		m := re.FindString(lower)
		if m == "" {
			continue
		}
		t := Temporality{Horizon: catalog.ShortTerm}
		if nb := regexp.MustCompile(`(\d+)\s+(jour|semaine)`).FindStringSubmatch(m); nb != nil {
			n, _ := strconv.Atoi(nb[1])
			days := n
			if nb[2] == "semaine" {
				days = n * 7
			}
			t.DaysEstimate = &days
			t.Date = isoDate(now.AddDate(0, 0, days))
		} else {
			days := 15
			t.DaysEstimate = &days
		}
		return t
	}

	for _, pat := range patternsPlanned {
		re := regexp.MustCompile(pat)
		m := re.FindString(lower)
		if m == "" {
			continue
		}
		t := Temporality{Horizon: catalog.Planned}
		if nb := regexp.MustCompile(`(\d+)\s+mois`).FindStringSubmatch(m); nb != nil {
			months, _ := strconv.Atoi(nb[1])
			days := months * 30
			t.DaysEstimate = &days
			t.Date = isoDate(now.AddDate(0, 0, days))
		} else {
			days := 90
			t.DaysEstimate = &days
		}
		for name, month := range moisFrancais {
			if strings.Contains(lower, name) {
				year := now.Year()
				if month < now.Month() {
					year++
				}
				target := time.Date(year, month, 15, 0, 0, 0, 0, time.UTC)
				t.Date = isoDate(target)
				days := int(math.Round(target.Sub(now).Hours() / 24))
				t.DaysEstimate = &days
				break
			}
		}
		return t
	}

	// No explicit pattern: fall back to implicit urgency-keyword sweep.
	switch {
	case containsAny(lower, keywordsUrgenceHigh):
		days := 0
		return Temporality{Horizon: catalog.Immediate, DaysEstimate: &days}
	case containsAny(lower, keywordsUrgenceMedium):
		days := 7
		return Temporality{Horizon: catalog.ShortTerm, DaysEstimate: &days}
	}
	return Temporality{}
}

func isoDate(t time.Time) *string {
	s := t.Format("2006-01-02")
	return &s
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// ExtractUrgency deduces the request's urgency. An explicit urgency field
// (when present) is mapped deterministically; otherwise a keyword sweep,
// then the temporal horizon, then STANDARD.
func (e *Extractor) ExtractUrgency(message string, explicitUrgency *string) catalog.Horizon {
	if explicitUrgency != nil && *explicitUrgency != "" {
		lower := strings.ToLower(*explicitUrgency)
		switch {
		case strings.Contains(lower, "immédiat") || strings.Contains(lower, "urgent"):
			return catalog.Immediate
		case strings.Contains(lower, "court terme"):
			return catalog.ShortTerm
		case strings.Contains(lower, "planifié"):
			return catalog.Planned
		default:
			return catalog.Standard
		}
	}

	lower := strings.ToLower(message)
	if containsAny(lower, keywordsUrgenceHigh) {
		return catalog.Immediate
	}
	if containsAny(lower, keywordsUrgenceMedium) {
		return catalog.ShortTerm
	}
	if t := e.ExtractTemporality(message); t.Horizon != "" {
		return t.Horizon
	}
	return catalog.Standard
}

// ExtractAll runs the full extraction pipeline for one message.
func (e *Extractor) ExtractAll(message string, explicitUrgency *string) catalog.ExtractedEntities {
	city := e.ExtractCity(message)
	tempo := e.ExtractTemporality(message)
	urgence := e.ExtractUrgency(message, explicitUrgency)

	horizon := tempo.Horizon
	if horizon == "" {
		horizon = urgence
	}

	return catalog.ExtractedEntities{
		City:         city,
		Date:         tempo.Date,
		Horizon:      horizon,
		DaysEstimate: tempo.DaysEstimate,
		Urgency:      urgence,
		Constraints:  deriveConstraints(city, horizon, urgence),
	}
}

func deriveConstraints(city *string, horizon, urgence catalog.Horizon) catalog.MatchingConstraints {
	c := catalog.MatchingConstraints{City: catalog.CityNational, Availability: catalog.AvailSemaine}
	if city != nil {
		c.City = catalog.CityPreferred
	}

	switch {
	case urgence == catalog.Immediate || horizon == catalog.Immediate:
		c.Availability = catalog.Avail247
	case urgence == catalog.ShortTerm || horizon == catalog.ShortTerm:
		c.Availability = catalog.AvailRapide
	case urgence == catalog.Planned || horizon == catalog.Planned:
		c.Availability = catalog.AvailAll
	default:
		c.Availability = catalog.AvailSemaine
	}
	return c
}

// IsAvailabilityCompatible implements the availability-compatibility
// predicate of spec.md §4.3.
func IsAvailabilityCompatible(providerAvailability string, constraint catalog.AvailabilityConstraint) bool {
	lower := strings.ToLower(providerAvailability)
	switch constraint {
	case catalog.AvailAll, catalog.AvailSemaine:
		return true
	case catalog.Avail247:
		return strings.Contains(lower, "24/7") || strings.Contains(lower, "urgence")
	case catalog.AvailRapide:
		return strings.Contains(lower, "24/7") ||
			strings.Contains(lower, "urgence") ||
			strings.Contains(lower, "rapide") ||
			strings.Contains(lower, "samedi") ||
			strings.Contains(lower, "en ligne")
	default:
		return true
	}
}

// alphaCoefficients maps impact_geo to the exponential decay coefficient of
// spec.md's geo-score formula.
var alphaCoefficients = map[int]float64{0: 0.0, 1: 0.015, 2: 0.05}

// CalculateGeoScore computes the geo score for one provider per spec.md
// §4.6's companion formula. impactGeo must be 0, 1, or 2; any other value is
// a contract violation and returns an error (spec.md §7).
func (e *Extractor) CalculateGeoScore(ctx context.Context, needCity *string, providerCity string, impactGeo int) (float64, error) {
	alpha, ok := alphaCoefficients[impactGeo]
	if !ok {
		return 0, fmt.Errorf("ner: impact_geo must be 0, 1 or 2, got %d", impactGeo)
	}

	if alpha == 0.0 {
		return 1.0, nil
	}
	if needCity == nil || *needCity == "" {
		return 0.8, nil
	}
	if textnorm.EqualFold(*needCity, providerCity) {
		return 1.0, nil
	}

	km, ok := e.geo.DistanceKM(ctx, *needCity, providerCity)
	if !ok {
		return 0.7, nil
	}

	score := math.Exp(-alpha * km)
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}
