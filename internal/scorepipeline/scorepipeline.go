// Package scorepipeline re-scores a set of cosine-ranked provider candidates
// through a fixed sequence of independent, composable stages. Each stage is
// an exported function over a Candidates struct-of-arrays, mirroring the
// stage-as-function style of the teacher's retrieve package (FuseRRF,
// Diversify, AttachDocMetadata): every stage takes the previous state and
// returns the next, so stages can be tested and reasoned about in isolation.
// Stages are not pure: the scoring stages (BlendGeo, BoostUrgency,
// PenalizeSpecialization, AmplifyGap, LabelConfidence) write into the
// Candidates they are given and return that same value; the filtering
// stages return a new Candidates, and FilterSecondaryRanks also reorders
// its input in place.
package scorepipeline

import (
	"context"
	"math"
	"sort"

	"manifold/internal/catalog"
	"manifold/internal/ner"
	"manifold/internal/textnorm"
)

// GeoScorer computes the geographic compatibility score between a need's
// city and a provider's city. *ner.Extractor satisfies this.
type GeoScorer interface {
	CalculateGeoScore(ctx context.Context, needCity *string, providerCity string, impactGeo int) (float64, error)
}

// Candidates is the struct-of-arrays carried through the pipeline. Every
// slice is index-aligned with Providers. Columns set by earlier stages are
// never mutated by later ones; Score is the only column a stage may update
// in place, and it is snapshotted into a named column at the point each
// stage's contribution becomes final.
type Candidates struct {
	Providers []catalog.Provider

	Score []float64 // running score, updated stage to stage

	BaseScore            []float64 // initial cosine similarity (immutable)
	GeoScore             []float64 // set by BlendGeo
	UrgencyFactor        []float64 // multiplier applied by BoostUrgency
	SpecializationFactor []float64 // multiplier applied by PenalizeSpecialization
	ScoreBeforeAmplify   []float64 // snapshot just before AmplifyGap
	FinalScore           []float64 // snapshot after AmplifyGap, used by every later stage
	Confidence           []string  // set by LabelConfidence
}

// NewCandidates builds the initial pipeline state from providers and their
// base cosine scores. The two slices must be the same length.
func NewCandidates(providers []catalog.Provider, baseScores []float64) *Candidates {
	n := len(providers)
	c := &Candidates{
		Providers:            make([]catalog.Provider, n),
		Score:                make([]float64, n),
		BaseScore:            make([]float64, n),
		GeoScore:             make([]float64, n),
		UrgencyFactor:        make([]float64, n),
		SpecializationFactor: make([]float64, n),
		ScoreBeforeAmplify:   make([]float64, n),
		FinalScore:           make([]float64, n),
		Confidence:           make([]string, n),
	}
	copy(c.Providers, providers)
	copy(c.BaseScore, baseScores)
	copy(c.Score, baseScores)
	return c
}

func (c *Candidates) Len() int { return len(c.Providers) }

// keep rebuilds every column to contain only the given row indices, in
// order. It is the one place rows are dropped.
func (c *Candidates) keep(idx []int) *Candidates {
	out := &Candidates{
		Providers:            make([]catalog.Provider, len(idx)),
		Score:                make([]float64, len(idx)),
		BaseScore:            make([]float64, len(idx)),
		GeoScore:             make([]float64, len(idx)),
		UrgencyFactor:        make([]float64, len(idx)),
		SpecializationFactor: make([]float64, len(idx)),
		ScoreBeforeAmplify:   make([]float64, len(idx)),
		FinalScore:           make([]float64, len(idx)),
		Confidence:           make([]string, len(idx)),
	}
	for newI, oldI := range idx {
		out.Providers[newI] = c.Providers[oldI]
		out.Score[newI] = c.Score[oldI]
		out.BaseScore[newI] = c.BaseScore[oldI]
		out.GeoScore[newI] = c.GeoScore[oldI]
		out.UrgencyFactor[newI] = c.UrgencyFactor[oldI]
		out.SpecializationFactor[newI] = c.SpecializationFactor[oldI]
		out.ScoreBeforeAmplify[newI] = c.ScoreBeforeAmplify[oldI]
		out.FinalScore[newI] = c.FinalScore[oldI]
		out.Confidence[newI] = c.Confidence[oldI]
	}
	return out
}

// FilterAvailability drops providers whose availability is incompatible
// with the constraint NER derived from the request.
func FilterAvailability(c *Candidates, constraint catalog.AvailabilityConstraint) *Candidates {
	var idx []int
	for i, p := range c.Providers {
		if ner.IsAvailabilityCompatible(p.Availability, constraint) {
			idx = append(idx, i)
		}
	}
	return c.keep(idx)
}

var geoBlendWeights = map[int][2]float64{
	0: {1.0, 0.0},
	1: {0.65, 0.35},
	2: {0.45, 0.55},
}

// BlendGeo combines each row's base cosine score with a geographic score.
// If needCity is nil, geography is skipped entirely: GeoScore is recorded
// as 1.0 and Score is left equal to BaseScore.
func BlendGeo(ctx context.Context, c *Candidates, needCity *string, impactGeo int, scorer GeoScorer) (*Candidates, error) {
	weights, ok := geoBlendWeights[impactGeo]
	if !ok {
		return nil, errInvalidImpactGeo(impactGeo)
	}
	ws, wg := weights[0], weights[1]

	if needCity == nil || *needCity == "" {
		for i := range c.Providers {
			c.GeoScore[i] = 1.0
			c.Score[i] = c.BaseScore[i]
		}
		return c, nil
	}

	for i, p := range c.Providers {
		providerCity := ""
		if p.City != nil {
			providerCity = *p.City
		}
		geo, err := scorer.CalculateGeoScore(ctx, needCity, providerCity, impactGeo)
		if err != nil {
			return nil, err
		}
		c.GeoScore[i] = geo
		c.Score[i] = ws*c.BaseScore[i] + wg*geo
	}
	return c, nil
}

// BoostUrgency multiplies the score of providers available around the
// clock when the need's urgency is IMMEDIATE, clipped to 1.0.
func BoostUrgency(c *Candidates, urgency catalog.Horizon) *Candidates {
	for i, p := range c.Providers {
		factor := 1.0
		if urgency == catalog.Immediate && isAlwaysAvailable(p.Availability) {
			factor = 1.15
		}
		c.UrgencyFactor[i] = factor
		c.Score[i] = math.Min(c.Score[i]*factor, 1.0)
	}
	return c
}

func isAlwaysAvailable(availability string) bool {
	return textnorm.ContainsFold(availability, "24/7") || textnorm.ContainsFold(availability, "urgence")
}

// PenalizeSpecialization discounts providers with broad, unfocused
// expertise: the more comma-separated domain tokens, the larger the
// discount.
func PenalizeSpecialization(c *Candidates) *Candidates {
	for i, p := range c.Providers {
		factor := specializationFactor(catalog.ExpertiseTokenCount(p.Expertise))
		c.SpecializationFactor[i] = factor
		c.Score[i] *= factor
	}
	return c
}

func specializationFactor(tokenCount int) float64 {
	switch {
	case tokenCount <= 3:
		return 1.0
	case tokenCount == 4:
		return 0.95
	case tokenCount == 5:
		return 0.90
	default:
		return 0.85
	}
}

// AmplifyGap widens the spread between strong and weak matches with a
// piecewise curve, so a small lead in base score becomes a clearer lead in
// the final ranking.
func AmplifyGap(c *Candidates) *Candidates {
	for i := range c.Providers {
		c.ScoreBeforeAmplify[i] = c.Score[i]
		amplified := amplifyScore(c.Score[i])
		c.Score[i] = amplified
		c.FinalScore[i] = amplified
	}
	return c
}

func amplifyScore(s float64) float64 {
	switch {
	case s >= 0.70:
		return math.Min(1.25*s, 1.0)
	case s >= 0.60:
		return 1.15 * s
	case s >= 0.50:
		return 1.10 * s
	case s >= 0.45:
		return 1.05 * s
	case s >= 0.35:
		return s
	case s >= 0.30:
		return 0.85 * s
	default:
		return 0.70 * s
	}
}

// sortDescending orders rows by Score, highest first, breaking ties by
// provider ID for a stable, reproducible ordering.
func sortDescending(c *Candidates) {
	idx := make([]int, c.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		if c.Score[ia] != c.Score[ib] {
			return c.Score[ia] > c.Score[ib]
		}
		return c.Providers[ia].ID < c.Providers[ib].ID
	})
	*c = *c.keep(idx)
}

// FilterSecondaryRanks sorts rows by score and keeps only providers whose
// score is both at least 70% of the leading score and at least the 0.30
// floor, i.e. score >= max(0.70*top, 0.30).
func FilterSecondaryRanks(c *Candidates) *Candidates {
	sortDescending(c)
	if c.Len() == 0 {
		return c
	}
	top := c.Score[0]
	floor := math.Max(0.70*top, 0.30)
	var idx []int
	for i, s := range c.Score {
		if s >= floor {
			idx = append(idx, i)
		}
	}
	return c.keep(idx)
}

// FilterAbsoluteThreshold drops rows below max(callerThreshold, 0.10).
func FilterAbsoluteThreshold(c *Candidates, callerThreshold float64) *Candidates {
	thr := math.Max(callerThreshold, 0.10)
	var idx []int
	for i, s := range c.Score {
		if s >= thr {
			idx = append(idx, i)
		}
	}
	return c.keep(idx)
}

// TruncateAdaptiveTopK keeps only the leading rows, where K scales with how
// strong the top match is: 3 rows if it is very relevant, 2 if merely
// relevant, otherwise 1. Rows must already be sorted descending.
func TruncateAdaptiveTopK(c *Candidates) *Candidates {
	if c.Len() == 0 {
		return c
	}
	top := c.Score[0]
	k := 1
	switch {
	case top >= 0.85:
		k = 3
	case top >= 0.70:
		k = 2
	}
	if k > c.Len() {
		k = c.Len()
	}
	idx := make([]int, k)
	for i := 0; i < k; i++ {
		idx[i] = i
	}
	return c.keep(idx)
}

// LabelConfidence assigns the closed-vocabulary confidence label for each
// row's final score.
func LabelConfidence(c *Candidates) *Candidates {
	for i, s := range c.Score {
		c.Confidence[i] = catalog.ConfidenceLabel(s)
	}
	return c
}

// RunPipeline runs all nine stages in their normative order and returns the
// terminal, labeled result rows.
func RunPipeline(
	ctx context.Context,
	providers []catalog.Provider,
	baseScores []float64,
	entities catalog.ExtractedEntities,
	impactGeo int,
	threshold float64,
	scorer GeoScorer,
) ([]catalog.MatchResult, error) {
	c := NewCandidates(providers, baseScores)

	c = FilterAvailability(c, entities.Constraints.Availability)

	c, err := BlendGeo(ctx, c, entities.City, impactGeo, scorer)
	if err != nil {
		return nil, err
	}

	c = BoostUrgency(c, entities.Urgency)
	c = PenalizeSpecialization(c)
	c = AmplifyGap(c)
	c = FilterSecondaryRanks(c)
	c = FilterAbsoluteThreshold(c, threshold)
	c = TruncateAdaptiveTopK(c)
	c = LabelConfidence(c)

	return toResults(c), nil
}

func toResults(c *Candidates) []catalog.MatchResult {
	out := make([]catalog.MatchResult, c.Len())
	for i, p := range c.Providers {
		out[i] = catalog.MatchResult{
			ProviderID:           p.ID,
			Name:                 p.CompanyName,
			Domaines:             p.Expertise,
			Disponibilite:        p.Availability,
			Ville:                p.City,
			BaseScore:            c.BaseScore[i],
			GeoScore:             c.GeoScore[i],
			UrgencyFactor:        c.UrgencyFactor[i],
			SpecializationFactor: c.SpecializationFactor[i],
			FinalScore:           c.FinalScore[i],
			Confidence:           c.Confidence[i],
		}
	}
	return out
}

type invalidImpactGeoError struct{ value int }

func (e invalidImpactGeoError) Error() string {
	return "scorepipeline: impact_geo must be 0, 1 or 2"
}

func errInvalidImpactGeo(value int) error { return invalidImpactGeoError{value: value} }
