package matcher

// matchPlan is the normalized set of knobs a single FindMatches call runs
// with, after defaults and request fields are reconciled. Mirrors the
// teacher's QueryPlan in internal/rag/retrieve/query.go: normalize once up
// front, then every downstream stage reads the plan instead of re-deriving
// values.
type matchPlan struct {
	topK              int
	threshold         float64
	impactGeo         int
	applyDomainFilter bool
}

// MatchOption configures a single FindMatches/BatchMatch call.
type MatchOption func(*matchPlan)

// WithTopK overrides the candidate pool size carried into the re-scoring
// pipeline for this call.
func WithTopK(n int) MatchOption { return func(p *matchPlan) { p.topK = n } }

// WithThreshold overrides the absolute score floor for this call.
func WithThreshold(t float64) MatchOption { return func(p *matchPlan) { p.threshold = t } }

// WithImpactGeo overrides impact_geo for this call, taking precedence over
// both the request's ImpactGeo field and the matcher's default.
func WithImpactGeo(impactGeo int) MatchOption {
	return func(p *matchPlan) { p.impactGeo = impactGeo }
}

// WithoutDomainFilter skips the hard keyword pre-filter for this call,
// scoring the request against the entire catalog.
func WithoutDomainFilter() MatchOption {
	return func(p *matchPlan) { p.applyDomainFilter = false }
}
