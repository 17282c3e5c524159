package matcher

import (
	"github.com/sirupsen/logrus"

	"manifold/internal/domainfilter"
	"manifold/internal/geo"
	"manifold/internal/logging"
	"manifold/internal/ner"
)

// Option configures a Matcher during construction.
type Option func(*Matcher)

// WithLogger overrides the default process-wide logger.
func WithLogger(l *logrus.Logger) Option { return func(m *Matcher) { m.log = l } }

// WithGeoResolver overrides the default geo.Resolver (static table only, no
// remote geocoder).
func WithGeoResolver(r *geo.Resolver) Option { return func(m *Matcher) { m.geo = r } }

// WithNERExtractor overrides the default entity extractor. Useful in tests
// to pin the clock.
func WithNERExtractor(e *ner.Extractor) Option { return func(m *Matcher) { m.ner = e } }

// WithDomainFilter overrides the default keyword-based domain filter.
func WithDomainFilter(f domainfilter.FilterFunc) Option { return func(m *Matcher) { m.domainFilter = f } }

// WithDefaultThreshold overrides the absolute score floor used when a query
// does not supply one explicitly.
func WithDefaultThreshold(t float64) Option { return func(m *Matcher) { m.defaultThreshold = t } }

// WithDefaultImpactGeo overrides the impact_geo used when a query and its
// request both omit one.
func WithDefaultImpactGeo(impactGeo int) Option { return func(m *Matcher) { m.defaultImpactGeo = impactGeo } }

// WithCandidatePoolSize overrides how many cosine-ranked candidates are
// carried into the re-scoring pipeline before the pipeline's own adaptive
// top-K applies. This is a performance bound, not a result-size guarantee.
func WithCandidatePoolSize(n int) Option { return func(m *Matcher) { m.candidatePoolSize = n } }

func defaultLogger() *logrus.Logger { return logging.Log }
