// Package matcher is the facade that ties text normalization, domain
// filtering, embeddings, and score re-ranking into one query API.
package matcher

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"manifold/internal/catalog"
	"manifold/internal/domainfilter"
	"manifold/internal/embedding"
	"manifold/internal/geo"
	"manifold/internal/ner"
	"manifold/internal/scorepipeline"
)

const defaultCandidatePoolSize = 20

// Matcher holds a provider catalog, its pre-computed embeddings, and the
// collaborators needed to turn one request into ranked results. All fields
// are read-only after New returns; concurrent FindMatches/BatchMatch calls
// are safe.
type Matcher struct {
	providers []catalog.Provider
	vectors   [][]float32
	idIndex   map[string]int

	backend      embedding.Backend
	ner          *ner.Extractor
	geo          *geo.Resolver
	domainFilter domainfilter.FilterFunc
	log          *logrus.Logger

	defaultThreshold  float64
	defaultImpactGeo  int
	candidatePoolSize int
}

// New builds a Matcher by embedding every provider's text surface once.
// It fails fast if backend is nil or providers is empty (construction-time
// fatal, per the teacher's ErrNotImplemented sentinel pattern).
func New(ctx context.Context, providers []catalog.Provider, backend embedding.Backend, opts ...Option) (*Matcher, error) {
	if backend == nil {
		return nil, ErrNoBackend
	}
	catalogued, err := catalog.New(providers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyCatalog, err)
	}

	m := &Matcher{
		providers:         catalogued,
		backend:           backend,
		geo:               geo.NewResolver(nil),
		domainFilter:      domainfilter.Filter,
		log:               defaultLogger(),
		defaultThreshold:  0.10,
		defaultImpactGeo:  1,
		candidatePoolSize: defaultCandidatePoolSize,
	}
	for _, o := range opts {
		o(m)
	}
	// Build the extractor from the (possibly overridden) geo resolver unless
	// the caller supplied its own extractor directly.
	if m.ner == nil {
		m.ner = ner.NewExtractor(ner.SystemClock{}, m.geo)
	}

	texts := make([]string, len(catalogued))
	m.idIndex = make(map[string]int, len(catalogued))
	for i, p := range catalogued {
		texts[i] = catalog.BuildProviderText(p)
		m.idIndex[p.ID] = i
	}
	vectors, err := backend.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("matcher: failed to embed catalog: %w", err)
	}
	m.vectors = vectors
	return m, nil
}

func (m *Matcher) plan(req catalog.Request, opts []MatchOption) matchPlan {
	p := matchPlan{
		topK:              m.candidatePoolSize,
		threshold:         m.defaultThreshold,
		impactGeo:         m.defaultImpactGeo,
		applyDomainFilter: true,
	}
	if req.ImpactGeo != nil {
		p.impactGeo = *req.ImpactGeo
	}
	for _, o := range opts {
		o(&p)
	}
	return p
}

// FindMatches scores one request against the catalog: DomainFilter narrows
// the candidate set, the request is embedded once, cosine similarity ranks
// the filtered subset, and ScorePipeline produces the final labeled rows.
func (m *Matcher) FindMatches(ctx context.Context, req catalog.Request, opts ...MatchOption) ([]catalog.MatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	plan := m.plan(req, opts)

	category, subCategory := "", ""
	if req.Category != nil {
		category = *req.Category
	}
	if req.SubCategory != nil {
		subCategory = *req.SubCategory
	}

	candidates := m.providers
	if plan.applyDomainFilter {
		kept, bypassed := m.domainFilter(m.providers, category, subCategory)
		if bypassed {
			m.log.WithFields(logrus.Fields{"category": category, "sub_category": subCategory}).
				Warn("matcher: domain filter bypassed, falling back to full catalog")
		}
		candidates = kept
	}

	reqVectors, err := m.backend.EmbedBatch(ctx, []string{catalog.BuildRequestText(req)})
	if err != nil {
		return nil, fmt.Errorf("matcher: failed to embed request: %w", err)
	}
	reqVector := reqVectors[0]

	scored := make([]scoredProvider, 0, len(candidates))
	for _, p := range candidates {
		idx, ok := m.idIndex[p.ID]
		if !ok {
			continue
		}
		scored = append(scored, scoredProvider{
			provider: p,
			score:    embedding.CosineSimilarity(reqVector, m.vectors[idx]),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if plan.topK > 0 && len(scored) > plan.topK {
		scored = scored[:plan.topK]
	}

	pool := make([]catalog.Provider, len(scored))
	baseScores := make([]float64, len(scored))
	for i, sp := range scored {
		pool[i] = sp.provider
		baseScores[i] = sp.score
	}

	entities := m.ner.ExtractAll(req.Message, req.Urgency)
	if req.City != nil {
		entities.City = req.City
	}

	return scorepipeline.RunPipeline(ctx, pool, baseScores, entities, plan.impactGeo, plan.threshold, m.ner)
}

type scoredProvider struct {
	provider catalog.Provider
	score    float64
}

// BatchRow pairs one request's ranked results with any per-row error, so a
// single bad need can never abort the rest of the batch.
type BatchRow struct {
	Request catalog.Request
	Results []catalog.MatchResult
	Err     error
}

// BatchMatch runs FindMatches over every request concurrently, sharing the
// single encoded provider matrix. Fan-out is bounded and grounded on
// internal/rag/retrieve/candidates.go's ParallelCandidates: each worker gets
// its own scratch buffers, the provider matrix is read-only and shared
// freely.
func (m *Matcher) BatchMatch(ctx context.Context, reqs []catalog.Request, opts ...MatchOption) []BatchRow {
	out := make([]BatchRow, len(reqs))
	if len(reqs) == 0 {
		return out
	}

	const maxWorkers = 8
	workers := maxWorkers
	if workers > len(reqs) {
		workers = len(reqs)
	}

	jobs := make(chan int)
	go func() {
		defer close(jobs)
		for i := range reqs {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	done := make(chan struct{})
	for w := 0; w < workers; w++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := range jobs {
				results, err := m.FindMatches(ctx, reqs[i], opts...)
				if err != nil {
					err = fmt.Errorf("need %d: %w", i, err)
					m.log.WithError(err).Warn("matcher: batch row failed, continuing")
				}
				out[i] = BatchRow{Request: reqs[i], Results: results, Err: err}
			}
		}()
	}
	for w := 0; w < workers; w++ {
		<-done
	}
	return out
}

// MatchNeed is a convenience wrapper for the common case of a free-text
// need with no structured fields. impact_geo falls back to the matcher's
// default, which is 1 (local service) unless WithDefaultImpactGeo set
// another value.
func (m *Matcher) MatchNeed(ctx context.Context, message string, opts ...MatchOption) ([]catalog.MatchResult, error) {
	return m.FindMatches(ctx, catalog.Request{Message: message}, opts...)
}

// needRowColumns are the columns MatchNeedRow reads from a flat need record,
// mirroring the CSV columns original_source's match_need_row pulls off a
// pandas.Series row.
const (
	needRowMessage      = "Message_Utilisateur"
	needRowCategory     = "Categorie_Majeure"
	needRowSubCategory  = "Sous_Categorie"
	needRowUrgency      = "Niveau_Urgence"
	needRowCity         = "Ville_Detectee"
	needRowImpactGeo    = "Impact_Geo"
)

// MatchNeedRow is a row-oriented convenience mirroring original_source's
// match_need_row: it builds a Request from a flat string-keyed need record
// (e.g. one row of a needs file) instead of a bare message, and reads
// impact_geo from the row, defaulting to 1 when the column is absent or
// empty, exactly as match_need_row does.
func (m *Matcher) MatchNeedRow(ctx context.Context, row map[string]string, opts ...MatchOption) ([]catalog.MatchResult, error) {
	req := catalog.Request{Message: row[needRowMessage]}
	if v, ok := row[needRowCategory]; ok && v != "" {
		req.Category = &v
	}
	if v, ok := row[needRowSubCategory]; ok && v != "" {
		req.SubCategory = &v
	}
	if v, ok := row[needRowUrgency]; ok && v != "" {
		req.Urgency = &v
	}
	if v, ok := row[needRowCity]; ok && v != "" {
		req.City = &v
	}

	impactGeo := 1
	if v, ok := row[needRowImpactGeo]; ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			impactGeo = parsed
		}
	}
	req.ImpactGeo = &impactGeo

	return m.FindMatches(ctx, req, opts...)
}
