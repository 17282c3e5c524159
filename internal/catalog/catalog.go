// Package catalog defines the provider/request data model and the text
// surfaces fed to the embedding backend.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyCatalog is returned by New when the provider slice is empty.
var ErrEmptyCatalog = errors.New("catalog: provider list is empty")

// Provider is a single catalog entry. Immutable after construction.
type Provider struct {
	ID           string
	CompanyName  string
	Expertise    string // comma-separated domain tokens
	Availability string // free text, e.g. "24/7", "urgence", "semaine"
	Description  string
	City         *string // optional
}

// Horizon is the closed temporal-horizon / urgency vocabulary.
type Horizon string

const (
	Immediate Horizon = "IMMEDIATE"
	ShortTerm Horizon = "SHORT_TERM"
	Planned   Horizon = "PLANNED"
	Standard  Horizon = "STANDARD"
)

// CityConstraint is the closed city-matching constraint vocabulary.
type CityConstraint string

const (
	CityStrict     CityConstraint = "STRICT"
	CityPreferred  CityConstraint = "PREFERRED"
	CityFlexible   CityConstraint = "FLEXIBLE"
	CityNational   CityConstraint = "NATIONAL"
)

// AvailabilityConstraint is the closed availability-matching vocabulary.
type AvailabilityConstraint string

const (
	Avail247     AvailabilityConstraint = "24/7"
	AvailRapide  AvailabilityConstraint = "RAPIDE"
	AvailSemaine AvailabilityConstraint = "SEMAINE"
	AvailAll     AvailabilityConstraint = "ALL"
)

// Confidence labels, a pure function of the final score (spec.md §4.6 step 9).
const (
	ConfidenceTresPertinent = "Très pertinent"
	ConfidencePertinent     = "Pertinent"
	ConfidenceApprochant    = "Approchant"
	ConfidenceAVerifier     = "À vérifier"
)

// MatchingConstraints holds the derived matching constraints for one request.
type MatchingConstraints struct {
	City         CityConstraint
	Availability AvailabilityConstraint
}

// ExtractedEntities is the output of the NER stage.
type ExtractedEntities struct {
	City         *string
	Date         *string // ISO-8601, nullable
	Horizon      Horizon
	DaysEstimate *int
	Urgency      Horizon
	Constraints  MatchingConstraints
}

// Request is a free-text need with optional structured fields.
type Request struct {
	Message     string
	Category    *string
	SubCategory *string
	Urgency     *string
	City        *string
	ImpactGeo   *int
}

// MatchResult is one ranked row of a matching query's output.
type MatchResult struct {
	ProviderID           string
	Name                 string
	Domaines             string
	Disponibilite        string
	Ville                *string
	BaseScore            float64
	GeoScore             float64
	UrgencyFactor        float64
	SpecializationFactor float64
	FinalScore           float64
	Confidence           string
}

// ErrMalformedRow is returned by LoadProviders when a row has fewer than the
// required 4 columns.
var ErrMalformedRow = errors.New("catalog: row has fewer than 4 columns (id, Nom_Entreprise, Domaines_Expertise, Disponibilite)")

// LoadProviders builds providers from pre-tokenized tabular rows, one row
// per provider, columns in the order {id, Nom_Entreprise, Domaines_Expertise,
// Disponibilite, Description_Service, Ville?}. Description_Service and Ville
// are optional trailing columns. Parsing a source file into rows is left to
// the caller.
func LoadProviders(rows [][]string) ([]Provider, error) {
	out := make([]Provider, 0, len(rows))
	for i, row := range rows {
		if len(row) < 4 {
			return nil, fmt.Errorf("row %d: %w", i, ErrMalformedRow)
		}
		p := Provider{
			ID:           row[0],
			CompanyName:  row[1],
			Expertise:    row[2],
			Availability: row[3],
		}
		if len(row) > 4 {
			p.Description = row[4]
		}
		if len(row) > 5 && row[5] != "" {
			city := row[5]
			p.City = &city
		}
		out = append(out, p)
	}
	return out, nil
}

// New validates and returns an immutable copy of providers.
func New(providers []Provider) ([]Provider, error) {
	if len(providers) == 0 {
		return nil, ErrEmptyCatalog
	}
	out := make([]Provider, len(providers))
	copy(out, providers)
	return out, nil
}

// BuildProviderText builds the labeled-segment text surface for one
// provider, joined with " | ". City is deliberately excluded: geography is
// handled exclusively by the geo score (spec.md §4.5).
func BuildProviderText(p Provider) string {
	var parts []string
	if p.CompanyName != "" {
		parts = append(parts, "Entreprise: "+p.CompanyName)
	}
	if p.Expertise != "" {
		parts = append(parts, "Expertise: "+p.Expertise)
	}
	if p.Availability != "" {
		parts = append(parts, "Disponibilité: "+p.Availability)
	}
	if p.Description != "" {
		parts = append(parts, "Services: "+p.Description)
	}
	return strings.Join(parts, " | ")
}

// BuildRequestText builds the labeled-segment text surface for a request.
// City is deliberately excluded for the same reason as BuildProviderText.
func BuildRequestText(r Request) string {
	var parts []string
	if r.Category != nil {
		parts = append(parts, "Catégorie: "+*r.Category)
	}
	if r.SubCategory != nil {
		parts = append(parts, "Sous-catégorie: "+*r.SubCategory)
	}
	if r.Message != "" {
		parts = append(parts, "Message: "+r.Message)
	}
	if r.Urgency != nil {
		parts = append(parts, "Urgence: "+*r.Urgency)
	}
	return strings.Join(parts, " | ")
}

// ExpertiseTokenCount counts the non-empty comma-separated domain tokens in
// an expertise string (used by the specialization-penalty stage).
func ExpertiseTokenCount(expertise string) int {
	parts := strings.Split(expertise, ",")
	n := 0
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

// ConfidenceLabel is a pure function of the final score (spec.md §4.6 step 9).
func ConfidenceLabel(score float64) string {
	switch {
	case score >= 0.85:
		return ConfidenceTresPertinent
	case score >= 0.70:
		return ConfidencePertinent
	case score >= 0.50:
		return ConfidenceApprochant
	default:
		return ConfidenceAVerifier
	}
}
