// Package domainfilter implements the hard pre-filtering stage of spec.md
// §4.4: required/forbidden keyword sets over provider expertise strings,
// keyed by normalized sub-category, with strict/lax thresholds.
package domainfilter

import (
	"strings"

	"manifold/internal/catalog"
	"manifold/internal/textnorm"
)

// requiredKeywords maps a sub-category phrase to its mandatory keyword set.
// Keys are stored as written (with accents) and compared after
// textnorm.Normalize. Ported from original_source/src/matching/matcher.py's
// REQUIRED_KEYWORDS. The source map has two entries keyed "réparation
// urgente" (one travaux-oriented, one automotive-oriented); Go map literals
// cannot carry a duplicate key, so only the later, automotive-oriented
// entry is kept here, matching the "last assignment wins" behavior called
// out in spec.md §9.
var requiredKeywords = map[string][]string{
	"garde d'enfant":                {"garde", "enfant", "famille", "babysitting", "crèche", "nounou"},
	"crèche ou nounou":               {"garde", "enfant", "famille", "crèche", "nounou"},
	"scolarité":                      {"famille", "scolarité", "éducation", "école"},
	"activités périscolaires":        {"famille", "loisirs", "sport", "activités", "enfant"},
	"aide aux devoirs":               {"famille", "éducation", "soutien", "scolaire"},
	"garde animaux":                  {"animaux", "garde", "pension", "chien", "chat"},
	"plomberie urgente":              {"plomberie", "travaux", "urgence", "dépannage"},
	"électroménager":                 {"électroménager", "réparation", "dépannage"},
	"mise en conformité logement":    {"travaux", "électricité", "conformité"},
	"rénovation avant vente":         {"travaux", "rénovation"},
	"installation fibre":             {"travaux", "installation", "internet", "télécom"},
	"contrôle technique":             {"véhicule", "auto", "contrôle", "technique", "automobile"},
	"location courte durée":          {"location", "véhicule", "auto", "voiture", "automobile"},
	"achat véhicule":                 {"véhicule", "auto", "vente", "occasion", "automobile", "voiture"},
	"reprogrammation moteur":         {"véhicule", "auto", "garage", "mécanique", "moteur"},
	"réparation urgente":             {"garage", "auto", "véhicule", "réparation", "dépannage", "mécanique", "automobile", "panne"},
	"location meublée":               {"logement", "location", "immobilier", "appartement", "meublé", "habitation"},
	"recherche colocation":           {"logement", "colocation", "location", "appartement", "colocataire"},
	"recherche logement social":      {"logement", "location", "immobilier", "social", "hlm"},
	"déménagement":                   {"déménagement", "transport", "logistique", "demenage", "déménageur"},
	"stockage temporaire":            {"stockage", "garde-meuble", "entreposage", "box"},
	"état des lieux":                 {"logement", "immobilier", "huissier", "juridique", "état", "constat"},
	"construction maison retraite":   {"construction", "immobilier", "bâtiment", "maison", "promoteur"},
	"prêt immobilier":                {"banque", "finance", "crédit", "prêt", "immobilier"},
	"prêt travaux":                   {"banque", "finance", "crédit", "prêt"},
	"regroupement crédits":           {"banque", "finance", "crédit"},
	"placement financier":            {"finance", "banque", "épargne", "investissement", "placement"},
	"assurance habitation":           {"assurance", "habitation", "logement"},
	"assurance auto jeune conducteur": {"assurance", "auto", "véhicule"},
	"mutuelle santé":                 {"assurance", "mutuelle", "santé"},
	"prévoyance":                     {"assurance", "prévoyance"},
	"carte grise":                    {"administratif", "carte", "véhicule", "démarches"},
	"passeport express":              {"administratif", "passeport", "démarches", "papiers"},
	"titre de séjour conjoint":       {"administratif", "démarches", "juridique"},
	"changement situation familiale": {"administratif", "juridique", "démarches"},
	"dentiste d'urgence":             {"santé", "dentiste", "dentaire", "urgence"},
	"kiné urgence":                   {"santé", "kiné", "kinésithérapie", "rééducation"},
	"ophtalmologue":                  {"santé", "ophtalmologue", "vision", "lunettes"},
	"accompagnement familial":        {"santé", "psychologue", "accompagnement", "famille"},
	"gestion stress opérationnel":    {"santé", "psychologue", "stress", "accompagnement"},
	"recherche emploi conjoint":      {"emploi", "travail", "recrutement", "job"},
	"reconversion professionnelle":   {"formation", "reconversion", "emploi"},
	"bilan de compétences":          {"emploi", "formation", "bilan", "orientation"},
	"aide à la création entreprise":  {"entreprise", "création", "conseil", "accompagnement"},
	"préparation retraite":           {"retraite", "conseil", "finance", "accompagnement"},
	"permis poids lourd":             {"formation", "permis", "conduite"},
	"langue étrangère":               {"formation", "langue", "cours", "apprentissage"},
	"transport express":              {"transport", "livraison", "coursier", "urgence"},
	"coiffure":                       {"coiffure", "beauté", "esthétique"},
	"pressing express":               {"pressing", "nettoyage", "blanchisserie"},
}

// requiredKeywordOrder lists requiredKeywords' keys in the exact insertion
// order of the Python source's REQUIRED_KEYWORDS dict literal
// (original_source/src/matching/matcher.py:219-289). Python dicts preserve
// insertion order, so the source's "first matching key wins" lookup is
// deterministic; Go map iteration is not, so requiredKeywordsFor walks this
// slice instead of ranging requiredKeywords directly.
var requiredKeywordOrder = []string{
	"garde d'enfant",
	"crèche ou nounou",
	"scolarité",
	"activités périscolaires",
	"aide aux devoirs",
	"garde animaux",
	"plomberie urgente",
	"électroménager",
	"mise en conformité logement",
	"rénovation avant vente",
	"installation fibre",
	"contrôle technique",
	"location courte durée",
	"achat véhicule",
	"reprogrammation moteur",
	"réparation urgente",
	"location meublée",
	"recherche colocation",
	"recherche logement social",
	"déménagement",
	"stockage temporaire",
	"état des lieux",
	"construction maison retraite",
	"prêt immobilier",
	"prêt travaux",
	"regroupement crédits",
	"placement financier",
	"assurance habitation",
	"assurance auto jeune conducteur",
	"mutuelle santé",
	"prévoyance",
	"carte grise",
	"passeport express",
	"titre de séjour conjoint",
	"changement situation familiale",
	"dentiste d'urgence",
	"kiné urgence",
	"ophtalmologue",
	"accompagnement familial",
	"gestion stress opérationnel",
	"recherche emploi conjoint",
	"reconversion professionnelle",
	"bilan de compétences",
	"aide à la création entreprise",
	"préparation retraite",
	"permis poids lourd",
	"langue étrangère",
	"transport express",
	"coiffure",
	"pressing express",
}

// incompatibleDomains maps a broad prefix token to its forbidden
// keyword-prefix set; keys and prefixes are compared after
// textnorm.Normalize. Ported from INCOMPATIBLE_DOMAINS in matcher.py.
var incompatibleDomains = map[string][]string{
	"location":    {"électri", "électro", "plomb", "garage", "mécan", "contrôle", "véhicule", "auto", "dépann", "répara", "travaux"},
	"colocation":  {"électri", "électro", "plomb", "garage", "véhicule", "auto", "travaux", "dépann", "répara"},
	"logement":    {"électri", "électro", "plomb", "garage", "véhicule", "auto", "mécan", "dépann", "répara"},
	"meublée":     {"électri", "électro", "plomb", "garage", "véhicule", "auto", "dépann", "travaux"},
	"immobilier":  {"électri", "électro", "plomb", "garage", "véhicule", "auto", "dépann", "répara"},
	"garde":       {"électri", "électro", "plomb", "garage", "véhicule", "auto", "travaux", "construction", "dépann", "répara"},
	"enfant":      {"électri", "électro", "plomb", "garage", "véhicule", "auto", "travaux", "dépann", "répara"},
	"scolarité":   {"électri", "électro", "plomb", "garage", "véhicule", "auto", "travaux", "stockage", "entrepo"},
	"école":       {"électri", "électro", "plomb", "garage", "véhicule", "auto", "stockage", "travaux"},
	"véhicule":    {"logement", "location", "colocation", "garde", "enfant", "crèche", "nounou", "stockage", "immobilier"},
	"auto":        {"logement", "location", "colocation", "garde", "enfant", "crèche", "stockage", "immobilier"},
	"panne":       {"logement", "location", "garde", "enfant", "stockage", "immobilier"},
	"réparation":  {"logement", "location", "garde", "stockage", "immobilier", "banque"},
	"garage":      {"logement", "location", "colocation", "garde", "enfant", "immobilier"},
	"prêt":        {"électri", "électro", "plomb", "garage", "véhicule", "mécan", "travaux", "dépann"},
	"crédit":      {"électri", "électro", "plomb", "garage", "véhicule", "mécan", "dépann"},
	"banque":      {"électri", "électro", "plomb", "garage", "véhicule", "travaux", "dépann"},
	"plomberie":   {"logement", "location", "garde", "enfant", "banque", "finance", "assurance", "immobilier"},
	"électricité": {"logement", "location", "garde", "enfant", "banque", "finance", "assurance", "immobilier"},
}

// strictSubCategoryPrefixes are the high-ambiguity normalized prefixes that
// require K=2 matched keywords instead of K=1 (spec.md §4.4).
var strictSubCategoryPrefixes = []string{
	"location", "logement", "colocation", "scolarite", "pret", "credit", "banque",
}

// FilterFunc is the shape of Filter, named so callers (e.g. the matcher
// facade) can hold it behind an interface-like field without importing a
// concrete function.
type FilterFunc func(providers []catalog.Provider, category, subCategory string) (kept []catalog.Provider, bypassed bool)

// Filter applies the domain filter to providers for the given category and
// sub-category. If the filter would yield zero providers, it is bypassed
// (fail-open, per spec.md's invariants): bypassed is true and all providers
// are returned unchanged.
func Filter(providers []catalog.Provider, category, subCategory string) (kept []catalog.Provider, bypassed bool) {
	keywords := requiredKeywordsFor(subCategory, category)
	if len(keywords) == 0 {
		return providers, true
	}

	exclusions := incompatibleFor(subCategory)
	minMatches := 1
	normalizedSubCat := textnorm.Normalize(subCategory)
	for _, prefix := range strictSubCategoryPrefixes {
		if strings.Contains(normalizedSubCat, prefix) {
			minMatches = 2
			break
		}
	}

	var out []catalog.Provider
	for _, p := range providers {
		if isDomainCompatible(p.Expertise, keywords, exclusions, minMatches) {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return providers, true
	}
	return out, false
}

func isDomainCompatible(expertise string, keywords, exclusions []string, minMatches int) bool {
	normalized := textnorm.Normalize(expertise)
	for _, ex := range exclusions {
		if strings.Contains(normalized, textnorm.Normalize(ex)) {
			return false
		}
	}
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(normalized, textnorm.Normalize(kw)) {
			matched++
		}
	}
	return matched >= minMatches
}

// requiredKeywordsFor resolves the required keyword set for a sub-category,
// falling back to long-word derivation from the sub-category, then category,
// per spec.md §4.4.
func requiredKeywordsFor(subCategory, category string) []string {
	normalizedSubCat := textnorm.Normalize(subCategory)
	if normalizedSubCat != "" {
		for _, key := range requiredKeywordOrder {
			normalizedKey := textnorm.Normalize(key)
			if strings.Contains(normalizedSubCat, normalizedKey) || strings.Contains(normalizedKey, normalizedSubCat) {
				return requiredKeywords[key]
			}
		}
	}

	if words := longWords(subCategory); len(words) > 0 {
		return words
	}
	if words := longWords(category); len(words) > 0 {
		return words
	}
	return nil
}

// longWords returns the lowercased words of s longer than 4 runes.
func longWords(s string) []string {
	var out []string
	for _, w := range strings.Fields(s) {
		if len([]rune(w)) > 4 {
			out = append(out, strings.ToLower(w))
		}
	}
	return out
}

func incompatibleFor(subCategory string) []string {
	normalizedSubCat := textnorm.Normalize(subCategory)
	seen := map[string]struct{}{}
	var out []string
	for key, excluded := range incompatibleDomains {
		if strings.Contains(normalizedSubCat, textnorm.Normalize(key)) {
			for _, w := range excluded {
				if _, ok := seen[w]; !ok {
					seen[w] = struct{}{}
					out = append(out, w)
				}
			}
		}
	}
	return out
}
