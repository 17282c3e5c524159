// Command matchctl loads a provider catalog and runs one matching query
// against it, printing the ranked results as a table. It is a thin,
// library-driven entry point: all matching logic lives in internal/matcher.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"manifold/internal/catalog"
	"manifold/internal/config"
	"manifold/internal/embedding"
	"manifold/internal/logging"
	"manifold/internal/matcher"
)

func main() {
	log.SetFlags(0)
	var (
		catalogPath = flag.String("catalog", "", "path to a CSV catalog file (id,Nom_Entreprise,Domaines_Expertise,Disponibilite,Description_Service,Ville)")
		message     = flag.String("message", "", "the need to match, in French")
		category    = flag.String("category", "", "optional category")
		subCategory = flag.String("sub-category", "", "optional sub-category")
		city        = flag.String("city", "", "optional requester city")
		urgency     = flag.String("urgency", "", "optional explicit urgency (immédiat, court terme, planifié)")
		impactGeo   = flag.Int("impact-geo", -1, "override impact_geo (0, 1 or 2); defaults to config")
		deterministic = flag.Bool("deterministic", false, "use a local deterministic embedding backend instead of the configured HTTP one")
	)
	flag.Parse()

	if *catalogPath == "" {
		log.Fatal("no -catalog provided")
	}
	if *message == "" {
		log.Fatal("no -message provided")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logging.Log.SetLevel(lvl)
	}

	providers, err := loadCatalog(*catalogPath)
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}

	var backend embedding.Backend
	if *deterministic {
		backend = embedding.NewDeterministicBackend(cfg.Embedding.Dimension, true, 0)
	} else {
		backend = embedding.NewHTTPBackend(embedding.HTTPConfig{
			BaseURL:   cfg.Embedding.BaseURL,
			Path:      cfg.Embedding.Path,
			Model:     cfg.Embedding.Model,
			APIHeader: cfg.Embedding.APIHeader,
			APIKey:    cfg.Embedding.APIKey,
			Headers:   cfg.Embedding.Headers,
			Timeout:   cfg.Embedding.Timeout(),
			Dimension: cfg.Embedding.Dimension,
		}, 0)
	}

	ctx := context.Background()
	m, err := matcher.New(ctx, providers, backend,
		matcher.WithDefaultThreshold(cfg.Matching.DefaultThreshold),
		matcher.WithDefaultImpactGeo(cfg.Matching.DefaultImpactGeo),
	)
	if err != nil {
		log.Fatalf("build matcher: %v", err)
	}

	req := catalog.Request{Message: *message}
	if *category != "" {
		req.Category = category
	}
	if *subCategory != "" {
		req.SubCategory = subCategory
	}
	if *city != "" {
		req.City = city
	}
	if *urgency != "" {
		req.Urgency = urgency
	}
	var opts []matcher.MatchOption
	if *impactGeo >= 0 {
		opts = append(opts, matcher.WithImpactGeo(*impactGeo))
	}

	results, err := m.FindMatches(ctx, req, opts...)
	if err != nil {
		log.Fatalf("find matches: %v", err)
	}
	printResults(results)
}

func loadCatalog(path string) ([]catalog.Provider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) > 0 && strings.EqualFold(strings.TrimSpace(rows[0][0]), "id") {
		rows = rows[1:] // drop a header row if present
	}
	return catalog.LoadProviders(rows)
}

func printResults(results []catalog.MatchResult) {
	if len(results) == 0 {
		fmt.Println("no matches found")
		return
	}
	for i, r := range results {
		fmt.Printf("%d. %s (%s)\n", i+1, r.Name, r.ProviderID)
		fmt.Printf("   score=%.3f geo=%.3f urgency=%.2f specialization=%.2f confidence=%s\n",
			r.FinalScore, r.GeoScore, r.UrgencyFactor, r.SpecializationFactor, r.Confidence)
		if r.Ville != nil {
			fmt.Printf("   city=%s\n", *r.Ville)
		}
	}
}
