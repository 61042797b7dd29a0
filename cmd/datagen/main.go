package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vanshika/ownergraph/backend/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		groups        = flag.Int("groups", cfg.Groups, "number of corporate groups to generate")
		maxDepth      = flag.Int("max-depth", cfg.MaxDepth, "maximum holding layers above each root company")
		maxOwners     = flag.Int("max-owners", cfg.MaxOwners, "maximum direct shareholders per company")
		individual    = flag.Float64("individual-chance", cfg.IndividualChance, "probability that a shareholder is an individual")
		director      = flag.Float64("director-chance", cfg.DirectorChance, "probability that a company has a director")
		deadEnd       = flag.Float64("dead-end-chance", cfg.DeadEndChance, "probability that a holding company has no recorded shareholders")
		cycle         = flag.Float64("cycle-chance", cfg.CycleChance, "probability that a group contains a cross-holding")
		jurisdictions = flag.String("jurisdictions", strings.Join(cfg.Jurisdictions, ","), "comma separated jurisdiction codes")
		seed          = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir     = flag.String("output-dir", "data", "directory to write entities.json and links.json")
		writeStdout   = flag.Bool("stdout", false, "write combined dataset to stdout instead of files")
	)
	flag.Parse()

	genCfg := generator.Config{
		Groups:           *groups,
		MaxDepth:         *maxDepth,
		MaxOwners:        *maxOwners,
		IndividualChance: clampProbability(*individual),
		DirectorChance:   clampProbability(*director),
		DeadEndChance:    clampProbability(*deadEnd),
		CycleChance:      clampProbability(*cycle),
		Jurisdictions:    splitList(*jurisdictions),
		Seed:             *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dataset, err := generator.New(genCfg).Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := json.NewEncoder(os.Stdout).Encode(dataset); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := generator.WriteDataset(dataset, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d contacts and %d links into %s\n", len(dataset.Entities), len(dataset.Links), *outputDir)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func splitList(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
