package generator

// Config drives the synthetic ownership data generator.
type Config struct {
	// Groups is the number of independent corporate groups, each with its own
	// root company.
	Groups int
	// MaxDepth bounds how many company layers sit above a group's root.
	MaxDepth int
	// MaxOwners bounds the direct shareholders of a company.
	MaxOwners int
	// IndividualChance is the probability that a shareholder is a person
	// rather than another company. The top layer is always individuals.
	IndividualChance float64
	// DirectorChance is the probability that a company gets a director.
	DirectorChance float64
	// DeadEndChance is the probability that an intermediate company is left
	// with no recorded shareholders.
	DeadEndChance float64
	// CycleChance is the probability that a group contains one cross-holding
	// back to its root.
	CycleChance   float64
	Jurisdictions []string
	Seed          int64
}

// DefaultConfig returns baseline settings for a demo dataset.
func DefaultConfig() Config {
	return Config{
		Groups:           200,
		MaxDepth:         4,
		MaxOwners:        4,
		IndividualChance: 0.45,
		DirectorChance:   0.6,
		DeadEndChance:    0.05,
		CycleChance:      0.05,
		Jurisdictions:    []string{"GB", "DE", "FR", "NL", "LU", "US", "SG"},
		Seed:             42,
	}
}
