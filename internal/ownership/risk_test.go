package ownership

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vanshika/ownergraph/backend/internal/domain"
)

func TestNationalityRisk(t *testing.T) {
	assert.Equal(t, 50.0, NationalityRisk("  "))
	assert.Equal(t, 90.0, NationalityRisk("ir"))
	assert.Equal(t, 60.0, NationalityRisk("NG-LA"))
	assert.Equal(t, 20.0, NationalityRisk("GB"))
}

func TestIndustryRisk(t *testing.T) {
	assert.Equal(t, 30.0, IndustryRisk(""))
	assert.Equal(t, 85.0, IndustryRisk("Online Casino operator"))
	assert.Equal(t, 55.0, IndustryRisk("commercial real estate"))
	assert.Equal(t, 25.0, IndustryRisk("software consulting"))
}

func TestScoreRiskLoneCompany(t *testing.T) {
	snap := domain.GraphSnapshot{Root: domain.Entity{ID: "C", Kind: domain.KindCompany, Jurisdiction: "GB"}}

	risk := ScoreRisk(snap, DefaultRiskWeights())
	assert.Equal(t, "C", risk.ContactID)
	assert.Equal(t, domain.RiskFactors{Nationality: 20, Industry: 30, Complexity: 20}, risk.Factors)
	assert.InDelta(t, 23, risk.Score, 1e-9)
	assert.Equal(t, domain.RiskLow, risk.Band)
}

func TestScoreRiskLayeredHighRiskCompany(t *testing.T) {
	snap := domain.GraphSnapshot{
		Root: domain.Entity{ID: "C", Kind: domain.KindCompany, Jurisdiction: "IR",
			Attributes: map[string]string{"activities": "Casino operator"}},
		Entities: []domain.Entity{{ID: "H", Kind: domain.KindCompany}, {ID: "P", Kind: domain.KindIndividual}},
		Links: []domain.OwnershipLink{
			{ID: "L1", OwnerID: "H", OwnedID: "C", Type: domain.LinkOwnership},
			{ID: "L2", OwnerID: "P", OwnedID: "H", Type: domain.LinkOwnership},
		},
	}

	risk := ScoreRisk(snap, DefaultRiskWeights())
	// Depth 2 and four link ends: 20 + 2*15 + 4*2.
	assert.InDelta(t, 58, risk.Factors.Complexity, 1e-9)
	assert.InDelta(t, 78.9, risk.Score, 1e-9)
	assert.Equal(t, domain.RiskHigh, risk.Band)
}

func TestScoreRiskFallsBackToAttributes(t *testing.T) {
	snap := domain.GraphSnapshot{Root: domain.Entity{ID: "P", Kind: domain.KindIndividual,
		Attributes: map[string]string{"industry": "real estate"}}}

	risk := ScoreRisk(snap, DefaultRiskWeights())
	assert.Equal(t, 50.0, risk.Factors.Nationality)
	assert.Equal(t, 55.0, risk.Factors.Industry)
	assert.InDelta(t, 42.5, risk.Score, 1e-9)
	assert.Equal(t, domain.RiskMedium, risk.Band)

	snap.Root.Attributes["nationality"] = "KP"
	assert.Equal(t, 90.0, ScoreRisk(snap, DefaultRiskWeights()).Factors.Nationality)
}

func TestScoreRiskZeroWeights(t *testing.T) {
	snap := domain.GraphSnapshot{Root: domain.Entity{ID: "C", Jurisdiction: "IR"}}
	risk := ScoreRisk(snap, RiskWeights{})
	assert.Equal(t, 0.0, risk.Score)
	assert.Equal(t, domain.RiskLow, risk.Band)
}

func TestComplexityRiskIsCapped(t *testing.T) {
	snap := domain.GraphSnapshot{Root: domain.Entity{ID: "C"}}
	for i := 0; i < 30; i++ {
		owner := fmt.Sprintf("P%02d", i)
		snap.Links = append(snap.Links, domain.OwnershipLink{ID: "L" + owner, OwnerID: owner, OwnedID: "C"})
	}
	// Depth 1; the link count term saturates at 40.
	assert.InDelta(t, 75, ComplexityRisk(snap), 1e-9)
}
