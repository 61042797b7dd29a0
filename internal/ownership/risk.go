package ownership

import (
	"math"
	"strings"

	"github.com/vanshika/ownergraph/backend/internal/domain"
)

// RiskWeights weigh the risk factors against each other. Only their ratios
// matter; all zero weights yield a zero score.
type RiskWeights struct {
	Nationality float64
	Industry    float64
	Complexity  float64
}

// DefaultRiskWeights returns the 40/30/30 weighting.
func DefaultRiskWeights() RiskWeights {
	return RiskWeights{Nationality: 40, Industry: 30, Complexity: 30}
}

var (
	highRiskCountries   = map[string]bool{"IR": true, "KP": true, "SY": true, "RU": true, "BY": true}
	mediumRiskCountries = map[string]bool{
		"AF": true, "MM": true, "IQ": true, "LY": true, "SO": true, "YE": true, "SD": true,
		"SS": true, "CD": true, "ML": true, "NG": true, "VE": true, "ET": true, "HT": true,
	}

	highRiskActivities = []string{
		"gambling", "casino", "weapon", "arms", "precious metal", "gem", "diamond",
		"cash", "money transfer", "crypto", "bitcoin", "forex", "trust", "foundation",
	}
	mediumRiskActivities = []string{"real estate", "construction", "import", "export", "trading"}
)

// complexityNodeLimit caps how many contacts the complexity factor inspects.
const complexityNodeLimit = 15

// NationalityRisk scores a country by the first two letters of its code.
// Unknown countries score 50.
func NationalityRisk(country string) float64 {
	country = strings.TrimSpace(country)
	if country == "" {
		return 50
	}
	code := strings.ToUpper(country)
	if len(code) > 2 {
		code = code[:2]
	}
	switch {
	case highRiskCountries[code]:
		return 90
	case mediumRiskCountries[code]:
		return 60
	default:
		return 20
	}
}

// IndustryRisk scores free-text business activities by keyword.
func IndustryRisk(activities string) float64 {
	lower := strings.ToLower(strings.TrimSpace(activities))
	if lower == "" {
		return 30
	}
	for _, keyword := range highRiskActivities {
		if strings.Contains(lower, keyword) {
			return 85
		}
	}
	for _, keyword := range mediumRiskActivities {
		if strings.Contains(lower, keyword) {
			return 55
		}
	}
	return 25
}

// ComplexityRisk scores how deep and dense the structure around the root is.
// It walks links in both directions breadth first, inspecting at most
// complexityNodeLimit contacts, and counts every link touching an inspected
// contact.
func ComplexityRisk(snap domain.GraphSnapshot) float64 {
	neighbours := make(map[string][]string)
	for _, l := range snap.Links {
		neighbours[l.OwnerID] = append(neighbours[l.OwnerID], l.OwnedID)
		neighbours[l.OwnedID] = append(neighbours[l.OwnedID], l.OwnerID)
	}

	rootID := snap.Root.ID
	depth := map[string]int{rootID: 0}
	queue := []string{rootID}
	maxDepth, touching := 0, 0
	for inspected := 0; len(queue) > 0 && inspected < complexityNodeLimit; inspected++ {
		id := queue[0]
		queue = queue[1:]
		maxDepth = max(maxDepth, depth[id])
		touching += len(neighbours[id])
		for _, next := range neighbours[id] {
			if _, seen := depth[next]; !seen {
				depth[next] = depth[id] + 1
				queue = append(queue, next)
			}
		}
	}
	return math.Min(95, 20+float64(maxDepth)*15+math.Min(40, float64(touching)*2))
}

// ScoreRisk combines the factors of snap's root into a 0–100 score rounded to
// one decimal. The country is the jurisdiction, or the "nationality"
// attribute when none is set; activities come from the "activities" or
// "industry" attribute.
func ScoreRisk(snap domain.GraphSnapshot, w RiskWeights) domain.RiskScore {
	root := snap.Root
	country := root.Jurisdiction
	if country == "" {
		country = root.Attributes["nationality"]
	}
	activities := root.Attributes["activities"]
	if activities == "" {
		activities = root.Attributes["industry"]
	}

	factors := domain.RiskFactors{
		Nationality: NationalityRisk(country),
		Industry:    IndustryRisk(activities),
		Complexity:  ComplexityRisk(snap),
	}
	total := w.Nationality + w.Industry + w.Complexity
	score := 0.0
	if total > 0 {
		score = (factors.Nationality*w.Nationality + factors.Industry*w.Industry + factors.Complexity*w.Complexity) / total
	}
	score = math.Round(math.Min(100, math.Max(0, score))*10) / 10

	return domain.RiskScore{
		ContactID: root.ID,
		Score:     score,
		Band:      riskBand(score),
		Factors:   factors,
	}
}

func riskBand(score float64) domain.RiskBand {
	switch {
	case score >= 70:
		return domain.RiskHigh
	case score >= 40:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}
