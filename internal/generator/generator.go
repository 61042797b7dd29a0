package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/vanshika/ownergraph/backend/internal/service"
)

// Dataset contains the generated contacts and links.
type Dataset struct {
	Entities []service.EntityInput `json:"entities"`
	Links    []service.LinkInput   `json:"links"`
}

// Generator produces synthetic corporate groups: a root company owned
// through layers of holding companies by individuals, with directors and
// the occasional dead end or cross-holding.
type Generator struct {
	cfg   Config
	rand  *rand.Rand
	names nameFragments
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.Groups <= 0 {
		cfg.Groups = def.Groups
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.MaxOwners <= 0 {
		cfg.MaxOwners = def.MaxOwners
	}
	if len(cfg.Jurisdictions) == 0 {
		cfg.Jurisdictions = def.Jurisdictions
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:   cfg,
		rand:  rand.New(rand.NewSource(cfg.Seed)),
		names: defaultNameFragments(),
	}
}

// Generate synthesises every group. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	var ds Dataset
	for i := 0; i < g.cfg.Groups; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		g.buildGroup(&ds, i+1)
	}
	return ds, nil
}

type groupBuilder struct {
	g            *Generator
	ds           *Dataset
	prefix       string
	jurisdiction string
	companies    int
	people       int
	links        int
	// cycleDepth is the owner depth from which one shareholder is replaced by
	// the root; zero once placed or when the group has no cycle.
	cycleDepth int
}

type pendingCompany struct {
	id    string
	depth int
}

func (g *Generator) buildGroup(ds *Dataset, n int) {
	b := &groupBuilder{
		g:            g,
		ds:           ds,
		prefix:       fmt.Sprintf("G%04d", n),
		jurisdiction: g.cfg.Jurisdictions[g.rand.Intn(len(g.cfg.Jurisdictions))],
	}
	if g.cfg.MaxDepth >= 2 && g.rand.Float64() < g.cfg.CycleChance {
		b.cycleDepth = 2 + g.rand.Intn(g.cfg.MaxDepth-1)
	}

	root := b.company()
	queue := []pendingCompany{{id: root, depth: 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.depth > 0 && g.rand.Float64() < g.cfg.DeadEndChance {
			continue
		}
		if g.rand.Float64() < g.cfg.DirectorChance {
			b.link(b.person(), cur.id, "directorship", nil, "Director")
		}

		ownerDepth := cur.depth + 1
		for _, share := range g.splitShares(1 + g.rand.Intn(g.cfg.MaxOwners)) {
			switch {
			case b.cycleDepth > 0 && cur.depth > 0 && ownerDepth >= b.cycleDepth:
				b.cycleDepth = 0
				b.link(root, cur.id, "ownership", &share, "")
			case ownerDepth >= g.cfg.MaxDepth || g.rand.Float64() < g.cfg.IndividualChance:
				b.link(b.person(), cur.id, "ownership", &share, "")
			default:
				owner := b.company()
				b.link(owner, cur.id, "ownership", &share, "")
				queue = append(queue, pendingCompany{id: owner, depth: ownerDepth})
			}
		}
	}
}

func (b *groupBuilder) company() string {
	b.companies++
	id := fmt.Sprintf("%s-C%03d", b.prefix, b.companies)
	b.ds.Entities = append(b.ds.Entities, service.EntityInput{
		ID:           id,
		Name:         b.g.randomCompanyName(),
		Kind:         "company",
		Jurisdiction: b.jurisdiction,
		Attributes:   map[string]string{"risk": b.g.randomRisk()},
	})
	return id
}

func (b *groupBuilder) person() string {
	b.people++
	id := fmt.Sprintf("%s-P%03d", b.prefix, b.people)
	b.ds.Entities = append(b.ds.Entities, service.EntityInput{
		ID:           id,
		Name:         b.g.randomFullName(),
		Kind:         "individual",
		Jurisdiction: b.jurisdiction,
		Attributes:   map[string]string{"pep": fmt.Sprint(b.g.rand.Float64() < 0.03)},
	})
	return id
}

func (b *groupBuilder) link(owner, owned, linkType string, pct *float64, role string) {
	b.links++
	b.ds.Links = append(b.ds.Links, service.LinkInput{
		ID:         fmt.Sprintf("%s-L%04d", b.prefix, b.links),
		OwnerID:    owner,
		OwnedID:    owned,
		Type:       linkType,
		Percentage: pct,
		RoleLabel:  role,
	})
}

// splitShares divides 100% into n random shares with two decimals that sum
// to exactly 100.
func (g *Generator) splitShares(n int) []float64 {
	weights := make([]int, n)
	total := 0
	for i := range weights {
		weights[i] = 1 + g.rand.Intn(100)
		total += weights[i]
	}

	const hundredths = 10000
	shares := make([]float64, n)
	allocated := 0
	for i, w := range weights {
		part := w * hundredths / total
		if i == n-1 {
			part = hundredths - allocated
		}
		allocated += part
		shares[i] = float64(part) / 100
	}
	return shares
}

func (g *Generator) randomFullName() string {
	return fmt.Sprintf("%s %s", g.names.first[g.rand.Intn(len(g.names.first))],
		g.names.last[g.rand.Intn(len(g.names.last))])
}

func (g *Generator) randomCompanyName() string {
	return fmt.Sprintf("%s %s %s", g.names.companyStems[g.rand.Intn(len(g.names.companyStems))],
		g.names.companyWords[g.rand.Intn(len(g.names.companyWords))],
		g.names.companySuffix[g.rand.Intn(len(g.names.companySuffix))])
}

func (g *Generator) randomRisk() string {
	options := []string{"low", "low", "medium", "high"}
	return options[g.rand.Intn(len(options))]
}

type nameFragments struct {
	first         []string
	last          []string
	companyStems  []string
	companyWords  []string
	companySuffix []string
}

func defaultNameFragments() nameFragments {
	return nameFragments{
		first:         []string{"Jane", "John", "Alex", "Priya", "Liu", "Maria", "Omar", "Sofia", "Noah", "Emma", "Lucas", "Mia", "Ava", "Ethan", "Zara"},
		last:          []string{"Doe", "Smith", "Chen", "Patel", "Garcia", "Khan", "Kim", "Ivanov", "Nguyen", "Silva", "Brown", "Lee"},
		companyStems:  []string{"Northwind", "Bluewater", "Cedar", "Granite", "Harbor", "Meridian", "Oakridge", "Summit", "Vantage", "Willow"},
		companyWords:  []string{"Capital", "Holdings", "Ventures", "Trading", "Partners", "Industries", "Investments"},
		companySuffix: []string{"Ltd", "GmbH", "SA", "BV", "Sarl", "Pte Ltd", "Inc"},
	}
}
