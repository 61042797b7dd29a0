package generator

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/ownergraph/backend/internal/repository"
	"github.com/vanshika/ownergraph/backend/internal/service"
)

func TestGenerateIsDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Groups = 5

	a, err := New(cfg).Generate(context.Background())
	require.NoError(t, err)
	b, err := New(cfg).Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEmpty(t, a.Entities)
	assert.NotEmpty(t, a.Links)
}

func TestGenerateSharesSumToHundred(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Groups = 30
	ds, err := New(cfg).Generate(context.Background())
	require.NoError(t, err)

	known := make(map[string]bool, len(ds.Entities))
	for _, e := range ds.Entities {
		known[e.ID] = true
	}
	sums := map[string]float64{}
	for _, l := range ds.Links {
		require.True(t, known[l.OwnerID], "unknown owner %s", l.OwnerID)
		require.True(t, known[l.OwnedID], "unknown owned %s", l.OwnedID)
		if l.Type == "ownership" {
			require.NotNil(t, l.Percentage)
			sums[l.OwnedID] += *l.Percentage
		}
	}
	require.NotEmpty(t, sums)
	for id, sum := range sums {
		assert.InDelta(t, 100, sum, 1e-6, id)
	}
}

func TestSplitShares(t *testing.T) {
	g := New(Config{Seed: 7})
	for n := 1; n <= 6; n++ {
		shares := g.splitShares(n)
		require.Len(t, shares, n)
		total := 0.0
		for _, s := range shares {
			assert.Greater(t, s, 0.0)
			assert.Equal(t, s, math.Round(s*100)/100)
			total += s
		}
		assert.InDelta(t, 100, total, 1e-9)
	}
}

func TestGeneratedGroupsIngestAndAnalyse(t *testing.T) {
	ds, err := New(Config{
		Groups:           3,
		MaxDepth:         3,
		MaxOwners:        3,
		IndividualChance: 0,
		DirectorChance:   1,
		CycleChance:      1,
		Seed:             11,
	}).Generate(context.Background())
	require.NoError(t, err)

	svc := service.NewComplianceService(repository.NewMemory(), nil)
	ingestor := service.NewBulkIngestor(svc, "org", 4)
	require.NoError(t, ingestor.IngestEntities(context.Background(), ds.Entities))
	require.NoError(t, ingestor.IngestLinks(context.Background(), ds.Links))

	for _, root := range []string{"G0001-C001", "G0002-C001", "G0003-C001"} {
		res, err := svc.Validate(context.Background(), "org", root)
		require.NoError(t, err)
		assert.True(t, res.OwnershipSumValid, root)
		assert.NotEmpty(t, res.Cycles, "expected a cross-holding in %s", root)

		ubo, err := svc.ResolveUBOs(context.Background(), "org", root)
		require.NoError(t, err)
		assert.NotEmpty(t, ubo.UBOs, root)
	}
}

func TestWriteAndReadDataset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Groups = 2
	ds, err := New(cfg).Generate(context.Background())
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, WriteDataset(ds, dir))
	loaded, err := ReadDataset(dir)
	require.NoError(t, err)
	assert.Len(t, loaded.Entities, len(ds.Entities))
	assert.Len(t, loaded.Links, len(ds.Links))
}

func TestGenerateHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(DefaultConfig()).Generate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
