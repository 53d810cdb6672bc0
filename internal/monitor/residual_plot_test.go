package monitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/dtsegment/internal/drift"
	"github.com/banshee-data/dtsegment/internal/segment"
	"github.com/banshee-data/dtsegment/internal/testutil"
)

func fitted(t *testing.T) (*segment.Updater, []*segment.Candidate) {
	t.Helper()
	geom := testutil.Chamber(t)
	u := segment.NewUpdater(geom, drift.NewLinear(testutil.DriftVelocity), segment.Options{})

	var cands []*segment.Candidate
	for _, tr := range []testutil.Track{{X0: 0.7, Slope: 0.25}, {X0: -0.4, Slope: -0.1}, {X0: 11.3, Slope: 0.05}, {X0: 5, Slope: 0.1}} {
		c := segment.NewCandidate(testutil.SuperLayer, testutil.Measurements(testutil.Hits(t, geom, tr)))
		require.NoError(t, u.Update(c))
		cands = append(cands, c)
	}
	return u, cands
}

func TestResidualPlotter_Lifecycle(t *testing.T) {
	u, cands := fitted(t)
	rp := NewResidualPlotter(u)
	assert.False(t, rp.IsEnabled())

	// Not recording yet.
	require.NoError(t, rp.Record(cands[0]))
	hits, _, _ := rp.Counts()
	assert.Zero(t, hits)

	dir := filepath.Join(t.TempDir(), "plots")
	require.NoError(t, rp.Start(dir))
	assert.True(t, rp.IsEnabled())

	for _, c := range cands {
		require.NoError(t, rp.Record(c))
	}
	require.NoError(t, rp.Record(segment.NewCandidate(testutil.SuperLayer, nil)))

	hits, segments, skipped := rp.Counts()
	assert.Equal(t, 16, hits)
	assert.Equal(t, 4, segments)
	assert.Equal(t, 1, skipped)

	rp.Stop()
	assert.False(t, rp.IsEnabled())

	n, err := rp.GeneratePlots()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	for _, name := range []string{"pulls.png", "chi2_per_dof.png", "residuals_by_layer.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size())
	}
}

func TestResidualPlotter_NoData(t *testing.T) {
	u, _ := fitted(t)
	rp := NewResidualPlotter(u)

	_, err := rp.GeneratePlots()
	assert.Error(t, err, "no output directory")

	require.NoError(t, rp.Start(t.TempDir()))
	n, err := rp.GeneratePlots()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMakePlotOutputDir(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, filepath.Join("plots", "run42", "20260304_050607"), MakePlotOutputDir("plots", "data/run42.json", now))
	assert.Equal(t, filepath.Join("plots", "run_20260304_050607"), MakePlotOutputDir("plots", "", now))
}

func TestGenerateColors(t *testing.T) {
	assert.Nil(t, generateColors(0))
	cs := generateColors(4)
	require.Len(t, cs, 4)
	assert.NotEqual(t, cs[0], cs[1])
}
