package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/resonance.report/internal/histo"
	"github.com/banshee-data/resonance.report/internal/monitoring"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	monitoring.SetLogger(nil)
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrations(t *testing.T) {
	s := openTestStore(t)

	v, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)

	// Re-running is a no-op.
	require.NoError(t, s.MigrateUp())

	require.NoError(t, s.MigrateDown())
	v, _, err = s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), v)

	require.NoError(t, s.MigrateUp())
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r, err := s.StartRun(ctx, "k1", "config/analysis.defaults.json")
	require.NoError(t, err)
	require.NotEmpty(t, r.ID)

	got, err := s.GetRun(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "k1", got.Kind)
	assert.Nil(t, got.FinishedAt)

	require.NoError(t, s.FinishRun(ctx, r.ID, 42))
	got, err = s.GetRun(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FinishedAt)
	assert.Equal(t, int64(42), got.Events)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, r.ID, runs[0].ID)

	_, err = s.GetRun(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.FinishRun(ctx, "missing", 0), ErrNotFound))
}

func TestRegistryRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r, err := s.StartRun(ctx, "k1", "")
	require.NoError(t, err)

	reg := histo.NewRegistry()
	a := reg.MustDefine("mass", histo.Uniform("m", 10, 0, 1), histo.Variable("pt", []float64{0, 1, 5}))
	a.Fill(1, 0.15, 0.5)
	a.Fill(2, 0.15, 0.5)
	a.Fill(0.5, 0.95, 3)
	a.Fill(1, 2, 3) // overflow
	b := reg.MustDefine("count", histo.Uniform("n", 4, 0, 4))
	b.Fill(1, 3.5)

	require.NoError(t, s.SaveRegistry(ctx, r.ID, reg))

	names, err := s.HistogramNames(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"count", "mass"}, names)

	got, err := s.LoadHistogram(ctx, r.ID, "mass")
	require.NoError(t, err)
	assert.True(t, got.Compatible(a))
	assert.Equal(t, a.Entries(), got.Entries())
	assert.Equal(t, a.Overflow(), got.Overflow())
	if diff := cmp.Diff(a.Cells(), got.Cells()); diff != "" {
		t.Errorf("cells mismatch (-want +got):\n%s", diff)
	}

	// Saving again replaces rather than accumulates.
	require.NoError(t, s.SaveHistogram(ctx, r.ID, a))
	got, err = s.LoadHistogram(ctx, r.ID, "mass")
	require.NoError(t, err)
	assert.InDelta(t, a.SumW(), got.SumW(), 1e-12)

	_, err = s.LoadHistogram(ctx, r.ID, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSelections(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r, err := s.StartRun(ctx, "bplus", "")
	require.NoError(t, err)

	in := []uint8{0, 7, 3, 7, 1}
	require.NoError(t, s.SaveSelections(ctx, r.ID, in))

	got, err := s.Selections(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	counts, err := s.SelectionCounts(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, map[uint8]int{0: 1, 1: 1, 3: 1, 7: 2}, counts)
}
