package main

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/resonance.report/internal/event"
	"github.com/banshee-data/resonance.report/internal/monitoring"
	"github.com/banshee-data/resonance.report/internal/store"
	"github.com/banshee-data/resonance.report/internal/testutil"
)

func TestRunWritesStatuses(t *testing.T) {
	monitoring.SetLogger(nil)
	dir := t.TempDir()

	good := testutil.BplusCandidate(2.5, 1, 0)
	noSkim := testutil.BplusCandidate(2.5, 1, 0)
	noSkim.HFFlag = 0
	badTopo := testutil.BplusCandidate(2.5, 1, 0)
	badTopo.CPA = 0.1
	badPID := testutil.BplusCandidate(2.5, -1, 1200)

	in := filepath.Join(dir, "cands.jsonl")
	f, err := os.Create(in)
	require.NoError(t, err)
	enc := json.NewEncoder(f)
	for _, c := range []event.BplusCandidate{good, noSkim, badTopo, badPID} {
		require.NoError(t, enc.Encode(c))
	}
	require.NoError(t, f.Close())

	o := options{
		input:    in,
		output:   filepath.Join(dir, "status.jsonl"),
		dbPath:   filepath.Join(dir, "runs.db"),
		htmlPath: filepath.Join(dir, "selection.html"),
		workers:  2,
	}
	require.NoError(t, run(context.Background(), o))

	out, err := os.Open(o.output)
	require.NoError(t, err)
	defer out.Close()
	var got []event.StatusRecord
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		var r event.StatusRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		got = append(got, r)
	}
	assert.Equal(t, []event.StatusRecord{
		{Index: 0, Status: 7},
		{Index: 1, Status: 0},
		{Index: 2, Status: 1},
		{Index: 3, Status: 3},
	}, got)

	s, err := store.Open(o.dbPath)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	sel, err := s.Selections(context.Background(), runs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []uint8{7, 0, 1, 3}, sel)

	_, err = os.Stat(o.htmlPath)
	assert.NoError(t, err)
}
