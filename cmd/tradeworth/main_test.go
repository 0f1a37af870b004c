package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTrades(t *testing.T) {
	dir := t.TempDir()

	arrayPath := filepath.Join(dir, "array.json")
	require.NoError(t, os.WriteFile(arrayPath, []byte(`[{"date":"2024-01-02","pair":"EURUSD","type":"buy","entry":1.1,"lotSize":"0.1"}]`), 0644))

	raws, err := readTrades(arrayPath)
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, types.RawNumber("1.1"), raws[0].Entry)

	wrappedPath := filepath.Join(dir, "wrapped.json")
	require.NoError(t, os.WriteFile(wrappedPath, []byte(`{"trades":[{"date":"2024-01-02","pair":"XAUUSD","type":"sell","entry":"2000","lotSize":"1"},{"date":"2024-01-03","pair":"GBPUSD","type":"buy","entry":"1.25","lotSize":"1"}]}`), 0644))

	raws, err = readTrades(wrappedPath)
	require.NoError(t, err)
	assert.Len(t, raws, 2)

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`{"trades": 5}`), 0644))

	_, err = readTrades(badPath)
	assert.Error(t, err)

	_, err = readTrades(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestRenderStatistics(t *testing.T) {
	out := renderStatistics(types.EmptySnapshot(), 10000, 10)
	assert.Contains(t, out, "Overview")
	assert.Contains(t, out, types.GradeNone)
	assert.NotContains(t, out, "Pairs")

	snapshot := types.EmptySnapshot()
	snapshot.PairPerformance = []types.GroupPerformance{
		{Name: "EURUSD", Trades: 3, Wins: 2, Losses: 1, WinRate: 66.67, TotalPnL: 120},
		{Name: "GBPUSD", Trades: 1, Losses: 1, TotalPnL: -40},
	}

	out = renderStatistics(snapshot, 10000, 1)
	assert.Contains(t, out, "EURUSD")
	assert.NotContains(t, out, "GBPUSD")
}

func TestRenderImport(t *testing.T) {
	job := &types.ImportJob{
		ID:            "job-1",
		Status:        types.ImportStatusCompleted,
		Totals:        types.ImportTotals{Total: 3, Processed: 3, Succeeded: 1, Failed: 1, Duplicate: 1},
		SkipBreakdown: map[types.SkipReason]int{types.SkipDuplicate: 1, types.SkipInvalidEnum: 1},
		Verification:  &types.Verification{Matched: false},
		Error:         "statistics refresh failed: boom",
	}

	out := renderImport(job)
	assert.Contains(t, out, "job-1")
	assert.Contains(t, out, "mismatch")
	assert.Contains(t, out, "refresh failed")
	assert.Less(t, strings.Index(out, string(types.SkipDuplicate)), strings.Index(out, string(types.SkipInvalidEnum)))
}

func TestCommandsEndToEnd(t *testing.T) {
	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.json")
	dbPath := filepath.Join(dir, "journal.duckdb")
	exportPath := filepath.Join(dir, "stats.yaml")
	ctx := context.Background()

	require.NoError(t, newCommand().Run(ctx, []string{"tradeworth", "generate", "--count", "150", "--out", tradesPath}))

	data, err := os.ReadFile(tradesPath)
	require.NoError(t, err)

	var generated []types.RawTrade
	require.NoError(t, json.Unmarshal(data, &generated))
	assert.Len(t, generated, 150)

	require.NoError(t, newCommand().Run(ctx, []string{
		"tradeworth", "import", "--file", tradesPath, "--db", dbPath, "--user", "cli", "--log-level", "error",
	}))

	require.NoError(t, newCommand().Run(ctx, []string{
		"tradeworth", "stats", "--db", dbPath, "--user", "cli", "--log-level", "error", "--export", exportPath,
	}))

	export, err := types.ReadStatistics(exportPath)
	require.NoError(t, err)
	assert.Equal(t, "cli", export.UserID)
	assert.Equal(t, 150, export.Statistics.TotalTrades)

	schemaDir := filepath.Join(dir, "schema")
	require.NoError(t, newCommand().Run(ctx, []string{"tradeworth", "schema", "--out", schemaDir}))
	assert.FileExists(t, filepath.Join(schemaDir, "tradeworth-config.json"))
	assert.FileExists(t, filepath.Join(schemaDir, "tradeworth-config.yaml"))
}
