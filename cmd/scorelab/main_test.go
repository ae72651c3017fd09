package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/scorelab/internal/category"
	"github.com/sawpanic/scorelab/internal/scoring"
	"github.com/sawpanic/scorelab/internal/series"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"score", "backtest", "tune", "fetch", "serve"} {
		assert.True(t, names[want], want)
	}
}

func TestParseLookback(t *testing.T) {
	d, err := parseLookback("", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, d)

	d, err = parseLookback("730d", 0)
	require.NoError(t, err)
	assert.Equal(t, 730*24*time.Hour, d)

	d, err = parseLookback("2w", 0)
	require.NoError(t, err)
	assert.Equal(t, 14*24*time.Hour, d)

	_, err = parseLookback("soon", 0)
	assert.Error(t, err)
	_, err = parseLookback("0d", 0)
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"quantum", "tech_stocks"}, splitList(" quantum, ,tech_stocks,"))
	assert.Empty(t, splitList(""))
}

func TestParseFields(t *testing.T) {
	fields, err := parseFields([]string{"rsi_oversold", "adx_multiplier"})
	require.NoError(t, err)
	assert.Equal(t, []category.Field{category.FieldRSIOversold, category.FieldADXMultiplier}, fields)

	_, err = parseFields([]string{"magic"})
	assert.Error(t, err)
}

func TestBacktestConfigFromFlags(t *testing.T) {
	cmd := newBacktestCmd()
	require.NoError(t, cmd.Flags().Parse([]string{
		"--categories", "quantum,tech_stocks",
		"--per-category", "2",
		"--min-move", "45",
		"--timeframe", "1D",
		"--denomination", "gold",
		"--history", "365d",
		"--workers", "3",
		"--out", "/tmp/bt",
	}))

	cfg, err := backtestConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, []string{"quantum", "tech_stocks"}, cfg.Categories)
	assert.Equal(t, 2, cfg.PerCategory)
	assert.Equal(t, 45.0, cfg.MinMovePct)
	assert.Equal(t, series.TF1D, cfg.Timeframe)
	assert.Equal(t, series.Gold, cfg.Denomination)
	assert.Equal(t, 365*24*time.Hour, cfg.History)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "/tmp/bt", cfg.OutputDir)

	cmd = newBacktestCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--denomination", "yen"}))
	_, err = backtestConfig(cmd)
	assert.Error(t, err)
}

func TestTuneCmdSharesBacktestFlags(t *testing.T) {
	cmd := newTuneCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--min-move", "50"}))

	cfg, err := backtestConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, 50.0, cfg.MinMovePct)
	assert.Equal(t, "./artifacts/backtest", cfg.OutputDir)
}

func TestHistoryFollowsDataLookback(t *testing.T) {
	day := 24 * time.Hour

	cmd := newBacktestCmd()
	require.NoError(t, cmd.Flags().Parse(nil))
	cfg, err := backtestConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, 1825*day, cfg.History)
	historyFromData(cmd, &cfg, 2000*day)
	assert.Equal(t, 2000*day, cfg.History)

	cmd = newTuneCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--history", "900d"}))
	cfg, err = backtestConfig(cmd)
	require.NoError(t, err)
	historyFromData(cmd, &cfg, 2000*day)
	assert.Equal(t, 900*day, cfg.History, "an explicit --history wins")
}

func TestTopContributions(t *testing.T) {
	b := scoring.Breakdown{
		{Name: "rsi_oversold", Points: 2},
		{Name: "golden_cross", Points: 0},
		{Name: "adx_strong", Points: 1.5},
		{Name: "volume_surge", Points: -0.5},
		{Name: "explosive_bottom", Points: 3},
	}
	assert.Equal(t, "rsi_oversold +2.0, adx_strong +1.5, volume_surge -0.5 ...", topContributions(b, 3))
	assert.Equal(t, "", topContributions(nil, 3))
}
