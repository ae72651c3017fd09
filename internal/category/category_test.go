package category

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable_KnownCategories(t *testing.T) {
	table := DefaultTable()

	crypto := table.Lookup("cryptocurrencies")
	assert.Equal(t, 35.0, crypto.RSIOversold)
	assert.Equal(t, 2.0, crypto.VolumeMultiplier)
	assert.Equal(t, 20.0, crypto.ADXThreshold)
	assert.True(t, crypto.ExtremeOversoldEMABonus)

	miner := table.Lookup("miner_hpc")
	assert.Equal(t, -30.0, miner.CapitulationThreshold)
	assert.Equal(t, 2.5, miner.ContinuationBonus)
	assert.Equal(t, -20.0, table.Lookup("silver_miners_esg").CapitulationThreshold)

	assert.Equal(t, 30.0, table.Lookup("index_etfs").RSIOversold)
	assert.Equal(t, 35.0, table.Lookup("quantum").VeryStrongADX)
}

func TestLookup_UnknownFallsBackToDefault(t *testing.T) {
	table := DefaultTable()
	assert.Equal(t, table.Lookup(DefaultName), table.Lookup("not_a_category"))
	assert.Equal(t, Baseline(), table.Lookup("not_a_category"))

	unknown := table.Classify("not_a_category")
	assert.False(t, unknown.Known)
	def := table.Classify(DefaultName)
	assert.True(t, def.Known)
	unknown.Name, unknown.Known = def.Name, def.Known
	assert.Equal(t, def, unknown)
}

func TestClassify(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		name          string
		crypto, tech  bool
		mining        bool
		meanReversion bool
	}{
		{"cryptocurrencies", true, false, false, true},
		{"faang_hot_stocks", false, true, false, true},
		{"semiconductors", false, true, false, true},
		{"miner_hpc", false, false, true, false},
		{"precious_metals", false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := table.Classify(tt.name)
			assert.Equal(t, tt.crypto, f.Crypto)
			assert.Equal(t, tt.tech, f.Tech)
			assert.Equal(t, tt.mining, f.Mining)
			assert.Equal(t, tt.meanReversion, f.MeanReversion)
			assert.Equal(t, tt.meanReversion, f.InvertRSI)
		})
	}
}

func TestClassify_InvertRSIToggle(t *testing.T) {
	table := DefaultTable()
	off := false
	p := table.Lookup("cryptocurrencies")
	p.InvertRSI = &off

	changed, err := table.WithParams("cryptocurrencies", p)
	require.NoError(t, err)
	assert.False(t, changed.Classify("cryptocurrencies").InvertRSI)
	assert.True(t, changed.Classify("cryptocurrencies").MeanReversion)
	assert.True(t, table.Classify("cryptocurrencies").InvertRSI, "original table untouched")
}

func TestWithParams_RejectsInvalid(t *testing.T) {
	p := Baseline()
	p.RSIOverbought = 20 // below oversold
	_, err := DefaultTable().WithParams("tech_stocks", p)
	assert.Error(t, err)
}

func TestParamsFieldAccess(t *testing.T) {
	p := Baseline()
	for _, f := range Fields() {
		_, ok := p.Get(f)
		assert.True(t, ok, f)
	}

	q, ok := p.With(FieldADXThreshold, 30)
	require.True(t, ok)
	assert.Equal(t, 30.0, q.ADXThreshold)
	assert.Equal(t, 25.0, p.ADXThreshold)

	_, ok = p.Get(Field("nope"))
	assert.False(t, ok)
}

func TestLoadTable_InheritsDefaults(t *testing.T) {
	doc := `
default:
  rsi_oversold: 32
categories:
  cryptocurrencies:
    volume_multiplier: 0
    adx_threshold: 18
  precious_metals:
    invert_rsi: true
groups:
  crypto: [cryptocurrencies]
points:
  explosive_base: 5
`
	path := filepath.Join(t.TempDir(), "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	table, err := LoadTable(path)
	require.NoError(t, err)

	crypto := table.Lookup("cryptocurrencies")
	assert.Equal(t, 32.0, crypto.RSIOversold, "inherited from default block")
	assert.Equal(t, 0.0, crypto.VolumeMultiplier, "explicit zero kept")
	assert.Equal(t, 18.0, crypto.ADXThreshold)
	assert.Equal(t, 70.0, crypto.RSIOverbought, "baseline")

	assert.Equal(t, 32.0, table.Lookup("unknown").RSIOversold)
	assert.True(t, table.Classify("precious_metals").InvertRSI)
	assert.False(t, table.Classify("tech_stocks").Tech, "groups replaced by file")

	assert.Equal(t, 5.0, table.Points().ExplosiveBase)
	assert.Equal(t, DefaultPoints().GoldenCross, table.Points().GoldenCross)
}

func TestLoadTable_Errors(t *testing.T) {
	_, err := LoadTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseTable([]byte("categories:\n  x:\n    rsi_oversold: 80\n    rsi_overbought: 60\n"))
	assert.Error(t, err)

	_, err = ParseTable([]byte("default: [1, 2"))
	assert.Error(t, err)
}

func TestDefaultPoints(t *testing.T) {
	p := DefaultPoints()
	assert.Equal(t, 20.0, p.Cap)
	assert.Equal(t, 4.0, p.ExplosiveBase)
	assert.Equal(t, -1.5, p.DeathCross)
	assert.Equal(t, -30.0, p.ExtremeOversoldPct)
}
