package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, int64(1), cfg.Transfer.AmountToleranceCents)
	assert.Equal(t, 3, cfg.Transfer.MaxDayDiff)
	assert.InDelta(t, 3.0, cfg.Audit.LargeMultiplier, 0.0001)
	assert.Equal(t, 3, cfg.Audit.MinSample)
	assert.Contains(t, cfg.Audit.FeeKeywords, "overdraft")
	assert.Equal(t, 3, cfg.Recurring.MinOccurrences)
	assert.Equal(t, 3, cfg.Suggest.MinManual)
	assert.Equal(t, 50, cfg.Suggest.Priority)
	assert.NotContains(t, cfg.ProfilesDir, "~")
}

func TestLoadOverrides(t *testing.T) {
	v := viper.New()
	v.Set("transfers.max_day_diff", 5)
	v.Set("audit.fee_keywords", []string{" Surcharge ", "", "FX"})
	v.Set("profiles.dir", "/tmp/ledger-test")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Transfer.MaxDayDiff)
	assert.Equal(t, []string{"surcharge", "fx"}, cfg.Audit.FeeKeywords)
	assert.Equal(t, "/tmp/ledger-test", cfg.ProfilesDir)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{name: "negative tolerance", key: "transfers.amount_tolerance_cents", val: -1},
		{name: "tiny multiplier", key: "audit.large_multiplier", val: 0.5},
		{name: "one occurrence", key: "recurring.min_occurrences", val: 1},
		{name: "zero manual", key: "suggestions.min_manual", val: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.val)
			_, err := Load(v)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("LEDGER_TEST_DIR", "/data")

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "~", want: home},
		{in: "~/ledger", want: filepath.Join(home, "ledger")},
		{in: "$LEDGER_TEST_DIR/p", want: "/data/p"},
		{in: "/abs/path", want: "/abs/path"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}
