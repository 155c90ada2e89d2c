package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Veraticus/the-ledger-must-balance/internal/audit"
	"github.com/Veraticus/the-ledger-must-balance/internal/pattern"
	"github.com/Veraticus/the-ledger-must-balance/internal/recurring"
	"github.com/Veraticus/the-ledger-must-balance/internal/transfer"
	"github.com/spf13/viper"
)

// Config is the typed view of the application configuration.
type Config struct {
	ProfilesDir   string
	ServerAddress string
	LogLevel      string
	LogFormat     string
	Audit         audit.Config
	Suggest       pattern.SuggestConfig
	Transfer      transfer.Config
	Recurring     recurring.Config
}

// DefaultDataDir is where profile databases live unless configured otherwise.
const DefaultDataDir = "~/.local/share/ledger"

// SetDefaults registers every configuration key with its default value.
func SetDefaults(v *viper.Viper) {
	td := transfer.DefaultConfig()
	ad := audit.DefaultConfig()
	rd := recurring.DefaultConfig()
	sd := pattern.DefaultSuggestConfig()

	v.SetDefault("profiles.dir", filepath.Join(DefaultDataDir, "profiles"))
	v.SetDefault("server.address", "127.0.0.1:8787")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("transfers.amount_tolerance_cents", td.AmountToleranceCents)
	v.SetDefault("transfers.max_day_diff", td.MaxDayDiff)

	v.SetDefault("audit.fee_keywords", ad.FeeKeywords)
	v.SetDefault("audit.large_multiplier", ad.LargeMultiplier)
	v.SetDefault("audit.min_sample", ad.MinSample)

	v.SetDefault("recurring.min_occurrences", rd.MinOccurrences)
	v.SetDefault("recurring.max_gap_stddev", rd.MaxGapStdDev)

	v.SetDefault("suggestions.min_manual", sd.MinManual)
	v.SetDefault("suggestions.min_uncategorized", sd.MinUncategorized)
	v.SetDefault("suggestions.priority", sd.Priority)
}

// Load reads a Config out of v, applying defaults for unset keys.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	cfg := Config{
		ProfilesDir:   ExpandPath(v.GetString("profiles.dir")),
		ServerAddress: v.GetString("server.address"),
		LogLevel:      v.GetString("logging.level"),
		LogFormat:     v.GetString("logging.format"),
		Transfer: transfer.Config{
			AmountToleranceCents: v.GetInt64("transfers.amount_tolerance_cents"),
			MaxDayDiff:           v.GetInt("transfers.max_day_diff"),
		},
		Audit: audit.Config{
			FeeKeywords:     normalizeKeywords(v.GetStringSlice("audit.fee_keywords")),
			LargeMultiplier: v.GetFloat64("audit.large_multiplier"),
			MinSample:       v.GetInt("audit.min_sample"),
		},
		Recurring: recurring.Config{
			MinOccurrences: v.GetInt("recurring.min_occurrences"),
			MaxGapStdDev:   v.GetFloat64("recurring.max_gap_stddev"),
		},
		Suggest: pattern.SuggestConfig{
			MinManual:        v.GetInt("suggestions.min_manual"),
			MinUncategorized: v.GetInt("suggestions.min_uncategorized"),
			Priority:         v.GetInt("suggestions.priority"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that tunables are in range.
func (c Config) Validate() error {
	switch {
	case c.ProfilesDir == "":
		return fmt.Errorf("%w: profiles.dir is empty", ErrInvalidConfig)
	case c.Transfer.AmountToleranceCents < 0:
		return fmt.Errorf("%w: transfers.amount_tolerance_cents must be >= 0", ErrInvalidConfig)
	case c.Transfer.MaxDayDiff < 0:
		return fmt.Errorf("%w: transfers.max_day_diff must be >= 0", ErrInvalidConfig)
	case c.Audit.LargeMultiplier <= 1:
		return fmt.Errorf("%w: audit.large_multiplier must be > 1", ErrInvalidConfig)
	case c.Audit.MinSample < 1:
		return fmt.Errorf("%w: audit.min_sample must be >= 1", ErrInvalidConfig)
	case c.Recurring.MinOccurrences < 2:
		return fmt.Errorf("%w: recurring.min_occurrences must be >= 2", ErrInvalidConfig)
	case c.Suggest.MinManual < 1 || c.Suggest.MinUncategorized < 1:
		return fmt.Errorf("%w: suggestion thresholds must be >= 1", ErrInvalidConfig)
	}
	return nil
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
