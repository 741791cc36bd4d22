package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/profilegen/internal/engine"
	"github.com/roach88/profilegen/internal/generate"
)

// EnvPrefix prefixes every environment override, e.g.
// PROFILEGEN_GENERATION_MAX_ROWS.
const EnvPrefix = "PROFILEGEN"

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence; flags are
// applied by the caller on the returned Config.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	d := engine.DefaultSettings()
	v.SetDefault("generation.walker", string(d.Walker))
	v.SetDefault("generation.field_selection", string(d.FieldSelection))
	v.SetDefault("generation.mode", string(d.Mode))
	v.SetDefault("generation.combination", string(d.Combination))
	v.SetDefault("generation.max_rows", d.MaxRows)
	v.SetDefault("generation.max_string_length", d.MaxStringLength)
	v.SetDefault("generation.partition", d.Partition)
	v.SetDefault("generation.parallelism", d.Parallelism)
	v.SetDefault("generation.seed", 0)
	v.SetDefault("generation.violate", false)
	v.SetDefault("store.path", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Generation: engine.Settings{
			Walker:          engine.WalkerKind(v.GetString("generation.walker")),
			FieldSelection:  engine.FieldSelection(v.GetString("generation.field_selection")),
			Mode:            generate.Mode(v.GetString("generation.mode")),
			Combination:     engine.Combination(v.GetString("generation.combination")),
			MaxRows:         v.GetInt("generation.max_rows"),
			MaxStringLength: v.GetInt("generation.max_string_length"),
			Partition:       v.GetBool("generation.partition"),
			Parallelism:     v.GetInt("generation.parallelism"),
			Seed:            v.GetUint64("generation.seed"),
			Violate:         v.GetBool("generation.violate"),
		},
		Store: StoreConfig{
			Path: v.GetString("store.path"),
		},
	}

	normalize(cfg)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// normalize rewrites strategy names to their canonical spelling so
// "Reductive" in a file and "reductive" on the command line agree.
func normalize(cfg *Config) {
	g := &cfg.Generation
	if k, err := engine.ParseWalkerKind(string(g.Walker)); err == nil {
		g.Walker = k
	}
	if s, err := engine.ParseFieldSelection(string(g.FieldSelection)); err == nil {
		g.FieldSelection = s
	}
	if m, err := generate.ParseMode(string(g.Mode)); err == nil {
		g.Mode = m
	}
	if c, err := engine.ParseCombination(string(g.Combination)); err == nil {
		g.Combination = c
	}
}
