package shell

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned by FindConfig/LoadConfig when no config
// file is found walking up from the starting directory.
var ErrConfigNotFound = errors.New("shell: no config file found")

// Config is the `.shellfront.yaml` configuration file: which analyzer
// stages run, strict mode, recovery thresholds/budgets, and the
// environment-variable allow-list, per SPEC_FULL.md's AMBIENT STACK.
// Grounded on the teacher's config.go Config/LoadConfig/FindConfig shape,
// repurposed from database-dialect selection to analyzer/recovery tuning.
type Config struct {
	// Strict, if true, treats warnings as errors for the `check` CLI
	// subcommand's exit code.
	Strict bool `yaml:"strict,omitempty"`

	// Stages lists which of the ten §4.7 semantic-analyzer passes to run.
	// An empty list means "all stages" (the analyzer's default set).
	Stages []string `yaml:"stages,omitempty"`

	// Recovery holds the §4.8 recovery-engine budget overrides.
	Recovery RecoveryConfigFile `yaml:"recovery,omitempty"`

	// EnvAllowList restricts which environment variables the variable-
	// resolution and data-flow stages (§4.7) treat as defined, for scripts that rely on a
	// known deployment environment rather than the ambient process one.
	EnvAllowList []string `yaml:"env_allow_list,omitempty"`
}

// RecoveryConfigFile mirrors RecoveryConfig in YAML-friendly form; zero
// fields fall back to DefaultRecoveryConfig's values via ResolveRecovery.
type RecoveryConfigFile struct {
	PanicThreshold      int `yaml:"panic_threshold,omitempty"`
	MaxAttemptsPerError int `yaml:"max_attempts_per_error,omitempty"`
	MaxCostPerRepair    int `yaml:"max_cost_per_repair,omitempty"`
	TotalCostBudget     int `yaml:"total_cost_budget,omitempty"`
	TopKStatistical     int `yaml:"top_k_statistical,omitempty"`
}

// ResolveRecovery overlays non-zero fields of r atop DefaultRecoveryConfig.
func (r RecoveryConfigFile) ResolveRecovery() RecoveryConfig {
	cfg := DefaultRecoveryConfig()

	if r.PanicThreshold != 0 {
		cfg.PanicThreshold = r.PanicThreshold
	}

	if r.MaxAttemptsPerError != 0 {
		cfg.MaxAttemptsPerError = r.MaxAttemptsPerError
	}

	if r.MaxCostPerRepair != 0 {
		cfg.MaxCostPerRepair = r.MaxCostPerRepair
	}

	if r.TotalCostBudget != 0 {
		cfg.TotalCostBudget = r.TotalCostBudget
	}

	if r.TopKStatistical != 0 {
		cfg.TopKStatistical = r.TopKStatistical
	}

	return cfg
}

// DefaultConfigNames are the filenames FindConfig searches for, nearest
// directory first.
var DefaultConfigNames = []string{".shellfront.yaml", ".shellfront.yml", "shellfront.yaml", "shellfront.yml"}

// LoadConfig finds and loads the nearest config file walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up
// to the filesystem root, exactly as the teacher's FindConfig does.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for d := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(d, name)

			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(d)
		if parent == d {
			return "", ErrConfigNotFound
		}

		d = parent
	}
}

// LoadConfigFile loads a config from a specific path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// StageEnabled reports whether name should run, given c.Stages (empty
// means every stage is enabled).
func (c *Config) StageEnabled(name string) bool {
	if c == nil || len(c.Stages) == 0 {
		return true
	}

	for _, s := range c.Stages {
		if s == name {
			return true
		}
	}

	return false
}

// EnvAllowed reports whether name is permitted by c.EnvAllowList (an empty
// list permits every name, matching the ambient-process default).
func (c *Config) EnvAllowed(name string) bool {
	if c == nil || len(c.EnvAllowList) == 0 {
		return true
	}

	for _, n := range c.EnvAllowList {
		if n == name {
			return true
		}
	}

	return false
}
