// Package config loads the engine's YAML-configurable knobs:
// term canonicalization (caseSensitive/stripPunctuation/
// normalizeWhitespace/numberPrecision/timePrecision), the optional
// hypervector ranker (vsa.dimensions/vsa.similarityThreshold), the VM's
// default budget and strict/trace-level switches, the closure engine's
// default scheduling mode, and the mode adapter's confidence-penalty
// table.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"nerdkernel/internal/budget"
	"nerdkernel/internal/execlog"
	"nerdkernel/internal/logging"
	"nerdkernel/internal/mode"
	"nerdkernel/internal/term"
	"nerdkernel/internal/vsa"
)

// ClosureMode selects when the forward-chaining engine runs relative to
// a program's own CLOSURE opcode.
type ClosureMode string

const (
	// ClosureOnDemand runs closure only where a program names it via a
	// CLOSURE instruction (the reference behavior).
	ClosureOnDemand ClosureMode = "onDemand"
	// ClosureEager runs closure automatically once after every program,
	// over whatever rule set the caller supplied out of band.
	ClosureEager ClosureMode = "eager"
)

// NormalizationConfig controls term canonicalization.
type NormalizationConfig struct {
	CaseSensitive       bool `yaml:"case_sensitive"`
	StripPunctuation    bool `yaml:"strip_punctuation"`
	NormalizeWhitespace bool `yaml:"normalize_whitespace"`
	NumberPrecision     int  `yaml:"number_precision"`
	TimePrecision       string `yaml:"time_precision"` // ms|second|minute|hour|day|month|year
}

// VSAConfig controls the optional hypervector similarity ranker.
// None of these fields ever influences mode, confidence, or conflict detection
// - the ranker is advisory ordering only.
type VSAConfig struct {
	Enabled             bool    `yaml:"enabled"`
	Dimensions          int     `yaml:"dimensions"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// BudgetConfig is the YAML shape of vm.defaultBudget.
type BudgetConfig struct {
	MaxDepth    int   `yaml:"max_depth"`
	MaxSteps    int   `yaml:"max_steps"`
	MaxBranches int   `yaml:"max_branches"`
	MaxTimeMs   int64 `yaml:"max_time_ms"`
}

// VMConfig is the yaml `vm.*` block.
type VMConfig struct {
	DefaultBudget BudgetConfig `yaml:"default_budget"`
	StrictMode    bool         `yaml:"strict_mode"`
	TraceLevel    string       `yaml:"trace_level"` // minimal|standard|verbose
}

// ClosureConfig is the yaml `closure.*` block.
type ClosureConfig struct {
	DefaultMode ClosureMode `yaml:"default_mode"`
}

// PenaltiesConfig is the yaml shape of the mode adapter's confidence
// penalty table.
type PenaltiesConfig struct {
	Direct           float64 `yaml:"direct"`
	Temporal         float64 `yaml:"temporal"`
	Indirect         float64 `yaml:"indirect"`
	BudgetExhaustion float64 `yaml:"budget_exhaustion"`
}

// ModeConfig is the yaml `mode.*` block.
type ModeConfig struct {
	Penalties     PenaltiesConfig `yaml:"penalties"`
	MinConfidence float64         `yaml:"min_confidence"`
}

// LoggingConfig configures the logging package.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories"`
}

// Config holds every recognized configuration option.
type Config struct {
	Normalization NormalizationConfig `yaml:"normalization"`
	VSA           VSAConfig           `yaml:"vsa"`
	VM            VMConfig            `yaml:"vm"`
	Closure       ClosureConfig       `yaml:"closure"`
	Mode          ModeConfig          `yaml:"mode"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// DefaultConfig returns the reference configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		Normalization: NormalizationConfig{
			CaseSensitive:       false,
			StripPunctuation:    true,
			NormalizeWhitespace: true,
			NumberPrecision:     6,
			TimePrecision:       "second",
		},
		VSA: VSAConfig{
			Enabled:             false,
			Dimensions:          10000,
			SimilarityThreshold: 0.85,
		},
		VM: VMConfig{
			DefaultBudget: BudgetConfig{MaxDepth: 64, MaxSteps: 100000, MaxBranches: 10000, MaxTimeMs: 30000},
			StrictMode:    false,
			TraceLevel:    "standard",
		},
		Closure: ClosureConfig{DefaultMode: ClosureOnDemand},
		Mode: ModeConfig{
			Penalties:     PenaltiesConfig{Direct: 0.3, Temporal: 0.2, Indirect: 0.1, BudgetExhaustion: 0.2},
			MinConfidence: 0.1,
		},
		Logging: LoggingConfig{DebugMode: false, Level: "info", JSONFormat: false},
	}
}

// Load reads configuration from a YAML file, falling back to defaults
// if the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// TermOptions builds term.Options from the normalization block, keeping
// the default unit table (the unit table is not user-configurable).
func (c *Config) TermOptions() term.Options {
	return term.Options{
		CaseSensitive:       c.Normalization.CaseSensitive,
		NormalizeWhitespace: c.Normalization.NormalizeWhitespace,
		StripPunctuation:    c.Normalization.StripPunctuation,
		NumberPrecision:     c.Normalization.NumberPrecision,
		TimePrecision:       term.Precision(c.Normalization.TimePrecision),
		UnitTable:           term.DefaultUnitTable(),
	}
}

// BudgetLimits builds budget.Limits from the vm.defaultBudget block.
func (c *Config) BudgetLimits() budget.Limits {
	b := c.VM.DefaultBudget
	return budget.Limits{MaxDepth: b.MaxDepth, MaxSteps: b.MaxSteps, MaxBranches: b.MaxBranches, MaxTimeMs: b.MaxTimeMs}
}

// TraceLevel builds an execlog.Level from vm.traceLevel, defaulting to
// standard on an unrecognized value.
func (c *Config) TraceLevel() execlog.Level {
	switch c.VM.TraceLevel {
	case "minimal":
		return execlog.LevelMinimal
	case "verbose":
		return execlog.LevelVerbose
	default:
		return execlog.LevelStandard
	}
}

// ModeAdapterConfig builds a mode.Config from the mode.* block and vm.strictMode.
func (c *Config) ModeAdapterConfig() mode.Config {
	p := c.Mode.Penalties
	return mode.Config{
		Penalties: mode.Penalties{
			Direct:           p.Direct,
			Temporal:         p.Temporal,
			Indirect:         p.Indirect,
			BudgetExhaustion: p.BudgetExhaustion,
		},
		MinConfidence: c.Mode.MinConfidence,
		StrictMode:    c.VM.StrictMode,
	}
}

// VSAEngineConfig builds vsa.Config from the vsa.* block, for
// vsa.NewEngine - the core never imports a concrete VSA backend itself,
// only this translation from YAML config to the ranker's own config
// shape.
func (c *Config) VSAEngineConfig() vsa.Config {
	return vsa.Config{
		Enabled:             c.VSA.Enabled,
		Dimensions:          c.VSA.Dimensions,
		SimilarityThreshold: c.VSA.SimilarityThreshold,
	}
}

// ConfigureLogging wires this config's Logging block into the logging
// package, so a single Load call is enough to get categorized file
// logging running under the given workspace root.
func (c *Config) ConfigureLogging(workspace string) error {
	return logging.Configure(workspace, c.Logging.DebugMode, c.Logging.Level, c.Logging.JSONFormat, c.Logging.Categories)
}

// Validate checks cross-field constraints the YAML decoder can't catch
// on its own.
func (c *Config) Validate() error {
	if c.Normalization.NumberPrecision < 0 {
		return fmt.Errorf("normalization.number_precision must be >= 0")
	}
	switch c.Closure.DefaultMode {
	case ClosureOnDemand, ClosureEager:
	default:
		return fmt.Errorf("closure.default_mode must be %q or %q", ClosureOnDemand, ClosureEager)
	}
	switch c.VM.TraceLevel {
	case "minimal", "standard", "verbose":
	default:
		return fmt.Errorf("vm.trace_level must be minimal, standard, or verbose")
	}
	if c.VSA.Enabled && c.VSA.Dimensions <= 0 {
		return fmt.Errorf("vsa.dimensions must be > 0 when vsa.enabled")
	}
	return nil
}
