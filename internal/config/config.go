// Package config loads hoshigen's TOML-based generator defaults: diagnostic
// severity overrides, default grammar options, and listen/cache settings for
// internal/httpapi (spec §3's Options, §7's severity thresholds).
//
// Grounded on _examples/dekarrin-tunaq/internal/tqw's TOML file loading
// (github.com/BurntSushi/toml), adapted from a world-data format to a flat
// generator-config one.
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/calderwood/hoshi/internal/diag"
	"github.com/calderwood/hoshi/internal/grammar"
)

// GrammarDefaults holds the grammar.Options fields a config file may
// override. A key the file omits keeps its default; a key the file sets,
// even to zero or false, takes the file's value.
type GrammarDefaults struct {
	Lookaheads     int  `toml:"lookaheads"`
	Conflicts      int  `toml:"conflicts"`
	ErrorRecovery  bool `toml:"error_recovery"`
	KeepWhitespace bool `toml:"keep_whitespace"`
	CaseSensitive  bool `toml:"case_sensitive"`
}

// Config is hoshigen.toml's shape.
type Config struct {
	Grammar GrammarDefaults `toml:"grammar"`

	// Severity maps a diag.Category name to "error", "warning" or "info",
	// overriding diag's built-in default for that category.
	Severity map[string]string `toml:"severity"`

	// Listen is the internal/httpapi bind address (e.g. "localhost:8080").
	Listen string `toml:"listen"`

	// CachePath is the sqlite file internal/cache opens.
	CachePath string `toml:"cache_path"`
}

// Default returns the configuration in force when no file is loaded.
func Default() Config {
	return Config{
		Grammar:   GrammarDefaults(grammar.DefaultOptions()),
		Listen:    "localhost:8080",
		CachePath: "hoshi-cache.db",
	}
}

// Load reads and parses a hoshigen.toml file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Options builds a grammar.Options from the config's grammar defaults.
func (c Config) Options() grammar.Options {
	return grammar.Options(c.Grammar)
}

// ApplySeverity installs every configured category override onto sink.
func (c Config) ApplySeverity(sink *diag.Sink) {
	for name, sev := range c.Severity {
		sink.SetOverride(diag.Category(name), parseSeverity(sev))
	}
}

// parseSeverity maps a hoshigen.toml severity name to the numeric scale
// diag.Diagnostic uses (0-99 warning, 100+ error; see diag.defaultSeverity).
func parseSeverity(s string) diag.Severity {
	switch s {
	case "error":
		return diag.ErrorThreshold
	case "warning":
		return 50
	default:
		return 10
	}
}
