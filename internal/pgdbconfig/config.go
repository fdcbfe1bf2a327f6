// Package pgdbconfig defines the front-end's static startup configuration
// and its TOML file format.
package pgdbconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/naoina/toml"
)

// Config is pgdb's static configuration, loaded once at startup and never
// written back.
type Config struct {
	Launcher string `toml:",omitempty"` // defaults to "srun"
	Host     string `toml:",omitempty"`
	Local    bool   `toml:",omitempty"`
	SBD      bool   `toml:",omitempty"`

	// ListenAddr is the front-end's overlay-tree listen address, the
	// "--parent" every launched back-end dials into.
	ListenAddr string `toml:",omitempty"`

	GDBPath string `toml:",omitempty"`

	SplitThreshold       int `toml:",omitempty"`
	CompressionThreshold int `toml:",omitempty"`

	RelayBranchingFactor int           `toml:",omitempty"`
	RelayBarrier         time.Duration `toml:",omitempty"`

	HistoryLength  int `toml:",omitempty"`
	VarobjMaxDepth int `toml:",omitempty"`

	CommandRetryRate float64 `toml:",omitempty"`

	SBDPolicyExpr       string   `toml:",omitempty"`
	SBDKnownExecutables []string `toml:",omitempty"`
	SBDRegionPath       string   `toml:",omitempty"`
	SBDSemaphorePath    string   `toml:",omitempty"`
	SBDMaxPayloadBytes  int      `toml:",omitempty"`

	DefaultFilters []string `toml:",omitempty"`
}

// Defaults holds zero-value-safe settings a loaded file only needs to
// override selectively.
var Defaults = Config{
	Launcher:             "srun",
	ListenAddr:           "0.0.0.0:4040",
	SplitThreshold:       1 << 16,
	CompressionThreshold: 1 << 12,
	RelayBranchingFactor: 8,
	RelayBarrier:         200 * time.Millisecond,
	HistoryLength:        64,
	VarobjMaxDepth:       12,
	CommandRetryRate:     20,
	SBDMaxPayloadBytes:   1 << 20,
}

// tomlSettings keeps naoina/toml's default field-name matching (exact Go
// field name), which is what Config is written against, so no custom
// NormFieldName/FieldToKey hooks are needed.
var tomlSettings = toml.Config{
	NormFieldName: toml.DefaultConfig.NormFieldName,
	FieldToKey:    toml.DefaultConfig.FieldToKey,
}

// Load reads and parses a TOML config file at path, starting from
// Defaults and overriding whatever fields the file sets.
func Load(path string) (Config, error) {
	cfg := Defaults
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("pgdbconfig: open %s: %w", path, err)
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("pgdbconfig: parse %s: %w", path, err)
	}
	return cfg, nil
}
