// Package manifest handles seam.toml project configuration, including the
// authoring convention for version gates: the declaration of which
// functions ship two implementations and at which host version the switch
// happens. Build tooling injects these declarations into modules as their
// gate attribute.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/seam-lang/seam/pkg/forms"
)

// Manifest represents a seam.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	Host    HostConfig  `toml:"host"`
	Store   StoreConfig `toml:"store"`
	Gates   []Gate      `toml:"gate"`

	// Dir is the directory containing the seam.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// HostConfig overrides host runtime settings.
type HostConfig struct {
	// Release overrides the host release string, mainly for testing a
	// module against a version other than the running one.
	Release string `toml:"release"`
}

// StoreConfig configures the image store location.
type StoreConfig struct {
	Path string `toml:"path"`
}

// Gate declares one version threshold and the functions that switch
// implementation at it.
type Gate struct {
	Threshold int      `toml:"threshold"`
	Fns       []GateFn `toml:"fn"`
}

// GateFn is one gated function's three identities.
type GateFn struct {
	Canonical string `toml:"canonical"`
	Arity     int    `toml:"arity"`
	Legacy    string `toml:"legacy"`
	Current   string `toml:"current"`
}

// Load parses a seam.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "seam.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Store.Path == "" {
		m.Store.Path = "seam.db"
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a seam.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "seam.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// StorePath returns the absolute path of the configured image store.
func (m *Manifest) StorePath() string {
	if filepath.IsAbs(m.Store.Path) {
		return m.Store.Path
	}
	return filepath.Join(m.Dir, m.Store.Path)
}

// Rules converts the gate declarations to version rules in declaration
// order.
func (m *Manifest) Rules() []forms.VersionRule {
	var rules []forms.VersionRule
	for _, g := range m.Gates {
		rule := forms.VersionRule{Threshold: g.Threshold}
		for _, fn := range g.Fns {
			rule.Mappings = append(rule.Mappings, forms.FuncMapping{
				Canonical: fn.Canonical,
				Arity:     fn.Arity,
				Legacy:    fn.Legacy,
				Current:   fn.Current,
			})
		}
		rules = append(rules, rule)
	}
	return rules
}

// Validate checks the manifest, applying the same invariants to the gate
// table that the rewrite pipeline enforces, so authoring mistakes surface
// at build time instead of first call.
func (m *Manifest) Validate() error {
	if m.Project.Name == "" {
		return fmt.Errorf("project name is required")
	}
	for _, g := range m.Gates {
		if g.Threshold <= 0 {
			return fmt.Errorf("gate threshold %d must be positive", g.Threshold)
		}
		if len(g.Fns) == 0 {
			return fmt.Errorf("gate with threshold %d declares no functions", g.Threshold)
		}
	}
	if err := forms.ValidateRules(m.Rules()); err != nil {
		return fmt.Errorf("gate table: %w", err)
	}
	return nil
}

// ApplyTo injects the manifest's gate declarations into a module as its
// gate attribute. Modules built from a manifest get their gate table this
// way rather than declaring it inline.
func (m *Manifest) ApplyTo(mod *forms.Module) {
	mod.AddGate(m.Rules()...)
}
