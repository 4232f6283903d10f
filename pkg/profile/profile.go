package profile

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/pd-buddy/pdbuddy-go/pkg/model"
	"github.com/pd-buddy/pdbuddy-go/pkg/pdo"
	"github.com/pd-buddy/pdbuddy-go/pkg/service"
	"github.com/pd-buddy/pdbuddy-go/pkg/transport"
)

// Format is a profile file format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatForPath returns the format implied by a file extension.
func FormatForPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".toml":
		return FormatTOML, true
	default:
		return "", false
	}
}

// Profile holds the settings shared by the pdbs tools.
type Profile struct {
	// Port is the serial port. Empty means discover by USB ID.
	Port string `yaml:"port" toml:"port"`

	// Serial selects a device by USB serial number during discovery.
	Serial string `yaml:"serial" toml:"serial"`

	// Timeout bounds one exchange, as a Go duration ("1s", "500ms").
	Timeout string `yaml:"timeout" toml:"timeout"`

	// NoSync skips the Ctrl-D sent when a session opens.
	NoSync bool `yaml:"no_sync" toml:"no_sync"`

	// ProtocolLog is a path for CBOR protocol capture. Empty disables it.
	ProtocolLog string `yaml:"protocol_log" toml:"protocol_log"`

	Limits model.Limits `yaml:"limits" toml:"limits"`
	Caps   pdo.Caps     `yaml:"caps" toml:"caps"`

	// DisabledRules lists power rule IDs skipped by check.
	DisabledRules []string `yaml:"disabled_rules" toml:"disabled_rules"`

	Presets map[string]Preset `yaml:"presets" toml:"presets"`
}

// Preset is a named configuration. Exactly one of CurrentMA and PowerMW
// is used; PowerMW wins when set.
type Preset struct {
	VoltageMV    int  `yaml:"voltage_mv" toml:"voltage_mv"`
	MinVoltageMV int  `yaml:"vmin_mv" toml:"vmin_mv"`
	MaxVoltageMV int  `yaml:"vmax_mv" toml:"vmax_mv"`
	CurrentMA    int  `yaml:"current_ma" toml:"current_ma"`
	PowerMW      int  `yaml:"power_mw" toml:"power_mw"`
	GiveBack     bool `yaml:"giveback" toml:"giveback"`
}

// Config returns the preset as a configuration.
func (p Preset) Config() model.Config {
	cfg := model.NewConfig(p.VoltageMV, p.CurrentMA).WithVoltageRange(p.MinVoltageMV, p.MaxVoltageMV)
	if p.PowerMW != 0 {
		cfg = cfg.WithPower(p.PowerMW)
	}
	if p.GiveBack {
		cfg = cfg.WithFlags(model.FlagGiveBack)
	}
	return cfg
}

// Default returns the profile used when no file is given.
func Default() *Profile {
	return &Profile{
		Timeout: transport.DefaultTimeout.String(),
		Limits:  model.DefaultLimits(),
		Caps:    pdo.DefaultCaps(),
	}
}

// TimeoutDuration returns the parsed timeout. Validate must have passed.
func (p *Profile) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(p.Timeout)
	if err != nil || p.Timeout == "" {
		return transport.DefaultTimeout
	}
	return d
}

// Preset returns a named preset.
func (p *Profile) Preset(name string) (Preset, bool) {
	preset, ok := p.Presets[name]
	return preset, ok
}

// PresetNames returns the preset names, sorted.
func (p *Profile) PresetNames() []string {
	names := make([]string, 0, len(p.Presets))
	for name := range p.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the profile for consistency.
func (p *Profile) Validate() error {
	if p.Timeout != "" {
		d, err := time.ParseDuration(p.Timeout)
		if err != nil {
			return &LoadError{Field: "timeout", Message: "invalid duration", Cause: err}
		}
		if d <= 0 {
			return &LoadError{Field: "timeout", Message: "must be positive"}
		}
	}

	l := p.Limits
	if l.MinVoltageMV <= 0 || l.MinVoltageMV > l.MaxVoltageMV {
		return &LoadError{Field: "limits", Message: "voltage bounds must satisfy 0 < min <= max"}
	}
	if l.MinCurrentMA < 0 || l.MinCurrentMA > l.MaxCurrentMA {
		return &LoadError{Field: "limits", Message: "current bounds must satisfy 0 <= min <= max"}
	}
	if l.MinPowerMW < 0 || l.MinPowerMW > l.MaxPowerMW {
		return &LoadError{Field: "limits", Message: "power bounds must satisfy 0 <= min <= max"}
	}
	if l.VoltageStepMV < 0 || l.CurrentStepMA < 0 || l.PowerStepMW < 0 {
		return &LoadError{Field: "limits", Message: "steps must not be negative"}
	}

	if p.Caps.MaxCurrentMA <= 0 || p.Caps.MaxPowerMW <= 0 {
		return &LoadError{Field: "caps", Message: "caps must be positive"}
	}

	registry := pdo.NewDefaultRegistry(p.Caps)
	for _, id := range p.DisabledRules {
		if _, ok := registry.Lookup(id); !ok {
			return &LoadError{Field: "disabled_rules", Message: "unknown rule " + id}
		}
	}

	for _, name := range p.PresetNames() {
		if err := model.Validate(p.Presets[name].Config(), p.Limits); err != nil {
			return &LoadError{Field: "presets." + name, Message: "invalid preset", Cause: err}
		}
	}
	return nil
}

// SessionConfig returns the session settings this profile describes.
func (p *Profile) SessionConfig() service.SessionConfig {
	cfg := service.DefaultSessionConfig()
	cfg.Limits = p.Limits
	cfg.Caps = p.Caps
	cfg.Sync = !p.NoSync
	cfg.Transport.Name = p.Port
	cfg.Transport.Timeout = p.TimeoutDuration()
	return cfg
}

// Parse parses a profile in the given format over the defaults and
// validates it.
func Parse(data []byte, format Format) (*Profile, error) {
	p := Default()

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, p); err != nil {
			return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, p); err != nil {
			return nil, &LoadError{Message: "failed to parse TOML", Cause: err}
		}
	default:
		return nil, &LoadError{Message: "unsupported format " + string(format)}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load loads a profile from a file.
func Load(path string) (*Profile, error) {
	format, ok := FormatForPath(path)
	if !ok {
		return nil, &LoadError{File: path, Message: "unsupported extension (want .yaml, .yml or .toml)"}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}

	p, err := Parse(data, format)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: err.Error()}
	}
	return p, nil
}

// DefaultPath returns the per-user profile location,
// e.g. ~/.config/pdbuddy/profile.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "pdbuddy", "profile.yaml"), nil
}

// LoadOrDefault loads path. An empty path tries DefaultPath and falls back
// to Default when that file does not exist.
func LoadOrDefault(path string) (*Profile, error) {
	if path != "" {
		return Load(path)
	}
	def, err := DefaultPath()
	if err != nil {
		return Default(), nil
	}
	if _, err := os.Stat(def); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(def)
}
