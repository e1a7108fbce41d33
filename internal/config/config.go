package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"treeprune/internal/matcher"
)

// PatternList holds regexp sources. In YAML it is either a single string or a
// list of strings.
type PatternList []string

// UnmarshalYAML accepts a scalar or a sequence of scalars
func (p *PatternList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*p = PatternList{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*p = PatternList(list)
		return nil
	default:
		return fmt.Errorf("line %d: %w", value.Line, errBadPatterns)
	}
}

// Compile turns the sources into a pattern set
func (p PatternList) Compile() (matcher.Patterns, error) {
	return matcher.Normalize([]string(p))
}

type Target struct {
	Path     string      `yaml:"path" json:"path"`
	Includes PatternList `yaml:"includes" json:"includes"`
	Excludes PatternList `yaml:"excludes" json:"excludes"`
	KeepRoot bool        `yaml:"keep_root" json:"keep_root"`
}

type LoggingCfg struct {
	File         string `yaml:"file" json:"file"`                   // Optional log file, appended to stdout output
	RotationDays int    `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
	Color        string `yaml:"color" json:"color"`                 // auto, always or never
}

type Config struct {
	Targets         []Target   `yaml:"targets" json:"targets"`
	DryRun          bool       `yaml:"dry_run" json:"dry_run"`
	Log             bool       `yaml:"log" json:"log"`
	Logging         LoggingCfg `yaml:"logging" json:"logging"`
	DatabasePath    string     `yaml:"database_path" json:"database_path"`       // Empty disables removal history
	MetricsTextfile string     `yaml:"metrics_textfile" json:"metrics_textfile"` // Empty disables metrics export
	ProtectedPaths  []string   `yaml:"protected_paths" json:"protected_paths"`   // Added to the built-in protected set
	MaxRemovalRate  float64    `yaml:"max_removal_rate" json:"max_removal_rate"` // Removals per second, 0 is unlimited
}

// Color modes
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

var (
	errNoTargets    = errors.New("configuration must specify at least one target")
	errInvalidPath  = errors.New("path must be absolute")
	errBadPatterns  = errors.New("patterns must be a string or a list of strings")
	errBadColor     = errors.New("logging.color must be auto, always or never")
	errBadRotation  = errors.New("logging.rotation_days cannot be negative")
	errBadRate      = errors.New("max_removal_rate cannot be negative")
	errInvalidRegex = errors.New("invalid pattern")
)

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a config with every default applied and no targets,
// for command lines that name their targets as arguments
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.RotationDays == 0 {
		c.Logging.RotationDays = 30 // Default: keep logs for 30 days
	}
	if c.Logging.Color == "" {
		c.Logging.Color = ColorAuto
	}
}

func (c *Config) validateAndDefault() error {
	if len(c.Targets) == 0 {
		return errNoTargets
	}
	if c.Logging.RotationDays < 0 {
		return errBadRotation
	}
	if c.MaxRemovalRate < 0 {
		return errBadRate
	}
	c.applyDefaults()

	switch c.Logging.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("%w: %q", errBadColor, c.Logging.Color)
	}

	for i := range c.Targets {
		if err := c.Targets[i].validate(); err != nil {
			return fmt.Errorf("targets[%d]: %w", i, err)
		}
	}

	protected := make([]string, 0, len(c.ProtectedPaths))
	for _, p := range c.ProtectedPaths {
		cp, err := cleanAbsolute(p)
		if err != nil {
			return fmt.Errorf("protected_paths: %w", err)
		}
		protected = append(protected, cp)
	}
	c.ProtectedPaths = protected

	return nil
}

// Validate checks a target assembled outside a config file, e.g. from flags
func (t *Target) Validate() error {
	return t.validate()
}

func (t *Target) validate() error {
	cp, err := cleanAbsolute(t.Path)
	if err != nil {
		return err
	}
	t.Path = cp

	if _, err := t.Includes.Compile(); err != nil {
		return fmt.Errorf("includes: %w: %w", errInvalidRegex, err)
	}
	if _, err := t.Excludes.Compile(); err != nil {
		return fmt.Errorf("excludes: %w: %w", errInvalidRegex, err)
	}
	return nil
}

func cleanAbsolute(p string) (string, error) {
	if p == "" {
		return "", errInvalidPath
	}
	cp := filepath.Clean(p)
	if !filepath.IsAbs(cp) {
		return "", fmt.Errorf("%w: %s", errInvalidPath, p)
	}
	return cp, nil
}
