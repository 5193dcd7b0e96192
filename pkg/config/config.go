// Package config loads YAML preprocessing pipelines and builds the
// transformers they describe.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/romprep/core/model"
	"github.com/YuminosukeSato/romprep/pkg/errors"
	"github.com/YuminosukeSato/romprep/pkg/log"
	"github.com/YuminosukeSato/romprep/preprocessing"
)

// Config is the root configuration structure.
type Config struct {
	LogLevel  string           `yaml:"log_level"`
	Verbose   bool             `yaml:"verbose"`
	Variables []VariableConfig `yaml:"variables"`
}

// VariableConfig describes the transformer of one variable.
type VariableConfig struct {
	Name      string    `yaml:"name"`
	Size      int       `yaml:"size,omitempty"` // rows of the variable; 0 splits the state evenly
	Centering bool      `yaml:"centering"`
	Scaling   string    `yaml:"scaling,omitempty"`
	ScaleTo   []float64 `yaml:"scale_to,omitempty"`
	ByRow     bool      `yaml:"by_row,omitempty"`
	Identity  bool      `yaml:"identity,omitempty"` // leave the variable untouched
}

// Default returns a configuration with a single centered variable.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		Variables: []VariableConfig{{Centering: true}},
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config")
	}
	return Parse(data)
}

// Parse decodes YAML data. Keys that are absent keep their zero value
// except log_level, which defaults to info.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{LogLevel: "info"}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	return cfg, nil
}

// Save saves configuration to a file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// Validate checks the configuration without building anything.
func (c *Config) Validate() error {
	if _, err := log.ToLogLevel(c.LogLevel); err != nil {
		return errors.NewConfigurationError("log_level", err.Error(), c.LogLevel)
	}
	if len(c.Variables) == 0 {
		return errors.NewConfigurationError("variables", "at least one variable is required", 0)
	}

	sized := 0
	seen := make(map[string]bool, len(c.Variables))
	for i, v := range c.Variables {
		if err := v.validate(); err != nil {
			return errors.Wrapf(err, "variable %d", i)
		}
		if v.Size > 0 {
			sized++
		}
		if v.Name == "" {
			continue
		}
		if seen[v.Name] {
			return errors.NewConfigurationError("variables", "duplicate variable name", v.Name)
		}
		seen[v.Name] = true
	}
	if sized != 0 && sized != len(c.Variables) {
		return errors.NewConfigurationError("size", "either every variable or none must set a size", sized)
	}
	return nil
}

func (v VariableConfig) validate() error {
	if v.Size < 0 {
		return errors.NewConfigurationError("size", "must be non-negative", v.Size)
	}
	if v.Identity {
		if v.Centering || v.Scaling != "" || v.ScaleTo != nil || v.ByRow {
			return errors.NewConfigurationError("identity", "cannot be combined with centering or scaling", v.Name)
		}
		return nil
	}
	s, err := preprocessing.ParseScaling(v.Scaling)
	if err != nil {
		return err
	}
	if v.ScaleTo == nil {
		return nil
	}
	if len(v.ScaleTo) != 2 {
		return errors.NewConfigurationError("scale_to", "must have exactly two entries", v.ScaleTo)
	}
	if !s.UsesRange() {
		return errors.NewConfigurationError("scale_to", "only valid for minmax scalings", s.String())
	}
	return preprocessing.ValidateScaleTo(v.ScaleTo[0], v.ScaleTo[1])
}

// Build validates the configuration and returns the transformer it
// describes: a ShiftScaleTransformer or NullTransformer for a single
// unsized variable, a TransformerMulti otherwise.
func (c *Config) Build() (model.Transformer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	transformers := make([]model.Transformer, len(c.Variables))
	for i, v := range c.Variables {
		tr, err := c.buildVariable(v)
		if err != nil {
			return nil, errors.Wrapf(err, "variable %d", i)
		}
		transformers[i] = tr
	}
	if len(transformers) == 1 && c.Variables[0].Size == 0 {
		return transformers[0], nil
	}

	var opts []preprocessing.MultiOption
	if c.Variables[0].Size > 0 {
		sizes := make([]int, len(c.Variables))
		for i, v := range c.Variables {
			sizes[i] = v.Size
		}
		opts = append(opts, preprocessing.WithVariableSizes(sizes...))
	}
	return preprocessing.NewTransformerMulti(transformers, opts...)
}

func (c *Config) buildVariable(v VariableConfig) (model.Transformer, error) {
	if v.Identity {
		return preprocessing.NewNullTransformer(v.Name), nil
	}
	s, err := preprocessing.ParseScaling(v.Scaling)
	if err != nil {
		return nil, err
	}
	opts := []preprocessing.Option{
		preprocessing.WithName(v.Name),
		preprocessing.WithCentering(v.Centering),
		preprocessing.WithScaling(s),
		preprocessing.WithByRow(v.ByRow),
		preprocessing.WithVerbose(c.Verbose),
	}
	if v.ScaleTo != nil {
		opts = append(opts, preprocessing.WithScaleTo(v.ScaleTo[0], v.ScaleTo[1]))
	}
	return preprocessing.NewShiftScaleTransformer(opts...)
}
