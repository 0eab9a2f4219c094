package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitevariants/internal/foundation/errors"
)

// CurrentVersion is the only configuration version this build understands.
const CurrentVersion = "1.0"

// DefaultPath is used when no configuration file is named on the command line.
const DefaultPath = "sitevariants.yaml"

// Config is the sitevariants configuration file.
type Config struct {
	Version        string          `yaml:"version"`
	Source         string          `yaml:"source"`
	Output         OutputConfig    `yaml:"output"`
	Workspace      string          `yaml:"workspace,omitempty"`
	Templates      TemplatesConfig `yaml:"templates"`
	HTMLExtensions []string        `yaml:"html_extensions"`
	Scripts        ScriptsConfig   `yaml:"scripts"`
	Fallback       FallbackConfig  `yaml:"fallback"`
	Routes         []RouteConfig   `yaml:"routes"`
	Variants       []VariantConfig `yaml:"variants"`
	Watch          WatchConfig     `yaml:"watch"`

	// baseDir anchors relative paths; it is the directory holding the file.
	baseDir string
}

// OutputConfig controls the deploy root.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Clean     *bool  `yaml:"clean,omitempty"`
}

// CleanEnabled reports whether the deploy root is wiped before a build.
func (o OutputConfig) CleanEnabled() bool {
	return o.Clean == nil || *o.Clean
}

// TemplatesConfig points the renderer at the template tree.
type TemplatesConfig struct {
	Directory string   `yaml:"directory"`
	Partials  []string `yaml:"partials,omitempty"`
}

// ScriptsConfig describes what counts as client-side script.
type ScriptsConfig struct {
	Extensions []string `yaml:"extensions"`
	PruneDirs  []string `yaml:"prune_dirs,omitempty"`
}

// FallbackConfig names the page substituted for ineligible pages.
type FallbackConfig struct {
	Page string `yaml:"page"`
}

// RouteConfig is one routing rule. Exactly one of Discard or Match is set.
type RouteConfig struct {
	Discard string `yaml:"discard,omitempty"`
	Match   string `yaml:"match,omitempty"`
	To      string `yaml:"to,omitempty"`
}

// VariantConfig is one build script.
type VariantConfig struct {
	Name    string      `yaml:"name"`
	Mount   string      `yaml:"mount"`
	Actions []ActionRef `yaml:"actions"`
}

// ActionRef names an action; exactly one of File or Project is set.
type ActionRef struct {
	File    string `yaml:"file,omitempty"`
	Project string `yaml:"project,omitempty"`
}

// WatchConfig tunes the watch command.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	Interval time.Duration `yaml:"interval,omitempty"`
	Ignore   []string      `yaml:"ignore,omitempty"`
}

// Load reads, expands, defaults and validates the configuration at path.
// .env files next to the configuration are loaded first.
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "cannot resolve configuration path").
			WithContext("path", path).Build()
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		return nil, errors.ConfigError("configuration file not found").
			WithContext("path", path).Build()
	}
	if envErr := loadEnvFiles(filepath.Dir(abs)); envErr != nil {
		return nil, envErr
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read configuration").
			WithContext("path", path).Build()
	}
	return parse(expandEnv(data), filepath.Dir(abs))
}

// Parse decodes configuration bytes, applies defaults and validates the
// result. Relative paths resolve against the working directory.
func Parse(data []byte) (*Config, error) {
	return parse(data, "")
}

func parse(data []byte, baseDir string) (*Config, error) {
	cfg := Config{baseDir: baseDir}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse configuration").Build()
	}
	if cfg.Version != "" && cfg.Version != CurrentVersion {
		return nil, errors.ConfigError(fmt.Sprintf("unsupported configuration version %q (expected %s)", cfg.Version, CurrentVersion)).Build()
	}
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	_ = applyDefaults(cfg)
	return cfg
}

// Init writes the default configuration to path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).Build()
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal default configuration").Build()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to create configuration directory").
				WithContext("path", dir).Build()
		}
	}
	// #nosec G306 -- configuration is meant to be readable by collaborators
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write configuration").
			WithContext("path", path).Build()
	}
	return nil
}

// ResolvePath anchors a relative path at the configuration file's directory.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || c.baseDir == "" {
		return p
	}
	return filepath.Join(c.baseDir, p)
}

// SourceRoot is the resolved working root.
func (c *Config) SourceRoot() string { return c.ResolvePath(c.Source) }

// DeployRoot is the resolved deploy root.
func (c *Config) DeployRoot() string { return c.ResolvePath(c.Output.Directory) }

// TemplatesDir is the resolved template root.
func (c *Config) TemplatesDir() string { return c.ResolvePath(c.Templates.Directory) }

// WorkspaceDir is the resolved parent for staging areas; empty means the OS temp dir.
func (c *Config) WorkspaceDir() string { return c.ResolvePath(c.Workspace) }
