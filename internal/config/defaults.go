package config

import "time"

// DefaultApplier applies defaults for one configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// defaultAppliers run in order; later domains may read earlier results.
var defaultAppliers = []DefaultApplier{
	&layoutDefaultApplier{},
	&scriptsDefaultApplier{},
	&routesDefaultApplier{},
	&variantsDefaultApplier{},
	&watchDefaultApplier{},
}

func applyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

// DefaultRoutes mirror the layout of a site whose pages live under src/ and
// whose generated assets live under dist/.
func DefaultRoutes() []RouteConfig {
	return []RouteConfig{
		{Discard: `^node_modules`},
		{Discard: `^deploy`},
		{Match: `(dist[/\\].*)$`, To: `$1$`},
		{Match: `(static[/\\].*)$`, To: `$1$`},
		{Match: `(secret_deploy[/\\].*)$`, To: `$1$`},
		{Match: `^LICENSE$`},
		{Match: `^src[/\\](.*?\.html)$`, To: `$1$`},
	}
}

// DefaultVariants are the no-script variant under v/nojs and the full site at
// the deploy root. The root mount comes last so it is merged over the tree.
func DefaultVariants() []VariantConfig {
	return []VariantConfig{
		{
			Name:  "nojs",
			Mount: "v/nojs",
			Actions: []ActionRef{
				{File: "render"},
				{File: "strip-scripts"},
				{File: "rewrite-mount-links"},
				{Project: "noscript-fallback"},
			},
		},
		{
			Name:  "full",
			Mount: "",
			Actions: []ActionRef{
				{File: "render"},
				{File: "rewrite-mount-links"},
			},
		},
	}
}

type layoutDefaultApplier struct{}

func (layoutDefaultApplier) Domain() string { return "layout" }

func (layoutDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	if cfg.Source == "" {
		cfg.Source = "."
	}
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = "deploy"
	}
	if cfg.Output.Clean == nil {
		clean := true
		cfg.Output.Clean = &clean
	}
	if cfg.Templates.Directory == "" {
		cfg.Templates.Directory = "src"
	}
	if cfg.Templates.Partials == nil {
		cfg.Templates.Partials = []string{"layouts/**/*.html"}
	}
	if len(cfg.HTMLExtensions) == 0 {
		cfg.HTMLExtensions = []string{".html"}
	}
	return nil
}

type scriptsDefaultApplier struct{}

func (scriptsDefaultApplier) Domain() string { return "scripts" }

func (scriptsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if len(cfg.Scripts.Extensions) == 0 {
		cfg.Scripts.Extensions = []string{".js"}
	}
	if cfg.Scripts.PruneDirs == nil {
		cfg.Scripts.PruneDirs = []string{"dist"}
	}
	if cfg.Fallback.Page == "" {
		cfg.Fallback.Page = "var_unavailable.html"
	}
	return nil
}

type routesDefaultApplier struct{}

func (routesDefaultApplier) Domain() string { return "routes" }

func (routesDefaultApplier) ApplyDefaults(cfg *Config) error {
	if len(cfg.Routes) == 0 {
		cfg.Routes = DefaultRoutes()
	}
	return nil
}

type variantsDefaultApplier struct{}

func (variantsDefaultApplier) Domain() string { return "variants" }

func (variantsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if len(cfg.Variants) == 0 {
		cfg.Variants = DefaultVariants()
	}
	return nil
}

type watchDefaultApplier struct{}

func (watchDefaultApplier) Domain() string { return "watch" }

func (watchDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch.Ignore == nil {
		cfg.Watch.Ignore = []string{".git/**", "node_modules/**"}
	}
	return nil
}
