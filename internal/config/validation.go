package config

import (
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitevariants/internal/actions"
	"git.home.luguber.info/inful/sitevariants/internal/deploy"
	"git.home.luguber.info/inful/sitevariants/internal/foundation/errors"
	"git.home.luguber.info/inful/sitevariants/internal/pipeline"
)

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	return newConfigurationValidator(c).validate()
}

type configurationValidator struct {
	config   *Config
	registry *actions.Registry
}

func newConfigurationValidator(cfg *Config) *configurationValidator {
	return &configurationValidator{config: cfg, registry: actions.NewRegistry(actions.Options{})}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validatePaths(); err != nil {
		return err
	}
	if err := cv.validateExtensions(); err != nil {
		return err
	}
	if err := cv.validateRoutes(); err != nil {
		return err
	}
	if err := cv.validateVariants(); err != nil {
		return err
	}
	return cv.validateWatch()
}

func (cv *configurationValidator) validatePaths() error {
	if cv.config.Output.Directory == "" {
		return errors.ConfigError("output.directory must not be empty").Build()
	}
	if err := cv.validateDeployRoot(); err != nil {
		return err
	}
	if err := relativeInside("fallback.page", cv.config.Fallback.Page); err != nil {
		return err
	}
	for _, d := range cv.config.Scripts.PruneDirs {
		if err := relativeInside("scripts.prune_dirs", d); err != nil {
			return err
		}
	}
	return nil
}

// validateDeployRoot rejects a deploy root that is, or contains, a tree the
// build reads from. Cleaning it would delete the site's sources.
func (cv *configurationValidator) validateDeployRoot() error {
	deployRoot, err := filepath.Abs(cv.config.DeployRoot())
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "cannot resolve output.directory").Build()
	}
	for _, input := range []struct {
		field string
		dir   string
	}{
		{"source", cv.config.SourceRoot()},
		{"templates.directory", cv.config.TemplatesDir()},
	} {
		dir, absErr := filepath.Abs(input.dir)
		if absErr != nil {
			continue
		}
		if within(deployRoot, dir) {
			return errors.ConfigError("output.directory must not contain the site's sources").
				WithContext("field", input.field).
				WithContext("output", deployRoot).
				WithContext("path", dir).
				Build()
		}
	}
	return nil
}

// within reports whether p is root or lies below it.
func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// relativeInside rejects paths that are absolute or escape their root.
func relativeInside(field, p string) error {
	slashed := filepath.ToSlash(p)
	clean := path.Clean(slashed)
	if p == "" || path.IsAbs(slashed) || filepath.IsAbs(p) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.ConfigError("path must be relative and stay inside the site").
			WithContext("field", field).
			WithContext("path", p).
			Build()
	}
	return nil
}

func (cv *configurationValidator) validateExtensions() error {
	for _, group := range []struct {
		field string
		exts  []string
	}{
		{"html_extensions", cv.config.HTMLExtensions},
		{"scripts.extensions", cv.config.Scripts.Extensions},
	} {
		for _, ext := range group.exts {
			if len(ext) < 2 || !strings.HasPrefix(ext, ".") {
				return errors.ConfigError("extensions must start with a dot").
					WithContext("field", group.field).
					WithContext("extension", ext).
					Build()
			}
		}
	}
	return nil
}

func (cv *configurationValidator) validateRoutes() error {
	_, err := cv.config.Router()
	return err
}

func (cv *configurationValidator) validateVariants() error {
	seen := map[string]struct{}{}
	for i, v := range cv.config.Variants {
		if strings.TrimSpace(v.Name) == "" {
			return errors.ConfigError("variant name must not be empty").
				WithContext("index", i).Build()
		}
		if _, dup := seen[v.Name]; dup {
			return errors.ConfigError("duplicate variant name").
				WithContext("variant", v.Name).Build()
		}
		seen[v.Name] = struct{}{}
		if err := deploy.ValidateMount(v.Mount); err != nil {
			return err
		}
		if _, err := cv.steps(v); err != nil {
			return err
		}
	}
	return nil
}

func (cv *configurationValidator) steps(v VariantConfig) ([]pipeline.Step, error) {
	return resolveSteps(cv.registry, v)
}

func (cv *configurationValidator) validateWatch() error {
	if cv.config.Watch.Interval < 0 {
		return errors.ConfigError("watch.interval must not be negative").Build()
	}
	return nil
}
