package config

import (
	"git.home.luguber.info/inful/sitevariants/internal/actions"
	"git.home.luguber.info/inful/sitevariants/internal/build"
	"git.home.luguber.info/inful/sitevariants/internal/foundation/errors"
	"git.home.luguber.info/inful/sitevariants/internal/pipeline"
	"git.home.luguber.info/inful/sitevariants/internal/render"
	"git.home.luguber.info/inful/sitevariants/internal/route"
)

// Router compiles the configured routes in order.
func (c *Config) Router() (*route.Router, error) {
	rules := make([]route.Rule, 0, len(c.Routes))
	for i, rc := range c.Routes {
		rule, err := compileRoute(rc)
		if err != nil {
			if ce, ok := errors.AsClassified(err); ok {
				return nil, ce.WithContext("route", i)
			}
			return nil, errors.WrapError(err, errors.CategoryConfig, "invalid route").
				WithContext("route", i).Build()
		}
		rules = append(rules, rule)
	}
	return route.NewRouter(rules), nil
}

func compileRoute(rc RouteConfig) (route.Rule, error) {
	switch {
	case rc.Discard != "" && rc.Match != "":
		return route.Rule{}, errors.ConfigError("route sets both discard and match").Build()
	case rc.Discard != "":
		if rc.To != "" {
			return route.Rule{}, errors.ConfigError("discard route must not set to").
				WithContext("pattern", rc.Discard).Build()
		}
		return route.NewDiscardRule(rc.Discard)
	case rc.Match != "":
		return route.NewRenameRule(rc.Match, rc.To)
	default:
		return route.Rule{}, errors.ConfigError("route needs discard or match").Build()
	}
}

// ActionOptions configures the built-in actions from this configuration.
func (c *Config) ActionOptions() actions.Options {
	return actions.Options{
		Renderer:         render.NewTemplateRenderer(c.TemplatesDir(), c.Templates.Partials),
		ScriptExtensions: c.Scripts.Extensions,
		PruneDirs:        c.Scripts.PruneDirs,
		FallbackPage:     c.Fallback.Page,
	}
}

// Registry builds the action registry for this configuration.
func (c *Config) Registry() *actions.Registry {
	return actions.NewRegistry(c.ActionOptions())
}

// VariantScripts resolves every configured variant against reg.
func (c *Config) VariantScripts(reg *actions.Registry) ([]*pipeline.Script, error) {
	scripts := make([]*pipeline.Script, 0, len(c.Variants))
	for _, v := range c.Variants {
		steps, err := resolveSteps(reg, v)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, &pipeline.Script{Name: v.Name, Mount: v.Mount, Steps: steps})
	}
	return scripts, nil
}

func resolveSteps(reg *actions.Registry, v VariantConfig) ([]pipeline.Step, error) {
	steps := make([]pipeline.Step, 0, len(v.Actions))
	for i, ref := range v.Actions {
		var (
			step pipeline.Step
			err  error
		)
		switch {
		case ref.File != "" && ref.Project != "":
			err = errors.ConfigError("action sets both file and project").Build()
		case ref.File != "":
			step, err = reg.Step(pipeline.KindFile, ref.File)
		case ref.Project != "":
			step, err = reg.Step(pipeline.KindProject, ref.Project)
		default:
			err = errors.ConfigError("action needs file or project").Build()
		}
		if err != nil {
			if ce, ok := errors.AsClassified(err); ok {
				return nil, ce.WithContext("variant", v.Name).WithContext("step", i)
			}
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// Plan turns the configuration into a build plan using reg for actions.
func (c *Config) Plan(reg *actions.Registry) (build.Plan, error) {
	router, err := c.Router()
	if err != nil {
		return build.Plan{}, err
	}
	scripts, err := c.VariantScripts(reg)
	if err != nil {
		return build.Plan{}, err
	}
	return build.Plan{
		SourceRoot:     c.SourceRoot(),
		DeployRoot:     c.DeployRoot(),
		CleanDeploy:    c.Output.CleanEnabled(),
		HTMLExtensions: c.HTMLExtensions,
		Router:         router,
		Scripts:        scripts,
	}, nil
}
