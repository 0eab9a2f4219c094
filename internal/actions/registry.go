package actions

import (
	"sort"

	"git.home.luguber.info/inful/sitevariants/internal/foundation/errors"
	"git.home.luguber.info/inful/sitevariants/internal/pipeline"
	"git.home.luguber.info/inful/sitevariants/internal/render"
)

// Options configures the built-in actions.
type Options struct {
	Renderer         render.Renderer
	ScriptExtensions []string
	PruneDirs        []string
	FallbackPage     string
}

// Registry resolves action names used in configuration to actions.
type Registry struct {
	files    map[string]pipeline.FileAction
	projects map[string]pipeline.ProjectAction
}

// NewRegistry builds the registry of built-in actions.
func NewRegistry(opts Options) *Registry {
	r := &Registry{
		files:    map[string]pipeline.FileAction{},
		projects: map[string]pipeline.ProjectAction{},
	}
	r.RegisterFile(Render{Renderer: opts.Renderer})
	r.RegisterFile(StripScripts{Extensions: opts.ScriptExtensions})
	r.RegisterFile(RewriteMountLinks{})
	r.RegisterProject(NoscriptFallback{
		FallbackPage:     opts.FallbackPage,
		ScriptExtensions: opts.ScriptExtensions,
		PruneDirs:        opts.PruneDirs,
	})
	r.RegisterProject(DeleteScripts{Extensions: opts.ScriptExtensions})
	r.RegisterProject(PruneDirs{Dirs: opts.PruneDirs})
	return r
}

// RegisterFile adds or replaces a file action.
func (r *Registry) RegisterFile(a pipeline.FileAction) { r.files[a.Name()] = a }

// RegisterProject adds or replaces a project action.
func (r *Registry) RegisterProject(a pipeline.ProjectAction) { r.projects[a.Name()] = a }

// Step resolves name as an action of the given kind. Unknown names and names
// used with the wrong kind are configuration errors.
func (r *Registry) Step(kind pipeline.Kind, name string) (pipeline.Step, error) {
	switch kind {
	case pipeline.KindFile:
		if a, ok := r.files[name]; ok {
			return pipeline.FileStep(a), nil
		}
		if _, ok := r.projects[name]; ok {
			return pipeline.Step{}, wrongKind(name, kind)
		}
	case pipeline.KindProject:
		if a, ok := r.projects[name]; ok {
			return pipeline.ProjectStep(a), nil
		}
		if _, ok := r.files[name]; ok {
			return pipeline.Step{}, wrongKind(name, kind)
		}
	}
	return pipeline.Step{}, errors.ConfigError("unknown action").
		WithContext("action", name).
		WithContext("kind", kind.String()).
		Build()
}

func wrongKind(name string, used pipeline.Kind) error {
	return errors.ConfigError("action used with the wrong kind").
		WithContext("action", name).
		WithContext("kind", used.String()).
		Build()
}

// Names lists the registered action names of a kind, sorted.
func (r *Registry) Names(kind pipeline.Kind) []string {
	var out []string
	if kind == pipeline.KindFile {
		for n := range r.files {
			out = append(out, n)
		}
	} else {
		for n := range r.projects {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
