package pipeline

import (
	"context"
	"strings"

	"git.home.luguber.info/inful/sitevariants/internal/progress"
)

// Kind tags a step as per-file or per-project.
type Kind int

const (
	KindFile Kind = iota
	KindProject
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindProject:
		return "project"
	default:
		return "unknown"
	}
}

// FileAction transforms one staged file through its FileContext.
type FileAction interface {
	Name() string
	ApplyFile(ctx context.Context, fc *FileContext) error
}

// ProjectAction transforms the staging tree as a whole.
type ProjectAction interface {
	Name() string
	ApplyProject(ctx context.Context, pc *ProjectContext, sink progress.Sink) error
}

// Step is one entry of a script. Exactly one of File or Project is set,
// matching Kind.
type Step struct {
	Kind    Kind
	File    FileAction
	Project ProjectAction
}

// FileStep wraps a file action.
func FileStep(a FileAction) Step { return Step{Kind: KindFile, File: a} }

// ProjectStep wraps a project action.
func ProjectStep(a ProjectAction) Step { return Step{Kind: KindProject, Project: a} }

// Name returns the wrapped action's name.
func (s Step) Name() string {
	if s.Kind == KindProject {
		if s.Project == nil {
			return ""
		}
		return s.Project.Name()
	}
	if s.File == nil {
		return ""
	}
	return s.File.Name()
}

// Script is a variant's build description.
type Script struct {
	Name  string
	Mount string
	Steps []Step
}

// String renders the script as "name@mount[a b c]".
func (s *Script) String() string {
	names := make([]string, len(s.Steps))
	for i, st := range s.Steps {
		names[i] = st.Name()
	}
	return s.Name + "@" + s.Mount + "[" + strings.Join(names, " ") + "]"
}

// Phase is one unit of execution: either a batch of file actions run together
// in a single traversal, or a single project action.
type Phase struct {
	Files   []FileAction
	Project ProjectAction
}

// IsBatch reports whether the phase is a file batch.
func (p Phase) IsBatch() bool { return p.Project == nil }

// Names lists the actions in the phase.
func (p Phase) Names() []string {
	if p.Project != nil {
		return []string{p.Project.Name()}
	}
	out := make([]string, len(p.Files))
	for i, a := range p.Files {
		out[i] = a.Name()
	}
	return out
}

// Partition groups maximal runs of consecutive file steps into batches and
// gives every project step its own phase. Declared order is preserved.
func Partition(steps []Step) []Phase {
	var phases []Phase
	var batch []FileAction
	flush := func() {
		if len(batch) > 0 {
			phases = append(phases, Phase{Files: batch})
			batch = nil
		}
	}
	for _, s := range steps {
		switch s.Kind {
		case KindFile:
			batch = append(batch, s.File)
		case KindProject:
			flush()
			phases = append(phases, Phase{Project: s.Project})
		}
	}
	flush()
	return phases
}
