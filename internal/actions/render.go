package actions

import (
	"context"

	"git.home.luguber.info/inful/sitevariants/internal/pipeline"
	"git.home.luguber.info/inful/sitevariants/internal/render"
)

// Render replaces every staged HTML page with the output of the template of
// the same relative path.
type Render struct {
	Renderer render.Renderer
}

func (Render) Name() string { return "render" }

func (a Render) ApplyFile(_ context.Context, fc *pipeline.FileContext) error {
	if !fc.IsHTML() {
		return nil
	}
	s := fc.Script()
	out, err := a.Renderer.Render(fc.Rel(), render.PageData{
		Variant: render.Variant{Name: s.Name, Mount: s.Mount},
		Path:    fc.Rel(),
	})
	if err != nil {
		return err
	}
	fc.ReplaceContent([]byte(out))
	fc.Count(CountRendered, 1)
	return nil
}
