package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"git.home.luguber.info/inful/sitevariants/internal/config"
	"git.home.luguber.info/inful/sitevariants/internal/fsutil"
	"git.home.luguber.info/inful/sitevariants/internal/htmldoc"
	"git.home.luguber.info/inful/sitevariants/internal/logfields"
	"git.home.luguber.info/inful/sitevariants/internal/route"
	"git.home.luguber.info/inful/sitevariants/internal/variant"
)

// PagesCmd implements the 'pages' command.
type PagesCmd struct{}

func (p *PagesCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	return RunPages(os.Stdout, cfg)
}

// RunPages prints, for every routed HTML page, the variants it takes part in.
// Pages are read from the source tree, before rendering.
func RunPages(w io.Writer, cfg *config.Config) error {
	router, err := cfg.Router()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(cfg.Variants))
	for _, v := range cfg.Variants {
		names = append(names, v.Name)
	}

	return fsutil.WalkFiles(cfg.SourceRoot(), func(path, rel string, _ os.FileInfo) error {
		if !isHTML(rel, cfg.HTMLExtensions) {
			return nil
		}
		d, rerr := router.Route(rel, "")
		if rerr != nil {
			return rerr
		}
		if d.Outcome != route.Copy {
			return nil
		}
		content, rerr := os.ReadFile(path)
		if rerr != nil {
			return fmt.Errorf("read %s: %w", rel, rerr)
		}
		doc, perr := htmldoc.Parse(content)
		if perr != nil {
			slog.Warn("Page is not parseable", logfields.File(rel), logfields.Error(perr))
			_, _ = fmt.Fprintf(w, "%s  unparseable\n", rel)
			return nil
		}
		directive := variant.Extract(doc)
		cols := make([]string, 0, len(names))
		for _, n := range names {
			mark := "-"
			if variant.Eligible(directive, n) {
				mark = "+"
			}
			cols = append(cols, mark+n)
		}
		_, _ = fmt.Fprintf(w, "%s  %s\n", rel, strings.Join(cols, " "))
		return nil
	})
}

func isHTML(rel string, exts []string) bool {
	lower := strings.ToLower(rel)
	for _, e := range exts {
		if strings.HasSuffix(lower, strings.ToLower(e)) {
			return true
		}
	}
	return false
}
