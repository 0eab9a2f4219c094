package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitevariants/internal/config"
	"git.home.luguber.info/inful/sitevariants/internal/foundation/errors"
	"git.home.luguber.info/inful/sitevariants/internal/fsutil"
	"git.home.luguber.info/inful/sitevariants/internal/route"
)

// RouteCmd implements the 'route' command: a dry run of the staging pass.
type RouteCmd struct {
	Only string `help:"Only list decisions of this outcome (copy, discard, no-match)"`
}

func (r *RouteCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	return RunRoute(os.Stdout, cfg, r.Only)
}

// RunRoute prints the routing decision of every file under the source root.
func RunRoute(w io.Writer, cfg *config.Config, only string) error {
	switch only {
	case "", route.Copy.String(), route.Discard.String(), route.NoMatch.String():
	default:
		return errors.ValidationError("unknown routing outcome").WithContext("outcome", only).Build()
	}
	router, err := cfg.Router()
	if err != nil {
		return err
	}
	rules := router.Rules()
	counts := map[route.Outcome]int{}

	err = fsutil.WalkFiles(cfg.SourceRoot(), func(_, rel string, _ os.FileInfo) error {
		d, rerr := router.Route(rel, "")
		if rerr != nil {
			return rerr
		}
		counts[d.Outcome]++
		if only != "" && d.Outcome.String() != only {
			return nil
		}
		switch d.Outcome {
		case route.Copy:
			_, _ = fmt.Fprintf(w, "copy      %s -> %s  [%d: %s]\n", rel, filepath.ToSlash(d.Dest), d.Rule, rules[d.Rule])
		case route.Discard:
			_, _ = fmt.Fprintf(w, "discard   %s  [%d: %s]\n", rel, d.Rule, rules[d.Rule])
		default:
			_, _ = fmt.Fprintf(w, "no-match  %s\n", rel)
		}
		return nil
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "%d copied, %d discarded, %d unmatched\n",
		counts[route.Copy], counts[route.Discard], counts[route.NoMatch])
	return nil
}
