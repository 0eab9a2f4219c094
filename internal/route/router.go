package route

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitevariants/internal/foundation/errors"
)

// Decision is the router's verdict for one source path.
type Decision struct {
	Outcome Outcome
	// Dest is the absolute destination inside the staging root (Copy only).
	Dest string
	// Rule is the index of the deciding rule, or -1 when nothing matched.
	Rule int
}

// Router evaluates an ordered rule list. It is immutable once built.
type Router struct {
	rules []Rule
}

// NewRouter builds a router over a copy of rules.
func NewRouter(rules []Rule) *Router {
	return &Router{rules: append([]Rule(nil), rules...)}
}

// Rules returns a copy of the configured rules.
func (r *Router) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Route decides where rel (slash-separated, relative to the source root) goes
// when staging into stagingRoot.
func (r *Router) Route(rel, stagingRoot string) (Decision, error) {
	for i, rule := range r.rules {
		outcome, out, err := rule.Apply(rel)
		if err != nil {
			return Decision{}, err
		}
		switch outcome {
		case NoMatch:
			continue
		case Discard:
			return Decision{Outcome: Discard, Rule: i}, nil
		case Copy:
			dest, err := joinWithin(stagingRoot, out)
			if err != nil {
				if ce, ok := errors.AsClassified(err); ok {
					err = ce.WithContext("source", rel).WithContext("rule", rule.String())
				}
				return Decision{}, err
			}
			return Decision{Outcome: Copy, Dest: dest, Rule: i}, nil
		}
	}
	return Decision{Outcome: NoMatch, Rule: -1}, nil
}

// joinWithin joins rel onto root and rejects results outside root.
func joinWithin(root, rel string) (string, error) {
	dest := filepath.Join(root, filepath.FromSlash(rel))
	back, err := filepath.Rel(root, dest)
	if err != nil || back == "." || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", errors.ConfigError("routed destination escapes the staging area").
			WithContext("destination", rel).
			Build()
	}
	return dest, nil
}
