package route

import (
	"fmt"
	"regexp"

	"git.home.luguber.info/inful/sitevariants/internal/foundation/errors"
)

// Outcome is the result of evaluating a rule or the router against a path.
type Outcome int

const (
	// NoMatch means the rule did not apply; evaluation continues.
	NoMatch Outcome = iota
	// Discard drops the file from the staging area.
	Discard
	// Copy stages the file at the decision's destination.
	Copy
)

func (o Outcome) String() string {
	switch o {
	case Discard:
		return "discard"
	case Copy:
		return "copy"
	default:
		return "no-match"
	}
}

// DefaultOutbound is the template used when a rename rule names none: the whole match.
const DefaultOutbound = "$0$"

// Rule is one routing rule: an inbound pattern and either a discard or a rename outcome.
type Rule struct {
	inbound  *regexp.Regexp
	outbound *Template // nil for discard rules
}

// NewDiscardRule builds a rule that drops every path matching pattern.
func NewDiscardRule(pattern string) (Rule, error) {
	re, err := compileInbound(pattern)
	if err != nil {
		return Rule{}, err
	}
	return Rule{inbound: re}, nil
}

// NewRenameRule builds a rule that copies matching paths to the expansion of
// outbound. Tokens the pattern can never bind are rejected up front.
func NewRenameRule(pattern, outbound string) (Rule, error) {
	re, err := compileInbound(pattern)
	if err != nil {
		return Rule{}, err
	}
	if outbound == "" {
		outbound = DefaultOutbound
	}
	tpl := ParseTemplate(outbound)
	bound := boundNames(re)
	for _, tok := range tpl.Tokens() {
		if _, ok := bound[tok]; !ok {
			return Rule{}, errors.ConfigError("outbound template references a group the inbound pattern does not capture").
				WithContext("pattern", pattern).
				WithContext("template", outbound).
				WithContext("token", tok).
				Build()
		}
	}
	return Rule{inbound: re, outbound: tpl}, nil
}

// MustDiscard is NewDiscardRule for static rule tables.
func MustDiscard(pattern string) Rule {
	r, err := NewDiscardRule(pattern)
	if err != nil {
		panic(err)
	}
	return r
}

// MustRename is NewRenameRule for static rule tables.
func MustRename(pattern, outbound string) Rule {
	r, err := NewRenameRule(pattern, outbound)
	if err != nil {
		panic(err)
	}
	return r
}

func compileInbound(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid routing pattern").
			Fatal().
			WithContext("pattern", pattern).
			Build()
	}
	return re, nil
}

// IsDiscard reports whether the rule drops matching files.
func (r Rule) IsDiscard() bool { return r.outbound == nil }

// Pattern returns the inbound pattern source.
func (r Rule) Pattern() string { return r.inbound.String() }

// Outbound returns the outbound template source ("" for discard rules).
func (r Rule) Outbound() string {
	if r.outbound == nil {
		return ""
	}
	return r.outbound.String()
}

func (r Rule) String() string {
	if r.IsDiscard() {
		return fmt.Sprintf("discard %q", r.Pattern())
	}
	return fmt.Sprintf("%q -> %q", r.Pattern(), r.Outbound())
}

// Apply evaluates the rule against a slash-separated relative path. For a
// matching rename rule it returns the expanded (still relative) destination.
func (r Rule) Apply(rel string) (Outcome, string, error) {
	loc := r.inbound.FindStringSubmatchIndex(rel)
	if loc == nil {
		return NoMatch, "", nil
	}
	if r.IsDiscard() {
		return Discard, "", nil
	}
	out, err := r.outbound.Expand(Bindings(r.inbound, rel, loc))
	if err != nil {
		return NoMatch, "", err
	}
	return Copy, out, nil
}
