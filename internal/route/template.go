package route

import (
	"regexp"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/sitevariants/internal/foundation/errors"
)

var tokenPattern = regexp.MustCompile(`\$([a-zA-Z0-9_-]*)\$`)

// Template is a compiled outbound path template.
type Template struct {
	source string
	parts  []templatePart
}

type templatePart struct {
	literal string
	token   string
	isToken bool
}

// ParseTemplate splits an outbound template into literal and $token$ parts.
func ParseTemplate(source string) *Template {
	t := &Template{source: source}
	at := 0
	for _, m := range tokenPattern.FindAllStringSubmatchIndex(source, -1) {
		if m[0] > at {
			t.parts = append(t.parts, templatePart{literal: source[at:m[0]]})
		}
		t.parts = append(t.parts, templatePart{token: source[m[2]:m[3]], isToken: true})
		at = m[1]
	}
	if at < len(source) {
		t.parts = append(t.parts, templatePart{literal: source[at:]})
	}
	return t
}

// String returns the template source.
func (t *Template) String() string { return t.source }

// Tokens returns the token names referenced by the template, in order.
func (t *Template) Tokens() []string {
	var out []string
	for _, p := range t.parts {
		if p.isToken {
			out = append(out, p.token)
		}
	}
	return out
}

// Expand substitutes every token from bindings. A token without a binding is
// a configuration error.
func (t *Template) Expand(bindings map[string]string) (string, error) {
	var b strings.Builder
	for _, p := range t.parts {
		if !p.isToken {
			b.WriteString(p.literal)
			continue
		}
		v, ok := bindings[p.token]
		if !ok {
			return "", errors.ConfigError("outbound template references a group the inbound pattern does not capture").
				WithContext("template", t.source).
				WithContext("token", p.token).
				Build()
		}
		b.WriteString(v)
	}
	return b.String(), nil
}

// Bindings builds the substitution table for one match of re against s.
// loc is the result of re.FindStringSubmatchIndex(s). Groups that did not
// participate in the match bind to the empty string.
func Bindings(re *regexp.Regexp, s string, loc []int) map[string]string {
	groups := len(loc) / 2
	out := make(map[string]string, groups+2)
	out[""] = "$"
	out["0"] = s[loc[0]:loc[1]]
	names := re.SubexpNames()
	for i := 1; i < groups; i++ {
		v := ""
		if loc[2*i] >= 0 {
			v = s[loc[2*i]:loc[2*i+1]]
		}
		out[strconv.Itoa(i)] = v
		if i < len(names) && names[i] != "" {
			out[names[i]] = v
		}
	}
	return out
}

// boundNames lists every token name a match of re can bind.
func boundNames(re *regexp.Regexp) map[string]struct{} {
	out := map[string]struct{}{"": {}, "0": {}}
	for i, name := range re.SubexpNames() {
		if i == 0 {
			continue
		}
		out[strconv.Itoa(i)] = struct{}{}
		if name != "" {
			out[name] = struct{}{}
		}
	}
	return out
}
