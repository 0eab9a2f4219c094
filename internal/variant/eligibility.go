// Package variant decides whether an HTML page participates in a build variant.
//
// Pages declare their participation with meta elements named "variants":
//
//	<meta name="variants" data-deny-all>
//	<meta name="variants" data-allow data-target="full">
//	<meta name="variants" data-deny data-target="nojs">
//
// The declarations are evaluated as sets, so their order in the document does
// not matter.
package variant

import (
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitevariants/internal/htmldoc"
	"git.home.luguber.info/inful/sitevariants/internal/util/sets"
)

const (
	metaName     = "variants"
	attrDenyAll  = "data-deny-all"
	attrAllow    = "data-allow"
	attrDeny     = "data-deny"
	attrTarget   = "data-target"
	metaNameAttr = "name"
)

// Directive is the variant metadata declared by one page.
type Directive struct {
	DenyAll bool
	Allow   sets.Set[string]
	Deny    sets.Set[string]
}

// Empty reports whether the page declares nothing, which means it takes part
// in every variant.
func (d Directive) Empty() bool {
	return !d.DenyAll && d.Allow.Len() == 0 && d.Deny.Len() == 0
}

// Extract collects the directive from a parsed document. Allow and deny
// markers without a data-target are ignored.
func Extract(doc *html.Node) Directive {
	d := Directive{Allow: sets.New[string](), Deny: sets.New[string]()}
	for _, m := range htmldoc.FindAll(doc, isVariantsMeta) {
		if _, ok := htmldoc.Attr(m, attrDenyAll); ok {
			d.DenyAll = true
		}
		target, ok := htmldoc.Attr(m, attrTarget)
		if !ok {
			continue
		}
		if _, ok := htmldoc.Attr(m, attrAllow); ok {
			d.Allow.Add(target)
		}
		if _, ok := htmldoc.Attr(m, attrDeny); ok {
			d.Deny.Add(target)
		}
	}
	return d
}

var isMeta = htmldoc.Tag("meta")

func isVariantsMeta(n *html.Node) bool {
	if !isMeta(n) {
		return false
	}
	name, ok := htmldoc.Attr(n, metaNameAttr)
	return ok && name == metaName
}

// Eligible reports whether a page with directive d participates in variant name.
//
// With any allow target present the page is in allow-list mode: it takes part
// only in allowed variants that are not also denied. Otherwise the deny targets
// form an exclusion list.
func Eligible(d Directive, name string) bool {
	if d.DenyAll {
		return false
	}
	if d.Allow.Len() == 0 && d.Deny.Len() == 0 {
		return true
	}
	if d.Allow.Len() > 0 {
		return d.Allow.Difference(d.Deny).Has(name)
	}
	return !d.Deny.Has(name)
}

// EligibleDocument extracts the directive from doc and evaluates it.
func EligibleDocument(doc *html.Node, name string) bool {
	return Eligible(Extract(doc), name)
}
