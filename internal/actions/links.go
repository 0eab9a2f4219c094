package actions

import (
	"context"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitevariants/internal/foundation/errors"
	"git.home.luguber.info/inful/sitevariants/internal/htmldoc"
	"git.home.luguber.info/inful/sitevariants/internal/pipeline"
	"git.home.luguber.info/inful/sitevariants/internal/render"
)

var linkAttrs = []string{"href", "src"}

// RewriteMountLinks prefixes root-relative href and src values with the
// variant's mount so a variant served below a sub-path links within itself.
//
// Script elements, stylesheet links and elements marked data-link-absolute
// keep their URLs. An element repeating href or src is ambiguous; it is left
// alone and reported as a content warning once the rest of the page is done.
type RewriteMountLinks struct{}

func (RewriteMountLinks) Name() string { return "rewrite-mount-links" }

func (a RewriteMountLinks) ApplyFile(_ context.Context, fc *pipeline.FileContext) error {
	mount := fc.Script().Mount
	if mount == "" || !fc.IsHTML() {
		return nil
	}
	doc, err := fc.Document()
	if err != nil {
		return err
	}

	changed, ambiguous := rewriteLinks(doc, mount)
	if changed > 0 {
		fc.MarkDirty()
		fc.Count(CountLinksRewritten, changed)
	}
	if ambiguous > 0 {
		return errors.ContentError("skipped elements with repeated link attributes").
			WithContext("file", fc.Rel()).
			WithContext("elements", ambiguous).
			Build()
	}
	return nil
}

func rewriteLinks(doc *html.Node, mount string) (changed, ambiguous int) {
	for _, n := range htmldoc.FindAll(doc, hasLinkAttr) {
		if exemptFromMount(n) {
			continue
		}
		if htmldoc.AttrCount(n, "href") > 1 || htmldoc.AttrCount(n, "src") > 1 {
			ambiguous++
			continue
		}
		for _, key := range linkAttrs {
			v, ok := htmldoc.Attr(n, key)
			if !ok {
				continue
			}
			if out, moved := render.MountURL(mount, v); moved {
				htmldoc.SetAttr(n, key, out)
				changed++
			}
		}
	}
	return changed, ambiguous
}

func hasLinkAttr(n *html.Node) bool {
	for _, key := range linkAttrs {
		if _, ok := htmldoc.Attr(n, key); ok {
			return true
		}
	}
	return false
}

func exemptFromMount(n *html.Node) bool {
	if _, ok := htmldoc.Attr(n, attrLinkAbsolute); ok {
		return true
	}
	switch n.Data {
	case "script":
		return true
	case "link":
		rel, _ := htmldoc.Attr(n, "rel")
		return htmldoc.HasToken(rel, "stylesheet")
	}
	return false
}
