package actions

import (
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitevariants/internal/htmldoc"
)

const (
	attrJSRequired   = "data-js-required"
	attrLinkAbsolute = "data-link-absolute"
)

// Counter keys reported through the pipeline contexts.
const (
	CountRendered       = "pages_rendered"
	CountScriptsRemoved = "scripts_deleted"
	CountElemsStripped  = "elements_stripped"
	CountLinksRewritten = "links_rewritten"
	CountFallbacks      = "fallbacks_substituted"
	CountDirsPruned     = "dirs_pruned"
)

func hasExt(path string, exts []string) bool {
	ext := filepath.Ext(path)
	for _, x := range exts {
		if strings.EqualFold(ext, x) {
			return true
		}
	}
	return false
}

var (
	isScript     = htmldoc.Tag("script")
	isJSRequired = htmldoc.HasAttr(attrJSRequired)
)

func requiresScript(n *html.Node) bool {
	return isScript(n) || isJSRequired(n)
}

// stripScripts removes every script element and every element flagged as
// requiring script, returning the number of removed subtrees.
func stripScripts(doc *html.Node) int {
	return htmldoc.RemoveAll(doc, requiresScript)
}
