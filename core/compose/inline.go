// ABOUTME: CSS inlining pass that copies stylesheet rules into element style attributes
// ABOUTME: Email clients strip or mangle style blocks, so styling must ride on the elements

package compose

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// cssRule is one selector block from a style element
type cssRule struct {
	selector     string
	declarations string
}

// inlineStyles parses every <style> block in the document and applies its
// rules as inline style attributes on matching elements. Rules apply in
// source order; existing inline declarations are appended last so they
// keep winning the cascade. Style blocks are left in place for clients
// that honor them, and at-rules (media queries) stay in the blocks since
// they cannot be expressed inline.
func inlineStyles(doc *goquery.Document) {
	var rules []cssRule
	doc.Find("style").Each(func(_ int, style *goquery.Selection) {
		rules = append(rules, parseRules(style.Text())...)
	})
	if len(rules) == 0 {
		return
	}

	// Collect matching declarations per element first, then write
	// attributes in document order so output is deterministic.
	matched := make(map[*html.Node][]string)
	for _, rule := range rules {
		doc.Find(rule.selector).Each(func(_ int, sel *goquery.Selection) {
			node := sel.Get(0)
			matched[node] = append(matched[node], rule.declarations)
		})
	}
	if len(matched) == 0 {
		return
	}

	walk(doc.Get(0), func(node *html.Node) {
		decls, ok := matched[node]
		if !ok {
			return
		}
		sel := newSingleSelection(doc, node)
		if existing, exists := sel.Attr("style"); exists && strings.TrimSpace(existing) != "" {
			decls = append(decls, strings.TrimSuffix(strings.TrimSpace(existing), ";"))
		}
		sel.SetAttr("style", strings.Join(decls, "; "))
	})
}

// parseRules extracts selector/declaration pairs from raw CSS text.
// At-rules are skipped whole, nested braces included.
func parseRules(css string) []cssRule {
	var rules []cssRule
	rest := css

	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			break
		}
		selector := strings.TrimSpace(rest[:open])
		rest = rest[open+1:]

		if strings.HasPrefix(selector, "@") {
			rest = skipBlock(rest)
			continue
		}

		closing := strings.IndexByte(rest, '}')
		if closing < 0 {
			break
		}
		declarations := normalizeDeclarations(rest[:closing])
		rest = rest[closing+1:]

		if selector == "" || declarations == "" {
			continue
		}

		// Comma groups share one declaration block but match separately
		for _, sel := range strings.Split(selector, ",") {
			sel = strings.TrimSpace(sel)
			if sel != "" {
				rules = append(rules, cssRule{selector: sel, declarations: declarations})
			}
		}
	}

	return rules
}

// skipBlock consumes the remainder of an at-rule body, tracking brace
// nesting, and returns the text after it. The opening brace has already
// been consumed.
func skipBlock(rest string) string {
	depth := 1
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return rest[i+1:]
			}
		}
	}
	return ""
}

// normalizeDeclarations trims and re-joins declarations so output
// formatting is stable regardless of stylesheet whitespace.
func normalizeDeclarations(block string) string {
	var decls []string
	for _, decl := range strings.Split(block, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		decls = append(decls, strings.Join(strings.Fields(decl), " "))
	}
	return strings.Join(decls, "; ")
}

// walk visits every element node in document order
func walk(node *html.Node, visit func(*html.Node)) {
	if node == nil {
		return
	}
	if node.Type == html.ElementNode {
		visit(node)
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		walk(child, visit)
	}
}

// newSingleSelection wraps one node back into a goquery selection
func newSingleSelection(doc *goquery.Document, node *html.Node) *goquery.Selection {
	return doc.FindNodes(node)
}
