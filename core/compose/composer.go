// ABOUTME: Digest composer renders selected feed items into a single HTML email document
// ABOUTME: Template expansion, CSS inlining, and platform merge-tag preservation in three passes

package compose

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"digest-courier/core/domain"
	apperrors "digest-courier/core/errors"
	"digest-courier/core/interfaces"
)

// Template delimiters. The digest template uses [[ ]] so the remote
// platform's own {{ ... }} merge tags (unsubscribe links, tracking
// pixels) pass through as literal text for the platform to resolve at
// send time.
const (
	delimLeft  = "[["
	delimRight = "]]"
)

const publishedFormat = "January 2, 2006"

// mergeTagPattern matches the platform's {{ ... }} merge tag syntax
var mergeTagPattern = regexp.MustCompile(`\{\{[^{}]*\}\}`)

// Composer renders digest documents from a template file. Rendering is
// deterministic: the same template, item set, and metadata always produce
// byte-identical output, which keeps retries and idempotence tests honest.
type Composer struct {
	templatePath string
	logger       interfaces.Logger
}

// NewComposer creates a composer reading the template at templatePath
func NewComposer(templatePath string, logger interfaces.Logger) *Composer {
	return &Composer{
		templatePath: templatePath,
		logger:       logger,
	}
}

// templateItem is a feed item shaped for template consumption
type templateItem struct {
	Title     string
	Link      string
	ImageURL  string
	Published string
	Summary   htmltemplate.HTML
}

// templateData is the root template context
type templateData struct {
	Title   string
	Preface string
	Items   []templateItem
}

// Render expands the template with the items and metadata, inlines
// stylesheet rules into element style attributes, and verifies the
// platform's merge tags survived both passes intact. An empty item set
// returns errors.ErrNoNewContent and the run short-circuits upstream.
func (c *Composer) Render(items []domain.FeedItem, meta domain.DigestMetadata) (domain.DigestDocument, error) {
	if len(items) == 0 {
		return domain.DigestDocument{}, apperrors.ErrNoNewContent
	}

	raw, err := os.ReadFile(c.templatePath)
	if err != nil {
		return domain.DigestDocument{}, &apperrors.TemplateRenderError{Template: c.templatePath, Cause: err}
	}

	expanded, err := c.expand(string(raw), items, meta)
	if err != nil {
		return domain.DigestDocument{}, &apperrors.TemplateRenderError{Template: c.templatePath, Cause: err}
	}

	inlined, err := inlineDocument(expanded)
	if err != nil {
		return domain.DigestDocument{}, &apperrors.TemplateRenderError{Template: c.templatePath, Cause: err}
	}

	if err := verifyMergeTags(string(raw), inlined); err != nil {
		return domain.DigestDocument{}, &apperrors.TemplateRenderError{Template: c.templatePath, Cause: err}
	}

	altText, err := extractAltText(inlined)
	if err != nil {
		return domain.DigestDocument{}, &apperrors.TemplateRenderError{Template: c.templatePath, Cause: err}
	}

	if c.logger != nil {
		c.logger.Debug("digest rendered", map[string]interface{}{
			"items": len(items),
			"bytes": len(inlined),
		})
	}

	return domain.DigestDocument{
		HTML:      inlined,
		AltText:   altText,
		ItemCount: len(items),
	}, nil
}

// expand runs the template-expansion pass
func (c *Composer) expand(raw string, items []domain.FeedItem, meta domain.DigestMetadata) (string, error) {
	tmpl, err := htmltemplate.New("digest").
		Delims(delimLeft, delimRight).
		Option("missingkey=error").
		Parse(raw)
	if err != nil {
		return "", err
	}

	data := templateData{
		Title:   meta.Title,
		Preface: meta.Preface,
		Items:   make([]templateItem, 0, len(items)),
	}
	for _, item := range items {
		data.Items = append(data.Items, templateItem{
			Title:     item.Title,
			Link:      item.Link,
			ImageURL:  item.ImageURL,
			Published: item.Published.UTC().Format(publishedFormat),
			Summary:   htmltemplate.HTML(item.Summary),
		})
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// inlineDocument runs the CSS-inlining pass over the expanded HTML
func inlineDocument(expanded string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(expanded))
	if err != nil {
		return "", err
	}

	inlineStyles(doc)

	rendered, err := doc.Html()
	if err != nil {
		return "", err
	}
	return rendered, nil
}

// verifyMergeTags checks that every merge tag present in the template
// text survived expansion and inlining byte-for-byte. The inliner owns
// the document's CSS, not the platform's templating syntax; any mangled
// token would break unsubscribe links on every delivered email.
func verifyMergeTags(templateText, rendered string) error {
	tags := mergeTagPattern.FindAllString(templateText, -1)
	if len(tags) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(tags))
	var missing []string
	for _, tag := range tags {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		if !strings.Contains(rendered, tag) {
			missing = append(missing, tag)
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("platform merge tags mangled during render: %s", strings.Join(missing, ", "))
	}
	return nil
}

// extractAltText derives the plain-text alternative body from the final
// HTML: visible text with the article links appended.
func extractAltText(rendered string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered))
	if err != nil {
		return "", err
	}

	doc.Find("style, script").Remove()

	text := doc.Find("body").Text()
	text = strings.Join(strings.Fields(text), " ")

	var links []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href == "" || strings.HasPrefix(href, "#") || seen[href] {
			return
		}
		// Merge-tag hrefs belong to the platform, not the digest
		if strings.Contains(href, "{{") {
			return
		}
		seen[href] = true
		links = append(links, href)
	})

	if len(links) > 0 {
		text += "\n\n" + strings.Join(links, "\n")
	}

	if strings.TrimSpace(text) == "" {
		return "", errors.New("rendered digest has no text content")
	}
	return text, nil
}
