// ABOUTME: Enrichment service decorates feed items with article page metadata
// ABOUTME: Best-effort Open Graph image scraping and excerpt fallback; never fails a run

package enrich

import (
	"context"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly"
	gocache "github.com/patrickmn/go-cache"

	"digest-courier/core/domain"
	"digest-courier/core/interfaces"
)

const (
	scrapeUserAgent = "facebookexternalhit/1.1 (+http://www.facebook.com/externalhit_uatext.php)"
	scrapeTimeout   = 10 * time.Second
	maxBodySize     = 5 * 1024 * 1024
	maxExcerptLen   = 400
)

// pageMeta is what one article page scrape yields
type pageMeta struct {
	ImageURL string
	Excerpt  string
}

// Service fills in item fields the feed itself does not carry: the cover
// image from the article's Open Graph tags and, when the feed entry has
// no summary, a readability excerpt of the article body. Every step is
// best-effort; a page that cannot be scraped leaves the item unchanged.
type Service struct {
	deps  interfaces.Dependencies
	cache *gocache.Cache

	// scrape is injectable for tests
	scrape func(ctx context.Context, pageURL string, wantExcerpt bool) pageMeta
}

// NewService creates an enrichment service with an in-process result cache
func NewService(deps interfaces.Dependencies) *Service {
	s := &Service{
		deps:  deps,
		cache: gocache.New(24*time.Hour, time.Hour),
	}
	s.scrape = s.scrapePage
	return s
}

// EnrichItems returns the items with ImageURL and missing summaries
// filled in where the article pages expose them. Items are processed
// sequentially in input order; failures are logged and skipped.
func (s *Service) EnrichItems(ctx context.Context, items []domain.FeedItem) []domain.FeedItem {
	enriched := make([]domain.FeedItem, len(items))
	copy(enriched, items)

	for i := range enriched {
		select {
		case <-ctx.Done():
			return enriched
		default:
		}

		item := &enriched[i]
		wantExcerpt := strings.TrimSpace(item.Summary) == "" && strings.TrimSpace(item.Content) == ""

		meta := s.lookup(ctx, item.Link, wantExcerpt)
		if meta.ImageURL != "" {
			item.ImageURL = meta.ImageURL
		}
		if wantExcerpt && meta.Excerpt != "" {
			item.Summary = meta.Excerpt
		}
	}

	return enriched
}

// lookup consults the cache before scraping the article page
func (s *Service) lookup(ctx context.Context, pageURL string, wantExcerpt bool) pageMeta {
	if cached, found := s.cache.Get(pageURL); found {
		if meta, ok := cached.(pageMeta); ok {
			return meta
		}
	}

	meta := s.scrape(ctx, pageURL, wantExcerpt)
	s.cache.Set(pageURL, meta, gocache.DefaultExpiration)
	return meta
}

// scrapePage pulls og:image from the article head and, when asked, a
// readability excerpt of the article body.
func (s *Service) scrapePage(ctx context.Context, pageURL string, wantExcerpt bool) pageMeta {
	var meta pageMeta

	if pageURL == "" {
		return meta
	}

	c := colly.NewCollector(
		colly.UserAgent(scrapeUserAgent),
		colly.MaxBodySize(maxBodySize),
		colly.Async(false),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(scrapeTimeout)

	c.OnHTML("meta", func(e *colly.HTMLElement) {
		content := e.Attr("content")
		if content == "" {
			return
		}
		switch {
		case e.Attr("property") == "og:image" && meta.ImageURL == "":
			meta.ImageURL = e.Request.AbsoluteURL(content)
		case e.Attr("name") == "twitter:image" && meta.ImageURL == "":
			meta.ImageURL = e.Request.AbsoluteURL(content)
		}
	})

	var pageHTML string
	if wantExcerpt {
		c.OnResponse(func(r *colly.Response) {
			pageHTML = string(r.Body)
		})
	}

	if err := c.Visit(pageURL); err != nil {
		if s.deps.Logger != nil {
			s.deps.Logger.Debug("article page scrape failed", map[string]interface{}{
				"url":   pageURL,
				"error": err.Error(),
			})
		}
		return meta
	}

	if wantExcerpt && pageHTML != "" {
		meta.Excerpt = extractExcerpt(pageHTML, pageURL)
	}

	return meta
}

// extractExcerpt runs readability over the page and trims the result to
// summary length.
func extractExcerpt(pageHTML, pageURL string) string {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(strings.NewReader(pageHTML), parsedURL)
	if err != nil {
		return ""
	}

	excerpt := strings.TrimSpace(article.Excerpt)
	if excerpt == "" {
		excerpt = strings.TrimSpace(article.TextContent)
	}
	if len(excerpt) > maxExcerptLen {
		cut := excerpt[:maxExcerptLen]
		if idx := strings.LastIndex(cut, " "); idx > 0 {
			cut = cut[:idx]
		}
		excerpt = cut + "..."
	}
	return excerpt
}
