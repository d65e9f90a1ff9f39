package crawl

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"

	"github.com/newsward/ingest/internal/domain"
	"github.com/newsward/ingest/internal/extract"
)

// seed carries metadata known before extraction, used when a feed entry
// delegates its embedded HTML to website extraction.
type seed struct {
	Title       string
	Link        string
	PublishedAt time.Time
}

// Website extracts article candidates from a web page. Depending on the
// source configuration it emits the whole page as one candidate, one
// candidate per XPath-selected node, one per regex match, or one per regex
// match within each selected node.
type Website struct {
	source  *domain.Source
	fetcher Fetcher

	pattern  *regexp.Regexp
	selector *xpath.Expr

	// lastRaw holds the previous fetch result; an identical page is skipped
	// without re-extraction. Touched only by the owning polling goroutine.
	lastRaw string
}

// NewWebsite builds a website strategy for the source, compiling its regex
// and XPath up front so a malformed source fails at construction rather
// than on every poll.
func NewWebsite(source *domain.Source, fetcher Fetcher) (*Website, error) {
	w := &Website{source: source, fetcher: fetcher}

	if source.Regex != "" {
		pattern, err := regexp.Compile(source.Regex)
		if err != nil {
			return nil, fmt.Errorf("source %s: compile regex: %w", source.ID, err)
		}
		w.pattern = pattern
	}
	if source.XPath != "" {
		selector, err := xpath.Compile(source.XPath)
		if err != nil {
			return nil, fmt.Errorf("source %s: compile xpath: %w", source.ID, err)
		}
		w.selector = selector
	}

	return w, nil
}

// Name returns the strategy name.
func (w *Website) Name() string {
	return "website"
}

// Tick fetches the page and extracts candidates. An unchanged page yields
// no candidates.
func (w *Website) Tick(ctx context.Context) ([]Item, error) {
	raw, err := w.fetcher.Fetch(ctx, w.source.URI)
	if err != nil {
		return nil, err
	}
	if raw == w.lastRaw {
		return nil, nil
	}
	w.lastRaw = raw

	candidates, err := w.ExtractFromDocument(raw, seed{})
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(candidates))
	for i := range candidates {
		items = append(items, Item{Source: w.source, Candidate: candidates[i]})
	}
	return items, nil
}

// ExtractFromDocument extracts candidates from an HTML document according to
// the source's regex/XPath configuration. The seed supplies title, link and
// publish time when the document came from a feed entry; otherwise those are
// derived from the page itself.
func (w *Website) ExtractFromDocument(doc string, s seed) ([]domain.Candidate, error) {
	fragments, err := w.fragments(doc)
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.Candidate, 0, len(fragments))
	for _, fragment := range fragments {
		body := extract.Text(fragment)
		if body == "" {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			SourceID:     w.source.ID,
			Title:        w.title(s, doc),
			Body:         body,
			Link:         w.link(s),
			Images:       extract.Images(fragment),
			PublishedAt:  w.publishedAt(s),
			DiscoveredAt: time.Now().UTC(),
		})
	}
	return candidates, nil
}

// fragments splits the document into the HTML snippets that each become one
// candidate.
func (w *Website) fragments(doc string) ([]string, error) {
	switch {
	case w.selector == nil && w.pattern == nil:
		return []string{doc}, nil
	case w.selector != nil && w.pattern == nil:
		return w.selectNodes(doc)
	case w.selector == nil && w.pattern != nil:
		return nonEmpty(w.pattern.FindAllString(doc, -1)), nil
	default:
		nodes, err := w.selectNodes(doc)
		if err != nil {
			return nil, err
		}
		var fragments []string
		for _, node := range nodes {
			fragments = append(fragments, nonEmpty(w.pattern.FindAllString(node, -1))...)
		}
		return fragments, nil
	}
}

// selectNodes returns the inner HTML of every node matched by the XPath.
func (w *Website) selectNodes(doc string) ([]string, error) {
	root, err := htmlquery.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("source %s: parse html: %w", w.source.ID, err)
	}

	nodes := htmlquery.QuerySelectorAll(root, w.selector)
	fragments := make([]string, 0, len(nodes))
	for _, node := range nodes {
		fragments = append(fragments, htmlquery.OutputHTML(node, false))
	}
	return fragments, nil
}

// title prefers the seed title, then the page title, then the source host.
func (w *Website) title(s seed, doc string) string {
	if s.Title != "" {
		return s.Title
	}
	if title := extract.Title(doc); title != "" {
		return title
	}
	if u, err := url.Parse(w.source.URI); err == nil && u.Host != "" {
		return u.Host
	}
	return w.source.Name
}

func (w *Website) link(s seed) string {
	if s.Link != "" {
		return s.Link
	}
	return w.source.URI
}

func (w *Website) publishedAt(s seed) time.Time {
	if !s.PublishedAt.IsZero() {
		return s.PublishedAt
	}
	return time.Now().UTC()
}

func nonEmpty(matches []string) []string {
	out := matches[:0]
	for _, m := range matches {
		if strings.TrimSpace(m) != "" {
			out = append(out, m)
		}
	}
	return out
}
