// Package extract provides pure functions that turn raw HTML into plain
// text and image references. It is format-agnostic and carries no state.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/newsward/ingest/internal/domain"
)

// xmlDeclPrefix identifies a raw XML declaration that some feeds leave
// behind as a text node artifact.
const xmlDeclPrefix = "<?xml"

// Text flattens all text nodes of the given HTML into plain text. Entities
// are decoded, internal whitespace is collapsed to single spaces, and
// script/style content is skipped. Deterministic for identical input.
func Text(rawHTML string) string {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		// html.Parse only fails on reader errors; a string reader cannot
		// produce one, but fall back to the raw input regardless.
		return normalizeWhitespace(rawHTML)
	}

	var parts []string
	collectText(root, &parts)

	return strings.Join(parts, " ")
}

// collectText appends the normalized text content of n and its children.
func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}

	if n.Type == html.TextNode {
		text := normalizeWhitespace(n.Data)
		if text != "" && !strings.HasPrefix(text, xmlDeclPrefix) {
			*parts = append(*parts, text)
		}
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, parts)
	}
}

// normalizeWhitespace collapses all runs of whitespace to single spaces and
// trims the ends.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Images collects every <img> element carrying both a non-empty src and a
// non-empty alt attribute. Results are deduplicated by the (url, alt) pair;
// elements missing either attribute are skipped entirely.
func Images(rawHTML string) []domain.Image {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}

	seen := make(map[domain.Image]struct{})
	var images []domain.Image

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src := strings.TrimSpace(sel.AttrOr("src", ""))
		alt := strings.TrimSpace(sel.AttrOr("alt", ""))
		if src == "" || alt == "" {
			return
		}

		img := domain.Image{URL: src, Alt: alt}
		if _, dup := seen[img]; dup {
			return
		}
		seen[img] = struct{}{}
		images = append(images, img)
	})

	return images
}

// Title returns the content of the page's <title> element, or "" when the
// page has none.
func Title(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	return normalizeWhitespace(doc.Find("title").First().Text())
}
