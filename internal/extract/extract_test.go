package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/newsward/ingest/internal/domain"
	"github.com/newsward/ingest/internal/extract"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "flattens nested elements",
			html: "<html><body><h1>Breaking</h1><p>Something <b>big</b> happened.</p></body></html>",
			want: "Breaking Something big happened.",
		},
		{
			name: "collapses whitespace",
			html: "<p>spaced \n\t   out</p>",
			want: "spaced out",
		},
		{
			name: "skips script and style content",
			html: "<p>visible</p><script>var hidden = 1;</script><style>.x{color:red}</style>",
			want: "visible",
		},
		{
			name: "decodes entities",
			html: "<p>fish &amp; chips</p>",
			want: "fish & chips",
		},
		{
			name: "drops stray xml declaration",
			html: "<?xml version=\"1.0\"?><p>content</p>",
			want: "content",
		},
		{
			name: "empty input",
			html: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extract.Text(tt.html))
		})
	}
}

func TestText_Deterministic(t *testing.T) {
	const page = "<html><body><p>Same  input,</p><p>same output.</p></body></html>"
	first := extract.Text(page)
	for range 10 {
		assert.Equal(t, first, extract.Text(page))
	}
}

func TestImages(t *testing.T) {
	html := `
		<div>
			<img src="https://example.com/a.png" alt="first">
			<img src="https://example.com/b.png">
			<img alt="no source">
			<img src="https://example.com/a.png" alt="first">
			<img src="https://example.com/c.png" alt="third">
		</div>`

	images := extract.Images(html)

	assert.Equal(t, []domain.Image{
		{URL: "https://example.com/a.png", Alt: "first"},
		{URL: "https://example.com/c.png", Alt: "third"},
	}, images)
}

func TestImages_NoneFound(t *testing.T) {
	assert.Empty(t, extract.Images("<p>just text</p>"))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Front Page",
		extract.Title("<html><head><title> Front   Page </title></head><body></body></html>"))
	assert.Equal(t, "", extract.Title("<html><body><p>no title</p></body></html>"))
}
