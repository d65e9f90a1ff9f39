package storage

// dateFormat accepts both RFC3339 strings and epoch millis.
const dateFormat = "strict_date_optional_time||epoch_millis"

// ArticleMapping returns the mapping shared by the temporary and permanent
// article indices. Title and text are analyzed for the relevance and feed
// queries; title additionally keeps a keyword sub-field for exact duplicate
// matching.
func ArticleMapping() map[string]any {
	return map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":        map[string]any{"type": "keyword"},
				"source_id": map[string]any{"type": "keyword"},
				"title": map[string]any{
					"type":     "text",
					"analyzer": "standard",
					"fields": map[string]any{
						"keyword": map[string]any{"type": "keyword", "ignore_above": 512},
					},
				},
				"text": map[string]any{
					"type":     "text",
					"analyzer": "standard",
				},
				// Exact duplicate matching runs on the digest; a keyword
				// sub-field on text would be capped by ignore_above and
				// silently exempt long bodies.
				"text_hash":  map[string]any{"type": "keyword"},
				"short_text": map[string]any{"type": "text"},
				"link":       map[string]any{"type": "keyword"},
				"image_link": map[string]any{"type": "keyword"},
				"published_at": map[string]any{
					"type":   "date",
					"format": dateFormat,
				},
				"discovered_at": map[string]any{
					"type":   "date",
					"format": dateFormat,
				},
				"indexed_at": map[string]any{
					"type":   "date",
					"format": dateFormat,
				},
			},
		},
	}
}

// SpeedMapping returns the mapping for the fast-duplicate index. All fields
// are exact-match only.
func SpeedMapping() map[string]any {
	return map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"source_id": map[string]any{"type": "keyword"},
				"updated":   map[string]any{"type": "long"},
				"link":      map[string]any{"type": "keyword"},
			},
		},
	}
}
