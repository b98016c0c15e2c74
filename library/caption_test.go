package library

import "testing"

func TestParseCaption(t *testing.T) {
	// WHAT: Key/value extraction from caption lines.
	// WHY: Captions are the only structured metadata channel for ingestion.
	cases := []struct {
		name    string
		caption string
		want    map[string]string
	}{
		{"empty", "", map[string]string{}},
		{"single line", "Title: Dune", map[string]string{"title": "Dune"}},
		{
			"multiple fields",
			"Title: Dune\nAuthor: Frank Herbert\nTags: scifi, classic",
			map[string]string{"title": "Dune", "author": "Frank Herbert", "tags": "scifi, classic"},
		},
		{"key lower-cased and trimmed", "  TITLE :  Dune  ", map[string]string{"title": "Dune"}},
		{"no colon ignored", "just chatter\nTitle: Dune", map[string]string{"title": "Dune"}},
		{"empty value ignored", "Title:\nAuthor: Bar", map[string]string{"author": "Bar"}},
		{"duplicate keeps last", "Title: First\nTitle: Second", map[string]string{"title": "Second"}},
		{"value keeps inner colons", "Source: https://example.com/a", map[string]string{"source": "https://example.com/a"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseCaption(tc.caption)
			if len(got) != len(tc.want) {
				t.Fatalf("fields: got %v, want %v", got, tc.want)
			}
			for k, v := range tc.want {
				if got[k] != v {
					t.Errorf("%s: got %q, want %q", k, got[k], v)
				}
			}
		})
	}
}
