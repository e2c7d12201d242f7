package wikidata

import (
	"strings"
	"testing"
)

func TestFormat_Deterministic(t *testing.T) {
	doc := sampleItem()
	doc.LastRevID = 7
	doc.Statements["P106"] = []Statement{{Property: "P106", Value: "Q36180", Rank: "normal"}}

	first := Format(doc)
	for i := 0; i < 20; i++ {
		if got := Format(doc); got != first {
			t.Fatalf("Format() not stable:\n%s\nvs\n%s", first, got)
		}
	}

	want := []string{
		"Q8 (item) rev 7",
		"labels:",
		"  en: happiness",
		"  fr: bonheur",
		"aliases:",
		"  de: Glück",
		"statements:",
		"  P31: Q9415 []",
		"  P106: Q36180 [normal]",
		"sitelinks:",
		"  enwiki: Happiness",
	}
	last := -1
	for _, w := range want {
		idx := strings.Index(first, w)
		if idx < 0 {
			t.Fatalf("Format() missing %q in:\n%s", w, first)
		}
		if idx < last {
			t.Errorf("Format() line %q out of order in:\n%s", w, first)
		}
		last = idx
	}
	if strings.Contains(first, "descriptions:") {
		t.Errorf("Format() should omit empty sections:\n%s", first)
	}
}

func TestFormat_Variants(t *testing.T) {
	tests := []struct {
		name string
		doc  EntityDocument
		want string
	}{
		{
			name: "Property",
			doc:  &PropertyDocument{ID: "P31", DataType: "wikibase-item"},
			want: "P31 (property, wikibase-item) rev 0\n",
		},
		{
			name: "Lexeme",
			doc: &LexemeDocument{ID: "L7", Language: "Q1860", LexicalCategory: "Q1084",
				Lemmas: map[string]MonolingualText{"en": {Language: "en", Text: "cat"}}},
			want: "L7 (lexeme) rev 0\nlemmas:\n  en: cat\nlanguage: Q1860\nlexical category: Q1084\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.doc.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
