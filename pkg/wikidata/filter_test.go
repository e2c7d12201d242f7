package wikidata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleItem() *ItemDocument {
	return &ItemDocument{
		ID: "Q8",
		Labels: map[string]MonolingualText{
			"en": {Language: "en", Text: "happiness"},
			"fr": {Language: "fr", Text: "bonheur"},
		},
		Aliases: map[string][]MonolingualText{
			"fr": {{Language: "fr", Text: "joie"}},
			"de": {{Language: "de", Text: "Glück"}},
		},
		Statements: map[string][]Statement{
			"P31": {{Property: "P31", Value: "Q9415"}},
		},
		SiteLinks: map[string]SiteLink{
			"enwiki": {Site: "enwiki", Title: "Happiness"},
			"frwiki": {Site: "frwiki", Title: "Bonheur"},
		},
	}
}

func TestDocumentFilter_WithIsImmutable(t *testing.T) {
	base := NoFilter().WithLanguages("en")
	derived := base.WithLanguages("fr").WithSiteLinks("enwiki")

	langs, restricted := base.Languages()
	assert.True(t, restricted)
	assert.Equal(t, []string{"en"}, langs)
	_, restricted = base.SiteLinks()
	assert.False(t, restricted)

	langs, _ = derived.Languages()
	assert.Equal(t, []string{"fr"}, langs)
}

func TestDocumentFilter_Apply(t *testing.T) {
	tests := []struct {
		name       string
		filter     DocumentFilter
		wantLabels []string
		wantAlias  []string
		wantProps  []string
		wantSites  []string
	}{
		{
			name:       "No filter keeps everything",
			filter:     NoFilter(),
			wantLabels: []string{"en", "fr"},
			wantAlias:  []string{"de", "fr"},
			wantProps:  []string{"P31"},
			wantSites:  []string{"enwiki", "frwiki"},
		},
		{
			name:       "Language and site allow-sets, statements excluded",
			filter:     NoFilter().WithLanguages("fr").WithSiteLinks("enwiki").WithProperties(),
			wantLabels: []string{"fr"},
			wantAlias:  []string{"fr"},
			wantProps:  []string{},
			wantSites:  []string{"enwiki"},
		},
		{
			name:       "Empty sets exclude all",
			filter:     NoFilter().WithLanguages().WithSiteLinks(),
			wantLabels: []string{},
			wantAlias:  []string{},
			wantProps:  []string{"P31"},
			wantSites:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := sampleItem()
			out := tt.filter.Apply(in).(*ItemDocument)

			assert.Equal(t, tt.wantLabels, sortedKeys(out.Labels))
			assert.Equal(t, tt.wantAlias, sortedKeys(out.Aliases))
			assert.Equal(t, tt.wantProps, sortedKeys(out.Statements))
			assert.Equal(t, tt.wantSites, sortedKeys(out.SiteLinks))

			// input untouched
			assert.Len(t, in.Labels, 2)
			assert.Len(t, in.SiteLinks, 2)
		})
	}
}

func TestDocumentFilter_ApplyLexeme(t *testing.T) {
	lex := &LexemeDocument{
		ID: "L7",
		Lemmas: map[string]MonolingualText{
			"en":    {Language: "en", Text: "cat"},
			"en-gb": {Language: "en-gb", Text: "cat"},
		},
		Statements: map[string][]Statement{"P5185": {{Property: "P5185", Value: "Q1775415"}}},
	}

	out := NoFilter().WithLanguages("en").WithProperties().Apply(lex).(*LexemeDocument)
	assert.Equal(t, []string{"en"}, sortedKeys(out.Lemmas))
	assert.Empty(t, out.Statements)
	assert.Len(t, lex.Lemmas, 2)
}
