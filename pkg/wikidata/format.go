package wikidata

import (
	"fmt"
	"sort"
	"strings"
)

// Format renders a document as stable, human readable text. Map keys are
// sorted so the same document always renders to the same bytes.
func Format(doc EntityDocument) string {
	var b strings.Builder

	switch d := doc.(type) {
	case *ItemDocument:
		fmt.Fprintf(&b, "%s (%s) rev %d\n", d.ID, d.Kind(), d.LastRevID)
		writeTerms(&b, "labels", d.Labels)
		writeTerms(&b, "descriptions", d.Descriptions)
		writeAliases(&b, d.Aliases)
		writeStatements(&b, d.Statements)
		if len(d.SiteLinks) > 0 {
			b.WriteString("sitelinks:\n")
			for _, site := range sortedKeys(d.SiteLinks) {
				fmt.Fprintf(&b, "  %s: %s\n", site, d.SiteLinks[site].Title)
			}
		}
	case *PropertyDocument:
		fmt.Fprintf(&b, "%s (%s, %s) rev %d\n", d.ID, d.Kind(), d.DataType, d.LastRevID)
		writeTerms(&b, "labels", d.Labels)
		writeTerms(&b, "descriptions", d.Descriptions)
		writeAliases(&b, d.Aliases)
		writeStatements(&b, d.Statements)
	case *LexemeDocument:
		fmt.Fprintf(&b, "%s (%s) rev %d\n", d.ID, d.Kind(), d.LastRevID)
		writeTerms(&b, "lemmas", d.Lemmas)
		fmt.Fprintf(&b, "language: %s\nlexical category: %s\n", d.Language, d.LexicalCategory)
		writeStatements(&b, d.Statements)
	case nil:
		return "<nil>\n"
	}

	return b.String()
}

func writeTerms(b *strings.Builder, section string, m map[string]MonolingualText) {
	if len(m) == 0 {
		return
	}
	b.WriteString(section + ":\n")
	for _, lang := range sortedKeys(m) {
		fmt.Fprintf(b, "  %s: %s\n", lang, m[lang].Text)
	}
}

func writeAliases(b *strings.Builder, m map[string][]MonolingualText) {
	if len(m) == 0 {
		return
	}
	b.WriteString("aliases:\n")
	for _, lang := range sortedKeys(m) {
		texts := make([]string, 0, len(m[lang]))
		for _, t := range m[lang] {
			texts = append(texts, t.Text)
		}
		fmt.Fprintf(b, "  %s: %s\n", lang, strings.Join(texts, " | "))
	}
}

func writeStatements(b *strings.Builder, m map[string][]Statement) {
	if len(m) == 0 {
		return
	}
	b.WriteString("statements:\n")
	for _, prop := range sortedProperties(m) {
		for _, st := range m[prop] {
			fmt.Fprintf(b, "  %s: %s [%s]\n", prop, st.Value, st.Rank)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedProperties orders P-ids numerically (P31 before P106).
func sortedProperties(m map[string][]Statement) []string {
	keys := sortedKeys(m)
	sort.SliceStable(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}
