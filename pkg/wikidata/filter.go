package wikidata

import (
	"sort"
)

// DocumentFilter restricts which site links, languages and statements a
// fetched document keeps. The zero value restricts nothing.
//
// Each dimension is either unrestricted (nil set) or an allow-set; an
// empty allow-set excludes everything of that kind. Filters are values:
// the With* methods return a modified copy and never touch the receiver.
type DocumentFilter struct {
	sites      map[string]struct{}
	languages  map[string]struct{}
	properties map[string]struct{}
}

// NoFilter returns a filter that keeps everything.
func NoFilter() DocumentFilter { return DocumentFilter{} }

// WithSiteLinks returns a copy that keeps only site links for the given sites.
func (f DocumentFilter) WithSiteLinks(sites ...string) DocumentFilter {
	f.sites = newSet(sites)
	return f
}

// WithLanguages returns a copy that keeps only terms in the given languages.
func (f DocumentFilter) WithLanguages(langs ...string) DocumentFilter {
	f.languages = newSet(langs)
	return f
}

// WithProperties returns a copy that keeps only statements for the given properties.
func (f DocumentFilter) WithProperties(props ...string) DocumentFilter {
	f.properties = newSet(props)
	return f
}

// SiteLinks returns the sorted allow-set and whether sites are restricted.
func (f DocumentFilter) SiteLinks() ([]string, bool) { return sorted(f.sites) }

// Languages returns the sorted allow-set and whether languages are restricted.
func (f DocumentFilter) Languages() ([]string, bool) { return sorted(f.languages) }

// Properties returns the sorted allow-set and whether properties are restricted.
func (f DocumentFilter) Properties() ([]string, bool) { return sorted(f.properties) }

func (f DocumentFilter) allowSite(site string) bool     { return allows(f.sites, site) }
func (f DocumentFilter) allowLanguage(lang string) bool { return allows(f.languages, lang) }
func (f DocumentFilter) allowProperty(p string) bool    { return allows(f.properties, p) }

// excludesAll reports a restricted dimension with an empty allow-set.
func excludesAll(set map[string]struct{}) bool {
	return set != nil && len(set) == 0
}

// Apply returns a filtered copy of doc. The input is not modified.
func (f DocumentFilter) Apply(doc EntityDocument) EntityDocument {
	switch d := doc.(type) {
	case *ItemDocument:
		return &ItemDocument{
			ID:           d.ID,
			LastRevID:    d.LastRevID,
			Labels:       f.terms(d.Labels),
			Descriptions: f.terms(d.Descriptions),
			Aliases:      f.aliases(d.Aliases),
			Statements:   f.statements(d.Statements),
			SiteLinks:    f.siteLinks(d.SiteLinks),
		}
	case *PropertyDocument:
		return &PropertyDocument{
			ID:           d.ID,
			LastRevID:    d.LastRevID,
			DataType:     d.DataType,
			Labels:       f.terms(d.Labels),
			Descriptions: f.terms(d.Descriptions),
			Aliases:      f.aliases(d.Aliases),
			Statements:   f.statements(d.Statements),
		}
	case *LexemeDocument:
		return &LexemeDocument{
			ID:              d.ID,
			LastRevID:       d.LastRevID,
			Lemmas:          f.terms(d.Lemmas),
			LexicalCategory: d.LexicalCategory,
			Language:        d.Language,
			Statements:      f.statements(d.Statements),
		}
	}
	return doc
}

func (f DocumentFilter) terms(in map[string]MonolingualText) map[string]MonolingualText {
	out := make(map[string]MonolingualText, len(in))
	for lang, t := range in {
		if f.allowLanguage(lang) {
			out[lang] = t
		}
	}
	return out
}

func (f DocumentFilter) aliases(in map[string][]MonolingualText) map[string][]MonolingualText {
	out := make(map[string][]MonolingualText, len(in))
	for lang, ts := range in {
		if f.allowLanguage(lang) {
			out[lang] = append([]MonolingualText(nil), ts...)
		}
	}
	return out
}

func (f DocumentFilter) statements(in map[string][]Statement) map[string][]Statement {
	out := make(map[string][]Statement, len(in))
	for p, sts := range in {
		if f.allowProperty(p) {
			out[p] = append([]Statement(nil), sts...)
		}
	}
	return out
}

func (f DocumentFilter) siteLinks(in map[string]SiteLink) map[string]SiteLink {
	out := make(map[string]SiteLink, len(in))
	for site, sl := range in {
		if f.allowSite(site) {
			out[site] = sl
		}
	}
	return out
}

func newSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func allows(set map[string]struct{}, v string) bool {
	if set == nil {
		return true
	}
	_, ok := set[v]
	return ok
}

func sorted(set map[string]struct{}) ([]string, bool) {
	if set == nil {
		return nil, false
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, true
}
