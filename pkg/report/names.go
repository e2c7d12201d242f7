package report

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// LanguageName returns the English name of a language code ("fr" -> "French").
// Unknown codes are returned unchanged.
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

var specialSites = map[string]string{
	"commonswiki":   "Wikimedia Commons",
	"wikidatawiki":  "Wikidata",
	"specieswiki":   "Wikispecies",
	"metawiki":      "Meta-Wiki",
	"mediawikiwiki": "MediaWiki.org",
}

// project suffixes, longest first so "wikivoyage" wins over "wiki"
var siteProjects = []struct {
	suffix string
	name   string
}{
	{"wikiversity", "Wikiversity"},
	{"wiktionary", "Wiktionary"},
	{"wikivoyage", "Wikivoyage"},
	{"wikisource", "Wikisource"},
	{"wikiquote", "Wikiquote"},
	{"wikibooks", "Wikibooks"},
	{"wikinews", "Wikinews"},
	{"wiki", "Wikipedia"},
}

// SiteName returns a display name for a site key ("enwiki" -> "English Wikipedia").
func SiteName(site string) string {
	if name, ok := specialSites[site]; ok {
		return name
	}
	for _, p := range siteProjects {
		code, ok := strings.CutSuffix(site, p.suffix)
		if !ok || code == "" {
			continue
		}
		return LanguageName(strings.ReplaceAll(code, "_", "-")) + " " + p.name
	}
	return site
}
