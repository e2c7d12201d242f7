package report

import "testing"

func TestLanguageName(t *testing.T) {
	tests := map[string]string{
		"en":        "English",
		"fr":        "French",
		"de":        "German",
		"not a tag": "not a tag",
	}
	for code, want := range tests {
		if got := LanguageName(code); got != want {
			t.Errorf("LanguageName(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestSiteName(t *testing.T) {
	tests := map[string]string{
		"enwiki":       "English Wikipedia",
		"frwiki":       "French Wikipedia",
		"dewikivoyage": "German Wikivoyage",
		"enwiktionary": "English Wiktionary",
		"commonswiki":  "Wikimedia Commons",
		"wiki":         "wiki",
	}
	for site, want := range tests {
		if got := SiteName(site); got != want {
			t.Errorf("SiteName(%q) = %q, want %q", site, got, want)
		}
	}
}
