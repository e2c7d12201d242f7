package wikidata

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"wikifetch/pkg/wikidata/entityid"
)

// EntityKind names the document variant.
type EntityKind string

const (
	KindItem     EntityKind = "item"
	KindProperty EntityKind = "property"
	KindLexeme   EntityKind = "lexeme"
)

// IsEntityID reports whether s looks like an item, property or lexeme id.
func IsEntityID(s string) bool {
	return entityid.Valid(s)
}

// EntityDocument is one of *ItemDocument, *PropertyDocument or
// *LexemeDocument. The set is closed; callers dispatch with a type switch.
type EntityDocument interface {
	EntityID() string
	Kind() EntityKind
	String() string
	entityDocument()
}

// DocumentMap keeps documents in request order.
type DocumentMap = orderedmap.OrderedMap[string, EntityDocument]

// NewDocumentMap returns an empty DocumentMap.
func NewDocumentMap() *DocumentMap {
	return orderedmap.New[string, EntityDocument]()
}

// MonolingualText is a text in one language (label, description, alias, lemma).
type MonolingualText struct {
	Language string
	Text     string
}

// SiteLink points from an item to a page on a wiki site.
type SiteLink struct {
	Site   string
	Title  string
	Badges []string
}

// Statement is a claim reduced to its main snak.
type Statement struct {
	ID       string
	Property string
	Rank     string
	SnakType string // value, somevalue, novalue
	DataType string
	Value    string // human readable summary of the data value
}

// ItemDocument is a Wikidata item (Q-id).
type ItemDocument struct {
	ID           string
	LastRevID    int64
	Labels       map[string]MonolingualText
	Descriptions map[string]MonolingualText
	Aliases      map[string][]MonolingualText
	Statements   map[string][]Statement
	SiteLinks    map[string]SiteLink
}

func (d *ItemDocument) EntityID() string { return d.ID }
func (d *ItemDocument) Kind() EntityKind { return KindItem }
func (d *ItemDocument) String() string   { return Format(d) }
func (d *ItemDocument) entityDocument()  {}

// Label returns the label text in lang.
func (d *ItemDocument) Label(lang string) (string, bool) {
	return text(d.Labels, lang)
}

// SiteLink returns the site link for a site key such as "enwiki".
func (d *ItemDocument) SiteLink(site string) (SiteLink, bool) {
	sl, ok := d.SiteLinks[site]
	return sl, ok
}

// PropertyDocument is a Wikidata property (P-id).
type PropertyDocument struct {
	ID           string
	LastRevID    int64
	DataType     string
	Labels       map[string]MonolingualText
	Descriptions map[string]MonolingualText
	Aliases      map[string][]MonolingualText
	Statements   map[string][]Statement
}

func (d *PropertyDocument) EntityID() string { return d.ID }
func (d *PropertyDocument) Kind() EntityKind { return KindProperty }
func (d *PropertyDocument) String() string   { return Format(d) }
func (d *PropertyDocument) entityDocument()  {}

// Label returns the label text in lang.
func (d *PropertyDocument) Label(lang string) (string, bool) {
	return text(d.Labels, lang)
}

// LexemeDocument is a Wikidata lexeme (L-id).
type LexemeDocument struct {
	ID              string
	LastRevID       int64
	Lemmas          map[string]MonolingualText
	LexicalCategory string
	Language        string
	Statements      map[string][]Statement
}

func (d *LexemeDocument) EntityID() string { return d.ID }
func (d *LexemeDocument) Kind() EntityKind { return KindLexeme }
func (d *LexemeDocument) String() string   { return Format(d) }
func (d *LexemeDocument) entityDocument()  {}

// Lemma returns the lemma in lang.
func (d *LexemeDocument) Lemma(lang string) (string, bool) {
	return text(d.Lemmas, lang)
}

// SearchResult is one hit of wbsearchentities.
type SearchResult struct {
	EntityID    string
	Title       string
	PageID      int64
	Label       string
	Description string
	ConceptURI  string
	URL         string
	Match       SearchMatch
}

// SearchMatch tells which term of the entity matched the search.
type SearchMatch struct {
	Type     string
	Language string
	Text     string
}

func text(m map[string]MonolingualText, lang string) (string, bool) {
	t, ok := m[lang]
	if !ok {
		return "", false
	}
	return t.Text, true
}
