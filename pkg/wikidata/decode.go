package wikidata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"

	"github.com/tidwall/gjson"
)

// jsonMap decodes a JSON object, and also accepts the empty array PHP
// emits for empty associative arrays.
type jsonMap[V any] map[string]V

func (m *jsonMap[V]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("[]")) {
		*m = nil
		return nil
	}
	var tmp map[string]V
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*m = tmp
	return nil
}

type entitiesResponse struct {
	Entities jsonMap[rawEntity] `json:"entities"`
}

type rawEntity struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Missing   json.RawMessage `json:"missing"`
	Site      string          `json:"site"`
	Title     string          `json:"title"`
	LastRevID int64           `json:"lastrevid"`
	DataType  string          `json:"datatype"`
	Redirects *struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"redirects"`

	Labels          jsonMap[rawTerm]     `json:"labels"`
	Descriptions    jsonMap[rawTerm]     `json:"descriptions"`
	Aliases         jsonMap[[]rawTerm]   `json:"aliases"`
	Lemmas          jsonMap[rawTerm]     `json:"lemmas"`
	LexicalCategory string               `json:"lexicalCategory"`
	Language        string               `json:"language"`
	Claims          jsonMap[[]rawClaim]  `json:"claims"`
	SiteLinks       jsonMap[rawSiteLink] `json:"sitelinks"`
}

func (r *rawEntity) missing() bool { return len(r.Missing) > 0 }

type rawTerm struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

type rawSiteLink struct {
	Site   string   `json:"site"`
	Title  string   `json:"title"`
	Badges []string `json:"badges"`
}

type rawClaim struct {
	ID       string  `json:"id"`
	Rank     string  `json:"rank"`
	Mainsnak rawSnak `json:"mainsnak"`
}

type rawSnak struct {
	SnakType  string `json:"snaktype"`
	Property  string `json:"property"`
	DataType  string `json:"datatype"`
	DataValue *struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	} `json:"datavalue"`
}

func decodeEntities(body []byte) (map[string]rawEntity, error) {
	var resp entitiesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode json: %v", ErrParse, err)
	}
	return resp.Entities, nil
}

// toDocument converts a decoded entity. ok is false for entity types this
// package does not model (e.g. mediainfo).
func toDocument(r *rawEntity) (doc EntityDocument, ok bool) {
	switch EntityKind(r.Type) {
	case KindItem:
		return &ItemDocument{
			ID:           r.ID,
			LastRevID:    r.LastRevID,
			Labels:       terms(r.Labels),
			Descriptions: terms(r.Descriptions),
			Aliases:      aliases(r.Aliases),
			Statements:   statements(r.Claims),
			SiteLinks:    siteLinks(r.SiteLinks),
		}, true
	case KindProperty:
		return &PropertyDocument{
			ID:           r.ID,
			LastRevID:    r.LastRevID,
			DataType:     r.DataType,
			Labels:       terms(r.Labels),
			Descriptions: terms(r.Descriptions),
			Aliases:      aliases(r.Aliases),
			Statements:   statements(r.Claims),
		}, true
	case KindLexeme:
		return &LexemeDocument{
			ID:              r.ID,
			LastRevID:       r.LastRevID,
			Lemmas:          terms(r.Lemmas),
			LexicalCategory: r.LexicalCategory,
			Language:        r.Language,
			Statements:      statements(r.Claims),
		}, true
	}
	return nil, false
}

func terms(in jsonMap[rawTerm]) map[string]MonolingualText {
	out := make(map[string]MonolingualText, len(in))
	for lang, t := range in {
		out[lang] = MonolingualText{Language: t.Language, Text: t.Value}
	}
	return out
}

func aliases(in jsonMap[[]rawTerm]) map[string][]MonolingualText {
	out := make(map[string][]MonolingualText, len(in))
	for lang, ts := range in {
		for _, t := range ts {
			out[lang] = append(out[lang], MonolingualText{Language: t.Language, Text: t.Value})
		}
	}
	return out
}

func siteLinks(in jsonMap[rawSiteLink]) map[string]SiteLink {
	out := make(map[string]SiteLink, len(in))
	for site, sl := range in {
		out[site] = SiteLink{Site: sl.Site, Title: sl.Title, Badges: sl.Badges}
	}
	return out
}

func statements(in jsonMap[[]rawClaim]) map[string][]Statement {
	out := make(map[string][]Statement, len(in))
	for prop, claims := range in {
		for _, c := range claims {
			out[prop] = append(out[prop], Statement{
				ID:       c.ID,
				Property: prop,
				Rank:     c.Rank,
				SnakType: c.Mainsnak.SnakType,
				DataType: c.Mainsnak.DataType,
				Value:    snakValue(&c.Mainsnak),
			})
		}
	}
	return out
}

// snakValue summarizes a main snak as a single line of text.
func snakValue(s *rawSnak) string {
	if s.SnakType != "value" || s.DataValue == nil {
		return s.SnakType
	}

	v := gjson.ParseBytes(s.DataValue.Value)
	switch s.DataValue.Type {
	case "wikibase-entityid":
		if id := v.Get("id"); id.Exists() {
			return id.String()
		}
		prefix := map[string]string{"item": "Q", "property": "P", "lexeme": "L"}[v.Get("entity-type").String()]
		return prefix + v.Get("numeric-id").String()
	case "string":
		return v.String()
	case "monolingualtext":
		return fmt.Sprintf("%s (%s)", v.Get("text").String(), v.Get("language").String())
	case "time":
		return v.Get("time").String()
	case "quantity":
		amount := v.Get("amount").String()
		if unit := v.Get("unit").String(); unit != "" && unit != "1" {
			return amount + " " + path.Base(unit)
		}
		return amount
	case "globecoordinate":
		return v.Get("latitude").Raw + "," + v.Get("longitude").Raw
	}
	return v.Raw
}

// apiError extracts the API error object, if any.
func apiError(body []byte) error {
	e := gjson.GetBytes(body, "error")
	if !e.Exists() {
		return nil
	}
	return &APIError{Code: e.Get("code").String(), Info: e.Get("info").String()}
}

// normalizedTitles maps requested titles to the titles the API normalized
// them to. The API emits either an object keyed "n" or an array.
func normalizedTitles(body []byte) map[string]string {
	out := make(map[string]string)
	gjson.GetBytes(body, "normalized").ForEach(func(_, v gjson.Result) bool {
		if from := v.Get("from"); from.Exists() {
			out[from.String()] = v.Get("to").String()
		}
		return true
	})
	return out
}
