package wikidata

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"wikifetch/pkg/request"
)

const (
	apiEndpoint = "https://www.wikidata.org/w/api.php"

	// batchSize is the wbgetentities limit for ids or titles per request.
	batchSize = 50

	// DefaultSearchLimit is the number of search hits requested when the
	// caller passes a non-positive limit.
	DefaultSearchLimit = 7
	maxSearchLimit     = 50
)

// Client talks to the Wikibase action API.
type Client struct {
	request     *request.Client
	APIEndpoint string
	Logger      *slog.Logger
}

// NewClient creates a new Wikidata client.
func NewClient(r *request.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		request:     r,
		APIEndpoint: apiEndpoint,
		Logger:      logger,
	}
}

// GetEntity fetches one entity. A missing entity yields ErrNotFound.
func (c *Client) GetEntity(ctx context.Context, id string, f DocumentFilter) (EntityDocument, error) {
	docs, err := c.GetEntities(ctx, []string{id}, f)
	if err != nil {
		return nil, err
	}
	doc, ok := docs.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return doc, nil
}

// GetEntities fetches entities by id. The result is keyed by the requested
// id in request order; missing entities are omitted.
func (c *Client) GetEntities(ctx context.Context, ids []string, f DocumentFilter) (*DocumentMap, error) {
	for _, id := range ids {
		if !IsEntityID(id) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
		}
	}
	ids = dedupe(ids)

	found := make(map[string]EntityDocument, len(ids))
	for _, chunk := range chunks(ids) {
		q := c.entityQuery(f, "")
		q.Set("ids", strings.Join(chunk, "|"))

		body, err := c.get(ctx, q, "wd_ent")
		if err != nil {
			return nil, err
		}
		entities, err := decodeEntities(body)
		if err != nil {
			return nil, err
		}
		for key, raw := range entities {
			if raw.missing() {
				c.Logger.Debug("Entity missing", "id", key)
				continue
			}
			doc, ok := toDocument(&raw)
			if !ok {
				c.Logger.Warn("Skipping unsupported entity type", "id", key, "type", raw.Type)
				continue
			}
			doc = f.Apply(doc)
			found[key] = doc
			if raw.Redirects != nil && raw.Redirects.From != "" {
				found[raw.Redirects.From] = doc
			}
		}
	}

	out := NewDocumentMap()
	for _, id := range ids {
		if doc, ok := found[id]; ok {
			out.Set(id, doc)
		}
	}
	if out.Len() == 0 {
		c.request.TrackZero(c.APIEndpoint)
	}
	return out, nil
}

// GetEntityByTitle fetches the entity linked to a page on site.
func (c *Client) GetEntityByTitle(ctx context.Context, site, title string, f DocumentFilter) (EntityDocument, error) {
	docs, err := c.GetEntitiesByTitles(ctx, site, []string{title}, f)
	if err != nil {
		return nil, err
	}
	doc, ok := docs.Get(title)
	if !ok {
		return nil, fmt.Errorf("%w: %s:%s", ErrNotFound, site, title)
	}
	return doc, nil
}

// GetEntitiesByTitles fetches the entities linked to pages on site. The
// result is keyed by the requested title in request order; titles without
// an entity are omitted.
func (c *Client) GetEntitiesByTitles(ctx context.Context, site string, titles []string, f DocumentFilter) (*DocumentMap, error) {
	if site == "" {
		return nil, fmt.Errorf("%w: empty site key", ErrInvalidTitle)
	}
	for _, t := range titles {
		if strings.TrimSpace(t) == "" || strings.Contains(t, "|") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTitle, t)
		}
	}
	titles = dedupe(titles)

	found := make(map[string]EntityDocument, len(titles))
	for _, chunk := range chunks(titles) {
		q := c.entityQuery(f, site)
		q.Set("sites", site)
		q.Set("titles", strings.Join(chunk, "|"))
		if len(chunk) == 1 {
			// normalize is only accepted for a single title
			q.Set("normalize", "1")
		}

		body, err := c.get(ctx, q, "wd_title")
		if err != nil {
			return nil, err
		}
		entities, err := decodeEntities(body)
		if err != nil {
			return nil, err
		}
		normalized := normalizedTitles(body)

		byTitle := make(map[string]EntityDocument, len(entities))
		for key, raw := range entities {
			if raw.missing() {
				c.Logger.Debug("Page has no entity", "site", site, "title", raw.Title)
				continue
			}
			sl, ok := raw.SiteLinks[site]
			if !ok {
				c.Logger.Warn("Entity lacks sitelink for lookup site", "id", key, "site", site)
				continue
			}
			doc, ok := toDocument(&raw)
			if !ok {
				continue
			}
			byTitle[titleKey(sl.Title)] = f.Apply(doc)
		}

		for _, t := range chunk {
			lookup := t
			if n, ok := normalized[t]; ok {
				lookup = n
			}
			if doc, ok := byTitle[titleKey(lookup)]; ok {
				found[t] = doc
			}
		}
	}

	out := NewDocumentMap()
	for _, t := range titles {
		if doc, ok := found[t]; ok {
			out.Set(t, doc)
		}
	}
	if out.Len() == 0 {
		c.request.TrackZero(c.APIEndpoint)
	}
	return out, nil
}

type rawSearchHit struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	PageID      int64  `json:"pageid"`
	Label       string `json:"label"`
	Description string `json:"description"`
	ConceptURI  string `json:"concepturi"`
	URL         string `json:"url"`
	Match       struct {
		Type     string `json:"type"`
		Language string `json:"language"`
		Text     string `json:"text"`
	} `json:"match"`
}

// SearchEntities searches items by label or alias. Results keep the order
// the API ranked them in.
func (c *Client) SearchEntities(ctx context.Context, term, lang string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	q := url.Values{}
	q.Set("action", "wbsearchentities")
	q.Set("format", "json")
	q.Set("search", term)
	q.Set("language", lang)
	q.Set("uselang", lang)
	q.Set("type", "item")
	q.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, q, "wd_search")
	if err != nil {
		return nil, err
	}

	var result struct {
		Search []rawSearchHit `json:"search"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode json: %v", ErrParse, err)
	}

	out := make([]SearchResult, 0, len(result.Search))
	for i := range result.Search {
		h := &result.Search[i]
		out = append(out, SearchResult{
			EntityID:    h.ID,
			Title:       h.Title,
			PageID:      h.PageID,
			Label:       h.Label,
			Description: h.Description,
			ConceptURI:  absoluteURL(h.ConceptURI),
			URL:         absoluteURL(h.URL),
			Match: SearchMatch{
				Type:     h.Match.Type,
				Language: h.Match.Language,
				Text:     h.Match.Text,
			},
		})
	}
	if len(out) == 0 {
		c.request.TrackZero(c.APIEndpoint)
	}
	return out, nil
}

// entityQuery builds the wbgetentities parameters for a filter. lookupSite
// keeps sitelinks for that site in the response even when the filter drops
// them, so by-title results can be matched to their request.
func (c *Client) entityQuery(f DocumentFilter, lookupSite string) url.Values {
	q := url.Values{}
	q.Set("action", "wbgetentities")
	q.Set("format", "json")

	props := []string{"info"}

	langs, langRestricted := f.Languages()
	if !langRestricted || len(langs) > 0 {
		props = append(props, "labels", "descriptions", "aliases")
		if langRestricted {
			q.Set("languages", strings.Join(langs, "|"))
		}
	}

	if !excludesAll(f.properties) {
		props = append(props, "claims")
	}

	sites, siteRestricted := f.SiteLinks()
	switch {
	case !siteRestricted:
		props = append(props, "sitelinks")
	case len(sites) > 0 || lookupSite != "":
		props = append(props, "sitelinks")
		q.Set("sitefilter", strings.Join(withSite(sites, lookupSite), "|"))
	}

	q.Set("props", strings.Join(props, "|"))
	return q
}

// get performs the request and maps transport and API failures.
func (c *Client) get(ctx context.Context, q url.Values, keyPrefix string) ([]byte, error) {
	u, err := url.Parse(c.APIEndpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: bad endpoint %q: %v", ErrNetwork, c.APIEndpoint, err)
	}
	u.RawQuery = q.Encode()
	full := u.String()

	hash := md5.Sum([]byte(full))
	cacheKey := fmt.Sprintf("%s_%s", keyPrefix, hex.EncodeToString(hash[:]))

	body, err := c.request.GetValidated(ctx, full, cacheKey, apiError)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	if apiErr := apiError(body); apiErr != nil {
		return nil, apiErr
	}
	gjson.GetBytes(body, "warnings").ForEach(func(module, w gjson.Result) bool {
		c.Logger.Warn("Wikidata API warning", "module", module.String(), "warning", w.Get("*").String())
		return true
	})
	return body, nil
}

func chunks(values []string) [][]string {
	var out [][]string
	for i := 0; i < len(values); i += batchSize {
		end := i + batchSize
		if end > len(values) {
			end = len(values)
		}
		out = append(out, values[i:end])
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func withSite(sites []string, site string) []string {
	if site == "" {
		return sites
	}
	for _, s := range sites {
		if s == site {
			return sites
		}
	}
	return append(append([]string(nil), sites...), site)
}

// titleKey compares page titles the way MediaWiki stores them.
func titleKey(t string) string {
	return strings.ReplaceAll(strings.TrimSpace(t), "_", " ")
}

func absoluteURL(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}
