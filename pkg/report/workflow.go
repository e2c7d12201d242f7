// Package report fetches Wikidata entities and prints human readable reports
// about them.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"wikifetch/pkg/wikidata"
)

// Fetcher is the subset of the Wikibase client the workflow needs.
type Fetcher interface {
	GetEntity(ctx context.Context, id string, f wikidata.DocumentFilter) (wikidata.EntityDocument, error)
	GetEntities(ctx context.Context, ids []string, f wikidata.DocumentFilter) (*wikidata.DocumentMap, error)
	GetEntitiesByTitles(ctx context.Context, site string, titles []string, f wikidata.DocumentFilter) (*wikidata.DocumentMap, error)
	SearchEntities(ctx context.Context, term, lang string, limit int) ([]wikidata.SearchResult, error)
}

// Workflow runs report scenarios against a Fetcher.
//
// Errors from the Fetcher are returned to the caller. Failures to write a
// dump are logged, reported on the console and otherwise ignored.
type Workflow struct {
	fetcher Fetcher
	out     io.Writer
	sink    Sink
	logger  *slog.Logger

	// SearchLimit caps the number of search hits; zero uses the client default.
	SearchLimit int
}

// New creates a Workflow. A nil sink prints dumps to out.
func New(f Fetcher, out io.Writer, sink Sink, logger *slog.Logger) *Workflow {
	if sink == nil {
		sink = NewConsoleSink(out)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		fetcher: f,
		out:     out,
		sink:    sink,
		logger:  logger.With("component", "report"),
	}
}

// FetchSingleByKey reports the label of one entity in lang and dumps it.
func (w *Workflow) FetchSingleByKey(ctx context.Context, id, lang string) error {
	w.logger.Info("Fetching entity", "id", id)

	doc, err := w.fetcher.GetEntity(ctx, id, wikidata.NoFilter())
	if errors.Is(err, wikidata.ErrNotFound) {
		w.printf("Entity %s was not found!\n", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetch entity %s: %w", id, err)
	}

	item, ok := doc.(*wikidata.ItemDocument)
	if !ok {
		w.printf("Entity %s was not found!\n", id)
		return nil
	}

	if label, ok := item.Label(lang); ok {
		w.printf("The %s name for entity %s is: %s\n", LanguageName(lang), id, label)
	} else {
		w.printf("Entity %s has no %s label.\n", id, LanguageName(lang))
	}
	w.dump(entityFile(id), "Raw data for entity "+id, item.String())
	return nil
}

// FetchMultipleByKeys reports the label (or lemma) of each entity in
// request order and dumps all found entities to one file.
func (w *Workflow) FetchMultipleByKeys(ctx context.Context, lang string, ids ...string) error {
	w.logger.Info("Fetching entities", "ids", ids)

	docs, err := w.fetcher.GetEntities(ctx, ids, wikidata.NoFilter())
	if err != nil {
		return fmt.Errorf("fetch entities %s: %w", strings.Join(ids, ","), err)
	}

	langName := LanguageName(lang)
	for _, id := range ids {
		doc, ok := docs.Get(id)
		if !ok {
			w.printf("Entity %s was not found!\n", id)
			continue
		}

		var (
			label   string
			found   bool
			noun    = "name"
			kind    = "entity"
			missing = "label"
		)
		switch d := doc.(type) {
		case *wikidata.ItemDocument:
			label, found = d.Label(lang)
		case *wikidata.PropertyDocument:
			label, found = d.Label(lang)
		case *wikidata.LexemeDocument:
			label, found = d.Lemma(lang)
			noun, kind, missing = "lemma", "lexeme", "lemma"
		}
		if found {
			w.printf("The %s %s for %s %s is: %s\n", langName, noun, kind, id, label)
		} else {
			w.printf("Entity %s has no %s %s.\n", id, langName, missing)
		}
	}

	w.dumpAll(docs)
	return nil
}

// FetchMultipleByTitles reports the id of the entity behind each page title.
// Titles without an entity are skipped.
func (w *Workflow) FetchMultipleByTitles(ctx context.Context, site string, titles ...string) error {
	w.logger.Info("Fetching entities by title", "site", site, "titles", titles)

	docs, err := w.fetcher.GetEntitiesByTitles(ctx, site, titles, wikidata.NoFilter())
	if err != nil {
		return fmt.Errorf("fetch %s titles: %w", site, err)
	}

	for pair := docs.Oldest(); pair != nil; pair = pair.Next() {
		w.printf("The QID for the entity with page title \"%s\" is: %s\n", pair.Key, pair.Value.EntityID())
	}

	w.dumpAll(docs)
	return nil
}

// SearchByTerm lists search hits in the order the API ranked them and dumps
// their details to search-results.txt.
func (w *Workflow) SearchByTerm(ctx context.Context, term, lang string) error {
	w.logger.Info("Searching entities", "term", term, "language", lang)

	results, err := w.fetcher.SearchEntities(ctx, term, lang, w.SearchLimit)
	if err != nil {
		return fmt.Errorf("search %q: %w", term, err)
	}
	if len(results) == 0 {
		w.printf("No entities found for search term \"%s\".\n", term)
		return nil
	}

	var details strings.Builder
	for i := range results {
		r := &results[i]
		w.printf("Found entity with QID %s and label \"%s\".\n", r.EntityID, r.Label)
		writeSearchResult(&details, r)
	}
	w.dump(searchFile, "Search results", details.String())
	return nil
}

// FetchWithFilters fetches one entity keeping only the label in lang and
// the site link to site, and reports both.
func (w *Workflow) FetchWithFilters(ctx context.Context, id, lang, site string) error {
	filter := wikidata.NoFilter().
		WithSiteLinks(site).
		WithLanguages(lang).
		WithProperties()
	w.logger.Info("Fetching filtered entity", "id", id, "language", lang, "site", site)

	doc, err := w.fetcher.GetEntity(ctx, id, filter)
	if errors.Is(err, wikidata.ErrNotFound) {
		w.printf("Entity %s was not found!\n", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetch entity %s: %w", id, err)
	}

	item, ok := doc.(*wikidata.ItemDocument)
	if !ok {
		w.printf("Entity %s was not found!\n", id)
		return nil
	}

	label, hasLabel := item.Label(lang)
	link, hasLink := item.SiteLink(site)
	switch {
	case !hasLabel:
		w.printf("Entity %s has no %s label.\n", id, LanguageName(lang))
	case !hasLink:
		w.printf("Entity %s has no %s page.\n", id, SiteName(site))
	default:
		w.printf("The %s label for entity %s is %s\nand its %s page has the title %s.\n",
			LanguageName(lang), id, label, SiteName(site), link.Title)
	}
	w.dump(entityFile(id), "Raw data for entity "+id, item.String())
	return nil
}

func (w *Workflow) printf(format string, args ...any) {
	fmt.Fprintf(w.out, format, args...)
}

// dump hands content to the sink. what names the content in the
// confirmation line printed when the sink writes files.
func (w *Workflow) dump(name, what, content string) {
	if err := w.sink.Write(name, content); err != nil {
		w.logger.Error("Failed to write report", "file", name, "error", err)
		w.printf("Could not write %s: %v\n", name, err)
		return
	}
	if w.sink.WritesFiles() {
		w.printf("%s written to file %s\n", what, name)
	}
}

func (w *Workflow) dumpAll(docs *wikidata.DocumentMap) {
	if docs.Len() == 0 {
		return
	}
	ids := make([]string, 0, docs.Len())
	var b strings.Builder
	for pair := docs.Oldest(); pair != nil; pair = pair.Next() {
		ids = append(ids, pair.Value.EntityID())
		b.WriteString(pair.Value.String())
		b.WriteString("\n")
	}
	w.dump(entitiesFile(ids), "Raw data for entities "+strings.Join(ids, ", "), b.String())
}

const searchFile = "search-results.txt"

func entityFile(id string) string { return "entity-" + id + ".txt" }

func entitiesFile(ids []string) string { return "entities-" + strings.Join(ids, "-") + ".txt" }

func writeSearchResult(b *strings.Builder, r *wikidata.SearchResult) {
	fmt.Fprintf(b, "RESULT %s DETAILS:\n", r.Title)
	fmt.Fprintf(b, "concept_uri:%s\n", r.ConceptURI)
	fmt.Fprintf(b, "description:%s\n", r.Description)
	fmt.Fprintf(b, "entity_ID:%s\n", r.EntityID)
	fmt.Fprintf(b, "label:%s\n", r.Label)
	fmt.Fprintf(b, "page_ID:%d\n", r.PageID)
	fmt.Fprintf(b, "QID:%s\n", r.Title)
	fmt.Fprintf(b, "URL:%s\n\n", r.URL)
}
