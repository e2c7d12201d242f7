package report

import (
	"context"
	"fmt"

	"github.com/fatih/color"
)

// Plan holds the inputs of one full run.
type Plan struct {
	EntityID      string
	LabelLanguage string
	EntityIDs     []string

	TitleSite string
	Titles    []string

	SearchTerm     string
	SearchLanguage string

	FilteredEntityID string
	FilterLanguage   string
	FilterSite       string
}

// DefaultPlan returns the classic demonstration inputs.
func DefaultPlan() Plan {
	return Plan{
		EntityID:         "Q42",
		LabelLanguage:    "en",
		EntityIDs:        []string{"Q42", "P31"},
		TitleSite:        "enwiki",
		Titles:           []string{"Terry Pratchett", "Neil Gaiman"},
		SearchTerm:       "Douglas Adams",
		SearchLanguage:   "fr",
		FilteredEntityID: "Q8",
		FilterLanguage:   "fr",
		FilterSite:       "enwiki",
	}
}

var (
	bannerColor  = color.New(color.FgCyan, color.Bold)
	sectionColor = color.New(color.FgYellow)
)

// PrintDocumentation prints the program banner.
func (w *Workflow) PrintDocumentation() {
	rule := "********************************************************************"
	bannerColor.Fprintln(w.out, rule)
	bannerColor.Fprintln(w.out, "*** wikifetch: fetching entity data from the Wikidata API")
	bannerColor.Fprintln(w.out, "*** ")
	bannerColor.Fprintln(w.out, "*** Fetches entities by id, by page title and by search term, and")
	bannerColor.Fprintln(w.out, "*** applies filters to reduce the volume of data returned.")
	bannerColor.Fprintln(w.out, "*** It does not download any dump files.")
	bannerColor.Fprintln(w.out, rule)
}

// Run prints the banner and executes every scenario of p in order. It stops
// at the first fetch error.
func (w *Workflow) Run(ctx context.Context, p Plan) error {
	w.PrintDocumentation()

	steps := []struct {
		title string
		run   func() error
	}{
		{"Fetching data for one entity:", func() error {
			return w.FetchSingleByKey(ctx, p.EntityID, p.LabelLanguage)
		}},
		{"Fetching data for several entities:", func() error {
			return w.FetchMultipleByKeys(ctx, p.LabelLanguage, p.EntityIDs...)
		}},
		{"Fetching data based on page title:", func() error {
			return w.FetchMultipleByTitles(ctx, p.TitleSite, p.Titles...)
		}},
		{fmt.Sprintf("Searching for entities matching: '%s'", p.SearchTerm), func() error {
			return w.SearchByTerm(ctx, p.SearchTerm, p.SearchLanguage)
		}},
		{"Fetching data for entities applying filters:", func() error {
			return w.FetchWithFilters(ctx, p.FilteredEntityID, p.FilterLanguage, p.FilterSite)
		}},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		sectionColor.Fprintln(w.out, "*** "+s.title)
		if err := s.run(); err != nil {
			return err
		}
	}
	w.logger.Info("Run complete")
	return nil
}
