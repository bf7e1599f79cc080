package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"election-results/internal/scraper"
)

const (
	formatTable    = "table"
	formatCSV      = "csv"
	formatMarkdown = "markdown"
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatCSV, formatMarkdown:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, csv or markdown)", format)
}

func renderResults(w io.Writer, results scraper.ResultTable, format string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Region", "Precinct", "VRK_nr", "Party", "Votes", "Priority votes"})

	for _, r := range results {
		priority := ""
		if r.PriorityVotes != nil {
			priority = strconv.Itoa(*r.PriorityVotes)
		}
		t.AppendRow(table.Row{r.Region, r.Precinct, r.VRKNr, r.PartyName, r.PrecinctVotes, priority})
	}

	switch format {
	case formatCSV:
		t.RenderCSV()
	case formatMarkdown:
		t.RenderMarkdown()
	default:
		t.SetStyle(table.StyleRounded)
		t.AppendFooter(table.Row{"", "", "", "Records", len(results), ""})
		t.Render()
	}
}

func renderHierarchy(w io.Writer, hierarchy scraper.HierarchyMap) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Region", "Precincts"})

	for _, region := range hierarchy.Regions() {
		t.AppendRow(table.Row{region, len(hierarchy[region])})
	}

	t.AppendFooter(table.Row{"Total", hierarchy.PrecinctCount()})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
