package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Canonical table column positions after the outer header level is dropped.
const (
	colVRKNr         = 0
	colPartyName     = 1
	colPrecinctVotes = 5
	minCanonicalCols = 6
)

// Selectors are the page-format markers the pipeline relies on.
type Selectors struct {
	HeadingTag     string
	HeadingMarker  string
	TableClass     string
	PriorityColumn string
}

func DefaultSelectors() Selectors {
	return Selectors{
		HeadingTag:     "h2",
		HeadingMarker:  "Balsavimo rezultatai",
		TableClass:     "partydata",
		PriorityColumn: "Pirmumo balsai",
	}
}

// ExtractResultsTable finds the heading carrying the marker text and parses the
// first results table that follows it in document order.
func ExtractResultsTable(ctx context.Context, logger *slog.Logger, doc *goquery.Document, pageURL string, sel Selectors) (*Table, error) {
	logger = logger.With(slog.String("page_url", pageURL))

	marker := strings.ToLower(sel.HeadingMarker)
	heading := doc.Find(sel.HeadingTag).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(strings.ToLower(NormalizeSpace(s.Text())), marker)
	}).First()
	if heading.Length() == 0 {
		logger.WarnContext(ctx, "Results heading not found",
			slog.String("tag", sel.HeadingTag),
			slog.String("marker", sel.HeadingMarker),
		)
		return nil, &NotFoundError{URL: pageURL, Element: fmt.Sprintf("<%s>%s</%s> heading", sel.HeadingTag, sel.HeadingMarker, sel.HeadingTag)}
	}

	tableNode := findNext(heading.Nodes[0], func(n *html.Node) bool {
		return isElement(n, "table") && hasClass(n, sel.TableClass)
	})
	if tableNode == nil {
		logger.WarnContext(ctx, "No results table after the heading", slog.String("class", sel.TableClass))
		return nil, &NotFoundError{URL: pageURL, Element: fmt.Sprintf("table.%s after heading", sel.TableClass)}
	}

	table := ParseTable(tableNode)
	logger.DebugContext(ctx, "Extracted results table",
		slog.Int("header_levels", len(table.Header)),
		slog.Int("rows", len(table.Rows)),
		slog.Int("columns", table.Columns()),
	)
	return table, nil
}

// FindMarkedTable parses the first table carrying the results class anywhere in doc.
func FindMarkedTable(doc *goquery.Document, pageURL string, class string) (*Table, error) {
	var found *html.Node
	doc.Find("table").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if hasClass(s.Nodes[0], class) {
			found = s.Nodes[0]
			return false
		}
		return true
	})
	if found == nil {
		return nil, &NotFoundError{URL: pageURL, Element: fmt.Sprintf("table.%s", class)}
	}
	return ParseTable(found), nil
}

// ParseTable materializes a table element. Rows inside <thead>, or leading rows
// made only of <th> cells when there is no <thead>, form the header levels.
// colspan and rowspan are expanded so every cell lands in its grid position.
func ParseTable(n *html.Node) *Table {
	table := &Table{}
	sel := goquery.NewDocumentFromNode(n).Selection

	hasTHead := sel.Find("thead").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Closest("table").Get(0) == n
	}).Length() > 0

	carry := map[int]spanCell{}
	inBody := false

	sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.Closest("table").Get(0) != n {
			return
		}
		cells := tr.ChildrenFiltered("td, th")
		isHeader := false
		if hasTHead {
			isHeader = tr.Parent().Is("thead")
		} else if !inBody {
			isHeader = cells.Length() > 0 && cells.Length() == tr.ChildrenFiltered("th").Length()
		}

		row := expandRow(cells, carry)
		if isHeader {
			table.Header = append(table.Header, row)
			return
		}
		inBody = true
		table.Rows = append(table.Rows, row)
	})

	width := table.Columns()
	for i := range table.Header {
		table.Header[i] = pad(table.Header[i], width)
	}
	for i := range table.Rows {
		table.Rows[i] = pad(table.Rows[i], width)
	}
	return table
}

type spanCell struct {
	text      string
	remaining int
}

func expandRow(cells *goquery.Selection, carry map[int]spanCell) []string {
	var row []string
	col := 0

	fillCarried := func() {
		for {
			c, ok := carry[col]
			if !ok {
				return
			}
			row = append(row, c.text)
			if c.remaining <= 1 {
				delete(carry, col)
			} else {
				carry[col] = spanCell{text: c.text, remaining: c.remaining - 1}
			}
			col++
		}
	}

	cells.Each(func(_ int, cell *goquery.Selection) {
		fillCarried()
		text := NormalizeSpace(cell.Text())
		colspan := spanAttr(cell, "colspan")
		rowspan := spanAttr(cell, "rowspan")
		for k := 0; k < colspan; k++ {
			row = append(row, text)
			if rowspan > 1 {
				carry[col] = spanCell{text: text, remaining: rowspan - 1}
			}
			col++
		}
	})

	// rowspans reaching past the last cell of this row
	maxCol := -1
	for c := range carry {
		if c >= col && c > maxCol {
			maxCol = c
		}
	}
	for col <= maxCol {
		if _, ok := carry[col]; ok {
			fillCarried()
			continue
		}
		row = append(row, "")
		col++
	}
	return row
}

func spanAttr(cell *goquery.Selection, name string) int {
	v, err := strconv.Atoi(strings.TrimSpace(cell.AttrOr(name, "1")))
	if err != nil || v < 1 {
		return 1
	}
	return v
}

func pad(row []string, width int) []string {
	for len(row) < width {
		row = append(row, "")
	}
	return row
}

func (t *Table) Columns() int {
	width := 0
	for _, r := range t.Header {
		width = max(width, len(r))
	}
	for _, r := range t.Rows {
		width = max(width, len(r))
	}
	return width
}

// ColumnNames returns the innermost header level.
func (t *Table) ColumnNames() []string {
	if len(t.Header) == 0 {
		return nil
	}
	return t.Header[len(t.Header)-1]
}

// ColumnIndex finds the first column whose name, at any header level,
// equals name case-insensitively. It returns -1 when there is none.
func (t *Table) ColumnIndex(name string) int {
	name = strings.ToLower(NormalizeSpace(name))
	for col := 0; col < t.Columns(); col++ {
		for _, level := range t.Header {
			if col < len(level) && strings.ToLower(level[col]) == name {
				return col
			}
		}
	}
	return -1
}

// NormalizeCanonical turns a raw results table into party rows: it keeps the
// key, party name and total votes columns, drops rows without a key and
// converts the numeric columns. The input table is left untouched.
func NormalizeCanonical(t *Table, pageURL string) ([]PartyRow, error) {
	if cols := t.Columns(); cols < minCanonicalCols {
		return nil, &SchemaError{URL: pageURL, Reason: fmt.Sprintf("expected at least %d columns, got %d", minCanonicalCols, cols)}
	}

	rows := make([]PartyRow, 0, len(t.Rows))
	for i, r := range t.Rows {
		key := strings.TrimSpace(r[colVRKNr])
		if key == "" {
			continue
		}
		vrkNr, err := parseCount(key)
		if err != nil {
			return nil, &SchemaError{URL: pageURL, Reason: fmt.Sprintf("row %d: VRK_nr %q is not an integer", i, key)}
		}
		votes, err := parseCount(r[colPrecinctVotes])
		if err != nil || votes < 0 {
			return nil, &SchemaError{URL: pageURL, Reason: fmt.Sprintf("row %d: precinct votes %q is not a non-negative integer", i, r[colPrecinctVotes])}
		}
		rows = append(rows, PartyRow{
			VRKNr:         vrkNr,
			PartyName:     NormalizeSpace(r[colPartyName]),
			PrecinctVotes: votes,
		})
	}
	return rows, nil
}

// parseCount reads an integer that may carry whitespace thousands separators.
func parseCount(s string) (int, error) {
	return strconv.Atoi(strings.Join(strings.Fields(s), ""))
}
