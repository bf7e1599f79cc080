package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// IdentifyParty returns the single canonical party name that occurs in text.
// Zero or several matches yield an *IdentificationError; there is no tie-break.
func IdentifyParty(text string, partyNames []string, pageURL string) (string, error) {
	text = NormalizeSpace(text)

	seen := map[string]bool{}
	var matches []string
	for _, name := range partyNames {
		needle := NormalizeSpace(name)
		if needle == "" || seen[needle] {
			continue
		}
		seen[needle] = true
		if strings.Contains(text, needle) {
			matches = append(matches, name)
		}
	}

	if len(matches) != 1 {
		return "", &IdentificationError{URL: pageURL, Matches: matches}
	}
	return matches[0], nil
}

// PriorityVoteTotal validates that the priority-vote column lists every total
// twice, which holds when its maximum is exactly half of its sum, and returns
// that maximum.
func PriorityVoteTotal(t *Table, column string, pageURL string, party string) (int, error) {
	col := t.ColumnIndex(column)
	if col < 0 {
		return 0, &SchemaError{URL: pageURL, Reason: fmt.Sprintf("column %q not found", column)}
	}

	var maxVotes, sum, values int
	for i, r := range t.Rows {
		cell := strings.TrimSpace(r[col])
		if cell == "" {
			continue
		}
		v, err := parseCount(cell)
		if err != nil || v < 0 {
			return 0, &SchemaError{URL: pageURL, Reason: fmt.Sprintf("row %d: %s value %q is not a non-negative integer", i, column, cell)}
		}
		maxVotes = max(maxVotes, v)
		sum += v
		values++
	}
	if values == 0 {
		return 0, &SchemaError{URL: pageURL, Reason: fmt.Sprintf("column %q has no values", column)}
	}

	if 2*maxVotes != sum {
		return 0, &InvariantViolationError{URL: pageURL, Party: party, Max: maxVotes, Sum: sum}
	}
	return maxVotes, nil
}

// ReconcilePage attributes one priority-vote sub-page to a party from the
// canonical list and validates its priority-vote total.
func ReconcilePage(ctx context.Context, logger *slog.Logger, doc *goquery.Document, pageURL string, partyNames []string, sel Selectors) (PriorityResult, error) {
	ctx, span := startSpan(ctx, "ReconcilePage")
	defer span.End()
	span.SetAttributes(attribute.String("url", pageURL))

	logger = logger.With(slog.String("pirm_url", pageURL))

	party, err := IdentifyParty(PageText(doc), partyNames, pageURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "party identification failed")
		logger.ErrorContext(ctx, "Could not identify party on priority-vote page", slog.Any("error", err))
		return PriorityResult{}, err
	}

	table, err := FindMarkedTable(doc, pageURL, sel.TableClass)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "priority-vote table missing")
		logger.ErrorContext(ctx, "Priority-vote table not found", slog.Any("error", err))
		return PriorityResult{}, err
	}

	total, err := PriorityVoteTotal(table, sel.PriorityColumn, pageURL, party)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "priority-vote validation failed")
		logger.ErrorContext(ctx, "Priority-vote total rejected", slog.String("party", party), slog.Any("error", err))
		return PriorityResult{}, err
	}

	span.SetAttributes(attribute.String("party", party), attribute.Int("total", total))
	logger.DebugContext(ctx, "Reconciled priority-vote page",
		slog.String("party", party),
		slog.Int("total_pirm_votes", total),
	)
	return PriorityResult{URL: pageURL, PartyName: party, Total: total, Table: table}, nil
}

// MergePriorityVotes builds reconciled rows from the canonical rows, filling
// the priority-vote total of every row whose party name equals a result's
// party. Rows without a result keep a nil total. Later results for the same
// party win.
func MergePriorityVotes(rows []PartyRow, results []PriorityResult) []ReconciledRow {
	totals := make(map[string]int, len(results))
	for _, res := range results {
		totals[res.PartyName] = res.Total
	}

	out := make([]ReconciledRow, len(rows))
	for i, row := range rows {
		out[i] = ReconciledRow{PartyRow: row}
		if total, ok := totals[row.PartyName]; ok {
			out[i].PriorityVotes = &total
		}
	}
	return out
}

func partyNames(rows []PartyRow) []string {
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.PartyName)
	}
	return names
}
