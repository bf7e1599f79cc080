package scraper

// Phrases is an ordered list of substrings that must all occur in a raw href.
// A single phrase is the one-element case; an empty list keeps every link.
type Phrases []string

// LinkSet holds absolute URLs, deduplicated.
type LinkSet map[string]struct{}

// HierarchyMap maps a region id to the ids of its precincts.
type HierarchyMap map[string][]string

// Table is an HTML table materialized as text cells. Header keeps every
// header level, outermost first; each header row and each body row is
// expanded to the full column count.
type Table struct {
	Header [][]string
	Rows   [][]string
}

// PartyRow is one row of a precinct's canonical results table.
type PartyRow struct {
	VRKNr         int
	PartyName     string
	PrecinctVotes int
}

// ReconciledRow is a PartyRow with the priority-vote total filled in when a
// matching priority-vote page was found and validated.
type ReconciledRow struct {
	PartyRow
	PriorityVotes *int
}

// PriorityResult is the validated outcome of one priority-vote sub-page.
type PriorityResult struct {
	URL       string
	PartyName string
	Total     int
	Table     *Table
}

type ResultRecord struct {
	Region        string
	Precinct      string
	VRKNr         int
	PartyName     string
	PrecinctVotes int
	PriorityVotes *int
}

type ResultTable []ResultRecord

// WorkItem is one (region, precinct) pair from the hierarchy.
type WorkItem struct {
	Region   string
	Precinct string
}

type RunStats struct {
	Regions            int
	PrecinctsFound     int
	PrecinctsProcessed int
	PrecinctsSkipped   int
	SubPagesReconciled int
	SubPagesFailed     int
}

// ProgressFunc is called after each precinct with the processed and total counts.
type ProgressFunc func(processed, total int)
