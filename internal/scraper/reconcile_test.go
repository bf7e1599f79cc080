package scraper

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func priorityTable(votes ...int) *Table {
	t := &Table{Header: [][]string{{"Nr.", "Kandidatas", "Pirmumo balsai"}}}
	for i, v := range votes {
		t.Rows = append(t.Rows, []string{strconv.Itoa(i + 1), "Kandidatas " + strconv.Itoa(i+1), strconv.Itoa(v)})
	}
	return t
}

func TestPriorityVoteTotal(t *testing.T) {
	testCases := []struct {
		name      string
		table     *Table
		want      int
		wantFatal bool
		wantErr   bool
	}{
		{
			name:  "Max Is Half Of Sum",
			table: priorityTable(10, 5, 3, 2),
			want:  10,
		},
		{
			name:      "Max Is Not Half Of Sum",
			table:     priorityTable(8, 6, 4, 2),
			wantFatal: true,
			wantErr:   true,
		},
		{
			name: "Blank Cells Ignored",
			table: &Table{
				Header: [][]string{{"Kandidatas", "Pirmumo balsai"}},
				Rows:   [][]string{{"A", "7"}, {"", ""}, {"B", "3"}, {"Iš viso", "10"}},
			},
			want: 10,
		},
		{
			name:    "Missing Column",
			table:   &Table{Header: [][]string{{"Kandidatas", "Balsai"}}, Rows: [][]string{{"A", "1"}}},
			wantErr: true,
		},
		{
			name:    "Non Numeric Value",
			table:   &Table{Header: [][]string{{"Kandidatas", "Pirmumo balsai"}}, Rows: [][]string{{"A", "n/a"}}},
			wantErr: true,
		},
		{
			name:    "No Values",
			table:   &Table{Header: [][]string{{"Kandidatas", "Pirmumo balsai"}}},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PriorityVoteTotal(tc.table, "Pirmumo balsai", "pirm.html", "Party A")

			require.Equal(t, tc.wantErr, err != nil, "error: %v", err)
			require.Equal(t, tc.wantFatal, IsRunFatal(err))
			if !tc.wantErr {
				require.Equal(t, tc.want, got)
			}
			if tc.wantFatal {
				var iv *InvariantViolationError
				require.ErrorAs(t, err, &iv)
				require.Equal(t, 8, iv.Max)
				require.Equal(t, 20, iv.Sum)
			}
		})
	}
}

func TestIdentifyParty(t *testing.T) {
	names := []string{"Party A", "Party B"}

	t.Run("Exactly One", func(t *testing.T) {
		got, err := IdentifyParty("Kandidatų sąrašas: Party A, apylinkė 3", names, "pirm.html")
		require.NoError(t, err)
		require.Equal(t, "Party A", got)
	})

	t.Run("Ambiguous", func(t *testing.T) {
		_, err := IdentifyParty("Party A ir Party B", names, "pirm.html")

		var idErr *IdentificationError
		require.ErrorAs(t, err, &idErr)
		require.True(t, idErr.Ambiguous())
		require.Equal(t, []string{"Party A", "Party B"}, idErr.Matches)
		require.False(t, IsRunFatal(err))
	})

	t.Run("None", func(t *testing.T) {
		_, err := IdentifyParty("Nieko panašaus", names, "pirm.html")

		var idErr *IdentificationError
		require.ErrorAs(t, err, &idErr)
		require.False(t, idErr.Ambiguous())
	})

	t.Run("Whitespace Differences", func(t *testing.T) {
		got, err := IdentifyParty("Sąrašas:  Party\n  B", []string{"Party  A", "Party B"}, "pirm.html")
		require.NoError(t, err)
		require.Equal(t, "Party B", got)
	})

	t.Run("Duplicate Names Count Once", func(t *testing.T) {
		got, err := IdentifyParty("Party A", []string{"Party A", "Party A"}, "pirm.html")
		require.NoError(t, err)
		require.Equal(t, "Party A", got)
	})
}

func TestReconcilePage(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	sel := DefaultSelectors()
	names := []string{"Party A", "Party B"}

	t.Run("Valid Page", func(t *testing.T) {
		doc := mustDoc(t, `<html><body>
            <h2>Party B pirmumo balsai</h2>
            <table class="partydata">
              <thead><tr><th>Nr.</th><th>Kandidatas</th><th>Pirmumo balsai</th></tr></thead>
              <tbody>
                <tr><td>1</td><td>Vardenis</td><td>30</td></tr>
                <tr><td>2</td><td>Pavardenis</td><td>12</td></tr>
                <tr><td></td><td>Iš viso</td><td>42</td></tr>
              </tbody>
            </table>
        </body></html>`)

		res, err := ReconcilePage(ctx, logger, doc, "pirm.html", names, sel)
		require.NoError(t, err)
		require.Equal(t, "Party B", res.PartyName)
		require.Equal(t, 42, res.Total)
		require.Len(t, res.Table.Rows, 3)
	})

	t.Run("Missing Table", func(t *testing.T) {
		doc := mustDoc(t, `<h2>Party A</h2><table class="other"><tr><td>1</td></tr></table>`)

		_, err := ReconcilePage(ctx, logger, doc, "pirm.html", names, sel)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Ambiguous Page", func(t *testing.T) {
		doc := mustDoc(t, `<p>Party A</p><p>Party B</p>`)

		_, err := ReconcilePage(ctx, logger, doc, "pirm.html", names, sel)
		var idErr *IdentificationError
		require.ErrorAs(t, err, &idErr)
	})

	t.Run("Invariant Violation", func(t *testing.T) {
		doc := mustDoc(t, `<h2>Party A</h2>
            <table class="partydata">
              <tr><th>Kandidatas</th><th>Pirmumo balsai</th></tr>
              <tr><td>Vardenis</td><td>8</td></tr>
              <tr><td>Pavardenis</td><td>6</td></tr>
              <tr><td>Iš viso</td><td>15</td></tr>
            </table>`)

		_, err := ReconcilePage(ctx, logger, doc, "pirm.html", names, sel)
		require.True(t, IsRunFatal(err), "got %v", err)
	})
}

func TestMergePriorityVotes(t *testing.T) {
	rows := []PartyRow{
		{VRKNr: 1, PartyName: "Party A", PrecinctVotes: 100},
		{VRKNr: 2, PartyName: "Party B", PrecinctVotes: 150},
	}

	merged := MergePriorityVotes(rows, []PriorityResult{{PartyName: "Party A", Total: 40}})

	require.Len(t, merged, 2)
	require.Equal(t, rows[0], merged[0].PartyRow)
	require.NotNil(t, merged[0].PriorityVotes)
	require.Equal(t, 40, *merged[0].PriorityVotes)
	require.Nil(t, merged[1].PriorityVotes)
	require.Equal(t, 150, rows[1].PrecinctVotes)
}
