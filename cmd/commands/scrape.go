package commands

import (
	"github.com/spf13/cobra"

	"election-results/internal/config"
)

var (
	scrapeLimit   int
	scrapeWorkers int
	scrapeFormat  string
)

func init() {
	scrapeCmd.Flags().IntVar(&scrapeLimit, "limit", 0, "Stop after this many precincts (0 processes all of them).")
	scrapeCmd.Flags().IntVar(&scrapeWorkers, "workers", 1, "Number of precincts processed concurrently.")
	scrapeCmd.Flags().StringVar(&scrapeFormat, "format", formatTable, "Output format: table, csv or markdown.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--limit N] [--workers N] [--format table|csv|markdown]",
	Short: "Crawls every precinct and prints the reconciled results.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(scrapeFormat); err != nil {
			return err
		}

		a, _, err := newApp(cmd, func(cfg *config.Config) {
			if cmd.Flags().Changed("limit") {
				cfg.Crawl.Limit = scrapeLimit
			}
			if cmd.Flags().Changed("workers") {
				cfg.Crawl.Workers = scrapeWorkers
			}
		})
		if err != nil {
			return err
		}
		defer closeApp(cmd, a)

		results, _, err := a.Scrape(cmd.Context())
		if err != nil {
			return err
		}

		renderResults(cmd.OutOrStdout(), results, scrapeFormat)
		return nil
	},
}
