package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	RootURL         string
	RegionIndexPath string
	RegionPhrases   Phrases
	PrecinctPhrases Phrases
	PriorityPhrases Phrases
	Selectors       Selectors

	// Workers bounds the number of pages fetched at once. 1 is fully sequential.
	Workers int
	// Limit stops the run after this many precincts; 0 processes all of them.
	Limit    int
	Progress ProgressFunc
	// TracerProvider receives the run's spans; nil uses the global provider.
	TracerProvider trace.TracerProvider
}

type Scraper struct {
	fetcher Fetcher
	logger  *slog.Logger
	opts    Options
	tracer  trace.Tracer
	root    *url.URL
	prefix  string
}

func New(fetcher Fetcher, logger *slog.Logger, opts Options) (*Scraper, error) {
	root, err := url.Parse(opts.RootURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse root URL: %w", err)
	}
	if !root.IsAbs() {
		return nil, fmt.Errorf("root URL %q is not absolute", opts.RootURL)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Limit < 0 {
		opts.Limit = 0
	}
	if opts.Selectors == (Selectors{}) {
		opts.Selectors = DefaultSelectors()
	}

	prefix := opts.RootURL
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	root, _ = url.Parse(prefix)

	provider := opts.TracerProvider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}

	return &Scraper{
		tracer:  provider.Tracer(tracerName),
		fetcher: fetcher,
		logger:  logger,
		opts:    opts,
		root:    root,
		prefix:  prefix,
	}, nil
}

// pageURL builds the address of a page from its identifier.
func (s *Scraper) pageURL(id string) string {
	return s.prefix + strings.TrimPrefix(id, "/")
}

// Run discovers the hierarchy and aggregates every precinct into one table.
func (s *Scraper) Run(ctx context.Context) (ResultTable, RunStats, error) {
	runID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "Run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("root_url", s.opts.RootURL),
	))
	defer span.End()

	run := *s
	run.logger = s.logger.With(slog.String("run_id", runID))
	table, stats, err := run.run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
		return table, stats, err
	}
	span.SetAttributes(
		attribute.Int("precincts_processed", stats.PrecinctsProcessed),
		attribute.Int("records", len(table)),
	)
	return table, stats, nil
}

func (s *Scraper) run(ctx context.Context) (ResultTable, RunStats, error) {
	start := time.Now()

	s.logger.InfoContext(ctx, "Starting scrape",
		slog.String("root_url", s.opts.RootURL),
		slog.Int("workers", s.opts.Workers),
		slog.Int("limit", s.opts.Limit),
	)

	hierarchy, err := s.Discover(ctx)
	if err != nil {
		return nil, RunStats{}, err
	}

	table, stats, err := s.Aggregate(ctx, hierarchy)
	if err != nil {
		return nil, stats, err
	}

	s.logger.InfoContext(ctx, "Scrape complete",
		slog.Group("results",
			slog.Int("regions", stats.Regions),
			slog.Int("precincts_found", stats.PrecinctsFound),
			slog.Int("precincts_processed", stats.PrecinctsProcessed),
			slog.Int("precincts_skipped", stats.PrecinctsSkipped),
			slog.Int("pirm_pages_reconciled", stats.SubPagesReconciled),
			slog.Int("pirm_pages_failed", stats.SubPagesFailed),
			slog.Int("records", len(table)),
		),
		slog.Duration("elapsed", time.Since(start)),
	)
	return table, stats, nil
}

// Aggregate processes every (region, precinct) pair of the hierarchy, up to
// the configured limit. Failures of a single precinct or sub-page are logged
// and skipped; an invariant violation aborts the run with no result.
// Records are grouped by region and precinct in work-list order whatever the
// number of workers.
func (s *Scraper) Aggregate(ctx context.Context, hierarchy HierarchyMap) (ResultTable, RunStats, error) {
	items := hierarchy.WorkList()
	stats := RunStats{Regions: len(hierarchy), PrecinctsFound: len(items)}
	if s.opts.Limit > 0 && s.opts.Limit < len(items) {
		s.logger.InfoContext(ctx, "Processing limit in effect",
			slog.Int("limit", s.opts.Limit),
			slog.Int("precincts_found", len(items)),
		)
		items = items[:s.opts.Limit]
	}

	perPrecinct := make([][]ResultRecord, len(items))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, item := range items {
		g.Go(func() error {
			records, outcome, err := s.processPrecinct(gctx, item)
			if IsRunFatal(err) {
				return err
			}
			if gctx.Err() != nil {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			stats.PrecinctsProcessed++
			stats.SubPagesReconciled += outcome.reconciled
			stats.SubPagesFailed += outcome.failed
			if err != nil {
				stats.PrecinctsSkipped++
				s.logger.WarnContext(gctx, "Skipping precinct",
					slog.String("region", item.Region),
					slog.String("precinct", item.Precinct),
					slog.Any("error", err),
				)
			}
			perPrecinct[i] = records
			if s.opts.Progress != nil {
				s.opts.Progress(stats.PrecinctsProcessed, len(items))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Run aborted", slog.Any("error", err))
		return nil, stats, err
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	table := ResultTable{}
	for _, records := range perPrecinct {
		table = append(table, records...)
	}
	return table, stats, nil
}

type precinctOutcome struct {
	reconciled int
	failed     int
}

// processPrecinct fetches one precinct page once, normalizes its results table
// and reconciles every priority-vote sub-page linked from it.
func (s *Scraper) processPrecinct(ctx context.Context, item WorkItem) ([]ResultRecord, precinctOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "processPrecinct", trace.WithAttributes(
		attribute.String("region", item.Region),
		attribute.String("precinct", item.Precinct),
	))
	defer span.End()

	records, outcome, err := s.reconcilePrecinct(ctx, item)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "precinct failed")
	}
	span.SetAttributes(
		attribute.Int("pirm_pages_reconciled", outcome.reconciled),
		attribute.Int("pirm_pages_failed", outcome.failed),
	)
	return records, outcome, err
}

func (s *Scraper) reconcilePrecinct(ctx context.Context, item WorkItem) ([]ResultRecord, precinctOutcome, error) {
	var outcome precinctOutcome
	pageURL := s.pageURL(item.Precinct)
	logger := s.logger.With(
		slog.String("region", item.Region),
		slog.String("precinct", item.Precinct),
	)

	doc, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, outcome, err
	}

	raw, err := ExtractResultsTable(ctx, logger, doc, pageURL, s.opts.Selectors)
	if err != nil {
		return nil, outcome, err
	}
	rows, err := NormalizeCanonical(raw, pageURL)
	if err != nil {
		return nil, outcome, err
	}

	links, err := FilterLinks(ctx, logger, doc, s.root, s.opts.PriorityPhrases)
	if err != nil {
		logger.WarnContext(ctx, "Some priority-vote links could not be parsed", slog.Any("error", err))
	}

	names := partyNames(rows)
	var results []PriorityResult
	var errs []error
	for _, id := range Identifiers(links) {
		subURL := s.pageURL(id)
		subDoc, err := s.fetcher.Fetch(ctx, subURL)
		if err != nil {
			outcome.failed++
			errs = append(errs, err)
			continue
		}
		res, err := ReconcilePage(ctx, logger, subDoc, subURL, names, s.opts.Selectors)
		if IsRunFatal(err) {
			return nil, outcome, err
		}
		var schemaErr *SchemaError
		if errors.As(err, &schemaErr) {
			outcome.failed++
			return nil, outcome, fmt.Errorf("priority-vote page %s: %w", id, err)
		}
		if err != nil {
			outcome.failed++
			errs = append(errs, err)
			continue
		}
		outcome.reconciled++
		results = append(results, res)
	}
	if len(errs) > 0 {
		logger.WarnContext(ctx, "Some priority-vote pages were skipped",
			slog.Int("skipped", len(errs)),
			slog.Any("error", errors.Join(errs...)),
		)
	}

	reconciled := MergePriorityVotes(rows, results)
	records := make([]ResultRecord, 0, len(reconciled))
	for _, row := range reconciled {
		records = append(records, ResultRecord{
			Region:        item.Region,
			Precinct:      item.Precinct,
			VRKNr:         row.VRKNr,
			PartyName:     row.PartyName,
			PrecinctVotes: row.PrecinctVotes,
			PriorityVotes: row.PriorityVotes,
		})
	}

	logger.DebugContext(ctx, "Processed precinct",
		slog.Int("parties", len(rows)),
		slog.Int("pirm_pages", outcome.reconciled),
	)
	return records, outcome, nil
}

// LogProgress reports progress each time another step fraction of the total
// has been processed, e.g. step 0.01 logs at every whole percent.
func LogProgress(ctx context.Context, logger *slog.Logger, step float64) ProgressFunc {
	if step <= 0 || step > 1 {
		step = 0.01
	}
	steps := max(int(math.Round(1/step)), 1)
	bucket := func(processed, total int) int {
		return processed * steps / total
	}
	return func(processed, total int) {
		if total <= 0 || processed <= 0 {
			return
		}
		if bucket(processed, total) > bucket(processed-1, total) {
			logger.InfoContext(ctx, "Progress",
				slog.String("percent", fmt.Sprintf("%.2f%%", float64(processed)*100/float64(total))),
				slog.Int("processed", processed),
				slog.Int("total", total),
			)
		}
	}
}
