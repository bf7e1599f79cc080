package config

import (
	"time"

	"election-results/internal/scraper"
)

// Config is the root scraper configuration.
type Config struct {
	Source    SourceConfig    `yaml:"source"`
	HTTP      HTTPConfig      `yaml:"http"`
	Crawl     CrawlConfig     `yaml:"crawl"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// SourceConfig describes where the results pages live and how to recognise them.
// Phrase lists are AND-ed: a link is followed only if its href contains all of them.
type SourceConfig struct {
	RootURL         string   `yaml:"root_url"          env:"SOURCE_ROOT_URL"`
	RegionIndexPath string   `yaml:"region_index_path" env:"SOURCE_REGION_INDEX_PATH"`
	RegionPhrases   []string `yaml:"region_phrases"    env:"SOURCE_REGION_PHRASES"    env-separator:","`
	PrecinctPhrases []string `yaml:"precinct_phrases"  env:"SOURCE_PRECINCT_PHRASES"  env-separator:","`
	PriorityPhrases []string `yaml:"priority_phrases"  env:"SOURCE_PRIORITY_PHRASES"  env-separator:","`
	HeadingTag      string   `yaml:"heading_tag"       env:"SOURCE_HEADING_TAG"       env-default:"h2"`
	HeadingMarker   string   `yaml:"heading_marker"    env:"SOURCE_HEADING_MARKER"    env-default:"Balsavimo rezultatai"`
	TableClass      string   `yaml:"table_class"       env:"SOURCE_TABLE_CLASS"       env-default:"partydata"`
	PriorityColumn  string   `yaml:"priority_column"   env:"SOURCE_PRIORITY_COLUMN"   env-default:"Pirmumo balsai"`
}

// HTTPConfig holds fetcher settings.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout"        env:"HTTP_TIMEOUT"        env-default:"10s"`
	MaxRetries   int           `yaml:"max_retries"    env:"HTTP_MAX_RETRIES"    env-default:"3"`
	RetryWait    time.Duration `yaml:"retry_wait"     env:"HTTP_RETRY_WAIT"     env-default:"1s"`
	MaxRetryWait time.Duration `yaml:"max_retry_wait" env:"HTTP_MAX_RETRY_WAIT" env-default:"8s"`
	UserAgent    string        `yaml:"user_agent"     env:"HTTP_USER_AGENT"     env-default:"election-results-scraper/1.0"`
}

// CrawlConfig holds run-shape settings.
type CrawlConfig struct {
	Workers      int     `yaml:"workers"       env:"CRAWL_WORKERS"       env-default:"1"`
	Limit        int     `yaml:"limit"         env:"CRAWL_LIMIT"         env-default:"0"`
	ProgressStep float64 `yaml:"progress_step" env:"CRAWL_PROGRESS_STEP" env-default:"0.01"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// TelemetryConfig points span export at an OTLP collector. Tracing is off
// when neither endpoint is set; the gRPC endpoint wins when both are.
type TelemetryConfig struct {
	ServiceName  string            `yaml:"service_name"  env:"TELEMETRY_SERVICE_NAME"  env-default:"election-results"`
	HTTPEndpoint string            `yaml:"http_endpoint" env:"TELEMETRY_HTTP_ENDPOINT"`
	GRPCEndpoint string            `yaml:"grpc_endpoint" env:"TELEMETRY_GRPC_ENDPOINT"`
	Headers      map[string]string `yaml:"headers"       env:"TELEMETRY_HEADERS"       env-separator:","`
}

// Selectors returns the page-format markers of the source.
func (c SourceConfig) Selectors() scraper.Selectors {
	return scraper.Selectors{
		HeadingTag:     c.HeadingTag,
		HeadingMarker:  c.HeadingMarker,
		TableClass:     c.TableClass,
		PriorityColumn: c.PriorityColumn,
	}
}

func (c HTTPConfig) FetcherOptions() scraper.FetcherOptions {
	return scraper.FetcherOptions{
		Timeout:      c.Timeout,
		MaxRetries:   c.MaxRetries,
		RetryWait:    c.RetryWait,
		MaxRetryWait: c.MaxRetryWait,
		UserAgent:    c.UserAgent,
	}
}
