package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate performs validation on the loaded configuration.
// Load calls it automatically; call it again after applying overrides.
func (c *Config) Validate() error {
	if err := c.Source.validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := c.Telemetry.validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0 (got %d)", c.HTTP.MaxRetries)
	}
	if c.Crawl.Workers < 1 {
		return fmt.Errorf("crawl.workers must be >= 1 (got %d)", c.Crawl.Workers)
	}
	if c.Crawl.Limit < 0 {
		return fmt.Errorf("crawl.limit must be >= 0 (got %d)", c.Crawl.Limit)
	}
	if c.Crawl.ProgressStep <= 0 || c.Crawl.ProgressStep > 1 {
		return fmt.Errorf("crawl.progress_step must be in (0, 1] (got %v)", c.Crawl.ProgressStep)
	}
	return nil
}

func (s *SourceConfig) validate() error {
	u, err := url.Parse(s.RootURL)
	if err != nil {
		return fmt.Errorf("root_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("root_url must be an absolute http(s) URL (got %q)", s.RootURL)
	}
	if strings.TrimSpace(s.RegionIndexPath) == "" {
		return fmt.Errorf("region_index_path must not be empty")
	}

	phrases := []struct {
		name string
		list []string
	}{
		{"region_phrases", s.RegionPhrases},
		{"precinct_phrases", s.PrecinctPhrases},
		{"priority_phrases", s.PriorityPhrases},
	}
	for _, p := range phrases {
		if len(p.list) == 0 {
			return fmt.Errorf("%s must list at least one phrase", p.name)
		}
		for i, phrase := range p.list {
			if phrase == "" {
				return fmt.Errorf("%s[%d] must not be empty", p.name, i)
			}
		}
	}

	if s.HeadingTag == "" || s.HeadingMarker == "" || s.TableClass == "" || s.PriorityColumn == "" {
		return fmt.Errorf("heading_tag, heading_marker, table_class and priority_column must be set")
	}
	return nil
}

func (t *TelemetryConfig) validate() error {
	for name, endpoint := range map[string]string{"http_endpoint": t.HTTPEndpoint, "grpc_endpoint": t.GRPCEndpoint} {
		if endpoint == "" {
			continue
		}
		u, err := url.Parse(endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL (got %q)", name, endpoint)
		}
	}
	if (t.HTTPEndpoint != "" || t.GRPCEndpoint != "") && t.ServiceName == "" {
		return fmt.Errorf("service_name must be set when an endpoint is configured")
	}
	return nil
}
