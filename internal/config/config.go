package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/FranksOps/scout/internal/bypass"
	"github.com/FranksOps/scout/internal/extract"
	"github.com/FranksOps/scout/internal/filter"
	"github.com/FranksOps/scout/internal/fingerprint"
	"github.com/FranksOps/scout/internal/placement"
	"github.com/FranksOps/scout/internal/query"
	"github.com/FranksOps/scout/internal/report"
	"github.com/FranksOps/scout/internal/serp"
	"github.com/FranksOps/scout/pkg/proxy"
	"github.com/FranksOps/scout/pkg/ratelimit"
	"github.com/FranksOps/scout/pkg/useragent"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SCOUT_SEARCH_TIMEOUT.
const EnvPrefix = "SCOUT"

// DefaultDelay is the pause after every query.
const DefaultDelay = 20 * time.Second

type SearchConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`
	UserAgent   string        `mapstructure:"user_agent"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Selector    string        `mapstructure:"selector"`
	Fallback    bool          `mapstructure:"fallback"`
	Fingerprint string        `mapstructure:"fingerprint"`
	Cookies     bool          `mapstructure:"cookies"`

	// RotateUserAgents replaces UserAgent with a rotation over UserAgents
	// (or a built-in desktop list when empty).
	RotateUserAgents bool     `mapstructure:"rotate_user_agents"`
	UserAgents       []string `mapstructure:"user_agents"`
	UserAgentOrder   string   `mapstructure:"user_agent_order"`

	Proxies   []string `mapstructure:"proxies"`
	ProxyFile string   `mapstructure:"proxy_file"`
}

type ReportConfig struct {
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config is the fully resolved scan configuration.
type Config struct {
	Country        string   `mapstructure:"country"`
	Year           string   `mapstructure:"year"`
	Region         string   `mapstructure:"region"`
	Sectors        []string `mapstructure:"sectors"`
	PlacementTypes []string `mapstructure:"placement_types"`
	Exclusions     []string `mapstructure:"exclusions"`
	StaleYears     []string `mapstructure:"stale_years"`
	Cities         []string `mapstructure:"cities"`

	Search SearchConfig `mapstructure:"search"`

	// Delay is the pause after each query. With a positive Jitter the pause is
	// drawn around Delay instead of being fixed.
	Delay  time.Duration `mapstructure:"delay"`
	Jitter float64       `mapstructure:"jitter"`

	Report  ReportConfig  `mapstructure:"report"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"region":       "region",
	"sector":       "sectors",
	"delay":        "delay",
	"jitter":       "jitter",
	"timeout":      "search.timeout",
	"fallback":     "search.fallback",
	"fingerprint":  "search.fingerprint",
	"cookies":      "search.cookies",
	"rotate-ua":    "search.rotate_user_agents",
	"proxy":        "search.proxies",
	"proxy-file":   "search.proxy_file",
	"format":       "report.format",
	"output":       "report.output",
	"metrics-addr": "metrics.addr",
	"log-level":    "log.level",
	"log-format":   "log.format",
}

func setDefaults(v *viper.Viper) {
	b := query.DefaultBuilder()
	rules := filter.DefaultRules()

	v.SetDefault("country", b.Country)
	v.SetDefault("year", b.Year)
	v.SetDefault("region", "")
	v.SetDefault("sectors", toStrings(placement.DefaultSectors))
	v.SetDefault("placement_types", toStrings(placement.DefaultPlacementTypes))
	v.SetDefault("exclusions", rules.Exclusions)
	v.SetDefault("stale_years", rules.StaleYears)
	v.SetDefault("cities", b.Cities)

	v.SetDefault("search.endpoint", serp.DefaultEndpoint)
	v.SetDefault("search.user_agent", serp.DefaultUserAgent)
	v.SetDefault("search.timeout", serp.DefaultTimeout)
	v.SetDefault("search.selector", extract.DefaultResultSelector)
	v.SetDefault("search.fallback", false)
	v.SetDefault("search.fingerprint", string(fingerprint.ProfileGo))
	v.SetDefault("search.cookies", false)
	v.SetDefault("search.rotate_user_agents", false)
	v.SetDefault("search.user_agents", []string{})
	v.SetDefault("search.user_agent_order", string(useragent.Sequential))
	v.SetDefault("search.proxies", []string{})
	v.SetDefault("search.proxy_file", "")

	v.SetDefault("delay", DefaultDelay)
	v.SetDefault("jitter", 0.0)

	v.SetDefault("report.format", string(report.FormatText))
	v.SetDefault("report.output", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load resolves configuration from, in decreasing precedence: changed flags
// in fs, SCOUT_* environment variables, the config file at path (if any),
// and built-in defaults. fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var errs []error

	if len(nonEmpty(c.Sectors)) == 0 {
		errs = append(errs, errors.New("at least one sector is required"))
	}
	if len(nonEmpty(c.PlacementTypes)) == 0 {
		errs = append(errs, errors.New("at least one placement type is required"))
	}
	if strings.TrimSpace(c.Country) == "" {
		errs = append(errs, errors.New("country must not be empty"))
	}

	u, err := url.Parse(c.Search.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid search endpoint %q", c.Search.Endpoint))
	}
	if c.Search.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("search timeout must be positive, got %s", c.Search.Timeout))
	}
	if _, err := extract.NewSelectorExtractor(c.Search.Selector); err != nil {
		errs = append(errs, err)
	}
	if _, err := fingerprint.ParseProfile(c.Search.Fingerprint); err != nil {
		errs = append(errs, err)
	}
	if _, err := useragent.ParseOrder(c.Search.UserAgentOrder); err != nil {
		errs = append(errs, err)
	}

	if c.Delay < 0 {
		errs = append(errs, fmt.Errorf("delay must not be negative, got %s", c.Delay))
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		errs = append(errs, fmt.Errorf("jitter must be within [0, 1], got %g", c.Jitter))
	}

	if _, err := report.ParseFormat(c.Report.Format); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Catalog returns the placement catalog the scan iterates.
func (c *Config) Catalog() placement.Catalog {
	return placement.NewCatalog(
		placement.SectorsFromStrings(c.Sectors),
		placement.PlacementTypesFromStrings(c.PlacementTypes),
	)
}

// Builder returns the query builder for this configuration.
func (c *Config) Builder() *query.Builder {
	b := query.DefaultBuilder()
	b.Country = c.Country
	b.Year = c.Year
	if len(c.Cities) > 0 {
		b.Cities = append([]string(nil), c.Cities...)
	}
	return b
}

func (c *Config) FilterRules() filter.Rules {
	return filter.Rules{
		Exclusions: append([]string(nil), c.Exclusions...),
		StaleYears: append([]string(nil), c.StaleYears...),
	}
}

// GoogleConfig returns provider settings. Block detection always runs.
func (c *Config) GoogleConfig() (serp.GoogleConfig, error) {
	p, err := fingerprint.ParseProfile(c.Search.Fingerprint)
	if err != nil {
		return serp.GoogleConfig{}, err
	}
	gc := serp.GoogleConfig{
		Endpoint:    c.Search.Endpoint,
		UserAgent:   c.Search.UserAgent,
		Timeout:     c.Search.Timeout,
		Fingerprint: p,
		Detectors:   bypass.DefaultDetectors(),
		Cookies:     c.Search.Cookies,
	}

	if c.Search.RotateUserAgents {
		order, err := useragent.ParseOrder(c.Search.UserAgentOrder)
		if err != nil {
			return serp.GoogleConfig{}, err
		}
		gc.UserAgents = useragent.NewRotator(c.Search.UserAgents, order)
	}

	if len(c.Search.Proxies) > 0 || c.Search.ProxyFile != "" {
		pool := proxy.NewPool(proxy.Config{})
		if err := pool.Add(c.Search.Proxies...); err != nil {
			return serp.GoogleConfig{}, err
		}
		if c.Search.ProxyFile != "" {
			if err := pool.LoadFile(c.Search.ProxyFile); err != nil {
				return serp.GoogleConfig{}, err
			}
		}
		gc.Proxies = pool
	}
	return gc, nil
}

// Extractor returns the result-link extractor, chained with the anchor
// fallback when enabled.
func (c *Config) Extractor() (extract.Extractor, error) {
	sel, err := extract.NewSelectorExtractor(c.Search.Selector)
	if err != nil {
		return nil, err
	}
	if !c.Search.Fallback {
		return sel, nil
	}
	return extract.Chain{sel, extract.NewAnchorExtractor()}, nil
}

// Policy returns the inter-query pacing. A zero delay disables pacing; a
// positive jitter spaces queries one Delay apart on average.
func (c *Config) Policy() ratelimit.Policy {
	switch {
	case c.Delay <= 0:
		return ratelimit.None{}
	case c.Jitter > 0:
		return ratelimit.NewLimiter(float64(time.Second)/float64(c.Delay), c.Jitter)
	default:
		return ratelimit.NewDelay(c.Delay)
	}
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
