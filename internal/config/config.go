// Package config loads ffn-meets settings.
//
// Settings come from, in increasing priority: built-in defaults, the
// config file, its ".local" sibling, and FFN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"github.com/titanous/json5"

	"github.com/pfrederiksen/ffn-meets/internal/cache"
	"github.com/pfrederiksen/ffn-meets/internal/logger"
	"github.com/pfrederiksen/ffn-meets/internal/meet"
	"github.com/pfrederiksen/ffn-meets/internal/qualification"
	"github.com/pfrederiksen/ffn-meets/internal/scraper"
	"github.com/pfrederiksen/ffn-meets/internal/scrapers"
	"github.com/pfrederiksen/ffn-meets/internal/series"
	"github.com/pfrederiksen/ffn-meets/internal/swimmer"
)

// DefaultFile is read when no path is given.
const DefaultFile = "ffn-meets.json5"

// Duration is a time.Duration read from "30s" style strings or from a
// number of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"'`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := parseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(time.Duration(d).String())), nil
}

func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return v, nil
}

// Config holds every tunable of the scrapers and the CLI.
type Config struct {
	LiveBaseURL       string   `json:"liveBaseUrl" validate:"url"`
	ArchiveBaseURL    string   `json:"archiveBaseUrl" validate:"url"`
	UserAgent         string   `json:"userAgent" validate:"required"`
	Timeout           Duration `json:"timeout" validate:"gt=0"`
	RequestsPerSecond float64  `json:"requestsPerSecond" validate:"gte=0"`
	Burst             int      `json:"burst" validate:"gte=0"`

	CacheTTL         Duration `json:"cacheTtl" validate:"gt=0"`
	QualificationTTL Duration `json:"qualificationTtl" validate:"gt=0"`
	DisableCache     bool     `json:"disableCache"`

	BatchSize         int      `json:"batchSize" validate:"gt=0"`
	DefaultLane       int      `json:"defaultLane" validate:"min=1,max=10"`
	QualificationGrid string   `json:"qualificationGrid" validate:"required,numeric"`
	GenderOrder       []string `json:"genderOrder" validate:"min=1,dive,oneof=F M"`

	LogLevel string `json:"logLevel"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LiveBaseURL:       scraper.DefaultLiveBaseURL,
		ArchiveBaseURL:    scraper.DefaultArchiveBaseURL,
		UserAgent:         scraper.DefaultUserAgent,
		Timeout:           Duration(scraper.DefaultTimeout),
		CacheTTL:          Duration(cache.DefaultTTL),
		QualificationTTL:  Duration(qualification.DefaultTTL),
		BatchSize:         swimmer.DefaultBatchSize,
		DefaultLane:       series.DefaultLane,
		QualificationGrid: qualification.DefaultGrid,
		GenderOrder:       []string{"F", "M"},
		LogLevel:          "info",
	}
}

// Load reads path and its ".local" sibling, applies FFN_* variables and
// fills what is still unset with defaults. An empty path reads DefaultFile
// and tolerates its absence; an explicit path must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	cfg, err := ReadFiles(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		err = nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergo.Merge(&cfg, Default()); err != nil {
		return Config{}, fmt.Errorf("applying defaults: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ReadFiles merges name and name.local (e.g. ffn-meets.local.json5), the
// local file winning. It returns os.ErrNotExist when neither exists.
func ReadFiles(name string) (Config, error) {
	var out Config
	found := false

	if err := readInto(name, &out, &found); err != nil {
		return out, err
	}

	ext := filepath.Ext(name)
	local := strings.TrimSuffix(name, ext) + ".local" + ext
	var override Config
	foundLocal := false
	if err := readInto(local, &override, &foundLocal); err != nil {
		return out, err
	}
	if foundLocal {
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, err
		}
		logger.Debug("merged local config overrides", logger.Fields{"local": local})
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

func readInto(path string, cfg *Config, found *bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json5.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	*found = true
	return nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	str("FFN_LIVE_BASE_URL", &cfg.LiveBaseURL)
	str("FFN_ARCHIVE_BASE_URL", &cfg.ArchiveBaseURL)
	str("FFN_USER_AGENT", &cfg.UserAgent)
	str("FFN_QUALIFICATION_GRID", &cfg.QualificationGrid)
	str("FFN_LOG_LEVEL", &cfg.LogLevel)

	if v := os.Getenv("FFN_GENDER_ORDER"); v != "" {
		cfg.GenderOrder = nil
		for _, g := range strings.Split(v, ",") {
			cfg.GenderOrder = append(cfg.GenderOrder, strings.ToUpper(strings.TrimSpace(g)))
		}
	}

	for key, dst := range map[string]*Duration{
		"FFN_TIMEOUT":           &cfg.Timeout,
		"FFN_CACHE_TTL":         &cfg.CacheTTL,
		"FFN_QUALIFICATION_TTL": &cfg.QualificationTTL,
	} {
		if v := os.Getenv(key); v != "" {
			d, err := parseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = Duration(d)
		}
	}

	for key, dst := range map[string]*int{
		"FFN_BATCH_SIZE":   &cfg.BatchSize,
		"FFN_DEFAULT_LANE": &cfg.DefaultLane,
		"FFN_BURST":        &cfg.Burst,
	} {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv("FFN_REQUESTS_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("FFN_REQUESTS_PER_SECOND: %w", err)
		}
		cfg.RequestsPerSecond = f
	}
	if v := os.Getenv("FFN_DISABLE_CACHE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FFN_DISABLE_CACHE: %w", err)
		}
		cfg.DisableCache = b
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the log level.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Level returns the configured log level.
func (c Config) Level() logger.Level {
	l, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return logger.LevelInfo
	}
	return l
}

// Scrapers converts the settings to facade options.
func (c Config) Scrapers() scrapers.Options {
	order := make([]meet.Gender, 0, len(c.GenderOrder))
	for _, g := range c.GenderOrder {
		order = append(order, meet.Gender(g))
	}
	return scrapers.Options{
		Endpoints: scraper.Endpoints{Live: c.LiveBaseURL, Archive: c.ArchiveBaseURL},
		Fetcher: scraper.FetcherOptions{
			UserAgent:         c.UserAgent,
			Timeout:           time.Duration(c.Timeout),
			RequestsPerSecond: c.RequestsPerSecond,
			Burst:             c.Burst,
		},
		TTL:              time.Duration(c.CacheTTL),
		QualificationTTL: time.Duration(c.QualificationTTL),
		DisableCache:     c.DisableCache,
		BatchSize:        c.BatchSize,
		DefaultLane:      c.DefaultLane,
		Qualification: qualification.Options{
			Grid:        c.QualificationGrid,
			GenderOrder: order,
		},
	}
}
