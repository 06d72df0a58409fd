package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/ffn-meets/internal/logger"
	"github.com/pfrederiksen/ffn-meets/internal/meet"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ffn-meets.json5", `{
		// comments and trailing commas are fine
		liveBaseUrl: "http://live.test/cgi-bin",
		timeout: "10s",
		batchSize: 4,
		genderOrder: ["M", "F"],
	}`)
	writeFile(t, dir, "ffn-meets.local.json5", `{
		batchSize: 8,
		cacheTtl: 90,
	}`)
	t.Setenv("FFN_DEFAULT_LANE", "4")
	t.Setenv("FFN_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://live.test/cgi-bin", cfg.LiveBaseURL)
	assert.Equal(t, Duration(10*time.Second), cfg.Timeout)
	assert.Equal(t, 8, cfg.BatchSize)
	assert.Equal(t, Duration(90*time.Second), cfg.CacheTTL)
	assert.Equal(t, 4, cfg.DefaultLane)
	assert.Equal(t, []string{"M", "F"}, cfg.GenderOrder)
	assert.Equal(t, logger.LevelDebug, cfg.Level())

	// Untouched keys keep their defaults.
	def := Default()
	assert.Equal(t, def.ArchiveBaseURL, cfg.ArchiveBaseURL)
	assert.Equal(t, def.UserAgent, cfg.UserAgent)
	assert.Equal(t, def.QualificationTTL, cfg.QualificationTTL)
	assert.Equal(t, "79", cfg.QualificationGrid)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ffn-meets.json5", `{batchSize: 4, disableCache: false}`)
	t.Setenv("FFN_BATCH_SIZE", "2")
	t.Setenv("FFN_DISABLE_CACHE", "true")
	t.Setenv("FFN_GENDER_ORDER", "m, f")
	t.Setenv("FFN_TIMEOUT", "1m")
	t.Setenv("FFN_REQUESTS_PER_SECOND", "2.5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.BatchSize)
	assert.True(t, cfg.DisableCache)
	assert.Equal(t, []string{"M", "F"}, cfg.GenderOrder)
	assert.Equal(t, Duration(time.Minute), cfg.Timeout)
	assert.Equal(t, 2.5, cfg.RequestsPerSecond)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{name: "bad lane", content: `{defaultLane: 12}`},
		{name: "bad gender", content: `{genderOrder: ["X"]}`},
		{name: "bad url", content: `{liveBaseUrl: "not a url"}`},
		{name: "bad level", content: `{logLevel: "loud"}`},
		{name: "bad duration", content: `{timeout: "soon"}`},
		{name: "bad syntax", content: `{batchSize: }`},
		{name: "bad env", content: `{}`, env: map[string]string{"FFN_BATCH_SIZE": "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeFile(t, dir, "case.json5", tt.content)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json5"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadDefaultFileIsOptional(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestReadFilesLocalOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ffn-meets.local.json5", `{userAgent: "bot/1.0"}`)

	cfg, err := ReadFiles(filepath.Join(dir, "ffn-meets.json5"))
	require.NoError(t, err)
	assert.Equal(t, "bot/1.0", cfg.UserAgent)
}

func TestScrapersOptions(t *testing.T) {
	cfg := Default()
	cfg.GenderOrder = []string{"M", "F"}
	cfg.DefaultLane = 3

	opts := cfg.Scrapers()
	assert.Equal(t, "https://www.liveffn.com/cgi-bin", opts.Endpoints.Live)
	assert.Equal(t, 30*time.Second, opts.Fetcher.Timeout)
	assert.Equal(t, 3, opts.DefaultLane)
	assert.Equal(t, []meet.Gender{meet.GenderMale, meet.GenderFemale}, opts.Qualification.GenderOrder)
	assert.Equal(t, time.Hour, opts.QualificationTTL)
}
