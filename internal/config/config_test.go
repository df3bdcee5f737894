package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asad/sasfetch/internal/apperr"
)

const testSAS = "https://acct.blob.core.windows.net/reports?sv=2022-11-02&sp=rl&sig=abc"

// clearEnv blanks every variable Load reads. Empty values are ignored by Load.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BASE_SAS_URL", "OUTPUT_DIR", "LOG_LEVEL", "LOG_FORMAT", "DATE_SOURCE",
		"DATE_LAYOUT", "DATE_METADATA_KEY", "CONNECT_TIMEOUT", "READ_TIMEOUT", "PAGE_SIZE",
	} {
		t.Setenv(key, "")
	}
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(Options{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)

	assert.Empty(t, cfg.SASURL)
	assert.Equal(t, "downloads", cfg.OutputDir)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "modified", cfg.DateSource)
	assert.Equal(t, "2006-01-02", cfg.DateLayout)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 120*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 0, cfg.PageSize)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, `# reports container
BASE_SAS_URL="`+testSAS+`"
DATE_SOURCE=name
CONNECT_TIMEOUT=5s
PAGE_SIZE=250
`)

	cfg, err := Load(Options{EnvFile: path})
	require.NoError(t, err)

	assert.Equal(t, testSAS, cfg.SASURL)
	assert.Equal(t, "name", cfg.DateSource)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 250, cfg.PageSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NumericSettings(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		connect  time.Duration
		read     time.Duration
		pageSize int
	}{
		{"bare seconds", map[string]string{"CONNECT_TIMEOUT": "10", "READ_TIMEOUT": " 90 "}, 10 * time.Second, 90 * time.Second, 0},
		{"durations", map[string]string{"CONNECT_TIMEOUT": "1500ms", "READ_TIMEOUT": "2m"}, 1500 * time.Millisecond, 2 * time.Minute, 0},
		{"page size", map[string]string{"PAGE_SIZE": "500"}, 10 * time.Second, 120 * time.Second, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load(Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.connect, cfg.ConnectTimeout)
			assert.Equal(t, tt.read, cfg.ReadTimeout)
			assert.Equal(t, tt.pageSize, cfg.PageSize)
		})
	}
}

func TestLoad_InvalidNumericSettings(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"timeout word", "CONNECT_TIMEOUT=soon\n", "CONNECT_TIMEOUT"},
		{"timeout bad unit", "READ_TIMEOUT=10 parsecs\n", "READ_TIMEOUT"},
		{"page size word", "PAGE_SIZE=lots\n", "PAGE_SIZE"},
		{"page size fraction", "PAGE_SIZE=2.5\n", "PAGE_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(Options{EnvFile: writeEnvFile(t, tt.content)})
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindConfiguration), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_EnvironmentBeatsEnvFile(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, "BASE_SAS_URL=https://file.blob.core.windows.net/c?sig=x\n")
	t.Setenv("BASE_SAS_URL", testSAS)

	cfg, err := Load(Options{EnvFile: path})
	require.NoError(t, err)
	assert.Equal(t, testSAS, cfg.SASURL)
}

func TestLoad_FlagBeatsEverything(t *testing.T) {
	clearEnv(t)
	t.Setenv("BASE_SAS_URL", "https://env.blob.core.windows.net/c?sig=x")
	t.Setenv("OUTPUT_DIR", "from-env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("sas-url", "", "")
	flags.StringP("output", "o", "downloads", "")
	require.NoError(t, flags.Parse([]string{"--sas-url", testSAS}))

	cfg, err := Load(Options{
		Flags:    flags,
		FlagKeys: map[string]string{KeySASURL: "sas-url", KeyOutputDir: "output", KeyLogLevel: "log-level"},
	})
	require.NoError(t, err)

	assert.Equal(t, testSAS, cfg.SASURL)
	// Unchanged flags do not shadow the environment.
	assert.Equal(t, "from-env", cfg.OutputDir)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			SASURL:          testSAS,
			OutputDir:       "downloads",
			DateSource:      "modified",
			DateLayout:      "2006-01-02",
			DateMetadataKey: "report_date",
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing SAS URL", func(c *Config) { c.SASURL = "" }},
		{"relative URL", func(c *Config) { c.SASURL = "reports?sig=abc" }},
		{"ftp scheme", func(c *Config) { c.SASURL = "ftp://acct/reports?sig=abc" }},
		{"no container", func(c *Config) { c.SASURL = "https://acct.blob.core.windows.net/?sig=abc" }},
		{"empty output", func(c *Config) { c.OutputDir = "" }},
		{"unknown date source", func(c *Config) { c.DateSource = "etag" }},
		{"metadata without key", func(c *Config) { c.DateSource = "metadata"; c.DateMetadataKey = "" }},
		{"name without layout", func(c *Config) { c.DateSource = "name"; c.DateLayout = "" }},
		{"negative timeout", func(c *Config) { c.ReadTimeout = -time.Second }},
		{"page size too large", func(c *Config) { c.PageSize = 5001 }},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindConfiguration), "got %v", err)
		})
	}
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "https://acct.blob.core.windows.net/reports", Redact(testSAS))
	cfg := &Config{SASURL: testSAS, OutputDir: "out", DateSource: "modified"}
	assert.NotContains(t, cfg.String(), "sig=")
}
