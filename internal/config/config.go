package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/asad/sasfetch/internal/apperr"
)

// Keys shared by the env file, the process environment and flag bindings.
const (
	KeySASURL          = "base_sas_url"
	KeyOutputDir       = "output_dir"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyDateSource      = "date_source"
	KeyDateLayout      = "date_layout"
	KeyDateMetadataKey = "date_metadata_key"
	KeyConnectTimeout  = "connect_timeout"
	KeyReadTimeout     = "read_timeout"
	KeyPageSize        = "page_size"
)

// DefaultEnvFile is read from the working directory when present.
const DefaultEnvFile = ".env"

// Config holds the settings for one CLI invocation.
type Config struct {
	// SASURL is the full container URL including the SAS query string.
	SASURL string

	// OutputDir is where downloaded blobs are written.
	// Default: downloads
	OutputDir string

	// LogLevel controls the verbosity of logging (debug, info, warn, error).
	// Default: "warn"
	LogLevel string

	// LogFormat is "json" or "console".
	LogFormat string

	// DateSource selects where a blob's date comes from: modified, name or metadata.
	DateSource string

	// DateLayout is the Go time layout used for name and metadata dates.
	// Default: 2006-01-02
	DateLayout string

	// DateMetadataKey names the metadata entry read when DateSource is metadata.
	DateMetadataKey string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// PageSize is the maxresults value sent with each listing request. 0 leaves it to the service.
	PageSize int
}

// Options controls where Load looks for settings.
type Options struct {
	// EnvFile is a dotenv-style file. A missing file is not an error.
	EnvFile string

	// Flags, when set, override everything else for any flag the user changed.
	// Map keys are config keys, values are flag names.
	Flags    *pflag.FlagSet
	FlagKeys map[string]string
}

// Load resolves settings with precedence flag > environment > env file > default.
func Load(opts Options) (*Config, error) {
	v := viper.New()

	v.SetDefault(KeyOutputDir, "downloads")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "json")
	v.SetDefault(KeyDateSource, "modified")
	v.SetDefault(KeyDateLayout, "2006-01-02")
	v.SetDefault(KeyDateMetadataKey, "report_date")
	v.SetDefault(KeyConnectTimeout, 10*time.Second)
	v.SetDefault(KeyReadTimeout, 120*time.Second)
	v.SetDefault(KeyPageSize, 0)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.EnvFile != "" {
		if _, err := os.Stat(opts.EnvFile); err == nil {
			v.SetConfigFile(opts.EnvFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, apperr.Wrap(apperr.KindConfiguration, "read "+opts.EnvFile, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, apperr.Wrap(apperr.KindConfiguration, "stat "+opts.EnvFile, err)
		}
	}

	if opts.Flags != nil {
		for key, name := range opts.FlagKeys {
			flag := opts.Flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, apperr.Wrap(apperr.KindConfiguration, "bind flag "+name, err)
			}
		}
	}

	connectTimeout, err := durationSetting(v, KeyConnectTimeout)
	if err != nil {
		return nil, err
	}
	readTimeout, err := durationSetting(v, KeyReadTimeout)
	if err != nil {
		return nil, err
	}
	pageSize, err := intSetting(v, KeyPageSize)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SASURL:          strings.TrimSpace(v.GetString(KeySASURL)),
		OutputDir:       v.GetString(KeyOutputDir),
		LogLevel:        strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:       strings.ToLower(v.GetString(KeyLogFormat)),
		DateSource:      strings.ToLower(v.GetString(KeyDateSource)),
		DateLayout:      v.GetString(KeyDateLayout),
		DateMetadataKey: v.GetString(KeyDateMetadataKey),
		ConnectTimeout:  connectTimeout,
		ReadTimeout:     readTimeout,
		PageSize:        pageSize,
	}
	return cfg, nil
}

// durationSetting reads a timeout. A bare number is a count of seconds,
// anything else must be a Go duration such as 30s or 2m.
func durationSetting(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.Get(key)
	switch value := raw.(type) {
	case time.Duration:
		return value, nil
	case string:
		s := strings.TrimSpace(value)
		if secs, err := strconv.Atoi(s); err == nil {
			return time.Duration(secs) * time.Second, nil
		}
		d, err := cast.ToDurationE(s)
		if err != nil {
			return 0, apperr.New(apperr.KindConfiguration, "", "invalid %s %q: want seconds or a duration such as 30s", strings.ToUpper(key), value)
		}
		return d, nil
	default:
		secs, err := cast.ToIntE(raw)
		if err != nil {
			return 0, apperr.New(apperr.KindConfiguration, "", "invalid %s %v: want seconds or a duration such as 30s", strings.ToUpper(key), raw)
		}
		return time.Duration(secs) * time.Second, nil
	}
}

func intSetting(v *viper.Viper, key string) (int, error) {
	raw := v.Get(key)
	if s, ok := raw.(string); ok {
		raw = strings.TrimSpace(s)
	}
	n, err := cast.ToIntE(raw)
	if err != nil {
		return 0, apperr.New(apperr.KindConfiguration, "", "invalid %s %v: want a whole number", strings.ToUpper(key), v.Get(key))
	}
	return n, nil
}

// Validate performs basic validation on the configuration.
// Every failure is a configuration error.
func (c *Config) Validate() error {
	if c.SASURL == "" {
		return apperr.New(apperr.KindConfiguration, "", "no SAS URL found; set BASE_SAS_URL in .env or pass --sas-url")
	}
	if err := ValidateSASURL(c.SASURL); err != nil {
		return err
	}
	if c.OutputDir == "" {
		return apperr.New(apperr.KindConfiguration, "", "output directory cannot be empty")
	}
	switch c.DateSource {
	case "modified", "name", "metadata":
	default:
		return apperr.New(apperr.KindConfiguration, "", "invalid DATE_SOURCE %q (must be modified, name or metadata)", c.DateSource)
	}
	if c.DateSource != "modified" && c.DateLayout == "" {
		return apperr.New(apperr.KindConfiguration, "", "DATE_LAYOUT cannot be empty when DATE_SOURCE is %s", c.DateSource)
	}
	if c.DateSource == "metadata" && c.DateMetadataKey == "" {
		return apperr.New(apperr.KindConfiguration, "", "DATE_METADATA_KEY cannot be empty when DATE_SOURCE is metadata")
	}
	if c.ConnectTimeout < 0 || c.ReadTimeout < 0 {
		return apperr.New(apperr.KindConfiguration, "", "timeouts cannot be negative")
	}
	if c.PageSize < 0 || c.PageSize > 5000 {
		return apperr.New(apperr.KindConfiguration, "", "invalid PAGE_SIZE: %d (must be 0-5000)", c.PageSize)
	}
	return nil
}

// ValidateSASURL checks that raw is an absolute http(s) container URL.
func ValidateSASURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return apperr.Wrap(apperr.KindConfiguration, "parse SAS URL", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return apperr.New(apperr.KindConfiguration, "", "SAS URL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return apperr.New(apperr.KindConfiguration, "", "SAS URL has no host")
	}
	if strings.Trim(u.Path, "/") == "" {
		return apperr.New(apperr.KindConfiguration, "", "SAS URL has no container path")
	}
	return nil
}

// Redact strips the query string so the signature never reaches logs.
func Redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// String is used when the config is logged.
func (c *Config) String() string {
	return fmt.Sprintf("sas_url=%s output_dir=%s date_source=%s date_layout=%s page_size=%d",
		Redact(c.SASURL), c.OutputDir, c.DateSource, c.DateLayout, c.PageSize)
}
