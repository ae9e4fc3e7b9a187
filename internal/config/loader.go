// Package config loads run settings from an optional file, the environment
// and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/wesleyorama2/volley/internal/logging"
	"github.com/wesleyorama2/volley/internal/preflight"
)

// EnvPrefix is prepended to every environment override, so run.vus is
// read from VOLLEY_RUN_VUS.
const EnvPrefix = "VOLLEY"

// Settings is the root of the configuration tree.
type Settings struct {
	Target     TargetSettings      `mapstructure:"target"`
	Run        RunSettings         `mapstructure:"run"`
	Scenario   ScenarioSettings    `mapstructure:"scenario"`
	Thresholds map[string][]string `mapstructure:"thresholds"`
	HTTP       HTTPSettings        `mapstructure:"http"`
	Preflight  preflight.Config    `mapstructure:"preflight"`
	Report     ReportSettings      `mapstructure:"report"`
	Metrics    MetricsSettings     `mapstructure:"metrics"`
	Stub       StubSettings        `mapstructure:"stub"`
	Logger     logging.Config      `mapstructure:"logger"`
}

// TargetSettings describes the system under test.
type TargetSettings struct {
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// RunSettings describes the load shape. Durations accept Go syntax
// ("30s", "1m30s") or bare seconds ("30").
type RunSettings struct {
	Name         string `mapstructure:"name"`
	VUs          int    `mapstructure:"vus"`
	Duration     string `mapstructure:"duration"`
	Iterations   int64  `mapstructure:"iterations"`
	GracefulStop string `mapstructure:"graceful_stop"`
	Scenario     string `mapstructure:"scenario"`
	Profile      string `mapstructure:"profile"`
}

// ScenarioSettings tunes the built-in scenarios.
type ScenarioSettings struct {
	ThinkMin  time.Duration `mapstructure:"think_min"`
	ThinkMax  time.Duration `mapstructure:"think_max"`
	AuditLogs bool          `mapstructure:"audit_logs"`

	// ProductPath and AuditPath are appended to target.url. A target.url
	// that already ends in ProductPath is the product collection itself.
	ProductPath string `mapstructure:"product_path"`
	AuditPath   string `mapstructure:"audit_path"`
}

// HTTPSettings configures the shared connection pool.
type HTTPSettings struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	InsecureSkipVerify  bool          `mapstructure:"insecure_skip_verify"`
	MaxRPS              float64       `mapstructure:"max_rps"`
}

// ReportSettings controls summary output.
type ReportSettings struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"`
	NoFile bool   `mapstructure:"no_file"`
}

// MetricsSettings controls the Prometheus endpoint. Empty Addr disables it.
type MetricsSettings struct {
	Addr string `mapstructure:"addr"`
}

// StubSettings configures the local fake Product API.
type StubSettings struct {
	Addr      string        `mapstructure:"addr"`
	ErrorRate float64       `mapstructure:"error_rate"`
	Latency   time.Duration `mapstructure:"latency"`
}

// Load reads settings. configFile may be empty, in which case volley.yaml
// is looked up in the working directory and ./configs; a missing file is
// not an error. flags, when non-nil, override everything else; bindings
// maps a settings key to the flag name.
func Load(configFile string, flags *pflag.FlagSet, bindings map[string]string) (*Settings, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("volley")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Unprefixed URL and TYPE are also honoured
	if err := v.BindEnv("target.url", EnvPrefix+"_TARGET_URL", "URL"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("run.profile", EnvPrefix+"_RUN_PROFILE", "TYPE"); err != nil {
		return nil, err
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if flags != nil {
		for key, name := range bindings {
			flag := flags.Lookup(name)
			if flag == nil {
				return nil, fmt.Errorf("unknown flag %q bound to %s", name, key)
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("binding flag %q: %w", name, err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("target.url", "http://localhost:8080")
	v.SetDefault("run.vus", 10)
	v.SetDefault("run.duration", "5s")
	v.SetDefault("run.iterations", 0)
	v.SetDefault("run.graceful_stop", "0s")
	v.SetDefault("run.scenario", ScenarioProduct)
	v.SetDefault("run.profile", "aot")
	v.SetDefault("scenario.think_min", 100*time.Millisecond)
	v.SetDefault("scenario.think_max", 600*time.Millisecond)
	v.SetDefault("scenario.audit_logs", false)
	v.SetDefault("scenario.product_path", "/api/products")
	v.SetDefault("scenario.audit_path", "/api/audit-logs")
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.max_idle_conns_per_host", 100)
	v.SetDefault("http.max_rps", 0)
	v.SetDefault("preflight.enabled", false)
	v.SetDefault("preflight.path", "")
	v.SetDefault("preflight.attempts", 10)
	v.SetDefault("preflight.interval", 500*time.Millisecond)
	v.SetDefault("preflight.max_interval", 5*time.Second)
	v.SetDefault("report.dir", "./report")
	v.SetDefault("report.format", FormatText)
	v.SetDefault("stub.addr", ":8080")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
}

// ParseDurationString parses a duration in Go syntax or as integer seconds.
func ParseDurationString(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}

	var seconds int
	if _, err := fmt.Sscanf(s, "%d", &seconds); err == nil && fmt.Sprint(seconds) == strings.TrimSpace(s) {
		return time.Duration(seconds) * time.Second, nil
	}

	return 0, fmt.Errorf("invalid duration format: %s", s)
}
