package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dekkov/FaaSr-cli/internal/credentials"
	"github.com/dekkov/FaaSr-cli/internal/dispatch"
	"github.com/dekkov/FaaSr-cli/internal/observability"
	"github.com/dekkov/FaaSr-cli/internal/payload"
)

// Duration is a time.Duration that unmarshals from JSON strings such as "30s".
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("duration must be a string or nanoseconds: %s", b)
		}
		*d = Duration(n)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// GitHubConfig holds GitHub API settings
type GitHubConfig struct {
	APIURL     string `json:"api_url"`
	APIVersion string `json:"api_version"`
}

// HTTPConfig holds outbound HTTP settings
type HTTPConfig struct {
	Timeout Duration `json:"timeout"`
}

// LambdaConfig holds AWS Lambda settings
type LambdaConfig struct {
	DefaultRegion string `json:"default_region"`
}

// CredentialsConfig names the environment variables credentials come from
type CredentialsConfig struct {
	Env          credentials.EnvNames `json:"env"`
	MasterKeyEnv string               `json:"master_key_env"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	File   string `json:"file"`
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Namespace   string `json:"namespace"`
	Pushgateway string `json:"pushgateway"`
	Job         string `json:"job"`
}

// Config is the central configuration struct
type Config struct {
	GitHub      GitHubConfig         `json:"github"`
	HTTP        HTTPConfig           `json:"http"`
	Lambda      LambdaConfig         `json:"lambda"`
	ObjectStore string               `json:"object_store"`
	Credentials CredentialsConfig    `json:"credentials"`
	Log         LogConfig            `json:"log"`
	Telemetry   observability.Config `json:"telemetry"`
	Metrics     MetricsConfig        `json:"metrics"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			APIURL:     dispatch.DefaultGitHubAPIURL,
			APIVersion: dispatch.DefaultGitHubAPIVersion,
		},
		HTTP: HTTPConfig{
			Timeout: Duration(dispatch.DefaultTimeout),
		},
		Lambda: LambdaConfig{
			DefaultRegion: dispatch.DefaultLambdaRegion,
		},
		ObjectStore: payload.DefaultObjectStore,
		Credentials: CredentialsConfig{
			Env:          credentials.DefaultEnvNames(),
			MasterKeyEnv: "FAASR_MASTER_KEY",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: observability.Config{
			Exporter:    "otlp-http",
			Endpoint:    "localhost:4318",
			ServiceName: "faasr",
			SampleRate:  1.0,
		},
		Metrics: MetricsConfig{
			Namespace: "faasr",
			Job:       "faasr_trigger",
		},
	}
}

// LoadFromFile loads configuration from a JSON file over the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv applies FAASR_* environment variable overrides to the config
func LoadFromEnv(cfg *Config) {
	applyEnv(cfg, os.LookupEnv)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	str("FAASR_GITHUB_API_URL", &cfg.GitHub.APIURL)
	str("FAASR_GITHUB_API_VERSION", &cfg.GitHub.APIVersion)
	str("FAASR_LAMBDA_DEFAULT_REGION", &cfg.Lambda.DefaultRegion)
	str("FAASR_OBJECT_STORE", &cfg.ObjectStore)
	str("FAASR_LOG_LEVEL", &cfg.Log.Level)
	str("FAASR_LOG_FORMAT", &cfg.Log.Format)
	str("FAASR_LOG_FILE", &cfg.Log.File)
	str("FAASR_OTEL_ENDPOINT", &cfg.Telemetry.Endpoint)
	str("FAASR_PUSHGATEWAY", &cfg.Metrics.Pushgateway)

	if v, ok := lookup("FAASR_HTTP_TIMEOUT"); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.Timeout = Duration(d)
		}
	}
	if v, ok := lookup("FAASR_TRACING"); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Telemetry.Enabled = b
		}
	}
}
