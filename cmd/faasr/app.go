package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/dekkov/FaaSr-cli/internal/config"
	"github.com/dekkov/FaaSr-cli/internal/credentials"
	"github.com/dekkov/FaaSr-cli/internal/dispatch"
	"github.com/dekkov/FaaSr-cli/internal/logging"
	"github.com/dekkov/FaaSr-cli/internal/metrics"
	"github.com/dekkov/FaaSr-cli/internal/observability"
	"github.com/dekkov/FaaSr-cli/internal/payload"
	"github.com/dekkov/FaaSr-cli/internal/secrets"
	"github.com/dekkov/FaaSr-cli/internal/workflow"
)

// loadConfig resolves the effective config: defaults, then the config
// file, then FAASR_* variables, then flags.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(configPath); err != nil {
			return nil, err
		}
	}
	config.LoadFromEnv(cfg)
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	logging.InitStructured(cfg.Log.Format, cfg.Log.Level)
	return cfg, nil
}

func credentialSource(cfg *config.Config) credentials.Source {
	var opts []credentials.Option
	if name := cfg.Credentials.MasterKeyEnv; name != "" {
		if key := os.Getenv(name); key != "" {
			c, err := secrets.NewCipher(key)
			if err != nil {
				logging.Op().Warn("ignoring invalid master key", "env", name, "error", err)
			} else {
				opts = append(opts, credentials.WithCipher(c))
			}
		}
	}
	return credentials.NewEnvSource(cfg.Credentials.Env, opts...)
}

func newDispatcher(cfg *config.Config, creds credentials.Source, extra ...dispatch.Option) *dispatch.Dispatcher {
	timeout := time.Duration(cfg.HTTP.Timeout)
	ghClient := &http.Client{
		Timeout:   timeout,
		Transport: observability.NewTransport(nil),
	}

	opts := []dispatch.Option{
		dispatch.WithBackend(dispatch.NewGitHubActions(dispatch.GitHubConfig{
			APIURL:     cfg.GitHub.APIURL,
			APIVersion: cfg.GitHub.APIVersion,
		}, creds, ghClient)),
		dispatch.WithBackend(dispatch.NewLambda(creds, cfg.Lambda.DefaultRegion, nil)),
		dispatch.WithBackend(dispatch.NewOpenWhisk(timeout)),
	}
	return dispatch.New(payload.NewBuilder(creds, cfg.ObjectStore), append(opts, extra...)...)
}

func newMetrics(cfg *config.Config) *metrics.PrometheusMetrics {
	if cfg.Metrics.Pushgateway == "" {
		return nil
	}
	return metrics.NewPrometheus(cfg.Metrics.Namespace, nil)
}

// loadWorkflow reads the document and picks the function to trigger.
func loadWorkflow(path, function string) (workflow.Document, string, error) {
	doc, err := workflow.Load(path)
	if err != nil {
		return nil, "", err
	}
	if function != "" {
		doc[workflow.KeyFunctionInvoke] = function
	}
	if err := doc.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid workflow %s: %w", path, err)
	}
	return doc, doc.FunctionInvoke(), nil
}
