// Package credentials resolves the secrets a dispatch needs from the
// process environment. Resolution never fails: a missing value is simply
// empty, and only the backend that requires it reports the absence.
package credentials

import (
	"os"

	"github.com/dekkov/FaaSr-cli/internal/logging"
	"github.com/dekkov/FaaSr-cli/internal/secrets"
)

// Credentials is the set of secrets known to the trigger. Empty fields
// are absent. Values live for one dispatch and are never persisted.
type Credentials struct {
	GitHubToken     string
	StoreAccessKey  string
	StoreSecretKey  string
	OpenWhiskAPIKey string
	LambdaAccessKey string
	LambdaSecretKey string
}

// Source resolves credentials.
type Source interface {
	Resolve() Credentials
}

// Static is a Source returning a fixed credential set.
type Static Credentials

func (s Static) Resolve() Credentials { return Credentials(s) }

// EnvNames maps each credential to the environment variable it is read from.
type EnvNames struct {
	GitHubToken     string `json:"github_token"`
	StoreAccessKey  string `json:"store_access_key"`
	StoreSecretKey  string `json:"store_secret_key"`
	OpenWhiskAPIKey string `json:"openwhisk_api_key"`
	LambdaAccessKey string `json:"lambda_access_key"`
	LambdaSecretKey string `json:"lambda_secret_key"`
}

// DefaultEnvNames returns the conventional variable names.
func DefaultEnvNames() EnvNames {
	return EnvNames{
		GitHubToken:     "GITHUB_TOKEN",
		StoreAccessKey:  "MINIO_ACCESS_KEY",
		StoreSecretKey:  "MINIO_SECRET_KEY",
		OpenWhiskAPIKey: "OW_API_KEY",
		LambdaAccessKey: "AWS_ACCESS_KEY_ID",
		LambdaSecretKey: "AWS_SECRET_ACCESS_KEY",
	}
}

// EnvSource reads credentials from environment variables. Values in
// $ENC: form are decrypted when a cipher is configured.
type EnvSource struct {
	names  EnvNames
	lookup func(string) (string, bool)
	cipher *secrets.Cipher
}

// Option configures an EnvSource.
type Option func(*EnvSource)

// WithLookup replaces os.LookupEnv, letting tests supply a fixed environment.
func WithLookup(fn func(string) (string, bool)) Option {
	return func(s *EnvSource) { s.lookup = fn }
}

// WithCipher enables decryption of $ENC: values.
func WithCipher(c *secrets.Cipher) Option {
	return func(s *EnvSource) { s.cipher = c }
}

// NewEnvSource creates an EnvSource reading the given variable names.
func NewEnvSource(names EnvNames, opts ...Option) *EnvSource {
	s := &EnvSource{names: names, lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *EnvSource) Resolve() Credentials {
	return Credentials{
		GitHubToken:     s.get(s.names.GitHubToken),
		StoreAccessKey:  s.get(s.names.StoreAccessKey),
		StoreSecretKey:  s.get(s.names.StoreSecretKey),
		OpenWhiskAPIKey: s.get(s.names.OpenWhiskAPIKey),
		LambdaAccessKey: s.get(s.names.LambdaAccessKey),
		LambdaSecretKey: s.get(s.names.LambdaSecretKey),
	}
}

func (s *EnvSource) get(name string) string {
	if name == "" {
		return ""
	}
	v, ok := s.lookup(name)
	if !ok || v == "" {
		return ""
	}
	if !secrets.IsEncrypted(v) {
		return v
	}
	if s.cipher == nil {
		logging.Op().Warn("encrypted credential but no master key configured", "env", name)
		return ""
	}
	plain, err := s.cipher.Decrypt(v)
	if err != nil {
		logging.Op().Warn("cannot decrypt credential, treating as absent", "env", name, "error", err)
		return ""
	}
	return plain
}
