package credentials

import (
	"testing"

	"github.com/dekkov/FaaSr-cli/internal/secrets"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestEnvSource_Resolve(t *testing.T) {
	env := map[string]string{
		"GITHUB_TOKEN":          "ghp_x",
		"MINIO_ACCESS_KEY":      "minio-a",
		"MINIO_SECRET_KEY":      "minio-s",
		"OW_API_KEY":            "user:pass",
		"AWS_ACCESS_KEY_ID":     "AKIA",
		"AWS_SECRET_ACCESS_KEY": "shh",
	}
	got := NewEnvSource(DefaultEnvNames(), WithLookup(lookupFrom(env))).Resolve()
	want := Credentials{
		GitHubToken:     "ghp_x",
		StoreAccessKey:  "minio-a",
		StoreSecretKey:  "minio-s",
		OpenWhiskAPIKey: "user:pass",
		LambdaAccessKey: "AKIA",
		LambdaSecretKey: "shh",
	}
	if got != want {
		t.Fatalf("Resolve() = %+v, want %+v", got, want)
	}
}

func TestEnvSource_MissingValuesAreEmpty(t *testing.T) {
	got := NewEnvSource(DefaultEnvNames(), WithLookup(lookupFrom(nil))).Resolve()
	if got != (Credentials{}) {
		t.Fatalf("expected empty credentials, got %+v", got)
	}
}

func TestEnvSource_DecryptsEncryptedValues(t *testing.T) {
	key, err := secrets.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	c, err := secrets.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	enc, err := c.Encrypt("ghp_secret")
	if err != nil {
		t.Fatal(err)
	}
	env := map[string]string{"GITHUB_TOKEN": enc, "OW_API_KEY": "$ENC:garbage"}

	got := NewEnvSource(DefaultEnvNames(), WithLookup(lookupFrom(env)), WithCipher(c)).Resolve()
	if got.GitHubToken != "ghp_secret" {
		t.Fatalf("GitHubToken = %q, want decrypted value", got.GitHubToken)
	}
	if got.OpenWhiskAPIKey != "" {
		t.Fatalf("undecryptable value should be absent, got %q", got.OpenWhiskAPIKey)
	}

	noKey := NewEnvSource(DefaultEnvNames(), WithLookup(lookupFrom(env))).Resolve()
	if noKey.GitHubToken != "" {
		t.Fatalf("encrypted value without cipher should be absent, got %q", noKey.GitHubToken)
	}
}

func TestStatic(t *testing.T) {
	s := Static{GitHubToken: "t"}
	if s.Resolve().GitHubToken != "t" {
		t.Fatal("Static should return its fields")
	}
}
