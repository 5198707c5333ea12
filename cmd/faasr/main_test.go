package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dekkov/FaaSr-cli/internal/workflow"
)

const cliWorkflow = `{
  "FunctionInvoke": "start",
  "FunctionList": {"start": {"FaaSServer": "My_GitHub_Account"}},
  "ComputeServers": {
    "My_GitHub_Account": {"FaaSType": "GitHubActions", "UserName": "acme", "ActionRepoName": "wf", "Branch": "main"}
  },
  "DataStores": {"My_Minio_Bucket": {"AccessKey": "", "SecretKey": ""}}
}`

func writeWorkflow(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflow.json")
	if err := os.WriteFile(path, []byte(cliWorkflow), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, logLevel, logFormat = "", "", ""
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func runSplit(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	configPath, logLevel, logFormat = "", "", ""
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestPayloadCommandMasksForGitHub(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_cli_live")
	t.Setenv("MINIO_ACCESS_KEY", "minio-cli-live")

	out, err := run(t, "payload", "--workflow-file", writeWorkflow(t))
	if err != nil {
		t.Fatalf("payload: %v\n%s", err, out)
	}
	if strings.Contains(out, "ghp_cli_live") || strings.Contains(out, "minio-cli-live") {
		t.Fatalf("masked payload leaked a credential:\n%s", out)
	}
	var doc workflow.Document
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	srv, _ := doc.Server("My_GitHub_Account")
	if srv.Get(workflow.FieldToken) != "My_GitHub_Account_TOKEN" {
		t.Fatalf("Token = %q", srv.Get(workflow.FieldToken))
	}
}

func TestPayloadCommandRejectsBadMode(t *testing.T) {
	if _, err := run(t, "payload", "-w", writeWorkflow(t), "--mode", "plain"); err == nil {
		t.Fatal("expected invalid mode error")
	}
}

func TestTriggerCommandGitHub(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	t.Setenv("GITHUB_TOKEN", "ghp_cli_live")
	t.Setenv("FAASR_GITHUB_API_URL", srv.URL)

	out, err := run(t, "trigger", "-w", writeWorkflow(t))
	if err != nil {
		t.Fatalf("trigger: %v\n%s", err, out)
	}
	if auth != "token ghp_cli_live" {
		t.Fatalf("Authorization = %q", auth)
	}
	if !strings.Contains(out, "Status:    204") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestTriggerCommandUnknownFunction(t *testing.T) {
	out, err := run(t, "trigger", "-w", writeWorkflow(t), "--function", "nope")
	if err == nil || !strings.Contains(err.Error(), "unknown_function") {
		t.Fatalf("expected unknown_function error, got %v\n%s", err, out)
	}
}

func TestSecretEncryptRoundTrip(t *testing.T) {
	key, err := run(t, "secret", "keygen")
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	t.Setenv("FAASR_MASTER_KEY", strings.TrimSpace(key))

	enc, err := run(t, "secret", "encrypt", "ghp_encrypted")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	enc = strings.TrimSpace(enc)
	if !strings.HasPrefix(enc, "$ENC:") {
		t.Fatalf("expected $ENC: value, got %q", enc)
	}

	t.Setenv("GITHUB_TOKEN", enc)
	out, err := run(t, "payload", "-w", writeWorkflow(t), "--mode", "inject")
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if !strings.Contains(out, `"Token": "ghp_encrypted"`) {
		t.Fatalf("expected decrypted token in inject payload:\n%s", out)
	}
}

const lambdaWorkflow = `{
  "FunctionInvoke": "start",
  "FunctionList": {"start": {"FaaSServer": "My_Lambda_Account"}},
  "ComputeServers": {"My_Lambda_Account": {"FaaSType": "Lambda", "Region": "us-west-2"}}
}`

func TestPayloadCommandWarnsForBackendInject(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIACLILIVE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "aws-cli-secret")
	path := filepath.Join(t.TempDir(), "workflow.json")
	if err := os.WriteFile(path, []byte(lambdaWorkflow), 0644); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, err := runSplit(t, "payload", "-w", path)
	if err != nil {
		t.Fatalf("payload: %v\n%s", err, stderr)
	}
	if !strings.Contains(stdout, "AKIACLILIVE") {
		t.Fatalf("expected injected Lambda key in payload:\n%s", stdout)
	}
	if !strings.Contains(stderr, "live credentials") {
		t.Fatalf("expected live-credential warning on stderr, got %q", stderr)
	}
}

func TestPayloadCommandNoWarningWhenMasked(t *testing.T) {
	_, stderr, err := runSplit(t, "payload", "-w", writeWorkflow(t))
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if strings.Contains(stderr, "live credentials") {
		t.Fatalf("unexpected warning for masked payload: %q", stderr)
	}
}
