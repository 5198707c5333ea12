package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dekkov/FaaSr-cli/internal/credentials"
	"github.com/dekkov/FaaSr-cli/internal/payload"
	"github.com/dekkov/FaaSr-cli/internal/workflow"
)

const (
	DefaultGitHubAPIURL     = "https://api.github.com"
	DefaultGitHubAPIVersion = "2022-11-28"
)

// GitHubConfig configures the GitHub Actions backend.
type GitHubConfig struct {
	APIURL     string
	APIVersion string
}

// GitHubActions triggers workflow_dispatch events. The triggered workflow
// is named after the function ({function}.yml) and receives the masked
// payload as its PAYLOAD input.
type GitHubActions struct {
	cfg    GitHubConfig
	creds  credentials.Source
	client *http.Client
}

// NewGitHubActions creates the backend. A nil client gets a traced client
// with the default timeout.
func NewGitHubActions(cfg GitHubConfig, creds credentials.Source, client *http.Client) *GitHubActions {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultGitHubAPIURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultGitHubAPIVersion
	}
	if client == nil {
		client = newHTTPClient(DefaultTimeout, false)
	}
	return &GitHubActions{cfg: cfg, creds: creds, client: client}
}

func (g *GitHubActions) Type() workflow.FaaSType { return workflow.FaaSTypeGitHubActions }

// Mode is Mask: dispatch inputs show up in run logs, so secrets are
// referenced by repository secret name only.
func (g *GitHubActions) Mode() payload.Mode { return payload.Mask }

type githubDispatch struct {
	Ref    string            `json:"ref"`
	Inputs map[string]string `json:"inputs"`
}

// DispatchURL returns the workflow_dispatch endpoint for function.
func (g *GitHubActions) DispatchURL(user, repo, function string) string {
	return fmt.Sprintf("%s/repos/%s/%s/actions/workflows/%s.yml/dispatches",
		g.cfg.APIURL, url.PathEscape(user), url.PathEscape(repo), url.PathEscape(function))
}

func (g *GitHubActions) Trigger(ctx context.Context, target Target, body workflow.Document) (*Result, error) {
	srv := target.Server
	user := srv.Get(workflow.FieldUserName)
	repo := srv.Get(workflow.FieldActionRepoName)
	branch := srv.Get(workflow.FieldBranch)
	if err := requireFields(target, workflow.FieldUserName, workflow.FieldActionRepoName, workflow.FieldBranch); err != nil {
		return nil, err
	}

	// The outer request authenticates with the live token; only the
	// payload contents are masked.
	token := g.creds.Resolve().GitHubToken
	if token == "" {
		return nil, &Error{Kind: KindMissingCredential, Function: target.Function, Server: target.ServerName,
			Msg: "GitHub token is required to authorize the dispatch"}
	}

	inner, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Kind: KindTriggerFailed, Function: target.Function, Msg: "marshal payload", Err: err}
	}
	reqBody, err := json.Marshal(githubDispatch{
		Ref:    branch,
		Inputs: map[string]string{"PAYLOAD": string(inner)},
	})
	if err != nil {
		return nil, &Error{Kind: KindTriggerFailed, Function: target.Function, Msg: "marshal dispatch request", Err: err}
	}

	endpoint := g.DispatchURL(user, repo, target.Function)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, &Error{Kind: KindTriggerFailed, Function: target.Function, Msg: "create request", Err: err}
	}
	req.Header.Set("Authorization", "token "+token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("X-GitHub-Api-Version", g.cfg.APIVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTriggerFailed, Function: target.Function, Msg: "POST " + endpoint, Err: err}
	}
	defer resp.Body.Close()
	respBody := readBody(resp.Body)

	if resp.StatusCode != http.StatusNoContent {
		return nil, &Error{Kind: KindTriggerFailed, Function: target.Function, Server: target.ServerName,
			StatusCode: resp.StatusCode, Body: respBody}
	}
	return &Result{StatusCode: resp.StatusCode, Response: respBody, PayloadBytes: len(inner)}, nil
}
