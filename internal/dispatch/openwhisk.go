package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dekkov/FaaSr-cli/internal/payload"
	"github.com/dekkov/FaaSr-cli/internal/workflow"
)

// OpenWhisk invokes actions non-blocking over the REST API with basic
// authentication from the server's API key.
type OpenWhisk struct {
	timeout time.Duration
}

// NewOpenWhisk creates the backend. A zero timeout selects DefaultTimeout.
func NewOpenWhisk(timeout time.Duration) *OpenWhisk {
	return &OpenWhisk{timeout: timeout}
}

func (o *OpenWhisk) Type() workflow.FaaSType { return workflow.FaaSTypeOpenWhisk }

func (o *OpenWhisk) Mode() payload.Mode { return payload.Inject }

// NormalizeEndpoint forces the https scheme onto endpoint, replacing any
// scheme it already has.
//
// The SSL field of a server entry is documented as selecting the scheme
// but only ever controlled certificate verification; transport is always
// TLS. That behaviour is kept as is.
func NormalizeEndpoint(endpoint string) string {
	ep := strings.TrimSpace(endpoint)
	lower := strings.ToLower(ep)
	switch {
	case strings.HasPrefix(lower, "https://"):
		ep = ep[len("https://"):]
	case strings.HasPrefix(lower, "http://"):
		ep = ep[len("http://"):]
	}
	return "https://" + strings.TrimRight(ep, "/")
}

// SplitAPIKey splits a "username:password" key. Keys without exactly one
// colon are rejected.
func SplitAPIKey(key string) (user, pass string, ok bool) {
	if strings.Count(key, ":") != 1 {
		return "", "", false
	}
	user, pass, _ = strings.Cut(key, ":")
	return user, pass, true
}

// verifyTLS parses the SSL field; anything but a false boolean verifies.
func verifyTLS(srv workflow.Server) bool {
	v, err := strconv.ParseBool(srv.Get(workflow.FieldSSL))
	if err != nil {
		return true
	}
	return v
}

// ActionURL returns the non-blocking invocation URL.
func ActionURL(endpoint, namespace, action string) string {
	return fmt.Sprintf("%s/api/v1/namespaces/%s/actions/%s?blocking=false&result=false",
		NormalizeEndpoint(endpoint), url.PathEscape(namespace), url.PathEscape(action))
}

type activation struct {
	ActivationID string `json:"activationId"`
}

// Trigger reads the API key from the payload's server entry, which in
// Inject mode already holds the resolved credential when one is set.
func (o *OpenWhisk) Trigger(ctx context.Context, target Target, body workflow.Document) (*Result, error) {
	if err := requireFields(target, workflow.FieldEndpoint, workflow.FieldNamespace); err != nil {
		return nil, err
	}

	key := target.Server.Get(workflow.FieldAPIKey)
	if key == "" {
		return nil, &Error{Kind: KindMissingCredential, Function: target.Function, Server: target.ServerName,
			Msg: "OpenWhisk API key is required"}
	}
	user, pass, ok := SplitAPIKey(key)
	if !ok {
		return nil, &Error{Kind: KindInvalidCredential, Function: target.Function, Server: target.ServerName,
			Msg: "OpenWhisk API key must have the form username:password"}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Kind: KindTriggerFailed, Function: target.Function, Msg: "marshal payload", Err: err}
	}

	endpoint := ActionURL(target.Server.Get(workflow.FieldEndpoint), target.Server.Get(workflow.FieldNamespace), target.Function)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Kind: KindTriggerFailed, Function: target.Function, Msg: "create request", Err: err}
	}
	req.SetBasicAuth(user, pass)
	req.Header.Set("Content-Type", "application/json")

	client := newHTTPClient(o.timeout, !verifyTLS(target.Server))
	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTriggerFailed, Function: target.Function, Msg: "POST " + endpoint, Err: err}
	}
	defer resp.Body.Close()
	respBody := readBody(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, &Error{Kind: KindTriggerFailed, Function: target.Function, Server: target.ServerName,
			StatusCode: resp.StatusCode, Body: respBody}
	}

	res := &Result{StatusCode: resp.StatusCode, Response: respBody, PayloadBytes: len(data)}
	var act activation
	if json.Unmarshal([]byte(respBody), &act) == nil {
		res.ActivationID = act.ActivationID
	}
	return res, nil
}
