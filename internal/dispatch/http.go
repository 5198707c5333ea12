package dispatch

import (
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dekkov/FaaSr-cli/internal/observability"
)

// DefaultTimeout bounds a single outbound HTTP trigger request.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps how much of a backend's response is kept for
// diagnostics.
const maxBodyBytes = 64 << 10

// newHTTPClient returns a traced client. insecure disables certificate
// verification.
func newHTTPClient(timeout time.Duration, insecure bool) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	base := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		base.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: observability.NewTransport(base),
	}
}

func readBody(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxBodyBytes))
	return string(data)
}

// requireFields fails with KindInvalidServer naming the first empty field.
func requireFields(target Target, fields ...string) error {
	for _, f := range fields {
		if target.Server.Get(f) == "" {
			return &Error{Kind: KindInvalidServer, Function: target.Function, Server: target.ServerName,
				Msg: fmt.Sprintf("%s server %q requires %s", target.Server.Type(), target.ServerName, f)}
		}
	}
	return nil
}
