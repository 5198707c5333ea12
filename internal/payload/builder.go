// Package payload assembles the body handed to a triggered function: a
// copy of the workflow document whose compute-server and data-store
// secrets are either masked with placeholder names or injected with live
// credentials.
//
// Masking is used for GitHub Actions, whose inputs are echoed into run
// logs. The placeholders name repository secrets that the triggered
// workflow resolves itself. Injection is used for backends invoked over an
// authenticated channel, where the payload is the only way to hand the
// credential to the function runtime.
package payload

import (
	"github.com/dekkov/FaaSr-cli/internal/credentials"
	"github.com/dekkov/FaaSr-cli/internal/workflow"
)

// Mode selects how secret fields are rewritten.
type Mode int

const (
	// Mask replaces every secret with a deterministic placeholder.
	Mask Mode = iota
	// Inject replaces secrets with resolved credentials where present.
	Inject
)

func (m Mode) String() string {
	switch m {
	case Mask:
		return "mask"
	case Inject:
		return "inject"
	default:
		return "unknown"
	}
}

// DefaultObjectStore is the data-store entry that receives the object
// store credentials in Inject mode.
const DefaultObjectStore = "My_Minio_Bucket"

// Placeholder suffixes appended to the entry key in Mask mode.
const (
	SuffixToken     = "_TOKEN"
	SuffixAccessKey = "_ACCESS_KEY"
	SuffixSecretKey = "_SECRET_KEY"
	SuffixAPIKey    = "_API_KEY"
)

// Builder produces payloads. It holds no per-call state and is safe for
// concurrent use.
type Builder struct {
	creds       credentials.Source
	objectStore string
}

// NewBuilder creates a builder resolving credentials from src. An empty
// objectStore selects DefaultObjectStore.
func NewBuilder(src credentials.Source, objectStore string) *Builder {
	if objectStore == "" {
		objectStore = DefaultObjectStore
	}
	return &Builder{creds: src, objectStore: objectStore}
}

// Build returns a rewritten deep copy of doc. doc itself is never modified.
// Only secret fields of ComputeServers and DataStores entries change.
// Modes other than Inject mask.
func (b *Builder) Build(doc workflow.Document, mode Mode) workflow.Document {
	out := doc.Clone()
	if out == nil {
		out = workflow.Document{}
	}

	switch mode {
	case Inject:
		inject(out, b.creds.Resolve(), b.objectStore)
	default:
		mask(out)
	}
	return out
}

func mask(doc workflow.Document) {
	for key, srv := range doc.Servers() {
		switch srv.Type() {
		case workflow.FaaSTypeGitHubActions:
			srv.Set(workflow.FieldToken, key+SuffixToken)
		case workflow.FaaSTypeLambda:
			srv.Set(workflow.FieldAccessKey, key+SuffixAccessKey)
			srv.Set(workflow.FieldSecretKey, key+SuffixSecretKey)
		case workflow.FaaSTypeOpenWhisk:
			srv.Set(workflow.FieldAPIKey, key+SuffixAPIKey)
		}
	}
	for key, store := range doc.DataStores() {
		store.Set(workflow.FieldAccessKey, key+SuffixAccessKey)
		store.Set(workflow.FieldSecretKey, key+SuffixSecretKey)
	}
}

func inject(doc workflow.Document, c credentials.Credentials, objectStore string) {
	for _, srv := range doc.Servers() {
		switch srv.Type() {
		case workflow.FaaSTypeGitHubActions:
			setIfPresent(srv, workflow.FieldToken, c.GitHubToken)
		case workflow.FaaSTypeLambda:
			setIfPresent(srv, workflow.FieldAccessKey, c.LambdaAccessKey)
			setIfPresent(srv, workflow.FieldSecretKey, c.LambdaSecretKey)
		case workflow.FaaSTypeOpenWhisk:
			setIfPresent(srv, workflow.FieldAPIKey, c.OpenWhiskAPIKey)
		}
	}
	if store, ok := doc.DataStores()[objectStore]; ok {
		setIfPresent(store, workflow.FieldAccessKey, c.StoreAccessKey)
		setIfPresent(store, workflow.FieldSecretKey, c.StoreSecretKey)
	}
}

// setIfPresent leaves the field untouched when the credential is absent.
func setIfPresent(e workflow.Entry, field, value string) {
	if value != "" {
		e.Set(field, value)
	}
}
