// Package workflow models the declarative workflow document a trigger is
// driven by. Documents are kept as generic JSON-compatible maps so that
// fields the trigger does not interpret survive the round trip into the
// outbound payload untouched.
package workflow

import (
	"fmt"
	"strconv"
	"strings"
)

// Top-level document keys.
const (
	KeyFunctionInvoke = "FunctionInvoke"
	KeyFunctionList   = "FunctionList"
	KeyComputeServers = "ComputeServers"
	KeyDataStores     = "DataStores"
)

// Entry fields read or rewritten by the trigger.
const (
	FieldFaaSServer     = "FaaSServer"
	FieldFaaSType       = "FaaSType"
	FieldToken          = "Token"
	FieldAccessKey      = "AccessKey"
	FieldSecretKey      = "SecretKey"
	FieldAPIKey         = "API.key"
	FieldUserName       = "UserName"
	FieldActionRepoName = "ActionRepoName"
	FieldBranch         = "Branch"
	FieldRegion         = "Region"
	FieldEndpoint       = "Endpoint"
	FieldNamespace      = "Namespace"
	FieldSSL            = "SSL"
)

// FaaSType identifies the compute backend a server entry targets.
type FaaSType string

const (
	FaaSTypeGitHubActions FaaSType = "GitHubActions"
	FaaSTypeLambda        FaaSType = "Lambda"
	FaaSTypeOpenWhisk     FaaSType = "OpenWhisk"
)

// ParseFaaSType matches s against the known backend kinds, ignoring case.
func ParseFaaSType(s string) (FaaSType, bool) {
	for _, t := range []FaaSType{FaaSTypeGitHubActions, FaaSTypeLambda, FaaSTypeOpenWhisk} {
		if strings.EqualFold(s, string(t)) {
			return t, true
		}
	}
	return FaaSType(s), false
}

func (t FaaSType) IsValid() bool {
	_, ok := ParseFaaSType(string(t))
	return ok
}

// Document is a parsed workflow document.
type Document map[string]any

// Entry is one named member of FunctionList, ComputeServers or DataStores.
type Entry map[string]any

// Function is a FunctionList entry.
type Function = Entry

// Server is a ComputeServers entry.
type Server = Entry

// DataStore is a DataStores entry.
type DataStore = Entry

// FunctionInvoke returns the name of the function the document asks to trigger.
func (d Document) FunctionInvoke() string {
	return stringValue(d[KeyFunctionInvoke])
}

// Function looks up a FunctionList entry.
func (d Document) Function(name string) (Function, bool) {
	return d.entry(KeyFunctionList, name)
}

// Server looks up a ComputeServers entry.
func (d Document) Server(name string) (Server, bool) {
	return d.entry(KeyComputeServers, name)
}

// Servers returns the ComputeServers entries. The entries alias the
// document, so writes through them modify d.
func (d Document) Servers() map[string]Server {
	return d.entries(KeyComputeServers)
}

// DataStores returns the DataStores entries, aliasing d like Servers.
func (d Document) DataStores() map[string]DataStore {
	return d.entries(KeyDataStores)
}

func (d Document) section(key string) (map[string]any, bool) {
	return asMap(d[key])
}

// asMap accepts the map shapes a document can hold. Entries built in code
// may use Entry, and some YAML decoders produce map[any]any; the latter is
// returned as a normalized copy, so writes through it do not reach d.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Entry:
		return m, true
	case Document:
		return m, true
	case map[any]any:
		return normalizeKeys(m), true
	}
	return nil, false
}

func (d Document) entry(section, name string) (Entry, bool) {
	s, ok := d.section(section)
	if !ok {
		return nil, false
	}
	e, ok := asMap(s[name])
	if !ok {
		return nil, false
	}
	return Entry(e), true
}

func (d Document) entries(section string) map[string]Entry {
	s, ok := d.section(section)
	if !ok {
		return nil
	}
	out := make(map[string]Entry, len(s))
	for name, v := range s {
		if e, ok := asMap(v); ok {
			out[name] = Entry(e)
		}
	}
	return out
}

// Get returns the field as a string. Scalars of other types (booleans and
// numbers, as YAML and TOML produce them) are formatted; absent fields
// return "".
func (e Entry) Get(key string) string {
	return stringValue(e[key])
}

// Has reports whether the field is present.
func (e Entry) Has(key string) bool {
	_, ok := e[key]
	return ok
}

// Set assigns a string field.
func (e Entry) Set(key, value string) {
	e[key] = value
}

// Type returns the entry's FaaSType, normalized to its canonical spelling
// when it names a known backend.
func (e Entry) Type() FaaSType {
	t, _ := ParseFaaSType(e.Get(FieldFaaSType))
	return t
}

func stringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
