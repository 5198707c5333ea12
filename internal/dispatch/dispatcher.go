// Package dispatch triggers one function of a workflow on the compute
// backend its server entry names. A dispatch is a single synchronous
// attempt: resolve the target, build the payload in the backend's mode,
// send one request and report the outcome. Nothing is retried and no state
// survives between calls, so independent dispatches may run concurrently.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dekkov/FaaSr-cli/internal/logging"
	"github.com/dekkov/FaaSr-cli/internal/metrics"
	"github.com/dekkov/FaaSr-cli/internal/observability"
	"github.com/dekkov/FaaSr-cli/internal/payload"
	"github.com/dekkov/FaaSr-cli/internal/workflow"
)

// State is a step of a single dispatch.
type State string

const (
	StateIdle            State = "idle"
	StateResolvingTarget State = "resolving_target"
	StateBuildingPayload State = "building_payload"
	StateSending         State = "sending"
	StateSucceeded       State = "succeeded"
	StateFailed          State = "failed"
)

// Target is the resolved destination of a dispatch.
type Target struct {
	Function   string
	ServerName string
	Server     workflow.Server
}

// Backend triggers functions on one kind of compute server.
type Backend interface {
	// Type is the FaaSType the backend serves.
	Type() workflow.FaaSType
	// Mode is how secrets are shaped in the payload sent to this backend.
	Mode() payload.Mode
	// Trigger sends body to the target. It must fail with a credential or
	// server error before any network call when its inputs are unusable.
	Trigger(ctx context.Context, target Target, body workflow.Document) (*Result, error)
}

// Result is a successful dispatch. For asynchronous backends success
// means the invocation was accepted, not that the function completed.
type Result struct {
	DispatchID   string
	Function     string
	Server       string
	Backend      workflow.FaaSType
	StatusCode   int
	Response     string
	ActivationID string
	PayloadBytes int
	Duration     time.Duration
}

// Dispatcher routes dispatches to registered backends.
type Dispatcher struct {
	builder  *payload.Builder
	backends map[workflow.FaaSType]Backend
	metrics  *metrics.PrometheusMetrics
	recorder *logging.Recorder
	newID    func() string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithBackend registers b for its FaaSType, replacing any earlier one.
func WithBackend(b Backend) Option {
	return func(d *Dispatcher) { d.backends[b.Type()] = b }
}

// WithMetrics records dispatch outcomes in m.
func WithMetrics(m *metrics.PrometheusMetrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithRecorder writes a DispatchRecord per dispatch.
func WithRecorder(r *logging.Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// New creates a dispatcher building payloads with builder.
func New(builder *payload.Builder, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		builder:  builder,
		backends: make(map[workflow.FaaSType]Backend),
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Resolve finds the function's server entry and the backend serving it.
func (d *Dispatcher) Resolve(doc workflow.Document, function string) (Target, Backend, error) {
	fn, ok := doc.Function(function)
	if !ok {
		return Target{}, nil, newError(KindUnknownFunction, function, "not found in %s", workflow.KeyFunctionList)
	}
	serverName := fn.Get(workflow.FieldFaaSServer)
	srv, ok := doc.Server(serverName)
	if !ok {
		e := newError(KindUnknownServer, function, "server %q not found in %s", serverName, workflow.KeyComputeServers)
		e.Server = serverName
		return Target{}, nil, e
	}
	target := Target{Function: function, ServerName: serverName, Server: srv}

	faasType, ok := workflow.ParseFaaSType(srv.Get(workflow.FieldFaaSType))
	if !ok {
		e := newError(KindUnsupportedBackend, function, "unsupported FaaS type %q", srv.Get(workflow.FieldFaaSType))
		e.Server = serverName
		return target, nil, e
	}
	b, ok := d.backends[faasType]
	if !ok {
		e := newError(KindUnsupportedBackend, function, "no backend registered for %s", faasType)
		e.Server = serverName
		return target, nil, e
	}
	return target, b, nil
}

// Payload returns the payload a dispatch of function would send, without
// sending it.
func (d *Dispatcher) Payload(doc workflow.Document, function string) (workflow.Document, Backend, error) {
	_, b, err := d.Resolve(doc, function)
	if err != nil {
		return nil, nil, err
	}
	return d.builder.Build(doc, b.Mode()), b, nil
}

// Dispatch triggers function from doc on its backend. doc is not modified.
func (d *Dispatcher) Dispatch(ctx context.Context, doc workflow.Document, function string) (*Result, error) {
	start := time.Now()
	id := d.newID()

	ctx, span := observability.StartSpan(ctx, "dispatch",
		observability.AttrFunctionName.String(function),
		observability.AttrDispatchID.String(id),
	)
	defer span.End()

	log := logging.OpWithTrace(observability.GetTraceID(ctx), observability.GetSpanID(ctx)).
		With("dispatch_id", id, "function", function)
	state := func(s State) { log.Debug("dispatch state", "state", s) }
	state(StateIdle)

	rec := &logging.DispatchRecord{
		DispatchID: id,
		TraceID:    observability.GetTraceID(ctx),
		Function:   function,
	}
	fail := func(err error) (*Result, error) {
		state(StateFailed)
		elapsed := time.Since(start)
		kind := KindOf(err)
		if kind == "" {
			kind = KindTriggerFailed
		}
		var de *Error
		if errors.As(err, &de) {
			if de.Server == "" {
				de.Server = rec.Server
			} else if rec.Server == "" {
				rec.Server = de.Server
			}
			rec.StatusCode = de.StatusCode
		}
		rec.Success = false
		rec.ErrorKind = string(kind)
		rec.Error = err.Error()
		rec.DurationMs = elapsed.Milliseconds()
		d.recorder.Record(rec)
		d.metrics.RecordDispatch(rec.Backend, string(kind), elapsed)
		span.SetAttributes(observability.AttrErrorKind.String(string(kind)))
		observability.SetSpanError(span, err)
		log.Error("dispatch failed", "kind", kind, "error", err)
		return nil, err
	}

	state(StateResolvingTarget)
	target, b, err := d.Resolve(doc, function)
	rec.Server = target.ServerName
	if err != nil {
		return fail(err)
	}
	rec.Backend = string(b.Type())
	span.SetAttributes(
		observability.AttrServerName.String(target.ServerName),
		observability.AttrBackend.String(string(b.Type())),
	)

	state(StateBuildingPayload)
	mode := b.Mode()
	body := d.builder.Build(doc, mode)
	span.SetAttributes(observability.AttrPayloadMode.String(mode.String()))
	log.Debug("payload built", "mode", mode, "server", target.ServerName, "backend", b.Type())

	// The target handed to the backend reads from the payload copy, so a
	// backend can never write into the caller's document.
	if srv, ok := body.Server(target.ServerName); ok {
		target.Server = srv
	}

	state(StateSending)
	res, err := b.Trigger(ctx, target, body)
	if err != nil {
		var de *Error
		if !errors.As(err, &de) {
			err = &Error{Kind: KindTriggerFailed, Function: function, Server: target.ServerName, Err: err}
		}
		return fail(err)
	}

	res.DispatchID = id
	res.Function = function
	res.Server = target.ServerName
	res.Backend = b.Type()
	res.Duration = time.Since(start)

	state(StateSucceeded)
	rec.Success = true
	rec.StatusCode = res.StatusCode
	rec.ActivationID = res.ActivationID
	rec.DurationMs = res.Duration.Milliseconds()
	d.recorder.Record(rec)
	d.metrics.RecordDispatch(rec.Backend, "success", res.Duration)
	d.metrics.RecordPayloadSize(rec.Backend, res.PayloadBytes)
	span.SetAttributes(observability.AttrStatusCode.Int(res.StatusCode))
	observability.SetSpanOK(span)
	log.Info("dispatch succeeded", "backend", b.Type(), "status", res.StatusCode)
	return res, nil
}
