package voxflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/voxflow/voxflow/internal/adapters/file"
	"github.com/voxflow/voxflow/internal/adapters/memory"
	"github.com/voxflow/voxflow/internal/logging"
	"github.com/voxflow/voxflow/internal/metrics"
	"github.com/voxflow/voxflow/internal/runtime"
	"github.com/voxflow/voxflow/pkg/ports"
)

// Engine is the high-level entry point for the voxflow library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime *runtime.Engine
	store   ports.ChannelStore
	source  ports.FlowSource
	email   ports.EmailSender
	logger  *slog.Logger
	stats   *metrics.Set
	opts    []runtime.Option
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithChannelStore injects a custom channel store, bypassing the default
// in-memory one.
func WithChannelStore(store ports.ChannelStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithFlowSource injects a custom flow source, bypassing the default
// flows-directory loader.
func WithFlowSource(source ports.FlowSource) Option {
	return func(e *Engine) {
		e.source = source
	}
}

// WithEmailSender wires the delivery backend used by email nodes.
func WithEmailSender(sender ports.EmailSender) Option {
	return func(e *Engine) {
		e.email = sender
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics wires prometheus collectors.
func WithMetrics(set *metrics.Set) Option {
	return func(e *Engine) {
		e.stats = set
	}
}

// WithMaxSteps bounds the number of nodes one call event may execute.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.opts = append(e.opts, runtime.WithMaxSteps(n))
	}
}

// WithHTTPTimeout budgets outbound HTTP calls issued by flow nodes.
func WithHTTPTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.opts = append(e.opts, runtime.WithHTTPTimeout(d))
	}
}

// New initializes a voxflow Engine.
// By default flows are read from YAML files under flowsDir and channels live
// in process memory; WithFlowSource / WithChannelStore swap either out, and
// flowsDir may then be empty.
func New(flowsDir string, opts ...Option) (*Engine, error) {
	eng := &Engine{
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.source == nil {
		if flowsDir == "" {
			return nil, fmt.Errorf("flowsDir is required when no custom flow source is provided")
		}
		eng.source = file.New(flowsDir, eng.logger)
	}
	if eng.store == nil {
		eng.store = memory.New()
	}

	runtimeOpts := append([]runtime.Option{
		runtime.WithLogger(eng.logger),
	}, eng.opts...)
	if eng.email != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithEmailSender(eng.email))
	}
	if eng.stats != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithMetrics(eng.stats))
	}

	eng.runtime = runtime.New(eng.store, eng.source, runtimeOpts...)
	return eng, nil
}

// HandleEvent drives one call event: the channel identified by uid advances
// through flowName, issuing commands on call, until it suspends or ends.
func (e *Engine) HandleEvent(ctx context.Context, call ports.CallControl, uid, flowName string) error {
	return e.runtime.HandleEvent(ctx, call, uid, flowName)
}

// Validate statically checks a flow and returns its issues, empty when clean.
func (e *Engine) Validate(ctx context.Context, flowName string) ([]string, error) {
	flow, err := e.source.Flow(ctx, flowName)
	if err != nil {
		return nil, err
	}
	return runtime.ValidateFlow(flow), nil
}
