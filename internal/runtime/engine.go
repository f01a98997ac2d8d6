package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/voxflow/voxflow/internal/logging"
	"github.com/voxflow/voxflow/internal/metrics"
	"github.com/voxflow/voxflow/pkg/domain"
	"github.com/voxflow/voxflow/pkg/ports"
)

// DefaultMaxSteps bounds the number of nodes one protocol event may execute,
// guarding against cyclic flow authoring.
const DefaultMaxSteps = 512

// DefaultHTTPTimeout budgets each outbound HTTP call issued by flow nodes.
const DefaultHTTPTimeout = 10 * time.Second

// Engine is the session driver: it owns the channel store, the flow source
// and the mutable per-channel retry state, and drives one channel through its
// flow per call event.
type Engine struct {
	store  ports.ChannelStore
	source ports.FlowSource
	email  ports.EmailSender
	log    *slog.Logger
	http   *resty.Client
	stats  *metrics.Set

	maxSteps int

	channels       *channelCache
	flows          *flowCache
	switchAttempts *attemptCounters
	authAttempts   *attemptCounters
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithEmailSender wires the delivery backend used by email nodes.
func WithEmailSender(sender ports.EmailSender) Option {
	return func(e *Engine) { e.email = sender }
}

// WithMaxSteps overrides the per-event node execution cap.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithHTTPTimeout overrides the outbound HTTP budget.
func WithHTTPTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.http.SetTimeout(d)
		}
	}
}

// WithMetrics wires the prometheus collectors.
func WithMetrics(set *metrics.Set) Option {
	return func(e *Engine) { e.stats = set }
}

// New builds an engine over a channel store and a flow source.
func New(store ports.ChannelStore, source ports.FlowSource, opts ...Option) *Engine {
	e := &Engine{
		store:          store,
		source:         source,
		log:            logging.NewNop(),
		http:           resty.New().SetTimeout(DefaultHTTPTimeout),
		maxSteps:       DefaultMaxSteps,
		channels:       newChannelCache(),
		flows:          newFlowCache(),
		switchAttempts: newAttemptCounters(),
		authAttempts:   newAttemptCounters(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleEvent drives the channel identified by uid through flowName until it
// suspends or ends. One call maps to one inbound protocol event; the engine
// loops node by node, persisting after every step.
func (e *Engine) HandleEvent(ctx context.Context, call ports.CallControl, uid, flowName string) error {
	log := e.log.With("channel", uid, "flow", flowName)

	flow, err := e.flows.get(ctx, e.source, flowName)
	if err != nil {
		return fmt.Errorf("load flow %q: %w", flowName, err)
	}
	if e.stats != nil {
		e.stats.EventsTotal.WithLabelValues(flowName).Inc()
		e.stats.ActiveChannels.Inc()
		defer e.stats.ActiveChannels.Dec()
	}

	ch, err := e.loadChannel(ctx, uid)
	if err != nil {
		return err
	}

	for step := 0; ; step++ {
		if step >= e.maxSteps {
			return fmt.Errorf("channel %s: exceeded %d steps in one event", uid, e.maxSteps)
		}

		node := flow.Node(ch.NodeID)
		if node == nil {
			// Dangling position: park the channel back at the entry node and
			// let the next event start over.
			log.Warn("node not found, resetting channel", "node", ch.NodeID)
			ch.Reset()
			if err := e.store.Update(ctx, ch); err != nil {
				return fmt.Errorf("persist channel %s: %w", uid, err)
			}
			return nil
		}

		exec, ok := executors[node.Kind]
		if !ok {
			return fmt.Errorf("node %q: no executor for type %q", node.ID, node.Kind)
		}

		s := &session{
			engine:  e,
			call:    call,
			channel: ch,
			flow:    flow,
			node:    node,
			log:     log.With("node", node.ID, "type", string(node.Kind)),
		}

		if e.stats != nil {
			e.stats.NodesTotal.WithLabelValues(string(node.Kind)).Inc()
		}
		edge, err := exec(ctx, s)
		if err != nil {
			// The channel stays on the failing node so the next event
			// retries it. Variable mutations made so far are kept.
			if e.stats != nil {
				e.stats.NodeErrors.WithLabelValues(string(node.Kind)).Inc()
			}
			s.log.Error("node execution failed", "error", err)
			if uerr := e.store.Update(ctx, ch); uerr != nil {
				s.log.Error("persist after failure", "error", uerr)
			}
			return fmt.Errorf("node %q: %w", node.ID, err)
		}

		state := domain.StateNone
		if edge == "" {
			state = domain.StateEnd
		}
		ch.Advance(edge, state)
		if err := e.store.Update(ctx, ch); err != nil {
			return fmt.Errorf("persist channel %s: %w", uid, err)
		}

		if ch.Ended() {
			e.finishChannel(ctx, ch, log)
			return nil
		}
	}
}

// finishChannel retires a completed flow run: retry state and the cache entry
// go away, and the persisted record is reset so the same UID can start over.
func (e *Engine) finishChannel(ctx context.Context, ch *domain.Channel, log *slog.Logger) {
	e.channels.evict(ch.UID)
	e.switchAttempts.clearChannel(ch.UID)
	e.authAttempts.clearChannel(ch.UID)

	ch.Reset()
	if err := e.store.Update(ctx, ch); err != nil {
		log.Error("reset channel after end", "error", err)
	}
	if e.stats != nil {
		e.stats.FlowsCompleted.Inc()
	}
	log.Info("flow completed")
}

// loadChannel resolves the channel for uid: identity cache, then the store,
// then creation. A creation race resolves by re-reading the winner's row.
func (e *Engine) loadChannel(ctx context.Context, uid string) (*domain.Channel, error) {
	if ch, ok := e.channels.get(uid); ok {
		return ch, nil
	}

	ch, err := e.store.GetByUID(ctx, uid)
	if errors.Is(err, domain.ErrChannelNotFound) {
		ch = domain.NewChannel(uid)
		switch err := e.store.Insert(ctx, ch); {
		case errors.Is(err, domain.ErrChannelExists):
			if ch, err = e.store.GetByUID(ctx, uid); err != nil {
				return nil, fmt.Errorf("re-read channel %s: %w", uid, err)
			}
		case err != nil:
			return nil, fmt.Errorf("create channel %s: %w", uid, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("load channel %s: %w", uid, err)
	}

	e.channels.put(ch)
	return ch, nil
}

// Utilities exposes the cached flow-utilities bundle.
func (e *Engine) utilities(ctx context.Context) *domain.FlowUtilities {
	u, err := e.flows.utilities(ctx, e.source)
	if err != nil {
		e.log.Warn("flow utilities unavailable", "error", err)
		return nil
	}
	return u
}
