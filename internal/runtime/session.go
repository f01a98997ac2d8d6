package runtime

import (
	"context"
	"log/slog"
	"strings"

	"github.com/voxflow/voxflow/pkg/domain"
	"github.com/voxflow/voxflow/pkg/ports"
)

// session is the unit of work for one node execution: the channel being
// driven, the node it sits on, and the collaborators the executor needs. A
// fresh session is built for every step of the drive loop.
type session struct {
	engine  *Engine
	call    ports.CallControl
	channel *domain.Channel
	flow    *domain.Flow
	node    *domain.Node
	log     *slog.Logger
}

// executor runs one node and returns the outgoing edge. An empty edge ends
// the flow. A returned error aborts the protocol event without advancing.
type executor func(ctx context.Context, s *session) (string, error)

var executors = map[domain.NodeKind]executor{
	domain.KindAnswer:          execAnswer,
	domain.KindHangup:          execHangup,
	domain.KindPlayback:        execPlayback,
	domain.KindRecord:          execRecord,
	domain.KindGetData:         execGetData,
	domain.KindSwitch:          execSwitch,
	domain.KindHTTPRequest:     execHTTPRequest,
	domain.KindSubroutine:      execSubroutine,
	domain.KindSetVariable:     execSetVariable,
	domain.KindSetVars:         execSetVars,
	domain.KindGetVariable:     execGetVariable,
	domain.KindGetFullVariable: execGetFullVariable,
	domain.KindDatabaseGet:     execDatabaseGet,
	domain.KindDatabasePut:     execDatabasePut,
	domain.KindDatabaseDel:     execDatabaseDel,
	domain.KindVerbose:         execVerbose,
	domain.KindSetCallerID:     execSetCallerID,
	domain.KindSetMusic:        execSetMusic,
	domain.KindExecApp:         execExecApp,
	domain.KindGotoOnExit:      execGotoOnExit,
	domain.KindEmail:           execEmail,
	domain.KindNoOp:            execNoOp,
}

// scope merges flow defaults under channel variables; channel values win.
func (s *session) scope() map[string]any {
	out := make(map[string]any, len(s.flow.Defaults)+len(s.channel.Variables))
	for k, v := range s.flow.Defaults {
		out[k] = v
	}
	for k, v := range s.channel.Variables {
		out[k] = v
	}
	return out
}

// render evaluates one template, logging failures and yielding nil. Most
// node fields tolerate an empty value; control-flow decisions that need to
// distinguish failure call Render directly.
func (s *session) render(template string) any {
	out, err := Render(template, s.scope())
	if err != nil {
		s.log.Warn("template render failed", "template", template, "error", err)
		return nil
	}
	return out
}

// renderString renders a template into a string, empty on failure.
func (s *session) renderString(template string) string {
	return stringify(s.render(template))
}

// renderInt renders a template into an int, falling back when the value is
// absent or non-numeric.
func (s *session) renderInt(template string, fallback int) int {
	if strings.TrimSpace(template) == "" {
		return fallback
	}
	return asInt(s.render(template), fallback)
}

// edge applies the shared outgoing-edge rule: the given edge if it is real,
// otherwise a call-stack pop, otherwise none. Subroutine nodes manage the
// stack themselves and never fall through to it here.
func (s *session) edge(next string) string {
	next = strings.TrimSpace(next)
	if next != "" && next != domain.EdgeFinish {
		return next
	}
	if s.node.Kind != domain.KindSubroutine {
		if id, ok := s.channel.CallStackOrNew().Pop(); ok {
			return id
		}
	}
	return ""
}

// defaultEdge resolves the node's configured o_connection through the shared
// rule.
func (s *session) defaultEdge() string {
	return s.edge(s.renderString(s.node.Next))
}

func execNoOp(ctx context.Context, s *session) (string, error) {
	return s.defaultEdge(), nil
}
