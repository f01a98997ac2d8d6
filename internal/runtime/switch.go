package runtime

import (
	"context"
	"strings"

	"github.com/voxflow/voxflow/pkg/domain"
)

// Case-id sentinels recognized by the switch engine.
const (
	caseDefault         = "default"
	caseAttemptExceeded = "attempt_exceeded"
	caseExcept          = "except"
)

func execSwitch(ctx context.Context, s *session) (string, error) {
	spec := s.node.Spec.(*domain.SwitchSpec)
	return s.decideSwitch(spec)
}

// decideSwitch picks the outgoing edge for a switch-style node.
//
// A validation expression, when present, is rendered and matched against the
// case ids; a render failure selects the "except" case. Without a validation
// expression the per-case boolean expressions run in declaration order and
// the first true one wins. A miss consumes one attempt: once the configured
// budget is spent the next miss selects "attempt_exceeded" and resets the
// counter, otherwise "default" is selected and the counter grows. A real
// match always resets the counter.
func (s *session) decideSwitch(spec *domain.SwitchSpec) (string, error) {
	uid, nodeID := s.channel.UID, s.node.ID
	scope := s.scope()

	var matched *domain.Case
	if strings.TrimSpace(spec.Validation) != "" {
		v, err := Render(spec.Validation, scope)
		if err != nil {
			s.log.Warn("validation render failed", "node", nodeID, "error", err)
			matched = caseByID(spec.Cases, caseExcept)
		} else {
			matched = caseByID(spec.Cases, canonicalKey(v))
		}
	} else {
		for i := range spec.Cases {
			c := &spec.Cases[i]
			if c.Case == "" || sentinelCase(c.ID) {
				continue
			}
			v, err := Render(c.Case, scope)
			if err != nil {
				s.log.Warn("case expression failed", "node", nodeID, "case", c.ID, "error", err)
				continue
			}
			if b, ok := v.(bool); ok && b {
				matched = c
				break
			}
		}
	}

	switch {
	case matched != nil:
		s.engine.switchAttempts.clear(uid, nodeID)
	case spec.ValidationAttempts > 0:
		if s.engine.switchAttempts.get(uid, nodeID) >= spec.ValidationAttempts {
			s.engine.switchAttempts.clear(uid, nodeID)
			matched = caseByID(spec.Cases, caseAttemptExceeded)
		} else {
			s.engine.switchAttempts.increment(uid, nodeID)
		}
		if matched == nil {
			matched = caseByID(spec.Cases, caseDefault)
		}
	default:
		matched = caseByID(spec.Cases, caseDefault)
	}

	if matched == nil {
		return s.edge(""), nil
	}
	return s.takeCase(matched)
}

// takeCase applies a selected case: its variables are rendered individually
// onto the channel, then its edge goes through the shared rule.
func (s *session) takeCase(c *domain.Case) (string, error) {
	if len(c.Variables) > 0 {
		scope := s.scope()
		for k, v := range c.Variables {
			rendered, err := RenderValue(v, scope)
			if err != nil {
				s.log.Warn("case variable render failed", "node", s.node.ID, "variable", k, "error", err)
				continue
			}
			s.channel.SetVariable(k, rendered)
		}
	}
	return s.edge(s.renderString(c.OConnection)), nil
}

func caseByID(cases []domain.Case, id string) *domain.Case {
	if id == "" {
		return nil
	}
	for i := range cases {
		if cases[i].ID == id {
			return &cases[i]
		}
	}
	return nil
}

func sentinelCase(id string) bool {
	switch id {
	case caseDefault, caseAttemptExceeded, caseExcept:
		return true
	}
	return false
}
