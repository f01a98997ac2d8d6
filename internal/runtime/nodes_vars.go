package runtime

import (
	"context"
	"strings"

	"github.com/voxflow/voxflow/pkg/domain"
)

// execSetVariable sets variables on the call leg itself through one
// ARRAY(a|b)=v1|v2 assignment, the platform's multi-set form.
func execSetVariable(ctx context.Context, s *session) (string, error) {
	spec := s.node.Spec.(*domain.SetVariableSpec)

	if len(spec.Variables) > 0 {
		scope := s.scope()
		keys := make([]string, 0, len(spec.Variables))
		values := make([]string, 0, len(spec.Variables))
		for k, v := range spec.Variables {
			keys = append(keys, k)
			values = append(values, s.renderAnyString(v, scope))
		}
		name := "ARRAY(" + strings.Join(keys, "|") + ")"
		if err := s.call.SetVariable(ctx, name, strings.Join(values, "|")); err != nil {
			return "", err
		}
	}
	return s.defaultEdge(), nil
}

// execSetVars mutates the channel variable bag: the set map is merged in with
// each value rendered individually, then the unset list is deleted. Unsetting
// a path that was never set is a no-op.
func execSetVars(ctx context.Context, s *session) (string, error) {
	spec := s.node.Spec.(*domain.SetVarsSpec)

	if len(spec.Variables.Set) > 0 {
		scope := s.scope()
		for k, v := range spec.Variables.Set {
			rendered, err := RenderValue(v, scope)
			if err != nil {
				s.log.Warn("variable render failed", "variable", k, "error", err)
				continue
			}
			s.channel.SetVariable(k, rendered)
		}
	}
	for _, k := range spec.Variables.Unset {
		s.channel.DeleteVariable(s.renderString(k))
	}
	return s.defaultEdge(), nil
}

func execGetVariable(ctx context.Context, s *session) (string, error) {
	spec := s.node.Spec.(*domain.GetVariableSpec)

	value, err := s.call.GetVariable(ctx, s.renderString(spec.Name))
	if err != nil {
		return "", err
	}
	if spec.Variable != "" {
		s.channel.SetVariable(spec.Variable, coerce(value))
	}
	return s.defaultEdge(), nil
}

// execGetFullVariable evaluates call-leg expressions and binds each result to
// a channel variable.
func execGetFullVariable(ctx context.Context, s *session) (string, error) {
	spec := s.node.Spec.(*domain.GetFullVariableSpec)

	scope := s.scope()
	for name, expression := range spec.Variables {
		value, err := s.call.GetFullVariable(ctx, s.renderWith(expression, scope))
		if err != nil {
			return "", err
		}
		s.channel.SetVariable(name, coerce(value))
	}
	return s.defaultEdge(), nil
}
