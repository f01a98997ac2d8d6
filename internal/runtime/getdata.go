package runtime

import (
	"context"

	"github.com/voxflow/voxflow/pkg/domain"
)

// Defaults for digit collection when the node leaves them unset.
const (
	defaultCollectTimeoutMS = 5000
	defaultCollectMaxDigits = 255
)

// timeoutValue is recorded as the captured input when collection expires, so
// flows can route the silence case like any other.
const timeoutValue = "timeout"

// execGetData collects caller input and hands edge selection to the switch
// engine. DTMF collection is the default; an attached ASR middleware swaps
// in speech capture, and an attached TTS middleware synthesizes the prompt.
func execGetData(ctx context.Context, s *session) (string, error) {
	spec := s.node.Spec.(*domain.GetDataSpec)

	prompt := s.renderString(spec.File)
	if mw := s.ttsMiddleware(ctx, spec.Middleware); mw != nil {
		if synthesized := s.runTTS(ctx, mw, s.renderString(spec.Text)); synthesized != "" {
			prompt = synthesized
		}
	}

	variable := s.renderString(spec.Variable)
	var captured any
	if mw := s.asrMiddleware(ctx, spec.Middleware); mw != nil {
		captured = s.runASR(ctx, mw, prompt, variable)
	} else {
		timeout := s.renderInt(spec.Timeout, defaultCollectTimeoutMS)
		maxDigits := s.renderInt(spec.MaxDigits, defaultCollectMaxDigits)
		res, err := s.call.CollectDigits(ctx, prompt, timeout, maxDigits)
		if err != nil {
			return "", err
		}
		if res.TimedOut || res.Value == "" {
			captured = timeoutValue
		} else {
			captured = coerce(res.Value)
		}
	}

	if variable != "" {
		s.channel.SetVariable(variable, captured)
	}
	return s.decideSwitch(&spec.SwitchSpec)
}
