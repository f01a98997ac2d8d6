package runtime

import (
	"context"

	"github.com/voxflow/voxflow/pkg/domain"
)

func execAnswer(ctx context.Context, s *session) (string, error) {
	if err := s.call.Answer(ctx); err != nil {
		return "", err
	}
	return s.defaultEdge(), nil
}

// execHangup terminates the leg. The flow ends here regardless of any
// configured edge.
func execHangup(ctx context.Context, s *session) (string, error) {
	spec := s.node.Spec.(*domain.HangupSpec)
	if err := s.call.Hangup(ctx, s.renderString(spec.Chan)); err != nil {
		return "", err
	}
	return "", nil
}

func execVerbose(ctx context.Context, s *session) (string, error) {
	spec := s.node.Spec.(*domain.VerboseSpec)
	msg := s.renderString(spec.Message)
	level := s.renderInt(spec.Level, 1)
	if err := s.call.Verbose(ctx, msg, level); err != nil {
		return "", err
	}
	return s.defaultEdge(), nil
}

func execSetCallerID(ctx context.Context, s *session) (string, error) {
	spec := s.node.Spec.(*domain.SetCallerIDSpec)
	if err := s.call.SetCallerID(ctx, s.renderString(spec.Number)); err != nil {
		return "", err
	}
	return s.defaultEdge(), nil
}

func execSetMusic(ctx context.Context, s *session) (string, error) {
	spec := s.node.Spec.(*domain.SetMusicSpec)
	on := true
	if v, ok := s.render(spec.Toggle).(bool); ok {
		on = v
	}
	if err := s.call.SetMusic(ctx, on, s.renderString(spec.MusicClass)); err != nil {
		return "", err
	}
	return s.defaultEdge(), nil
}

func execExecApp(ctx context.Context, s *session) (string, error) {
	spec := s.node.Spec.(*domain.ExecAppSpec)
	app := s.renderString(spec.Application)
	opts := s.renderString(spec.Options)
	if err := s.call.ExecApp(ctx, app, opts); err != nil {
		return "", err
	}
	return s.defaultEdge(), nil
}

// execGotoOnExit arms the dialplan position taken when the engine releases
// the call, then ends the flow.
func execGotoOnExit(ctx context.Context, s *session) (string, error) {
	spec := s.node.Spec.(*domain.GotoOnExitSpec)
	dialCtx := s.renderString(spec.Context)
	ext := s.renderString(spec.Extension)
	prio := s.renderString(spec.Priority)
	if err := s.call.GotoOnExit(ctx, dialCtx, ext, prio); err != nil {
		return "", err
	}
	return "", nil
}
