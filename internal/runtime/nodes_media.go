package runtime

import (
	"context"

	"github.com/voxflow/voxflow/pkg/domain"
	"github.com/voxflow/voxflow/pkg/ports"
)

// execPlayback streams a media file, synthesizing it first when a TTS
// middleware is attached.
func execPlayback(ctx context.Context, s *session) (string, error) {
	spec := s.node.Spec.(*domain.PlaybackSpec)

	file := s.renderString(spec.File)
	if mw := s.ttsMiddleware(ctx, spec.Middleware); mw != nil {
		if synthesized := s.runTTS(ctx, mw, s.renderString(spec.Text)); synthesized != "" {
			file = synthesized
		}
	}

	escape := s.renderString(spec.EscapeDigits)
	offset := s.renderInt(spec.SampleOffset, 0)
	if err := s.call.StreamFile(ctx, file, escape, offset); err != nil {
		return "", err
	}
	return s.defaultEdge(), nil
}

func execRecord(ctx context.Context, s *session) (string, error) {
	spec := s.node.Spec.(*domain.RecordSpec)

	beep := false
	if v, ok := s.render(spec.Beep).(bool); ok {
		beep = v
	}
	p := ports.RecordParams{
		File:         s.renderString(spec.File),
		Format:       s.renderString(spec.Format),
		EscapeDigits: s.renderString(spec.EscapeDigits),
		TimeoutMS:    s.renderInt(spec.Timeout, -1),
		SilenceSec:   s.renderInt(spec.Silence, 0),
		Offset:       s.renderInt(spec.Offset, 0),
		Beep:         beep,
	}
	if p.Format == "" {
		p.Format = "wav"
	}
	if err := s.call.RecordFile(ctx, p); err != nil {
		return "", err
	}
	return s.defaultEdge(), nil
}

// ttsMiddleware resolves the first attached TTS definition, nil when none.
func (s *session) ttsMiddleware(ctx context.Context, ids []string) *domain.Middleware {
	return s.middlewareOfKind(ctx, ids, domain.MiddlewareTTS)
}

func (s *session) asrMiddleware(ctx context.Context, ids []string) *domain.Middleware {
	return s.middlewareOfKind(ctx, ids, domain.MiddlewareASR)
}

func (s *session) middlewareOfKind(ctx context.Context, ids []string, kind domain.MiddlewareKind) *domain.Middleware {
	utils := s.engine.utilities(ctx)
	for _, id := range ids {
		mw := utils.Middleware(id)
		if mw == nil {
			s.log.Warn("middleware not defined", "middleware", id)
			continue
		}
		if mw.Kind == kind {
			return mw
		}
	}
	return nil
}
