package runtime

import (
	"context"
	"strings"

	"github.com/voxflow/voxflow/pkg/domain"
	"github.com/voxflow/voxflow/pkg/ports"
)

// execEmail dispatches a message through the configured sender without
// blocking flow advancement on delivery.
func execEmail(ctx context.Context, s *session) (string, error) {
	spec := s.node.Spec.(*domain.EmailSpec)

	if s.engine.email == nil {
		s.log.Warn("email sender not configured, message dropped")
		return s.defaultEdge(), nil
	}

	scope := s.scope()
	msg := ports.EmailMessage{
		ServerID: s.renderWith(spec.ServerID, scope),
		Subject:  s.renderWith(spec.Subject, scope),
		Text:     s.renderWith(spec.Text, scope),
		HTML:     strings.EqualFold(s.renderWith(spec.Format, scope), "html"),
	}
	for _, r := range spec.Recipients {
		if v := s.renderWith(r, scope); v != "" {
			msg.Recipients = append(msg.Recipients, v)
		}
	}
	for _, a := range spec.Attachments {
		if v := s.renderWith(a, scope); v != "" {
			msg.Attachments = append(msg.Attachments, v)
		}
	}

	log := s.log
	go func() {
		if err := s.engine.email.Send(context.WithoutCancel(ctx), msg); err != nil {
			log.Warn("email delivery failed", "error", err)
		}
	}()

	return s.defaultEdge(), nil
}
