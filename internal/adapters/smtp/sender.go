// Package smtp delivers email-node messages through configured SMTP servers.
package smtp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/voxflow/voxflow/internal/logging"
	"github.com/voxflow/voxflow/pkg/domain"
	"github.com/voxflow/voxflow/pkg/ports"
)

// Sender implements ports.EmailSender over the email-server definitions of
// the flow-utilities bundle, keyed by server id.
type Sender struct {
	servers map[string]domain.EmailServer
	from    string
	log     *slog.Logger
}

// New builds a sender from server definitions. from is the envelope sender
// used when a server definition has a username that is not an address.
func New(servers []domain.EmailServer, from string, log *slog.Logger) *Sender {
	if log == nil {
		log = logging.NewNop()
	}
	byID := make(map[string]domain.EmailServer, len(servers))
	for _, s := range servers {
		byID[s.ID] = s
	}
	return &Sender{servers: byID, from: from, log: log}
}

// Send delivers one message through the server the message names.
func (s *Sender) Send(ctx context.Context, msg ports.EmailMessage) error {
	server, ok := s.servers[msg.ServerID]
	if !ok {
		return fmt.Errorf("email server %q not configured", msg.ServerID)
	}

	m := mail.NewMsg()
	from := s.from
	if from == "" {
		from = server.Username
	}
	if err := m.From(from); err != nil {
		return fmt.Errorf("email from %q: %w", from, err)
	}
	if err := m.To(msg.Recipients...); err != nil {
		return fmt.Errorf("email recipients: %w", err)
	}
	m.Subject(msg.Subject)
	if msg.HTML {
		m.SetBodyString(mail.TypeTextHTML, msg.Text)
	} else {
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
	}
	for _, path := range msg.Attachments {
		m.AttachFile(path)
	}

	opts := []mail.Option{
		mail.WithPort(server.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(server.Username),
		mail.WithPassword(server.Password),
	}
	if server.StartTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(server.Host, opts...)
	if err != nil {
		return fmt.Errorf("email client %q: %w", msg.ServerID, err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("email send via %q: %w", msg.ServerID, err)
	}
	s.log.Debug("email delivered", "server", msg.ServerID, "recipients", len(msg.Recipients))
	return nil
}
