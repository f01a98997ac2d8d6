package ports

import "context"

// EmailMessage is the payload handed to an EmailSender by the email node.
type EmailMessage struct {
	ServerID    string
	Subject     string
	Text        string
	HTML        bool
	Recipients  []string
	Attachments []string
}

// EmailSender delivers one message. Delivery is an external collaborator:
// the runtime dispatches fire-and-forget and never blocks flow advancement
// on the result.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}
