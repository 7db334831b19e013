// Package mail delivers export artifacts as email attachments over SMTP.
//
// A message has a plain-text body part and exactly one attachment part.
// Submission is attempted once; failures are reported as
// core.DeliveryError and never retried.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"

	"github.com/JonMunkholm/dados/internal/config"
	"github.com/JonMunkholm/dados/internal/core"
)

// ErrNotConfigured is wrapped by DeliveryError when no SMTP relay is set.
var ErrNotConfigured = errors.New("no SMTP server configured")

// Message is one outgoing email.
type Message struct {
	To         []string
	Subject    string
	Body       string
	Attachment core.ExportArtifact
}

// Dispatcher submits messages to the configured SMTP relay.
type Dispatcher struct {
	cfg config.MailConfig

	// tlsConfig overrides the STARTTLS client config when set.
	tlsConfig *tls.Config
}

// NewDispatcher creates a dispatcher for cfg.
func NewDispatcher(cfg config.MailConfig) *Dispatcher {
	return &Dispatcher{cfg: cfg}
}

// Send builds m and submits it: dial, STARTTLS when offered, authenticate,
// then a single submission. The auth mechanism is the strongest one the
// relay advertises; PLAIN and LOGIN are only used on an encrypted session.
func (d *Dispatcher) Send(ctx context.Context, m Message) error {
	if !d.cfg.Enabled() {
		return &core.DeliveryError{Op: "dial", Err: ErrNotConfigured}
	}

	msg, err := d.build(m)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(d.cfg.Server, d.clientOptions()...)
	if err != nil {
		return &core.DeliveryError{Op: "client", Err: err}
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return &core.DeliveryError{Op: "send", Err: err}
	}

	slog.Info("email sent",
		"recipients", len(m.To),
		"attachment", m.Attachment.Filename,
		"bytes", m.Attachment.Size(),
	)
	return nil
}

func (d *Dispatcher) clientOptions() []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(d.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if d.cfg.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(d.cfg.Timeout))
	}
	if d.tlsConfig != nil {
		opts = append(opts, gomail.WithTLSConfig(d.tlsConfig))
	}
	if d.cfg.User != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthAutoDiscover),
			gomail.WithUsername(d.cfg.User),
			gomail.WithPassword(d.cfg.Password),
		)
	}
	return opts
}

// build assembles the MIME message. Invalid addresses are a DeliveryError.
func (d *Dispatcher) build(m Message) (*gomail.Msg, error) {
	if len(m.To) == 0 {
		return nil, &core.DeliveryError{Op: "address", Err: errors.New("no recipients")}
	}
	if m.Attachment.Filename == "" {
		return nil, &core.DeliveryError{Op: "attach", Err: errors.New("attachment has no filename")}
	}

	msg := gomail.NewMsg()
	if err := msg.From(d.cfg.Sender()); err != nil {
		return nil, &core.DeliveryError{Op: "address", Err: fmt.Errorf("from %q: %w", d.cfg.Sender(), err)}
	}
	if err := msg.To(m.To...); err != nil {
		return nil, &core.DeliveryError{Op: "address", Err: fmt.Errorf("to %v: %w", m.To, err)}
	}
	msg.Subject(m.Subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(gomail.TypeTextPlain, m.Body)

	if err := msg.AttachReader(
		m.Attachment.Filename,
		bytes.NewReader(m.Attachment.Data),
		gomail.WithFileContentType(gomail.ContentType(m.Attachment.MIMEType)),
	); err != nil {
		return nil, &core.DeliveryError{Op: "attach", Err: err}
	}

	return msg, nil
}
