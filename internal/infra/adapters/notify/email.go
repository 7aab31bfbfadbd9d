package notify

import (
	"context"
	"errors"

	"github.com/wneessen/go-mail"

	"subscription-commerce/internal/config"
	"subscription-commerce/internal/domain/ports/adapter"
)

var _ Channel = (*EmailNotifier)(nil)

type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type EmailNotifier struct {
	from     string
	sender   mailSender
	exponent int32
}

func NewEmailNotifier(cfg config.SMTPConfig, exponent int32) (*EmailNotifier, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("email notifier: smtp host and from are required")
	}
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, err
	}
	return &EmailNotifier{from: cfg.From, sender: client, exponent: exponent}, nil
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return ErrNoRecipient
	}
	msg := mail.NewMsg()
	if err := msg.From(e.from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return e.sender.DialAndSendWithContext(ctx, msg)
}

func (e *EmailNotifier) NotifyRefundStatus(ctx context.Context, n adapter.RefundNotice) error {
	return e.send(ctx, n.UserEmail, refundSubject(n), refundText(n, e.exponent))
}

func (e *EmailNotifier) NotifySubscriptionCancelled(ctx context.Context, n adapter.CancellationNotice) error {
	return e.send(ctx, n.UserEmail, "Your subscription has been cancelled", cancellationText(n))
}
