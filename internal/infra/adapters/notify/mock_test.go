package notify

import (
	"context"
	"io"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/adapter"
	"subscription-commerce/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type fakeMailSender struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeMailSender) DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, messages...)
	return nil
}

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

// fakeUsers only answers FindByEmail.
type fakeUsers struct {
	repository.UserRepository
	users map[string]*model.User
}

func (f *fakeUsers) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

type fakeChannel struct {
	name string
	err  error

	mu      sync.Mutex
	refunds []adapter.RefundNotice
	cancels []adapter.CancellationNotice
	traces  []string
	onCall  func(ctx context.Context)
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) NotifyRefundStatus(ctx context.Context, n adapter.RefundNotice) error {
	f.mu.Lock()
	f.refunds = append(f.refunds, n)
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall(ctx)
	}
	return f.err
}

func (f *fakeChannel) NotifySubscriptionCancelled(ctx context.Context, n adapter.CancellationNotice) error {
	f.mu.Lock()
	f.cancels = append(f.cancels, n)
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall(ctx)
	}
	return f.err
}
