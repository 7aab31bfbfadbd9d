package notify

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/ports/adapter"
	"subscription-commerce/internal/domain/ports/repository"
)

var _ Channel = (*TelegramNotifier)(nil)

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier messages users who linked a Telegram chat to their account.
type TelegramNotifier struct {
	bot      botSender
	users    repository.UserRepository
	exponent int32
}

func NewTelegramNotifier(token string, users repository.UserRepository, exponent int32) (*TelegramNotifier, error) {
	if token == "" {
		return nil, errors.New("telegram notifier: empty token")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramNotifier{bot: bot, users: users, exponent: exponent}, nil
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) chatID(ctx context.Context, email string) (int64, error) {
	u, err := t.users.FindByEmail(ctx, repository.NoTX, email)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, ErrNoRecipient
	}
	if err != nil {
		return 0, err
	}
	if u.TelegramChatID == 0 {
		return 0, ErrNoRecipient
	}
	return u.TelegramChatID, nil
}

func (t *TelegramNotifier) send(ctx context.Context, email, text string) error {
	id, err := t.chatID(ctx, email)
	if err != nil {
		return err
	}
	_, err = t.bot.Send(tgbotapi.NewMessage(id, text))
	return err
}

func (t *TelegramNotifier) NotifyRefundStatus(ctx context.Context, n adapter.RefundNotice) error {
	return t.send(ctx, n.UserEmail, refundText(n, t.exponent))
}

func (t *TelegramNotifier) NotifySubscriptionCancelled(ctx context.Context, n adapter.CancellationNotice) error {
	return t.send(ctx, n.UserEmail, cancellationText(n))
}
