package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/cleaning-crm/api/internal/database"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5"
)

// StaffLookup resolves recipients to chat ids. Satisfied by *database.Queries.
type StaffLookup interface {
	GetStaff(ctx context.Context, id int64) (database.Staff, error)
}

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends Event.Text to each recipient that has linked a chat.
type Telegram struct {
	bot   botSender
	staff StaffLookup
}

func NewTelegram(token string, staff StaffLookup) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Telegram{bot: bot, staff: staff}, nil
}

func (t *Telegram) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, id := range ev.Recipients() {
		s, err := t.staff.GetStaff(ctx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("staff %d: %w", id, err))
			continue
		}
		if !s.TelegramChatID.Valid {
			continue
		}
		if _, err := t.bot.Send(tgbotapi.NewMessage(s.TelegramChatID.Int64, ev.Text())); err != nil {
			errs = append(errs, fmt.Errorf("send to staff %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
