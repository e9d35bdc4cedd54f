package bot

import (
	"annictgram/internal/domain"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *models.CallbackQuery) error {
	chatID := callbackChatID(callback)
	if chatID == 0 {
		return b.answerCallback(ctx, callback, "")
	}

	data := strings.TrimSpace(callback.Data)

	switch data {
	case "menu":
		return b.withEmptyCallbackAnswer(ctx, callback, func() error {
			return b.handleMenuCommand(ctx, chatID)
		})
	case "menu_list":
		return b.withEmptyCallbackAnswer(ctx, callback, func() error {
			return b.handleListCommand(ctx, chatID)
		})
	case "menu_notify":
		return b.withEmptyCallbackAnswer(ctx, callback, func() error {
			return b.handleNotifyCommand(ctx, "", chatID)
		})
	case "menu_sync":
		return b.withEmptyCallbackAnswer(ctx, callback, func() error {
			return b.handleSyncCommand(ctx, chatID)
		})
	}

	if name, ok := strings.CutPrefix(data, notifyToggleCallbackPrefix); ok {
		return b.handleNotifyToggleQuery(ctx, name, chatID, callback)
	}

	if account, ok := strings.CutPrefix(data, unfollowCallbackPrefix); ok {
		return b.withEmptyCallbackAnswer(ctx, callback, func() error {
			return b.unfollow(ctx, account, chatID)
		})
	}

	return b.answerCallback(ctx, callback, "")
}

func (b *Bot) handleNotifyToggleQuery(
	ctx context.Context,
	name string,
	chatID int64,
	callback *models.CallbackQuery,
) error {
	flag, err := domain.ParseNotifyFlag(name)
	if err != nil {
		return b.errorCallbackAnswer(ctx, callback, fmt.Errorf("parse notify flag: %w", err))
	}

	settings, err := b.store.GetChatSettingsWithDefault(ctx, chatID)
	if err != nil {
		return b.errorCallbackAnswer(ctx, callback, fmt.Errorf("get chat settings with default: %w", err))
	}

	if err = b.answerCallback(ctx, callback, "✅ Notifications are updated."); err != nil {
		return err
	}

	return b.setNotifyFlags(ctx, chatID, settings.NotifyFlags^flag)
}

func (b *Bot) withEmptyCallbackAnswer(
	ctx context.Context,
	callback *models.CallbackQuery,
	fn func() error,
) error {
	var errs []error

	if err := b.answerCallback(ctx, callback, ""); err != nil {
		errs = append(errs, err)
	}

	if err := fn(); err != nil {
		errs = append(errs, fmt.Errorf("call fn: %w", err))
	}

	return errors.Join(errs...)
}

func (b *Bot) errorCallbackAnswer(
	ctx context.Context,
	callback *models.CallbackQuery,
	err error,
) error {
	if sendErr := b.answerCallback(ctx, callback, "❌ Failed."); sendErr != nil {
		return errors.Join(err, sendErr)
	}
	return err
}

func (b *Bot) answerCallback(ctx context.Context, callback *models.CallbackQuery, text string) error {
	if b.api == nil {
		return nil
	}

	if _, err := b.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
		Text:            text,
	}); err != nil {
		return fmt.Errorf("answer callback query: %w", err)
	}

	return nil
}
