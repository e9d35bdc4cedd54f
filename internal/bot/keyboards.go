package bot

import (
	"annictgram/internal/domain"
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	notifyToggleCallbackPrefix = "notify_toggle_"
	unfollowCallbackPrefix     = "unfollow_"
	notifyKeyboardRowSize      = 2
)

func (b *Bot) sendMessageWithKeyboard(
	ctx context.Context,
	chatID int64,
	text string,
	keyboard *models.InlineKeyboardMarkup,
) error {
	normalizedText := strings.ToValidUTF8(text, "?")
	if normalizedText != text {
		b.log.WarnContext(ctx, "Message text had invalid UTF-8 and was normalized",
			"chatID", chatID,
			"originalLen", len(text),
			"normalizedLen", len(normalizedText))
	}

	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   normalizedText,
		// See https://core.telegram.org/bots/api#markdownv2-style.
		ParseMode: models.ParseModeMarkdown,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: bot.True(),
		},
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := b.sender.SendMessage(ctx, params)
	return err
}

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) error {
	return b.sendMessageWithKeyboard(ctx, chatID, text, nil)
}

func getReturnKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "⬅️ Return to menu", CallbackData: "menu"}},
		},
	}
}

func getMenuKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "📄 Following", CallbackData: "menu_list"},
				{Text: "🔄 Sync now", CallbackData: "menu_sync"},
			},
			{
				{Text: "🔔 Notifications", CallbackData: "menu_notify"},
			},
		},
	}
}

func getNotifyKeyboard(flags domain.NotifyFlags) *models.InlineKeyboardMarkup {
	var keyboard [][]models.InlineKeyboardButton
	var row []models.InlineKeyboardButton

	for _, name := range domain.NotifyFlagNames() {
		flag, _ := domain.ParseNotifyFlag(name)

		mark := "▫️"
		if flags.Has(flag) {
			mark = "✅"
		}

		row = append(row, models.InlineKeyboardButton{
			Text:         mark + " " + name,
			CallbackData: notifyToggleCallbackPrefix + name,
		})

		if len(row) == notifyKeyboardRowSize {
			keyboard = append(keyboard, row)
			row = nil
		}
	}

	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}

	keyboard = append(keyboard, getReturnKeyboard().InlineKeyboard...)

	return &models.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}

func getListKeyboard(subs []domain.Subscription) *models.InlineKeyboardMarkup {
	keyboard := make([][]models.InlineKeyboardButton, 0, len(subs)+1)

	for _, sub := range subs {
		keyboard = append(keyboard, []models.InlineKeyboardButton{{
			Text:         "✖️ Unfollow " + sub.AccountName,
			CallbackData: unfollowCallbackPrefix + sub.AccountName,
		}})
	}

	keyboard = append(keyboard, getReturnKeyboard().InlineKeyboard...)

	return &models.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}
