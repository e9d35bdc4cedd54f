package bot

import (
	"context"
	"strings"

	"github.com/go-telegram/bot/models"
)

func (b *Bot) handleMessage(ctx context.Context, message *models.Message) error {
	chatID := message.Chat.ID
	userID := senderID(message)

	command, args := splitCommand(message.Text)

	switch command {
	case "/start":
		return b.handleStartCommand(ctx, chatID)
	case "/menu":
		return b.handleMenuCommand(ctx, chatID)
	case "/follow":
		return b.handleFollowCommand(ctx, args, chatID, userID)
	case "/unfollow":
		return b.handleUnfollowCommand(ctx, args, chatID)
	case "/list":
		return b.handleListCommand(ctx, chatID)
	case "/notify":
		return b.handleNotifyCommand(ctx, args, chatID)
	case "/sync":
		return b.handleSyncCommand(ctx, chatID)
	default:
		// A profile URL sent to a private chat is a follow request.
		if command == "" && message.Chat.Type == models.ChatTypePrivate && hasProfileURL(args) {
			return b.handleFollowCommand(ctx, args, chatID, userID)
		}

		return nil
	}
}

// splitCommand separates "/cmd@botname args" into "/cmd" and "args". The
// command is empty for text that is not a command.
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}

	command, args, _ := strings.Cut(text, " ")
	command, _, _ = strings.Cut(command, "@")

	return strings.ToLower(command), strings.TrimSpace(args)
}
