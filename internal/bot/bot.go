package bot

import (
	"annictgram/internal/domain"
	"annictgram/internal/ratelimiter"
	"annictgram/internal/summarizer"
	"annictgram/internal/syncer"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const updateProcessingTimeout = 60 * time.Second

// Store is the persistence the bot needs for commands and delivery.
type Store interface {
	UpsertSubscription(
		ctx context.Context,
		chatID int64,
		userID int64,
		accountName string,
		checkpoint domain.Checkpoint,
	) (domain.Subscription, error)
	RemoveSubscription(ctx context.Context, chatID int64, accountName string) (bool, error)
	GetChatSubscriptions(ctx context.Context, chatID int64) ([]domain.Subscription, error)
	GetChatSettingsWithDefault(ctx context.Context, chatID int64) (domain.ChatSettings, error)
	UpsertChatSettings(ctx context.Context, settings domain.ChatSettings) error
}

// Syncer registers accounts and synchronizes subscriptions.
type Syncer interface {
	Register(ctx context.Context, account string) (domain.Checkpoint, error)
	Sync(ctx context.Context, sub domain.Subscription) (syncer.Result, error)
}

type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type Bot struct {
	api            *bot.Bot
	rateLimiter    *ratelimiter.RateLimiter
	sender         Sender
	store          Store
	syncer         Syncer
	summarizer     summarizer.Summarizer
	allowedUsers   []int64
	returnKeyboard *models.InlineKeyboardMarkup
	menuKeyboard   *models.InlineKeyboardMarkup
	log            *slog.Logger
}

// New connects to the Bot API. sum may be nil, in which case long review
// bodies are truncated instead of summarized.
func New(
	token string,
	store Store,
	syncer Syncer,
	sum summarizer.Summarizer,
	allowedUsers []int64,
	log *slog.Logger,
) (*Bot, error) {
	b := newBot(nil, store, syncer, sum, allowedUsers, log)

	api, err := bot.New(
		strings.TrimSpace(token),
		bot.WithDefaultHandler(b.handleUpdate),
		bot.WithMiddlewares(b.allowedUsersMiddleware),
		bot.WithErrorsHandler(func(err error) {
			log.Error("Bot API error", "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	b.api = api
	b.rateLimiter = ratelimiter.New(api, log)
	b.sender = b.rateLimiter

	return b, nil
}

func newBot(
	sender Sender,
	store Store,
	syncer Syncer,
	sum summarizer.Summarizer,
	allowedUsers []int64,
	log *slog.Logger,
) *Bot {
	return &Bot{
		sender:         sender,
		store:          store,
		syncer:         syncer,
		summarizer:     sum,
		allowedUsers:   allowedUsers,
		returnKeyboard: getReturnKeyboard(),
		menuKeyboard:   getMenuKeyboard(),
		log:            log,
	}
}

// Start processes updates with long polling until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	b.log.InfoContext(ctx, "Bot is started")

	b.api.Start(ctx)

	b.log.InfoContext(ctx, "Bot context is done",
		"error", ctx.Err())
}

func (b *Bot) Stop() {
	if b.rateLimiter != nil {
		b.rateLimiter.Stop()
	}
}

func (b *Bot) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	updateCtx, cancel := context.WithTimeout(ctx, updateProcessingTimeout)
	defer cancel()

	switch {
	case update.Message != nil:
		message := update.Message

		if err := b.withSpinner(updateCtx, message.Chat.ID, func() error {
			return b.handleMessage(updateCtx, message)
		}); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle message",
				"error", err,
				"chatID", message.Chat.ID,
				"userID", senderID(message),
				"chatType", message.Chat.Type,
				"messageID", message.ID)
		}

	case update.CallbackQuery != nil:
		callback := update.CallbackQuery
		chatID := callbackChatID(callback)

		if err := b.withSpinner(updateCtx, chatID, func() error {
			return b.handleCallbackQuery(updateCtx, callback)
		}); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle callback query",
				"error", err,
				"chatID", chatID,
				"userID", callback.From.ID,
				"data", callback.Data)
		}
	}
}

func (b *Bot) allowedUsersMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, api *bot.Bot, update *models.Update) {
		var userID int64
		var username string

		switch {
		case update.Message != nil && update.Message.From != nil:
			userID = update.Message.From.ID
			username = update.Message.From.Username
		case update.CallbackQuery != nil:
			userID = update.CallbackQuery.From.ID
			username = update.CallbackQuery.From.Username
		default:
			return
		}

		if !b.userAllowed(userID) {
			b.log.DebugContext(ctx, "User is not allowed",
				"userID", userID,
				"username", username)

			return
		}

		next(ctx, api, update)
	}
}

func (b *Bot) userAllowed(userID int64) bool {
	return len(b.allowedUsers) == 0 || slices.Contains(b.allowedUsers, userID)
}

func senderID(message *models.Message) int64 {
	if message.From == nil {
		return 0
	}

	return message.From.ID
}

func callbackChatID(cb *models.CallbackQuery) int64 {
	switch {
	case cb.Message.Message != nil:
		return cb.Message.Message.Chat.ID
	case cb.Message.InaccessibleMessage != nil:
		return cb.Message.InaccessibleMessage.Chat.ID
	default:
		return 0
	}
}
