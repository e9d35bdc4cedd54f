package bot

import (
	"annictgram/internal/domain"
	"annictgram/internal/markdown"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"mvdan.cc/xurls/v2"
)

const welcomeText = `🤖 *Welcome to Annictgram\!*

I follow [Annict](https://annict.com/) users and post their activity here:

– Follow a user with /follow \<username or profile URL\>
– Unfollow with /unfollow \<username\> or from /list
– Choose what to receive with /notify \[status\] \[record\] \[review\] \[with\_comment\] \[without\_comment\]
– Check for new activity right now with /sync`

const notifyText = `*🔔 Notifications*

Enabled: %s

Flags are completed automatically, e\.g\. choosing only *record* enables both comment filters\.`

//nolint:gochecknoglobals // Compiled once, never modified.
var (
	accountNameRe = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)
	urlRe         = xurls.Strict()
)

var errInvalidAccount = errors.New("invalid account name")

func (b *Bot) handleStartCommand(ctx context.Context, chatID int64) error {
	return b.sendMessageWithKeyboard(ctx, chatID, welcomeText, b.menuKeyboard)
}

func (b *Bot) handleMenuCommand(ctx context.Context, chatID int64) error {
	return b.sendMessageWithKeyboard(ctx, chatID, "❔ *Choose an option:*", b.menuKeyboard)
}

func (b *Bot) handleFollowCommand(ctx context.Context, args string, chatID int64, userID int64) error {
	account, err := parseAccount(args)
	if err != nil {
		return b.sendMessageWithKeyboard(ctx, chatID,
			"✖️ Send /follow with an Annict username or profile URL\\.", b.returnKeyboard)
	}

	checkpoint, err := b.syncer.Register(ctx, account)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return b.sendMessageWithKeyboard(ctx, chatID,
			fmt.Sprintf("✖️ Annict user %s does not exist\\.", markdown.Bold(account)), b.returnKeyboard)
	}
	if err != nil {
		errs := []error{fmt.Errorf("register account: %w", err)}

		sendErr := b.sendMessageWithKeyboard(ctx, chatID, "❌ Failed\\.", b.returnKeyboard)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	if _, err = b.store.UpsertSubscription(ctx, chatID, userID, account, checkpoint); err != nil {
		errs := []error{fmt.Errorf("upsert subscription: %w", err)}

		sendErr := b.sendMessageWithKeyboard(ctx, chatID, "❌ Failed\\.", b.returnKeyboard)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	b.log.InfoContext(ctx, "Account is followed",
		"chatID", chatID,
		"userID", userID,
		"account", account)

	return b.sendMessageWithKeyboard(ctx, chatID,
		fmt.Sprintf("✅ Following %s\\.", markdown.Link("@"+account, profileURLPrefix+account)),
		b.returnKeyboard)
}

func (b *Bot) handleUnfollowCommand(ctx context.Context, args string, chatID int64) error {
	account, err := parseAccount(args)
	if err != nil {
		return b.sendMessageWithKeyboard(ctx, chatID,
			"✖️ Send /unfollow with an Annict username\\.", b.returnKeyboard)
	}

	return b.unfollow(ctx, account, chatID)
}

func (b *Bot) unfollow(ctx context.Context, account string, chatID int64) error {
	removed, err := b.store.RemoveSubscription(ctx, chatID, account)
	if err != nil {
		errs := []error{fmt.Errorf("remove subscription: %w", err)}

		sendErr := b.sendMessageWithKeyboard(ctx, chatID, "❌ Failed\\.", b.returnKeyboard)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	if !removed {
		return b.sendMessageWithKeyboard(ctx, chatID,
			fmt.Sprintf("✖️ %s is not followed here\\.", markdown.Bold(account)), b.returnKeyboard)
	}

	return b.sendMessageWithKeyboard(ctx, chatID,
		fmt.Sprintf("✅ %s is unfollowed\\.", markdown.Bold(account)), b.returnKeyboard)
}

func (b *Bot) handleListCommand(ctx context.Context, chatID int64) error {
	subs, err := b.store.GetChatSubscriptions(ctx, chatID)

	if len(subs) == 0 {
		var errs []error
		if err != nil {
			errs = append(errs, fmt.Errorf("get chat subscriptions: %w", err))
		}

		sendErr := b.sendMessageWithKeyboard(ctx, chatID,
			"✖️ Nobody is followed here yet or there is a bug\\.", b.returnKeyboard)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	var message strings.Builder
	message.WriteString(fmt.Sprintf("🔍 *Following %d users:*\n\n", len(subs)))

	for i, sub := range subs {
		message.WriteString(fmt.Sprintf("%d\\. %s\n",
			i+1,
			markdown.Link("@"+sub.AccountName, profileURLPrefix+sub.AccountName)))
	}

	if err = b.sendMessageWithKeyboard(ctx, chatID, message.String(), getListKeyboard(subs)); err != nil {
		return fmt.Errorf("send message with keyboard: %w", err)
	}

	return nil
}

// handleNotifyCommand shows the chat's notify flags, or replaces them when
// flag names are given.
func (b *Bot) handleNotifyCommand(ctx context.Context, args string, chatID int64) error {
	names := strings.Fields(args)
	if len(names) == 0 {
		settings, err := b.store.GetChatSettingsWithDefault(ctx, chatID)
		if err != nil {
			errs := []error{fmt.Errorf("get chat settings with default: %w", err)}

			sendErr := b.sendMessageWithKeyboard(ctx, chatID, "❌ Failed\\.", b.returnKeyboard)
			if sendErr != nil {
				errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
			}

			return errors.Join(errs...)
		}

		return b.sendNotifySettings(ctx, chatID, settings.NotifyFlags)
	}

	var flags domain.NotifyFlags
	for _, name := range names {
		flag, err := domain.ParseNotifyFlag(name)
		if err != nil {
			return b.sendMessageWithKeyboard(ctx, chatID,
				fmt.Sprintf("✖️ Unknown flag %s\\. Known flags: %s\\.",
					markdown.Bold(name),
					markdown.EscapeV2(strings.Join(domain.NotifyFlagNames(), ", "))),
				b.returnKeyboard)
		}

		flags |= flag
	}

	return b.setNotifyFlags(ctx, chatID, flags)
}

func (b *Bot) setNotifyFlags(ctx context.Context, chatID int64, flags domain.NotifyFlags) error {
	flags = domain.NormalizeNotifyFlags(flags)

	if err := b.store.UpsertChatSettings(ctx, domain.ChatSettings{
		ChatID:      chatID,
		NotifyFlags: flags,
	}); err != nil {
		errs := []error{fmt.Errorf("upsert chat settings: %w", err)}

		sendErr := b.sendMessageWithKeyboard(ctx, chatID, "❌ Failed\\.", b.returnKeyboard)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	return b.sendNotifySettings(ctx, chatID, flags)
}

func (b *Bot) sendNotifySettings(ctx context.Context, chatID int64, flags domain.NotifyFlags) error {
	return b.sendMessageWithKeyboard(ctx, chatID,
		fmt.Sprintf(notifyText, markdown.EscapeV2(strings.Join(flags.Names(), ", "))),
		getNotifyKeyboard(flags))
}

// handleSyncCommand syncs every subscription of the chat and delivers what is
// new, the same way the scheduler does.
func (b *Bot) handleSyncCommand(ctx context.Context, chatID int64) error {
	subs, err := b.store.GetChatSubscriptions(ctx, chatID)

	if len(subs) == 0 {
		var errs []error
		if err != nil {
			errs = append(errs, fmt.Errorf("get chat subscriptions: %w", err))
		}

		sendErr := b.sendMessageWithKeyboard(ctx, chatID,
			"✖️ Nobody is followed here yet or there is a bug\\.", b.returnKeyboard)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	var errs []error
	if err != nil {
		errs = append(errs, fmt.Errorf("get chat subscriptions: %w", err))
	}

	total := 0
	failed := 0

	for _, sub := range subs {
		result, syncErr := b.syncer.Sync(ctx, sub)
		if syncErr != nil {
			failed++
			errs = append(errs, fmt.Errorf("sync %s: %w", sub.AccountName, syncErr))

			continue
		}

		total += len(result.Activities)

		if deliverErr := b.Deliver(ctx, sub, result.Activities); deliverErr != nil {
			errs = append(errs, fmt.Errorf("deliver %s: %w", sub.AccountName, deliverErr))
		}
	}

	text := fmt.Sprintf("✅ Synced, %d new activities\\.", total)
	if failed > 0 {
		text = fmt.Sprintf("⚠️ Partial success \\(%d of %d users failed, %d new activities\\)\\.",
			failed, len(subs), total)
	}

	if err = b.sendMessageWithKeyboard(ctx, chatID, text, b.returnKeyboard); err != nil {
		errs = append(errs, fmt.Errorf("send message with keyboard: %w", err))
	}

	return errors.Join(errs...)
}

// parseAccount accepts "name", "@name" or an Annict profile URL.
func parseAccount(text string) (string, error) {
	text = strings.TrimSpace(text)

	for _, raw := range urlRe.FindAllString(text, -1) {
		if account, ok := accountFromURL(raw); ok {
			return account, nil
		}
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", errInvalidAccount
	}

	account := strings.TrimPrefix(fields[0], "@")
	if !accountNameRe.MatchString(account) {
		return "", errInvalidAccount
	}

	return account, nil
}

func hasProfileURL(text string) bool {
	for _, raw := range urlRe.FindAllString(text, -1) {
		if _, ok := accountFromURL(raw); ok {
			return true
		}
	}

	return false
}

func accountFromURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host != "annict.com" && host != "annict.jp" {
		return "", false
	}

	segment, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")

	account, ok := strings.CutPrefix(segment, "@")
	if !ok || !accountNameRe.MatchString(account) {
		return "", false
	}

	return account, true
}
