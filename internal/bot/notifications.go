package bot

import (
	"annictgram/internal/domain"
	"annictgram/internal/markdown"
	"annictgram/internal/summarizer"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	profileURLPrefix = "https://annict.com/@"
	maxReviewRunes   = 1024
)

// Deliver sends the activities of one sync to the subscription's chat,
// oldest-first, skipping those the chat's notify flags exclude. Send errors
// are collected so that one failed message does not stop the rest.
func (b *Bot) Deliver(ctx context.Context, sub domain.Subscription, activities []domain.Activity) error {
	if len(activities) == 0 {
		return nil
	}

	settings, err := b.store.GetChatSettingsWithDefault(ctx, sub.ChatID)
	if err != nil {
		return fmt.Errorf("get chat settings with default: %w", err)
	}

	var errs []error
	delivered := 0

	for _, activity := range expandActivities(activities) {
		if !settings.NotifyFlags.Allows(activity) {
			continue
		}

		text := b.renderActivity(ctx, sub.AccountName, activity)

		if err = b.sendMessage(ctx, sub.ChatID, text); err != nil {
			errs = append(errs, fmt.Errorf("send message: %w", err))
			continue
		}

		delivered++
	}

	b.log.DebugContext(ctx, "Activities are delivered",
		"subscriptionID", sub.ID,
		"chatID", sub.ChatID,
		"account", sub.AccountName,
		"activityCount", len(activities),
		"deliveredCount", delivered)

	return errors.Join(errs...)
}

// expandActivities replaces every batch with its records.
func expandActivities(activities []domain.Activity) []domain.Activity {
	expanded := make([]domain.Activity, 0, len(activities))

	for _, activity := range activities {
		batch, ok := activity.(domain.BatchEpisodeRecord)
		if !ok {
			expanded = append(expanded, activity)
			continue
		}

		for _, record := range batch.Records {
			expanded = append(expanded, record)
		}
	}

	return expanded
}

func (b *Bot) renderActivity(ctx context.Context, account string, activity domain.Activity) string {
	var message strings.Builder

	message.WriteString("👤 ")
	message.WriteString(markdown.Link("@"+account, profileURLPrefix+account))
	message.WriteString("\n\n")

	switch a := activity.(type) {
	case domain.StatusChange:
		renderStatusChange(&message, a)
	case domain.EpisodeRecord:
		renderEpisodeRecord(&message, a)
	case domain.Review:
		b.renderReview(ctx, &message, account, a)
	}

	return strings.TrimRight(message.String(), "\n")
}

func renderStatusChange(message *strings.Builder, status domain.StatusChange) {
	message.WriteString(status.State.Emoji() + " " + markdown.Bold(status.Work.Title) + "\n")
	message.WriteString(markdown.EscapeV2(status.State.Label()))
}

func renderEpisodeRecord(message *strings.Builder, record domain.EpisodeRecord) {
	message.WriteString("📺 " + markdown.Bold(record.Work.Title) + "\n")

	if episode := episodeLine(record.Episode); episode != "" {
		message.WriteString(markdown.EscapeV2(episode) + "\n")
	}

	if record.RatingState != nil {
		message.WriteString(ratingLine("Rating", *record.RatingState) + "\n")
	}

	if record.HasComment() {
		message.WriteString("\n" + markdown.EscapeV2(*record.Comment))
	}
}

// episodeLine renders "Episode 3 «Title»", the number text replacing the
// number when present.
func episodeLine(episode domain.Episode) string {
	var number string

	switch {
	case episode.NumberText != nil && *episode.NumberText != "":
		number = *episode.NumberText
	case episode.Number != nil:
		number = "Episode " + strconv.Itoa(*episode.Number)
	}

	if episode.Title == nil || *episode.Title == "" {
		return number
	}

	title := "«" + *episode.Title + "»"
	if number == "" {
		return title
	}

	return number + " " + title
}

func (b *Bot) renderReview(
	ctx context.Context,
	message *strings.Builder,
	account string,
	review domain.Review,
) {
	message.WriteString("📝 " + markdown.Bold(review.Work.Title) + "\n")

	ratings := []struct {
		label string
		state *domain.RatingState
	}{
		{"Overall", review.RatingOverallState},
		{"Animation", review.RatingAnimationState},
		{"Character", review.RatingCharacterState},
		{"Story", review.RatingStoryState},
		{"Music", review.RatingMusicState},
	}

	for _, rating := range ratings {
		if rating.state != nil {
			message.WriteString(ratingLine(rating.label, *rating.state) + "\n")
		}
	}

	body := strings.TrimSpace(review.Body)
	if body == "" {
		return
	}

	message.WriteString("\n" + markdown.EscapeV2(b.reviewBody(ctx, account, review.Work.Title, body)))
}

// reviewBody shortens bodies over the message budget, with the summarizer
// when one is configured and by truncation otherwise.
func (b *Bot) reviewBody(ctx context.Context, account, title, body string) string {
	if utf8.RuneCountInString(body) <= maxReviewRunes {
		return body
	}

	if b.summarizer != nil {
		summary, err := b.summarizer.Summarize(ctx, summarizer.Input{
			Text:      body,
			Title:     title,
			SourceURL: profileURLPrefix + account,
		})
		if err == nil && strings.TrimSpace(summary) != "" {
			return markdown.Truncate(strings.TrimSpace(summary), maxReviewRunes)
		}

		b.log.WarnContext(ctx, "Failed to summarize review, truncating",
			"error", err,
			"title", title,
			"bodyRunes", utf8.RuneCountInString(body))
	}

	return markdown.Truncate(body, maxReviewRunes)
}

func ratingLine(label string, state domain.RatingState) string {
	return markdown.EscapeV2(label+": ") + state.Emoji() + " " + markdown.EscapeV2(state.Label())
}
