package ratelimiter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []time.Time
	texts []string
	err   error
}

func (s *recordingSender) SendMessage(
	_ context.Context,
	params *bot.SendMessageParams,
) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, time.Now())
	s.texts = append(s.texts, params.Text)
	if s.err != nil {
		return nil, s.err
	}

	return &models.Message{ID: len(s.sent), Text: params.Text}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetDelay(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		chatID   int64
		lastSent time.Time
		wantZero bool
	}{
		{
			"Private chat - no delay needed",
			123456789,
			now.Add(-2 * time.Second),
			true,
		},
		{
			"Private chat - delay needed",
			123456789,
			now.Add(-500 * time.Millisecond),
			false,
		},
		{
			"Group chat - no delay needed",
			-123456789,
			now.Add(-4 * time.Second),
			true,
		},
		{
			"Group chat - delay needed",
			-123456789,
			now.Add(-1 * time.Second),
			false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := getDelay(test.chatID, test.lastSent)

			if test.wantZero && got > 0 {
				t.Errorf("Expected zero delay, got %v", got)
			}

			if !test.wantZero && got <= 0 {
				t.Errorf("Expected positive delay, got %v", got)
			}
		})
	}
}

func TestGetChatID(t *testing.T) {
	tests := []struct {
		name   string
		chatID any
		want   int64
	}{
		{"int64", int64(12345), 12345},
		{"int", -67890, -67890},
		{"numeric string", "-100123", -100123},
		{"username", "@channel", 0},
		{"nil", nil, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := getChatID(test.chatID); got != test.want {
				t.Errorf("Expected %d, got %d", test.want, got)
			}
		})
	}
}

func TestSendMessageSpacesPrivateChat(t *testing.T) {
	sender := &recordingSender{}
	rl := New(sender, discardLogger())
	defer rl.Stop()

	ctx := context.Background()
	for _, text := range []string{"first", "second"} {
		msg, err := rl.SendMessage(ctx, &bot.SendMessageParams{ChatID: int64(42), Text: text})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if msg.Text != text {
			t.Fatalf("unexpected message text: %q", msg.Text)
		}
	}

	if gap := sender.sent[1].Sub(sender.sent[0]); gap < privateChatRate-50*time.Millisecond {
		t.Fatalf("expected messages spaced by about %v, got %v", privateChatRate, gap)
	}
}

func TestSendMessageReturnsSenderError(t *testing.T) {
	wantErr := errors.New("forbidden")
	rl := New(&recordingSender{err: wantErr}, discardLogger())
	defer rl.Stop()

	_, err := rl.SendMessage(context.Background(), &bot.SendMessageParams{ChatID: int64(1), Text: "x"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected sender error, got %v", err)
	}
}

func TestSendMessageAfterStop(t *testing.T) {
	sender := &recordingSender{}
	rl := New(sender, discardLogger())
	rl.Stop()

	_, err := rl.SendMessage(context.Background(), &bot.SendMessageParams{ChatID: int64(1), Text: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(sender.texts) != 0 {
		t.Fatalf("expected nothing sent after stop, got %v", sender.texts)
	}
}

func TestSendMessageCanceledWhileWaiting(t *testing.T) {
	sender := &recordingSender{}
	rl := New(sender, discardLogger())
	defer rl.Stop()

	if _, err := rl.SendMessage(context.Background(), &bot.SendMessageParams{ChatID: int64(-5), Text: "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := rl.SendMessage(ctx, &bot.SendMessageParams{ChatID: int64(-5), Text: "b"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
