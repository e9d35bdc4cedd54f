package bot

import (
	"annictgram/internal/domain"
	"annictgram/internal/summarizer"
	"annictgram/internal/syncer"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type fakeSender struct {
	mu     sync.Mutex
	params []*bot.SendMessageParams
	failOn map[string]bool
}

func (s *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failOn[params.Text] {
		return nil, errors.New("forbidden: bot was blocked by the user")
	}

	s.params = append(s.params, params)

	return &models.Message{ID: len(s.params), Text: params.Text}, nil
}

func (s *fakeSender) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	texts := make([]string, 0, len(s.params))
	for _, p := range s.params {
		texts = append(texts, p.Text)
	}

	return texts
}

type fakeStore struct {
	subs     []domain.Subscription
	settings map[int64]domain.ChatSettings
	nextID   int64
	err      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{settings: make(map[int64]domain.ChatSettings)}
}

func (s *fakeStore) UpsertSubscription(
	_ context.Context,
	chatID int64,
	userID int64,
	accountName string,
	checkpoint domain.Checkpoint,
) (domain.Subscription, error) {
	if s.err != nil {
		return domain.Subscription{}, s.err
	}

	for i, sub := range s.subs {
		if sub.ChatID == chatID && sub.AccountName == accountName {
			s.subs[i].UserID = userID
			s.subs[i].Checkpoint = checkpoint

			return s.subs[i], nil
		}
	}

	s.nextID++
	sub := domain.Subscription{
		ID:          s.nextID,
		ChatID:      chatID,
		UserID:      userID,
		AccountName: accountName,
		Checkpoint:  checkpoint,
	}
	s.subs = append(s.subs, sub)

	return sub, nil
}

func (s *fakeStore) RemoveSubscription(_ context.Context, chatID int64, accountName string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}

	for i, sub := range s.subs {
		if sub.ChatID == chatID && sub.AccountName == accountName {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)

			return true, nil
		}
	}

	return false, nil
}

func (s *fakeStore) GetChatSubscriptions(_ context.Context, chatID int64) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	for _, sub := range s.subs {
		if sub.ChatID == chatID {
			subs = append(subs, sub)
		}
	}

	return subs, s.err
}

func (s *fakeStore) GetChatSettingsWithDefault(_ context.Context, chatID int64) (domain.ChatSettings, error) {
	if s.err != nil {
		return domain.ChatSettings{}, s.err
	}

	settings, ok := s.settings[chatID]
	if !ok {
		return domain.ChatSettings{ChatID: chatID, NotifyFlags: domain.NotifyAll}, nil
	}

	return settings, nil
}

func (s *fakeStore) UpsertChatSettings(_ context.Context, settings domain.ChatSettings) error {
	if s.err != nil {
		return s.err
	}

	s.settings[settings.ChatID] = settings

	return nil
}

type fakeSyncer struct {
	registered  map[string]domain.Checkpoint
	results     map[string][]domain.Activity
	syncErrs    map[string]error
	synced      []string
	registerErr error
}

func (s *fakeSyncer) Register(_ context.Context, account string) (domain.Checkpoint, error) {
	if s.registerErr != nil {
		return domain.Checkpoint{}, s.registerErr
	}

	checkpoint, ok := s.registered[account]
	if !ok {
		return domain.Checkpoint{}, domain.ErrAccountNotFound
	}

	return checkpoint, nil
}

func (s *fakeSyncer) Sync(_ context.Context, sub domain.Subscription) (syncer.Result, error) {
	s.synced = append(s.synced, sub.AccountName)

	if err := s.syncErrs[sub.AccountName]; err != nil {
		return syncer.Result{}, err
	}

	return syncer.Result{Activities: s.results[sub.AccountName]}, nil
}

type stubSummarizer struct {
	summary string
	err     error
	inputs  []summarizer.Input
}

func (s *stubSummarizer) Summarize(_ context.Context, input summarizer.Input) (string, error) {
	s.inputs = append(s.inputs, input)

	return s.summary, s.err
}

func newTestBot(sender *fakeSender, store *fakeStore, syncer *fakeSyncer, sum summarizer.Summarizer) *Bot {
	return newBot(sender, store, syncer, sum, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}
