package syncer

import (
	"annictgram/internal/domain"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

const DefaultBackwardPageSize = 1

var errBackwardWalkStalled = errors.New("backward walk did not advance")

type FeedClient interface {
	FetchAfter(ctx context.Context, account string, limit *int, after *string) (domain.Page, error)
	FetchBefore(ctx context.Context, account string, limit *int, before *string) (domain.Page, error)
}

type CheckpointStore interface {
	LoadCheckpoint(ctx context.Context, subscriptionID int64) (domain.Checkpoint, error)
	SaveCheckpoint(ctx context.Context, subscriptionID int64, checkpoint domain.Checkpoint) error
}

// Result is the outcome of one sync: activities new since the previous
// checkpoint, oldest-first, and the checkpoint that was stored.
type Result struct {
	Activities []domain.Activity
	Checkpoint domain.Checkpoint
}

type Engine struct {
	feed             FeedClient
	store            CheckpointStore
	backwardPageSize int
	locks            *keyedMutex
	log              *slog.Logger
}

func NewEngine(
	feed FeedClient,
	store CheckpointStore,
	backwardPageSize int,
	log *slog.Logger,
) *Engine {
	if backwardPageSize <= 0 {
		backwardPageSize = DefaultBackwardPageSize
	}

	return &Engine{
		feed:             feed,
		store:            store,
		backwardPageSize: backwardPageSize,
		locks:            newKeyedMutex(),
		log:              log,
	}
}

// Register takes a one-item snapshot of the account feed and returns the
// checkpoint a new subscription starts from. It returns
// domain.ErrAccountNotFound when the account does not exist.
func (e *Engine) Register(ctx context.Context, account string) (domain.Checkpoint, error) {
	limit := 1

	page, err := e.feed.FetchAfter(ctx, account, &limit, nil)
	if err != nil {
		return domain.Checkpoint{}, fmt.Errorf("fetch after: %w", err)
	}

	checkpoint := domain.Checkpoint{Cursor: endCursor(page)}
	if last, ok := page.Last(); ok {
		checkpoint.Time = timePtr(last.CreatedAt())
	}

	e.log.DebugContext(ctx, "Account is registered",
		"account", account,
		"cursor", checkpoint.Cursor,
		"time", checkpoint.Time)

	return checkpoint, nil
}

// Sync computes the activities added to the subscription's feed since its
// stored checkpoint and stores the new checkpoint. Nothing is stored when an
// error is returned. Syncs of the same subscription are serialized.
func (e *Engine) Sync(ctx context.Context, sub domain.Subscription) (Result, error) {
	unlock := e.locks.lock(sub.ID)
	defer unlock()

	checkpoint, err := e.store.LoadCheckpoint(ctx, sub.ID)
	if err != nil {
		return Result{}, fmt.Errorf("load checkpoint: %w", err)
	}

	if checkpoint.Cursor != nil && checkpoint.Time == nil {
		return Result{}, fmt.Errorf("subscription %d: %w", sub.ID, domain.ErrCorruptCheckpoint)
	}

	forward, err := e.feed.FetchAfter(ctx, sub.AccountName, nil, checkpoint.Cursor)
	if err != nil {
		return Result{}, fmt.Errorf("fetch after: %w", err)
	}

	var result Result
	if checkpoint.Cursor == nil {
		result = e.syncFromEmpty(checkpoint, forward)
	} else {
		result, err = e.reconcile(ctx, sub.AccountName, checkpoint, forward)
		if err != nil {
			return Result{}, err
		}
	}

	if err = e.store.SaveCheckpoint(ctx, sub.ID, result.Checkpoint); err != nil {
		return Result{}, fmt.Errorf("save checkpoint: %w", err)
	}

	e.log.DebugContext(ctx, "Subscription is synced",
		"subscriptionID", sub.ID,
		"account", sub.AccountName,
		"forwardCount", len(forward.Edges),
		"activityCount", len(result.Activities),
		"cursor", result.Checkpoint.Cursor)

	return result, nil
}

// syncFromEmpty handles a checkpoint without cursor: the account had nothing
// before, so the forward page is complete.
func (e *Engine) syncFromEmpty(checkpoint domain.Checkpoint, forward domain.Page) Result {
	next := domain.Checkpoint{
		Cursor: endCursor(forward),
		Time:   checkpoint.Time,
	}
	if last, ok := forward.Last(); ok {
		next.Time = timePtr(last.CreatedAt())
	}

	return Result{Activities: forward.Activities(), Checkpoint: next}
}

// reconcile walks backward from the start of the forward page and collects
// activities newer than the checkpoint time that the forward page missed
// because the provider shifted cursors. With an empty forward page the walk
// starts at the head of the feed.
func (e *Engine) reconcile(
	ctx context.Context,
	account string,
	checkpoint domain.Checkpoint,
	forward domain.Page,
) (Result, error) {
	end := endCursor(forward)
	cursor := startCursor(forward)
	limit := e.backwardPageSize

	var collected []domain.Activity // newest-first

walk:
	for {
		page, err := e.feed.FetchBefore(ctx, account, &limit, cursor)
		if err != nil {
			return Result{}, fmt.Errorf("fetch before: %w", err)
		}

		if len(page.Edges) == 0 {
			break
		}

		previous := cursor

		for i := len(page.Edges) - 1; i >= 0; i-- {
			edge := page.Edges[i]

			if end == nil {
				end = stringPtr(edge.Cursor)
			}

			if !edge.Activity.CreatedAt().After(*checkpoint.Time) {
				break walk
			}

			collected = append(collected, edge.Activity)
			cursor = stringPtr(edge.Cursor)
		}

		if previous != nil && *previous == *cursor {
			return Result{}, fmt.Errorf("fetch before (cursor = %s): %w", *cursor, errBackwardWalkStalled)
		}
	}

	slices.Reverse(collected)

	if len(collected) > 0 {
		e.log.InfoContext(ctx, "Recovered activities missing from forward page",
			"account", account,
			"recoveredCount", len(collected),
			"checkpointTime", checkpoint.Time)
	}

	activities := append(collected, forward.Activities()...)

	next := domain.Checkpoint{Cursor: end, Time: checkpoint.Time}
	if len(activities) > 0 {
		next.Time = timePtr(activities[len(activities)-1].CreatedAt())
	}

	return Result{Activities: activities, Checkpoint: next}, nil
}

func endCursor(page domain.Page) *string {
	if page.EndCursor != nil {
		return page.EndCursor
	}

	if len(page.Edges) > 0 {
		return stringPtr(page.Edges[len(page.Edges)-1].Cursor)
	}

	return nil
}

func startCursor(page domain.Page) *string {
	if page.StartCursor != nil {
		return page.StartCursor
	}

	if len(page.Edges) > 0 {
		return stringPtr(page.Edges[0].Cursor)
	}

	return nil
}

func stringPtr(s string) *string {
	return &s
}

func timePtr(t time.Time) *time.Time {
	return &t
}
