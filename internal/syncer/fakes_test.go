package syncer_test

import (
	"annictgram/internal/domain"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

//nolint:gochecknoglobals // Fixed test clock.
var baseTime = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

func at(hour int) time.Time {
	return baseTime.Add(time.Duration(hour) * time.Hour)
}

func activity(title string, hour int) domain.Activity {
	return domain.StatusChange{
		Work:    domain.Work{Title: title},
		State:   domain.StatusWatched,
		Created: at(hour),
	}
}

func titles(activities []domain.Activity) []string {
	out := make([]string, 0, len(activities))
	for _, a := range activities {
		switch v := a.(type) {
		case domain.StatusChange:
			out = append(out, v.Work.Title)
		default:
			out = append(out, fmt.Sprintf("%T", a))
		}
	}

	return out
}

func strPtr(s string) *string {
	return &s
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// positionalFeed hands out cursors by position, like a provider that
// renumbers its cursors when items are deleted.
type positionalFeed struct {
	mu             sync.Mutex
	items          []domain.Activity
	accountMissing bool
	beforeErr      error
	afterCalls     int
	beforeCalls    int
}

func cursorAt(i int) string {
	return "c" + strconv.Itoa(i+1)
}

func position(cursor string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(cursor, "c"))
	if err != nil {
		panic(err)
	}

	return n
}

func (f *positionalFeed) append(items ...domain.Activity) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = append(f.items, items...)
}

func (f *positionalFeed) remove(title string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, item := range f.items {
		if titles([]domain.Activity{item})[0] == title {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return
		}
	}
}

func (f *positionalFeed) FetchAfter(
	_ context.Context,
	_ string,
	limit *int,
	after *string,
) (domain.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.afterCalls++
	if f.accountMissing {
		return domain.Page{}, domain.ErrAccountNotFound
	}

	start := 0
	if after != nil {
		start = min(position(*after), len(f.items))
	}

	return f.page(start, len(f.items), limit), nil
}

func (f *positionalFeed) FetchBefore(
	_ context.Context,
	_ string,
	limit *int,
	before *string,
) (domain.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.beforeCalls++
	if f.accountMissing {
		return domain.Page{}, domain.ErrAccountNotFound
	}
	if f.beforeErr != nil {
		return domain.Page{}, f.beforeErr
	}

	end := len(f.items)
	if before != nil {
		end = max(min(position(*before)-1, len(f.items)), 0)
	}

	return f.page(0, end, limit), nil
}

func (f *positionalFeed) page(start, end int, limit *int) domain.Page {
	if limit != nil && end-start > *limit {
		start = end - *limit
	}

	var page domain.Page
	for i := start; i < end; i++ {
		page.Edges = append(page.Edges, domain.Edge{Activity: f.items[i], Cursor: cursorAt(i)})
	}

	if len(page.Edges) > 0 {
		page.StartCursor = strPtr(page.Edges[0].Cursor)
		page.EndCursor = strPtr(page.Edges[len(page.Edges)-1].Cursor)
	}

	return page
}

// scriptedFeed answers from fixed pages keyed by cursor; "" stands for nil.
type scriptedFeed struct {
	after         map[string]domain.Page
	before        map[string]domain.Page
	beforeCursors []string
}

func cursorKey(cursor *string) string {
	if cursor == nil {
		return ""
	}

	return *cursor
}

func (f *scriptedFeed) FetchAfter(
	_ context.Context,
	_ string,
	_ *int,
	after *string,
) (domain.Page, error) {
	page, ok := f.after[cursorKey(after)]
	if !ok {
		return domain.Page{}, fmt.Errorf("unexpected after cursor %q", cursorKey(after))
	}

	return page, nil
}

func (f *scriptedFeed) FetchBefore(
	_ context.Context,
	_ string,
	_ *int,
	before *string,
) (domain.Page, error) {
	f.beforeCursors = append(f.beforeCursors, cursorKey(before))

	page, ok := f.before[cursorKey(before)]
	if !ok {
		return domain.Page{}, fmt.Errorf("unexpected before cursor %q", cursorKey(before))
	}

	return page, nil
}

func edgePage(edges ...domain.Edge) domain.Page {
	page := domain.Page{Edges: edges}
	if len(edges) > 0 {
		page.StartCursor = strPtr(edges[0].Cursor)
		page.EndCursor = strPtr(edges[len(edges)-1].Cursor)
	}

	return page
}

type memoryStore struct {
	mu          sync.Mutex
	checkpoints map[int64]domain.Checkpoint
	saves       int
	saveErr     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{checkpoints: make(map[int64]domain.Checkpoint)}
}

func (s *memoryStore) LoadCheckpoint(_ context.Context, id int64) (domain.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp, ok := s.checkpoints[id]
	if !ok {
		return domain.Checkpoint{}, errors.New("no such subscription")
	}

	return cp, nil
}

func (s *memoryStore) SaveCheckpoint(_ context.Context, id int64, cp domain.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveErr != nil {
		return s.saveErr
	}

	s.saves++
	s.checkpoints[id] = cp

	return nil
}

func (s *memoryStore) get(id int64) domain.Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.checkpoints[id]
}
