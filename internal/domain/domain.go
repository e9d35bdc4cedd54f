package domain

import "time"

// Checkpoint is how far a subscription has been synchronized. Cursor is nil
// iff the account had no observed activities at the last sync.
type Checkpoint struct {
	Cursor *string
	Time   *time.Time
}

type Subscription struct {
	ID          int64
	ChatID      int64
	UserID      int64
	AccountName string
	Checkpoint  Checkpoint
}

type ChatSettings struct {
	ChatID      int64
	NotifyFlags NotifyFlags
}

type Edge struct {
	Activity Activity
	Cursor   string
}

// Page is one feed query result. Edges are ordered oldest-first.
type Page struct {
	Edges       []Edge
	StartCursor *string
	EndCursor   *string
}

func (p Page) Activities() []Activity {
	activities := make([]Activity, 0, len(p.Edges))
	for _, edge := range p.Edges {
		activities = append(activities, edge.Activity)
	}

	return activities
}

// Last returns the newest activity of the page.
func (p Page) Last() (Activity, bool) {
	if len(p.Edges) == 0 {
		return nil, false
	}

	return p.Edges[len(p.Edges)-1].Activity, true
}
