package domain

import "time"

// Activity is one entry of an account's feed. The set of implementations is
// closed: StatusChange, EpisodeRecord, BatchEpisodeRecord and Review.
type Activity interface {
	CreatedAt() time.Time
	activity()
}

type Work struct {
	Title string
}

type StatusChange struct {
	Work    Work
	State   StatusState
	Created time.Time
}

type Episode struct {
	Number     *int
	NumberText *string
	Title      *string
}

type EpisodeRecord struct {
	Work        Work
	Episode     Episode
	Comment     *string
	RatingState *RatingState
	Created     time.Time
}

// BatchEpisodeRecord bundles records created in one action.
type BatchEpisodeRecord struct {
	Work    Work
	Records []EpisodeRecord
	Created time.Time
}

type Review struct {
	Work                 Work
	Body                 string
	RatingOverallState   *RatingState
	RatingAnimationState *RatingState
	RatingCharacterState *RatingState
	RatingStoryState     *RatingState
	RatingMusicState     *RatingState
	Created              time.Time
}

func (a StatusChange) CreatedAt() time.Time       { return a.Created }
func (a EpisodeRecord) CreatedAt() time.Time      { return a.Created }
func (a BatchEpisodeRecord) CreatedAt() time.Time { return a.Created }
func (a Review) CreatedAt() time.Time             { return a.Created }

func (StatusChange) activity()       {}
func (EpisodeRecord) activity()      {}
func (BatchEpisodeRecord) activity() {}
func (Review) activity()             {}

// HasComment reports whether the record carries a non-empty comment.
func (a EpisodeRecord) HasComment() bool {
	return a.Comment != nil && *a.Comment != ""
}

type StatusState string

const (
	StatusNoState      StatusState = "NO_STATE"
	StatusOnHold       StatusState = "ON_HOLD"
	StatusStopWatching StatusState = "STOP_WATCHING"
	StatusWannaWatch   StatusState = "WANNA_WATCH"
	StatusWatched      StatusState = "WATCHED"
	StatusWatching     StatusState = "WATCHING"
)

func (s StatusState) Valid() bool {
	switch s {
	case StatusNoState, StatusOnHold, StatusStopWatching, StatusWannaWatch, StatusWatched, StatusWatching:
		return true
	default:
		return false
	}
}

func (s StatusState) Label() string {
	switch s {
	case StatusNoState:
		return "No status"
	case StatusOnHold:
		return "On hold"
	case StatusStopWatching:
		return "Dropped"
	case StatusWannaWatch:
		return "Plan to watch"
	case StatusWatched:
		return "Watched"
	case StatusWatching:
		return "Watching"
	default:
		return string(s)
	}
}

func (s StatusState) Emoji() string {
	switch s {
	case StatusOnHold:
		return "⏸"
	case StatusStopWatching:
		return "⏹"
	case StatusWannaWatch:
		return "🔖"
	case StatusWatched:
		return "✅"
	case StatusWatching:
		return "▶️"
	default:
		return "▫️"
	}
}

type RatingState string

const (
	RatingAverage RatingState = "AVERAGE"
	RatingBad     RatingState = "BAD"
	RatingGood    RatingState = "GOOD"
	RatingGreat   RatingState = "GREAT"
)

func (r RatingState) Valid() bool {
	switch r {
	case RatingAverage, RatingBad, RatingGood, RatingGreat:
		return true
	default:
		return false
	}
}

func (r RatingState) Label() string {
	switch r {
	case RatingAverage:
		return "Average"
	case RatingBad:
		return "Bad"
	case RatingGood:
		return "Good"
	case RatingGreat:
		return "Great"
	default:
		return string(r)
	}
}

func (r RatingState) Emoji() string {
	switch r {
	case RatingBad:
		return "⚪"
	case RatingGood:
		return "🟢"
	case RatingGreat:
		return "🔵"
	default:
		return "🟠"
	}
}
