package domain

import (
	"fmt"
	"strings"
)

// NotifyFlags selects which activities are delivered to a chat.
type NotifyFlags int64

const (
	NotifyWithoutComment NotifyFlags = 1 << iota
	NotifyWithComment
	NotifyStatus
	NotifyRecord
	NotifyReview

	NotifyAll = NotifyWithoutComment | NotifyWithComment | NotifyStatus | NotifyRecord | NotifyReview
)

//nolint:gochecknoglobals // Lookup table meant to be immutable.
var notifyFlagNames = []struct {
	flag NotifyFlags
	name string
}{
	{NotifyWithComment, "with_comment"},
	{NotifyWithoutComment, "without_comment"},
	{NotifyStatus, "status"},
	{NotifyRecord, "record"},
	{NotifyReview, "review"},
}

func ParseNotifyFlag(name string) (NotifyFlags, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, f := range notifyFlagNames {
		if f.name == name {
			return f.flag, nil
		}
	}

	return 0, fmt.Errorf("unknown notify flag %q", name)
}

// NotifyFlagNames lists every flag name in display order.
func NotifyFlagNames() []string {
	names := make([]string, 0, len(notifyFlagNames))
	for _, f := range notifyFlagNames {
		names = append(names, f.name)
	}

	return names
}

func (f NotifyFlags) Has(flag NotifyFlags) bool {
	return f&flag == flag
}

func (f NotifyFlags) Names() []string {
	var names []string
	for _, nf := range notifyFlagNames {
		if f.Has(nf.flag) {
			names = append(names, nf.name)
		}
	}

	return names
}

// NormalizeNotifyFlags completes a user selection so that it always names at
// least one activity kind and, for records and reviews, a comment filter.
func NormalizeNotifyFlags(f NotifyFlags) NotifyFlags {
	const comments = NotifyWithComment | NotifyWithoutComment

	if f&(NotifyRecord|NotifyReview) != 0 {
		switch {
		case f&comments == 0:
			f |= comments
		case f.Has(NotifyWithComment) && !f.Has(NotifyWithoutComment) && f.Has(NotifyStatus):
			// Status changes never carry a comment.
			f &^= NotifyStatus
		}

		return f
	}

	switch {
	case f.Has(NotifyStatus):
		f &^= NotifyWithComment
	case f.Has(NotifyWithoutComment):
		f |= NotifyRecord | NotifyReview | NotifyStatus
	default:
		f |= NotifyRecord | NotifyReview
	}

	return f
}

// Allows reports whether an activity passes the chat filter. A batch passes
// if any of its records does; Deliver filters the records individually.
func (f NotifyFlags) Allows(a Activity) bool {
	switch v := a.(type) {
	case StatusChange:
		return f.Has(NotifyStatus)
	case EpisodeRecord:
		return f.Has(NotifyRecord) && f.allowsComment(v.HasComment())
	case BatchEpisodeRecord:
		for _, r := range v.Records {
			if f.Allows(r) {
				return true
			}
		}

		return false
	case Review:
		return f.Has(NotifyReview) && f.allowsComment(strings.TrimSpace(v.Body) != "")
	default:
		return false
	}
}

func (f NotifyFlags) allowsComment(hasComment bool) bool {
	if hasComment {
		return f.Has(NotifyWithComment)
	}

	return f.Has(NotifyWithoutComment)
}
