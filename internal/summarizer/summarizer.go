package summarizer

import (
	"context"
)

// Input describes the payload for a summary request.
type Input struct {
	// Text is the review body.
	Text string
	// Title is the reviewed work.
	Title string
	// SourceURL optionally points at the reviewer's profile.
	SourceURL string
}

// Summarizer shortens text that is too long to be sent as is.
type Summarizer interface {
	Summarize(ctx context.Context, input Input) (string, error)
}
