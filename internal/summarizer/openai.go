package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

const (
	baseMaxOutputTokens  int64 = 512
	limitMaxOutputTokens int64 = 2048

	systemPrompt = `Shorten the anime review so it fits a chat notification.

Rules:
- At most 3 sentences (hard limit 80 words).
- Keep the reviewer's verdict, what they liked or disliked, and any spoiler warning.
- Keep the reviewer's voice; do not add opinions of your own.
- No lists, no headings, no links, no emojis.
- Output plain text in the same language as the input.`
)

// OpenAISummarizer shortens review bodies with the OpenAI Responses API.
type OpenAISummarizer struct {
	client openai.Client
}

// NewOpenAISummarizer builds a new summarizer instance.
func NewOpenAISummarizer(apiKey string) (*OpenAISummarizer, error) {
	return &OpenAISummarizer{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

// Summarize produces a short version of a long review body.
func (s *OpenAISummarizer) Summarize(
	ctx context.Context,
	input Input,
) (string, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return "", errors.New("input is empty")
	}

	maxOutputTokens := baseMaxOutputTokens
	prompt := buildPrompt(input, text)

	for {
		resp, err := s.client.Responses.New(ctx, responses.ResponseNewParams{
			Model:           openai.ChatModelGPT5Mini2025_08_07,
			ServiceTier:     responses.ResponseNewParamsServiceTierFlex,
			MaxOutputTokens: openai.Int(maxOutputTokens),
			Reasoning: responses.ReasoningParam{
				Effort: openai.ReasoningEffortLow,
			},
			Instructions: openai.String(systemPrompt),
			Input: responses.ResponseNewParamsInputUnion{
				OfString: openai.String(prompt),
			},
		})
		if err != nil {
			return "", fmt.Errorf("do request: %w", err)
		}

		if resp.Status == "incomplete" {
			if resp.IncompleteDetails.Reason == "max_output_tokens" && maxOutputTokens < limitMaxOutputTokens {
				maxOutputTokens *= 2
				if maxOutputTokens > limitMaxOutputTokens {
					maxOutputTokens = limitMaxOutputTokens
				}
				continue
			}
			return "", fmt.Errorf(
				"response is incomplete (reason = %s, maxOutputTokens = %d)",
				resp.IncompleteDetails.Reason,
				maxOutputTokens,
			)
		}

		summary := strings.TrimSpace(resp.OutputText())
		if summary == "" {
			return "", fmt.Errorf("output text is missing (status = %s)", resp.Status)
		}
		return summary, nil
	}
}

func buildPrompt(input Input, text string) string {
	var b strings.Builder

	if title := strings.TrimSpace(input.Title); title != "" {
		b.WriteString("Work:\n")
		b.WriteString(title)
		b.WriteString("\n")
	}

	if sourceURL := strings.TrimSpace(input.SourceURL); sourceURL != "" {
		b.WriteString("Reviewer:\n")
		b.WriteString(sourceURL)
		b.WriteString("\n")
	}

	b.WriteString("Review:\n")
	b.WriteString(text)

	return b.String()
}
