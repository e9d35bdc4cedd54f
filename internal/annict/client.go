package annict

import (
	"annictgram/internal/domain"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

const (
	DefaultEndpoint = "https://api.annict.com/graphql"
	DefaultTimeout  = 20 * time.Second

	userAgent       = "annictgram (+https://github.com/annictgram)"
	maxResponseSize = 8 << 20
)

// Client queries the activity feed of Annict accounts.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	log        *slog.Logger
	requestSeq atomic.Uint64
}

func NewClient(
	endpoint string,
	token string,
	timeout time.Duration,
	log *slog.Logger,
) *Client {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		endpoint:   endpoint,
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// FetchAfter returns the activities newer than after. A nil limit is unbounded,
// a nil cursor means the start of the feed.
func (c *Client) FetchAfter(
	ctx context.Context,
	account string,
	limit *int,
	after *string,
) (domain.Page, error) {
	return c.fetch(ctx, afterQuery, variables{
		Name:  account,
		Last:  limit,
		After: after,
	})
}

// FetchBefore returns the activities older than before. A nil cursor means
// the end of the feed.
func (c *Client) FetchBefore(
	ctx context.Context,
	account string,
	limit *int,
	before *string,
) (domain.Page, error) {
	return c.fetch(ctx, beforeQuery, variables{
		Name:   account,
		Last:   limit,
		Before: before,
	})
}

func (c *Client) fetch(
	ctx context.Context,
	query string,
	vars variables,
) (domain.Page, error) {
	vars.Name = strings.TrimSpace(vars.Name)
	if vars.Name == "" {
		return domain.Page{}, errors.New("account name is empty")
	}

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return domain.Page{}, fmt.Errorf("marshal request: %w", err)
	}

	seq := c.requestSeq.Add(1)
	c.log.DebugContext(ctx, "Sending Annict request",
		"requestSeq", seq,
		"account", vars.Name,
		"last", vars.Last,
		"after", vars.After,
		"before", vars.Before)

	raw, err := c.post(ctx, body)
	if err != nil {
		return domain.Page{}, err
	}

	c.log.DebugContext(ctx, "Received Annict response",
		"requestSeq", seq,
		"account", vars.Name,
		"responseLen", len(raw))

	return decodeResponse(raw)
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("do request: %w", err)}
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			c.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"endpoint", c.endpoint,
				"operation", "post")
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("read body: %w", err)}
	}

	// GraphQL servers report query errors with a 200 or a 4xx carrying a
	// JSON errors payload, so only non-JSON failures are transport errors.
	if resp.StatusCode != http.StatusOK && !hasGraphQLErrors(raw) {
		return nil, &TransportError{StatusCode: resp.StatusCode}
	}

	return raw, nil
}

func hasGraphQLErrors(raw []byte) bool {
	var probe struct {
		Errors []GraphQLError `json:"errors"`
	}

	return json.Unmarshal(raw, &probe) == nil && len(probe.Errors) > 0
}

func decodeResponse(raw []byte) (domain.Page, error) {
	var resp graphQLResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.Page{}, &ProtocolError{Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	if len(resp.Errors) > 0 {
		return domain.Page{}, &RemoteGraphError{Errors: resp.Errors}
	}

	if resp.Data == nil {
		return domain.Page{}, &ProtocolError{Err: errors.New("data is missing")}
	}

	if resp.Data.User == nil {
		return domain.Page{}, domain.ErrAccountNotFound
	}

	page, err := resp.Data.User.Activities.toPage()
	if err != nil {
		return domain.Page{}, &ProtocolError{Err: err}
	}

	return page, nil
}
