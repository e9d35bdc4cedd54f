package annict_test

import (
	"annictgram/internal/annict"
	"annictgram/internal/domain"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const activitiesResponse = `{
  "data": {
    "user": {
      "username": "kei",
      "activities": {
        "edges": [
          {
            "cursor": "c1",
            "item": {
              "__typename": "Status",
              "work": {"title": "Frieren"},
              "createdAt": "2024-01-01T10:00:00+09:00",
              "state": "WATCHING"
            }
          },
          {
            "cursor": "c2",
            "item": {
              "__typename": "Record",
              "work": {"title": "Frieren"},
              "createdAt": "2024-01-01T11:00:00+09:00",
              "comment": "nice",
              "episode": {"number": 3, "numberText": "#3", "title": "Killing Magic"},
              "ratingState": "GREAT"
            }
          },
          {
            "cursor": "c3",
            "item": {
              "__typename": "MultipleRecord",
              "work": {"title": "Mushishi"},
              "createdAt": "2024-01-01T12:00:00+09:00",
              "records": {"edges": [
                {"node": {"work": {"title": "Mushishi"}, "createdAt": "2024-01-01T12:00:00+09:00", "comment": null, "episode": {"number": 1, "numberText": null, "title": null}, "ratingState": null}},
                {"node": {"work": {"title": "Mushishi"}, "createdAt": "2024-01-01T12:00:00+09:00", "comment": "", "episode": {"number": 2, "numberText": null, "title": null}, "ratingState": "GOOD"}}
              ]}
            }
          },
          {
            "cursor": "c4",
            "item": {
              "__typename": "Review",
              "work": {"title": "Mushishi"},
              "createdAt": "2024-01-01T13:00:00+09:00",
              "body": "Quiet and beautiful.",
              "ratingOverallState": "GREAT",
              "ratingAnimationState": null,
              "ratingCharacterState": "GOOD",
              "ratingStoryState": null,
              "ratingMusicState": "AVERAGE"
            }
          }
        ],
        "pageInfo": {"startCursor": "c1", "endCursor": "c4"}
      }
    }
  }
}`

type capturedRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func newTestServer(t *testing.T, status int, body string, captured *capturedRequest) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		raw, err := io.ReadAll(r.Body)
		if err == nil && captured != nil {
			_ = json.Unmarshal(raw, captured)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestClientFetchAfterDecodesEveryActivityKind(t *testing.T) {
	var captured capturedRequest
	srv := newTestServer(t, http.StatusOK, activitiesResponse, &captured)
	client := annict.NewClient(srv.URL, "secret", time.Second, slog.Default())

	after := "c0"
	page, err := client.FetchAfter(context.Background(), "kei", nil, &after)
	require.NoError(t, err)

	assert.Contains(t, captured.Query, "after: $after")
	assert.Equal(t, "kei", captured.Variables["name"])
	assert.Equal(t, "c0", captured.Variables["after"])
	assert.Nil(t, captured.Variables["last"])
	assert.NotContains(t, captured.Variables, "before")

	require.Len(t, page.Edges, 4)
	require.NotNil(t, page.StartCursor)
	require.NotNil(t, page.EndCursor)
	assert.Equal(t, "c1", *page.StartCursor)
	assert.Equal(t, "c4", *page.EndCursor)

	status, ok := page.Edges[0].Activity.(domain.StatusChange)
	require.True(t, ok)
	assert.Equal(t, domain.StatusWatching, status.State)
	assert.Equal(t, "Frieren", status.Work.Title)

	record, ok := page.Edges[1].Activity.(domain.EpisodeRecord)
	require.True(t, ok)
	require.NotNil(t, record.RatingState)
	assert.Equal(t, domain.RatingGreat, *record.RatingState)
	assert.True(t, record.HasComment())
	assert.Equal(t, 3, *record.Episode.Number)

	batch, ok := page.Edges[2].Activity.(domain.BatchEpisodeRecord)
	require.True(t, ok)
	require.Len(t, batch.Records, 2)
	assert.Nil(t, batch.Records[0].RatingState)
	assert.False(t, batch.Records[1].HasComment())

	review, ok := page.Edges[3].Activity.(domain.Review)
	require.True(t, ok)
	assert.Nil(t, review.RatingAnimationState)
	require.NotNil(t, review.RatingMusicState)
	assert.Equal(t, domain.RatingAverage, *review.RatingMusicState)

	want := time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC)
	assert.True(t, review.CreatedAt().Equal(want))
}

func TestClientFetchBeforeSendsBeforeCursor(t *testing.T) {
	var captured capturedRequest
	srv := newTestServer(t, http.StatusOK, activitiesResponse, &captured)
	client := annict.NewClient(srv.URL, "secret", time.Second, slog.Default())

	limit := 1
	before := "c9"
	_, err := client.FetchBefore(context.Background(), "kei", &limit, &before)
	require.NoError(t, err)

	assert.Contains(t, captured.Query, "before: $before")
	assert.Equal(t, "c9", captured.Variables["before"])
	assert.EqualValues(t, 1, captured.Variables["last"])
	assert.NotContains(t, captured.Variables, "after")
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			"Null user is account not found",
			http.StatusOK,
			`{"data": {"user": null}}`,
			func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrAccountNotFound)
			},
		},
		{
			"Errors payload is remote graph error",
			http.StatusOK,
			`{"errors": [{"message": "boom", "locations": [{"line": 1, "column": 2}]}]}`,
			func(t *testing.T, err error) {
				var graphErr *annict.RemoteGraphError
				require.ErrorAs(t, err, &graphErr)
				assert.Equal(t, "boom", graphErr.Errors[0].Message)
			},
		},
		{
			"Errors payload with 4xx is remote graph error",
			http.StatusBadRequest,
			`{"errors": [{"message": "bad query"}]}`,
			func(t *testing.T, err error) {
				var graphErr *annict.RemoteGraphError
				assert.ErrorAs(t, err, &graphErr)
			},
		},
		{
			"Server failure is transport error",
			http.StatusBadGateway,
			`<html>bad gateway</html>`,
			func(t *testing.T, err error) {
				var transportErr *annict.TransportError
				require.ErrorAs(t, err, &transportErr)
				assert.Equal(t, http.StatusBadGateway, transportErr.StatusCode)
			},
		},
		{
			"Garbage is protocol error",
			http.StatusOK,
			`not json`,
			func(t *testing.T, err error) {
				var protoErr *annict.ProtocolError
				assert.ErrorAs(t, err, &protoErr)
			},
		},
		{
			"Unknown typename is protocol error",
			http.StatusOK,
			`{"data": {"user": {"activities": {"edges": [{"cursor": "c1", "item": {"__typename": "Like"}}], "pageInfo": {}}}}}`,
			func(t *testing.T, err error) {
				var protoErr *annict.ProtocolError
				assert.ErrorAs(t, err, &protoErr)
			},
		},
		{
			"Unknown rating is protocol error",
			http.StatusOK,
			`{"data": {"user": {"activities": {"edges": [{"cursor": "c1", "item": {"__typename": "Record", "createdAt": "2024-01-01T00:00:00Z", "ratingState": "MEH"}}], "pageInfo": {}}}}}`,
			func(t *testing.T, err error) {
				var protoErr *annict.ProtocolError
				assert.ErrorAs(t, err, &protoErr)
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			srv := newTestServer(t, test.status, test.body, nil)
			client := annict.NewClient(srv.URL, "secret", time.Second, slog.Default())

			_, err := client.FetchAfter(context.Background(), "kei", nil, nil)
			require.Error(t, err)
			test.check(t, err)
		})
	}
}

func TestClientUnreachableIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := annict.NewClient(url, "secret", time.Second, slog.Default())

	_, err := client.FetchAfter(context.Background(), "kei", nil, nil)

	var transportErr *annict.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.False(t, errors.Is(err, domain.ErrAccountNotFound))
}

func TestClientEmptyPageHasNoCursors(t *testing.T) {
	srv := newTestServer(t, http.StatusOK,
		`{"data": {"user": {"activities": {"edges": [], "pageInfo": {"startCursor": null, "endCursor": null}}}}}`, nil)
	client := annict.NewClient(srv.URL, "secret", time.Second, slog.Default())

	page, err := client.FetchAfter(context.Background(), "kei", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, page.Edges)
	assert.Nil(t, page.StartCursor)
	assert.Nil(t, page.EndCursor)
}
