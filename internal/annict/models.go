package annict

import (
	"annictgram/internal/domain"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	typenameStatus         = "Status"
	typenameRecord         = "Record"
	typenameMultipleRecord = "MultipleRecord"
	typenameReview         = "Review"
)

type graphQLResponse struct {
	Data   *responseData  `json:"data"`
	Errors []GraphQLError `json:"errors"`
}

type responseData struct {
	User *userNode `json:"user"`
}

type userNode struct {
	Username   string             `json:"username"`
	Activities activityConnection `json:"activities"`
}

type activityConnection struct {
	Edges    []activityEdge `json:"edges"`
	PageInfo pageInfo       `json:"pageInfo"`
}

type activityEdge struct {
	Item   json.RawMessage `json:"item"`
	Cursor string          `json:"cursor"`
}

type pageInfo struct {
	StartCursor *string `json:"startCursor"`
	EndCursor   *string `json:"endCursor"`
}

// GraphQLError is one entry of the "errors" array of a GraphQL response.
type GraphQLError struct {
	Message   string     `json:"message"`
	Locations []Location `json:"locations,omitempty"`
}

type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type workNode struct {
	Title string `json:"title"`
}

type episodeNode struct {
	Number     *int    `json:"number"`
	NumberText *string `json:"numberText"`
	Title      *string `json:"title"`
}

type recordNode struct {
	Work        workNode    `json:"work"`
	CreatedAt   time.Time   `json:"createdAt"`
	Comment     *string     `json:"comment"`
	Episode     episodeNode `json:"episode"`
	RatingState *string     `json:"ratingState"`
}

type multipleRecordNode struct {
	Work      workNode  `json:"work"`
	CreatedAt time.Time `json:"createdAt"`
	Records   struct {
		Edges []struct {
			Node recordNode `json:"node"`
		} `json:"edges"`
	} `json:"records"`
}

type reviewNode struct {
	Work                 workNode  `json:"work"`
	CreatedAt            time.Time `json:"createdAt"`
	Body                 string    `json:"body"`
	RatingOverallState   *string   `json:"ratingOverallState"`
	RatingAnimationState *string   `json:"ratingAnimationState"`
	RatingCharacterState *string   `json:"ratingCharacterState"`
	RatingStoryState     *string   `json:"ratingStoryState"`
	RatingMusicState     *string   `json:"ratingMusicState"`
}

type statusNode struct {
	Work      workNode  `json:"work"`
	CreatedAt time.Time `json:"createdAt"`
	State     string    `json:"state"`
}

func (c activityConnection) toPage() (domain.Page, error) {
	page := domain.Page{
		Edges:       make([]domain.Edge, 0, len(c.Edges)),
		StartCursor: c.PageInfo.StartCursor,
		EndCursor:   c.PageInfo.EndCursor,
	}

	for i, edge := range c.Edges {
		if edge.Cursor == "" {
			return domain.Page{}, fmt.Errorf("edge %d: cursor is empty", i)
		}

		activity, err := decodeActivity(edge.Item)
		if err != nil {
			return domain.Page{}, fmt.Errorf("decode edge %d: %w", i, err)
		}

		page.Edges = append(page.Edges, domain.Edge{Activity: activity, Cursor: edge.Cursor})
	}

	return page, nil
}

func decodeActivity(raw json.RawMessage) (domain.Activity, error) {
	var head struct {
		Typename string `json:"__typename"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("unmarshal typename: %w", err)
	}

	switch head.Typename {
	case typenameStatus:
		var n statusNode
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("unmarshal status: %w", err)
		}

		return n.toActivity()
	case typenameRecord:
		var n recordNode
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}

		return n.toActivity()
	case typenameMultipleRecord:
		var n multipleRecordNode
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("unmarshal multiple record: %w", err)
		}

		return n.toActivity()
	case typenameReview:
		var n reviewNode
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("unmarshal review: %w", err)
		}

		return n.toActivity()
	case "":
		return nil, errors.New("typename is missing")
	default:
		return nil, fmt.Errorf("unknown typename %q", head.Typename)
	}
}

func (n statusNode) toActivity() (domain.Activity, error) {
	if n.CreatedAt.IsZero() {
		return nil, errors.New("status createdAt is missing")
	}

	state := domain.StatusState(n.State)
	if !state.Valid() {
		return nil, fmt.Errorf("unknown status state %q", n.State)
	}

	return domain.StatusChange{
		Work:    domain.Work{Title: n.Work.Title},
		State:   state,
		Created: n.CreatedAt,
	}, nil
}

func (n recordNode) toActivity() (domain.Activity, error) {
	return n.toRecord()
}

func (n recordNode) toRecord() (domain.EpisodeRecord, error) {
	if n.CreatedAt.IsZero() {
		return domain.EpisodeRecord{}, errors.New("record createdAt is missing")
	}

	rating, err := parseRating(n.RatingState)
	if err != nil {
		return domain.EpisodeRecord{}, err
	}

	return domain.EpisodeRecord{
		Work: domain.Work{Title: n.Work.Title},
		Episode: domain.Episode{
			Number:     n.Episode.Number,
			NumberText: n.Episode.NumberText,
			Title:      n.Episode.Title,
		},
		Comment:     n.Comment,
		RatingState: rating,
		Created:     n.CreatedAt,
	}, nil
}

func (n multipleRecordNode) toActivity() (domain.Activity, error) {
	if n.CreatedAt.IsZero() {
		return nil, errors.New("multiple record createdAt is missing")
	}

	records := make([]domain.EpisodeRecord, 0, len(n.Records.Edges))
	for i, edge := range n.Records.Edges {
		record, err := edge.Node.toRecord()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		records = append(records, record)
	}

	return domain.BatchEpisodeRecord{
		Work:    domain.Work{Title: n.Work.Title},
		Records: records,
		Created: n.CreatedAt,
	}, nil
}

func (n reviewNode) toActivity() (domain.Activity, error) {
	if n.CreatedAt.IsZero() {
		return nil, errors.New("review createdAt is missing")
	}

	review := domain.Review{
		Work:    domain.Work{Title: n.Work.Title},
		Body:    n.Body,
		Created: n.CreatedAt,
	}

	ratings := []struct {
		raw *string
		dst **domain.RatingState
	}{
		{n.RatingOverallState, &review.RatingOverallState},
		{n.RatingAnimationState, &review.RatingAnimationState},
		{n.RatingCharacterState, &review.RatingCharacterState},
		{n.RatingStoryState, &review.RatingStoryState},
		{n.RatingMusicState, &review.RatingMusicState},
	}

	for _, r := range ratings {
		rating, err := parseRating(r.raw)
		if err != nil {
			return nil, err
		}
		*r.dst = rating
	}

	return review, nil
}

func parseRating(raw *string) (*domain.RatingState, error) {
	if raw == nil {
		return nil, nil
	}

	rating := domain.RatingState(*raw)
	if !rating.Valid() {
		return nil, fmt.Errorf("unknown rating state %q", *raw)
	}

	return &rating, nil
}
