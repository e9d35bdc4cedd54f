package annict

import "fmt"

const (
	activityFragments = `
fragment workFrag on Work {
	title
}

fragment recordFrag on Record {
	work { ...workFrag }
	createdAt
	comment
	episode { number numberText title }
	ratingState
}

fragment activityFrag on ActivityItem {
	__typename
	... on MultipleRecord {
		createdAt
		records { edges { node { ...recordFrag } } }
		work { ...workFrag }
	}
	... on Record { ...recordFrag }
	... on Review {
		work { ...workFrag }
		body
		createdAt
		ratingAnimationState
		ratingCharacterState
		ratingMusicState
		ratingOverallState
		ratingStoryState
	}
	... on Status { work { ...workFrag } createdAt state }
}`

	activitiesQueryTemplate = `query UserActivities($name: String!, $last: Int, $%[1]s: String) {
	user(username: $name) {
		username
		activities(last: $last, %[1]s: $%[1]s) {
			edges { item { ...activityFrag } cursor }
			pageInfo { startCursor endCursor }
		}
	}
}
` + activityFragments
)

//nolint:gochecknoglobals // Built once from constant templates.
var (
	afterQuery  = fmt.Sprintf(activitiesQueryTemplate, "after")
	beforeQuery = fmt.Sprintf(activitiesQueryTemplate, "before")
)

type graphQLRequest struct {
	Query     string    `json:"query"`
	Variables variables `json:"variables"`
}

type variables struct {
	Name   string  `json:"name"`
	Last   *int    `json:"last"`
	After  *string `json:"after,omitempty"`
	Before *string `json:"before,omitempty"`
}
