// Package canvas pulls courses, enrollments, assignments and submissions
// from the Canvas GraphQL API and maps them into the UDM. Each Canvas
// course is treated as one UDM section.
package canvas

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/roach88/slate/internal/fetch"
)

// Client wraps Canvas GraphQL access: bearer authentication and cursor
// pagination over the account's courses.
type Client struct {
	fetch     *fetch.Client
	baseURL   string
	token     string
	accountID string
	pageSize  int
}

// NewClient builds a Canvas API client for one account.
func NewClient(f *fetch.Client, baseURL, token, accountID string, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Client{
		fetch:     f,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		token:     token,
		accountID: accountID,
		pageSize:  pageSize,
	}
}

// graphQLError is one entry of the GraphQL "errors" array.
type graphQLError struct {
	Message string `json:"message"`
}

// query posts one GraphQL document and decodes data into out.
func (c *Client) query(ctx context.Context, document string, variables map[string]any, out any) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	payload := map[string]any{"query": document, "variables": variables}
	var envelope struct {
		Data   any            `json:"data"`
		Errors []graphQLError `json:"errors"`
	}
	envelope.Data = out

	url := c.baseURL + "/api/graphql"
	if err := c.fetch.PostJSON(ctx, url, header, payload, &envelope); err != nil {
		return err
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("canvas graphql: %s", envelope.Errors[0].Message)
	}
	return nil
}

// CourseUser is the user shape embedded in enrollments and submissions.
type CourseUser struct {
	ID      string `json:"_id"`
	SISID   string `json:"sisId"`
	LoginID string `json:"loginId"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

// Enrollment is one user's membership in a course, grades included.
type Enrollment struct {
	ID     string     `json:"_id"`
	Type   string     `json:"type"`
	State  string     `json:"state"`
	User   CourseUser `json:"user"`
	Grades struct {
		FinalGrade string  `json:"finalGrade"`
		FinalScore float64 `json:"finalScore"`
	} `json:"grades"`
}

// Submission is one user's submission against an assignment.
type Submission struct {
	ID          string  `json:"_id"`
	SubmittedAt string  `json:"submittedAt"`
	Grade       string  `json:"grade"`
	Score       float64 `json:"score"`
	State       string  `json:"state"`
	User        struct {
		ID string `json:"_id"`
	} `json:"user"`
}

// Assignment is coursework within a course, submissions included.
type Assignment struct {
	ID             string  `json:"_id"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	PointsPossible float64 `json:"pointsPossible"`
	CreatedAt      string  `json:"createdAt"`
	DueAt          string  `json:"dueAt"`
	UnlockAt       string  `json:"unlockAt"`
	LockAt         string  `json:"lockAt"`
	Submissions    struct {
		Nodes []Submission `json:"nodes"`
	} `json:"submissionsConnection"`
}

// Course is one Canvas course with its nested entities.
type Course struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	CourseCode string `json:"courseCode"`
	State      string `json:"state"`
	Term       struct {
		Name    string `json:"name"`
		StartAt string `json:"startAt"`
		EndAt   string `json:"endAt"`
	} `json:"term"`
	Enrollments struct {
		Nodes []Enrollment `json:"nodes"`
	} `json:"enrollmentsConnection"`
	Assignments struct {
		Nodes []Assignment `json:"nodes"`
	} `json:"assignmentsConnection"`
}

const coursesQuery = `
query ($accountID: ID!, $pageSize: Int!, $cursor: String) {
  account(id: $accountID) {
    coursesConnection(first: $pageSize, after: $cursor) {
      pageInfo { hasNextPage endCursor }
      nodes {
        _id
        name
        courseCode
        state
        term { name startAt endAt }
        enrollmentsConnection {
          nodes {
            _id
            type
            state
            user { _id sisId loginId name email }
            grades { finalGrade finalScore }
          }
        }
        assignmentsConnection {
          nodes {
            _id
            name
            description
            pointsPossible
            createdAt
            dueAt
            unlockAt
            lockAt
            submissionsConnection {
              nodes { _id submittedAt grade score state user { _id } }
            }
          }
        }
      }
    }
  }
}`

// Courses pulls every course of the account, following the courses cursor
// until exhausted.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	var courses []Course
	var cursor *string

	for {
		var data struct {
			Account struct {
				Courses struct {
					PageInfo struct {
						HasNextPage bool   `json:"hasNextPage"`
						EndCursor   string `json:"endCursor"`
					} `json:"pageInfo"`
					Nodes []Course `json:"nodes"`
				} `json:"coursesConnection"`
			} `json:"account"`
		}

		variables := map[string]any{
			"accountID": c.accountID,
			"pageSize":  c.pageSize,
		}
		if cursor != nil {
			variables["cursor"] = *cursor
		}

		if err := c.query(ctx, coursesQuery, variables, &data); err != nil {
			return nil, fmt.Errorf("canvas courses: %w", err)
		}

		courses = append(courses, data.Account.Courses.Nodes...)

		page := data.Account.Courses.PageInfo
		if !page.HasNextPage {
			return courses, nil
		}
		cursor = &page.EndCursor
	}
}
