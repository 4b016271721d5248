// Package classroom pulls courses, rosters, coursework and submissions from
// the Google Classroom REST API and maps them into the UDM. Each Classroom
// course is one UDM section.
package classroom

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/roach88/slate/internal/fetch"
)

// DefaultBaseURL is the production Classroom API endpoint.
const DefaultBaseURL = "https://classroom.googleapis.com/v1/"

// Client wraps Classroom REST access: bearer authentication and pageToken
// pagination.
type Client struct {
	fetch   *fetch.Client
	baseURL string
	token   string
}

// NewClient builds a Classroom API client. baseURL falls back to
// DefaultBaseURL.
func NewClient(f *fetch.Client, token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{fetch: f, baseURL: baseURL, token: token}
}

func (c *Client) authHeader() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.token)
	return h
}

// get fetches one page, appending the pageToken when present.
func (c *Client) get(ctx context.Context, path, pageToken string, out any) error {
	u := c.baseURL + path
	if pageToken != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		u += sep + "pageToken=" + url.QueryEscape(pageToken)
	}
	return c.fetch.GetJSON(ctx, u, c.authHeader(), out)
}

// Course is the raw course shape from /courses.
type Course struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Section     string `json:"section"`
	Description string `json:"descriptionHeading"`
	CourseState string `json:"courseState"`
}

// Courses pulls every course visible to the credential.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	var courses []Course
	token := ""
	for {
		var page struct {
			Courses       []Course `json:"courses"`
			NextPageToken string   `json:"nextPageToken"`
		}
		if err := c.get(ctx, "courses", token, &page); err != nil {
			return nil, fmt.Errorf("classroom courses: %w", err)
		}
		courses = append(courses, page.Courses...)
		if page.NextPageToken == "" {
			return courses, nil
		}
		token = page.NextPageToken
	}
}

// Profile is the embedded user profile on roster entries.
type Profile struct {
	Name struct {
		FullName string `json:"fullName"`
	} `json:"name"`
	EmailAddress string `json:"emailAddress"`
}

// RosterEntry is one student or teacher membership in a course.
type RosterEntry struct {
	CourseID string  `json:"courseId"`
	UserID   string  `json:"userId"`
	Profile  Profile `json:"profile"`
}

// Students pulls the student roster of one course.
func (c *Client) Students(ctx context.Context, courseID string) ([]RosterEntry, error) {
	return c.roster(ctx, courseID, "students")
}

// Teachers pulls the teacher roster of one course.
func (c *Client) Teachers(ctx context.Context, courseID string) ([]RosterEntry, error) {
	return c.roster(ctx, courseID, "teachers")
}

func (c *Client) roster(ctx context.Context, courseID, path string) ([]RosterEntry, error) {
	var entries []RosterEntry
	token := ""
	for {
		// Student and teacher pages carry the same entry shape under
		// different keys; decode both and take whichever is populated.
		var page struct {
			Students      []RosterEntry `json:"students"`
			Teachers      []RosterEntry `json:"teachers"`
			NextPageToken string        `json:"nextPageToken"`
		}
		if err := c.get(ctx, fmt.Sprintf("courses/%s/%s", courseID, path), token, &page); err != nil {
			return nil, fmt.Errorf("classroom %s for course %s: %w", path, courseID, err)
		}
		entries = append(entries, page.Students...)
		entries = append(entries, page.Teachers...)
		if page.NextPageToken == "" {
			return entries, nil
		}
		token = page.NextPageToken
	}
}

// CourseWork is the raw coursework shape from /courses/{id}/courseWork.
type CourseWork struct {
	ID          string  `json:"id"`
	CourseID    string  `json:"courseId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	WorkType    string  `json:"workType"`
	State       string  `json:"state"`
	MaxPoints   float64 `json:"maxPoints"`
	DueDate     struct {
		Year  int `json:"year"`
		Month int `json:"month"`
		Day   int `json:"day"`
	} `json:"dueDate"`
	DueTime struct {
		Hours   int `json:"hours"`
		Minutes int `json:"minutes"`
	} `json:"dueTime"`
	CreationTime string `json:"creationTime"`
}

// CourseWorks pulls the coursework of one course.
func (c *Client) CourseWorks(ctx context.Context, courseID string) ([]CourseWork, error) {
	var works []CourseWork
	token := ""
	for {
		var page struct {
			CourseWork    []CourseWork `json:"courseWork"`
			NextPageToken string       `json:"nextPageToken"`
		}
		if err := c.get(ctx, fmt.Sprintf("courses/%s/courseWork", courseID), token, &page); err != nil {
			return nil, fmt.Errorf("classroom coursework for course %s: %w", courseID, err)
		}
		works = append(works, page.CourseWork...)
		if page.NextPageToken == "" {
			return works, nil
		}
		token = page.NextPageToken
	}
}

// StudentSubmission is the raw submission shape from
// /courses/{id}/courseWork/{id}/studentSubmissions.
type StudentSubmission struct {
	ID            string  `json:"id"`
	CourseID      string  `json:"courseId"`
	CourseWorkID  string  `json:"courseWorkId"`
	UserID        string  `json:"userId"`
	State         string  `json:"state"`
	Late          bool    `json:"late"`
	AssignedGrade float64 `json:"assignedGrade"`
	UpdateTime    string  `json:"updateTime"`
	CreationTime  string  `json:"creationTime"`
}

// StudentSubmissions pulls the submissions against one coursework item.
func (c *Client) StudentSubmissions(ctx context.Context, courseID, courseWorkID string) ([]StudentSubmission, error) {
	var submissions []StudentSubmission
	token := ""
	for {
		var page struct {
			StudentSubmissions []StudentSubmission `json:"studentSubmissions"`
			NextPageToken      string              `json:"nextPageToken"`
		}
		path := fmt.Sprintf("courses/%s/courseWork/%s/studentSubmissions", courseID, courseWorkID)
		if err := c.get(ctx, path, token, &page); err != nil {
			return nil, fmt.Errorf("classroom submissions for coursework %s: %w", courseWorkID, err)
		}
		submissions = append(submissions, page.StudentSubmissions...)
		if page.NextPageToken == "" {
			return submissions, nil
		}
		token = page.NextPageToken
	}
}
