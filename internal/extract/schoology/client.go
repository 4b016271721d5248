// Package schoology pulls sections, users, enrollments, assignments,
// submissions, grades and attendance from the Schoology REST API and maps
// them into the UDM.
package schoology

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/slate/internal/fetch"
)

// DefaultBaseURL is the production Schoology API endpoint.
const DefaultBaseURL = "https://api.schoology.com/v1/"

// Client wraps the two-legged OAuth 1.0a authentication and pagination
// details of the Schoology API.
type Client struct {
	fetch    *fetch.Client
	key      string
	secret   string
	baseURL  string
	pageSize int
}

// NewClient builds a Schoology API client. baseURL falls back to
// DefaultBaseURL, pageSize to 200.
func NewClient(f *fetch.Client, key, secret, baseURL string, pageSize int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if pageSize <= 0 {
		pageSize = 200
	}
	return &Client{fetch: f, key: key, secret: secret, baseURL: baseURL, pageSize: pageSize}
}

// authHeader builds a two-legged OAuth 1.0a PLAINTEXT authorization header.
// Schoology accepts PLAINTEXT over TLS, which avoids request signing.
func (c *Client) authHeader() http.Header {
	auth := fmt.Sprintf(
		`OAuth realm="Schoology API",oauth_consumer_key=%q,oauth_token="",oauth_nonce=%q,`+
			`oauth_timestamp="%d",oauth_signature_method="PLAINTEXT",oauth_version="1.0",oauth_signature="%s%%26"`,
		c.key, uuid.NewString(), time.Now().Unix(), c.secret)

	h := http.Header{}
	h.Set("Authorization", auth)
	return h
}

type links struct {
	Next string `json:"next"`
}

// User is the raw user shape returned by /users.
type User struct {
	UID          int64  `json:"uid"`
	RoleID       int64  `json:"role_id"`
	SchoolUID    string `json:"school_uid"`
	NameFirst    string `json:"name_first"`
	NameLast     string `json:"name_last"`
	PrimaryEmail string `json:"primary_email"`
}

// Users pulls every user, page by page.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var users []User
	url := fmt.Sprintf("%susers?start=0&limit=%d", c.baseURL, c.pageSize)
	for url != "" {
		var page struct {
			User  []User `json:"user"`
			Links links  `json:"links"`
		}
		if err := c.fetch.GetJSON(ctx, url, c.authHeader(), &page); err != nil {
			return nil, fmt.Errorf("schoology users: %w", err)
		}
		users = append(users, page.User...)
		url = page.Links.Next
	}
	return users, nil
}

// Role is one institutional role; role names distinguish teachers from
// students when mapping users.
type Role struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Roles pulls the role catalog.
func (c *Client) Roles(ctx context.Context) ([]Role, error) {
	var roles []Role
	url := c.baseURL + "roles"
	for url != "" {
		var page struct {
			Role  []Role `json:"role"`
			Links links  `json:"links"`
		}
		if err := c.fetch.GetJSON(ctx, url, c.authHeader(), &page); err != nil {
			return nil, fmt.Errorf("schoology roles: %w", err)
		}
		roles = append(roles, page.Role...)
		url = page.Links.Next
	}
	return roles, nil
}

// Course is the raw course shape returned by /courses.
type Course struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Courses pulls every course.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	var courses []Course
	url := fmt.Sprintf("%scourses?start=0&limit=%d", c.baseURL, c.pageSize)
	for url != "" {
		var page struct {
			Course []Course `json:"course"`
			Links  links    `json:"links"`
		}
		if err := c.fetch.GetJSON(ctx, url, c.authHeader(), &page); err != nil {
			return nil, fmt.Errorf("schoology courses: %w", err)
		}
		courses = append(courses, page.Course...)
		url = page.Links.Next
	}
	return courses, nil
}

// Section is the raw section shape returned by /courses/{id}/sections.
type Section struct {
	ID             string `json:"id"`
	SectionTitle   string `json:"section_title"`
	SectionCode    string `json:"section_code"`
	CourseTitle    string `json:"course_title"`
	Description    string `json:"description"`
	Active         int    `json:"active"`
	GradingPeriods []int  `json:"grading_periods"`
}

// Sections pulls the sections of one course.
func (c *Client) Sections(ctx context.Context, courseID int64) ([]Section, error) {
	var sections []Section
	url := fmt.Sprintf("%scourses/%d/sections", c.baseURL, courseID)
	for url != "" {
		var page struct {
			Section []Section `json:"section"`
			Links   links     `json:"links"`
		}
		if err := c.fetch.GetJSON(ctx, url, c.authHeader(), &page); err != nil {
			return nil, fmt.Errorf("schoology sections for course %d: %w", courseID, err)
		}
		sections = append(sections, page.Section...)
		url = page.Links.Next
	}
	return sections, nil
}

// Enrollment is the raw enrollment shape returned by
// /sections/{id}/enrollments.
type Enrollment struct {
	ID     string `json:"id"`
	UID    string `json:"uid"`
	Status string `json:"status"`
	Admin  int    `json:"admin"`
}

// Enrollments pulls the enrollments of one section.
func (c *Client) Enrollments(ctx context.Context, sectionID string) ([]Enrollment, error) {
	var enrollments []Enrollment
	url := fmt.Sprintf("%ssections/%s/enrollments?start=0&limit=%d", c.baseURL, sectionID, c.pageSize)
	for url != "" {
		var page struct {
			Enrollment []Enrollment `json:"enrollment"`
			Links      links        `json:"links"`
		}
		if err := c.fetch.GetJSON(ctx, url, c.authHeader(), &page); err != nil {
			return nil, fmt.Errorf("schoology enrollments for section %s: %w", sectionID, err)
		}
		enrollments = append(enrollments, page.Enrollment...)
		url = page.Links.Next
	}
	return enrollments, nil
}

// Assignment is the raw assignment shape returned by
// /sections/{id}/assignments.
type Assignment struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Due         string `json:"due"`
	MaxPoints   string `json:"max_points"`
}

// Assignments pulls the assignments of one section.
func (c *Client) Assignments(ctx context.Context, sectionID string) ([]Assignment, error) {
	var assignments []Assignment
	url := fmt.Sprintf("%ssections/%s/assignments?start=0&limit=%d", c.baseURL, sectionID, c.pageSize)
	for url != "" {
		var page struct {
			Assignment []Assignment `json:"assignment"`
			Links      links        `json:"links"`
		}
		if err := c.fetch.GetJSON(ctx, url, c.authHeader(), &page); err != nil {
			return nil, fmt.Errorf("schoology assignments for section %s: %w", sectionID, err)
		}
		assignments = append(assignments, page.Assignment...)
		url = page.Links.Next
	}
	return assignments, nil
}

// Submission is the raw revision shape returned by
// /sections/{id}/submissions/{grade_item_id}.
type Submission struct {
	UID     int64 `json:"uid"`
	Created int64 `json:"created"`
	Late    int   `json:"late"`
	Draft   int   `json:"draft"`
}

// Submissions pulls the submissions against one assignment.
func (c *Client) Submissions(ctx context.Context, sectionID, assignmentID string) ([]Submission, error) {
	var submissions []Submission
	url := fmt.Sprintf("%ssections/%s/submissions/%s", c.baseURL, sectionID, assignmentID)
	for url != "" {
		var page struct {
			Revision []Submission `json:"revision"`
			Links    links        `json:"links"`
		}
		if err := c.fetch.GetJSON(ctx, url, c.authHeader(), &page); err != nil {
			return nil, fmt.Errorf("schoology submissions for assignment %s: %w", assignmentID, err)
		}
		submissions = append(submissions, page.Revision...)
		url = page.Links.Next
	}
	return submissions, nil
}

// PeriodGrade is one grading period's grade within a FinalGrade record.
type PeriodGrade struct {
	PeriodID string  `json:"period_id"`
	Grade    float64 `json:"grade"`
}

// FinalGrade is one enrollment's final grade per grading period, from
// /sections/{id}/grades.
type FinalGrade struct {
	EnrollmentID int64         `json:"enrollment_id"`
	Periods      []PeriodGrade `json:"period"`
}

// Grades pulls the final grades of one section.
func (c *Client) Grades(ctx context.Context, sectionID string) ([]FinalGrade, error) {
	url := fmt.Sprintf("%ssections/%s/grades", c.baseURL, sectionID)
	var page struct {
		FinalGrade []FinalGrade `json:"final_grade"`
	}
	if err := c.fetch.GetJSON(ctx, url, c.authHeader(), &page); err != nil {
		return nil, fmt.Errorf("schoology grades for section %s: %w", sectionID, err)
	}
	return page.FinalGrade, nil
}

// Attendance is a single enrollment's attendance mark within a status block.
type Attendance struct {
	EnrollmentID int64 `json:"enrollment_id"`
	Status       int   `json:"status"`
}

// AttendanceStatusBlock groups the attendance marks under one status node.
type AttendanceStatusBlock struct {
	Attendances struct {
		Attendance []Attendance `json:"attendance"`
	} `json:"attendances"`
}

// AttendanceDate is one day's nested attendance block from
// /sections/{id}/attendance.
type AttendanceDate struct {
	Date     string `json:"date"`
	Statuses struct {
		Status []AttendanceStatusBlock `json:"status"`
	} `json:"statuses"`
}

// Attendance pulls the attendance events of one section.
func (c *Client) Attendance(ctx context.Context, sectionID string) ([]AttendanceDate, error) {
	url := fmt.Sprintf("%ssections/%s/attendance", c.baseURL, sectionID)
	var page struct {
		Date []AttendanceDate `json:"date"`
	}
	if err := c.fetch.GetJSON(ctx, url, c.authHeader(), &page); err != nil {
		return nil, fmt.Errorf("schoology attendance for section %s: %w", sectionID, err)
	}
	return page.Date, nil
}
