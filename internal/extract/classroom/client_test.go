package classroom

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slate/internal/fetch"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	f := fetch.New(fetch.Options{MaxAttempts: 1, RequestsPerSecond: 1000, Timeout: 5 * time.Second})
	return NewClient(f, "tok", srv.URL+"/v1/"), srv
}

func TestCourses_FollowsPageTokens(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.Equal(t, "/v1/courses", r.URL.Path)

		if r.URL.Query().Get("pageToken") == "" {
			fmt.Fprint(w, `{"courses":[{"id":"c1"},{"id":"c2"}],"nextPageToken":"p2"}`)
			return
		}
		assert.Equal(t, "p2", r.URL.Query().Get("pageToken"))
		fmt.Fprint(w, `{"courses":[{"id":"c3"}]}`)
	}))
	defer srv.Close()

	courses, err := c.Courses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 3)
	assert.Equal(t, "c3", courses[2].ID)
}

func TestStudents_DecodesProfile(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/courses/c1/students", r.URL.Path)
		fmt.Fprint(w, `{"students":[
			{"courseId":"c1","userId":"u1","profile":{"name":{"fullName":"Kyle Brown"},"emailAddress":"kyle@example.edu"}}
		]}`)
	}))
	defer srv.Close()

	students, err := c.Students(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Kyle Brown", students[0].Profile.Name.FullName)
	assert.Equal(t, "kyle@example.edu", students[0].Profile.EmailAddress)
}

func TestStudentSubmissions_Path(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/courses/c1/courseWork/w1/studentSubmissions", r.URL.Path)
		fmt.Fprint(w, `{"studentSubmissions":[{"id":"s1","state":"TURNED_IN","late":true}]}`)
	}))
	defer srv.Close()

	submissions, err := c.StudentSubmissions(context.Background(), "c1", "w1")
	require.NoError(t, err)
	require.Len(t, submissions, 1)
	assert.True(t, submissions[0].Late)
}
