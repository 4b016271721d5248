package schoology

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slate/internal/fetch"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	f := fetch.New(fetch.Options{MaxAttempts: 1, RequestsPerSecond: 1000, Timeout: 5 * time.Second})
	return NewClient(f, "key", "secret", srv.URL+"/v1/", 2), srv
}

func TestUsers_FollowsPaginationLinks(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "OAuth realm"))

		switch {
		case strings.Contains(r.URL.RawQuery, "start=0"):
			fmt.Fprintf(w, `{"user":[{"uid":1},{"uid":2}],"links":{"next":"%s/v1/users?start=2&limit=2"}}`, srv.URL)
		default:
			fmt.Fprint(w, `{"user":[{"uid":3}],"links":{}}`)
		}
	}))
	defer srv.Close()

	f := fetch.New(fetch.Options{MaxAttempts: 1, RequestsPerSecond: 1000, Timeout: 5 * time.Second})
	c := NewClient(f, "key", "secret", srv.URL+"/v1/", 2)

	users, err := c.Users(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.EqualValues(t, 3, users[2].UID)
}

func TestAttendance_DecodesNestedShape(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/sections/29/attendance", r.URL.Path)
		fmt.Fprint(w, `{"date":[{"date":"2023-09-05","statuses":{"status":[
			{"attendances":{"attendance":[{"enrollment_id":571,"status":2}]}}
		]}}]}`)
	}))
	defer srv.Close()

	dates, err := c.Attendance(context.Background(), "29")
	require.NoError(t, err)
	require.Len(t, dates, 1)
	require.Len(t, dates[0].Statuses.Status, 1)

	marks := dates[0].Statuses.Status[0].Attendances.Attendance
	require.Len(t, marks, 1)
	assert.EqualValues(t, 571, marks[0].EnrollmentID)
	assert.Equal(t, 2, marks[0].Status)
}
