package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	return New(Options{
		MaxAttempts:       3,
		RetryWindow:       5 * time.Second,
		RequestsPerSecond: 1000,
	})
}

func TestGetJSON_DecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user":[{"id":"u1"}]}`))
	}))
	defer srv.Close()

	var out struct {
		User []struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	err := testClient().GetJSON(context.Background(), srv.URL, nil, &out)
	require.NoError(t, err)
	require.Len(t, out.User, 1)
	assert.Equal(t, "u1", out.User[0].ID)
}

func TestGetJSON_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	err := testClient().GetJSON(context.Background(), srv.URL, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGetJSON_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := testClient().GetJSON(context.Background(), srv.URL, nil, nil)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.EqualValues(t, 1, calls.Load(), "4xx must not be retried")
}

func TestGetJSON_RetryBudgetExhausted(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := testClient().GetJSON(context.Background(), srv.URL, nil, nil)
	require.Error(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestPostJSON_SendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	err := testClient().PostJSON(context.Background(), srv.URL, nil, map[string]string{"query": "{}"}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
}

func TestStatusError_Transient(t *testing.T) {
	assert.True(t, (&StatusError{StatusCode: 429}).Transient())
	assert.True(t, (&StatusError{StatusCode: 503}).Transient())
	assert.False(t, (&StatusError{StatusCode: 404}).Transient())
}
