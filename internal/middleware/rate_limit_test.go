package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubLimiter struct {
	allowed bool
	err     error
	calls   int
	lastKey string
}

func (l *stubLimiter) Allow(ctx context.Context, keyID string) (bool, error) {
	l.calls++
	l.lastKey = keyID
	return l.allowed, l.err
}

func TestRequestRate(t *testing.T) {
	var nextCalled bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		w.WriteHeader(http.StatusOK)
	})

	serve := func(limiter *stubLimiter, credential string) *httptest.ResponseRecorder {
		nextCalled = false
		req := httptest.NewRequest("POST", "/api/github-summarizer", nil)
		if credential != "" {
			req.Header.Set("Authorization", "Bearer "+credential)
		}
		rec := httptest.NewRecorder()
		RequestRate(limiter, nil)(next).ServeHTTP(rec, req)
		return rec
	}

	t.Run("allowed request passes", func(t *testing.T) {
		limiter := &stubLimiter{allowed: true}
		rec := serve(limiter, "gitsum-dev-abc")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, nextCalled)
		assert.Equal(t, "gitsum-dev-abc", limiter.lastKey)
	})

	t.Run("over the rate is a 429", func(t *testing.T) {
		limiter := &stubLimiter{allowed: false}
		rec := serve(limiter, "gitsum-dev-abc")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.False(t, nextCalled)
	})

	t.Run("limiter failure fails open", func(t *testing.T) {
		limiter := &stubLimiter{err: errors.New("redis down")}
		rec := serve(limiter, "gitsum-dev-abc")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, nextCalled)
	})

	t.Run("missing credential passes through untouched", func(t *testing.T) {
		limiter := &stubLimiter{allowed: false}
		rec := serve(limiter, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, nextCalled)
		assert.Zero(t, limiter.calls)
	})
}
