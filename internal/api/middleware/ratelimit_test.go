package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Int(1), args.Get(2).(time.Time), args.Error(3)
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRateLimitMiddleware(t *testing.T) {
	reset := time.Date(2024, 5, 1, 10, 1, 0, 0, time.UTC)

	tests := []struct {
		name      string
		allowed   bool
		err       error
		status    int
		remaining string
	}{
		{name: "allowed", allowed: true, status: http.StatusOK, remaining: "4"},
		{name: "limited", allowed: false, status: http.StatusTooManyRequests, remaining: "4"},
		{name: "limiter error fails open", err: errors.New("redis down"), status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := new(MockLimiter)
			limiter.On("Allow", mock.Anything, "192.0.2.1").Return(tt.allowed, 4, reset, tt.err)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/widgets", nil)
			req.RemoteAddr = "192.0.2.1:51234"
			rec := httptest.NewRecorder()

			NewRateLimitMiddleware(limiter).Limit(okHandler).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.remaining, rec.Header().Get("X-RateLimit-Remaining"))
			limiter.AssertExpectations(t)
		})
	}
}

func TestLocalLimiter(t *testing.T) {
	l := NewLocalLimiter(60, 2)
	defer l.Shutdown()
	ctx := context.Background()

	allowed, _, _, err := l.Allow(ctx, "a")
	assert.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, _, _ = l.Allow(ctx, "a")
	assert.True(t, allowed)

	allowed, remaining, reset, _ := l.Allow(ctx, "a")
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
	assert.True(t, reset.After(time.Now()))

	// keys are independent
	allowed, _, _, _ = l.Allow(ctx, "b")
	assert.True(t, allowed)
}

func TestLogger(t *testing.T) {
	rec := httptest.NewRecorder()
	Logger(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
