package httpx

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/textstream/textstream/pkg/config"
)

func TestRateLimit_Disabled(t *testing.T) {
	wrapped := RateLimit(config.RateLimitConfig{RequestsPerSecond: 0, Burst: 1})(okHandler("ok"))

	for range 50 {
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/start", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimit_RejectsOverBurst(t *testing.T) {
	wrapped := RateLimit(config.RateLimitConfig{RequestsPerSecond: 0.1, Burst: 2})(okHandler("ok"))

	for range 2 {
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/start", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/start", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Contains(t, w.Body.String(), "RATE_LIMITED")

	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	require.Positive(t, retry)
	require.LessOrEqual(t, retry, 10)
}

func TestRateLimit_ZeroBurstStillAdmitsOne(t *testing.T) {
	wrapped := RateLimit(config.RateLimitConfig{RequestsPerSecond: 0.1, Burst: 0})(okHandler("ok"))

	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/start", nil))
	require.Equal(t, http.StatusOK, w.Code)
}
