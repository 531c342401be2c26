package stats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statsServiceStub struct {
	summary   Summary
	err       error
	requested int
}

func (s *statsServiceStub) GetStats(ctx context.Context, days int) (Summary, error) {
	s.requested = days
	return s.summary, s.err
}

func TestStatsHandler_GetStats(t *testing.T) {
	stub := &statsServiceStub{summary: Summary{
		From:                at(2024, 1, 1, 0, 0),
		To:                  at(2024, 1, 8, 0, 0),
		UpcomingOccurrences: 3,
		BusiestDay:          time.Wednesday,
		AverageDuration:     45 * time.Minute,
		LongestTitle:        "Planning",
		LongestDuration:     90 * time.Minute,
	}}
	handler := NewStatsHandler(stub, NewCsvStatsRenderer(), 30)

	t.Run("json with explicit days", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.GetStats(rr, httptest.NewRequest(http.MethodGet, "/api/stats?days=7", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 7, stub.requested)
		var dto StatsSummaryDTO
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&dto))
		assert.Equal(t, "2024-01-08", dto.To)
		assert.Equal(t, "Wednesday", dto.BusiestDay)
		assert.Equal(t, 45, dto.AverageMinutes)
		assert.Equal(t, 90, dto.LongestMinutes)
	})

	t.Run("csv with default days", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.GetStats(rr, httptest.NewRequest(http.MethodGet, "/api/stats?format=csv", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 30, stub.requested)
		assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(rr.Body.String(), "Metric,Value\n"))
	})

	t.Run("invalid days", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.GetStats(rr, httptest.NewRequest(http.MethodGet, "/api/stats?days=-3", nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestStatsHandler_GetStats_ServiceFailure(t *testing.T) {
	handler := NewStatsHandler(&statsServiceStub{err: errors.New("boom")}, NewCsvStatsRenderer(), 30)
	rr := httptest.NewRecorder()

	handler.GetStats(rr, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
