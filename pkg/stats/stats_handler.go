package stats

import (
	"net/http"
	"strconv"
	"time"

	"github.com/klokku/planner/internal/rest"
	"github.com/klokku/planner/pkg/recurrence"
	log "github.com/sirupsen/logrus"
)

type StatsSummaryDTO struct {
	From                string         `json:"from"`
	To                  string         `json:"to"`
	TotalEvents         int            `json:"totalEvents"`
	RecurringRules      int            `json:"recurringRules"`
	EventsWithReminders int            `json:"eventsWithReminders"`
	UpcomingOccurrences int            `json:"upcomingOccurrences"`
	BusiestDay          string         `json:"busiestDay"`
	AverageMinutes      int            `json:"averageMinutes"`
	LongestTitle        string         `json:"longestTitle"`
	LongestMinutes      int            `json:"longestMinutes"`
	DayCounts           map[string]int `json:"dayCounts"`
}

type StatsHandler struct {
	statsService     StatsService
	csvStatsRenderer StatsRenderer
	defaultDays      int
}

func NewStatsHandler(statsService StatsService, csvStatsRenderer StatsRenderer, defaultDays int) *StatsHandler {
	return &StatsHandler{statsService, csvStatsRenderer, defaultDays}
}

// GetStats godoc
// @Summary Calendar statistics for the coming days
// @Produce json,text/csv
// @Param days query int false "Number of days after today to include"
// @Param format query string false "json (default) or csv"
// @Success 200 {object} StatsSummaryDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid days"
// @Router /api/stats [get]
func (handler *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	days := handler.defaultDays
	if daysString := r.URL.Query().Get("days"); daysString != "" {
		parsed, err := strconv.Atoi(daysString)
		if err != nil || parsed < 0 {
			rest.WriteError(w, http.StatusBadRequest, "Invalid days", "days must be a non-negative number")
			return
		}
		days = parsed
	}

	stats, err := handler.statsService.GetStats(r.Context(), days)
	if err != nil {
		log.Errorf("failed to calculate stats: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Failed to calculate stats", "")
		return
	}

	if r.URL.Query().Get("format") == "csv" || r.Header.Get("Accept") == "text/csv" {
		csv, err := handler.csvStatsRenderer.RenderStats(stats)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(csv)); err != nil {
			log.Errorf("failed to write csv stats: %v", err)
		}
		return
	}
	rest.WriteJSON(w, http.StatusOK, convertToJsonResponse(stats))
}

func convertToJsonResponse(stats Summary) StatsSummaryDTO {
	dayCounts := make(map[string]int, len(stats.DayCounts))
	for weekday, count := range stats.DayCounts {
		dayCounts[time.Weekday(weekday).String()] = count
	}
	return StatsSummaryDTO{
		From:                stats.From.Format(recurrence.DateLayout),
		To:                  stats.To.Format(recurrence.DateLayout),
		TotalEvents:         stats.TotalEvents,
		RecurringRules:      stats.RecurringRules,
		EventsWithReminders: stats.EventsWithReminders,
		UpcomingOccurrences: stats.UpcomingOccurrences,
		BusiestDay:          stats.BusiestDay.String(),
		AverageMinutes:      int(stats.AverageDuration.Minutes()),
		LongestTitle:        stats.LongestTitle,
		LongestMinutes:      int(stats.LongestDuration.Minutes()),
		DayCounts:           dayCounts,
	}
}
