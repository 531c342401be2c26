package stats

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/klokku/planner/pkg/recurrence"
	log "github.com/sirupsen/logrus"
)

type StatsRenderer interface {
	RenderStats(stats Summary) (string, error)
}

type CsvStatsRendererImpl struct {
}

func NewCsvStatsRenderer() *CsvStatsRendererImpl {
	return &CsvStatsRendererImpl{}
}

// RenderStats writes one metric per row followed by the occurrence count of every weekday.
func (t *CsvStatsRendererImpl) RenderStats(stats Summary) (string, error) {
	data := [][]string{
		{"Metric", "Value"},
		{"From", stats.From.Format(recurrence.DateLayout)},
		{"To", stats.To.Format(recurrence.DateLayout)},
		{"Total stored events", strconv.Itoa(stats.TotalEvents)},
		{"Recurring rules", strconv.Itoa(stats.RecurringRules)},
		{"Events with reminders", strconv.Itoa(stats.EventsWithReminders)},
		{"Upcoming occurrences", strconv.Itoa(stats.UpcomingOccurrences)},
		{"Busiest day of week", stats.BusiestDay.String()},
		{"Average duration", durationToString(stats.AverageDuration)},
		{"Longest event", stats.LongestTitle},
		{"Longest duration", durationToString(stats.LongestDuration)},
	}
	for weekday := time.Sunday; weekday <= time.Saturday; weekday++ {
		data = append(data, []string{weekday.String(), strconv.Itoa(stats.DayCounts[weekday])})
	}

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	for _, row := range data {
		err := writer.Write(row)
		if err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}

	return b.String(), nil
}

func durationToString(duration time.Duration) string {
	hours := strconv.Itoa(int(duration.Hours()))
	if len(hours) == 1 {
		hours = "0" + hours
	}
	minutes := strconv.Itoa(int(duration.Minutes()) % 60)
	if len(minutes) == 1 {
		minutes = "0" + minutes
	}
	seconds := strconv.Itoa(int(duration.Seconds()) % 60)
	if len(seconds) == 1 {
		seconds = "0" + seconds
	}
	return hours + ":" + minutes + ":" + seconds
}
