package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCsvStatsRendererImpl_RenderStats(t *testing.T) {
	stats := Summary{
		From:                at(2024, 1, 1, 0, 0),
		To:                  at(2024, 1, 31, 0, 0),
		TotalEvents:         4,
		RecurringRules:      2,
		EventsWithReminders: 1,
		UpcomingOccurrences: 10,
		BusiestDay:          time.Sunday,
		AverageDuration:     49 * time.Minute,
		LongestTitle:        "Workshop, part 1",
		LongestDuration:     3 * time.Hour,
		DayCounts:           [7]int{4, 1, 1, 1, 1, 1, 1},
	}

	got, err := NewCsvStatsRenderer().RenderStats(stats)

	require.NoError(t, err)
	want := "Metric,Value\n" +
		"From,2024-01-01\n" +
		"To,2024-01-31\n" +
		"Total stored events,4\n" +
		"Recurring rules,2\n" +
		"Events with reminders,1\n" +
		"Upcoming occurrences,10\n" +
		"Busiest day of week,Sunday\n" +
		"Average duration,00:49:00\n" +
		"Longest event,\"Workshop, part 1\"\n" +
		"Longest duration,03:00:00\n" +
		"Sunday,4\n" +
		"Monday,1\n" +
		"Tuesday,1\n" +
		"Wednesday,1\n" +
		"Thursday,1\n" +
		"Friday,1\n" +
		"Saturday,1\n"
	assert.Equal(t, want, got)
}

func TestDurationToString(t *testing.T) {
	assert.Equal(t, "00:00:00", durationToString(0))
	assert.Equal(t, "01:05:09", durationToString(time.Hour+5*time.Minute+9*time.Second))
	assert.Equal(t, "26:00:00", durationToString(26*time.Hour))
}
