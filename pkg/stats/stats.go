package stats

import "time"

// Summary describes the calendar over the window [From, To].
type Summary struct {
	From                time.Time
	To                  time.Time
	TotalEvents         int
	RecurringRules      int
	EventsWithReminders int
	UpcomingOccurrences int
	// BusiestDay is the first weekday, counting from Sunday, with the most occurrences.
	BusiestDay      time.Weekday
	AverageDuration time.Duration
	LongestTitle    string
	LongestDuration time.Duration
	DayCounts       [7]int
}
