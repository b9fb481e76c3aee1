package constants

import "time"

const (
	// Visible operating window of the day timeline
	TimelineStartHour = 6
	TimelineEndHour   = 22

	// TimelineMinWidth keeps very short trips visible on the board
	TimelineMinWidth = 0.05

	// Locale week indices (Saturday-first)
	WeekendStartIndex = 5
	DaysPerWeek       = 7
)

// Staleness windows per cache root
const (
	ReferenceStaleAfter = 60 * time.Minute
	SummaryStaleAfter   = 2 * time.Minute
	ResourceStaleAfter  = 0

	DefaultAlertRefresh = time.Minute
)
