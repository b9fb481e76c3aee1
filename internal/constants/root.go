package constants

import "time"

// SessionState represents the current state of the TUI application
type SessionState int

const (
	AppName            = "fleetboard"
	DefaultKeyringUser = "api-token"
	Version            = "v0.3.0"

	// EnvPrefix is prepended to every environment variable read by config
	EnvPrefix = "FLEETBOARD_"

	// DefaultAPIURL points at a locally running Schedule Service
	DefaultAPIURL = "http://localhost:8000/api/v1"

	// DefaultTimezone is the dispatch office timezone
	DefaultTimezone = "Asia/Dubai"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// WireTimeFormat is the time-of-day format the Schedule Service sends (HH:MM:SS)
	WireTimeFormat = "15:04:05"

	// Remote call constants
	DefaultHTTPTimeout = 15 * time.Second
	DefaultReadRetries = 3
	RetryBaseDelay     = 200 * time.Millisecond
	RequestIDHeader    = "X-Request-ID"

	// Notify constants
	NotifierLockfileName   = "fleetboard-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.julianstephens.fleetboard"
	TrayExecutablePrefix   = "fleetboard-tray"
	DefaultAMQPExchange    = "fleetboard.outcomes"

	// Auto-assign constants
	DefaultMinRestHours = 12
	MinRestHoursFloor   = 8
	MinRestHoursCeiling = 24
)

// Session States
const (
	StateBoard SessionState = iota
	StateCalendar
	StateAssignments
	StateAlerts
	StateDeliveryForm
	StateConfirmGenerate
	StateConfirmDelete
)
