package constants

const (
	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// DisplayDate and friends mirror the labels the week view prints.
	DisplayDate = "Jan 2"
	FullDate    = "Jan 2, 2006"
	LongDate    = "Monday, January 2, 2006"
	ShortDay    = "Mon"
	Time12H     = "3:04 PM"
)
