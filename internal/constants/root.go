package constants

const (
	AppName             = "weekplan"
	DefaultKeyringUser  = "database-connection"
	CalendarKeyringUser = "calendar-token"
	DefaultConfigDir    = "~/.config/weekplan"
	DefaultConfigPath   = "~/.config/weekplan/config.yaml"
	DefaultStorePath    = "~/.config/weekplan/sequences.json"
	DefaultICSPath      = "~/.config/weekplan/calendar.ics"
	Version             = "v0.3.0"

	// SequenceStorageKey names the single slot holding the serialized sequence collection.
	SequenceStorageKey = "weekly-planner-sequences"
	// ArchiveStorageKey holds single-cycle sequences removed by rollover.
	ArchiveStorageKey = "weekly-planner-sequences-archive"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "weekplan-"

	// Session lockfile
	SessionLockfileName = "weekplan-session.lock"

	// Sequence constraints
	MaxSequenceNameLength        = 50
	MaxSequenceDescriptionLength = 200

	// Event constraints
	MaxEventTitleLength     = 255
	MaxEventDescriptionLen  = 8000
	MaxEventDurationHours   = 24
	DefaultEventStartTime   = "09:00"
	DefaultEventEndTime     = "10:00"
	DefaultNotificationMins = 10

	// Calendar defaults
	DefaultCalendarID   = "primary"
	DefaultMaxResults   = 250
	DefaultListenAddr   = "127.0.0.1:8080"
	DefaultRolloverCron = "0 0 * * 0"
	DaysInWeek          = 7

	PastEventTag         = "[COMPLETED]"
	PastEventPlaceholder = "Added retrospectively"
)

// SequenceColors is the fixed palette a sequence color is drawn from.
var SequenceColors = []string{
	"#4285f4", // Blue
	"#ea4335", // Red
	"#34a853", // Green
	"#fbbc04", // Yellow
	"#ff6d01", // Orange
	"#46bdc6", // Cyan
	"#9334e6", // Purple
	"#f538a0", // Pink
	"#7c5295", // Lavender
	"#33b679", // Teal
}

// WeekdayLetters is indexed by time.Weekday.
var WeekdayLetters = []string{"S", "M", "T", "W", "T", "F", "S"}

// NotificationOptions are the reminder offsets (minutes) offered for timed events.
var NotificationOptions = []int{0, 5, 10, 15, 30, 60, 120, 1440}
