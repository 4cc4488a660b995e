package models

// Date and clock layouts used everywhere a day or time-of-day is persisted.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Phase is the active regimen for a given cycle day.
type Phase string

const (
	PhaseCoffee   Phase = "coffee"
	PhaseNicotine Phase = "nicotine"
)

// NoData is the units sentinel written by the auto-log slot when the user
// never answered the evening prompt.
const NoData = -1

// User holds per-chat cycle configuration.
type User struct {
	ChatID         int64  `db:"chat_id"`
	CycleStart     string `db:"cycle_start"` // YYYY-MM-DD, anchor of the current 7-day cycle
	MorningAt      string `db:"morning_at"`  // "HH:MM"
	EveningAt      string `db:"evening_at"`  // "HH:MM"
	CoffeeTarget   int    `db:"coffee_target"`
	NicotineTarget int    `db:"nicotine_target"`
	Paused         bool   `db:"paused"`
	PauseStartedOn string `db:"pause_started_on"` // YYYY-MM-DD, empty unless paused
	PauseDays      int    `db:"pause_days"`       // accumulated days from completed pauses
	CreatedAt      int64  `db:"created_at"`
}

// DailyLog stores one consumption entry per chat per day.
type DailyLog struct {
	ChatID int64  `db:"chat_id"`
	Day    string `db:"day"` // YYYY-MM-DD
	Phase  Phase  `db:"phase"`
	Units  int    `db:"units"` // NoData when auto-logged
	Note   string `db:"note"`
}

// Logged reports whether the entry carries a user-entered value.
func (l DailyLog) Logged() bool { return l.Units != NoData }

// Conversation is the persisted dialogue position for a chat.
// A missing row means idle.
type Conversation struct {
	ChatID    int64  `db:"chat_id"`
	Step      Step   `db:"step"`
	Payload   string `db:"payload"` // partial input collected so far
	StartedAt int64  `db:"started_at"`
}

// Slot names the four daily notification opportunities.
type Slot string

const (
	SlotMorning Slot = "morning"
	SlotEvening Slot = "evening"
	SlotNudge   Slot = "nudge"
	SlotAutoLog Slot = "autolog"
)

// Keyboard selects the reply-keyboard surface attached to an outbound message.
type Keyboard int

const (
	KeyboardKeep   Keyboard = iota // leave the current keyboard alone
	KeyboardFull                   // full command menu
	KeyboardPaused                 // resume button only
)

// Inbound is a normalized user event: a text message or a button press,
// already reduced to its text by the transport adapter.
type Inbound struct {
	ChatID int64
	Text   string
}

// Outbound is a message the engine wants delivered.
type Outbound struct {
	ChatID   int64
	Text     string
	Keyboard Keyboard
}
