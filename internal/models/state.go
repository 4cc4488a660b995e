package models

// Step enumerates the dialogue positions of the conversation engine.
// Persisted as text, so values must stay stable.
type Step string

const (
	StepIdle          Step = ""
	StepAwaitLog      Step = "await_log_value"
	StepAwaitMorning  Step = "await_morning_time"
	StepAwaitEvening  Step = "await_evening_time"
	StepAwaitCoffee   Step = "await_coffee_dose"
	StepAwaitNicotine Step = "await_nicotine_dose"
)
