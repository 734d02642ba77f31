package enums

import "fmt"

// ReminderFrequency controls how often payment reminders fire for a pending
// invoice.
type ReminderFrequency string

const (
	ReminderFrequencyNone    ReminderFrequency = "none"
	ReminderFrequencyDaily   ReminderFrequency = "daily"
	ReminderFrequencyWeekly  ReminderFrequency = "weekly"
	ReminderFrequencyMonthly ReminderFrequency = "monthly"
)

var validReminderFrequencies = []ReminderFrequency{
	ReminderFrequencyNone,
	ReminderFrequencyDaily,
	ReminderFrequencyWeekly,
	ReminderFrequencyMonthly,
}

// IsValid reports whether the frequency is recognized.
func (f ReminderFrequency) IsValid() bool {
	for _, candidate := range validReminderFrequencies {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseReminderFrequency converts raw input into a ReminderFrequency.
func ParseReminderFrequency(value string) (ReminderFrequency, error) {
	for _, candidate := range validReminderFrequencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reminder frequency %q", value)
}
