package tracker

import (
	"time"
)

// Frequency is how often a medication is taken each day
type Frequency string

const (
	OnceDaily       Frequency = "once_daily"
	TwiceDaily      Frequency = "twice_daily"
	ThreeTimesDaily Frequency = "three_times_daily"
	AsNeeded        Frequency = "as_needed"
)

// ValidFrequency reports whether f is one of the allowed values
func ValidFrequency(f Frequency) bool {
	switch f {
	case OnceDaily, TwiceDaily, ThreeTimesDaily, AsNeeded:
		return true
	}
	return false
}

// DoseTimes returns the daily dose times ("HH:MM") for a frequency.
// AsNeeded has no scheduled times.
func (f Frequency) DoseTimes() []string {
	switch f {
	case OnceDaily:
		return []string{"09:00"}
	case TwiceDaily:
		return []string{"09:00", "21:00"}
	case ThreeTimesDaily:
		return []string{"09:00", "14:00", "21:00"}
	}
	return nil
}

// DoseStatus is the outcome recorded for a single dose
type DoseStatus string

const (
	StatusTaken   DoseStatus = "taken"
	StatusMissed  DoseStatus = "missed"
	StatusDelayed DoseStatus = "delayed"
)

// ValidDoseStatus reports whether s is one of the allowed values
func ValidDoseStatus(s DoseStatus) bool {
	switch s {
	case StatusTaken, StatusMissed, StatusDelayed:
		return true
	}
	return false
}

// StockSentiment classifies inventory level against the refill threshold
type StockSentiment string

const (
	StockGood    StockSentiment = "good"
	StockWarning StockSentiment = "warning"
	StockLow     StockSentiment = "low"
)

// Medication is a tracked drug with its schedule and supply
type Medication struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"index" json:"name"`
	Dosage          string    `json:"dosage"`
	Frequency       Frequency `json:"frequency"`
	Instructions    string    `json:"instructions"`
	Stock           int       `json:"stock"`
	RefillThreshold int       `json:"refill_threshold"`
	Category        string    `json:"category"`
	NextDose        string    `json:"next_dose"` // first daily dose time, "HH:MM"
	TimesJSON       string    `json:"-" gorm:"type:text"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`

	Times []string `json:"times" gorm:"-"`
}

// DoseLogEntry is one append-only record of a dose outcome.
// MedicationName is a denormalized display copy; MedicationID is the
// stable reference used for joins and cascade checks.
type DoseLogEntry struct {
	ID             string     `gorm:"primaryKey" json:"id"`
	MedicationID   string     `gorm:"index" json:"medication_id"`
	MedicationName string     `json:"medication"`
	Date           time.Time  `gorm:"index" json:"date"` // day precision
	Status         DoseStatus `json:"status"`
	Notes          string     `json:"notes"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Reminder is a scheduled prompt for one medication
type Reminder struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	MedicationID   string    `gorm:"index" json:"medication_id"`
	MedicationName string    `json:"medication"`
	At             time.Time `gorm:"index" json:"datetime"`
	Note           string    `json:"note"`
	CreatedAt      time.Time `json:"created_at"`
}

// PersonalInfo is the singleton patient record, form-edited in place
type PersonalInfo struct {
	ID               uint      `gorm:"primaryKey" json:"-"`
	Name             string    `json:"name"`
	Age              int       `json:"age"`
	Address          string    `json:"address"`
	EmergencyContact string    `json:"emergency_contact"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NotificationType is the display sentiment of a notification
type NotificationType string

const (
	NotifyWarning NotificationType = "warning"
	NotifyInfo    NotificationType = "info"
	NotifySuccess NotificationType = "success"
)

// Notification is a display-only message; never dismissed in this scope
type Notification struct {
	ID        string           `gorm:"primaryKey" json:"id"`
	Type      NotificationType `json:"type"`
	Message   string           `gorm:"index" json:"message"`
	CreatedAt time.Time        `json:"created_at"`
}

// CalendarEvent is the (title, start, end) triple consumed by the
// calendar display surface. End is always start plus 30 minutes.
type CalendarEvent struct {
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
