package tracker

import (
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/medtrackpro/medtrack/internal/errors"
)

// Defaults applied when a user adds a medication without the optional fields
const (
	DefaultStock           = 30
	DefaultRefillThreshold = 10
	DefaultCategory        = "Other"
)

// Service owns one session's medication state and exposes the user-facing
// operations over it. All reads and writes go through the session's Store.
type Service struct {
	store  *Store
	logger *zap.Logger
}

func NewService(store *Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Store exposes the underlying store for read-heavy callers (dashboard
// queries, the seeder, the sweeper)
func (s *Service) Store() *Store {
	return s.store
}

// AddMedicationInput carries the add-medication form. Name and Dosage are
// required; everything else falls back to defaults.
type AddMedicationInput struct {
	Name            string   `json:"name"`
	Dosage          string   `json:"dosage"`
	Frequency       string   `json:"frequency"`
	Instructions    string   `json:"instructions"`
	Stock           *int     `json:"stock"`
	RefillThreshold *int     `json:"refill_threshold"`
	Category        string   `json:"category"`
	Times           []string `json:"times"`
}

// AddMedication validates the form and persists a new medication
func (s *Service) AddMedication(in AddMedicationInput) (*Medication, error) {
	name := strings.TrimSpace(in.Name)
	dosage := strings.TrimSpace(in.Dosage)
	if name == "" || dosage == "" {
		return nil, apperrors.Detail(apperrors.ErrValidation, "name and dosage are required")
	}

	freq := Frequency(in.Frequency)
	if in.Frequency == "" {
		freq = OnceDaily
	} else if !ValidFrequency(freq) {
		return nil, apperrors.Detail(apperrors.ErrInvalidEnum, "unknown frequency: "+in.Frequency)
	}

	med := &Medication{
		Name:            name,
		Dosage:          dosage,
		Frequency:       freq,
		Instructions:    strings.TrimSpace(in.Instructions),
		Stock:           DefaultStock,
		RefillThreshold: DefaultRefillThreshold,
		Category:        DefaultCategory,
		Times:           in.Times,
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return nil, apperrors.Detail(apperrors.ErrValidation, "stock cannot be negative")
		}
		med.Stock = *in.Stock
	}
	if in.RefillThreshold != nil {
		if *in.RefillThreshold < 0 {
			return nil, apperrors.Detail(apperrors.ErrValidation, "refill threshold cannot be negative")
		}
		med.RefillThreshold = *in.RefillThreshold
	}
	if c := strings.TrimSpace(in.Category); c != "" {
		med.Category = c
	}
	if len(med.Times) == 0 {
		med.Times = freq.DoseTimes()
	}
	if len(med.Times) > 0 {
		med.NextDose = med.Times[0]
	}

	if err := s.store.CreateMedication(med); err != nil {
		return nil, err
	}
	s.logger.Info("medication added",
		zap.String("medication_id", med.ID),
		zap.String("name", med.Name))
	return med, nil
}

// RemoveMedication deletes a medication. When the medication still has
// dose-log entries or reminders the removal is rejected unless cascade is
// set, in which case the referencing rows are removed with it.
func (s *Service) RemoveMedication(id string, cascade bool) error {
	med, err := s.store.GetMedication(id)
	if err != nil {
		return err
	}
	if med == nil {
		return apperrors.ErrMedicationNotFound
	}

	doses, rems, err := s.store.CountMedicationRefs(id)
	if err != nil {
		return err
	}
	if doses+rems > 0 {
		if !cascade {
			return apperrors.Detail(apperrors.ErrMedicationReferenced,
				"medication has dose history or reminders; pass cascade to remove them")
		}
		if err := s.store.DeleteMedicationRefs(id); err != nil {
			return err
		}
	}

	if err := s.store.DeleteMedication(id); err != nil {
		return err
	}
	s.logger.Info("medication removed",
		zap.String("medication_id", id),
		zap.Bool("cascade", cascade))
	return nil
}

// LogDoseInput records one dose event for today
type LogDoseInput struct {
	MedicationID string `json:"medication_id"`
	Status       string `json:"status"`
	Notes        string `json:"notes"`
}

// LogDose appends a dose-log entry dated today
func (s *Service) LogDose(in LogDoseInput, now time.Time) (*DoseLogEntry, error) {
	status := DoseStatus(in.Status)
	if !ValidDoseStatus(status) {
		return nil, apperrors.Detail(apperrors.ErrInvalidEnum, "unknown dose status: "+in.Status)
	}

	med, err := s.store.GetMedication(in.MedicationID)
	if err != nil {
		return nil, err
	}
	if med == nil {
		return nil, apperrors.ErrMedicationNotFound
	}

	entry := &DoseLogEntry{
		MedicationID:   med.ID,
		MedicationName: med.Name,
		Date:           now,
		Status:         status,
		Notes:          strings.TrimSpace(in.Notes),
	}
	if err := s.store.CreateDoseLog(entry); err != nil {
		return nil, err
	}
	s.logger.Info("dose logged",
		zap.String("medication_id", med.ID),
		zap.String("status", string(status)))
	return entry, nil
}

// SetReminderInput schedules a one-off reminder
type SetReminderInput struct {
	MedicationID string    `json:"medication_id"`
	At           time.Time `json:"at"`
	Note         string    `json:"note"`
}

// SetReminder persists a reminder for a known medication
func (s *Service) SetReminder(in SetReminderInput) (*Reminder, error) {
	if in.At.IsZero() {
		return nil, apperrors.Detail(apperrors.ErrValidation, "reminder time is required")
	}

	med, err := s.store.GetMedication(in.MedicationID)
	if err != nil {
		return nil, err
	}
	if med == nil {
		return nil, apperrors.ErrMedicationNotFound
	}

	rem := &Reminder{
		MedicationID:   med.ID,
		MedicationName: med.Name,
		At:             in.At,
		Note:           strings.TrimSpace(in.Note),
	}
	if err := s.store.CreateReminder(rem); err != nil {
		return nil, err
	}
	s.logger.Info("reminder set",
		zap.String("medication_id", med.ID),
		zap.Time("at", in.At))
	return rem, nil
}

// UpdatePersonalInfo replaces the profile singleton with the given values
func (s *Service) UpdatePersonalInfo(info *PersonalInfo) (*PersonalInfo, error) {
	if strings.TrimSpace(info.Name) == "" {
		return nil, apperrors.Detail(apperrors.ErrValidation, "name is required")
	}
	if info.Age < 0 || info.Age > 150 {
		return nil, apperrors.Detail(apperrors.ErrValidation, "age out of range")
	}
	if err := s.store.SavePersonalInfo(info); err != nil {
		return nil, err
	}
	s.logger.Info("personal info updated")
	return info, nil
}

// AddNotification posts a message to the notification feed. Duplicate
// messages are dropped by the store.
func (s *Service) AddNotification(typ NotificationType, message string) error {
	if strings.TrimSpace(message) == "" {
		return apperrors.Detail(apperrors.ErrValidation, "notification message is required")
	}
	switch typ {
	case NotifyWarning, NotifyInfo, NotifySuccess:
	default:
		return apperrors.Detail(apperrors.ErrInvalidEnum, "unknown notification type: "+string(typ))
	}
	return s.store.CreateNotification(&Notification{Type: typ, Message: message})
}
