package tracker

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	_ "embed"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the seed data parsed from the YAML catalog
type Catalog struct {
	Medications []CatalogMedication `yaml:"medications"`
	PersonalInfo struct {
		Name             string `yaml:"name"`
		Age              int    `yaml:"age"`
		Address          string `yaml:"address"`
		EmergencyContact string `yaml:"emergency_contact"`
	} `yaml:"personal_info"`
	Notifications []struct {
		Type    string `yaml:"type"`
		Message string `yaml:"message"`
	} `yaml:"notifications"`
}

// CatalogMedication is one seed medication definition
type CatalogMedication struct {
	Name            string `yaml:"name"`
	Dosage          string `yaml:"dosage"`
	Frequency       string `yaml:"frequency"`
	Instructions    string `yaml:"instructions"`
	Stock           int    `yaml:"stock"`
	RefillThreshold int    `yaml:"refill_threshold"`
	Category        string `yaml:"category"`
	NextDose        string `yaml:"next_dose"`
}

// LoadCatalog parses the embedded catalog, or an override file when path is
// non-empty
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog: %w", err)
		}
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(cat.Medications) == 0 {
		return nil, fmt.Errorf("catalog has no medications")
	}
	for _, m := range cat.Medications {
		if !ValidFrequency(Frequency(m.Frequency)) {
			return nil, fmt.Errorf("catalog medication %q has unknown frequency %q", m.Name, m.Frequency)
		}
	}
	return &cat, nil
}

// SeedOptions controls the mock data generator
type SeedOptions struct {
	HistoryDays   int
	ReminderDays  int
	TakenWeight   float64
	MissedWeight  float64
	DelayedWeight float64
}

// Seeder populates a fresh store with plausible historical data so the
// analytics views are non-empty on first load
type Seeder struct {
	catalog *Catalog
	opts    SeedOptions
	rng     *rand.Rand
	logger  *zap.Logger
}

// NewSeeder creates a seeder. rng drives the weighted dose-status draws and
// may be fixed for deterministic output.
func NewSeeder(catalog *Catalog, opts SeedOptions, rng *rand.Rand, logger *zap.Logger) *Seeder {
	return &Seeder{
		catalog: catalog,
		opts:    opts,
		rng:     rng,
		logger:  logger,
	}
}

// Seed fills the store with catalog medications, a reminder schedule for the
// coming days, and a weighted dose history. It is idempotent: a store that
// already holds dose history is left untouched.
func (s *Seeder) Seed(store *Store, now time.Time) (bool, error) {
	count, err := store.CountDoseLogs()
	if err != nil {
		return false, fmt.Errorf("failed to check seed state: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	meds := make([]*Medication, 0, len(s.catalog.Medications))
	for _, cm := range s.catalog.Medications {
		freq := Frequency(cm.Frequency)
		med := &Medication{
			Name:            cm.Name,
			Dosage:          cm.Dosage,
			Frequency:       freq,
			Instructions:    cm.Instructions,
			Stock:           cm.Stock,
			RefillThreshold: cm.RefillThreshold,
			Category:        cm.Category,
			NextDose:        cm.NextDose,
			Times:           freq.DoseTimes(),
			CreatedAt:       now,
		}
		if med.NextDose == "" && len(med.Times) > 0 {
			med.NextDose = med.Times[0]
		}
		if err := store.CreateMedication(med); err != nil {
			return false, fmt.Errorf("failed to seed medication %q: %w", cm.Name, err)
		}
		meds = append(meds, med)
	}

	if err := s.seedReminders(store, meds, now); err != nil {
		return false, err
	}
	if err := s.seedDoseLog(store, meds, now); err != nil {
		return false, err
	}

	info := &PersonalInfo{
		Name:             s.catalog.PersonalInfo.Name,
		Age:              s.catalog.PersonalInfo.Age,
		Address:          s.catalog.PersonalInfo.Address,
		EmergencyContact: s.catalog.PersonalInfo.EmergencyContact,
	}
	if err := store.SavePersonalInfo(info); err != nil {
		return false, fmt.Errorf("failed to seed personal info: %w", err)
	}

	for _, n := range s.catalog.Notifications {
		notif := &Notification{
			Type:    NotificationType(n.Type),
			Message: n.Message,
		}
		if err := store.CreateNotification(notif); err != nil {
			return false, fmt.Errorf("failed to seed notification: %w", err)
		}
	}

	s.logger.Info("Store seeded",
		zap.Int("medications", len(meds)),
		zap.Int("history_days", s.opts.HistoryDays),
		zap.Int("reminder_days", s.opts.ReminderDays),
	)

	return true, nil
}

// seedReminders emits one reminder per medication per daily dose time for
// each of the next ReminderDays calendar days
func (s *Seeder) seedReminders(store *Store, meds []*Medication, now time.Time) error {
	for day := 0; day < s.opts.ReminderDays; day++ {
		date := now.AddDate(0, 0, day)
		for _, med := range meds {
			for _, t := range med.Times {
				at, err := combineDateAndClock(date, t)
				if err != nil {
					return fmt.Errorf("bad dose time %q for %q: %w", t, med.Name, err)
				}
				rem := &Reminder{
					MedicationID:   med.ID,
					MedicationName: med.Name,
					At:             at,
					Note:           fmt.Sprintf("Regular dose of %s", med.Name),
				}
				if err := store.CreateReminder(rem); err != nil {
					return fmt.Errorf("failed to seed reminder: %w", err)
				}
			}
		}
	}
	return nil
}

// seedDoseLog draws one status per medication per historical day with a
// single three-way weighted choice
func (s *Seeder) seedDoseLog(store *Store, meds []*Medication, now time.Time) error {
	start := dayOf(now).AddDate(0, 0, -s.opts.HistoryDays)
	for day := 0; day < s.opts.HistoryDays; day++ {
		date := start.AddDate(0, 0, day)
		for _, med := range meds {
			entry := &DoseLogEntry{
				MedicationID:   med.ID,
				MedicationName: med.Name,
				Date:           date,
				Status:         s.drawStatus(),
			}
			if err := store.CreateDoseLog(entry); err != nil {
				return fmt.Errorf("failed to seed dose log: %w", err)
			}
		}
	}
	return nil
}

// drawStatus picks Taken/Missed/Delayed in one weighted draw
func (s *Seeder) drawStatus() DoseStatus {
	total := s.opts.TakenWeight + s.opts.MissedWeight + s.opts.DelayedWeight
	r := s.rng.Float64() * total
	if r < s.opts.TakenWeight {
		return StatusTaken
	}
	if r < s.opts.TakenWeight+s.opts.MissedWeight {
		return StatusMissed
	}
	return StatusDelayed
}

// combineDateAndClock places an "HH:MM" clock value onto a calendar day
func combineDateAndClock(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

// dayOf truncates an instant to its calendar day
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
