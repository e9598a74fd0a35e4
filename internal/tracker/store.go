package tracker

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store holds one session's domain data in an in-memory SQLite database.
// The database dies with the session; nothing is durable.
type Store struct {
	db  *gorm.DB
	sql *sql.DB
}

// NewStore opens a fresh in-memory store and migrates the schema
func NewStore() (*Store, error) {
	sqliteDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// A :memory: database exists per connection; the pool must never grow
	// past one or queries would land in empty databases.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if err := db.AutoMigrate(
		&Medication{},
		&DoseLogEntry{},
		&Reminder{},
		&PersonalInfo{},
		&Notification{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &Store{db: db, sql: sqliteDB}, nil
}

// Close releases the underlying connection
func (s *Store) Close() error {
	return s.sql.Close()
}

// DB returns the GORM handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

func generateID() string {
	return uuid.NewString()
}

// ==================== Medication Methods ====================

func (s *Store) CreateMedication(med *Medication) error {
	if med.ID == "" {
		med.ID = generateID()
	}
	if len(med.Times) > 0 {
		timesJSON, _ := json.Marshal(med.Times)
		med.TimesJSON = string(timesJSON)
	}
	if med.CreatedAt.IsZero() {
		med.CreatedAt = time.Now()
	}
	return s.db.Create(med).Error
}

func (s *Store) GetMedication(id string) (*Medication, error) {
	var med Medication
	err := s.db.Where("id = ?", id).First(&med).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	med.hydrateTimes()
	return &med, nil
}

// ListMedications returns medications in stored order (oldest first).
// The order is the tie-break for the next-dose countdown.
func (s *Store) ListMedications() ([]Medication, error) {
	var meds []Medication
	err := s.db.Order("created_at ASC, id ASC").Find(&meds).Error
	for i := range meds {
		meds[i].hydrateTimes()
	}
	return meds, err
}

func (s *Store) DeleteMedication(id string) error {
	return s.db.Where("id = ?", id).Delete(&Medication{}).Error
}

// CountMedicationRefs counts dose log entries and reminders pointing at a
// medication. Used to detect orphaning before removal.
func (s *Store) CountMedicationRefs(id string) (doses int64, reminders int64, err error) {
	if err = s.db.Model(&DoseLogEntry{}).Where("medication_id = ?", id).Count(&doses).Error; err != nil {
		return
	}
	err = s.db.Model(&Reminder{}).Where("medication_id = ?", id).Count(&reminders).Error
	return
}

// DeleteMedicationRefs cascade-deletes dose log entries and reminders for a
// medication
func (s *Store) DeleteMedicationRefs(id string) error {
	if err := s.db.Where("medication_id = ?", id).Delete(&DoseLogEntry{}).Error; err != nil {
		return err
	}
	return s.db.Where("medication_id = ?", id).Delete(&Reminder{}).Error
}

func (m *Medication) hydrateTimes() {
	if m.TimesJSON != "" {
		json.Unmarshal([]byte(m.TimesJSON), &m.Times)
	}
}

// ==================== Dose Log Methods ====================

func (s *Store) CreateDoseLog(entry *DoseLogEntry) error {
	if entry.ID == "" {
		entry.ID = generateID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return s.db.Create(entry).Error
}

// ListDoseLogs returns entries with Date at or after since, oldest first.
// A zero since returns everything.
func (s *Store) ListDoseLogs(since time.Time) ([]DoseLogEntry, error) {
	query := s.db.Order("date ASC, created_at ASC")
	if !since.IsZero() {
		query = query.Where("date >= ?", since)
	}
	var entries []DoseLogEntry
	err := query.Find(&entries).Error
	return entries, err
}

func (s *Store) CountDoseLogs() (int64, error) {
	var count int64
	err := s.db.Model(&DoseLogEntry{}).Count(&count).Error
	return count, err
}

// ==================== Reminder Methods ====================

func (s *Store) CreateReminder(rem *Reminder) error {
	if rem.ID == "" {
		rem.ID = generateID()
	}
	if rem.CreatedAt.IsZero() {
		rem.CreatedAt = time.Now()
	}
	return s.db.Create(rem).Error
}

func (s *Store) ListReminders() ([]Reminder, error) {
	var rems []Reminder
	err := s.db.Order("at ASC").Find(&rems).Error
	return rems, err
}

// RemindersBetween returns reminders in [start, end), soonest first
func (s *Store) RemindersBetween(start, end time.Time) ([]Reminder, error) {
	var rems []Reminder
	err := s.db.Where("at >= ? AND at < ?", start, end).
		Order("at ASC").
		Find(&rems).Error
	return rems, err
}

func (s *Store) CountReminders() (int64, error) {
	var count int64
	err := s.db.Model(&Reminder{}).Count(&count).Error
	return count, err
}

// ==================== Personal Info Methods ====================

// GetPersonalInfo returns the singleton record, or nil when unseeded
func (s *Store) GetPersonalInfo() (*PersonalInfo, error) {
	var info PersonalInfo
	err := s.db.First(&info).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// SavePersonalInfo creates or updates the singleton record in place
func (s *Store) SavePersonalInfo(info *PersonalInfo) error {
	existing, err := s.GetPersonalInfo()
	if err != nil {
		return err
	}
	if existing != nil {
		info.ID = existing.ID
	}
	info.UpdatedAt = time.Now()
	return s.db.Save(info).Error
}

// ==================== Notification Methods ====================

// CreateNotification appends a notification unless one with the same
// message already exists
func (s *Store) CreateNotification(n *Notification) error {
	var count int64
	if err := s.db.Model(&Notification{}).Where("message = ?", n.Message).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if n.ID == "" {
		n.ID = generateID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	return s.db.Create(n).Error
}

func (s *Store) ListNotifications() ([]Notification, error) {
	var notifs []Notification
	err := s.db.Order("created_at ASC, id ASC").Find(&notifs).Error
	return notifs, err
}
