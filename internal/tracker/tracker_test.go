package tracker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/medtrackpro/medtrack/internal/errors"
)

func setupTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(setupTestStore(t), zap.NewNop())
}

func intPtr(v int) *int { return &v }

func TestAddMedicationDefaults(t *testing.T) {
	svc := setupTestService(t)

	med, err := svc.AddMedication(AddMedicationInput{
		Name:   "Vitamin D",
		Dosage: "1000 IU",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, med.ID)
	assert.Equal(t, OnceDaily, med.Frequency)
	assert.Equal(t, DefaultStock, med.Stock)
	assert.Equal(t, DefaultRefillThreshold, med.RefillThreshold)
	assert.Equal(t, DefaultCategory, med.Category)
	assert.Equal(t, []string{"09:00"}, med.Times)
	assert.Equal(t, "09:00", med.NextDose)

	got, err := svc.Store().GetMedication(med.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, med.Name, got.Name)
	assert.Equal(t, []string{"09:00"}, got.Times)
}

func TestAddMedicationExplicitFields(t *testing.T) {
	svc := setupTestService(t)

	med, err := svc.AddMedication(AddMedicationInput{
		Name:            "Metformin",
		Dosage:          "500mg",
		Frequency:       string(TwiceDaily),
		Stock:           intPtr(90),
		RefillThreshold: intPtr(20),
		Category:        "Diabetes",
	})
	require.NoError(t, err)

	assert.Equal(t, TwiceDaily, med.Frequency)
	assert.Equal(t, 90, med.Stock)
	assert.Equal(t, 20, med.RefillThreshold)
	assert.Equal(t, "Diabetes", med.Category)
	assert.Equal(t, []string{"09:00", "21:00"}, med.Times)
}

func TestAddMedicationValidation(t *testing.T) {
	svc := setupTestService(t)

	_, err := svc.AddMedication(AddMedicationInput{Name: "  ", Dosage: "10mg"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = svc.AddMedication(AddMedicationInput{Name: "X", Dosage: ""})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = svc.AddMedication(AddMedicationInput{Name: "X", Dosage: "10mg", Frequency: "hourly"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidEnum))

	_, err = svc.AddMedication(AddMedicationInput{Name: "X", Dosage: "10mg", Stock: intPtr(-1)})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestRemoveMedication(t *testing.T) {
	svc := setupTestService(t)
	med, err := svc.AddMedication(AddMedicationInput{Name: "X", Dosage: "10mg"})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveMedication(med.ID, false))

	got, err := svc.Store().GetMedication(med.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	err = svc.RemoveMedication(med.ID, false)
	assert.True(t, errors.Is(err, apperrors.ErrMedicationNotFound))
}

func TestRemoveMedicationRejectsReferenced(t *testing.T) {
	svc := setupTestService(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	med, err := svc.AddMedication(AddMedicationInput{Name: "X", Dosage: "10mg"})
	require.NoError(t, err)
	_, err = svc.LogDose(LogDoseInput{MedicationID: med.ID, Status: "taken"}, now)
	require.NoError(t, err)

	err = svc.RemoveMedication(med.ID, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrMedicationReferenced))

	// still there
	got, err := svc.Store().GetMedication(med.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestRemoveMedicationCascade(t *testing.T) {
	svc := setupTestService(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	med, err := svc.AddMedication(AddMedicationInput{Name: "X", Dosage: "10mg"})
	require.NoError(t, err)
	_, err = svc.LogDose(LogDoseInput{MedicationID: med.ID, Status: "taken"}, now)
	require.NoError(t, err)
	_, err = svc.SetReminder(SetReminderInput{MedicationID: med.ID, At: now.Add(time.Hour)})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveMedication(med.ID, true))

	doses, rems, err := svc.Store().CountMedicationRefs(med.ID)
	require.NoError(t, err)
	assert.Zero(t, doses)
	assert.Zero(t, rems)
}

func TestLogDose(t *testing.T) {
	svc := setupTestService(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	med, err := svc.AddMedication(AddMedicationInput{Name: "X", Dosage: "10mg"})
	require.NoError(t, err)

	entry, err := svc.LogDose(LogDoseInput{
		MedicationID: med.ID,
		Status:       "delayed",
		Notes:        "took it late",
	}, now)
	require.NoError(t, err)

	assert.Equal(t, StatusDelayed, entry.Status)
	assert.Equal(t, med.Name, entry.MedicationName)
	assert.Equal(t, "took it late", entry.Notes)
	assert.True(t, entry.Date.Equal(now))
}

func TestLogDoseRejectsBadInput(t *testing.T) {
	svc := setupTestService(t)
	now := time.Now()

	med, err := svc.AddMedication(AddMedicationInput{Name: "X", Dosage: "10mg"})
	require.NoError(t, err)

	_, err = svc.LogDose(LogDoseInput{MedicationID: med.ID, Status: "skipped"}, now)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidEnum))

	_, err = svc.LogDose(LogDoseInput{MedicationID: "nope", Status: "taken"}, now)
	assert.True(t, errors.Is(err, apperrors.ErrMedicationNotFound))
}

func TestSetReminder(t *testing.T) {
	svc := setupTestService(t)
	at := time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC)

	med, err := svc.AddMedication(AddMedicationInput{Name: "X", Dosage: "10mg"})
	require.NoError(t, err)

	rem, err := svc.SetReminder(SetReminderInput{MedicationID: med.ID, At: at, Note: "with food"})
	require.NoError(t, err)
	assert.Equal(t, med.Name, rem.MedicationName)
	assert.True(t, rem.At.Equal(at))

	_, err = svc.SetReminder(SetReminderInput{MedicationID: med.ID})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = svc.SetReminder(SetReminderInput{MedicationID: "nope", At: at})
	assert.True(t, errors.Is(err, apperrors.ErrMedicationNotFound))
}

func TestUpdatePersonalInfo(t *testing.T) {
	svc := setupTestService(t)

	_, err := svc.UpdatePersonalInfo(&PersonalInfo{Name: "Jane Doe", Age: 52})
	require.NoError(t, err)

	info, err := svc.Store().GetPersonalInfo()
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "Jane Doe", info.Name)
	assert.Equal(t, 52, info.Age)

	// updates replace in place, not append
	_, err = svc.UpdatePersonalInfo(&PersonalInfo{Name: "Jane Doe", Age: 53})
	require.NoError(t, err)
	info, err = svc.Store().GetPersonalInfo()
	require.NoError(t, err)
	assert.Equal(t, 53, info.Age)

	_, err = svc.UpdatePersonalInfo(&PersonalInfo{Name: "", Age: 40})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = svc.UpdatePersonalInfo(&PersonalInfo{Name: "X", Age: 200})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestAddNotificationDedupes(t *testing.T) {
	svc := setupTestService(t)

	require.NoError(t, svc.AddNotification(NotifyWarning, "stock low"))
	require.NoError(t, svc.AddNotification(NotifyWarning, "stock low"))

	notifs, err := svc.Store().ListNotifications()
	require.NoError(t, err)
	assert.Len(t, notifs, 1)

	err = svc.AddNotification("chime", "hello")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidEnum))
}
