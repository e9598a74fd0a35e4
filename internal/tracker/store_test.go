package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMedicationMissing(t *testing.T) {
	store := setupTestStore(t)

	med, err := store.GetMedication("does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, med)
}

func TestMedicationTimesRoundTrip(t *testing.T) {
	store := setupTestStore(t)

	med := &Medication{
		Name:      "X",
		Dosage:    "10mg",
		Frequency: TwiceDaily,
		Times:     []string{"09:00", "21:00"},
	}
	require.NoError(t, store.CreateMedication(med))

	got, err := store.GetMedication(med.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"09:00", "21:00"}, got.Times)
}

func TestListMedicationsStoredOrder(t *testing.T) {
	store := setupTestStore(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"first", "second", "third"} {
		require.NoError(t, store.CreateMedication(&Medication{
			Name:      name,
			Dosage:    "1mg",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	meds, err := store.ListMedications()
	require.NoError(t, err)
	require.Len(t, meds, 3)
	assert.Equal(t, "first", meds[0].Name)
	assert.Equal(t, "third", meds[2].Name)
}

func TestRemindersBetween(t *testing.T) {
	store := setupTestStore(t)
	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	for _, offset := range []time.Duration{-2 * time.Hour, 9 * time.Hour, 21 * time.Hour, 26 * time.Hour} {
		require.NoError(t, store.CreateReminder(&Reminder{
			MedicationID:   "m1",
			MedicationName: "Med",
			At:             day.Add(offset),
		}))
	}

	rems, err := store.RemindersBetween(day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, rems, 2)
	assert.True(t, rems[0].At.Before(rems[1].At))

	count, err := store.CountReminders()
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestDoseLogSinceFilter(t *testing.T) {
	store := setupTestStore(t)
	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	for d := 0; d < 5; d++ {
		require.NoError(t, store.CreateDoseLog(&DoseLogEntry{
			MedicationID:   "m1",
			MedicationName: "Med",
			Date:           day.AddDate(0, 0, -d),
			Status:         StatusTaken,
		}))
	}

	all, err := store.ListDoseLogs(time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	recent, err := store.ListDoseLogs(day.AddDate(0, 0, -2))
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestNotificationDedupe(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.CreateNotification(&Notification{Type: NotifyInfo, Message: "hello"}))
	require.NoError(t, store.CreateNotification(&Notification{Type: NotifyWarning, Message: "hello"}))
	require.NoError(t, store.CreateNotification(&Notification{Type: NotifyInfo, Message: "other"}))

	notifs, err := store.ListNotifications()
	require.NoError(t, err)
	assert.Len(t, notifs, 2)
}
