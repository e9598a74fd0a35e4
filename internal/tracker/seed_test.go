package tracker

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func defaultSeedOptions() SeedOptions {
	return SeedOptions{
		HistoryDays:   180,
		ReminderDays:  7,
		TakenWeight:   0.85,
		MissedWeight:  0.075,
		DelayedWeight: 0.075,
	}
}

func testSeeder(t *testing.T, opts SeedOptions) *Seeder {
	t.Helper()
	catalog, err := LoadCatalog("")
	require.NoError(t, err)
	return NewSeeder(catalog, opts, rand.New(rand.NewSource(42)), zap.NewNop())
}

func TestSeedPopulatesStore(t *testing.T) {
	store := setupTestStore(t)
	seeder := testSeeder(t, defaultSeedOptions())
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	seeded, err := seeder.Seed(store, now)
	require.NoError(t, err)
	assert.True(t, seeded)

	meds, err := store.ListMedications()
	require.NoError(t, err)
	require.Len(t, meds, 4)
	assert.Equal(t, "Isoniazid (INH)", meds[0].Name)
	assert.Equal(t, "300mg", meds[0].Dosage)
	assert.Equal(t, 45, meds[0].Stock)
	assert.Equal(t, "08:00", meds[0].NextDose)
	assert.Equal(t, "Rifampin (RIF)", meds[1].Name)
	assert.Equal(t, 15, meds[1].RefillThreshold)

	info, err := store.GetPersonalInfo()
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "John Doe", info.Name)
	assert.Equal(t, 45, info.Age)

	notifs, err := store.ListNotifications()
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, NotifyInfo, notifs[0].Type)
}

func TestSeedDoseLogCoversHistory(t *testing.T) {
	store := setupTestStore(t)
	seeder := testSeeder(t, defaultSeedOptions())
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	_, err := seeder.Seed(store, now)
	require.NoError(t, err)

	entries, err := store.ListDoseLogs(time.Time{})
	require.NoError(t, err)
	// one entry per medication per historical day
	assert.Len(t, entries, 180*4)

	for _, e := range entries {
		assert.True(t, ValidDoseStatus(e.Status), "status %q", e.Status)
		assert.True(t, e.Date.Before(dayOf(now).AddDate(0, 0, 1)))
	}
}

func TestSeedReminderCounts(t *testing.T) {
	store := setupTestStore(t)
	seeder := testSeeder(t, defaultSeedOptions())
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	_, err := seeder.Seed(store, now)
	require.NoError(t, err)

	rems, err := store.ListReminders()
	require.NoError(t, err)
	// 7 days x 4 once-daily medications
	assert.Len(t, rems, 7*4)
}

func TestSeedIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	seeder := testSeeder(t, defaultSeedOptions())
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	seeded, err := seeder.Seed(store, now)
	require.NoError(t, err)
	assert.True(t, seeded)

	again, err := seeder.Seed(store, now)
	require.NoError(t, err)
	assert.False(t, again)

	meds, err := store.ListMedications()
	require.NoError(t, err)
	assert.Len(t, meds, 4)

	count, err := store.CountDoseLogs()
	require.NoError(t, err)
	assert.Equal(t, int64(180*4), count)
}

func TestSeedStatusDistribution(t *testing.T) {
	store := setupTestStore(t)
	seeder := testSeeder(t, defaultSeedOptions())
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	_, err := seeder.Seed(store, now)
	require.NoError(t, err)

	entries, err := store.ListDoseLogs(time.Time{})
	require.NoError(t, err)

	taken := 0
	for _, e := range entries {
		if e.Status == StatusTaken {
			taken++
		}
	}
	rate := float64(taken) / float64(len(entries))
	assert.InDelta(t, 0.85, rate, 0.05)
}

func TestLoadCatalogRejectsInvalid(t *testing.T) {
	_, err := LoadCatalog("testdata/does-not-exist.yaml")
	assert.Error(t, err)
}
