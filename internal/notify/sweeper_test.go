package notify

import (
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medtrackpro/medtrack/internal/session"
	"github.com/medtrackpro/medtrack/internal/tracker"
)

func setupSweeper(t *testing.T, takenWeight float64) (*Sweeper, *session.Session) {
	t.Helper()

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	catalog, err := tracker.LoadCatalog("")
	require.NoError(t, err)

	mgr := session.NewManager(db, session.Options{
		TTL:       time.Minute,
		JWTSecret: []byte("test-secret"),
		Catalog:   catalog,
		SeedOptions: tracker.SeedOptions{
			HistoryDays:   10,
			ReminderDays:  2,
			TakenWeight:   takenWeight,
			MissedWeight:  1 - takenWeight,
			DelayedWeight: 0,
		},
		RandomSeed: 42,
		DronePhase: 10 * time.Millisecond,
		DroneTick:  5 * time.Millisecond,
	}, zap.NewNop())
	t.Cleanup(mgr.Close)

	sess, _, err := mgr.Create()
	require.NoError(t, err)

	return NewSweeper(mgr, zap.NewNop()), sess
}

func countByType(t *testing.T, sess *session.Session, typ tracker.NotificationType) int {
	t.Helper()
	notifs, err := sess.Store.ListNotifications()
	require.NoError(t, err)
	n := 0
	for _, notif := range notifs {
		if notif.Type == typ {
			n++
		}
	}
	return n
}

func TestSweepPostsLowStockWarning(t *testing.T) {
	sweeper, sess := setupSweeper(t, 0.5)
	before := countByType(t, sess, tracker.NotifyWarning)

	_, err := sess.Service.AddMedication(tracker.AddMedicationInput{
		Name:            "Depleted Med",
		Dosage:          "10mg",
		Stock:           intPtr(5),
		RefillThreshold: intPtr(10),
	})
	require.NoError(t, err)

	sweeper.Sweep()

	assert.Equal(t, before+1, countByType(t, sess, tracker.NotifyWarning))

	notifs, err := sess.Store.ListNotifications()
	require.NoError(t, err)
	found := false
	for _, n := range notifs {
		if n.Message == "Depleted Med supply running low. Consider refill." {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSweepIsQuietWhenStocked(t *testing.T) {
	// seeded TB meds all carry stock well above threshold
	sweeper, sess := setupSweeper(t, 0.5)
	before := countByType(t, sess, tracker.NotifyWarning)

	sweeper.Sweep()

	assert.Equal(t, before, countByType(t, sess, tracker.NotifyWarning))
}

func TestSweepDedupes(t *testing.T) {
	sweeper, sess := setupSweeper(t, 0.5)

	_, err := sess.Service.AddMedication(tracker.AddMedicationInput{
		Name:            "Depleted Med",
		Dosage:          "10mg",
		Stock:           intPtr(0),
		RefillThreshold: intPtr(10),
	})
	require.NoError(t, err)

	sweeper.Sweep()
	first := countByType(t, sess, tracker.NotifyWarning)
	sweeper.Sweep()

	assert.Equal(t, first, countByType(t, sess, tracker.NotifyWarning))
}

func TestSweepPostsStreakInSeededSession(t *testing.T) {
	// a fully adherent seeded history must earn the streak notification;
	// the seed catalog deliberately carries no success notice that could
	// trip the store's message dedupe
	sweeper, sess := setupSweeper(t, 1.0)
	require.Equal(t, 0, countByType(t, sess, tracker.NotifySuccess))

	sweeper.Sweep()

	require.Equal(t, 1, countByType(t, sess, tracker.NotifySuccess))

	notifs, err := sess.Store.ListNotifications()
	require.NoError(t, err)
	found := false
	for _, n := range notifs {
		if n.Message == "Perfect medication adherence streak: 7 days!" {
			found = true
		}
	}
	assert.True(t, found)

	// repeat sweeps stay quiet
	sweeper.Sweep()
	assert.Equal(t, 1, countByType(t, sess, tracker.NotifySuccess))
}

// bareSession builds an unseeded session for deterministic streak setups
// driven by hand-written dose logs
func bareSession(t *testing.T) *session.Session {
	t.Helper()
	store, err := tracker.NewStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return &session.Session{
		ID:      "test",
		Store:   store,
		Service: tracker.NewService(store, zap.NewNop()),
	}
}

func logStreak(t *testing.T, sess *session.Session, now time.Time, days int, status tracker.DoseStatus) {
	t.Helper()
	for d := 1; d <= days; d++ {
		err := sess.Store.CreateDoseLog(&tracker.DoseLogEntry{
			MedicationID:   "m1",
			MedicationName: "Med",
			Date:           now.AddDate(0, 0, -d),
			Status:         status,
		})
		require.NoError(t, err)
	}
}

func TestSweepPostsStreakSuccess(t *testing.T) {
	sweeper, _ := setupSweeper(t, 0.5)
	sess := bareSession(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	logStreak(t, sess, now, 7, tracker.StatusTaken)

	require.NoError(t, sweeper.sweepSession(sess, now))

	notifs, err := sess.Store.ListNotifications()
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, tracker.NotifySuccess, notifs[0].Type)
	assert.Equal(t, "Perfect medication adherence streak: 7 days!", notifs[0].Message)
}

func TestSweepNoStreakWithGapOrMiss(t *testing.T) {
	sweeper, _ := setupSweeper(t, 0.5)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	// a missed dose inside the streak window
	sess := bareSession(t)
	logStreak(t, sess, now, 7, tracker.StatusTaken)
	require.NoError(t, sess.Store.CreateDoseLog(&tracker.DoseLogEntry{
		MedicationID: "m1", MedicationName: "Med",
		Date: now.AddDate(0, 0, -3), Status: tracker.StatusMissed,
	}))
	require.NoError(t, sweeper.sweepSession(sess, now))
	notifs, err := sess.Store.ListNotifications()
	require.NoError(t, err)
	assert.Empty(t, notifs)

	// a day with no log at all breaks the streak too
	short := bareSession(t)
	logStreak(t, short, now, 5, tracker.StatusTaken)
	require.NoError(t, sweeper.sweepSession(short, now))
	notifs, err = short.Store.ListNotifications()
	require.NoError(t, err)
	assert.Empty(t, notifs)
}

func intPtr(v int) *int { return &v }
