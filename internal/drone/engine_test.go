package drone

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/medtrackpro/medtrack/internal/errors"
)

var testRequest = Request{Pickup: "City Pharmacy", Dropoff: "123 Health St"}

func testEngine() *Engine {
	return NewEngine(20*time.Millisecond, 5*time.Millisecond, zap.NewNop())
}

func TestRequestRunsToDelivered(t *testing.T) {
	e := testEngine()

	var mu sync.Mutex
	var phases []string
	unsub := e.Subscribe(func(s Snapshot) {
		mu.Lock()
		phases = append(phases, s.Phase)
		mu.Unlock()
	})
	defer unsub()

	snap, err := e.Dispatch(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, StatusInTransit, snap.Status)
	assert.Equal(t, "requested", snap.Phase)
	assert.Equal(t, Route[0], snap.Position)
	assert.Equal(t, "City Pharmacy", snap.Pickup)
	assert.Equal(t, "123 Health St", snap.Dropoff)

	require.Eventually(t, func() bool {
		return e.Snapshot().Status == StatusAvailable
	}, 2*time.Second, 5*time.Millisecond)

	final := e.Snapshot()
	assert.Equal(t, "delivered", final.Phase)
	assert.Equal(t, 1.0, final.Progress)
	assert.Equal(t, Route[len(Route)-1], final.Position)
	assert.Equal(t, "Delivery completed", final.Narrative)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, phases, "delivered")

	runs, delivered := e.Stats()
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, delivered)
}

func TestRequestWhileInTransit(t *testing.T) {
	e := NewEngine(time.Second, 10*time.Millisecond, zap.NewNop())

	_, err := e.Dispatch(context.Background(), testRequest)
	require.NoError(t, err)

	_, err = e.Dispatch(context.Background(), testRequest)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDroneBusy))

	require.NoError(t, e.Cancel())
}

func TestCancelReturnsToIdle(t *testing.T) {
	e := NewEngine(time.Second, 5*time.Millisecond, zap.NewNop())

	_, err := e.Dispatch(context.Background(), testRequest)
	require.NoError(t, err)

	require.NoError(t, e.Cancel())

	require.Eventually(t, func() bool {
		return e.Snapshot().Status == StatusAvailable
	}, 2*time.Second, 5*time.Millisecond)

	snap := e.Snapshot()
	assert.Equal(t, "idle", snap.Phase)
	assert.Zero(t, snap.Progress)

	// idle cancel is rejected
	assert.True(t, errors.Is(e.Cancel(), apperrors.ErrDroneIdle))

	// drone is reusable after a cancel
	_, err = e.Dispatch(context.Background(), testRequest)
	require.NoError(t, err)
	require.NoError(t, e.Cancel())
}

func TestSubscribeReplaysCurrentState(t *testing.T) {
	e := testEngine()

	var got Snapshot
	unsub := e.Subscribe(func(s Snapshot) { got = s })
	unsub()

	assert.Equal(t, StatusAvailable, got.Status)
	assert.Equal(t, "idle", got.Phase)
}

func TestPositionInterpolation(t *testing.T) {
	assert.Equal(t, Route[0], positionAt(0))
	assert.Equal(t, Route[len(Route)-1], positionAt(1))
	assert.Equal(t, Route[len(Route)-1], positionAt(1.5))

	// quarter of the way through a four-segment route is the second waypoint
	mid := positionAt(0.25)
	assert.InDelta(t, Route[1].X, mid.X, 0.001)
	assert.InDelta(t, Route[1].Y, mid.Y, 0.001)
}

func TestPhaseNarratives(t *testing.T) {
	assert.Equal(t, "Drone en route to pharmacy", PhaseRequested.Narrative())
	assert.Equal(t, "Picking up medication", PhasePickedUp.Narrative())
	assert.Equal(t, "Delivering to your location", PhaseDelivering.Narrative())
	assert.Equal(t, "Delivery completed", PhaseDelivered.Narrative())
	assert.Equal(t, "en_route", PhaseEnRoute.String())
}

func TestDispatchRequiresAddresses(t *testing.T) {
	e := testEngine()

	_, err := e.Dispatch(context.Background(), Request{Pickup: "  ", Dropoff: "123 Health St"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = e.Dispatch(context.Background(), Request{Pickup: "City Pharmacy"})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}
