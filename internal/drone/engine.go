package drone

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/medtrackpro/medtrack/internal/errors"
)

// Observer receives a snapshot on every state change during a run
type Observer func(Snapshot)

// Request describes one delivery order. Pickup and Dropoff are required;
// Details is free text shown on the tracking card.
type Request struct {
	Pickup  string `json:"pickup"`
	Dropoff string `json:"dropoff"`
	Details string `json:"details"`
}

// Engine simulates one session's delivery drone. A run walks the phases on
// a timer, interpolating the drone's position along the fixed route, and
// fans each state change out to registered observers. Only one run may be
// active at a time.
type Engine struct {
	mu        sync.Mutex
	status    Status
	phase     Phase
	progress  float64
	request   Request
	startedAt time.Time
	updatedAt time.Time
	cancel    context.CancelFunc
	observers map[int]Observer
	nextObsID int

	phaseDur time.Duration
	tick     time.Duration
	logger   *zap.Logger

	runs      int
	delivered int
}

func NewEngine(phaseDur, tick time.Duration, logger *zap.Logger) *Engine {
	return &Engine{
		status:    StatusAvailable,
		phase:     PhaseDelivered,
		observers: make(map[int]Observer),
		phaseDur:  phaseDur,
		tick:      tick,
		logger:    logger,
	}
}

// Subscribe registers an observer and returns an unsubscribe func. The
// observer is called synchronously with the current snapshot first, so late
// joiners see the in-flight state immediately.
func (e *Engine) Subscribe(obs Observer) func() {
	e.mu.Lock()
	id := e.nextObsID
	e.nextObsID++
	e.observers[id] = obs
	snap := e.snapshotLocked()
	e.mu.Unlock()

	obs(snap)
	return func() {
		e.mu.Lock()
		delete(e.observers, id)
		e.mu.Unlock()
	}
}

// Dispatch starts a delivery run. Pickup and dropoff addresses are required;
// a second request while one is in transit is rejected with ErrDroneBusy.
func (e *Engine) Dispatch(ctx context.Context, req Request) (Snapshot, error) {
	if strings.TrimSpace(req.Pickup) == "" || strings.TrimSpace(req.Dropoff) == "" {
		return Snapshot{}, apperrors.Detail(apperrors.ErrValidation, "pickup and dropoff addresses are required")
	}

	e.mu.Lock()
	if e.status == StatusInTransit {
		e.mu.Unlock()
		return Snapshot{}, apperrors.ErrDroneBusy
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.status = StatusInTransit
	e.phase = PhaseRequested
	e.progress = 0
	e.request = req
	e.startedAt = time.Now()
	e.updatedAt = e.startedAt
	e.runs++
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.logger.Info("delivery requested")
	e.notify(snap)
	go e.run(runCtx)
	return snap, nil
}

// Cancel aborts an in-flight run and returns the drone to the hangar.
// Cancelling an idle drone is an error.
func (e *Engine) Cancel() error {
	e.mu.Lock()
	if e.status != StatusInTransit {
		e.mu.Unlock()
		return apperrors.ErrDroneIdle
	}
	cancel := e.cancel
	e.mu.Unlock()

	cancel()
	return nil
}

// Snapshot reports the current state without side effects
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Stats reports lifetime run counters for this engine
func (e *Engine) Stats() (runs, delivered int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runs, e.delivered
}

// Observers reports how many observers are currently subscribed
func (e *Engine) Observers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.observers)
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		Status:    e.status,
		Phase:     e.phase.String(),
		Narrative: e.phase.Narrative(),
		Progress:  e.progress,
		Position:  positionAt(e.progress),
		UpdatedAt: e.updatedAt,
	}
	if e.status == StatusInTransit {
		snap.StartedAt = e.startedAt
		snap.Pickup = e.request.Pickup
		snap.Dropoff = e.request.Dropoff
		snap.Details = e.request.Details
	} else if e.progress == 0 {
		// never flown, or a cancelled run
		snap.Phase = "idle"
		snap.Narrative = ""
	}
	return snap
}

func (e *Engine) notify(snap Snapshot) {
	e.mu.Lock()
	obs := make([]Observer, 0, len(e.observers))
	for _, o := range e.observers {
		obs = append(obs, o)
	}
	e.mu.Unlock()

	for _, o := range obs {
		o(snap)
	}
}

// run drives the delivery from PhaseRequested through PhaseDelivered on a
// fixed tick, then releases the drone
func (e *Engine) run(ctx context.Context) {
	total := e.phaseDur * time.Duration(PhaseDelivered)
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			e.mu.Lock()
			e.status = StatusAvailable
			e.phase = PhaseRequested
			e.progress = 0
			e.updatedAt = time.Now()
			snap := e.snapshotLocked()
			e.mu.Unlock()

			e.logger.Info("delivery cancelled")
			e.notify(snap)
			return

		case now := <-ticker.C:
			elapsed := now.Sub(start)
			progress := float64(elapsed) / float64(total)
			done := progress >= 1
			if done {
				progress = 1
			}

			e.mu.Lock()
			e.progress = progress
			e.phase = phaseFor(elapsed, e.phaseDur)
			e.updatedAt = now
			if done {
				e.phase = PhaseDelivered
				e.status = StatusAvailable
				e.delivered++
				if e.cancel != nil {
					e.cancel()
					e.cancel = nil
				}
			}
			snap := e.snapshotLocked()
			e.mu.Unlock()

			e.notify(snap)
			if done {
				e.logger.Info("delivery completed")
				return
			}
		}
	}
}

func phaseFor(elapsed, phaseDur time.Duration) Phase {
	p := Phase(elapsed / phaseDur)
	if p > PhaseDelivered {
		p = PhaseDelivered
	}
	return p
}

// positionAt interpolates the drone's floor-plan position for an overall
// progress in [0, 1]
func positionAt(progress float64) Point {
	if progress <= 0 {
		return Route[0]
	}
	if progress >= 1 {
		return Route[len(Route)-1]
	}

	segments := len(Route) - 1
	scaled := progress * float64(segments)
	i := int(scaled)
	frac := scaled - float64(i)

	a, b := Route[i], Route[i+1]
	return Point{
		X: a.X + (b.X-a.X)*frac,
		Y: a.Y + (b.Y-a.Y)*frac,
	}
}
