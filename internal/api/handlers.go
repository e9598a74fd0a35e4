package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/medtrackpro/medtrack/internal/drone"
	apperrors "github.com/medtrackpro/medtrack/internal/errors"
	"github.com/medtrackpro/medtrack/internal/tracker"
)

// ==================== Session ====================

func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	sess, token, err := s.sessions.Create()
	if err != nil {
		if errors.Is(err, apperrors.ErrSessionLimit) {
			return fiberError(c, fiber.StatusServiceUnavailable, err)
		}
		s.logger.Error("session create failed", zap.Error(err))
		return fiberError(c, fiber.StatusInternalServerError, apperrors.ErrInternal)
	}

	s.metrics.SessionsStarted.Inc()
	s.metrics.SessionsLive.Set(float64(s.sessions.Count()))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token":      token,
		"session_id": sess.ID,
		"created_at": sess.CreatedAt,
	})
}

func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	sess := currentSession(c)
	s.sessions.Delete(sess.ID)
	s.metrics.SessionsLive.Set(float64(s.sessions.Count()))
	return c.SendStatus(fiber.StatusNoContent)
}

// ==================== Dashboard ====================

func (s *Server) handleDashboard(c *fiber.Ctx) error {
	sess := currentSession(c)
	now := s.now()

	meds, err := sess.Store.ListMedications()
	if err != nil {
		return fiberError(c, fiber.StatusInternalServerError, err)
	}
	entries, err := sess.Store.ListDoseLogs(time.Time{})
	if err != nil {
		return fiberError(c, fiber.StatusInternalServerError, err)
	}
	rems, err := sess.Store.ListReminders()
	if err != nil {
		return fiberError(c, fiber.StatusInternalServerError, err)
	}
	notifs, err := sess.Store.ListNotifications()
	if err != nil {
		return fiberError(c, fiber.StatusInternalServerError, err)
	}

	dosesToday := 0
	y, mo, d := now.Date()
	for _, e := range entries {
		ey, em, ed := e.Date.Date()
		if ey == y && em == mo && ed == d {
			dosesToday++
		}
	}

	resp := fiber.Map{
		"stats": fiber.Map{
			"medications": len(meds),
			"doses_today": dosesToday,
		},
		"adherence_7d":  tracker.Adherence(entries, tracker.Last7Days, now),
		"adherence_30d": tracker.Adherence(entries, tracker.Last30Days, now),
		"inventory":     tracker.InventoryCards(meds),
		"schedule":      tracker.TodaySchedule(rems, now, 5),
		"notifications": notifs,
		"drone":         sess.Drone.Snapshot(),
	}
	if next, ok := tracker.ComputeNextDose(meds, now); ok {
		resp["next_dose"] = next
	}
	return c.JSON(resp)
}

// ==================== Analytics ====================

func (s *Server) handleAdherence(c *fiber.Ctx) error {
	sess := currentSession(c)
	now := s.now()
	window := tracker.ParseWindow(c.Query("window"))

	entries, err := sess.Store.ListDoseLogs(time.Time{})
	if err != nil {
		return fiberError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(fiber.Map{
		"window":  window.String(),
		"overall": tracker.Adherence(entries, window, now),
		"daily":   tracker.DailyAdherence(entries, window, now),
	})
}

func (s *Server) handlePatterns(c *fiber.Ctx) error {
	sess := currentSession(c)
	now := s.now()
	window := tracker.ParseWindow(c.Query("window"))

	entries, err := sess.Store.ListDoseLogs(time.Time{})
	if err != nil {
		return fiberError(c, fiber.StatusInternalServerError, err)
	}

	p := tracker.AggregatePatterns(entries, window, now)
	return c.JSON(fiber.Map{
		"window":   window.String(),
		"heatmap":  p.Heatmap,
		"weekdays": p.Weekdays,
	})
}

func (s *Server) handleBreakdown(c *fiber.Ctx) error {
	sess := currentSession(c)
	now := s.now()
	window := tracker.ParseWindow(c.Query("window"))

	meds, err := sess.Store.ListMedications()
	if err != nil {
		return fiberError(c, fiber.StatusInternalServerError, err)
	}
	entries, err := sess.Store.ListDoseLogs(time.Time{})
	if err != nil {
		return fiberError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(fiber.Map{
		"window":      window.String(),
		"medications": tracker.Breakdown(meds, entries, window, now),
	})
}

// ==================== Medications ====================

func (s *Server) handleListMedications(c *fiber.Ctx) error {
	sess := currentSession(c)
	meds, err := sess.Store.ListMedications()
	if err != nil {
		return fiberError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"medications": meds})
}

func (s *Server) handleAddMedication(c *fiber.Ctx) error {
	sess := currentSession(c)

	var in tracker.AddMedicationInput
	if err := c.BodyParser(&in); err != nil {
		return fiberError(c, fiber.StatusBadRequest, apperrors.ErrBadRequest)
	}

	med, err := sess.Service.AddMedication(in)
	if err != nil {
		return fiberError(c, fiber.StatusBadRequest, err)
	}

	s.metrics.RecordAction("add_medication")
	return c.Status(fiber.StatusCreated).JSON(med)
}

func (s *Server) handleRemoveMedication(c *fiber.Ctx) error {
	sess := currentSession(c)
	cascade := c.QueryBool("cascade")

	err := sess.Service.RemoveMedication(c.Params("id"), cascade)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrMedicationNotFound):
		return fiberError(c, fiber.StatusNotFound, err)
	case errors.Is(err, apperrors.ErrMedicationReferenced):
		return fiberError(c, fiber.StatusConflict, err)
	default:
		return fiberError(c, fiber.StatusInternalServerError, err)
	}

	s.metrics.RecordAction("remove_medication")
	return c.SendStatus(fiber.StatusNoContent)
}

// ==================== Dose log ====================

func (s *Server) handleListDoses(c *fiber.Ctx) error {
	sess := currentSession(c)
	now := s.now()
	window := tracker.ParseWindow(c.Query("window"))

	entries, err := sess.Store.ListDoseLogs(now.AddDate(0, 0, -int(window)))
	if err != nil {
		return fiberError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"doses": entries})
}

func (s *Server) handleLogDose(c *fiber.Ctx) error {
	sess := currentSession(c)

	var in tracker.LogDoseInput
	if err := c.BodyParser(&in); err != nil {
		return fiberError(c, fiber.StatusBadRequest, apperrors.ErrBadRequest)
	}

	entry, err := sess.Service.LogDose(in, s.now())
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrMedicationNotFound):
		return fiberError(c, fiber.StatusNotFound, err)
	default:
		return fiberError(c, fiber.StatusBadRequest, err)
	}

	s.metrics.RecordAction("log_dose")
	return c.Status(fiber.StatusCreated).JSON(entry)
}

// ==================== Reminders and calendar ====================

func (s *Server) handleListReminders(c *fiber.Ctx) error {
	sess := currentSession(c)
	rems, err := sess.Store.ListReminders()
	if err != nil {
		return fiberError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"reminders": rems})
}

func (s *Server) handleSetReminder(c *fiber.Ctx) error {
	sess := currentSession(c)

	var in tracker.SetReminderInput
	if err := c.BodyParser(&in); err != nil {
		return fiberError(c, fiber.StatusBadRequest, apperrors.ErrBadRequest)
	}

	rem, err := sess.Service.SetReminder(in)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrMedicationNotFound):
		return fiberError(c, fiber.StatusNotFound, err)
	default:
		return fiberError(c, fiber.StatusBadRequest, err)
	}

	s.metrics.RecordAction("set_reminder")
	return c.Status(fiber.StatusCreated).JSON(rem)
}

func (s *Server) handleCalendar(c *fiber.Ctx) error {
	sess := currentSession(c)
	rems, err := sess.Store.ListReminders()
	if err != nil {
		return fiberError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"events": tracker.CalendarEvents(rems)})
}

// ==================== Profile ====================

func (s *Server) handleGetProfile(c *fiber.Ctx) error {
	sess := currentSession(c)
	info, err := sess.Store.GetPersonalInfo()
	if err != nil {
		return fiberError(c, fiber.StatusInternalServerError, err)
	}
	if info == nil {
		return fiberError(c, fiber.StatusNotFound, apperrors.ErrNotFound)
	}
	return c.JSON(info)
}

func (s *Server) handleUpdateProfile(c *fiber.Ctx) error {
	sess := currentSession(c)

	var info tracker.PersonalInfo
	if err := c.BodyParser(&info); err != nil {
		return fiberError(c, fiber.StatusBadRequest, apperrors.ErrBadRequest)
	}

	updated, err := sess.Service.UpdatePersonalInfo(&info)
	if err != nil {
		return fiberError(c, fiber.StatusBadRequest, err)
	}

	s.metrics.RecordAction("update_profile")
	return c.JSON(updated)
}

func (s *Server) handleAvatar(c *fiber.Ctx) error {
	av, err := s.avatar.Get(c.Context())
	if err != nil {
		return fiberError(c, fiber.StatusBadGateway, err)
	}
	c.Set("Content-Type", av.ContentType)
	c.Set("Cache-Control", "public, max-age=600")
	return c.Send(av.Data)
}

// ==================== Notifications ====================

func (s *Server) handleListNotifications(c *fiber.Ctx) error {
	sess := currentSession(c)
	notifs, err := sess.Store.ListNotifications()
	if err != nil {
		return fiberError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"notifications": notifs})
}

// ==================== Drone ====================

func (s *Server) handleDroneStatus(c *fiber.Ctx) error {
	sess := currentSession(c)
	return c.JSON(sess.Drone.Snapshot())
}

func (s *Server) handleRequestDelivery(c *fiber.Ctx) error {
	sess := currentSession(c)

	var req drone.Request
	if err := c.BodyParser(&req); err != nil {
		return fiberError(c, fiber.StatusBadRequest, err)
	}

	// the run outlives the request; it must not ride the request context
	snap, err := sess.Drone.Dispatch(context.Background(), req)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			return fiberError(c, fiber.StatusBadRequest, err)
		}
		s.metrics.RecordDelivery("rejected")
		return fiberError(c, fiber.StatusConflict, err)
	}

	s.watchDelivery(sess.Drone)
	s.metrics.RecordAction("request_delivery")
	return c.Status(fiber.StatusAccepted).JSON(snap)
}

// watchDelivery records the run's outcome once it reaches a terminal state.
// The observer only signals done; the unsubscribe happens outside it, so a
// terminal snapshot replayed synchronously during Subscribe still releases
// the observer.
func (s *Server) watchDelivery(engine *drone.Engine) {
	var once sync.Once
	done := make(chan struct{})
	unsub := engine.Subscribe(func(snap drone.Snapshot) {
		if snap.Status != drone.StatusAvailable {
			return
		}
		once.Do(func() {
			if snap.Phase == "delivered" {
				s.metrics.RecordDelivery("completed")
			}
			close(done)
		})
	})
	go func() {
		<-done
		unsub()
	}()
}

func (s *Server) handleCancelDelivery(c *fiber.Ctx) error {
	sess := currentSession(c)

	if err := sess.Drone.Cancel(); err != nil {
		return fiberError(c, fiber.StatusConflict, err)
	}

	s.metrics.RecordDelivery("cancelled")
	return c.SendStatus(fiber.StatusNoContent)
}
