package tracker

import (
	"sort"
	"time"
)

// Window is an analytics date filter measured back from "now"
type Window int

const (
	Last7Days   Window = 7
	Last30Days  Window = 30
	Last180Days Window = 180
)

// ParseWindow maps the API's window parameter to a Window. Unknown values
// fall back to the full 180-day history, matching the default view.
func ParseWindow(s string) Window {
	switch s {
	case "7d":
		return Last7Days
	case "30d":
		return Last30Days
	default:
		return Last180Days
	}
}

func (w Window) String() string {
	switch w {
	case Last7Days:
		return "7d"
	case Last30Days:
		return "30d"
	}
	return "180d"
}

// cutoff returns the exclusive lower bound of the window
func (w Window) cutoff(now time.Time) time.Time {
	return dayOf(now).AddDate(0, 0, -int(w))
}

// filterWindow keeps entries dated strictly after the window cutoff
func filterWindow(entries []DoseLogEntry, w Window, now time.Time) []DoseLogEntry {
	cut := w.cutoff(now)
	out := make([]DoseLogEntry, 0, len(entries))
	for _, e := range entries {
		if e.Date.After(cut) {
			out = append(out, e)
		}
	}
	return out
}

// NextDoseResult describes the soonest upcoming dose across all medications
type NextDoseResult struct {
	MedicationID string        `json:"medication_id"`
	Name         string        `json:"name"`
	Dosage       string        `json:"dosage"`
	Instructions string        `json:"instructions"`
	DueAt        time.Time     `json:"due_at"`
	Until        time.Duration `json:"-"`
	Hours        int           `json:"hours"`
	Minutes      int           `json:"minutes"`
}

// ComputeNextDose finds the medication whose next scheduled dose time comes
// up soonest at or after now, rolling to tomorrow when all of today's times
// have passed. Every time on a medication's schedule is considered, so a
// twice-daily medication at 10:00 counts down to tonight's dose, not
// tomorrow morning's. Medications without a scheduled time (as-needed) are
// skipped. Ties go to the first medication in stored order. ok is false when
// nothing qualifies.
func ComputeNextDose(meds []Medication, now time.Time) (*NextDoseResult, bool) {
	var best *NextDoseResult

	for i := range meds {
		med := &meds[i]
		clocks := med.Times
		if med.NextDose != "" {
			clocks = append([]string{med.NextDose}, clocks...)
		}
		if len(clocks) == 0 {
			continue
		}

		for _, clock := range clocks {
			due, err := combineDateAndClock(now, clock)
			if err != nil {
				continue
			}
			if due.Before(now) {
				due = due.AddDate(0, 0, 1)
			}

			until := due.Sub(now)
			if best == nil || until < best.Until {
				best = &NextDoseResult{
					MedicationID: med.ID,
					Name:         med.Name,
					Dosage:       med.Dosage,
					Instructions: med.Instructions,
					DueAt:        due,
					Until:        until,
					Hours:        int(until / time.Hour),
					Minutes:      int(until % time.Hour / time.Minute),
				}
			}
		}
	}

	if best == nil {
		return nil, false
	}
	return best, true
}

// AdherenceResult is the windowed adherence rate. HasData is false for an
// empty window; Rate is meaningless in that case and must not be shown.
type AdherenceResult struct {
	Rate    float64 `json:"rate"`
	Taken   int     `json:"taken"`
	Total   int     `json:"total"`
	HasData bool    `json:"has_data"`
}

// Adherence computes count(taken)/count(all)*100 over the window
func Adherence(entries []DoseLogEntry, w Window, now time.Time) AdherenceResult {
	filtered := filterWindow(entries, w, now)
	if len(filtered) == 0 {
		return AdherenceResult{}
	}

	taken := 0
	for _, e := range filtered {
		if e.Status == StatusTaken {
			taken++
		}
	}

	return AdherenceResult{
		Rate:    float64(taken) / float64(len(filtered)) * 100,
		Taken:   taken,
		Total:   len(filtered),
		HasData: true,
	}
}

// DailyRate is one point on the adherence trend chart
type DailyRate struct {
	Date  time.Time `json:"date"`
	Rate  float64   `json:"rate"`
	Taken int       `json:"taken"`
	Total int       `json:"total"`
}

// DailyAdherence buckets the windowed entries per calendar day, oldest first
func DailyAdherence(entries []DoseLogEntry, w Window, now time.Time) []DailyRate {
	filtered := filterWindow(entries, w, now)

	byDay := make(map[time.Time]*DailyRate)
	for _, e := range filtered {
		day := dayOf(e.Date)
		dr, ok := byDay[day]
		if !ok {
			dr = &DailyRate{Date: day}
			byDay[day] = dr
		}
		dr.Total++
		if e.Status == StatusTaken {
			dr.Taken++
		}
	}

	out := make([]DailyRate, 0, len(byDay))
	for _, dr := range byDay {
		dr.Rate = float64(dr.Taken) / float64(dr.Total) * 100
		out = append(out, *dr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// StockPercent returns stock relative to the refill threshold as a
// percentage. A threshold of zero has no meaningful ratio; ok is false.
func StockPercent(med *Medication) (float64, bool) {
	if med.RefillThreshold <= 0 {
		return 0, false
	}
	return float64(med.Stock) / float64(med.RefillThreshold) * 100, true
}

// Sentiment buckets the stock level: >200% good, 100-200% warning, <100% low.
// With no usable threshold the policy is: empty stock is low, anything else
// is good. Zero stock is always low.
func Sentiment(med *Medication) StockSentiment {
	if med.Stock == 0 {
		return StockLow
	}
	pct, ok := StockPercent(med)
	if !ok {
		return StockGood
	}
	switch {
	case pct > 200:
		return StockGood
	case pct >= 100:
		return StockWarning
	default:
		return StockLow
	}
}

// InventoryCard is one stock-status card on the dashboard
type InventoryCard struct {
	MedicationID string         `json:"medication_id"`
	Name         string         `json:"name"`
	Stock        int            `json:"stock"`
	Percent      float64        `json:"percent"`
	Sentiment    StockSentiment `json:"sentiment"`
}

// InventoryCards builds a stock card per medication in stored order
func InventoryCards(meds []Medication) []InventoryCard {
	cards := make([]InventoryCard, 0, len(meds))
	for i := range meds {
		med := &meds[i]
		pct, _ := StockPercent(med)
		cards = append(cards, InventoryCard{
			MedicationID: med.ID,
			Name:         med.Name,
			Stock:        med.Stock,
			Percent:      pct,
			Sentiment:    Sentiment(med),
		})
	}
	return cards
}

// TimePatterns holds the counting aggregations behind the heatmap and the
// radial weekday chart. Weekdays are indexed Sunday=0 per time.Weekday.
type TimePatterns struct {
	Heatmap  [7][24]int `json:"heatmap"`
	Weekdays [7]int     `json:"weekdays"`
}

// AggregatePatterns counts windowed entries by (weekday, hour) and by
// weekday alone
func AggregatePatterns(entries []DoseLogEntry, w Window, now time.Time) TimePatterns {
	var p TimePatterns
	for _, e := range filterWindow(entries, w, now) {
		wd := int(e.Date.Weekday())
		p.Heatmap[wd][e.Date.Hour()]++
		p.Weekdays[wd]++
	}
	return p
}

// MedicationBreakdown is the per-medication status split within a window
type MedicationBreakdown struct {
	MedicationID string  `json:"medication_id"`
	Name         string  `json:"name"`
	TakenPct     float64 `json:"taken_pct"`
	DelayedPct   float64 `json:"delayed_pct"`
	MissedPct    float64 `json:"missed_pct"`
	Total        int     `json:"total"`
}

// Breakdown computes the percentage split of statuses per medication.
// Medications with no entries in the window are omitted.
func Breakdown(meds []Medication, entries []DoseLogEntry, w Window, now time.Time) []MedicationBreakdown {
	type counts struct{ taken, delayed, missed, total int }
	byMed := make(map[string]*counts)

	for _, e := range filterWindow(entries, w, now) {
		c, ok := byMed[e.MedicationID]
		if !ok {
			c = &counts{}
			byMed[e.MedicationID] = c
		}
		c.total++
		switch e.Status {
		case StatusTaken:
			c.taken++
		case StatusDelayed:
			c.delayed++
		case StatusMissed:
			c.missed++
		}
	}

	out := make([]MedicationBreakdown, 0, len(byMed))
	for i := range meds {
		med := &meds[i]
		c, ok := byMed[med.ID]
		if !ok {
			continue
		}
		out = append(out, MedicationBreakdown{
			MedicationID: med.ID,
			Name:         med.Name,
			TakenPct:     float64(c.taken) / float64(c.total) * 100,
			DelayedPct:   float64(c.delayed) / float64(c.total) * 100,
			MissedPct:    float64(c.missed) / float64(c.total) * 100,
			Total:        c.total,
		})
	}
	return out
}

// ScheduleItem is one row of the dashboard's today timeline
type ScheduleItem struct {
	MedicationID string    `json:"medication_id"`
	Name         string    `json:"medication"`
	At           time.Time `json:"at"`
	Note         string    `json:"note"`
	Past         bool      `json:"past"`
}

// TodaySchedule returns today's reminders in time order, capped at limit,
// with past entries flagged
func TodaySchedule(rems []Reminder, now time.Time, limit int) []ScheduleItem {
	start := dayOf(now)
	end := start.AddDate(0, 0, 1)

	items := make([]ScheduleItem, 0, limit)
	for _, r := range rems {
		if r.At.Before(start) || !r.At.Before(end) {
			continue
		}
		items = append(items, ScheduleItem{
			MedicationID: r.MedicationID,
			Name:         r.MedicationName,
			At:           r.At,
			Note:         r.Note,
			Past:         r.At.Before(now),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].At.Before(items[j].At) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// calendarEventLength is the fixed display duration of a reminder on the
// calendar surface
const calendarEventLength = 30 * time.Minute

// CalendarEvents maps reminders to (title, start, end) triples for the
// calendar display surface
func CalendarEvents(rems []Reminder) []CalendarEvent {
	events := make([]CalendarEvent, 0, len(rems))
	for _, r := range rems {
		events = append(events, CalendarEvent{
			Title: r.MedicationName,
			Start: r.At,
			End:   r.At.Add(calendarEventLength),
		})
	}
	return events
}
