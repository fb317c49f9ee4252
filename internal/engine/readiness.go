package engine

import (
	"time"

	"github.com/fentz26/focal/internal/model"
)

// urgencyThresholdRatio splits the lead-time window into urgency bands.
// Upcoming begins at leadTime*(1+ratio) before due, Urgent at
// leadTime*ratio before due.
const urgencyThresholdRatio = 0.25

// LeadTimeFactor returns the readiness ramp for a task. The factor is
// 0 until twice the lead time remains, ramps linearly to 1 as the
// remaining time shrinks to one lead time, and stays at 1 from then on.
// Tasks without a due date are always fully ramped.
func LeadTimeFactor(dueDate *int64, leadTime, now int64) float64 {
	if dueDate == nil {
		return 1.0
	}
	if *dueDate <= now {
		return 1.0
	}
	remaining := *dueDate - now
	if remaining > 2*leadTime {
		return 0.0
	}
	raw := float64(2*leadTime-remaining) / float64(leadTime)
	if raw < 0 {
		return 0
	}
	if raw > 1 {
		return 1
	}
	return raw
}

// urgencyStatus classifies how close a task is to its due date.
func urgencyStatus(dueDate *int64, leadTime, now int64) model.UrgencyStatus {
	if dueDate == nil {
		return model.UrgencyNone
	}
	due := *dueDate
	if sameDayUTC(due, now) {
		return model.UrgencyUrgent
	}
	if now > due {
		return model.UrgencyOverdue
	}

	buffer := due - now
	lead := float64(leadTime)
	if float64(buffer) > lead {
		if float64(buffer) <= lead+lead*urgencyThresholdRatio {
			return model.UrgencyUpcoming
		}
		return model.UrgencyNone
	}
	if float64(buffer) <= lead*urgencyThresholdRatio {
		return model.UrgencyUrgent
	}
	return model.UrgencyActive
}

func sameDayUTC(a, b int64) bool {
	ta := time.UnixMilli(a).UTC()
	tb := time.UnixMilli(b).UTC()
	return ta.Year() == tb.Year() && ta.Month() == tb.Month() && ta.Day() == tb.Day()
}
