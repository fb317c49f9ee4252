package engine

import "github.com/fentz26/focal/internal/model"

// enriched is the mutable working copy of a task used by the
// prioritization passes. The persisted task is never modified.
type enriched struct {
	task *model.Task

	children     []string
	outlineIndex int
	depth        int

	effectiveDueDate  *int64
	effectiveLeadTime int64
	scheduleSource    model.ScheduleSource

	effectiveCredits     float64
	feedbackFactor       float64
	leadTimeFactor       float64
	normalizedImportance float64
	score                float64

	visible   bool
	isPending bool
}

// newEnriched seeds the working copy from the persisted task. Derived
// fields start from the task's own schedule; inheritance may overwrite
// them during traversal.
func newEnriched(t *model.Task, now int64) *enriched {
	e := &enriched{
		task:              t,
		effectiveLeadTime: t.Schedule.LeadTime,
		scheduleSource:    model.ScheduleFromSelf,
		feedbackFactor:    1.0,
		leadTimeFactor:    1.0,
	}
	if due := effectiveDueDate(t); due != nil {
		d := *due
		e.effectiveDueDate = &d
	}
	e.isPending = isPending(t)
	e.effectiveCredits = DecayedCredits(t.Credits, t.CreditsTimestamp, now)
	return e
}

// effectiveDueDate resolves a task's own due date. Routine tasks derive
// it from the last completion plus the repeat interval; other schedule
// types use the stored due date directly.
func effectiveDueDate(t *model.Task) *int64 {
	if t.Schedule.Type == model.ScheduleRoutinely && t.Repeat != nil {
		if t.Schedule.LastDone != nil {
			next := *t.Schedule.LastDone + int64(t.Repeat.IntervalMillis())
			return &next
		}
		return t.Schedule.DueDate
	}
	return t.Schedule.DueDate
}

// isPending reports whether a task still demands attention. Routine and
// calendar tasks recur, so they stay pending even while marked Done.
func isPending(t *model.Task) bool {
	if t.Status == model.TaskStatusPending {
		return true
	}
	switch t.Schedule.Type {
	case model.ScheduleRoutinely, model.ScheduleCalendar:
		return true
	}
	return false
}
