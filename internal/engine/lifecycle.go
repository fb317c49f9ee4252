package engine

import "github.com/fentz26/focal/internal/model"

// State transitions shared by the store and the conformance fixtures.
// Each operates on the persisted task only; derived values are always
// recomputed by Prioritize.

// CompleteTask records a completion at now. Existing credits are first
// decayed to the present, then the task's increment is added on top, so
// repeated completions compound correctly.
func CompleteTask(t *model.Task, now int64) {
	increment := model.DefaultCreditIncrement
	if t.CreditIncrement != nil {
		increment = *t.CreditIncrement
	}
	t.Credits = DecayedCredits(t.Credits, t.CreditsTimestamp, now) + increment
	t.CreditsTimestamp = now
	t.Status = model.TaskStatusDone
	done := now
	t.LastCompletedAt = &done
}

// AcknowledgeCompleted marks every Done task acknowledged, clearing the
// "lingering" entries off the do list in one sweep.
func AcknowledgeCompleted(snap *model.Snapshot) int {
	n := 0
	for _, t := range snap.Tasks {
		if t.Status == model.TaskStatusDone && !t.IsAcknowledged {
			t.IsAcknowledged = true
			n++
		}
	}
	return n
}

// WakeRoutineTasks flips completed routine tasks back to Pending once
// the current time enters their next lead-time window. The explicit due
// date is cleared; scoring derives the next one from lastDone plus the
// repeat interval.
func WakeRoutineTasks(snap *model.Snapshot, now int64) int {
	woken := 0
	for _, t := range snap.Tasks {
		if t.Status != model.TaskStatusDone || t.Schedule.Type != model.ScheduleRoutinely {
			continue
		}
		if t.Repeat == nil {
			continue
		}
		var lastCompleted int64
		if t.LastCompletedAt != nil {
			lastCompleted = *t.LastCompletedAt
		}
		nextDue := lastCompleted + int64(t.Repeat.IntervalMillis())
		if now >= nextDue-t.Schedule.LeadTime {
			t.Status = model.TaskStatusPending
			t.IsAcknowledged = false
			last := lastCompleted
			t.Schedule.LastDone = &last
			t.Schedule.DueDate = nil
			woken++
		}
	}
	return woken
}
