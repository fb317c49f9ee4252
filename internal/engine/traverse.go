package engine

import (
	"math"

	"github.com/fentz26/focal/internal/model"
)

// evaluate walks a subtree in depth-first order, propagating schedules
// and importance downward, then resolving container visibility and the
// final score on the way back up. It reports whether any task in the
// subtree, the task itself included, ends up visible.
func (f *forest) evaluate(id string, rootID string, now int64) bool {
	e, ok := f.byID[id]
	if !ok {
		return false
	}

	f.processChildren(e, now)

	anyDescendantVisible := false
	for _, child := range e.children {
		if f.evaluate(child, rootID, now) {
			anyDescendantVisible = true
		}
	}

	// A container with visible work beneath it delegates to that work
	// instead of competing with it on the list.
	if anyDescendantVisible {
		e.visible = false
		e.score = 0
		return true
	}

	feedback := e.feedbackFactor
	if root, ok := f.byID[rootID]; ok {
		feedback = root.feedbackFactor
	}

	visFactor := 0.0
	if e.visible {
		visFactor = 1.0
	}
	e.score = visFactor * safeFactor(e.normalizedImportance) * feedback * safeFactor(e.leadTimeFactor)

	return e.visible
}

// processChildren pushes the parent's resolved schedule and weight down
// one level before the children are evaluated.
func (f *forest) processChildren(parent *enriched, now int64) {
	if len(parent.children) == 0 {
		return
	}

	siblingSum := 0.0
	live := 0
	for _, id := range parent.children {
		if c, ok := f.byID[id]; ok {
			siblingSum += c.task.Importance
			live++
		}
	}

	hasActiveChild := false
	for _, id := range parent.children {
		c, ok := f.byID[id]
		if !ok {
			continue
		}

		// Schedule inheritance. A child with no date of its own works
		// toward its nearest scheduled ancestor's deadline.
		if c.effectiveDueDate == nil && parent.effectiveDueDate != nil {
			due := *parent.effectiveDueDate
			c.effectiveDueDate = &due
			c.effectiveLeadTime = parent.effectiveLeadTime
			c.scheduleSource = model.ScheduleFromAncestor
		}

		if parent.task.IsSequential {
			if c.task.Status == model.TaskStatusPending {
				if hasActiveChild {
					// Blocked behind an earlier pending sibling.
					c.normalizedImportance = 0
					c.leadTimeFactor = 0
					continue
				}
				hasActiveChild = true
				c.normalizedImportance = parent.normalizedImportance
			} else {
				c.normalizedImportance = parent.normalizedImportance
			}
		} else {
			if siblingSum == 0 {
				c.normalizedImportance = parent.normalizedImportance / float64(live)
			} else {
				c.normalizedImportance = (c.task.Importance / siblingSum) * parent.normalizedImportance
			}
		}

		c.leadTimeFactor = LeadTimeFactor(c.effectiveDueDate, c.effectiveLeadTime, now)
	}
}

func safeFactor(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
