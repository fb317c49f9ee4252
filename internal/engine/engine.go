// Package engine computes the prioritized view of a task forest.
//
// The pipeline is pure: it takes a snapshot and an explicit clock,
// mutates nothing it was given, and returns the same output for the
// same input. Persisted state never stores scores; every list is
// derived fresh.
package engine

import (
	"math"
	"sort"
	"time"

	"github.com/fentz26/focal/internal/model"
)

// Mode selects which view of the forest Prioritize returns.
type Mode string

const (
	// ModeDoList is the default actionable list: visible, unblocked,
	// above the priority floor.
	ModeDoList Mode = "do-list"
	// ModeOutline keeps every visible task regardless of status or
	// score, for structural views.
	ModeOutline Mode = "outline"
)

// Options configure a single prioritization run.
type Options struct {
	Filter model.ViewFilter
	Mode   Mode
	// IncludeHidden bypasses the visibility, status, and score filters.
	IncludeHidden bool
	// Now is the calculation clock in unix milliseconds. Zero means
	// the wall clock.
	Now int64
}

func (o Options) now() int64 {
	if o.Now != 0 {
		return o.Now
	}
	return time.Now().UnixMilli()
}

// Result is a prioritized task list plus any data problems found while
// computing it. Diagnostics never abort a run; a corrupt reference
// degrades to a skipped or repositioned task.
type Result struct {
	Tasks       []model.ComputedTask `json:"tasks"`
	Diagnostics []string             `json:"diagnostics,omitempty"`
}

// run executes every pipeline pass over a snapshot and returns the
// scored forest. Prioritize and Trace both build on it.
func run(snap *model.Snapshot, opts Options) (*forest, int64) {
	now := opts.now()
	f := buildForest(snap, now)

	for _, e := range f.byID {
		e.visible = Visible(snap.Places, e.task, opts.Filter, now)
		e.leadTimeFactor = LeadTimeFactor(e.effectiveDueDate, e.effectiveLeadTime, now)
	}

	for _, root := range f.roots {
		aggregateCredits(f, root)
	}
	applyFeedback(f)

	for _, root := range f.roots {
		if e, ok := f.byID[root]; ok {
			// Every root competes at full weight; importance only
			// arbitrates between siblings.
			e.normalizedImportance = 1.0
			f.evaluate(root, root, now)
		}
	}
	return f, now
}

// Prioritize runs the full pipeline over a snapshot and returns the
// sorted, filtered list for the requested view.
func Prioritize(snap *model.Snapshot, opts Options) Result {
	f, now := run(snap, opts)

	ordered := make([]*enriched, 0, len(f.byID))
	for _, e := range f.byID {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if math.Abs(a.score-b.score) > priorityEpsilon {
			return a.score > b.score
		}
		if a.task.Importance != b.task.Importance {
			return a.task.Importance > b.task.Importance
		}
		return a.outlineIndex < b.outlineIndex
	})

	tasks := make([]model.ComputedTask, 0, len(ordered))
	for _, e := range ordered {
		if !opts.IncludeHidden {
			if !e.visible {
				continue
			}
			if opts.Mode != ModeOutline {
				if e.task.Status == model.TaskStatusDone && e.task.IsAcknowledged {
					continue
				}
				if e.score <= MinPriority {
					continue
				}
			}
		}
		tasks = append(tasks, computed(e, now))
	}

	return Result{Tasks: tasks, Diagnostics: f.diags}
}

func computed(e *enriched, now int64) model.ComputedTask {
	t := e.task
	ct := model.ComputedTask{
		ID:              t.ID,
		Title:           t.Title,
		Notes:           t.Notes,
		ParentID:        t.ParentID,
		ChildTaskIDs:    e.children,
		PlaceID:         EffectivePlace(t),
		Status:          t.Status,
		Importance:      t.Importance,
		Credits:         t.Credits,
		DesiredCredits:  t.DesiredCredits,
		Schedule:        t.Schedule,
		Repeat:          t.Repeat,
		IsSequential:    t.IsSequential,
		IsAcknowledged:  t.IsAcknowledged,
		LastCompletedAt: t.LastCompletedAt,

		Score:                e.score,
		NormalizedImportance: e.normalizedImportance,
		EffectiveCredits:     e.effectiveCredits,
		IsVisible:            e.visible,
		IsContainer:          len(e.children) > 0,
		IsPending:            e.isPending,
		IsReady:              e.isPending && e.leadTimeFactor > 0,
		EffectiveDueDate:     e.effectiveDueDate,
		EffectiveLeadTime:    e.effectiveLeadTime,
		Urgency:              urgencyStatus(e.effectiveDueDate, e.effectiveLeadTime, now),
	}
	if e.effectiveDueDate != nil {
		ct.ScheduleSource = e.scheduleSource
	}
	return ct
}
