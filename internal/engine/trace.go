package engine

import "github.com/fentz26/focal/internal/model"

// LeadTimeStage labels where a task sits on the readiness ramp.
type LeadTimeStage string

const (
	StageReady    LeadTimeStage = "ready"
	StageRamping  LeadTimeStage = "ramping"
	StageTooEarly LeadTimeStage = "too_early"
	StageOverdue  LeadTimeStage = "overdue"
)

// ScoreFactors are the four multiplicands of a task's score.
type ScoreFactors struct {
	Visibility           float64 `json:"visibilityFactor"`
	NormalizedImportance float64 `json:"normalizedImportance"`
	Feedback             float64 `json:"feedbackFactor"`
	LeadTime             float64 `json:"leadTimeFactor"`
}

// ImportanceStep is one link in the root-to-task weight chain.
type ImportanceStep struct {
	TaskID               string  `json:"taskId"`
	Title                string  `json:"taskTitle"`
	Importance           float64 `json:"importance"`
	SiblingSum           float64 `json:"siblingImportanceSum"`
	NormalizedImportance float64 `json:"normalizedImportance"`
	SequentialBlocked    bool    `json:"sequentialBlocked"`
}

// FeedbackTrace exposes the thermostat arithmetic for the task's root.
type FeedbackTrace struct {
	RootID          string  `json:"rootId"`
	RootTitle       string  `json:"rootTitle"`
	DesiredCredits  float64 `json:"desiredCredits"`
	EffectiveCredit float64 `json:"effectiveCredits"`
	TotalDesired    float64 `json:"totalDesiredCredits"`
	TotalEffective  float64 `json:"totalEffectiveCredits"`
	TargetPercent   float64 `json:"targetPercent"`
	ActualPercent   float64 `json:"actualPercent"`
	DeviationRatio  float64 `json:"deviationRatio"`
	Factor          float64 `json:"feedbackFactor"`
}

// LeadTimeTrace explains the readiness ramp for the task.
type LeadTimeTrace struct {
	EffectiveDueDate  *int64               `json:"effectiveDueDate,omitempty"`
	EffectiveLeadTime int64                `json:"effectiveLeadTime"`
	TimeRemaining     *int64               `json:"timeRemaining,omitempty"`
	Stage             LeadTimeStage        `json:"stage"`
	Factor            float64              `json:"factor"`
	Source            model.ScheduleSource `json:"scheduleSource,omitempty"`
}

// VisibilityTrace explains how the task's visibility was resolved.
type VisibilityTrace struct {
	PlaceID         string `json:"placeId"`
	PlaceOpen       bool   `json:"placeOpen"`
	FilterMatch     bool   `json:"filterMatch"`
	Delegated       bool   `json:"delegatedToDescendants"`
	FinalVisibility bool   `json:"finalVisibility"`
}

// ScoreTrace is the full explanation of one task's score. It is
// produced by the same pipeline that scores the list, so the numbers
// always agree with what the Do list shows.
type ScoreTrace struct {
	TaskID          string           `json:"taskId"`
	Title           string           `json:"taskTitle"`
	Score           float64          `json:"score"`
	ComputedAt      int64            `json:"computedAt"`
	Factors         ScoreFactors     `json:"factors"`
	ImportanceChain []ImportanceStep `json:"importanceChain"`
	Feedback        FeedbackTrace    `json:"feedback"`
	LeadTime        LeadTimeTrace    `json:"leadTime"`
	Visibility      VisibilityTrace  `json:"visibility"`
}

// Trace scores the whole snapshot and returns the breakdown for one
// task. The second return is false when the task does not exist.
func Trace(snap *model.Snapshot, opts Options, taskID string) (*ScoreTrace, bool) {
	f, now := run(snap, opts)
	e, ok := f.byID[taskID]
	if !ok {
		return nil, false
	}

	rootID := f.rootOf(taskID)
	root := f.byID[rootID]

	visFactor := 0.0
	if e.visible {
		visFactor = 1.0
	}

	tr := &ScoreTrace{
		TaskID:     e.task.ID,
		Title:      e.task.Title,
		Score:      e.score,
		ComputedAt: now,
		Factors: ScoreFactors{
			Visibility:           visFactor,
			NormalizedImportance: e.normalizedImportance,
			Feedback:             root.feedbackFactor,
			LeadTime:             e.leadTimeFactor,
		},
		ImportanceChain: f.importanceChain(taskID),
		Feedback:        f.feedbackTrace(rootID),
		LeadTime:        leadTimeTrace(e, now),
		Visibility:      f.visibilityTrace(snap, e, opts.Filter, now),
	}
	return tr, true
}

// rootOf walks the parent chain to the subtree root.
func (f *forest) rootOf(id string) string {
	cur := id
	for {
		e, ok := f.byID[cur]
		if !ok || e.task.ParentID == "" {
			return cur
		}
		if _, ok := f.byID[e.task.ParentID]; !ok {
			return cur
		}
		cur = e.task.ParentID
	}
}

func (f *forest) importanceChain(id string) []ImportanceStep {
	var lineage []string
	cur := id
	for cur != "" {
		e, ok := f.byID[cur]
		if !ok {
			break
		}
		lineage = append(lineage, cur)
		cur = e.task.ParentID
	}
	// Root first.
	for i, j := 0, len(lineage)-1; i < j; i, j = i+1, j-1 {
		lineage[i], lineage[j] = lineage[j], lineage[i]
	}

	steps := make([]ImportanceStep, 0, len(lineage))
	for _, tid := range lineage {
		e := f.byID[tid]
		step := ImportanceStep{
			TaskID:               e.task.ID,
			Title:                e.task.Title,
			Importance:           e.task.Importance,
			NormalizedImportance: e.normalizedImportance,
		}
		if parent, ok := f.byID[e.task.ParentID]; ok {
			for _, sib := range parent.children {
				if s, ok := f.byID[sib]; ok {
					step.SiblingSum += s.task.Importance
				}
			}
			step.SequentialBlocked = parent.task.IsSequential &&
				e.task.Status == model.TaskStatusPending &&
				e.normalizedImportance == 0
		}
		steps = append(steps, step)
	}
	return steps
}

func (f *forest) feedbackTrace(rootID string) FeedbackTrace {
	root, ok := f.byID[rootID]
	if !ok {
		return FeedbackTrace{}
	}
	totals := computeFeedbackTotals(f)
	m := computeFeedbackMetrics(root.task.DesiredCredits, root.effectiveCredits, totals)
	return FeedbackTrace{
		RootID:          root.task.ID,
		RootTitle:       root.task.Title,
		DesiredCredits:  root.task.DesiredCredits,
		EffectiveCredit: root.effectiveCredits,
		TotalDesired:    totals.totalDesired,
		TotalEffective:  totals.totalEffective,
		TargetPercent:   m.targetPercent,
		ActualPercent:   m.actualPercent,
		DeviationRatio:  m.deviationRatio,
		Factor:          root.feedbackFactor,
	}
}

func leadTimeTrace(e *enriched, now int64) LeadTimeTrace {
	tr := LeadTimeTrace{
		EffectiveDueDate:  e.effectiveDueDate,
		EffectiveLeadTime: e.effectiveLeadTime,
		Factor:            e.leadTimeFactor,
		Stage:             StageReady,
	}
	if e.effectiveDueDate != nil {
		tr.Source = e.scheduleSource
		remaining := *e.effectiveDueDate - now
		tr.TimeRemaining = &remaining
		switch {
		case remaining <= 0:
			tr.Stage = StageOverdue
		case remaining > 2*e.effectiveLeadTime:
			tr.Stage = StageTooEarly
		case remaining > e.effectiveLeadTime:
			tr.Stage = StageRamping
		}
	}
	return tr
}

func (f *forest) visibilityTrace(snap *model.Snapshot, e *enriched, filter model.ViewFilter, now int64) VisibilityTrace {
	place := EffectivePlace(e.task)
	open := PlaceOpen(snap.Places, place, now)
	match := FilterMatches(snap.Places, place, filter)
	return VisibilityTrace{
		PlaceID:         place,
		PlaceOpen:       open,
		FilterMatch:     match,
		Delegated:       open && match && !e.visible,
		FinalVisibility: e.visible,
	}
}
