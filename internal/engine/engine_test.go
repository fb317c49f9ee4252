package engine

import (
	"math"
	"testing"

	"github.com/fentz26/focal/internal/model"
)

// testNow is 2023-11-14T22:13:20Z, a Tuesday.
const testNow int64 = 1700000000000

func newTask(id string, mut func(*model.Task)) *model.Task {
	t := &model.Task{
		ID:               id,
		Title:            id,
		Status:           model.TaskStatusPending,
		Importance:       1.0,
		DesiredCredits:   1.0,
		CreditsTimestamp: testNow,
		Schedule:         model.Schedule{Type: model.ScheduleOnce},
	}
	if mut != nil {
		mut(t)
	}
	return t
}

func snapshot(tasks ...*model.Task) *model.Snapshot {
	snap := &model.Snapshot{
		Tasks:  make(map[string]*model.Task),
		Places: make(map[string]*model.Place),
	}
	for _, t := range tasks {
		snap.Tasks[t.ID] = t
		if t.ParentID == "" {
			snap.RootTaskIDs = append(snap.RootTaskIDs, t.ID)
		}
	}
	for _, t := range tasks {
		if t.ParentID != "" {
			if p, ok := snap.Tasks[t.ParentID]; ok {
				p.ChildTaskIDs = append(p.ChildTaskIDs, t.ID)
			}
		}
	}
	return snap
}

func index(res Result) map[string]model.ComputedTask {
	out := make(map[string]model.ComputedTask, len(res.Tasks))
	for _, t := range res.Tasks {
		out[t.ID] = t
	}
	return out
}

func order(res Result) []string {
	ids := make([]string, 0, len(res.Tasks))
	for _, t := range res.Tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

func TestPrioritizeSingleRoot(t *testing.T) {
	snap := snapshot(newTask("a", nil))
	res := Prioritize(snap, Options{Now: testNow})

	if len(res.Tasks) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(res.Tasks))
	}
	got := res.Tasks[0]
	if got.NormalizedImportance != 1.0 {
		t.Errorf("Root normalized importance = %v, want 1.0", got.NormalizedImportance)
	}
	if !got.IsVisible || !got.IsPending || !got.IsReady {
		t.Errorf("Expected visible pending ready root, got %+v", got)
	}
	if got.Score <= 0 {
		t.Errorf("Expected positive score, got %v", got.Score)
	}
}

func TestPrioritizeIsDeterministic(t *testing.T) {
	snap := snapshot(
		newTask("a", nil),
		newTask("b", func(x *model.Task) { x.ParentID = "a"; x.Importance = 0.6 }),
		newTask("c", func(x *model.Task) { x.ParentID = "a"; x.Importance = 0.2 }),
		newTask("d", nil),
	)
	first := Prioritize(snap, Options{Now: testNow})
	for i := 0; i < 5; i++ {
		again := Prioritize(snap, Options{Now: testNow})
		if len(again.Tasks) != len(first.Tasks) {
			t.Fatalf("Run %d returned %d tasks, want %d", i, len(again.Tasks), len(first.Tasks))
		}
		for j := range first.Tasks {
			if again.Tasks[j].ID != first.Tasks[j].ID || again.Tasks[j].Score != first.Tasks[j].Score {
				t.Fatalf("Run %d diverged at position %d: %s/%v vs %s/%v",
					i, j, again.Tasks[j].ID, again.Tasks[j].Score, first.Tasks[j].ID, first.Tasks[j].Score)
			}
		}
	}
}

func TestWeightNormalizationConservation(t *testing.T) {
	snap := snapshot(
		newTask("root", nil),
		newTask("b", func(x *model.Task) { x.ParentID = "root"; x.Importance = 0.6 }),
		newTask("c", func(x *model.Task) { x.ParentID = "root"; x.Importance = 0.2 }),
	)
	res := Prioritize(snap, Options{Now: testNow, IncludeHidden: true})
	byID := index(res)

	if got := byID["b"].NormalizedImportance; math.Abs(got-0.75) > 1e-9 {
		t.Errorf("b normalized importance = %v, want 0.75", got)
	}
	if got := byID["c"].NormalizedImportance; math.Abs(got-0.25) > 1e-9 {
		t.Errorf("c normalized importance = %v, want 0.25", got)
	}
	sum := byID["b"].NormalizedImportance + byID["c"].NormalizedImportance
	if math.Abs(sum-byID["root"].NormalizedImportance) > 1e-9 {
		t.Errorf("Children sum %v does not match parent %v", sum, byID["root"].NormalizedImportance)
	}
}

func TestWeightNormalizationZeroSum(t *testing.T) {
	snap := snapshot(
		newTask("root", nil),
		newTask("b", func(x *model.Task) { x.ParentID = "root"; x.Importance = 0 }),
		newTask("c", func(x *model.Task) { x.ParentID = "root"; x.Importance = 0 }),
	)
	res := Prioritize(snap, Options{Now: testNow, IncludeHidden: true})
	byID := index(res)

	if got := byID["b"].NormalizedImportance; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("b normalized importance = %v, want equal split 0.5", got)
	}
	if got := byID["c"].NormalizedImportance; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("c normalized importance = %v, want equal split 0.5", got)
	}
}

func TestDoneSiblingStillCountsInWeights(t *testing.T) {
	snap := snapshot(
		newTask("root", nil),
		newTask("done", func(x *model.Task) { x.ParentID = "root"; x.Status = model.TaskStatusDone }),
		newTask("open", func(x *model.Task) { x.ParentID = "root" }),
	)
	res := Prioritize(snap, Options{Now: testNow, IncludeHidden: true})
	byID := index(res)

	if got := byID["open"].NormalizedImportance; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Pending sibling normalized importance = %v, want 0.5 (Done siblings keep their share)", got)
	}
}

func TestSequentialGating(t *testing.T) {
	snap := snapshot(
		newTask("root", func(x *model.Task) { x.IsSequential = true }),
		newTask("first", func(x *model.Task) { x.ParentID = "root" }),
		newTask("second", func(x *model.Task) { x.ParentID = "root" }),
	)
	res := Prioritize(snap, Options{Now: testNow, IncludeHidden: true})
	byID := index(res)

	if got := byID["first"].NormalizedImportance; got != 1.0 {
		t.Errorf("Active child normalized importance = %v, want full parent weight 1.0", got)
	}
	if got := byID["second"].NormalizedImportance; got != 0 {
		t.Errorf("Blocked child normalized importance = %v, want 0", got)
	}
	if byID["second"].Score != 0 {
		t.Errorf("Blocked child score = %v, want 0", byID["second"].Score)
	}

	// The default list drops the blocked sibling entirely.
	doList := Prioritize(snap, Options{Now: testNow})
	for _, task := range doList.Tasks {
		if task.ID == "second" {
			t.Fatal("Blocked sequential child leaked into the do list")
		}
	}
}

func TestSequentialDoneChildUnblocksNext(t *testing.T) {
	snap := snapshot(
		newTask("root", func(x *model.Task) { x.IsSequential = true }),
		newTask("first", func(x *model.Task) { x.ParentID = "root"; x.Status = model.TaskStatusDone; x.IsAcknowledged = true }),
		newTask("second", func(x *model.Task) { x.ParentID = "root" }),
	)
	res := Prioritize(snap, Options{Now: testNow})
	byID := index(res)

	got, ok := byID["second"]
	if !ok {
		t.Fatal("Next sequential child missing from do list after predecessor completed")
	}
	if got.NormalizedImportance != 1.0 {
		t.Errorf("Unblocked child normalized importance = %v, want 1.0", got.NormalizedImportance)
	}
}

func TestContainerCollapse(t *testing.T) {
	snap := snapshot(
		newTask("parent", nil),
		newTask("child", func(x *model.Task) { x.ParentID = "parent" }),
	)
	res := Prioritize(snap, Options{Now: testNow})
	byID := index(res)

	if _, ok := byID["parent"]; ok {
		t.Error("Container with a visible child should be hidden from the do list")
	}
	if _, ok := byID["child"]; !ok {
		t.Error("Visible leaf child missing from the do list")
	}

	all := index(Prioritize(snap, Options{Now: testNow, IncludeHidden: true}))
	if all["parent"].Score != 0 {
		t.Errorf("Collapsed container score = %v, want 0", all["parent"].Score)
	}
	if all["parent"].IsVisible {
		t.Error("Collapsed container should not be visible")
	}
}

func TestContainerSurfacesWhenChildrenHidden(t *testing.T) {
	// Children pinned to a closed place are invisible, so the container
	// itself has to carry the work on the list.
	snap := snapshot(
		newTask("parent", nil),
		newTask("child", func(x *model.Task) { x.ParentID = "parent"; x.PlaceID = "office" }),
	)
	snap.Places["office"] = &model.Place{
		ID:    "office",
		Name:  "Office",
		Hours: model.OpenHours{Mode: model.HoursAlwaysClosed},
	}

	res := Prioritize(snap, Options{Now: testNow})
	byID := index(res)

	if _, ok := byID["child"]; ok {
		t.Error("Child at a closed place should be hidden")
	}
	got, ok := byID["parent"]
	if !ok {
		t.Fatal("Container with no visible descendants should surface itself")
	}
	if got.Score <= 0 {
		t.Errorf("Surfaced container score = %v, want positive", got.Score)
	}
}

func TestDoneAcknowledgedExcluded(t *testing.T) {
	snap := snapshot(
		newTask("done", func(x *model.Task) { x.Status = model.TaskStatusDone; x.IsAcknowledged = true }),
		newTask("lingering", func(x *model.Task) { x.Status = model.TaskStatusDone }),
	)
	res := Prioritize(snap, Options{Now: testNow})
	byID := index(res)

	if _, ok := byID["done"]; ok {
		t.Error("Acknowledged Done task should not appear on the do list")
	}
	if _, ok := byID["lingering"]; !ok {
		t.Error("Unacknowledged Done task should stay on the do list")
	}
}

func TestTooEarlyTaskSuppressed(t *testing.T) {
	due := testNow + 10*model.MillisPerDay
	snap := snapshot(
		newTask("early", func(x *model.Task) {
			x.Schedule = model.Schedule{Type: model.ScheduleDueDate, DueDate: &due, LeadTime: 2 * model.MillisPerDay}
		}),
		newTask("anytime", nil),
	)
	res := Prioritize(snap, Options{Now: testNow})
	byID := index(res)

	if _, ok := byID["early"]; ok {
		t.Error("Task outside twice its lead time should be suppressed")
	}
	if _, ok := byID["anytime"]; !ok {
		t.Error("Undated task should always be listed")
	}

	all := index(Prioritize(snap, Options{Now: testNow, IncludeHidden: true}))
	if got := all["early"]; got.IsReady {
		t.Errorf("Suppressed task reported ready: %+v", got)
	}
}

func TestScheduleInheritance(t *testing.T) {
	due := testNow + model.MillisPerDay
	ownDue := testNow + 3*model.MillisPerDay
	snap := snapshot(
		newTask("root", func(x *model.Task) {
			x.Schedule = model.Schedule{Type: model.ScheduleDueDate, DueDate: &due, LeadTime: 4 * model.MillisPerDay}
		}),
		newTask("mid", func(x *model.Task) {
			x.ParentID = "root"
			x.Schedule = model.Schedule{Type: model.ScheduleDueDate, DueDate: &ownDue, LeadTime: 2 * model.MillisPerDay}
		}),
		newTask("leaf", func(x *model.Task) { x.ParentID = "mid" }),
	)
	res := Prioritize(snap, Options{Now: testNow, IncludeHidden: true})
	byID := index(res)

	mid := byID["mid"]
	if mid.EffectiveDueDate == nil || *mid.EffectiveDueDate != ownDue {
		t.Errorf("Intermediate task with its own date should keep it, got %v", mid.EffectiveDueDate)
	}
	if mid.ScheduleSource != model.ScheduleFromSelf {
		t.Errorf("Intermediate schedule source = %q, want self", mid.ScheduleSource)
	}

	leaf := byID["leaf"]
	if leaf.EffectiveDueDate == nil || *leaf.EffectiveDueDate != ownDue {
		t.Errorf("Leaf should inherit the nearest ancestor's date %d, got %v", ownDue, leaf.EffectiveDueDate)
	}
	if leaf.EffectiveLeadTime != 2*model.MillisPerDay {
		t.Errorf("Leaf effective lead time = %d, want inherited %d", leaf.EffectiveLeadTime, 2*model.MillisPerDay)
	}
	if leaf.ScheduleSource != model.ScheduleFromAncestor {
		t.Errorf("Leaf schedule source = %q, want ancestor", leaf.ScheduleSource)
	}
}

func TestSortOrder(t *testing.T) {
	snap := snapshot(
		newTask("low", func(x *model.Task) { x.Importance = 0.2 }),
		newTask("high", func(x *model.Task) { x.Importance = 0.9 }),
		newTask("mid", func(x *model.Task) { x.Importance = 0.5 }),
	)
	res := Prioritize(snap, Options{Now: testNow})

	// All roots score identically (normalized importance is 1.0 for each),
	// so raw importance breaks the tie.
	want := []string{"high", "mid", "low"}
	got := order(res)
	if len(got) != len(want) {
		t.Fatalf("Expected %d tasks, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Sort order = %v, want %v", got, want)
		}
	}
}

func TestSortFallsBackToOutlineOrder(t *testing.T) {
	snap := snapshot(
		newTask("zeta", nil),
		newTask("alpha", nil),
	)
	res := Prioritize(snap, Options{Now: testNow})

	// Identical score and importance: declared root order wins.
	got := order(res)
	if len(got) != 2 || got[0] != "zeta" || got[1] != "alpha" {
		t.Fatalf("Expected declared order [zeta alpha], got %v", got)
	}
}

func TestRoutinelyEffectiveDueDate(t *testing.T) {
	lastDone := testNow - 3*model.MillisPerDay
	snap := snapshot(
		newTask("habit", func(x *model.Task) {
			x.Status = model.TaskStatusDone
			x.Schedule = model.Schedule{Type: model.ScheduleRoutinely, LastDone: &lastDone, LeadTime: model.MillisPerDay}
			x.Repeat = &model.RepeatConfig{Frequency: model.FreqDaily, Interval: 7}
		}),
	)
	res := Prioritize(snap, Options{Now: testNow, IncludeHidden: true})
	byID := index(res)

	habit := byID["habit"]
	if !habit.IsPending {
		t.Error("Routine task should stay pending while Done")
	}
	wantDue := lastDone + 7*model.MillisPerDay
	if habit.EffectiveDueDate == nil || *habit.EffectiveDueDate != wantDue {
		t.Errorf("Routine effective due = %v, want %d", habit.EffectiveDueDate, wantDue)
	}
}

func TestDanglingParentBecomesRoot(t *testing.T) {
	orphan := newTask("orphan", func(x *model.Task) { x.ParentID = "ghost" })
	snap := snapshot(newTask("a", nil))
	snap.Tasks["orphan"] = orphan

	res := Prioritize(snap, Options{Now: testNow})
	byID := index(res)

	if _, ok := byID["orphan"]; !ok {
		t.Error("Task with a missing parent should still be scored as a root")
	}
	if len(res.Diagnostics) == 0 {
		t.Error("Expected a diagnostic for the missing parent reference")
	}
}

func TestOutlineModeKeepsLowScores(t *testing.T) {
	due := testNow + 10*model.MillisPerDay
	snap := snapshot(
		newTask("early", func(x *model.Task) {
			x.Schedule = model.Schedule{Type: model.ScheduleDueDate, DueDate: &due, LeadTime: 2 * model.MillisPerDay}
		}),
		newTask("done", func(x *model.Task) { x.Status = model.TaskStatusDone; x.IsAcknowledged = true }),
	)
	res := Prioritize(snap, Options{Now: testNow, Mode: ModeOutline})
	byID := index(res)

	if _, ok := byID["early"]; !ok {
		t.Error("Outline mode should keep zero-score tasks")
	}
	if _, ok := byID["done"]; !ok {
		t.Error("Outline mode should keep acknowledged Done tasks")
	}
}
