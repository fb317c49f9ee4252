package engine

import (
	"math"
	"testing"

	"github.com/fentz26/focal/internal/model"
)

func TestTraceMatchesFactorProduct(t *testing.T) {
	snap := snapshot(
		newTask("goal", func(x *model.Task) { x.Credits = 10; x.DesiredCredits = 10 }),
	)
	tr, ok := Trace(snap, Options{Now: testNow}, "goal")
	if !ok {
		t.Fatal("Trace missing for existing task")
	}

	product := tr.Factors.Visibility * tr.Factors.NormalizedImportance * tr.Factors.Feedback * tr.Factors.LeadTime
	if math.Abs(tr.Score-product) > 1e-9 {
		t.Errorf("Score %v does not equal factor product %v", tr.Score, product)
	}
	if len(tr.ImportanceChain) != 1 {
		t.Errorf("Importance chain length = %d, want 1", len(tr.ImportanceChain))
	}
	if tr.LeadTime.Stage != StageReady {
		t.Errorf("Lead time stage = %q, want ready", tr.LeadTime.Stage)
	}
	if !tr.Visibility.FinalVisibility {
		t.Error("Expected final visibility true")
	}
	if tr.ComputedAt != testNow {
		t.Errorf("ComputedAt = %d, want %d", tr.ComputedAt, testNow)
	}
}

func TestTraceUnknownTask(t *testing.T) {
	snap := snapshot(newTask("a", nil))
	if _, ok := Trace(snap, Options{Now: testNow}, "nope"); ok {
		t.Fatal("Trace should report missing tasks")
	}
}

func TestTraceSequentialBlockedChain(t *testing.T) {
	snap := snapshot(
		newTask("root", func(x *model.Task) { x.IsSequential = true }),
		newTask("first", func(x *model.Task) { x.ParentID = "root" }),
		newTask("second", func(x *model.Task) { x.ParentID = "root" }),
	)
	tr, ok := Trace(snap, Options{Now: testNow}, "second")
	if !ok {
		t.Fatal("Trace missing")
	}
	if tr.Score != 0 {
		t.Errorf("Blocked task score = %v, want 0", tr.Score)
	}
	last := tr.ImportanceChain[len(tr.ImportanceChain)-1]
	if !last.SequentialBlocked {
		t.Error("Expected the blocked step to be flagged in the chain")
	}
	if tr.Feedback.RootID != "root" {
		t.Errorf("Feedback root = %q, want root", tr.Feedback.RootID)
	}
}

func TestTraceDelegatedContainer(t *testing.T) {
	snap := snapshot(
		newTask("parent", nil),
		newTask("child", func(x *model.Task) { x.ParentID = "parent" }),
	)
	tr, ok := Trace(snap, Options{Now: testNow}, "parent")
	if !ok {
		t.Fatal("Trace missing")
	}
	if !tr.Visibility.Delegated {
		t.Error("Container with visible child should be marked delegated")
	}
	if tr.Visibility.FinalVisibility {
		t.Error("Delegated container should not be visible")
	}
}
