package engine

import (
	"strings"
	"testing"

	"github.com/fentz26/focal/internal/model"
)

func TestForestOrderingFollowsDeclaredLists(t *testing.T) {
	snap := snapshot(
		newTask("r2", nil),
		newTask("r1", nil),
		newTask("c2", func(x *model.Task) { x.ParentID = "r1" }),
		newTask("c1", func(x *model.Task) { x.ParentID = "r1" }),
	)
	f := buildForest(snap, testNow)

	if len(f.roots) != 2 || f.roots[0] != "r2" || f.roots[1] != "r1" {
		t.Fatalf("Root order = %v, want [r2 r1]", f.roots)
	}
	kids := f.byID["r1"].children
	if len(kids) != 2 || kids[0] != "c2" || kids[1] != "c1" {
		t.Fatalf("Child order = %v, want [c2 c1]", kids)
	}
}

func TestForestAppendsUndeclaredMembersSorted(t *testing.T) {
	snap := snapshot(newTask("declared", nil))
	snap.Tasks["zeta"] = newTask("zeta", nil)
	snap.Tasks["alpha"] = newTask("alpha", nil)

	f := buildForest(snap, testNow)
	want := []string{"declared", "alpha", "zeta"}
	if len(f.roots) != len(want) {
		t.Fatalf("Roots = %v, want %v", f.roots, want)
	}
	for i := range want {
		if f.roots[i] != want[i] {
			t.Fatalf("Roots = %v, want %v", f.roots, want)
		}
	}
}

func TestForestOutlineIndexesArePreOrder(t *testing.T) {
	snap := snapshot(
		newTask("a", nil),
		newTask("a1", func(x *model.Task) { x.ParentID = "a" }),
		newTask("a2", func(x *model.Task) { x.ParentID = "a" }),
		newTask("b", nil),
	)
	f := buildForest(snap, testNow)

	want := map[string]int{"a": 0, "a1": 1, "a2": 2, "b": 3}
	for id, idx := range want {
		if got := f.byID[id].outlineIndex; got != idx {
			t.Errorf("Outline index of %s = %d, want %d", id, got, idx)
		}
	}
}

func TestForestDropsParentCycles(t *testing.T) {
	snap := snapshot(newTask("root", nil))
	a := newTask("cyc-a", func(x *model.Task) { x.ParentID = "cyc-b" })
	b := newTask("cyc-b", func(x *model.Task) { x.ParentID = "cyc-a" })
	snap.Tasks["cyc-a"] = a
	snap.Tasks["cyc-b"] = b

	f := buildForest(snap, testNow)

	if _, ok := f.byID["cyc-a"]; ok {
		t.Error("Task trapped in a parent cycle should be dropped")
	}
	found := false
	for _, d := range f.diags {
		if strings.Contains(d, "unreachable") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected an unreachable diagnostic, got %v", f.diags)
	}
}

func TestForestChildListIgnoresStaleEntries(t *testing.T) {
	snap := snapshot(
		newTask("p", nil),
		newTask("kid", func(x *model.Task) { x.ParentID = "p" }),
	)
	// A stale child reference and a task claiming a different parent.
	snap.Tasks["p"].ChildTaskIDs = append(snap.Tasks["p"].ChildTaskIDs, "deleted")
	snap.Tasks["stray"] = newTask("stray", func(x *model.Task) { x.ParentID = "p" })

	f := buildForest(snap, testNow)
	kids := f.byID["p"].children
	if len(kids) != 2 || kids[0] != "kid" || kids[1] != "stray" {
		t.Fatalf("Children = %v, want [kid stray]", kids)
	}
}
