package engine

import (
	"fmt"
	"sort"

	"github.com/fentz26/focal/internal/model"
)

// forest holds the enriched working copies arranged for traversal.
// Ordering is deterministic: roots follow RootTaskIDs, children follow
// their parent's ChildTaskIDs, and anything unreferenced is appended in
// ID order.
type forest struct {
	byID  map[string]*enriched
	roots []string
	diags []string
}

func buildForest(snap *model.Snapshot, now int64) *forest {
	f := &forest{byID: make(map[string]*enriched, len(snap.Tasks))}

	for id, t := range snap.Tasks {
		if id == "" || t == nil {
			continue
		}
		f.byID[id] = newEnriched(t, now)
	}

	// A parent ID pointing at a task we do not have makes the subtree
	// unreachable; promote it to a root so it still gets scored.
	for id, e := range f.byID {
		if e.task.ParentID == "" {
			continue
		}
		if _, ok := f.byID[e.task.ParentID]; !ok {
			f.diags = append(f.diags, fmt.Sprintf("task %s references missing parent %s, treating as root", id, e.task.ParentID))
			e.task = cloneWithoutParent(e.task)
		}
	}

	f.roots = childOrder(rootTasks(f), snap.RootTaskIDs)
	f.linkChildren()
	f.assignOutline()
	return f
}

func cloneWithoutParent(t *model.Task) *model.Task {
	c := *t
	c.ParentID = ""
	return &c
}

func rootTasks(f *forest) map[string]bool {
	set := make(map[string]bool)
	for id, e := range f.byID {
		if e.task.ParentID == "" {
			set[id] = true
		}
	}
	return set
}

// childOrder arranges members according to a declared ordering list,
// dropping list entries that are not present and appending members the
// list forgot, sorted by ID.
func childOrder(members map[string]bool, declared []string) []string {
	ordered := make([]string, 0, len(members))
	seen := make(map[string]bool, len(members))
	for _, id := range declared {
		if members[id] && !seen[id] {
			ordered = append(ordered, id)
			seen[id] = true
		}
	}
	var extra []string
	for id := range members {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	return append(ordered, extra...)
}

// linkChildren resolves each task's child list. ChildTaskIDs gives the
// intended order but the parentId field is authoritative for
// membership.
func (f *forest) linkChildren() {
	actual := make(map[string]map[string]bool)
	for id, e := range f.byID {
		p := e.task.ParentID
		if p == "" {
			continue
		}
		if actual[p] == nil {
			actual[p] = make(map[string]bool)
		}
		actual[p][id] = true
	}
	for id, e := range f.byID {
		e.children = childOrder(actual[id], e.task.ChildTaskIDs)
	}
}

// assignOutline numbers every task in depth-first pre-order. The number
// is the final sort tiebreaker, so two equally scored tasks keep their
// outline order.
func (f *forest) assignOutline() {
	next := 0
	visited := make(map[string]bool, len(f.byID))
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		e := f.byID[id]
		if depth > maxTreeDepth {
			f.diags = append(f.diags, fmt.Sprintf("task %s exceeds max tree depth %d, subtree skipped", id, maxTreeDepth))
			return
		}
		visited[id] = true
		e.outlineIndex = next
		e.depth = depth
		next++
		for _, child := range e.children {
			walk(child, depth+1)
		}
	}
	for _, root := range f.roots {
		walk(root, 0)
	}
	if len(visited) < len(f.byID) {
		var orphaned []string
		for id := range f.byID {
			if !visited[id] {
				orphaned = append(orphaned, id)
			}
		}
		sort.Strings(orphaned)
		for _, id := range orphaned {
			f.diags = append(f.diags, fmt.Sprintf("task %s is unreachable from any root, skipped", id))
			delete(f.byID, id)
		}
	}
}
