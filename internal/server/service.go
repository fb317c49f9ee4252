// Package server provides the HTTP API and service layer for Focal.
package server

import (
	"errors"

	"github.com/fentz26/focal/internal/audit"
	"github.com/fentz26/focal/internal/engine"
	"github.com/fentz26/focal/internal/model"
	"github.com/fentz26/focal/internal/store"
)

// ErrUnknownTask is returned by Trace when the task is not part of the
// current snapshot.
var ErrUnknownTask = errors.New("task not in snapshot")

// Service wires the store and engine together for the HTTP handlers and
// the CLI. Reads accept a pinned clock (0 means now) so responses are
// reproducible.
type Service struct {
	store   *store.Store
	journal *audit.Journal
}

// NewService creates a new service.
func NewService(s *store.Store, journal *audit.Journal) *Service {
	return &Service{store: s, journal: journal}
}

func (s *Service) record(action string, inputs any, err error, taskID string) {
	if s.journal == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	// Journal failures never mask the operation result.
	s.journal.Record(action, inputs, outcome, taskID)
}

// DoList computes the ranked Do list. Routine tasks whose wake window has
// arrived are woken first, so a stale daemon never hides a due routine.
func (s *Service) DoList(filter string, at int64) (engine.Result, error) {
	if _, err := s.store.RefreshLifecycle(at); err != nil {
		return engine.Result{}, err
	}
	snap, err := s.store.Snapshot()
	if err != nil {
		return engine.Result{}, err
	}
	return engine.Prioritize(snap, engine.Options{
		Filter: model.ViewFilter{PlaceID: filter},
		Mode:   engine.ModeDoList,
		Now:    at,
	}), nil
}

// Plan computes the full outline with scores, ignoring the Do-list status
// and threshold filters.
func (s *Service) Plan(filter string, includeHidden bool, at int64) (engine.Result, error) {
	snap, err := s.store.Snapshot()
	if err != nil {
		return engine.Result{}, err
	}
	return engine.Prioritize(snap, engine.Options{
		Filter:        model.ViewFilter{PlaceID: filter},
		Mode:          engine.ModeOutline,
		IncludeHidden: includeHidden,
		Now:           at,
	}), nil
}

// Trace explains one task's score factor by factor.
func (s *Service) Trace(taskID, filter string, at int64) (*engine.ScoreTrace, error) {
	snap, err := s.store.Snapshot()
	if err != nil {
		return nil, err
	}
	trace, ok := engine.Trace(snap, engine.Options{
		Filter: model.ViewFilter{PlaceID: filter},
		Now:    at,
	}, taskID)
	if !ok {
		return nil, ErrUnknownTask
	}
	return trace, nil
}

// CreateTask creates a task.
func (s *Service) CreateTask(params store.CreateTaskParams) (*model.Task, error) {
	task, err := s.store.CreateTask(params)
	taskID := ""
	if task != nil {
		taskID = task.ID
	}
	s.record("task.create", params, err, taskID)
	return task, err
}

// GetTask loads one task.
func (s *Service) GetTask(id string) (*model.Task, error) {
	return s.store.GetTask(id)
}

// ListTasks returns all tasks in sibling order.
func (s *Service) ListTasks() ([]*model.Task, error) {
	return s.store.ListTasks()
}

// UpdateTask applies a partial update.
func (s *Service) UpdateTask(id string, params store.UpdateTaskParams) (*model.Task, error) {
	task, err := s.store.UpdateTask(id, params)
	s.record("task.update", params, err, id)
	return task, err
}

// MoveTask reparents a task; empty newParentID promotes it to a root.
func (s *Service) MoveTask(id, newParentID string) error {
	err := s.store.MoveTask(id, newParentID)
	s.record("task.move", map[string]string{"parent": newParentID}, err, id)
	return err
}

// DeleteTask removes a task and its subtree.
func (s *Service) DeleteTask(id string) error {
	err := s.store.DeleteTask(id)
	s.record("task.delete", nil, err, id)
	return err
}

// CompleteTask marks a task done at the given instant (0 means now).
func (s *Service) CompleteTask(id string, at int64) (*model.Task, error) {
	task, err := s.store.CompleteTask(id, at)
	s.record("task.complete", nil, err, id)
	return task, err
}

// Acknowledge marks all finished tasks as seen and returns the count.
func (s *Service) Acknowledge() (int, error) {
	n, err := s.store.AcknowledgeCompleted()
	s.record("task.acknowledge", nil, err, "")
	return n, err
}

// BalanceDistribution returns root shares of desired credits.
func (s *Service) BalanceDistribution() (map[string]float64, error) {
	return s.store.BalanceDistribution()
}

// SetBalance pins one root's share and rebalances the rest.
func (s *Service) SetBalance(taskID string, share float64) (map[string]float64, error) {
	result, err := s.store.SetBalanceDistribution(taskID, share)
	s.record("balance.set", map[string]any{"share": share}, err, taskID)
	return result, err
}

// CreatePlace creates a place.
func (s *Service) CreatePlace(name string, hours model.OpenHours, includedPlaces []string) (*model.Place, error) {
	place, err := s.store.CreatePlace(name, hours, includedPlaces)
	placeID := ""
	if place != nil {
		placeID = place.ID
	}
	s.record("place.create", map[string]string{"name": name}, err, placeID)
	return place, err
}

// ListPlaces returns all places.
func (s *Service) ListPlaces() ([]model.Place, error) {
	return s.store.ListPlaces()
}

// GetPlace loads one place.
func (s *Service) GetPlace(id string) (*model.Place, error) {
	return s.store.GetPlace(id)
}

// UpdatePlace applies a partial place update.
func (s *Service) UpdatePlace(id string, params store.UpdatePlaceParams) (*model.Place, error) {
	place, err := s.store.UpdatePlace(id, params)
	s.record("place.update", params, err, id)
	return place, err
}

// DeletePlace removes a place and detaches its references.
func (s *Service) DeletePlace(id string) error {
	err := s.store.DeletePlace(id)
	s.record("place.delete", nil, err, id)
	return err
}
