package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fentz26/focal/internal/model"
	"github.com/fentz26/focal/internal/store"
)

// Server provides the HTTP API for Focal.
type Server struct {
	service *Service
	addr    string
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, addr string) *Server {
	return &Server{
		service: service,
		addr:    addr,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("Starting Focal daemon on %s", s.addr)
	return s.server.ListenAndServe()
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/do", s.handleDo)
	mux.HandleFunc("/plan", s.handlePlan)
	mux.HandleFunc("/tasks", s.handleTasks)
	mux.HandleFunc("/tasks/", s.handleTaskByID)
	mux.HandleFunc("/acknowledge", s.handleAcknowledge)
	mux.HandleFunc("/balance", s.handleBalance)
	mux.HandleFunc("/places", s.handlePlaces)
	mux.HandleFunc("/places/", s.handlePlaceByID)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return mux
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// atParam reads the optional ?at=<unix-ms> clock pin; 0 means now.
func atParam(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("at")
	if raw == "" {
		return 0, nil
	}
	at, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return at, nil
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, store.ErrPlaceNotFound),
		errors.Is(err, ErrUnknownTask):
		return http.StatusNotFound
	case errors.Is(err, store.ErrCycle):
		return http.StatusConflict
	case errors.Is(err, store.ErrReservedPlace):
		return http.StatusForbidden
	case errors.Is(err, store.ErrDepthExceeded),
		errors.Is(err, store.ErrEmptyTitle),
		errors.Is(err, store.ErrEmptyPlaceName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), httpStatus(err))
}

func (s *Server) handleDo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	at, err := atParam(r)
	if err != nil {
		http.Error(w, "invalid at parameter", http.StatusBadRequest)
		return
	}

	result, err := s.service.DoList(r.URL.Query().Get("place"), at)
	if err != nil {
		writeError(w, err)
		return
	}
	if result.Tasks == nil {
		result.Tasks = []model.ComputedTask{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	at, err := atParam(r)
	if err != nil {
		http.Error(w, "invalid at parameter", http.StatusBadRequest)
		return
	}

	includeHidden := r.URL.Query().Get("all") == "true"
	result, err := s.service.Plan(r.URL.Query().Get("place"), includeHidden, at)
	if err != nil {
		writeError(w, err)
		return
	}
	if result.Tasks == nil {
		result.Tasks = []model.ComputedTask{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createTask(w, r)
	case http.MethodGet:
		s.listTasks(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTaskByID handles /tasks/{id} and /tasks/{id}/{action}.
func (s *Server) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/tasks/")
	parts := strings.Split(path, "/")

	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "task id required", http.StatusBadRequest)
		return
	}

	taskID := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.getTask(w, r, taskID)
	case action == "" && r.Method == http.MethodPatch:
		s.updateTask(w, r, taskID)
	case action == "" && r.Method == http.MethodDelete:
		s.deleteTask(w, r, taskID)
	case action == "complete" && r.Method == http.MethodPost:
		s.completeTask(w, r, taskID)
	case action == "move" && r.Method == http.MethodPost:
		s.moveTask(w, r, taskID)
	case action == "trace" && r.Method == http.MethodGet:
		s.traceTask(w, r, taskID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

type taskRequest struct {
	Title           *string             `json:"title"`
	Notes           *string             `json:"notes"`
	ParentID        string              `json:"parentId"`
	PlaceID         *string             `json:"placeId"`
	Status          *model.TaskStatus   `json:"status"`
	Importance      *float64            `json:"importance"`
	CreditIncrement *float64            `json:"creditIncrement"`
	Credits         *float64            `json:"credits"`
	DesiredCredits  *float64            `json:"desiredCredits"`
	ScheduleType    *model.ScheduleType `json:"scheduleType"`
	DueDate         *int64              `json:"dueDate"`
	ClearDueDate    bool                `json:"clearDueDate"`
	LeadTime        *int64              `json:"leadTime"`
	Repeat          *model.RepeatConfig `json:"repeatConfig"`
	IsSequential    *bool               `json:"isSequential"`
	IsAcknowledged  *bool               `json:"isAcknowledged"`
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	params := store.CreateTaskParams{
		ParentID:        req.ParentID,
		Importance:      req.Importance,
		CreditIncrement: req.CreditIncrement,
		DesiredCredits:  req.DesiredCredits,
		DueDate:         req.DueDate,
		LeadTime:        req.LeadTime,
		Repeat:          req.Repeat,
	}
	if req.Title != nil {
		params.Title = *req.Title
	}
	if req.Notes != nil {
		params.Notes = *req.Notes
	}
	if req.PlaceID != nil {
		params.PlaceID = *req.PlaceID
	}
	if req.ScheduleType != nil {
		params.ScheduleType = *req.ScheduleType
	}
	if req.IsSequential != nil {
		params.IsSequential = *req.IsSequential
	}

	task, err := s.service.CreateTask(params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.service.ListTasks()
	if err != nil {
		writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request, taskID string) {
	task, err := s.service.GetTask(taskID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request, taskID string) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	task, err := s.service.UpdateTask(taskID, store.UpdateTaskParams{
		Title:           req.Title,
		Notes:           req.Notes,
		PlaceID:         req.PlaceID,
		Status:          req.Status,
		Importance:      req.Importance,
		CreditIncrement: req.CreditIncrement,
		Credits:         req.Credits,
		DesiredCredits:  req.DesiredCredits,
		ScheduleType:    req.ScheduleType,
		DueDate:         req.DueDate,
		ClearDueDate:    req.ClearDueDate,
		LeadTime:        req.LeadTime,
		Repeat:          req.Repeat,
		IsSequential:    req.IsSequential,
		IsAcknowledged:  req.IsAcknowledged,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request, taskID string) {
	if err := s.service.DeleteTask(taskID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"deleted"}`))
}

func (s *Server) completeTask(w http.ResponseWriter, r *http.Request, taskID string) {
	at, err := atParam(r)
	if err != nil {
		http.Error(w, "invalid at parameter", http.StatusBadRequest)
		return
	}
	task, err := s.service.CompleteTask(taskID, at)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type moveRequest struct {
	ParentID string `json:"parentId"`
}

func (s *Server) moveTask(w http.ResponseWriter, r *http.Request, taskID string) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := s.service.MoveTask(taskID, req.ParentID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"moved"}`))
}

func (s *Server) traceTask(w http.ResponseWriter, r *http.Request, taskID string) {
	at, err := atParam(r)
	if err != nil {
		http.Error(w, "invalid at parameter", http.StatusBadRequest)
		return
	}
	trace, err := s.service.Trace(taskID, r.URL.Query().Get("place"), at)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trace)
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n, err := s.service.Acknowledge()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"acknowledged": n})
}

type balanceRequest struct {
	TaskID string  `json:"taskId"`
	Share  float64 `json:"share"`
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		shares, err := s.service.BalanceDistribution()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, shares)
	case http.MethodPost:
		var req balanceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		shares, err := s.service.SetBalance(req.TaskID, req.Share)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, shares)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type placeRequest struct {
	Name           *string          `json:"name"`
	Hours          *model.OpenHours `json:"hours"`
	IncludedPlaces []string         `json:"includedPlaces"`
}

func (s *Server) handlePlaces(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req placeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		name := ""
		if req.Name != nil {
			name = *req.Name
		}
		hours := model.OpenHours{Mode: model.HoursAlwaysOpen}
		if req.Hours != nil {
			hours = *req.Hours
		}
		place, err := s.service.CreatePlace(name, hours, req.IncludedPlaces)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, place)
	case http.MethodGet:
		places, err := s.service.ListPlaces()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, places)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePlaceByID(w http.ResponseWriter, r *http.Request) {
	placeID := strings.TrimPrefix(r.URL.Path, "/places/")
	if placeID == "" || strings.Contains(placeID, "/") {
		http.Error(w, "place id required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		place, err := s.service.GetPlace(placeID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, place)
	case http.MethodPatch:
		var req placeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		place, err := s.service.UpdatePlace(placeID, store.UpdatePlaceParams{
			Name:           req.Name,
			Hours:          req.Hours,
			IncludedPlaces: req.IncludedPlaces,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, place)
	case http.MethodDelete:
		if err := s.service.DeletePlace(placeID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"deleted"}`))
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
