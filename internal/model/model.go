// Package model defines the core domain types for Focal.
package model

// TaskStatus represents the completion state of a task.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "Pending"
	TaskStatusDone    TaskStatus = "Done"
)

// ScheduleType is the scheduling strategy for a task.
type ScheduleType string

const (
	// ScheduleOnce is a one-time task with no recurrence. A task with this
	// type and no due date of its own inherits its ancestor's schedule.
	ScheduleOnce ScheduleType = "Once"
	// ScheduleRoutinely recurs on an interval counted from last completion.
	ScheduleRoutinely ScheduleType = "Routinely"
	// ScheduleDueDate has one explicit due date.
	ScheduleDueDate ScheduleType = "DueDate"
	// ScheduleCalendar is a calendar-pinned task.
	ScheduleCalendar ScheduleType = "Calendar"
)

// Frequency is the unit for recurring schedules.
type Frequency string

const (
	FreqMinutes Frequency = "minutes"
	FreqHours   Frequency = "hours"
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
)

// RepeatConfig describes how a Routinely task repeats.
type RepeatConfig struct {
	Frequency Frequency `json:"frequency"`
	Interval  float64   `json:"interval"`
}

// Schedule holds the scheduling data for a task. Timestamps are Unix
// milliseconds; durations are milliseconds.
type Schedule struct {
	Type     ScheduleType `json:"type"`
	DueDate  *int64       `json:"dueDate,omitempty"`
	LeadTime int64        `json:"leadTime"`
	LastDone *int64       `json:"lastDone,omitempty"`
}

// Task is a node in the task forest as persisted by the store.
//
// ParentID is empty for root tasks. ChildTaskIDs is the authoritative
// sibling order; it is significant for sequential gating and sort
// tie-breaking.
type Task struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Notes           string       `json:"notes,omitempty"`
	ParentID        string       `json:"parentId,omitempty"`
	ChildTaskIDs    []string     `json:"childTaskIds"`
	PlaceID         string       `json:"placeId,omitempty"`
	Status          TaskStatus   `json:"status"`
	Importance      float64      `json:"importance"`
	CreditIncrement *float64     `json:"creditIncrement,omitempty"`
	Credits         float64      `json:"credits"`
	DesiredCredits  float64      `json:"desiredCredits"`
	// CreditsTimestamp is the moment Credits was last written; decay is
	// applied at read time relative to this, never in place.
	CreditsTimestamp int64         `json:"creditsTimestamp"`
	Schedule         Schedule      `json:"schedule"`
	Repeat           *RepeatConfig `json:"repeatConfig,omitempty"`
	IsSequential     bool          `json:"isSequential"`
	IsAcknowledged   bool          `json:"isAcknowledged"`
	LastCompletedAt  *int64        `json:"lastCompletedAt,omitempty"`
}

// IsRoot reports whether the task has no parent.
func (t *Task) IsRoot() bool { return t.ParentID == "" }

// ViewFilter selects the place context for the Do list.
type ViewFilter struct {
	// PlaceID is a place ID, FilterAll, or empty (treated as FilterAll).
	PlaceID string `json:"placeId,omitempty"`
}

// FilterAll matches every place.
const FilterAll = "All"

// AnywherePlaceID is the reserved sentinel place: always open, matches
// every filter, cannot be deleted.
const AnywherePlaceID = "Anywhere"

const (
	// DefaultCreditIncrement is awarded on completion when a task has no
	// explicit increment.
	DefaultCreditIncrement = 0.5
	// DefaultImportance is assigned to newly created tasks.
	DefaultImportance = 0.5
	// DefaultLeadTimeMillis is the lead time given to new tasks (8 hours).
	DefaultLeadTimeMillis = 8 * 60 * 60 * 1000
)

// Snapshot is an immutable view of the whole task/place graph handed to the
// engine. The engine never mutates it; all scratch state lives on per-run
// working copies.
type Snapshot struct {
	Tasks       map[string]*Task
	RootTaskIDs []string
	Places      map[string]*Place
}

// MillisPerDay is one day in milliseconds.
const MillisPerDay = 24 * 60 * 60 * 1000

// IntervalMillis converts a repeat config to milliseconds. Months and years
// use the 30/365-day approximations.
func (rc RepeatConfig) IntervalMillis() float64 {
	const minute = 60.0 * 1000.0
	const hour = 60.0 * minute
	const day = 24.0 * hour

	switch rc.Frequency {
	case FreqMinutes:
		return rc.Interval * minute
	case FreqHours:
		return rc.Interval * hour
	case FreqDaily:
		return rc.Interval * day
	case FreqWeekly:
		return rc.Interval * 7 * day
	case FreqMonthly:
		return rc.Interval * 30 * day
	case FreqYearly:
		return rc.Interval * 365 * day
	}
	return 0
}
