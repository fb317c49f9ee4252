package model

// ScheduleSource indicates where a task's effective schedule came from.
type ScheduleSource string

const (
	// ScheduleFromSelf means the task carries its own due date.
	ScheduleFromSelf ScheduleSource = "self"
	// ScheduleFromAncestor means the due date was inherited during the
	// top-down pass.
	ScheduleFromAncestor ScheduleSource = "ancestor"
)

// UrgencyStatus is a coarse due-date label for display.
type UrgencyStatus string

const (
	UrgencyOverdue  UrgencyStatus = "Overdue"
	UrgencyUrgent   UrgencyStatus = "Urgent"
	UrgencyActive   UrgencyStatus = "Active"
	UrgencyUpcoming UrgencyStatus = "Upcoming"
	UrgencyNone     UrgencyStatus = "None"
)

// ComputedTask is the read-only projection of a task produced by one engine
// run: the persisted fields plus the derived values consumers may depend on.
// It has no identity beyond the run that produced it.
type ComputedTask struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Notes           string        `json:"notes,omitempty"`
	ParentID        string        `json:"parentId,omitempty"`
	ChildTaskIDs    []string      `json:"childTaskIds"`
	PlaceID         string        `json:"placeId,omitempty"`
	Status          TaskStatus    `json:"status"`
	Importance      float64       `json:"importance"`
	Credits         float64       `json:"credits"`
	DesiredCredits  float64       `json:"desiredCredits"`
	Schedule        Schedule      `json:"schedule"`
	Repeat          *RepeatConfig `json:"repeatConfig,omitempty"`
	IsSequential    bool          `json:"isSequential"`
	IsAcknowledged  bool          `json:"isAcknowledged"`
	LastCompletedAt *int64        `json:"lastCompletedAt,omitempty"`

	// Derived by the pipeline.
	Score                float64        `json:"score"`
	NormalizedImportance float64        `json:"normalizedImportance"`
	EffectiveCredits     float64        `json:"effectiveCredits"`
	IsVisible            bool           `json:"isVisible"`
	IsContainer          bool           `json:"isContainer"`
	IsPending            bool           `json:"isPending"`
	IsReady              bool           `json:"isReady"`
	EffectiveDueDate     *int64         `json:"effectiveDueDate,omitempty"`
	EffectiveLeadTime    int64          `json:"effectiveLeadTime"`
	ScheduleSource       ScheduleSource `json:"scheduleSource,omitempty"`
	Urgency              UrgencyStatus  `json:"urgencyStatus"`
}
