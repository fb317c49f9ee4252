package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fentz26/focal/internal/model"
	"github.com/fentz26/focal/internal/server"
	"github.com/fentz26/focal/internal/store"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a new task",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tasks",
	RunE:  runTaskList,
}

var taskDoneCmd = &cobra.Command{
	Use:   "done [task-id]",
	Short: "Complete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDone,
}

var taskAckCmd = &cobra.Command{
	Use:   "ack",
	Short: "Acknowledge all finished tasks",
	RunE:  runTaskAck,
}

var taskMoveCmd = &cobra.Command{
	Use:   "move [task-id]",
	Short: "Move a task under a new parent",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskMove,
}

var taskRmCmd = &cobra.Command{
	Use:   "rm [task-id]",
	Short: "Delete a task and its subtasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskRm,
}

var taskSetCmd = &cobra.Command{
	Use:   "set [task-id]",
	Short: "Update task fields",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskSet,
}

var (
	addParent     string
	addPlace      string
	addNotes      string
	addImportance float64
	addDue        string
	addLead       string
	addEvery      string
	addSequential bool

	moveTo string

	setImportance float64
	setDue        string
	setClearDue   bool
	setLead       string
	setPlace      string
	setTitle      string
	setNotes      string
	setDesired    float64
	setShare      float64
	setSequential string
)

func init() {
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskDoneCmd, taskAckCmd, taskMoveCmd, taskRmCmd, taskSetCmd)

	taskAddCmd.Flags().StringVar(&addParent, "parent", "", "Parent task ID")
	taskAddCmd.Flags().StringVar(&addPlace, "place", "", "Place ID or name")
	taskAddCmd.Flags().StringVar(&addNotes, "notes", "", "Notes")
	taskAddCmd.Flags().Float64Var(&addImportance, "importance", model.DefaultImportance, "Importance (0-1)")
	taskAddCmd.Flags().StringVar(&addDue, "due", "", "Due date (RFC3339 or YYYY-MM-DD)")
	taskAddCmd.Flags().StringVar(&addLead, "lead", "", "Lead time (e.g. 36h, 3d)")
	taskAddCmd.Flags().StringVar(&addEvery, "every", "", "Repeat interval, makes the task routine (e.g. 1w as weekly:1, daily:2)")
	taskAddCmd.Flags().BoolVar(&addSequential, "sequential", false, "Children unlock one at a time")

	taskMoveCmd.Flags().StringVar(&moveTo, "to", "", "New parent task ID (empty promotes to a goal)")

	taskSetCmd.Flags().Float64Var(&setImportance, "importance", -1, "Importance (0-1)")
	taskSetCmd.Flags().StringVar(&setDue, "due", "", "Due date")
	taskSetCmd.Flags().BoolVar(&setClearDue, "clear-due", false, "Remove the due date")
	taskSetCmd.Flags().StringVar(&setLead, "lead", "", "Lead time")
	taskSetCmd.Flags().StringVar(&setPlace, "place", "", "Place ID or name")
	taskSetCmd.Flags().StringVar(&setTitle, "title", "", "New title")
	taskSetCmd.Flags().StringVar(&setNotes, "notes", "", "Notes")
	taskSetCmd.Flags().Float64Var(&setDesired, "desired", -1, "Desired credits")
	taskSetCmd.Flags().Float64Var(&setShare, "share", -1, "Goal balance share (0-1, goals only)")
	taskSetCmd.Flags().StringVar(&setSequential, "sequential", "", "true or false")
}

// resolveTaskID accepts a full ID, a unique ID prefix, or an exact title.
func resolveTaskID(service *server.Service, ref string) (string, error) {
	if _, err := service.GetTask(ref); err == nil {
		return ref, nil
	}

	tasks, err := service.ListTasks()
	if err != nil {
		return "", err
	}
	var matches []string
	for _, t := range tasks {
		if strings.HasPrefix(t.ID, ref) || t.Title == ref {
			matches = append(matches, t.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no task matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%q is ambiguous (%d matches)", ref, len(matches))
	}
}

// resolvePlaceID accepts a place ID or an exact name.
func resolvePlaceID(service *server.Service, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	places, err := service.ListPlaces()
	if err != nil {
		return "", err
	}
	for _, p := range places {
		if p.ID == ref || p.Name == ref {
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("no place matches %q", ref)
}

// resolvePlaceFilter is resolvePlaceID but keeps the All sentinel.
func resolvePlaceFilter(service *server.Service, ref string) (string, error) {
	if ref == "" || ref == model.FilterAll {
		return model.FilterAll, nil
	}
	return resolvePlaceID(service, ref)
}

// parseRepeat turns "weekly:2" or "daily" into a repeat config.
func parseRepeat(raw string) (*model.RepeatConfig, error) {
	if raw == "" {
		return nil, nil
	}
	freq, intervalRaw, found := strings.Cut(raw, ":")
	interval := 1.0
	if found {
		if _, err := fmt.Sscanf(intervalRaw, "%f", &interval); err != nil {
			return nil, fmt.Errorf("cannot parse repeat interval %q", raw)
		}
	}
	rc := &model.RepeatConfig{Frequency: model.Frequency(freq), Interval: interval}
	if rc.IntervalMillis() <= 0 {
		return nil, fmt.Errorf("unknown repeat frequency %q (want minutes, hours, daily, weekly, monthly, yearly)", freq)
	}
	return rc, nil
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	service, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	params := store.CreateTaskParams{
		Title:        strings.Join(args, " "),
		Notes:        addNotes,
		IsSequential: addSequential,
	}
	if addParent != "" {
		if params.ParentID, err = resolveTaskID(service, addParent); err != nil {
			return err
		}
	}
	if params.PlaceID, err = resolvePlaceID(service, addPlace); err != nil {
		return err
	}
	if cmd.Flags().Changed("importance") {
		params.Importance = &addImportance
	}
	if addDue != "" {
		due, err := parseWhen(addDue)
		if err != nil {
			return err
		}
		params.DueDate = &due
		params.ScheduleType = model.ScheduleDueDate
	}
	if addLead != "" {
		lead, err := parseSpan(addLead)
		if err != nil {
			return err
		}
		params.LeadTime = &lead
	}
	if addEvery != "" {
		if params.Repeat, err = parseRepeat(addEvery); err != nil {
			return err
		}
		params.ScheduleType = model.ScheduleRoutinely
	}

	task, err := service.CreateTask(params)
	if err != nil {
		return err
	}
	fmt.Printf("Created task %s: %s\n", truncateID(task.ID), task.Title)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	service, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	tasks, err := service.ListTasks()
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks yet")
		return nil
	}

	// Parent-first so indentation reads as an outline.
	byParent := make(map[string][]*model.Task)
	for _, t := range tasks {
		byParent[t.ParentID] = append(byParent[t.ParentID], t)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tIMPORTANCE\tDUE")
	var walk func(parentID string, depth int)
	walk = func(parentID string, depth int) {
		for _, t := range byParent[parentID] {
			indent := strings.Repeat("  ", depth)
			fmt.Fprintf(w, "%s\t%s%s\t%s\t%.2f\t%s\n",
				truncateID(t.ID), indent, truncate(t.Title, 40), t.Status, t.Importance, formatDue(t.Schedule.DueDate))
			walk(t.ID, depth+1)
		}
	}
	walk("", 0)
	w.Flush()
	return nil
}

func runTaskDone(cmd *cobra.Command, args []string) error {
	service, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	id, err := resolveTaskID(service, args[0])
	if err != nil {
		return err
	}
	task, err := service.CompleteTask(id, 0)
	if err != nil {
		return err
	}
	fmt.Printf("Completed %q (credits now %.2f)\n", task.Title, task.Credits)
	return nil
}

func runTaskAck(cmd *cobra.Command, args []string) error {
	service, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	n, err := service.Acknowledge()
	if err != nil {
		return err
	}
	fmt.Printf("Acknowledged %d finished tasks\n", n)
	return nil
}

func runTaskMove(cmd *cobra.Command, args []string) error {
	service, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	id, err := resolveTaskID(service, args[0])
	if err != nil {
		return err
	}
	parentID := ""
	if moveTo != "" {
		if parentID, err = resolveTaskID(service, moveTo); err != nil {
			return err
		}
	}
	if err := service.MoveTask(id, parentID); err != nil {
		return err
	}
	if parentID == "" {
		fmt.Printf("Moved %s to the top level\n", truncateID(id))
	} else {
		fmt.Printf("Moved %s under %s\n", truncateID(id), truncateID(parentID))
	}
	return nil
}

func runTaskRm(cmd *cobra.Command, args []string) error {
	service, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	id, err := resolveTaskID(service, args[0])
	if err != nil {
		return err
	}
	if err := service.DeleteTask(id); err != nil {
		return err
	}
	fmt.Printf("Deleted %s and its subtasks\n", truncateID(id))
	return nil
}

func runTaskSet(cmd *cobra.Command, args []string) error {
	service, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	id, err := resolveTaskID(service, args[0])
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("share") {
		shares, err := service.SetBalance(id, setShare)
		if err != nil {
			return err
		}
		fmt.Println("Goal balance:")
		for goalID, share := range shares {
			fmt.Printf("  %s  %.1f%%\n", truncateID(goalID), share*100)
		}
	}

	params := store.UpdateTaskParams{}
	changed := false
	if setTitle != "" {
		params.Title = &setTitle
		changed = true
	}
	if cmd.Flags().Changed("notes") {
		params.Notes = &setNotes
		changed = true
	}
	if cmd.Flags().Changed("importance") {
		params.Importance = &setImportance
		changed = true
	}
	if setDue != "" {
		due, err := parseWhen(setDue)
		if err != nil {
			return err
		}
		params.DueDate = &due
		changed = true
	}
	if setClearDue {
		params.ClearDueDate = true
		changed = true
	}
	if setLead != "" {
		lead, err := parseSpan(setLead)
		if err != nil {
			return err
		}
		params.LeadTime = &lead
		changed = true
	}
	if setPlace != "" {
		placeID, err := resolvePlaceID(service, setPlace)
		if err != nil {
			return err
		}
		params.PlaceID = &placeID
		changed = true
	}
	if cmd.Flags().Changed("desired") {
		params.DesiredCredits = &setDesired
		changed = true
	}
	if setSequential != "" {
		seq := setSequential == "true"
		params.IsSequential = &seq
		changed = true
	}

	if changed {
		task, err := service.UpdateTask(id, params)
		if err != nil {
			return err
		}
		fmt.Printf("Updated %q\n", task.Title)
	}
	return nil
}
