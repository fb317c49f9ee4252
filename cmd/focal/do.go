package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/focal/internal/engine"
	"github.com/fentz26/focal/internal/model"
)

var (
	placeFilter string
	atRaw       string
	showAll     bool
)

var doCmd = &cobra.Command{
	Use:   "do",
	Short: "Show the ranked Do list",
	RunE:  runDo,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the full outline with scores",
	RunE:  runPlan,
}

var traceCmd = &cobra.Command{
	Use:   "trace [task-id]",
	Short: "Explain one task's score factor by factor",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrace,
}

func init() {
	for _, c := range []*cobra.Command{doCmd, planCmd, traceCmd} {
		c.Flags().StringVar(&placeFilter, "place", model.FilterAll, "Place filter (name, id, or All)")
		c.Flags().StringVar(&atRaw, "at", "", "Pin the clock (RFC3339, YYYY-MM-DD, or unix millis)")
	}
	planCmd.Flags().BoolVar(&showAll, "all", false, "Include hidden tasks")
}

func runDo(cmd *cobra.Command, args []string) error {
	service, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	at, err := parseWhen(atRaw)
	if err != nil {
		return err
	}
	filter, err := resolvePlaceFilter(service, placeFilter)
	if err != nil {
		return err
	}

	result, err := service.DoList(filter, at)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	service, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	at, err := parseWhen(atRaw)
	if err != nil {
		return err
	}
	filter, err := resolvePlaceFilter(service, placeFilter)
	if err != nil {
		return err
	}

	result, err := service.Plan(filter, showAll, at)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func printResult(result engine.Result) {
	if len(result.Tasks) == 0 {
		fmt.Println("Nothing to do.")
	} else {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SCORE\tURGENCY\tTITLE\tDUE\tID")
		for _, t := range result.Tasks {
			fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\t%s\n",
				t.Score, t.Urgency, truncate(t.Title, 50), formatDue(t.EffectiveDueDate), truncateID(t.ID))
		}
		w.Flush()
	}
	for _, d := range result.Diagnostics {
		fmt.Fprintf(os.Stderr, "warning: %s\n", d)
	}
}

func formatDue(due *int64) string {
	if due == nil {
		return ""
	}
	return time.UnixMilli(*due).UTC().Format("2006-01-02 15:04")
}

func runTrace(cmd *cobra.Command, args []string) error {
	service, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	at, err := parseWhen(atRaw)
	if err != nil {
		return err
	}
	filter, err := resolvePlaceFilter(service, placeFilter)
	if err != nil {
		return err
	}
	taskID, err := resolveTaskID(service, args[0])
	if err != nil {
		return err
	}

	tr, err := service.Trace(taskID, filter, at)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", tr.Title, truncateID(tr.TaskID))
	fmt.Printf("Score:      %.6f\n", tr.Score)
	fmt.Printf("  visibility  %.0f\n", tr.Factors.Visibility)
	fmt.Printf("  importance  %.6f\n", tr.Factors.NormalizedImportance)
	fmt.Printf("  feedback    %.6f\n", tr.Factors.Feedback)
	fmt.Printf("  lead time   %.6f\n", tr.Factors.LeadTime)

	fmt.Println("\nImportance chain (root first):")
	for _, step := range tr.ImportanceChain {
		fmt.Printf("  %-30s raw %.2f -> weight %.4f\n", truncate(step.Title, 30), step.Importance, step.NormalizedImportance)
		if step.SequentialBlocked {
			fmt.Printf("  %-30s blocked by an earlier sibling\n", "")
		}
	}

	fmt.Printf("\nGoal balance (root %s):\n", truncateID(tr.Feedback.RootID))
	fmt.Printf("  target share  %.4f\n", tr.Feedback.TargetPercent)
	fmt.Printf("  actual share  %.4f\n", tr.Feedback.ActualPercent)
	fmt.Printf("  factor        %.4f\n", tr.Feedback.Factor)

	fmt.Println("\nSchedule:")
	if tr.LeadTime.EffectiveDueDate != nil {
		fmt.Printf("  due          %s (%s)\n", formatDue(tr.LeadTime.EffectiveDueDate), tr.LeadTime.Source)
	} else {
		fmt.Println("  due          none")
	}
	fmt.Printf("  stage        %s\n", tr.LeadTime.Stage)
	fmt.Printf("  ramp factor  %.4f\n", tr.LeadTime.Factor)

	fmt.Println("\nVisibility:")
	fmt.Printf("  place        %s\n", orNone(tr.Visibility.PlaceID))
	fmt.Printf("  place open   %v\n", tr.Visibility.PlaceOpen)
	fmt.Printf("  filter match %v\n", tr.Visibility.FilterMatch)
	if tr.Visibility.Delegated {
		fmt.Println("  hidden in favor of its visible subtasks")
	}
	fmt.Printf("  visible      %v\n", tr.Visibility.FinalVisibility)
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
