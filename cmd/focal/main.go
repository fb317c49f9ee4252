package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/focal/internal/audit"
	"github.com/fentz26/focal/internal/server"
	"github.com/fentz26/focal/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "focal",
	Short: "Focal - a task manager that decides what you should do next",
	Long: `Focal keeps your tasks in a local outline and continuously scores them
by importance, schedule pressure, place, and how starved each goal is,
so the top of the Do list is always the thing to work on now.`,
}

var dbPath string

func init() {
	homeDir, _ := os.UserHomeDir()
	defaultDB := filepath.Join(homeDir, ".focal", "focal.db")

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "Path to SQLite database")

	rootCmd.AddCommand(doCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(placeCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tuiCmd)
}

// openService opens the database and wires the service; the returned
// cleanup closes the store.
func openService() (*server.Service, func(), error) {
	st, err := store.New(dbPath)
	if err != nil {
		return nil, nil, err
	}
	service := server.NewService(st, audit.NewJournal(st))
	return service, func() { st.Close() }, nil
}

// parseWhen accepts RFC3339, a bare date, or raw Unix milliseconds.
func parseWhen(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ms, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UnixMilli(), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UnixMilli(), nil
	}
	return 0, fmt.Errorf("cannot parse time %q (want RFC3339, YYYY-MM-DD, or unix millis)", raw)
}

// parseSpan accepts Go durations plus a d suffix for days ("3d", "36h").
func parseSpan(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	if strings.HasSuffix(raw, "d") {
		days, err := strconv.ParseFloat(strings.TrimSuffix(raw, "d"), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse duration %q", raw)
		}
		return int64(days * 24 * float64(time.Hour/time.Millisecond)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("cannot parse duration %q", raw)
	}
	return d.Milliseconds(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
