package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fentz26/focal/internal/model"
)

var placeCmd = &cobra.Command{
	Use:   "place",
	Short: "Manage places",
}

var placeAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a new place",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlaceAdd,
}

var placeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List places",
	RunE:  runPlaceList,
}

var placeRmCmd = &cobra.Command{
	Use:   "rm [place]",
	Short: "Delete a place",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaceRm,
}

var (
	placeClosed   bool
	placeOpenSpec []string
	placeIncludes []string
)

func init() {
	placeCmd.AddCommand(placeAddCmd, placeListCmd, placeRmCmd)

	placeAddCmd.Flags().BoolVar(&placeClosed, "closed", false, "Always closed")
	placeAddCmd.Flags().StringArrayVar(&placeOpenSpec, "open", nil,
		`Open hours, repeatable (e.g. --open "Mon=09:00-17:00" --open "Tue=09:00-12:00,13:00-17:00")`)
	placeAddCmd.Flags().StringArrayVar(&placeIncludes, "include", nil, "Included place (ID or name), repeatable")
}

func parseHoursFlags() (model.OpenHours, error) {
	if placeClosed && len(placeOpenSpec) > 0 {
		return model.OpenHours{}, fmt.Errorf("--closed and --open are mutually exclusive")
	}
	if placeClosed {
		return model.OpenHours{Mode: model.HoursAlwaysClosed}, nil
	}
	if len(placeOpenSpec) == 0 {
		return model.OpenHours{Mode: model.HoursAlwaysOpen}, nil
	}

	schedule := make(map[string][]string)
	for _, spec := range placeOpenSpec {
		day, ranges, found := strings.Cut(spec, "=")
		if !found {
			return model.OpenHours{}, fmt.Errorf("cannot parse open hours %q (want Day=HH:MM-HH:MM)", spec)
		}
		schedule[day] = append(schedule[day], strings.Split(ranges, ",")...)
	}
	hours := model.OpenHours{Mode: model.HoursCustom, Schedule: schedule}
	if err := hours.Validate(); err != nil {
		return model.OpenHours{}, err
	}
	return hours, nil
}

func runPlaceAdd(cmd *cobra.Command, args []string) error {
	service, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	hours, err := parseHoursFlags()
	if err != nil {
		return err
	}
	var included []string
	for _, ref := range placeIncludes {
		id, err := resolvePlaceID(service, ref)
		if err != nil {
			return err
		}
		included = append(included, id)
	}

	place, err := service.CreatePlace(strings.Join(args, " "), hours, included)
	if err != nil {
		return err
	}
	fmt.Printf("Created place %s: %s\n", truncateID(place.ID), place.Name)
	return nil
}

func runPlaceList(cmd *cobra.Command, args []string) error {
	service, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	places, err := service.ListPlaces()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tHOURS\tINCLUDES")
	for _, p := range places {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			truncateID(p.ID), p.Name, formatHours(p.Hours), strings.Join(p.IncludedPlaces, ","))
	}
	w.Flush()
	return nil
}

func formatHours(h model.OpenHours) string {
	switch h.Mode {
	case model.HoursAlwaysOpen:
		return "always open"
	case model.HoursAlwaysClosed:
		return "always closed"
	default:
		days := make([]string, 0, len(h.Schedule))
		for day, ranges := range h.Schedule {
			days = append(days, day+" "+strings.Join(ranges, ","))
		}
		return strings.Join(days, "; ")
	}
}

func runPlaceRm(cmd *cobra.Command, args []string) error {
	service, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	id, err := resolvePlaceID(service, args[0])
	if err != nil {
		return err
	}
	if err := service.DeletePlace(id); err != nil {
		return err
	}
	fmt.Printf("Deleted place %s\n", truncateID(id))
	return nil
}
