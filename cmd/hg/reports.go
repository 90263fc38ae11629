package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hourglass/internal/domain"
	"hourglass/internal/engine"
	"hourglass/internal/rollup"
)

// parseDateArgs reads YEAR [MONTH [DAY]] positional arguments.
func parseDateArgs(args []string) (rollup.DateQuery, error) {
	var parts [3]int
	names := []string{"year", "month", "day"}
	for i, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return rollup.DateQuery{}, fmt.Errorf("%s must be a number: %q", names[i], arg)
		}
		parts[i] = n
		if n < 1 {
			return rollup.DateQuery{}, &domain.InvalidDateError{Year: parts[0], Month: parts[1], Day: parts[2]}
		}
	}
	return rollup.DateQuery{Year: parts[0], Month: parts[1], Day: parts[2]}, nil
}

func objectivesCmd() *cobra.Command {
	var allLevels, everyone bool
	var owner string
	cmd := &cobra.Command{
		Use:   "objectives YEAR [MONTH [DAY]]",
		Short: "List objectives visible in a period",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDateArgs(args)
			if err != nil {
				return err
			}
			q := rollup.Query{DateQuery: date, AllLevels: allLevels, Owner: owner}
			if q.Owner == "" && !everyone {
				q.Owner = userID()
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				r, err := e.Rollups().Objectives(ctx, q)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"objectives": r})
				}
				renderRollup(r)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&allLevels, "all", false, "include every level around the date")
	cmd.Flags().StringVar(&owner, "owner", "", "owner to scope to (defaults to --user-id)")
	cmd.Flags().BoolVar(&everyone, "everyone", false, "do not scope by owner")
	return cmd
}

func renderRollup(r rollup.Rollup) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Level", "ID", "Date", "Progress", "Scratched", "Owners", "Task"})
	for _, l := range domain.Levels {
		for _, o := range r.Bucket(l) {
			tw.AppendRow(table.Row{
				l, o.ID, o.ObjectiveDate.Format("2006-01-02"),
				fmt.Sprintf("%.0f%%", o.Progress*100), o.Scratched,
				strings.Join(o.Owners, ","), o.RelatedTask,
			})
		}
	}
	tw.Render()
}

func summaryCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "summary YEAR [MONTH [DAY]]",
		Short: "Count completed day objectives for you and for everyone",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDateArgs(args)
			if err != nil {
				return err
			}
			if owner == "" {
				owner = userID()
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.Rollups().Summary(ctx, date, owner)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"summary": s})
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Scope", "Completed", "Count"})
				tw.AppendRow(table.Row{owner, s.User.Completed, s.User.Count})
				tw.AppendRow(table.Row{"everyone", s.Everyone.Completed, s.Everyone.Count})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "user to summarize (defaults to --user-id)")
	return cmd
}

func billingCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "billing",
		Short: "Executed versus billed hours per project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var activeOnly *bool
				if cmd.Flags().Changed("all") {
					only := !all
					activeOnly = &only
				}
				rows, err := e.BillingReport(ctx, activeOnly)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"projects": rows})
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Project", "Sold", "Unit", "Rate", "Exec month", "Exec total", "Billed h month", "Billed month", "Billed h total", "Billed total"})
				for _, r := range rows {
					tw.AppendRow(table.Row{
						r.Name, r.HoursSold, r.HoursSoldUnit, r.HourlyRate,
						decimal(r.ExecutedHoursMonth), decimal(r.ExecutedHoursTotal),
						decimal(r.BilledHoursMonth), decimal(r.BilledAmountMonth),
						decimal(r.BilledHoursTotal), decimal(r.BilledAmountTotal),
					})
				}
				tw.SetColumnConfigs([]table.ColumnConfig{
					{Number: 5, Align: text.AlignRight},
					{Number: 6, Align: text.AlignRight},
					{Number: 7, Align: text.AlignRight},
					{Number: 8, Align: text.AlignRight},
					{Number: 9, Align: text.AlignRight},
					{Number: 10, Align: text.AlignRight},
				})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include inactive projects (defaults to billing.active_only)")
	return cmd
}

func decimal(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func logCmd() *cobra.Command {
	var kind, id string
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the audit history of an entity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.History(ctx, kind, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "When", "Type", "Entity", "Actor"})
				for _, evt := range items {
					tw.AppendRow(table.Row{evt.ID, evt.TS.Format("2006-01-02 15:04:05"), evt.Type, evt.EntityID, evt.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "objective", "entity kind (project, task, objective, work_entry, invoice_line, invoice)")
	cmd.Flags().StringVar(&id, "id", "", "entity id (all entities of the kind when empty)")
	return cmd
}
