package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hourglass/internal/domain"
	"hourglass/internal/engine"
)

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectUpdateCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects by name",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListProjects(ctx, !all)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Sold", "Unit", "Rate", "Active"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name, p.HoursSold, p.HoursSoldUnit, p.HourlyRate, p.Active})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include inactive projects")
	return cmd
}

func projectCreateCmd() *cobra.Command {
	var opts engine.ProjectCreateOptions
	var unit string
	var inactive bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create project",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.HoursSoldUnit = domain.HoursSoldUnit(unit)
			opts.ActorID = userID()
			if inactive {
				active := false
				opts.Active = &active
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreateProject(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "project id (generated when empty)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "project name")
	cmd.Flags().Float64Var(&opts.HoursSold, "hours-sold", 0, "hours sold")
	cmd.Flags().StringVar(&unit, "unit", string(domain.HoursSoldTotal), "hours sold unit (total, monthly)")
	cmd.Flags().Float64Var(&opts.HourlyRate, "rate", 0, "hourly rate")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create the project inactive")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a project with its ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.GetProject(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
}

func projectUpdateCmd() *cobra.Command {
	var name, unit string
	var hoursSold, rate float64
	var active bool
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.ProjectUpdateOptions{ID: args[0], ActorID: userID()}
			if cmd.Flags().Changed("name") {
				opts.Name = &name
			}
			if cmd.Flags().Changed("hours-sold") {
				opts.HoursSold = &hoursSold
			}
			if cmd.Flags().Changed("unit") {
				u := domain.HoursSoldUnit(unit)
				opts.HoursSoldUnit = &u
			}
			if cmd.Flags().Changed("rate") {
				opts.HourlyRate = &rate
			}
			if cmd.Flags().Changed("active") {
				opts.Active = &active
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.UpdateProject(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().Float64Var(&hoursSold, "hours-sold", 0, "hours sold")
	cmd.Flags().StringVar(&unit, "unit", "", "hours sold unit (total, monthly)")
	cmd.Flags().Float64Var(&rate, "rate", 0, "hourly rate")
	cmd.Flags().BoolVar(&active, "active", true, "whether the project is active")
	return cmd
}

type lineFlags struct {
	id, description, date, direction string
	amount, hours                    float64
	paid                             bool
}

func (f *lineFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.id, "id", "", "line id (generated when empty)")
	cmd.Flags().StringVar(&f.description, "description", "", "description")
	cmd.Flags().StringVar(&f.date, "date", "", "invoicing date (YYYY-MM-DD, today when empty)")
	cmd.Flags().StringVar(&f.direction, "direction", string(domain.DirectionOut), "in or out")
	cmd.Flags().Float64Var(&f.amount, "amount", 0, "amount")
	cmd.Flags().Float64Var(&f.hours, "hours", 0, "billed hours")
	cmd.Flags().BoolVar(&f.paid, "paid", false, "already paid")
}

func (f *lineFlags) line() (domain.InvoiceLine, error) {
	when := time.Now().UTC()
	if f.date != "" {
		parsed, err := time.Parse(time.DateOnly, f.date)
		if err != nil {
			return domain.InvoiceLine{}, fmt.Errorf("--date: %w", err)
		}
		when = parsed
	}
	return domain.InvoiceLine{
		ID:            f.id,
		Description:   f.description,
		Amount:        f.amount,
		BilledHours:   f.hours,
		InvoicingDate: when,
		Paid:          f.paid,
		Direction:     domain.Direction(f.direction),
	}, nil
}

func invoiceCmd() *cobra.Command {
	inv := &cobra.Command{Use: "invoice", Short: "Manage project ledgers and invoices"}
	inv.AddCommand(invoiceAddCmd())
	inv.AddCommand(invoiceReplaceCmd())
	inv.AddCommand(invoiceRemoveCmd())
	inv.AddCommand(invoiceRecordCmd())
	return inv
}

func invoiceAddCmd() *cobra.Command {
	var project string
	var flags lineFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a line to a project ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := flags.line()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				added, err := e.AddInvoiceLine(ctx, project, line, userID())
				if err != nil {
					return err
				}
				return printJSON(added)
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "project id")
	flags.bind(cmd)
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func invoiceReplaceCmd() *cobra.Command {
	var project string
	var flags lineFlags
	cmd := &cobra.Command{
		Use:   "replace",
		Short: "Replace a ledger line by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := flags.line()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				replaced, err := e.ReplaceInvoiceLine(ctx, project, line, userID())
				if err != nil {
					return err
				}
				return printJSON(replaced)
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "project id")
	flags.bind(cmd)
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func invoiceRemoveCmd() *cobra.Command {
	var project, id string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a ledger line by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.RemoveInvoiceLine(ctx, project, id, userID())
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "project id")
	cmd.Flags().StringVar(&id, "id", "", "line id")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func invoiceRecordCmd() *cobra.Command {
	var project string
	var flags lineFlags
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a standalone invoice (used when billing.ledger_source is invoices)",
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := flags.line()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				inv, err := e.RecordInvoice(ctx, domain.Invoice{
					ID:            line.ID,
					Project:       project,
					Description:   line.Description,
					Amount:        line.Amount,
					BilledHours:   line.BilledHours,
					InvoicingDate: line.InvoicingDate,
					Paid:          line.Paid,
					Direction:     line.Direction,
				}, userID())
				if err != nil {
					return err
				}
				return printJSON(inv)
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "project id")
	flags.bind(cmd)
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Manage tasks"}
	var opts engine.TaskCreateOptions
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a task in a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = userID()
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
	create.Flags().StringVar(&opts.ID, "id", "", "task id (generated when empty)")
	create.Flags().StringVar(&opts.ProjectID, "project", "", "project id")
	create.Flags().StringVar(&opts.Title, "title", "", "title")
	_ = create.MarkFlagRequired("project")
	_ = create.MarkFlagRequired("title")
	task.AddCommand(create)
	return task
}

func objectiveCmd() *cobra.Command {
	obj := &cobra.Command{Use: "objective", Short: "Manage objectives"}
	obj.AddCommand(objectiveCreateCmd())
	obj.AddCommand(objectiveProgressCmd())
	obj.AddCommand(objectiveScratchCmd())
	obj.AddCommand(objectiveDeleteCmd())
	return obj
}

func objectiveCreateCmd() *cobra.Command {
	var opts engine.ObjectiveCreateOptions
	var level, date string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an objective",
		RunE: func(cmd *cobra.Command, args []string) error {
			when := time.Now().UTC()
			if date != "" {
				parsed, err := time.Parse(time.DateOnly, date)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
				when = parsed
			}
			opts.ObjectiveDate = when
			opts.Level = domain.Level(level)
			opts.ActorID = userID()
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				o, err := e.CreateObjective(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(o)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "objective id (generated when empty)")
	cmd.Flags().StringVar(&level, "level", string(domain.LevelDay), "day, month or year")
	cmd.Flags().StringVar(&date, "date", "", "objective date (YYYY-MM-DD, today when empty)")
	cmd.Flags().StringSliceVar(&opts.Owners, "owner", nil, "owner user id (repeatable, defaults to --user-id)")
	cmd.Flags().StringVar(&opts.RelatedTask, "task", "", "related task id")
	return cmd
}

func objectiveProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress ID VALUE",
		Short: "Set objective progress between 0 and 1",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			progress, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("progress must be a number: %w", err)
			}
			return updateObjective(cmd.Context(), engine.ObjectiveUpdateOptions{ID: args[0], Progress: &progress})
		},
	}
}

func objectiveScratchCmd() *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "scratch ID",
		Short: "Scratch an objective",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scratched := !undo
			return updateObjective(cmd.Context(), engine.ObjectiveUpdateOptions{ID: args[0], Scratched: &scratched})
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "unscratch instead")
	return cmd
}

func updateObjective(ctx context.Context, opts engine.ObjectiveUpdateOptions) error {
	opts.ActorID = userID()
	return withEngine(ctx, func(ctx context.Context, e engine.Engine) error {
		o, err := e.UpdateObjective(ctx, opts)
		if err != nil {
			return err
		}
		return printJSON(o)
	})
}

func objectiveDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Soft delete an objective",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				_, err := e.DeleteObjective(ctx, args[0], userID())
				return err
			})
		},
	}
}

func workCmd() *cobra.Command {
	work := &cobra.Command{Use: "work", Short: "Track work"}
	var spent time.Duration
	var id string
	logWork := &cobra.Command{
		Use:   "log OBJECTIVE_ID",
		Short: "Log time spent on an objective",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				entry, err := e.LogWork(ctx, engine.WorkLogOptions{
					ID:          id,
					ObjectiveID: args[0],
					Seconds:     int64(spent / time.Second),
					ActorID:     userID(),
				})
				if err != nil {
					return err
				}
				return printJSON(entry)
			})
		},
	}
	logWork.Flags().DurationVar(&spent, "duration", 0, "time spent, e.g. 1h30m")
	logWork.Flags().StringVar(&id, "id", "", "work entry id (generated when empty)")
	_ = logWork.MarkFlagRequired("duration")
	work.AddCommand(logWork)
	return work
}
