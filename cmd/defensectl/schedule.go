package main

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/noah-isme/defense-scheduler-api/internal/dto"
	"github.com/noah-isme/defense-scheduler-api/internal/loader"
	"github.com/noah-isme/defense-scheduler-api/internal/service"
)

func newScheduleCmd(root *rootOptions) *cobra.Command {
	var (
		dir      string
		strategy string
		slot     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Compute a schedule from CSV availability files without persisting it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := root.load()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			if !cmd.Flags().Changed("dir") {
				dir = cfg.Loader.CSVDir
			}
			if !cmd.Flags().Changed("slot") {
				slot = cfg.Scheduler.SlotDuration
			}

			svc := service.NewDefenseSchedulerService(
				loader.NewCSVLoader(dir), nil, nil, nil, nil,
				validator.New(), logr,
				service.DefenseSchedulerConfig{Strategy: cfg.Scheduler.Strategy, SlotDuration: slot},
			)
			result, err := svc.Run(cmd.Context(), dto.RunScheduleQuery{Strategy: strategy, DryRun: true})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "./data", "directory holding estudiantes.csv, tribunales.csv and salas.csv")
	cmd.Flags().StringVar(&strategy, "strategy", "", "time_ordered or load_balanced (defaults to SCHEDULER_STRATEGY)")
	cmd.Flags().DurationVar(&slot, "slot", 40*time.Minute, "defense slot length")
	return cmd
}
