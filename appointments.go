package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/amirphl/telecall/app/dto"
	businessflow "github.com/amirphl/telecall/business_flow"
	"github.com/amirphl/telecall/repository"
	"github.com/amirphl/telecall/utils"
	"github.com/spf13/cobra"
)

func newAppointmentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "appointments",
		Short: "Administer the appointment id allocator",
	}

	var (
		year int
		yes  bool
	)

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Reset a year's counter to the baseline and clear the recycled pool",
		Long: `Reset puts the counter for the given (or current) year back to its baseline, so the
next id issued is <YY>-10000001, and empties the recycled pool for every year. Ids held by
existing records are not touched; allocating them again will fail with a conflict.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			return withAdminFlow(func(ctx context.Context, flow businessflow.AdminAppointmentFlow) error {
				req := &dto.ResetAppointmentAllocatorRequest{Year: yearFlag(cmd, year)}
				metadata := businessflow.NewClientMetadata("cli", "telecall appointments reset")
				resp, err := flow.Reset(ctx, req, metadata)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	reset.Flags().IntVar(&year, "year", 0, "Year to reset (defaults to the current year)")
	reset.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show a year's counter and the recycled pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdminFlow(func(ctx context.Context, flow businessflow.AdminAppointmentFlow) error {
				resp, err := flow.Status(ctx, yearFlag(cmd, year))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	status.Flags().IntVar(&year, "year", 0, "Year to inspect (defaults to the current year)")

	cmd.AddCommand(reset, status)
	return cmd
}

func withAdminFlow(fn func(ctx context.Context, flow businessflow.AdminAppointmentFlow) error) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	db, rc, stores, err := rt.openStores()
	if err != nil {
		return err
	}
	defer closeDatabase(db)
	if rc != nil {
		defer rc.Close()
	}

	flow := businessflow.NewAdminAppointmentFlow(
		stores.counters,
		stores.pool,
		stores.resetter,
		repository.NewAuditLogRepository(db),
		stores.name,
		rt.cfg.Appointment.Timezone,
		rt.logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), utils.RequestTimeout)
	defer cancel()
	return fn(ctx, flow)
}

func yearFlag(cmd *cobra.Command, year int) *int {
	if !cmd.Flags().Changed("year") {
		return nil
	}
	return &year
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
