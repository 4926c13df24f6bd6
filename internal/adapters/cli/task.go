package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/mrta-go/internal/adapters/persistence"
	"github.com/andrescamacho/mrta-go/internal/domain/task"
	"github.com/andrescamacho/mrta-go/internal/infrastructure/config"
	"github.com/andrescamacho/mrta-go/internal/infrastructure/database"
)

// NewTaskCommand creates the task command with subcommands
func NewTaskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Submit and inspect transportation tasks",
	}

	cmd.AddCommand(newTaskSubmitCommand())
	cmd.AddCommand(newTaskListCommand())

	return cmd
}

// newTaskSubmitCommand creates the task submit subcommand
func newTaskSubmitCommand() *cobra.Command {
	var (
		pickup   string
		delivery string
		earliest string
		latest   string
		soft     bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a transportation task for allocation",
		Long: `Save a transportation task as UNALLOCATED; a running daemon
picks it up on its next tick and auctions it.

Times are RFC 3339 and bound the pickup: the robot must start the task
within [earliest, latest].

Example:
  mrta task submit --pickup AMK_D_L-1 --delivery AMK_B_L-1 \
      --earliest 2026-08-25T10:00:00Z --latest 2026-08-25T10:03:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			earliestTime, err := time.Parse(time.RFC3339, earliest)
			if err != nil {
				return fmt.Errorf("invalid --earliest: %w", err)
			}
			latestTime, err := time.Parse(time.RFC3339, latest)
			if err != nil {
				return fmt.Errorf("invalid --latest: %w", err)
			}
			if latestTime.Before(earliestTime) {
				return fmt.Errorf("--latest must not be before --earliest")
			}

			t := task.FromRequest(task.TransportationRequest{
				PickupLocation:     pickup,
				DeliveryLocation:   delivery,
				EarliestPickupTime: earliestTime,
				LatestPickupTime:   latestTime,
				HardConstraints:    !soft,
			})

			cfg := config.MustLoadConfig(configPath)
			db, err := database.NewConnection(&cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.Close(db)
			if err := database.AutoMigrate(db); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			repo := persistence.NewGormTaskRepository(db)
			if err := repo.Save(cmd.Context(), t); err != nil {
				return fmt.Errorf("failed to save task: %w", err)
			}

			fmt.Printf("Task %s submitted\n", t.TaskID)
			fmt.Printf("  Pickup:   %s at [%s, %s]\n", pickup,
				earliestTime.Format(time.RFC3339), latestTime.Format(time.RFC3339))
			fmt.Printf("  Delivery: %s\n", delivery)
			return nil
		},
	}

	cmd.Flags().StringVar(&pickup, "pickup", "", "Pickup location")
	cmd.Flags().StringVar(&delivery, "delivery", "", "Delivery location")
	cmd.Flags().StringVar(&earliest, "earliest", "", "Earliest pickup time (RFC 3339)")
	cmd.Flags().StringVar(&latest, "latest", "", "Latest pickup time (RFC 3339)")
	cmd.Flags().BoolVar(&soft, "soft", false, "Allow allocation outside the pickup window")
	_ = cmd.MarkFlagRequired("pickup")
	_ = cmd.MarkFlagRequired("delivery")
	_ = cmd.MarkFlagRequired("earliest")
	_ = cmd.MarkFlagRequired("latest")

	return cmd
}

// newTaskListCommand creates the task list subcommand
func newTaskListCommand() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.MustLoadConfig(configPath)
			db, err := database.NewConnection(&cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.Close(db)
			if err := database.AutoMigrate(db); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			repo := persistence.NewGormTaskRepository(db)
			tasks, err := repo.ListByStatus(cmd.Context(), task.Status(status))
			if err != nil {
				return err
			}

			if len(tasks) == 0 {
				fmt.Printf("No %s tasks\n", status)
				return nil
			}
			for _, t := range tasks {
				robots := "-"
				if len(t.AssignedRobots) > 0 {
					robots = fmt.Sprintf("%v", t.AssignedRobots)
				}
				fmt.Printf("%s  %s -> %s  robots=%s\n",
					t.TaskID, t.Request.PickupLocation, t.Request.DeliveryLocation, robots)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", string(task.StatusUnallocated),
		"Task status to list (UNALLOCATED or ALLOCATED)")

	return cmd
}
