package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/mrta-go/internal/infrastructure/config"
)

// NewConfigCommand creates the config command with subcommands
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage MRTA configuration settings.

Configuration is loaded from multiple sources with priority:
1. Environment variables (MRTA_* prefix)
2. Config file (config.yaml)
3. Default values

Example:
  mrta config show`,
	}

	cmd.AddCommand(newConfigShowCommand())

	return cmd
}

// newConfigShowCommand creates the config show subcommand
func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				fmt.Printf("Warning: Failed to load config: %v\n", err)
				fmt.Println("Using default configuration.")
				cfg = config.LoadConfigOrDefault(configPath)
			}

			fmt.Println("MRTA Configuration")
			fmt.Println("==================")

			fmt.Println("Database:")
			fmt.Printf("  Type:             %s\n", cfg.Database.Type)
			if cfg.Database.Type == "sqlite" {
				fmt.Printf("  Path:             %s\n", cfg.Database.Path)
			} else if cfg.Database.URL != "" {
				fmt.Printf("  URL:              %s\n", maskPassword(cfg.Database.URL))
			} else {
				fmt.Printf("  Host:             %s\n", cfg.Database.Host)
				fmt.Printf("  Port:             %d\n", cfg.Database.Port)
				fmt.Printf("  Database:         %s\n", cfg.Database.Name)
				fmt.Printf("  User:             %s\n", cfg.Database.User)
			}

			fmt.Println("\nAllocation:")
			fmt.Printf("  Method:           %s\n", cfg.Allocation.Method)
			fmt.Printf("  Round Time:       %s\n", cfg.Allocation.RoundTime)
			fmt.Printf("  STP Solver:       %s\n", cfg.Allocation.STPSolver)
			fmt.Printf("  Bidding Rule:     %s + %s\n",
				cfg.Allocation.BiddingRule.Robustness, cfg.Allocation.BiddingRule.Temporal)
			fmt.Printf("  Alt. Timeslots:   %t\n", cfg.Allocation.AlternativeTimeslots)

			fmt.Println("\nFleet:")
			fmt.Printf("  Robots:           %s\n", strings.Join(cfg.Fleet.RobotIDs, ", "))

			fmt.Println("\nBus:")
			fmt.Printf("  Type:             %s\n", cfg.Bus.Type)
			if cfg.Bus.Type == "redis" {
				fmt.Printf("  Redis:            %s\n", cfg.Bus.RedisAddr)
			}

			fmt.Println("\nDaemon:")
			fmt.Printf("  Tick Interval:    %s\n", cfg.Daemon.TickInterval)
			fmt.Printf("  Shutdown Timeout: %s\n", cfg.Daemon.ShutdownTimeout)
			fmt.Printf("  PID File:         %s\n", cfg.Daemon.PIDFile)

			fmt.Println("\nMetrics:")
			fmt.Printf("  Enabled:          %t\n", cfg.Metrics.Enabled)
			if cfg.Metrics.Enabled {
				fmt.Printf("  Endpoint:         http://%s:%d%s\n",
					cfg.Metrics.Host, cfg.Metrics.Port, cfg.Metrics.Path)
			}

			return nil
		},
	}
}

// maskPassword masks the password component of a connection URL for display
func maskPassword(url string) string {
	at := strings.LastIndex(url, "@")
	if at == -1 {
		return url
	}
	scheme := strings.Index(url, "://")
	if scheme == -1 {
		return url
	}
	creds := url[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon != -1 {
		return url[:scheme+3] + creds[:colon] + ":****" + url[at:]
	}
	return url
}
