package config

import "time"

// DaemonConfig holds daemon loop configuration
type DaemonConfig struct {
	// How often the daemon ticks the auctioneer and bidders
	TickInterval time.Duration `mapstructure:"tick_interval" validate:"required"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required"`

	// PID file enforcing a single daemon instance; empty disables the check
	PIDFile string `mapstructure:"pid_file"`
}
