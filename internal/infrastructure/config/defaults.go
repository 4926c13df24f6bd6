package config

import "time"

// SetDefaults sets default values for all configuration fields
func SetDefaults(cfg *Config) {
	// Database defaults
	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "mrta"
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "mrta"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "mrta.db"
	}
	if cfg.Database.Pool.MaxOpen == 0 {
		cfg.Database.Pool.MaxOpen = 25
	}
	if cfg.Database.Pool.MaxIdle == 0 {
		cfg.Database.Pool.MaxIdle = 5
	}
	if cfg.Database.Pool.MaxLifetime == 0 {
		cfg.Database.Pool.MaxLifetime = 5 * time.Minute
	}

	// Allocation defaults
	if cfg.Allocation.Method == "" {
		cfg.Allocation.Method = "tessi"
	}
	if cfg.Allocation.RoundTime == 0 {
		cfg.Allocation.RoundTime = 5 * time.Second
	}
	if cfg.Allocation.STPSolver == "" {
		cfg.Allocation.STPSolver = "fpc"
	}
	if cfg.Allocation.BiddingRule.Robustness == "" {
		cfg.Allocation.BiddingRule.Robustness = cfg.Allocation.STPSolver
	}
	if cfg.Allocation.BiddingRule.Temporal == "" {
		cfg.Allocation.BiddingRule.Temporal = "completion_time"
	}

	// Fleet defaults
	if len(cfg.Fleet.RobotIDs) == 0 {
		cfg.Fleet.RobotIDs = []string{"robot_001"}
	}

	// Bus defaults
	if cfg.Bus.Type == "" {
		cfg.Bus.Type = "inproc"
	}
	if cfg.Bus.RedisAddr == "" {
		cfg.Bus.RedisAddr = "localhost:6379"
	}

	// Daemon defaults
	if cfg.Daemon.TickInterval == 0 {
		cfg.Daemon.TickInterval = 500 * time.Millisecond
	}
	if cfg.Daemon.ShutdownTimeout == 0 {
		cfg.Daemon.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Daemon.PIDFile == "" {
		cfg.Daemon.PIDFile = "/tmp/mrta-daemon.pid"
	}

	// Metrics defaults
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9464
	}
	if cfg.Metrics.Host == "" {
		cfg.Metrics.Host = "localhost"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}
