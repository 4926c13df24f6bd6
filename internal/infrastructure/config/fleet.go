package config

// FleetConfig lists the robots taking part in the auction
type FleetConfig struct {
	// Robot identifiers; the numeric suffix after the last underscore is
	// used to break ties between equal bids (e.g. "robot_001")
	RobotIDs []string `mapstructure:"robot_ids" validate:"required,min=1,dive,required"`
}
