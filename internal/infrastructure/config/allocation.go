package config

import "time"

// AllocationConfig holds auction behaviour configuration
type AllocationConfig struct {
	// Allocation method; only the TeSSI auction family is implemented
	Method string `mapstructure:"method" validate:"required,oneof=tessi tessi-srea tessi-dsc"`

	// How long a round stays open for bids
	RoundTime time.Duration `mapstructure:"round_time" validate:"required"`

	// Offer alternative timeslots when every robot no-bids a task
	AlternativeTimeslots bool `mapstructure:"alternative_timeslots"`

	// STP solver backing the timetables
	STPSolver string `mapstructure:"stp_solver" validate:"required,oneof=fpc srea dsc"`

	// Bidding rule: how bids are scored
	BiddingRule BiddingRuleConfig `mapstructure:"bidding_rule"`
}

// BiddingRuleConfig selects the robustness and temporal components of the
// bid cost.
type BiddingRuleConfig struct {
	Robustness string `mapstructure:"robustness" validate:"required,oneof=fpc srea dsc"`
	Temporal   string `mapstructure:"temporal" validate:"required,oneof=completion_time makespan idle_time"`
}
