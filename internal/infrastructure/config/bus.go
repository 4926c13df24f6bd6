package config

// BusConfig selects the message bus carrying auction traffic
type BusConfig struct {
	// Bus type: "inproc" runs auctioneer and bidders in one process,
	// "redis" goes through a Redis pub/sub broker
	Type string `mapstructure:"type" validate:"required,oneof=inproc redis"`

	// Redis broker address (host:port), used when type is "redis"
	RedisAddr string `mapstructure:"redis_addr" validate:"required_if=Type redis"`
}
