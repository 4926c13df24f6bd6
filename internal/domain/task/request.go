package task

import "time"

// TransportationRequest describes the pickup/delivery job a task was created
// from. Times are absolute datetimes; HardConstraints=false allows the
// auction to propose a start time outside the original pickup window.
type TransportationRequest struct {
	PickupLocation     string    `json:"pickup_location"`
	DeliveryLocation   string    `json:"delivery_location"`
	EarliestPickupTime time.Time `json:"earliest_pickup_time"`
	LatestPickupTime   time.Time `json:"latest_pickup_time"`
	HardConstraints    bool      `json:"hard_constraints"`
}
