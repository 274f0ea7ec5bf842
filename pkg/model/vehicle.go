package model

import "time"

// Vehicle is immutable after registration; there are no update or delete
// operations, only creation and reads.
type Vehicle struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name       string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	CapacityKg float64   `json:"capacity_kg" bson:"capacity_kg" validate:"required,gt=0"`
	Tyres      int       `json:"tyres" bson:"tyres" validate:"required,min=2,max=24"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// AvailableVehicle annotates a vehicle with the estimated trip duration for
// the queried route. The annotation is response-only, never persisted.
type AvailableVehicle struct {
	Vehicle
	EstimatedRideDurationHours int `json:"estimated_ride_duration_hours" bson:"-"`
}
