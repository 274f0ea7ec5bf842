package model

import "time"

// Booking reserves one vehicle for the half-open window [StartTime, EndTime).
// EndTime is always derived from the route estimate, never client-supplied.
type Booking struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	VehicleID   string    `json:"vehicle_id" bson:"vehicle_id" validate:"required,mongodb"`
	FromPincode string    `json:"from_pincode" bson:"from_pincode" validate:"required,pincode"`
	ToPincode   string    `json:"to_pincode" bson:"to_pincode" validate:"required,pincode"`
	StartTime   time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	CustomerID  string    `json:"customer_id" bson:"customer_id" validate:"required,min=1,max=64"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty" validate:"omitempty"`
}

// BookingRequest is the create payload. StartTime stays a string so the
// service can reject naive timestamps with a typed validation error instead
// of a JSON decode failure.
type BookingRequest struct {
	VehicleID   string `json:"vehicle_id" validate:"required,mongodb"`
	FromPincode string `json:"from_pincode" validate:"required,pincode"`
	ToPincode   string `json:"to_pincode" validate:"required,pincode"`
	StartTime   string `json:"start_time" validate:"required"`
	CustomerID  string `json:"customer_id" validate:"required,min=1,max=64"`
}

// BookingUpdate carries the mutable booking fields. CustomerID, when set, is
// an ownership assertion checked against the stored booking, not a new owner.
type BookingUpdate struct {
	FromPincode string `json:"from_pincode,omitempty"`
	ToPincode   string `json:"to_pincode,omitempty"`
	StartTime   string `json:"start_time,omitempty"`
	CustomerID  string `json:"customer_id,omitempty"`
}

// BookingWithVehicle is a read-time join; the vehicle is looked up per
// request and never embedded in the stored booking document.
type BookingWithVehicle struct {
	Booking
	Vehicle *Vehicle `json:"vehicle,omitempty" bson:"-"`
}
