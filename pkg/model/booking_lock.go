package model

import "time"

// BookingLock is an advisory lock taken while a booking create/update runs
// its overlap check. Its _id encodes the vehicle, so a racing mutation for
// the same vehicle fails with a duplicate key error at the store.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
