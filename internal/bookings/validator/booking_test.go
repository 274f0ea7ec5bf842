package validator

import (
	"testing"
	"time"

	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"
)

func newTestValidator() *BookingValidator {
	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})
	return NewBookingValidator(log)
}

func validBooking() model.Booking {
	start := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	return model.Booking{
		VehicleID:   "659c1f77bcf86cd799439011",
		FromPincode: "110001",
		ToPincode:   "110010",
		StartTime:   start,
		EndTime:     start.Add(9 * time.Hour),
		CustomerID:  "customer-42",
	}
}

func TestBookingValidator_Validate(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		mutate  func(b *model.Booking)
		wantErr bool
	}{
		{
			name:    "valid booking",
			mutate:  func(b *model.Booking) {},
			wantErr: false,
		},
		{
			name:    "missing vehicle id",
			mutate:  func(b *model.Booking) { b.VehicleID = "" },
			wantErr: true,
		},
		{
			name:    "bad vehicle id format",
			mutate:  func(b *model.Booking) { b.VehicleID = "nope" },
			wantErr: true,
		},
		{
			name:    "missing from pincode",
			mutate:  func(b *model.Booking) { b.FromPincode = "" },
			wantErr: true,
		},
		{
			name:    "pincode with spaces",
			mutate:  func(b *model.Booking) { b.ToPincode = "110 010" },
			wantErr: true,
		},
		{
			name:    "alphanumeric pincode accepted",
			mutate:  func(b *model.Booking) { b.ToPincode = "SW1A-1AA" },
			wantErr: false,
		},
		{
			name:    "missing customer id",
			mutate:  func(b *model.Booking) { b.CustomerID = "" },
			wantErr: true,
		},
		{
			name: "end not after start",
			mutate: func(b *model.Booking) {
				b.EndTime = b.StartTime
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			booking := validBooking()
			tt.mutate(&booking)

			err := v.Validate(&booking)
			if tt.wantErr && err == nil {
				t.Errorf("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestBookingValidator_ValidatePincode(t *testing.T) {
	v := newTestValidator()

	if err := v.ValidatePincode("from_pincode", "110001"); err != nil {
		t.Errorf("unexpected error for numeric pincode: %v", err)
	}
	if err := v.ValidatePincode("from_pincode", "ABC"); err != nil {
		t.Errorf("unexpected error for alphabetic pincode: %v", err)
	}
	if err := v.ValidatePincode("from_pincode", ""); err == nil {
		t.Error("expected error for empty pincode")
	}
	if err := v.ValidatePincode("from_pincode", "way-too-long-pincode"); err == nil {
		t.Error("expected error for oversized pincode")
	}
}
