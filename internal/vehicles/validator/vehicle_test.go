package validator

import (
	"testing"

	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"
)

func newTestValidator() *VehicleValidator {
	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})
	return NewVehicleValidator(log)
}

func TestVehicleValidator_Validate(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		vehicle model.Vehicle
		wantErr bool
	}{
		{
			name: "valid vehicle",
			vehicle: model.Vehicle{
				Name:       "Tata Ace",
				CapacityKg: 750,
				Tyres:      4,
			},
			wantErr: false,
		},
		{
			name: "missing name",
			vehicle: model.Vehicle{
				CapacityKg: 750,
				Tyres:      4,
			},
			wantErr: true,
		},
		{
			name: "name too short",
			vehicle: model.Vehicle{
				Name:       "X",
				CapacityKg: 750,
				Tyres:      4,
			},
			wantErr: true,
		},
		{
			name: "zero capacity",
			vehicle: model.Vehicle{
				Name:       "Tata Ace",
				CapacityKg: 0,
				Tyres:      4,
			},
			wantErr: true,
		},
		{
			name: "negative capacity",
			vehicle: model.Vehicle{
				Name:       "Tata Ace",
				CapacityKg: -10,
				Tyres:      4,
			},
			wantErr: true,
		},
		{
			name: "too few tyres",
			vehicle: model.Vehicle{
				Name:       "Tata Ace",
				CapacityKg: 750,
				Tyres:      1,
			},
			wantErr: true,
		},
		{
			name: "invalid id format",
			vehicle: model.Vehicle{
				ID:         "not-an-objectid",
				Name:       "Tata Ace",
				CapacityKg: 750,
				Tyres:      4,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.vehicle)
			if tt.wantErr && err == nil {
				t.Errorf("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}
