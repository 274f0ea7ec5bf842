package service

import (
	"context"
	"math"

	bookingrepo "fleetlink/internal/bookings/repository"
	bookingvalidator "fleetlink/internal/bookings/validator"
	vehiclerepo "fleetlink/internal/vehicles/repository"
	"fleetlink/pkg/config"
	apperrors "fleetlink/pkg/errors"
	"fleetlink/pkg/model"
	"fleetlink/pkg/sanitizer"
	"fleetlink/pkg/trip"
)

// SearchResult is the availability response: the route estimate plus every
// vehicle free for the whole window.
type SearchResult struct {
	EstimatedRideDurationHours int                      `json:"estimated_ride_duration_hours"`
	Vehicles                   []model.AvailableVehicle `json:"vehicles"`
}

type AvailabilityService interface {
	FindAvailable(ctx context.Context, capacityRequiredKg float64, fromPincode, toPincode, startTime string) (*SearchResult, error)
}

type availabilityService struct {
	bookingRepo bookingrepo.BookingRepository
	vehicleRepo vehiclerepo.VehicleRepository
	validator   *bookingvalidator.BookingValidator
	cfg         *config.Config
}

func NewAvailabilityService(
	bookingRepo bookingrepo.BookingRepository,
	vehicleRepo vehiclerepo.VehicleRepository,
	validator *bookingvalidator.BookingValidator,
	cfg *config.Config,
) AvailabilityService {
	return &availabilityService{
		bookingRepo: bookingRepo,
		vehicleRepo: vehicleRepo,
		validator:   validator,
		cfg:         cfg,
	}
}

// FindAvailable computes the requested window, collects the vehicles holding
// any booking that intersects it, and returns the complement filtered by
// capacity. A vehicle with a booking anywhere inside the window is excluded
// entirely; there is no partial availability.
func (s *availabilityService) FindAvailable(ctx context.Context, capacityRequiredKg float64, fromPincode, toPincode, startTime string) (*SearchResult, error) {
	fromPincode = sanitizer.NormalizePincode(fromPincode)
	toPincode = sanitizer.NormalizePincode(toPincode)

	if capacityRequiredKg < 0 || math.IsNaN(capacityRequiredKg) || math.IsInf(capacityRequiredKg, 0) {
		return nil, apperrors.InvalidInput("capacity_required must be a non-negative number")
	}
	if err := s.validator.ValidatePincode("from_pincode", fromPincode); err != nil {
		return nil, apperrors.Validation("Invalid search input", map[string]any{"error": err.Error()})
	}
	if err := s.validator.ValidatePincode("to_pincode", toPincode); err != nil {
		return nil, apperrors.Validation("Invalid search input", map[string]any{"error": err.Error()})
	}

	start, err := trip.ParseTimestamp(startTime)
	if err != nil {
		return nil, err
	}

	window := trip.ComputeWindow(start, fromPincode, toPincode)

	conflicting, err := s.bookingRepo.DistinctConflictingVehicleIDs(ctx, window.Start, window.End)
	if err != nil {
		s.cfg.Log.Error("Failed to find conflicting vehicles", "error", err)
		return nil, apperrors.Internal("Failed to search availability", err)
	}

	vehicles, err := s.vehicleRepo.FindAvailable(ctx, capacityRequiredKg, conflicting)
	if err != nil {
		s.cfg.Log.Error("Failed to find available vehicles", "error", err)
		return nil, apperrors.Internal("Failed to search availability", err)
	}

	available := make([]model.AvailableVehicle, 0, len(vehicles))
	for _, v := range vehicles {
		available = append(available, model.AvailableVehicle{
			Vehicle:                    *v,
			EstimatedRideDurationHours: window.Hours,
		})
	}

	s.cfg.Log.Debug("Availability search completed",
		"from_pincode", fromPincode,
		"to_pincode", toPincode,
		"window_start", window.Start,
		"window_end", window.End,
		"available", len(available),
		"excluded", len(conflicting),
	)

	return &SearchResult{
		EstimatedRideDurationHours: window.Hours,
		Vehicles:                   available,
	}, nil
}
