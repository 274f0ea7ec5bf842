package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	bookingserrors "fleetlink/internal/bookings/errors"
	"fleetlink/internal/bookings/repository"
	"fleetlink/internal/bookings/validator"
	"fleetlink/internal/events"
	vehicleserrors "fleetlink/internal/vehicles/errors"
	vehiclerepo "fleetlink/internal/vehicles/repository"
	"fleetlink/pkg/config"
	apperrors "fleetlink/pkg/errors"
	"fleetlink/pkg/model"
	"fleetlink/pkg/sanitizer"
	"fleetlink/pkg/trip"
)

type BookingService interface {
	Create(ctx context.Context, req *model.BookingRequest) (*model.BookingWithVehicle, error)
	GetByID(ctx context.Context, id string) (*model.BookingWithVehicle, error)
	GetAll(ctx context.Context, customerID string, limit int, offset int64) ([]*model.Booking, int64, error)
	Update(ctx context.Context, id string, updates *model.BookingUpdate) (*model.BookingWithVehicle, error)
	Cancel(ctx context.Context, id string, customerID string) (*model.BookingWithVehicle, error)
}

type bookingService struct {
	repo        repository.BookingRepository
	lockRepo    repository.BookingLockRepository
	vehicleRepo vehiclerepo.VehicleRepository
	validator   *validator.BookingValidator
	publisher   events.Publisher
	cfg         *config.Config
	now         func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.BookingLockRepository,
	vehicleRepo vehiclerepo.VehicleRepository,
	validator *validator.BookingValidator,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:        repo,
		lockRepo:    lockRepo,
		vehicleRepo: vehicleRepo,
		validator:   validator,
		publisher:   publisher,
		cfg:         cfg,
		now:         time.Now,
	}
}

func (s *bookingService) Create(ctx context.Context, req *model.BookingRequest) (*model.BookingWithVehicle, error) {
	s.sanitizeRequest(req)

	// Field presence comes first; an incomplete request must not surface a
	// not-found error for a vehicle it never named properly.
	if err := s.validator.ValidateRequest(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}

	vehicle, err := s.findVehicle(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}

	startTime, err := trip.ParseTimestamp(req.StartTime)
	if err != nil {
		return nil, err
	}

	window := trip.ComputeWindow(startTime, req.FromPincode, req.ToPincode)

	booking := &model.Booking{
		VehicleID:   vehicle.ID,
		FromPincode: req.FromPincode,
		ToPincode:   req.ToPincode,
		StartTime:   window.Start,
		EndTime:     window.End,
		CustomerID:  req.CustomerID,
	}

	if err := s.validate(booking); err != nil {
		return nil, err
	}

	// Acquire advisory lock to prevent race conditions
	lockID, err := s.acquireVehicleLock(ctx, booking.VehicleID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.releaseVehicleLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyNoOverlap(sessCtx, booking, ""); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking", "error", err)
		return nil, err
	}

	s.publisher.BookingCreated(ctx, booking)

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"vehicle_id", booking.VehicleID,
		"customer_id", booking.CustomerID,
		"start_time", booking.StartTime,
		"end_time", booking.EndTime,
	)

	return &model.BookingWithVehicle{Booking: *booking, Vehicle: vehicle}, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.BookingWithVehicle, error) {
	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.withVehicle(ctx, booking), nil
}

func (s *bookingService) GetAll(ctx context.Context, customerID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	customerID = sanitizer.NormalizeCustomerID(customerID)

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, customerID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, customerID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

func (s *bookingService) Update(ctx context.Context, id string, updates *model.BookingUpdate) (*model.BookingWithVehicle, error) {
	s.sanitizeUpdate(updates)

	existing, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(existing, updates.CustomerID); err != nil {
		return nil, err
	}

	if !existing.StartTime.After(s.now()) {
		return nil, apperrors.IllegalState("Cannot modify a booking whose start time has passed")
	}

	merged, err := s.mergeBookingUpdates(existing, updates)
	if err != nil {
		return nil, err
	}

	if err := s.validate(merged); err != nil {
		return nil, err
	}

	// Acquire advisory lock to prevent race conditions
	lockID, err := s.acquireVehicleLock(ctx, merged.VehicleID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.releaseVehicleLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyNoOverlap(sessCtx, merged, id); err != nil {
			return err
		}
		if _, err := s.repo.Update(sessCtx, id, merged); err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Booking", id)
			}
			return apperrors.Internal("Failed to update booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update booking", "id", id, "error", err)
		return nil, err
	}

	s.publisher.BookingUpdated(ctx, merged)

	s.cfg.Log.Info("Booking updated successfully",
		"id", id,
		"vehicle_id", merged.VehicleID,
		"start_time", merged.StartTime,
		"end_time", merged.EndTime,
	)

	return s.withVehicle(ctx, merged), nil
}

func (s *bookingService) Cancel(ctx context.Context, id string, customerID string) (*model.BookingWithVehicle, error) {
	customerID = sanitizer.NormalizeCustomerID(customerID)

	existing, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(existing, customerID); err != nil {
		return nil, err
	}

	if !existing.StartTime.After(s.now()) {
		return nil, apperrors.IllegalState("Cannot cancel a booking whose start time has passed")
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Delete(sessCtx, id); err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Booking", id)
			}
			if errors.Is(err, bookingserrors.ErrInvalidID) {
				return apperrors.InvalidInput("Invalid booking ID format")
			}
			return apperrors.Internal("Failed to cancel booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to cancel booking", "id", id, "error", err)
		return nil, err
	}

	s.publisher.BookingCancelled(ctx, existing)

	s.cfg.Log.Info("Booking cancelled successfully", "id", id, "customer_id", existing.CustomerID)

	return s.withVehicle(ctx, existing), nil
}

// --- Helpers ---

func (s *bookingService) sanitizeRequest(req *model.BookingRequest) {
	req.VehicleID = sanitizer.TrimAndNormalize(req.VehicleID)
	req.FromPincode = sanitizer.NormalizePincode(req.FromPincode)
	req.ToPincode = sanitizer.NormalizePincode(req.ToPincode)
	req.StartTime = sanitizer.TrimAndNormalize(req.StartTime)
	req.CustomerID = sanitizer.NormalizeCustomerID(req.CustomerID)
}

func (s *bookingService) sanitizeUpdate(updates *model.BookingUpdate) {
	updates.FromPincode = sanitizer.NormalizePincode(updates.FromPincode)
	updates.ToPincode = sanitizer.NormalizePincode(updates.ToPincode)
	updates.StartTime = sanitizer.TrimAndNormalize(updates.StartTime)
	updates.CustomerID = sanitizer.NormalizeCustomerID(updates.CustomerID)
}

func (s *bookingService) findVehicle(ctx context.Context, vehicleID string) (*model.Vehicle, error) {
	if vehicleID == "" {
		return nil, apperrors.InvalidInput("Vehicle ID cannot be empty")
	}

	vehicle, err := s.vehicleRepo.FindByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, vehicleserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Vehicle", vehicleID)
		}
		if errors.Is(err, vehicleserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid vehicle ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve vehicle", err)
	}

	return vehicle, nil
}

func (s *bookingService) findBooking(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

// authorize compares the caller's customer id against the booking owner.
// The assertion is optional: a request without a customer id skips the
// check. There is no account system behind it.
func (s *bookingService) authorize(booking *model.Booking, customerID string) error {
	if customerID == "" {
		return nil
	}
	if booking.CustomerID != customerID {
		return apperrors.Forbidden("Booking belongs to a different customer")
	}
	return nil
}

// mergeBookingUpdates applies the requested changes and rederives the window.
// The end time always comes from the estimator; clients cannot set it.
func (s *bookingService) mergeBookingUpdates(existing *model.Booking, updates *model.BookingUpdate) (*model.Booking, error) {
	merged := *existing

	if updates.FromPincode != "" {
		merged.FromPincode = updates.FromPincode
	}
	if updates.ToPincode != "" {
		merged.ToPincode = updates.ToPincode
	}

	startTime := merged.StartTime
	if updates.StartTime != "" {
		parsed, err := trip.ParseTimestamp(updates.StartTime)
		if err != nil {
			return nil, err
		}
		startTime = parsed
	}

	window := trip.ComputeWindow(startTime, merged.FromPincode, merged.ToPincode)
	merged.StartTime = window.Start
	merged.EndTime = window.End

	return &merged, nil
}

func (s *bookingService) validate(booking *model.Booking) error {
	if err := s.validator.Validate(booking); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *bookingService) verifyNoOverlap(ctx context.Context, booking *model.Booking, excludeID string) error {
	existing, err := s.repo.FindOverlapping(ctx, booking.VehicleID, booking.StartTime, booking.EndTime, excludeID)
	if err != nil {
		return apperrors.Internal("Failed to check existing bookings", err)
	}

	for _, b := range existing {
		if trip.Overlaps(b.StartTime, b.EndTime, booking.StartTime, booking.EndTime) {
			return apperrors.Conflict(fmt.Sprintf(
				"Vehicle is already booked for an overlapping window (%s - %s)",
				b.StartTime.Format(time.RFC3339),
				b.EndTime.Format(time.RFC3339),
			))
		}
	}
	return nil
}

func (s *bookingService) withVehicle(ctx context.Context, booking *model.Booking) *model.BookingWithVehicle {
	result := &model.BookingWithVehicle{Booking: *booking}

	vehicle, err := s.vehicleRepo.FindByID(ctx, booking.VehicleID)
	if err != nil {
		// The join is best effort; a missing vehicle does not hide the booking.
		s.cfg.Log.Warn("Failed to join vehicle for booking",
			"booking_id", booking.ID,
			"vehicle_id", booking.VehicleID,
			"error", err,
		)
		return result
	}

	result.Vehicle = vehicle
	return result
}

// acquireVehicleLock creates an advisory lock to prevent concurrent booking
// mutations for one vehicle. The key deliberately carries no window: two
// overlapping windows rarely share a start time, so a per-slot key would let
// both racing creates pass their overlap checks and double-book the vehicle.
// Returns the lock ID if successful, or conflict error if lock already exists
func (s *bookingService) acquireVehicleLock(ctx context.Context, vehicleID string) (string, error) {
	lockID := fmt.Sprintf("booking_lock_%s", vehicleID)

	lock := &model.BookingLock{
		ID:        lockID,
		ExpiresAt: time.Now().Add(s.cfg.BookingLockTTL),
	}

	_, err := s.lockRepo.Create(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("This vehicle is currently being booked by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire booking lock", err)
	}

	return lockID, nil
}

// releaseVehicleLock removes the advisory lock
func (s *bookingService) releaseVehicleLock(ctx context.Context, lockID string) error {
	return s.lockRepo.Delete(ctx, lockID)
}
