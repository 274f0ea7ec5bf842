package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleetlink/internal/events"
	vehicleserrors "fleetlink/internal/vehicles/errors"
	"fleetlink/internal/vehicles/validator"
	"fleetlink/pkg/config"
	apperrors "fleetlink/pkg/errors"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"
)

// ────────────────────────────────────────────────
// Mock repository for testing
// ────────────────────────────────────────────────

type mockVehicleRepository struct {
	createFunc        func(ctx context.Context, vehicle *model.Vehicle) error
	findByIDFunc      func(ctx context.Context, id string) (*model.Vehicle, error)
	findAllFunc       func(ctx context.Context, limit int, offset int64) ([]*model.Vehicle, error)
	findAvailableFunc func(ctx context.Context, minCapacityKg float64, excludeIDs []string) ([]*model.Vehicle, error)
	countFunc         func(ctx context.Context) (int64, error)
}

func (m *mockVehicleRepository) Create(ctx context.Context, vehicle *model.Vehicle) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, vehicle)
	}
	vehicle.ID = "659c1f77bcf86cd799439011"
	return nil
}

func (m *mockVehicleRepository) FindByID(ctx context.Context, id string) (*model.Vehicle, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, vehicleserrors.ErrNotFound
}

func (m *mockVehicleRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Vehicle, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, limit, offset)
	}
	return []*model.Vehicle{}, nil
}

func (m *mockVehicleRepository) FindAvailable(ctx context.Context, minCapacityKg float64, excludeIDs []string) ([]*model.Vehicle, error) {
	if m.findAvailableFunc != nil {
		return m.findAvailableFunc(ctx, minCapacityKg, excludeIDs)
	}
	return []*model.Vehicle{}, nil
}

func (m *mockVehicleRepository) Count(ctx context.Context) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return 0, nil
}

func newTestConfig() *config.Config {
	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})
	return &config.Config{
		Log:          log,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

func newTestService(repo *mockVehicleRepository) VehicleService {
	cfg := newTestConfig()
	return NewVehicleService(repo, validator.NewVehicleValidator(cfg.Log), events.NewNoopPublisher(), cfg)
}

// ────────────────────────────────────────────────
// Tests
// ────────────────────────────────────────────────

func TestCreate_Valid(t *testing.T) {
	svc := newTestService(&mockVehicleRepository{})

	vehicle := &model.Vehicle{
		Name:       "  Tata Ace  ",
		CapacityKg: 750,
		Tyres:      4,
	}

	if err := svc.Create(context.Background(), vehicle); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if vehicle.ID == "" {
		t.Error("expected vehicle ID to be assigned")
	}
	if vehicle.Name != "Tata Ace" {
		t.Errorf("expected sanitized name %q, got %q", "Tata Ace", vehicle.Name)
	}
}

func TestCreate_ValidationFailure(t *testing.T) {
	svc := newTestService(&mockVehicleRepository{
		createFunc: func(ctx context.Context, vehicle *model.Vehicle) error {
			t.Fatal("repository should not be called when validation fails")
			return nil
		},
	})

	vehicle := &model.Vehicle{
		Name:       "Tata Ace",
		CapacityKg: -5,
		Tyres:      4,
	}

	err := svc.Create(context.Background(), vehicle)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}

	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestCreate_RepositoryFailure(t *testing.T) {
	svc := newTestService(&mockVehicleRepository{
		createFunc: func(ctx context.Context, vehicle *model.Vehicle) error {
			return errors.New("connection reset")
		},
	})

	vehicle := &model.Vehicle{
		Name:       "Tata Ace",
		CapacityKg: 750,
		Tyres:      4,
	}

	err := svc.Create(context.Background(), vehicle)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != "INTERNAL_ERROR" {
		t.Errorf("expected INTERNAL_ERROR, got %v", err)
	}
}

func TestGetByID(t *testing.T) {
	stored := &model.Vehicle{
		ID:         "659c1f77bcf86cd799439011",
		Name:       "Tata Ace",
		CapacityKg: 750,
		Tyres:      4,
	}

	svc := newTestService(&mockVehicleRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Vehicle, error) {
			if id == stored.ID {
				return stored, nil
			}
			return nil, vehicleserrors.ErrNotFound
		},
	})

	vehicle, err := svc.GetByID(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vehicle.Name != stored.Name {
		t.Errorf("expected name %q, got %q", stored.Name, vehicle.Name)
	}

	_, err = svc.GetByID(context.Background(), "659c1f77bcf86cd799439099")
	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}

	_, err = svc.GetByID(context.Background(), "")
	appErr = apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != "INVALID_INPUT" {
		t.Errorf("expected INVALID_INPUT for empty id, got %v", err)
	}
}

func TestGetAll_ConcurrentAccess(t *testing.T) {
	svc := newTestService(&mockVehicleRepository{
		countFunc: func(ctx context.Context) (int64, error) {
			time.Sleep(10 * time.Millisecond)
			return 42, nil
		},
		findAllFunc: func(ctx context.Context, limit int, offset int64) ([]*model.Vehicle, error) {
			time.Sleep(10 * time.Millisecond)
			return []*model.Vehicle{
				{ID: "659c1f77bcf86cd799439011", Name: "Tata Ace"},
				{ID: "659c1f77bcf86cd799439012", Name: "Eicher Pro"},
			}, nil
		},
	})

	for i := 0; i < 10; i++ {
		vehicles, count, err := svc.GetAll(context.Background(), 10, 0)
		if err != nil {
			t.Fatalf("iteration %d: unexpected error: %v", i, err)
		}
		if count != 42 {
			t.Errorf("iteration %d: expected count 42, got %d", i, count)
		}
		if len(vehicles) != 2 {
			t.Errorf("iteration %d: expected 2 vehicles, got %d", i, len(vehicles))
		}
	}
}
