package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	bookingserrors "fleetlink/internal/bookings/errors"
	"fleetlink/internal/bookings/validator"
	"fleetlink/internal/events"
	vehicleserrors "fleetlink/internal/vehicles/errors"
	"fleetlink/pkg/config"
	mongotx "fleetlink/pkg/db/mongo"
	apperrors "fleetlink/pkg/errors"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"
)

// ────────────────────────────────────────────────
// Mocks
// ────────────────────────────────────────────────

// fakeSessionContext satisfies mongo.SessionContext for transaction mocks.
// The embedded Session is never touched by the code under test.
type fakeSessionContext struct {
	context.Context
	mongo.Session
}

type memBookingRepository struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
	nextID   int
}

func newMemBookingRepository() *memBookingRepository {
	return &memBookingRepository{bookings: map[string]*model.Booking{}}
}

func (m *memBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	booking.ID = objectIDLike(m.nextID)
	booking.CreatedAt = time.Now().UTC()
	stored := *booking
	m.bookings[booking.ID] = &stored
	return nil
}

func (m *memBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *memBookingRepository) FindAll(ctx context.Context, customerID string, limit int, offset int64) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.bookings {
		if customerID == "" || b.CustomerID == customerID {
			copied := *b
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memBookingRepository) FindOverlapping(ctx context.Context, vehicleID string, start, end time.Time, excludeID string) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.VehicleID != vehicleID || b.ID == excludeID {
			continue
		}
		if b.StartTime.Before(end) && b.EndTime.After(start) {
			copied := *b
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memBookingRepository) DistinctConflictingVehicleIDs(ctx context.Context, start, end time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var ids []string
	for _, b := range m.bookings {
		if b.StartTime.Before(end) && b.EndTime.After(start) && !seen[b.VehicleID] {
			seen[b.VehicleID] = true
			ids = append(ids, b.VehicleID)
		}
	}
	return ids, nil
}

func (m *memBookingRepository) Update(ctx context.Context, id string, booking *model.Booking) (*mongo.UpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	existing.FromPincode = booking.FromPincode
	existing.ToPincode = booking.ToPincode
	existing.StartTime = booking.StartTime
	existing.EndTime = booking.EndTime
	existing.UpdatedAt = time.Now().UTC()
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (m *memBookingRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[id]; !ok {
		return bookingserrors.ErrNotFound
	}
	delete(m.bookings, id)
	return nil
}

func (m *memBookingRepository) Count(ctx context.Context, customerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, b := range m.bookings {
		if customerID == "" || b.CustomerID == customerID {
			count++
		}
	}
	return count, nil
}

func (m *memBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(fakeSessionContext{Context: ctx})
}

type memLockRepository struct {
	mu    sync.Mutex
	locks map[string]bool
}

func newMemLockRepository() *memLockRepository {
	return &memLockRepository{locks: map[string]bool{}}
}

func (m *memLockRepository) Create(ctx context.Context, lock *model.BookingLock) (*model.BookingLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[lock.ID] {
		return nil, mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
	}
	m.locks[lock.ID] = true
	return lock, nil
}

func (m *memLockRepository) Delete(ctx context.Context, lockID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, lockID)
	return nil
}

type stubVehicleRepository struct {
	vehicles map[string]*model.Vehicle
}

func (m *stubVehicleRepository) Create(ctx context.Context, vehicle *model.Vehicle) error {
	return nil
}

func (m *stubVehicleRepository) FindByID(ctx context.Context, id string) (*model.Vehicle, error) {
	if v, ok := m.vehicles[id]; ok {
		return v, nil
	}
	return nil, vehicleserrors.ErrNotFound
}

func (m *stubVehicleRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Vehicle, error) {
	return nil, nil
}

func (m *stubVehicleRepository) FindAvailable(ctx context.Context, minCapacityKg float64, excludeIDs []string) ([]*model.Vehicle, error) {
	return nil, nil
}

func (m *stubVehicleRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(m.vehicles)), nil
}

// ────────────────────────────────────────────────
// Fixtures
// ────────────────────────────────────────────────

const (
	testVehicleID = "659c1f77bcf86cd799439011"
)

func objectIDLike(n int) string {
	// 24 hex chars, distinct per n
	const base = "b00c1f77bcf86cd79943"
	return base + string([]byte{
		hexDigit(n / 16 / 16 / 16 % 16),
		hexDigit(n / 16 / 16 % 16),
		hexDigit(n / 16 % 16),
		hexDigit(n % 16),
	})
}

func hexDigit(n int) byte {
	return "0123456789abcdef"[n]
}

type testHarness struct {
	svc      BookingService
	bookings *memBookingRepository
	locks    *memLockRepository
	now      time.Time
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})
	cfg := &config.Config{
		Log:            log,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		BookingLockTTL: 10 * time.Second,
	}

	bookings := newMemBookingRepository()
	locks := newMemLockRepository()
	vehicles := &stubVehicleRepository{
		vehicles: map[string]*model.Vehicle{
			testVehicleID: {
				ID:         testVehicleID,
				Name:       "Tata Ace",
				CapacityKg: 750,
				Tyres:      4,
			},
		},
	}

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	svc := NewBookingService(
		bookings,
		locks,
		vehicles,
		validator.NewBookingValidator(log),
		events.NewNoopPublisher(),
		cfg,
	).(*bookingService)
	svc.now = func() time.Time { return now }

	return &testHarness{svc: svc, bookings: bookings, locks: locks, now: now}
}

func (h *testHarness) createBooking(t *testing.T, startTime string) *model.BookingWithVehicle {
	t.Helper()
	created, err := h.svc.Create(context.Background(), &model.BookingRequest{
		VehicleID:   testVehicleID,
		FromPincode: "110001",
		ToPincode:   "110010",
		StartTime:   startTime,
		CustomerID:  "customer-1",
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	return created
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	appErr := apperrors.AsAppError(err)
	if appErr == nil {
		t.Fatalf("expected AppError with code %s, got %v", code, err)
	}
	if appErr.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, appErr.Code, err)
	}
}

// ────────────────────────────────────────────────
// Create
// ────────────────────────────────────────────────

func TestCreate_WindowDerivedFromRoute(t *testing.T) {
	h := newTestHarness(t)

	created := h.createBooking(t, "2026-09-07T10:00:00Z")

	// |110001-110010| mod 24 = 9 hours
	wantEnd := time.Date(2026, 9, 7, 19, 0, 0, 0, time.UTC)
	if !created.EndTime.Equal(wantEnd) {
		t.Errorf("expected end time %v, got %v", wantEnd, created.EndTime)
	}
	if created.Vehicle == nil || created.Vehicle.ID != testVehicleID {
		t.Error("expected joined vehicle on created booking")
	}
}

func TestCreate_SameRouteFloorsToOneHour(t *testing.T) {
	h := newTestHarness(t)

	created, err := h.svc.Create(context.Background(), &model.BookingRequest{
		VehicleID:   testVehicleID,
		FromPincode: "110001",
		ToPincode:   "110001",
		StartTime:   "2026-09-07T10:00:00Z",
		CustomerID:  "customer-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := created.EndTime.Sub(created.StartTime); got != time.Hour {
		t.Errorf("expected 1 hour window for identical pincodes, got %v", got)
	}
}

func TestCreate_ConflictingWindowRejected(t *testing.T) {
	h := newTestHarness(t)

	h.createBooking(t, "2026-09-07T10:00:00Z")

	// Same vehicle, same window
	_, err := h.svc.Create(context.Background(), &model.BookingRequest{
		VehicleID:   testVehicleID,
		FromPincode: "110001",
		ToPincode:   "110010",
		StartTime:   "2026-09-07T10:00:00Z",
		CustomerID:  "customer-2",
	})
	assertCode(t, err, "CONFLICT")
}

func TestCreate_BackToBackWindowsAllowed(t *testing.T) {
	h := newTestHarness(t)

	h.createBooking(t, "2026-09-07T10:00:00Z")

	// Previous window is [10:00, 19:00); starting exactly at 19:00 is legal.
	_, err := h.svc.Create(context.Background(), &model.BookingRequest{
		VehicleID:   testVehicleID,
		FromPincode: "110001",
		ToPincode:   "110010",
		StartTime:   "2026-09-07T19:00:00Z",
		CustomerID:  "customer-2",
	})
	if err != nil {
		t.Fatalf("expected back-to-back booking to succeed, got %v", err)
	}
}

func TestCreate_UnknownVehicle(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.svc.Create(context.Background(), &model.BookingRequest{
		VehicleID:   "659c1f77bcf86cd799439099",
		FromPincode: "110001",
		ToPincode:   "110010",
		StartTime:   "2026-09-07T10:00:00Z",
		CustomerID:  "customer-1",
	})
	assertCode(t, err, "NOT_FOUND")
}

func TestCreate_NaiveTimestampRejected(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.svc.Create(context.Background(), &model.BookingRequest{
		VehicleID:   testVehicleID,
		FromPincode: "110001",
		ToPincode:   "110010",
		StartTime:   "2026-09-07T10:00:00",
		CustomerID:  "customer-1",
	})
	assertCode(t, err, "INVALID_INPUT")
}

func TestCreate_VehicleLockHeldRejected(t *testing.T) {
	h := newTestHarness(t)

	h.locks.Create(context.Background(), &model.BookingLock{
		ID: "booking_lock_" + testVehicleID,
	})

	// The lock covers the whole vehicle, so the requested start time is
	// irrelevant; creates with distinct starts would otherwise race each
	// other's overlap checks.
	for _, start := range []string{"2026-09-07T10:00:00Z", "2026-09-07T11:00:00Z"} {
		_, err := h.svc.Create(context.Background(), &model.BookingRequest{
			VehicleID:   testVehicleID,
			FromPincode: "110001",
			ToPincode:   "110010",
			StartTime:   start,
			CustomerID:  "customer-1",
		})
		assertCode(t, err, "CONFLICT")
	}
}

func TestCreate_MissingFieldsReportedBeforeVehicleLookup(t *testing.T) {
	h := newTestHarness(t)

	// Unknown vehicle and missing route fields at once: the incomplete
	// payload must be the reported problem, not the vehicle lookup.
	_, err := h.svc.Create(context.Background(), &model.BookingRequest{
		VehicleID: "659c1f77bcf86cd799439099",
		StartTime: "2026-09-07T10:00:00Z",
	})
	assertCode(t, err, "VALIDATION_ERROR")
}

// ────────────────────────────────────────────────
// Update
// ────────────────────────────────────────────────

func TestUpdate_RecomputesWindow(t *testing.T) {
	h := newTestHarness(t)

	created := h.createBooking(t, "2026-09-07T10:00:00Z")

	updated, err := h.svc.Update(context.Background(), created.ID, &model.BookingUpdate{
		ToPincode:  "110003", // |110001-110003| mod 24 = 2 hours
		CustomerID: "customer-1",
	})
	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}

	if got := updated.EndTime.Sub(updated.StartTime); got != 2*time.Hour {
		t.Errorf("expected 2 hour window after route change, got %v", got)
	}
}

func TestUpdate_OverlapWithOtherBookingRejected(t *testing.T) {
	h := newTestHarness(t)

	h.createBooking(t, "2026-09-07T10:00:00Z")

	second, err := h.svc.Create(context.Background(), &model.BookingRequest{
		VehicleID:   testVehicleID,
		FromPincode: "110001",
		ToPincode:   "110010",
		StartTime:   "2026-09-08T10:00:00Z",
		CustomerID:  "customer-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Move the second booking onto the first one's window.
	_, err = h.svc.Update(context.Background(), second.ID, &model.BookingUpdate{
		StartTime:  "2026-09-07T12:00:00Z",
		CustomerID: "customer-1",
	})
	assertCode(t, err, "CONFLICT")
}

func TestUpdate_DoesNotConflictWithItself(t *testing.T) {
	h := newTestHarness(t)

	created := h.createBooking(t, "2026-09-07T10:00:00Z")

	// Shift by one hour; the new window overlaps the old one, which must be
	// excluded from the conflict check.
	_, err := h.svc.Update(context.Background(), created.ID, &model.BookingUpdate{
		StartTime:  "2026-09-07T11:00:00Z",
		CustomerID: "customer-1",
	})
	if err != nil {
		t.Fatalf("self-overlapping update should succeed, got %v", err)
	}
}

func TestUpdate_WithoutCustomerIDAllowed(t *testing.T) {
	h := newTestHarness(t)

	created := h.createBooking(t, "2026-09-07T10:00:00Z")

	// Ownership is asserted only when the caller names a customer.
	updated, err := h.svc.Update(context.Background(), created.ID, &model.BookingUpdate{
		ToPincode: "110003",
	})
	if err != nil {
		t.Fatalf("update without customer id should succeed, got %v", err)
	}
	if got := updated.EndTime.Sub(updated.StartTime); got != 2*time.Hour {
		t.Errorf("expected 2 hour window after route change, got %v", got)
	}
}

func TestUpdate_WrongCustomerForbidden(t *testing.T) {
	h := newTestHarness(t)

	created := h.createBooking(t, "2026-09-07T10:00:00Z")

	_, err := h.svc.Update(context.Background(), created.ID, &model.BookingUpdate{
		StartTime:  "2026-09-08T10:00:00Z",
		CustomerID: "customer-2",
	})
	assertCode(t, err, "FORBIDDEN")
}

func TestUpdate_StartedBookingRejected(t *testing.T) {
	h := newTestHarness(t)

	// Starts before the harness clock (2026-09-01T12:00Z).
	created := h.createBooking(t, "2026-09-01T08:00:00Z")

	_, err := h.svc.Update(context.Background(), created.ID, &model.BookingUpdate{
		StartTime:  "2026-09-08T10:00:00Z",
		CustomerID: "customer-1",
	})
	assertCode(t, err, "ILLEGAL_STATE")
}

// ────────────────────────────────────────────────
// Cancel
// ────────────────────────────────────────────────

func TestCancel(t *testing.T) {
	h := newTestHarness(t)

	created := h.createBooking(t, "2026-09-07T10:00:00Z")

	cancelled, err := h.svc.Cancel(context.Background(), created.ID, "customer-1")
	if err != nil {
		t.Fatalf("unexpected cancel error: %v", err)
	}
	if cancelled.ID != created.ID {
		t.Errorf("expected cancelled record %s, got %s", created.ID, cancelled.ID)
	}

	_, err = h.svc.GetByID(context.Background(), created.ID)
	assertCode(t, err, "NOT_FOUND")
}

func TestCancel_WithoutCustomerIDAllowed(t *testing.T) {
	h := newTestHarness(t)

	created := h.createBooking(t, "2026-09-07T10:00:00Z")

	cancelled, err := h.svc.Cancel(context.Background(), created.ID, "")
	if err != nil {
		t.Fatalf("cancel without customer id should succeed, got %v", err)
	}
	if cancelled.ID != created.ID {
		t.Errorf("expected cancelled record %s, got %s", created.ID, cancelled.ID)
	}

	_, err = h.svc.GetByID(context.Background(), created.ID)
	assertCode(t, err, "NOT_FOUND")
}

func TestCancel_WrongCustomerForbidden(t *testing.T) {
	h := newTestHarness(t)

	created := h.createBooking(t, "2026-09-07T10:00:00Z")

	_, err := h.svc.Cancel(context.Background(), created.ID, "customer-2")
	assertCode(t, err, "FORBIDDEN")

	// Booking must be untouched after the rejected cancel.
	if _, err := h.svc.GetByID(context.Background(), created.ID); err != nil {
		t.Fatalf("booking should still exist: %v", err)
	}
}

func TestCancel_StartedBookingRejected(t *testing.T) {
	h := newTestHarness(t)

	created := h.createBooking(t, "2026-09-01T08:00:00Z")

	_, err := h.svc.Cancel(context.Background(), created.ID, "customer-1")
	assertCode(t, err, "ILLEGAL_STATE")
}

// ────────────────────────────────────────────────
// Reads
// ────────────────────────────────────────────────

func TestGetByID_JoinsVehicle(t *testing.T) {
	h := newTestHarness(t)

	created := h.createBooking(t, "2026-09-07T10:00:00Z")

	got, err := h.svc.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Vehicle == nil || got.Vehicle.Name != "Tata Ace" {
		t.Error("expected joined vehicle in response")
	}
}

func TestGetAll_FiltersByCustomer(t *testing.T) {
	h := newTestHarness(t)

	h.createBooking(t, "2026-09-07T10:00:00Z")

	_, err := h.svc.Create(context.Background(), &model.BookingRequest{
		VehicleID:   testVehicleID,
		FromPincode: "110001",
		ToPincode:   "110010",
		StartTime:   "2026-09-10T10:00:00Z",
		CustomerID:  "customer-2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bookings, count, err := h.svc.GetAll(context.Background(), "customer-2", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 || len(bookings) != 1 {
		t.Fatalf("expected 1 booking for customer-2, got count=%d len=%d", count, len(bookings))
	}
	if bookings[0].CustomerID != "customer-2" {
		t.Errorf("unexpected customer id %q", bookings[0].CustomerID)
	}

	_, total, err := h.svc.GetAll(context.Background(), "", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 bookings without filter, got %d", total)
	}
}
