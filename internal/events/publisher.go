package events

import (
	"context"
	"time"

	"fleetlink/pkg/kafka"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"
)

// Event types emitted on the events topic.
const (
	EventVehicleRegistered = "vehicle.registered"
	EventBookingCreated    = "booking.created"
	EventBookingUpdated    = "booking.updated"
	EventBookingCancelled  = "booking.cancelled"
)

const (
	source        = "fleetlink"
	schemaVersion = "v1"
)

// Publisher emits domain events. Implementations must not block request
// handling on broker availability.
type Publisher interface {
	VehicleRegistered(ctx context.Context, vehicle *model.Vehicle)
	BookingCreated(ctx context.Context, booking *model.Booking)
	BookingUpdated(ctx context.Context, booking *model.Booking)
	BookingCancelled(ctx context.Context, booking *model.Booking)
	Close() error
}

// VehicleEvent is the payload for vehicle lifecycle events.
type VehicleEvent struct {
	VehicleID  string    `json:"vehicle_id"`
	Name       string    `json:"name"`
	CapacityKg float64   `json:"capacity_kg"`
	Tyres      int       `json:"tyres"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BookingEvent is the payload for booking lifecycle events.
type BookingEvent struct {
	BookingID   string    `json:"booking_id"`
	VehicleID   string    `json:"vehicle_id"`
	CustomerID  string    `json:"customer_id"`
	FromPincode string    `json:"from_pincode"`
	ToPincode   string    `json:"to_pincode"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type kafkaPublisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

// NewKafkaPublisher wraps a producer as a best effort event publisher.
// Publish failures are logged and swallowed; the producer's DLQ is the
// durability mechanism, not the request path.
func NewKafkaPublisher(producer *kafka.Producer, log *logger.Logger) Publisher {
	return &kafkaPublisher{producer: producer, log: log}
}

func (p *kafkaPublisher) VehicleRegistered(ctx context.Context, vehicle *model.Vehicle) {
	payload := VehicleEvent{
		VehicleID:  vehicle.ID,
		Name:       vehicle.Name,
		CapacityKg: vehicle.CapacityKg,
		Tyres:      vehicle.Tyres,
		OccurredAt: time.Now().UTC(),
	}
	p.publish(ctx, EventVehicleRegistered, vehicle.ID, payload)
}

func (p *kafkaPublisher) BookingCreated(ctx context.Context, booking *model.Booking) {
	p.publish(ctx, EventBookingCreated, booking.VehicleID, bookingPayload(booking))
}

func (p *kafkaPublisher) BookingUpdated(ctx context.Context, booking *model.Booking) {
	p.publish(ctx, EventBookingUpdated, booking.VehicleID, bookingPayload(booking))
}

func (p *kafkaPublisher) BookingCancelled(ctx context.Context, booking *model.Booking) {
	p.publish(ctx, EventBookingCancelled, booking.VehicleID, bookingPayload(booking))
}

func bookingPayload(booking *model.Booking) BookingEvent {
	return BookingEvent{
		BookingID:   booking.ID,
		VehicleID:   booking.VehicleID,
		CustomerID:  booking.CustomerID,
		FromPincode: booking.FromPincode,
		ToPincode:   booking.ToPincode,
		StartTime:   booking.StartTime,
		EndTime:     booking.EndTime,
		OccurredAt:  time.Now().UTC(),
	}
}

// publish keys messages by vehicle id so events for the same vehicle stay
// ordered within a partition.
func (p *kafkaPublisher) publish(ctx context.Context, eventType, key string, payload any) {
	msg := kafka.NewMessage().
		WithKey(key).
		WithValue(payload).
		WithEventType(eventType).
		WithSource(source).
		WithSchemaVersion(schemaVersion).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("failed to publish event",
			"event_type", eventType,
			"key", key,
			"error", err,
		)
	}
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

type noopPublisher struct{}

// NewNoopPublisher returns a publisher that discards all events. Used when
// event publishing is disabled.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) VehicleRegistered(context.Context, *model.Vehicle) {}
func (noopPublisher) BookingCreated(context.Context, *model.Booking)    {}
func (noopPublisher) BookingUpdated(context.Context, *model.Booking)    {}
func (noopPublisher) BookingCancelled(context.Context, *model.Booking)  {}
func (noopPublisher) Close() error                                      { return nil }
