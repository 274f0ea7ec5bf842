package main

import (
	availabilityhandler "fleetlink/internal/availability/handler"
	availabilityservice "fleetlink/internal/availability/service"
	bookinghandler "fleetlink/internal/bookings/handler"
	bookingrepo "fleetlink/internal/bookings/repository"
	bookingservice "fleetlink/internal/bookings/service"
	bookingvalidator "fleetlink/internal/bookings/validator"
	"fleetlink/internal/events"
	vehiclehandler "fleetlink/internal/vehicles/handler"
	vehiclerepo "fleetlink/internal/vehicles/repository"
	vehicleservice "fleetlink/internal/vehicles/service"
	vehiclevalidator "fleetlink/internal/vehicles/validator"
	"fleetlink/pkg/app"
	"fleetlink/pkg/config"
	"fleetlink/pkg/contracts"
	"fleetlink/pkg/kafka"
	kafka_config "fleetlink/pkg/kafka/config"
	kafka_middleware "fleetlink/pkg/kafka/middleware"
)

const ServiceName = "fleetlink"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	publisher := initPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	}()

	cfg.Log.Info("Starting FleetLink service")

	handlers := initHandlers(cfg, publisher)
	serverApp := app.NewApplication()
	serverApp.SetApp(cfg, handlers...)
	serverApp.Run()
}

func initHandlers(cfg *config.Config, publisher events.Publisher) []contracts.Handler {
	vehicleValidator := vehiclevalidator.NewVehicleValidator(cfg.Log)
	bookingValidator := bookingvalidator.NewBookingValidator(cfg.Log)

	vehicleRepo := vehiclerepo.NewMongoVehicleRepository(cfg)
	bookingRepo := bookingrepo.NewMongoBookingRepository(cfg)
	lockRepo := bookingrepo.NewBookingLockRepository(cfg)

	vehicleService := vehicleservice.NewVehicleService(vehicleRepo, vehicleValidator, publisher, cfg)
	bookingService := bookingservice.NewBookingService(bookingRepo, lockRepo, vehicleRepo, bookingValidator, publisher, cfg)
	availabilityService := availabilityservice.NewAvailabilityService(bookingRepo, vehicleRepo, bookingValidator, cfg)

	cfg.Log.Info("FleetLink services initialized", "database", cfg.MongoDatabaseName)

	return []contracts.Handler{
		vehiclehandler.NewVehicleHandler(vehicleService, cfg.Log),
		availabilityhandler.NewAvailabilityHandler(availabilityService, cfg.Log),
		bookinghandler.NewBookingHandler(bookingService, cfg.Log),
	}
}

func initPublisher(cfg *config.Config) events.Publisher {
	if !cfg.EventsEnabled {
		cfg.Log.Info("Event publishing disabled")
		return events.NewNoopPublisher()
	}

	kafkaCfg := kafka_config.Load()
	producer, err := kafka.NewProducer(kafkaCfg, cfg.EventsTopic, cfg.EventsDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware())

	cfg.Log.Info("Event publishing enabled",
		"topic", cfg.EventsTopic,
		"dlq_topic", cfg.EventsDLQTopic,
		"brokers", kafkaCfg.Brokers,
	)

	return events.NewKafkaPublisher(producer, cfg.Log)
}
