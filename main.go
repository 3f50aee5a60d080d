package main

import (
	"log"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/nannyexpress/booking-service/config"
	"github.com/nannyexpress/booking-service/internal/consumer"
	"github.com/nannyexpress/booking-service/internal/handler"
	"github.com/nannyexpress/booking-service/internal/middleware"
	"github.com/nannyexpress/booking-service/internal/pricing"
	"github.com/nannyexpress/booking-service/internal/repository"
	"github.com/nannyexpress/booking-service/internal/service"
	"github.com/nannyexpress/booking-service/pkg/database"
	"github.com/nannyexpress/booking-service/pkg/rabbitmq"
)

func main() {
	cfg := config.Load()

	db := database.NewPostgresDB(cfg.DSN())

	rates := pricing.Rates{
		NannyHourlyRate: cfg.NannyHourlyRate,
		NightSurcharge:  cfg.NightSurcharge,
		TaxiFee:         cfg.TaxiFee,
	}

	// RabbitMQ consumer: sync the nanny roster from the roster service
	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer mqConsumer.Close()

	msgs, err := mqConsumer.Consume()
	if err != nil {
		log.Fatalf("failed to start consuming: %v", err)
	}

	nannyConsumer := consumer.NewNannyConsumer(db)
	nannyConsumer.Start(msgs)

	// RabbitMQ publisher: notification decisions for the notification service
	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect publisher to RabbitMQ: %v", err)
	}
	defer publisher.Close()

	// Repositories
	bookingRepo := repository.NewBookingRepository(db)
	nannyRepo := repository.NewNannyRepository(db)

	// Services
	bookingSvc := service.NewBookingService(bookingRepo, nannyRepo, rates, publisher)
	batchSvc := service.NewBatchService(bookingRepo, nannyRepo, rates)
	payrollSvc := service.NewPayrollService(bookingRepo, rates)

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "booking-service"})
	})

	handler.NewBookingHandler(bookingSvc, batchSvc).RegisterRoutes(e)
	handler.NewPayrollHandler(payrollSvc).RegisterRoutes(e)

	log.Printf("Booking Service starting on :%s", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
