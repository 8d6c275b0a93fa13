package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/roamcars/booking-service/config"
	"github.com/roamcars/booking-service/internal/handler"
	"github.com/roamcars/booking-service/internal/middleware"
	"github.com/roamcars/booking-service/internal/repository"
	"github.com/roamcars/booking-service/internal/service"
	"github.com/roamcars/booking-service/internal/worker"
	"github.com/roamcars/booking-service/pkg/database"
	"github.com/roamcars/booking-service/pkg/rabbitmq"
)

func main() {
	cfg := config.Load()

	db := database.NewPostgresDB(cfg.DSN())

	// RabbitMQ is optional: without it transitions still commit, they just
	// don't notify.
	var publisher *rabbitmq.Publisher
	if cfg.RabbitURL != "" {
		var err error
		publisher, err = rabbitmq.NewPublisher(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
	} else {
		log.Println("[Main] RABBITMQ_URL not set, notifications disabled")
	}

	// Repositories
	carRepo := repository.NewCarRepository(db)
	bookingRepo := repository.NewBookingRepository(db)

	// Services
	clock := service.SystemClock()
	bookingSvc := service.NewBookingService(bookingRepo, carRepo, publisher, clock, cfg.MinBookingDuration)
	carSvc := service.NewCarService(carRepo, publisher)

	// Payment-timeout reclaimer
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reclaimer := worker.NewReclaimer(bookingSvc, clock, cfg.PaymentTimeout, cfg.ReclaimInterval)
	go reclaimer.Start(ctx)

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Validator = middleware.NewRequestValidator()
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

	handler.NewBookingHandler(bookingSvc).RegisterRoutes(e)
	handler.NewCarHandler(carSvc).RegisterRoutes(e)

	go func() {
		log.Printf("Booking Service starting on :%s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
