package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	ServerPort string
	RabbitURL  string

	// PaymentTimeout is how long a pending booking may stay unpaid before
	// the reclaimer cancels it.
	PaymentTimeout time.Duration
	// ReclaimInterval is the period between reclamation passes.
	ReclaimInterval time.Duration
	// MinBookingDuration is the shortest admissible rental.
	MinBookingDuration time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[Config] no .env file, using environment")
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "rental_db"),

		ServerPort: getEnv("SERVER_PORT", "8080"),
		RabbitURL:  getEnv("RABBITMQ_URL", ""),

		PaymentTimeout:     getDuration("PAYMENT_TIMEOUT", 15*time.Minute),
		ReclaimInterval:    getDuration("RECLAIM_INTERVAL", 5*time.Minute),
		MinBookingDuration: getDuration("MIN_BOOKING_DURATION", 30*time.Minute),
	}
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[Config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
