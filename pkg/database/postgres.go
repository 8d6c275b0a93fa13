package database

import (
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/roamcars/booking-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// pgDuplicateObject is the SQLSTATE for re-adding an existing constraint.
const pgDuplicateObject = "42710"

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Car{}, &models.Booking{}); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}

	if err := ApplyConstraints(db); err != nil {
		log.Fatalf("failed to apply constraints: %v", err)
	}

	return db
}

// ApplyConstraints installs the exclusion constraint that makes overlapping
// calendar-occupying bookings for one car unrepresentable at the storage
// level. Half-open ranges: back-to-back bookings do not collide. Statuses
// here must match models.Booking.Occupying. The constraint surviving a
// re-run is fine; anything else (missing btree_gist, insufficient role) is
// fatal because admission relies on this backstop.
func ApplyConstraints(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS btree_gist`).Error; err != nil {
		return fmt.Errorf("create btree_gist extension: %w", err)
	}

	err := db.Exec(`
		ALTER TABLE bookings
		ADD CONSTRAINT bookings_no_overlap
		EXCLUDE USING gist (
			car_id WITH =,
			tstzrange(pickup_at, return_at, '[)') WITH &&
		)
		WHERE (status IN ('pending', 'confirmed', 'approved'))
	`).Error
	if err != nil && !isDuplicateObject(err) {
		return fmt.Errorf("create bookings_no_overlap constraint: %w", err)
	}
	return nil
}

func isDuplicateObject(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgDuplicateObject
}
