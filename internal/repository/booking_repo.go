package repository

import (
	"context"
	"time"

	"github.com/roamcars/booking-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// occupyingStatuses are the booking statuses that hold a car's calendar.
// Must stay in sync with models.Booking.Occupying and the exclusion
// constraint created in pkg/database.
var occupyingStatuses = []models.BookingStatus{
	models.StatusPending,
	models.StatusConfirmed,
	models.StatusApproved,
}

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error)
	FindByRef(ctx context.Context, ref string) (*models.Booking, error)
	FindByCustomer(ctx context.Context, customerID uint) ([]models.Booking, error)
	FindByCar(ctx context.Context, carID uint, status *models.BookingStatus) ([]models.Booking, error)
	ExistsOccupyingOverlap(ctx context.Context, tx *gorm.DB, carID uint, pickupAt, returnAt time.Time) (bool, error)
	FindExpiredUnpaid(ctx context.Context, cutoff time.Time) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.BookingStatus, payment *models.PaymentStatus) error
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

// InTx runs fn inside a single database transaction. The admission check and
// insert for a car must share one transaction so the car row lock covers both.
func (r *bookingRepository) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return tx.WithContext(ctx).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	var booking models.Booking
	if err := db.WithContext(ctx).First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindByIDForUpdate acquires a row-level lock on the booking within the
// given transaction. Used by transitions so a concurrent reclamation pass
// and a payment confirmation cannot interleave on the same row.
func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByRef(ctx context.Context, ref string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Where("ref = ?", ref).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByCustomer(ctx context.Context, customerID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("pickup_at ASC, id ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) FindByCar(ctx context.Context, carID uint, status *models.BookingStatus) ([]models.Booking, error) {
	var bookings []models.Booking
	q := r.db.WithContext(ctx).Where("car_id = ?", carID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if err := q.Order("pickup_at ASC, id ASC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

// ExistsOccupyingOverlap reports whether any calendar-occupying booking for
// the car overlaps [pickupAt, returnAt). Half-open: a booking returning at
// pickupAt does not conflict.
func (r *bookingRepository) ExistsOccupyingOverlap(ctx context.Context, tx *gorm.DB, carID uint, pickupAt, returnAt time.Time) (bool, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("car_id = ? AND status IN ? AND pickup_at < ? AND return_at > ?",
			carID, occupyingStatuses, returnAt, pickupAt).
		Count(&count).Error
	return count > 0, err
}

// FindExpiredUnpaid returns pending, unpaid bookings created at or before
// cutoff, oldest first.
func (r *bookingRepository) FindExpiredUnpaid(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND payment_status = ? AND created_at <= ?",
			models.StatusPending, models.PaymentUnpaid, cutoff).
		Order("created_at ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.BookingStatus, payment *models.PaymentStatus) error {
	db := tx
	if db == nil {
		db = r.db
	}
	updates := map[string]any{"status": status}
	if payment != nil {
		updates["payment_status"] = *payment
	}
	return db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Updates(updates).Error
}
