package repository

import (
	"context"

	"github.com/roamcars/booking-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CarRepository interface {
	Create(ctx context.Context, car *models.Car) error
	FindByID(ctx context.Context, id uint) (*models.Car, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Car, error)
	FindAll(ctx context.Context, status *models.CarStatus) ([]models.Car, error)
	UpdateStatus(ctx context.Context, id uint, status models.CarStatus) error
}

type carRepository struct {
	db *gorm.DB
}

func NewCarRepository(db *gorm.DB) CarRepository {
	return &carRepository{db: db}
}

func (r *carRepository) Create(ctx context.Context, car *models.Car) error {
	return r.db.WithContext(ctx).Create(car).Error
}

func (r *carRepository) FindByID(ctx context.Context, id uint) (*models.Car, error) {
	var car models.Car
	if err := r.db.WithContext(ctx).First(&car, id).Error; err != nil {
		return nil, err
	}
	return &car, nil
}

// FindByIDForUpdate acquires a row-level lock on the car within the given
// transaction. This is the serialization point for booking admission: all
// concurrent admission attempts for the same car queue on this lock, while
// attempts on other cars proceed in parallel.
func (r *carRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Car, error) {
	var car models.Car
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&car, id).Error; err != nil {
		return nil, err
	}
	return &car, nil
}

func (r *carRepository) FindAll(ctx context.Context, status *models.CarStatus) ([]models.Car, error) {
	var cars []models.Car
	q := r.db.WithContext(ctx)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if err := q.Order("id ASC").Find(&cars).Error; err != nil {
		return nil, err
	}
	return cars, nil
}

func (r *carRepository) UpdateStatus(ctx context.Context, id uint, status models.CarStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Car{}).
		Where("id = ?", id).
		Update("status", status).Error
}
