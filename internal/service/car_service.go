package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/roamcars/booking-service/internal/models"
	"github.com/roamcars/booking-service/internal/repository"
	"github.com/roamcars/booking-service/pkg/rabbitmq"
	"gorm.io/gorm"
)

var ErrCarAlreadyReviewed = errors.New("car listing has already been reviewed")

type CarService interface {
	SubmitCar(ctx context.Context, car *models.Car) error
	GetCar(ctx context.Context, id uint) (*models.Car, error)
	ListCars(ctx context.Context, status *models.CarStatus) ([]models.Car, error)
	ApproveCar(ctx context.Context, id uint) (*models.Car, error)
	RejectCar(ctx context.Context, id uint) (*models.Car, error)
}

type carService struct {
	repo      repository.CarRepository
	publisher *rabbitmq.Publisher
}

func NewCarService(repo repository.CarRepository, publisher *rabbitmq.Publisher) CarService {
	return &carService{repo: repo, publisher: publisher}
}

// SubmitCar creates a listing in pending state; an admin review moves it to
// approved or rejected before it can take bookings.
func (s *carService) SubmitCar(ctx context.Context, car *models.Car) error {
	car.Status = models.CarPending
	if err := s.repo.Create(ctx, car); err != nil {
		return fmt.Errorf("create car: %w", err)
	}

	if s.publisher != nil {
		_ = s.publisher.Publish("car.submitted", car)
	}
	return nil
}

func (s *carService) GetCar(ctx context.Context, id uint) (*models.Car, error) {
	car, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCarNotFound
		}
		return nil, err
	}
	return car, nil
}

func (s *carService) ListCars(ctx context.Context, status *models.CarStatus) ([]models.Car, error) {
	return s.repo.FindAll(ctx, status)
}

func (s *carService) ApproveCar(ctx context.Context, id uint) (*models.Car, error) {
	return s.review(ctx, id, models.CarApproved)
}

func (s *carService) RejectCar(ctx context.Context, id uint) (*models.Car, error) {
	return s.review(ctx, id, models.CarRejected)
}

func (s *carService) review(ctx context.Context, id uint, status models.CarStatus) (*models.Car, error) {
	car, err := s.GetCar(ctx, id)
	if err != nil {
		return nil, err
	}
	if car.Status != models.CarPending {
		return nil, ErrCarAlreadyReviewed
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	car.Status = status

	if s.publisher != nil {
		_ = s.publisher.Publish("car."+string(status), car)
	}
	return car, nil
}
