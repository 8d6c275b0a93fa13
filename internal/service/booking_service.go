package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/roamcars/booking-service/internal/models"
	"github.com/roamcars/booking-service/internal/repository"
	"github.com/roamcars/booking-service/pkg/rabbitmq"
	"gorm.io/gorm"
)

var (
	ErrCarNotFound      = errors.New("car not found")
	ErrCarNotApproved   = errors.New("car is not approved for rental")
	ErrInvalidRange     = errors.New("invalid pickup/return range")
	ErrInvalidCost      = errors.New("total cost must be positive")
	ErrCarUnavailable   = errors.New("car is not available for the requested dates")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrAlreadyFinalized = errors.New("booking is already cancelled or completed")
)

// pgExclusionViolation is the SQLSTATE raised when an insert collides with
// the bookings_no_overlap exclusion constraint.
const pgExclusionViolation = "23P01"

type BookingService interface {
	CreateBooking(ctx context.Context, carID, customerID uint, pickupAt, returnAt time.Time, totalCost float64) (*models.Booking, error)
	IsAvailable(ctx context.Context, carID uint, pickupAt, returnAt time.Time) (bool, error)
	Transition(ctx context.Context, bookingID uint, status models.BookingStatus, payment *models.PaymentStatus) (*models.Booking, error)
	ApproveBooking(ctx context.Context, bookingID uint) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID uint) (*models.Booking, error)
	MarkPaid(ctx context.Context, bookingID uint) (*models.Booking, error)
	CompleteBooking(ctx context.Context, bookingID uint) (*models.Booking, error)
	ReclaimExpired(ctx context.Context, cutoff time.Time) (int, error)
	GetBookingByRef(ctx context.Context, ref string) (*models.Booking, error)
	ListCustomerBookings(ctx context.Context, customerID uint) ([]models.Booking, error)
	ListCarBookings(ctx context.Context, carID uint, status *models.BookingStatus) ([]models.Booking, error)
}

type bookingService struct {
	bookingRepo repository.BookingRepository
	carRepo     repository.CarRepository
	publisher   *rabbitmq.Publisher
	clock       Clock
	minDuration time.Duration
}

func NewBookingService(bookingRepo repository.BookingRepository, carRepo repository.CarRepository, publisher *rabbitmq.Publisher, clock Clock, minDuration time.Duration) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		carRepo:     carRepo,
		publisher:   publisher,
		clock:       clock,
		minDuration: minDuration,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, carID, customerID uint, pickupAt, returnAt time.Time, totalCost float64) (*models.Booking, error) {
	now := s.clock.Now()

	if pickupAt.Before(now) {
		return nil, ErrInvalidRange
	}
	if !pickupAt.Before(returnAt) || returnAt.Sub(pickupAt) < s.minDuration {
		return nil, ErrInvalidRange
	}
	if totalCost <= 0 {
		return nil, ErrInvalidCost
	}

	booking := &models.Booking{
		Ref:           uuid.NewString(),
		CarID:         carID,
		CustomerID:    customerID,
		PickupAt:      pickupAt.UTC(),
		ReturnAt:      returnAt.UTC(),
		TotalCost:     totalCost,
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentUnpaid,
		CreatedAt:     now,
	}

	err := s.bookingRepo.InTx(ctx, func(tx *gorm.DB) error {
		// Lock the car row. Concurrent admission attempts for this car
		// serialize here while other cars proceed in parallel.
		car, err := s.carRepo.FindByIDForUpdate(ctx, tx, carID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCarNotFound
			}
			return err
		}
		if car.Status != models.CarApproved {
			return ErrCarNotApproved
		}

		// Re-check availability under the lock. A plain check-then-insert
		// without this serialization is the double-booking race.
		taken, err := s.bookingRepo.ExistsOccupyingOverlap(ctx, tx, carID, booking.PickupAt, booking.ReturnAt)
		if err != nil {
			return err
		}
		if taken {
			return ErrCarUnavailable
		}

		return s.bookingRepo.Create(ctx, tx, booking)
	})
	if err != nil {
		// The exclusion constraint is the storage-level backstop; surface a
		// collision the same way as the in-transaction check.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
			return nil, ErrCarUnavailable
		}
		return nil, err
	}

	s.publish("booking.created", booking)
	return booking, nil
}

// IsAvailable reports whether the car is free for [pickupAt, returnAt). It
// reads committed state only; admission re-checks under the car lock.
func (s *bookingService) IsAvailable(ctx context.Context, carID uint, pickupAt, returnAt time.Time) (bool, error) {
	if !pickupAt.Before(returnAt) {
		return false, ErrInvalidRange
	}
	taken, err := s.bookingRepo.ExistsOccupyingOverlap(ctx, nil, carID, pickupAt.UTC(), returnAt.UTC())
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// Transition moves a booking to a new status, optionally updating the
// payment axis. An empty status leaves the booking axis alone, so payment
// confirmation cannot demote an approved booking. Cancelled and completed are
// terminal: ErrAlreadyFinalized is returned and the stored record is left
// untouched. Cancelling releases the car's slot implicitly: availability is
// derived from booking rows, never stored.
func (s *bookingService) Transition(ctx context.Context, bookingID uint, status models.BookingStatus, payment *models.PaymentStatus) (*models.Booking, error) {
	var result *models.Booking

	err := s.bookingRepo.InTx(ctx, func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if booking.Status.Final() {
			return ErrAlreadyFinalized
		}

		next := status
		if next == "" {
			next = booking.Status
		}

		if err := s.bookingRepo.UpdateStatus(ctx, tx, bookingID, next, payment); err != nil {
			return err
		}

		booking.Status = next
		if payment != nil {
			booking.PaymentStatus = *payment
		}
		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	routingKey := "booking." + string(result.Status)
	if status == "" {
		routingKey = "booking.paid"
	}
	s.publish(routingKey, result)
	return result, nil
}

func (s *bookingService) ApproveBooking(ctx context.Context, bookingID uint) (*models.Booking, error) {
	return s.Transition(ctx, bookingID, models.StatusApproved, nil)
}

func (s *bookingService) CancelBooking(ctx context.Context, bookingID uint) (*models.Booking, error) {
	return s.Transition(ctx, bookingID, models.StatusCancelled, nil)
}

// MarkPaid flips the payment axis only; the booking keeps whatever status it
// holds so paying an already approved booking does not demote it.
func (s *bookingService) MarkPaid(ctx context.Context, bookingID uint) (*models.Booking, error) {
	paid := models.PaymentPaid
	return s.Transition(ctx, bookingID, "", &paid)
}

func (s *bookingService) CompleteBooking(ctx context.Context, bookingID uint) (*models.Booking, error) {
	return s.Transition(ctx, bookingID, models.StatusCompleted, nil)
}

// ReclaimExpired cancels bookings that sat pending and unpaid past the
// cutoff, returning how many were cancelled. A failure on one booking is
// logged and does not abort the rest of the batch.
func (s *bookingService) ReclaimExpired(ctx context.Context, cutoff time.Time) (int, error) {
	candidates, err := s.bookingRepo.FindExpiredUnpaid(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for i := range candidates {
		if ctx.Err() != nil {
			break
		}
		b := &candidates[i]
		ok, err := s.reclaimOne(ctx, b.ID, cutoff)
		if err != nil {
			log.Printf("[BookingService] reclaim booking %d: %v", b.ID, err)
			continue
		}
		if ok {
			reclaimed++
			b.Status = models.StatusCancelled
			s.publish("booking.expired", b)
		}
	}
	return reclaimed, nil
}

// reclaimOne re-checks the booking under a row lock immediately before
// cancelling, so a booking paid between the scan and the cancel is left
// alone.
func (s *bookingService) reclaimOne(ctx context.Context, bookingID uint, cutoff time.Time) (bool, error) {
	reclaimed := false
	err := s.bookingRepo.InTx(ctx, func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status != models.StatusPending ||
			booking.PaymentStatus != models.PaymentUnpaid ||
			booking.CreatedAt.After(cutoff) {
			return nil
		}
		if err := s.bookingRepo.UpdateStatus(ctx, tx, bookingID, models.StatusCancelled, nil); err != nil {
			return err
		}
		reclaimed = true
		return nil
	})
	return reclaimed, err
}

func (s *bookingService) GetBookingByRef(ctx context.Context, ref string) (*models.Booking, error) {
	booking, err := s.bookingRepo.FindByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) ListCustomerBookings(ctx context.Context, customerID uint) ([]models.Booking, error) {
	return s.bookingRepo.FindByCustomer(ctx, customerID)
}

func (s *bookingService) ListCarBookings(ctx context.Context, carID uint, status *models.BookingStatus) ([]models.Booking, error) {
	return s.bookingRepo.FindByCar(ctx, carID, status)
}

// publish is fire-and-forget: notification delivery must never fail or block
// a booking transition.
func (s *bookingService) publish(routingKey string, booking *models.Booking) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(routingKey, booking); err != nil {
		log.Printf("[BookingService] publish %s: %v", routingKey, err)
	}
}
