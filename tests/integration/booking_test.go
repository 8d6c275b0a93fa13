//go:build integration

package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/roamcars/booking-service/internal/models"
	"github.com/roamcars/booking-service/internal/repository"
	"github.com/roamcars/booking-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var carIDCounter uint = 0

func nextCarID() uint {
	carIDCounter++
	return carIDCounter
}

func createTestCar(t *testing.T, status models.CarStatus) *models.Car {
	t.Helper()
	car := &models.Car{
		ID:          nextCarID(),
		OwnerID:     1,
		Make:        "Toyota",
		Model:       "Yaris",
		PlateNumber: fmt.Sprintf("TEST-%04d", carIDCounter),
		DailyRate:   45,
		Status:      status,
	}
	require.NoError(t, testDB.Create(car).Error)
	return car
}

func newBookingService() service.BookingService {
	carRepo := repository.NewCarRepository(testDB)
	bookingRepo := repository.NewBookingRepository(testDB)
	return service.NewBookingService(bookingRepo, carRepo, nil, service.SystemClock(), 30*time.Minute)
}

// Test: 20 customers race for the same car and dates
// → exactly 1 admitted, 19 rejected with a conflict
func TestConcurrentAdmission(t *testing.T) {
	cleanTables()
	car := createTestCar(t, models.CarApproved)
	svc := newBookingService()

	pickup := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	ret := pickup.Add(48 * time.Hour)

	attempts := 20
	var wg sync.WaitGroup
	results := make(chan *models.Booking, attempts)
	errs := make(chan error, attempts)

	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(customerIdx int) {
			defer wg.Done()
			booking, err := svc.CreateBooking(context.Background(), car.ID, uint(100+customerIdx), pickup, ret, 90)
			if err != nil {
				errs <- err
				return
			}
			results <- booking
		}(i)
	}
	wg.Wait()
	close(results)
	close(errs)

	admitted := 0
	for b := range results {
		assert.Equal(t, models.StatusPending, b.Status)
		admitted++
	}

	conflicts := 0
	for err := range errs {
		assert.ErrorIs(t, err, service.ErrCarUnavailable)
		conflicts++
	}

	assert.Equal(t, 1, admitted, "exactly one concurrent booking should be admitted")
	assert.Equal(t, attempts-1, conflicts)

	var count int64
	testDB.Model(&models.Booking{}).Where("car_id = ?", car.ID).Count(&count)
	assert.Equal(t, int64(1), count, "DB should hold exactly 1 booking")
}

// Test: back-to-back bookings share a boundary instant → both admitted
func TestBackToBackBookings(t *testing.T) {
	cleanTables()
	car := createTestCar(t, models.CarApproved)
	svc := newBookingService()

	pickup := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	handover := pickup.Add(48 * time.Hour)

	first, err := svc.CreateBooking(context.Background(), car.ID, 100, pickup, handover, 90)
	require.NoError(t, err)

	second, err := svc.CreateBooking(context.Background(), car.ID, 101, handover, handover.Add(48*time.Hour), 90)
	require.NoError(t, err, "return and next pickup at the same instant must not conflict")
	assert.NotEqual(t, first.Ref, second.Ref)

	// A range straddling the handover conflicts with both
	_, err = svc.CreateBooking(context.Background(), car.ID, 102, handover.Add(-time.Hour), handover.Add(time.Hour), 10)
	assert.ErrorIs(t, err, service.ErrCarUnavailable)
}

// Test: cancelling a booking frees the calendar slot for another customer
func TestCancelFreesSlot(t *testing.T) {
	cleanTables()
	car := createTestCar(t, models.CarApproved)
	svc := newBookingService()

	pickup := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	ret := pickup.Add(48 * time.Hour)

	first, err := svc.CreateBooking(context.Background(), car.ID, 100, pickup, ret, 90)
	require.NoError(t, err)

	_, err = svc.CreateBooking(context.Background(), car.ID, 101, pickup, ret, 90)
	assert.ErrorIs(t, err, service.ErrCarUnavailable)

	_, err = svc.CancelBooking(context.Background(), first.ID)
	require.NoError(t, err)

	retry, err := svc.CreateBooking(context.Background(), car.ID, 101, pickup, ret, 90)
	require.NoError(t, err, "slot should be free after cancellation")
	assert.Equal(t, models.StatusPending, retry.Status)
}

// Test: the exclusion constraint rejects an overlapping row even when it is
// written behind the service's back
func TestExclusionConstraintBackstop(t *testing.T) {
	cleanTables()
	car := createTestCar(t, models.CarApproved)
	svc := newBookingService()

	pickup := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	ret := pickup.Add(48 * time.Hour)

	_, err := svc.CreateBooking(context.Background(), car.ID, 100, pickup, ret, 90)
	require.NoError(t, err)

	rogue := &models.Booking{
		Ref:           "rogue-ref",
		CarID:         car.ID,
		CustomerID:    101,
		PickupAt:      pickup.Add(time.Hour),
		ReturnAt:      ret.Add(time.Hour),
		TotalCost:     90,
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentUnpaid,
		CreatedAt:     time.Now().UTC(),
	}
	err = testDB.Create(rogue).Error
	assert.Error(t, err, "exclusion constraint should reject an overlapping insert")
}

// Test: stale pending unpaid bookings are reclaimed, paid ones survive
func TestReclaimExpired(t *testing.T) {
	cleanTables()
	car := createTestCar(t, models.CarApproved)
	other := createTestCar(t, models.CarApproved)
	svc := newBookingService()

	pickup := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	ret := pickup.Add(48 * time.Hour)

	stale, err := svc.CreateBooking(context.Background(), car.ID, 100, pickup, ret, 90)
	require.NoError(t, err)

	paid, err := svc.CreateBooking(context.Background(), other.ID, 101, pickup, ret, 90)
	require.NoError(t, err)
	_, err = svc.MarkPaid(context.Background(), paid.ID)
	require.NoError(t, err)

	// Backdate both past the payment window
	testDB.Model(&models.Booking{}).
		Where("id IN ?", []uint{stale.ID, paid.ID}).
		Update("created_at", time.Now().UTC().Add(-20*time.Minute))

	reclaimed, err := svc.ReclaimExpired(context.Background(), time.Now().UTC().Add(-15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, reclaimed)

	var cancelled models.Booking
	require.NoError(t, testDB.First(&cancelled, stale.ID).Error)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	var survivor models.Booking
	require.NoError(t, testDB.First(&survivor, paid.ID).Error)
	assert.Equal(t, models.StatusPending, survivor.Status)
	assert.Equal(t, models.PaymentPaid, survivor.PaymentStatus)

	// The reclaimed slot is bookable again
	_, err = svc.CreateBooking(context.Background(), car.ID, 102, pickup, ret, 90)
	require.NoError(t, err)
}

// Test: FindByIDForUpdate takes a real row lock, so a second transaction
// reading the same booking blocks until the first commits
func TestRowLockBlocksConcurrentReader(t *testing.T) {
	cleanTables()
	car := createTestCar(t, models.CarApproved)
	svc := newBookingService()
	repo := repository.NewBookingRepository(testDB)

	pickup := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	b, err := svc.CreateBooking(context.Background(), car.ID, 100, pickup, pickup.Add(48*time.Hour), 90)
	require.NoError(t, err)

	const holdFor = 300 * time.Millisecond
	locked := make(chan struct{})
	holderDone := make(chan error, 1)
	go func() {
		holderDone <- repo.InTx(context.Background(), func(tx *gorm.DB) error {
			if _, err := repo.FindByIDForUpdate(context.Background(), tx, b.ID); err != nil {
				return err
			}
			close(locked)
			time.Sleep(holdFor)
			return nil
		})
	}()

	<-locked
	start := time.Now()
	err = repo.InTx(context.Background(), func(tx *gorm.DB) error {
		_, err := repo.FindByIDForUpdate(context.Background(), tx, b.ID)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, <-holderDone)

	assert.GreaterOrEqual(t, time.Since(start), holdFor/2,
		"second locked read should wait for the first transaction to commit")
}

// Test: a payment committing while the reclaimer runs never yields a
// cancelled paid booking; the row lock forces one of the two to see the
// other's outcome
func TestReclaimRaceWithCompetingPayment(t *testing.T) {
	cleanTables()
	svc := newBookingService()

	for i := 0; i < 5; i++ {
		car := createTestCar(t, models.CarApproved)
		pickup := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)

		b, err := svc.CreateBooking(context.Background(), car.ID, 100, pickup, pickup.Add(48*time.Hour), 90)
		require.NoError(t, err)

		testDB.Model(&models.Booking{}).
			Where("id = ?", b.ID).
			Update("created_at", time.Now().UTC().Add(-20*time.Minute))

		var wg sync.WaitGroup
		var payErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, payErr = svc.MarkPaid(context.Background(), b.ID)
		}()
		go func() {
			defer wg.Done()
			_, err := svc.ReclaimExpired(context.Background(), time.Now().UTC().Add(-15*time.Minute))
			assert.NoError(t, err)
		}()
		wg.Wait()

		var stored models.Booking
		require.NoError(t, testDB.First(&stored, b.ID).Error)

		if stored.Status == models.StatusCancelled {
			assert.Equal(t, models.PaymentUnpaid, stored.PaymentStatus,
				"a paid booking must never end up reclaimed")
			assert.ErrorIs(t, payErr, service.ErrAlreadyFinalized)
		} else {
			require.NoError(t, payErr)
			assert.Equal(t, models.StatusPending, stored.Status)
			assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)
		}
	}
}

// Test: booking an unapproved or missing car is rejected
func TestBookingCarValidation(t *testing.T) {
	cleanTables()
	pendingCar := createTestCar(t, models.CarPending)
	svc := newBookingService()

	pickup := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	ret := pickup.Add(48 * time.Hour)

	_, err := svc.CreateBooking(context.Background(), pendingCar.ID, 100, pickup, ret, 90)
	assert.ErrorIs(t, err, service.ErrCarNotApproved)

	_, err = svc.CreateBooking(context.Background(), 99999, 100, pickup, ret, 90)
	assert.ErrorIs(t, err, service.ErrCarNotFound)
}
