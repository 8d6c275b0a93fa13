package models

import "time"

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusApproved  BookingStatus = "approved"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

// Final reports whether the status is terminal. A cancelled or completed
// booking admits no further transitions.
func (s BookingStatus) Final() bool {
	return s == StatusCancelled || s == StatusCompleted
}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Booking reserves one car for one customer over the half-open interval
// [PickupAt, ReturnAt).
type Booking struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	Ref           string        `gorm:"type:varchar(36);uniqueIndex;not null" json:"ref"`
	CarID         uint          `gorm:"index;not null" json:"car_id"`
	CustomerID    uint          `gorm:"index;not null" json:"customer_id"`
	PickupAt      time.Time     `gorm:"not null" json:"pickup_at"`
	ReturnAt      time.Time     `gorm:"not null" json:"return_at"`
	TotalCost     float64       `gorm:"not null" json:"total_cost"`
	Status        BookingStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'unpaid'" json:"payment_status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`

	Car *Car `gorm:"foreignKey:CarID" json:"car,omitempty"`
}

// Occupying reports whether the booking holds the car's calendar. Any
// non-terminal booking blocks its interval until it is cancelled (by the
// customer or the payment-timeout reclaimer) or completed.
func (b *Booking) Occupying() bool {
	return !b.Status.Final()
}

// Overlaps is the half-open interval test: back-to-back bookings where one
// return equals the next pickup do not overlap.
func Overlaps(pickupA, returnA, pickupB, returnB time.Time) bool {
	return pickupA.Before(returnB) && pickupB.Before(returnA)
}
