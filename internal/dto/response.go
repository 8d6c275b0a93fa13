package dto

import (
	"time"

	"github.com/roamcars/booking-service/internal/models"
)

type BookingResponse struct {
	Ref           string               `json:"ref"`
	CarID         uint                 `json:"car_id"`
	CustomerID    uint                 `json:"customer_id"`
	PickupAt      time.Time            `json:"pickup_at"`
	ReturnAt      time.Time            `json:"return_at"`
	TotalCost     float64              `json:"total_cost"`
	Status        models.BookingStatus `json:"status"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time            `json:"created_at"`
}

type AvailabilityResponse struct {
	CarID     uint      `json:"car_id"`
	PickupAt  time.Time `json:"pickup_at"`
	ReturnAt  time.Time `json:"return_at"`
	Available bool      `json:"available"`
}

type CarResponse struct {
	ID          uint             `json:"id"`
	OwnerID     uint             `json:"owner_id"`
	Make        string           `json:"make"`
	Model       string           `json:"model"`
	PlateNumber string           `json:"plate_number"`
	DailyRate   float64          `json:"daily_rate"`
	Status      models.CarStatus `json:"status"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	return BookingResponse{
		Ref:           b.Ref,
		CarID:         b.CarID,
		CustomerID:    b.CustomerID,
		PickupAt:      b.PickupAt,
		ReturnAt:      b.ReturnAt,
		TotalCost:     b.TotalCost,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		CreatedAt:     b.CreatedAt,
	}
}

func ToCarResponse(c *models.Car) CarResponse {
	return CarResponse{
		ID:          c.ID,
		OwnerID:     c.OwnerID,
		Make:        c.Make,
		Model:       c.Model,
		PlateNumber: c.PlateNumber,
		DailyRate:   c.DailyRate,
		Status:      c.Status,
	}
}
