package dto

import "time"

type CreateBookingRequest struct {
	CustomerID uint      `json:"customer_id" validate:"required"`
	PickupAt   time.Time `json:"pickup_at" validate:"required"`
	ReturnAt   time.Time `json:"return_at" validate:"required,gtfield=PickupAt"`
	TotalCost  float64   `json:"total_cost" validate:"required,gt=0"`
}

type SubmitCarRequest struct {
	OwnerID     uint    `json:"owner_id" validate:"required"`
	Make        string  `json:"make" validate:"required"`
	Model       string  `json:"model" validate:"required"`
	PlateNumber string  `json:"plate_number" validate:"required"`
	DailyRate   float64 `json:"daily_rate" validate:"required,gt=0"`
}
