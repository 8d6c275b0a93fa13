package models

import "time"

type CarStatus string

const (
	CarPending  CarStatus = "pending"
	CarApproved CarStatus = "approved"
	CarRejected CarStatus = "rejected"
)

// Car is a listed rental vehicle. Only approved listings are eligible for
// booking admission.
type Car struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OwnerID     uint      `gorm:"index;not null" json:"owner_id"`
	Make        string    `gorm:"type:varchar(64);not null" json:"make"`
	Model       string    `gorm:"type:varchar(64);not null" json:"model"`
	PlateNumber string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"plate_number"`
	DailyRate   float64   `gorm:"not null" json:"daily_rate"`
	Status      CarStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
