package models

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionPlan struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	MonthlyPrice float64   `gorm:"not null;default:0" json:"monthly_price"`
	YearlyPrice  float64   `gorm:"not null;default:0" json:"yearly_price"`
	Currency     string    `gorm:"size:3;not null;default:'USD'" json:"currency"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
