package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User carries a denormalized pointer to its current subscription so admin
// surfaces never recompute "most recent non-cancelled row" from time-ordered
// queries. The pointer is maintained transactionally by the subscription
// service.
type User struct {
	ID                    uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email                 string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password              string         `gorm:"not null" json:"-"`
	FullName              string         `gorm:"size:255" json:"full_name"`
	Role                  string         `gorm:"size:20;default:'user'" json:"role"`
	CurrentSubscriptionID *uuid.UUID     `gorm:"type:uuid" json:"current_subscription_id"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
}
