package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Raihan-Sharif/finmate-sub005/internal/models"
)

// SubscriptionStore feeds the renewal-reminder job.
type SubscriptionStore struct {
	db *gorm.DB
}

func NewSubscriptionStore(db *gorm.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

func (s *SubscriptionStore) ExpiringWithin(ctx context.Context, asOf time.Time, window time.Duration) ([]models.UserSubscription, error) {
	var subs []models.UserSubscription
	err := s.db.WithContext(ctx).
		Where("status = ? AND end_date > ? AND end_date <= ?", models.SubscriptionActive, asOf, asOf.Add(window)).
		Order("end_date").
		Find(&subs).Error
	return subs, err
}
