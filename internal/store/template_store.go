package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Raihan-Sharif/finmate-sub005/internal/models"
	"github.com/Raihan-Sharif/finmate-sub005/internal/scheduler"
)

// TemplateStore reads due obligation templates and applies executions with
// an optimistic guard on next_execution_date, so two workers observing the
// same due template apply it at most once.
type TemplateStore struct {
	db *gorm.DB
}

func NewTemplateStore(db *gorm.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

func (s *TemplateStore) Due(ctx context.Context, asOf time.Time) ([]models.ObligationTemplate, error) {
	var templates []models.ObligationTemplate
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND next_execution_date IS NOT NULL AND next_execution_date <= ?", true, asOf).
		Order("next_execution_date").
		Find(&templates).Error
	return templates, err
}

func (s *TemplateStore) Execute(ctx context.Context, tmpl *models.ObligationTemplate, entry *models.LedgerEntry, next *time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"next_execution_date": next,
			"executed_count":      gorm.Expr("executed_count + 1"),
		}
		if tmpl.TenureRemaining != nil {
			updates["tenure_remaining"] = gorm.Expr("tenure_remaining - 1")
		}
		if next == nil {
			updates["is_active"] = false
		}

		result := tx.Model(&models.ObligationTemplate{}).
			Where("id = ? AND next_execution_date = ?", tmpl.ID, *tmpl.NextExecutionDate).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return scheduler.ErrSuperseded
		}

		return tx.Create(entry).Error
	})
}
