package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Raihan-Sharif/finmate-sub005/internal/apperr"
	"github.com/Raihan-Sharif/finmate-sub005/internal/dto"
	"github.com/Raihan-Sharif/finmate-sub005/internal/models"
	"github.com/Raihan-Sharif/finmate-sub005/internal/schedule"
)

var validKinds = map[string]bool{
	models.ObligationTransaction: true,
	models.ObligationSIP:         true,
	models.ObligationLoanEMI:     true,
}

var validFrequencies = map[string]bool{
	models.FrequencyWeekly:    true,
	models.FrequencyBiweekly:  true,
	models.FrequencyMonthly:   true,
	models.FrequencyQuarterly: true,
	models.FrequencyYearly:    true,
}

// ObligationService manages recurring obligation templates. Execution
// belongs to the scheduler; this service only creates, edits, and toggles
// templates, and previews upcoming dates for the UI.
type ObligationService struct {
	db *gorm.DB
}

func NewObligationService(db *gorm.DB) *ObligationService {
	return &ObligationService{db: db}
}

// Create opens a template with its first occurrence at the anchor date.
func (s *ObligationService) Create(ctx context.Context, userID uuid.UUID, req *dto.CreateObligationRequest) (*models.ObligationTemplate, error) {
	if !validKinds[req.Kind] {
		return nil, &apperr.InvalidArgument{Reason: fmt.Sprintf("unknown obligation kind %q", req.Kind)}
	}
	if !validFrequencies[req.Frequency] {
		return nil, &apperr.InvalidArgument{Reason: fmt.Sprintf("unknown frequency %q", req.Frequency)}
	}
	if req.Amount <= 0 {
		return nil, &apperr.InvalidArgument{Reason: "amount must be positive"}
	}
	if req.EndDate != nil && req.EndDate.Before(req.AnchorDate) {
		return nil, &apperr.InvalidArgument{Reason: "end_date must not precede anchor_date"}
	}
	if req.TenureMonths != nil && *req.TenureMonths < 1 {
		return nil, &apperr.InvalidArgument{Reason: "tenure_months must be >= 1"}
	}

	anchor := req.AnchorDate
	tmpl := &models.ObligationTemplate{
		ID:                uuid.New(),
		UserID:            userID,
		Kind:              req.Kind,
		Description:       req.Description,
		Amount:            req.Amount,
		Currency:          req.Currency,
		Frequency:         req.Frequency,
		AnchorDate:        anchor,
		NextExecutionDate: &anchor,
		EndDate:           req.EndDate,
		TenureRemaining:   req.TenureMonths,
		IsActive:          true,
	}
	if tmpl.Currency == "" {
		tmpl.Currency = "USD"
	}
	if err := s.db.WithContext(ctx).Create(tmpl).Error; err != nil {
		return nil, &apperr.PersistenceFailure{Op: "create template", Err: err}
	}
	return tmpl, nil
}

func (s *ObligationService) Get(ctx context.Context, id uuid.UUID) (*models.ObligationTemplate, error) {
	var tmpl models.ObligationTemplate
	err := s.db.WithContext(ctx).First(&tmpl, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperr.NotFound{Entity: "template", ID: id.String()}
	}
	if err != nil {
		return nil, &apperr.PersistenceFailure{Op: "load template", Err: err}
	}
	return &tmpl, nil
}

func (s *ObligationService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ObligationTemplate, error) {
	var templates []models.ObligationTemplate
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&templates).Error
	if err != nil {
		return nil, &apperr.PersistenceFailure{Op: "list templates", Err: err}
	}
	return templates, nil
}

// Update edits descriptive fields. The schedule fields (anchor, frequency,
// next occurrence) are immutable after creation; recreate the template to
// change them.
func (s *ObligationService) Update(ctx context.Context, id uuid.UUID, req *dto.UpdateObligationRequest) (*models.ObligationTemplate, error) {
	tmpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Amount != nil {
		if *req.Amount <= 0 {
			return nil, &apperr.InvalidArgument{Reason: "amount must be positive"}
		}
		tmpl.Amount = *req.Amount
	}
	if req.Description != nil {
		tmpl.Description = *req.Description
	}
	if req.EndDate != nil {
		tmpl.EndDate = req.EndDate
	}
	if err := s.db.WithContext(ctx).Save(tmpl).Error; err != nil {
		return nil, &apperr.PersistenceFailure{Op: "update template", Err: err}
	}
	return tmpl, nil
}

// SetActive pauses or resumes a template. The next execution date is left
// untouched, so a resumed template picks up where it stopped.
func (s *ObligationService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.ObligationTemplate, error) {
	tmpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tmpl.IsActive = active
	if err := s.db.WithContext(ctx).Model(tmpl).Update("is_active", active).Error; err != nil {
		return nil, &apperr.PersistenceFailure{Op: "toggle template", Err: err}
	}
	return tmpl, nil
}

// Preview returns the next n occurrence dates for the creation/edit UI.
func (s *ObligationService) Preview(anchor time.Time, frequency string, n int) ([]time.Time, error) {
	if !validFrequencies[frequency] {
		return nil, &apperr.InvalidArgument{Reason: fmt.Sprintf("unknown frequency %q", frequency)}
	}
	if n < 1 || n > 24 {
		n = 6
	}
	dates, err := schedule.Preview(anchor, frequency, n)
	if err != nil {
		return nil, &apperr.InvalidArgument{Reason: err.Error()}
	}
	return dates, nil
}
