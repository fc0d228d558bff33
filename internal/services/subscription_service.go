package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Raihan-Sharif/finmate-sub005/internal/apperr"
	"github.com/Raihan-Sharif/finmate-sub005/internal/dto"
	"github.com/Raihan-Sharif/finmate-sub005/internal/models"
	"github.com/Raihan-Sharif/finmate-sub005/internal/notify"
	"github.com/Raihan-Sharif/finmate-sub005/internal/schedule"
)

// Subscription actions accepted by the admin mutation surface.
const (
	ActionActivate = "activate"
	ActionSuspend  = "suspend"
	ActionCancel   = "cancel"
	ActionExtend   = "extend"
)

// nextEndDate computes an extension target: months on top of the current end
// date, or on top of now when the subscription has no end date or already
// lapsed. A stale past date never shortens the extension.
func nextEndDate(current *time.Time, now time.Time, months int) time.Time {
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	return schedule.AddMonths(base, months)
}

func cycleMonths(billingCycle string) int {
	if billingCycle == models.CycleYearly {
		return 12
	}
	return 1
}

// SubscriptionService governs the lifecycle of a user's paid plan. Every
// action appends one immutable history row, and the user's denormalized
// current-subscription pointer is maintained in the same transaction as the
// row it points to.
type SubscriptionService struct {
	db         *gorm.DB
	dispatcher notify.Dispatcher
}

func NewSubscriptionService(db *gorm.DB, dispatcher notify.Dispatcher) *SubscriptionService {
	return &SubscriptionService{db: db, dispatcher: dispatcher}
}

// List answers the admin dashboard: optional status filter, free-text search
// over the owner's email and name, offset pagination. Plan and payment are
// resolved in the query rather than joined by callers.
func (s *SubscriptionService) List(ctx context.Context, status, search string, limit, offset int) ([]dto.AdminSubscription, int64, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := s.db.WithContext(ctx).Model(&models.UserSubscription{}).
		Joins("JOIN users ON users.id = user_subscriptions.user_id")
	if status != "" {
		query = query.Where("user_subscriptions.status = ?", status)
	}
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("users.email ILIKE ? OR users.full_name ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, &apperr.PersistenceFailure{Op: "count subscriptions", Err: err}
	}

	var subs []models.UserSubscription
	err := query.Preload("Plan").Preload("Payment").Preload("User").
		Order("user_subscriptions.created_at DESC").
		Limit(limit).Offset(offset).
		Find(&subs).Error
	if err != nil {
		return nil, 0, &apperr.PersistenceFailure{Op: "list subscriptions", Err: err}
	}

	now := time.Now()
	views := make([]dto.AdminSubscription, 0, len(subs))
	for i := range subs {
		views = append(views, dto.NewAdminSubscription(&subs[i], now))
	}
	return views, total, nil
}

// Apply routes one admin action to a subscription. Unknown action names are
// rejected before any lookup.
func (s *SubscriptionService) Apply(ctx context.Context, id uuid.UUID, action string, extendMonths int, actorID uuid.UUID) (*models.UserSubscription, error) {
	switch action {
	case ActionActivate:
		return s.Activate(ctx, id, actorID)
	case ActionSuspend:
		return s.Suspend(ctx, id, actorID)
	case ActionCancel:
		return s.Cancel(ctx, id, actorID)
	case ActionExtend:
		return s.Extend(ctx, id, extendMonths, actorID)
	default:
		return nil, &apperr.InvalidArgument{Reason: fmt.Sprintf("unknown action %q", action)}
	}
}

func (s *SubscriptionService) Activate(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*models.UserSubscription, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB, sub *models.UserSubscription) error {
		if sub.Status == models.SubscriptionCancelled {
			return &apperr.StateViolation{Entity: "subscription", Current: sub.Status, Requested: models.SubscriptionActive}
		}
		sub.Status = models.SubscriptionActive
		return s.appendHistory(tx, sub, ActionActivate, actorID, "")
	})
}

// Suspend pauses the plan without touching its end date.
func (s *SubscriptionService) Suspend(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*models.UserSubscription, error) {
	sub, err := s.mutate(ctx, id, func(tx *gorm.DB, sub *models.UserSubscription) error {
		if sub.Status == models.SubscriptionCancelled {
			return &apperr.StateViolation{Entity: "subscription", Current: sub.Status, Requested: models.SubscriptionSuspended}
		}
		sub.Status = models.SubscriptionSuspended
		return s.appendHistory(tx, sub, ActionSuspend, actorID, "")
	})
	if err != nil {
		return nil, err
	}
	s.notifyChanged(ctx, sub, "Your subscription was suspended.")
	return sub, nil
}

// Cancel is terminal. Replaying cancel on a cancelled subscription is a
// no-op rather than an error so the admin surface is replay-safe. The user's
// current-subscription pointer is cleared in the same transaction.
func (s *SubscriptionService) Cancel(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*models.UserSubscription, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB, sub *models.UserSubscription) error {
		if sub.Status == models.SubscriptionCancelled {
			return nil
		}
		sub.Status = models.SubscriptionCancelled
		if err := tx.Model(&models.User{}).
			Where("id = ? AND current_subscription_id = ?", sub.UserID, sub.ID).
			Update("current_subscription_id", nil).Error; err != nil {
			return err
		}
		return s.appendHistory(tx, sub, ActionCancel, actorID, "")
	})
}

// Extend adds months to the current end date (or to now, if the end date is
// null or already past) and forces the subscription back to active. A
// cancelled subscription cannot be extended; a new one is created instead.
func (s *SubscriptionService) Extend(ctx context.Context, id uuid.UUID, months int, actorID uuid.UUID) (*models.UserSubscription, error) {
	if months < 1 {
		return nil, &apperr.InvalidArgument{Reason: "extend_months must be >= 1"}
	}
	sub, err := s.mutate(ctx, id, func(tx *gorm.DB, sub *models.UserSubscription) error {
		if sub.Status == models.SubscriptionCancelled {
			return &apperr.StateViolation{Entity: "subscription", Current: sub.Status, Requested: models.SubscriptionActive}
		}
		end := nextEndDate(sub.EndDate, time.Now(), months)
		sub.EndDate = &end
		sub.Status = models.SubscriptionActive
		return s.appendHistory(tx, sub, ActionExtend, actorID, fmt.Sprintf("extended by %d month(s)", months))
	})
	if err != nil {
		return nil, err
	}
	s.notifyChanged(ctx, sub, fmt.Sprintf("Your subscription was extended until %s.", sub.EndDate.Format(time.DateOnly)))
	return sub, nil
}

// CreateManual opens a subscription without a payment, for admin-granted
// plans. The user's current-subscription pointer moves with it.
func (s *SubscriptionService) CreateManual(ctx context.Context, userID, planID uuid.UUID, billingCycle string, actorID uuid.UUID) (*models.UserSubscription, error) {
	if billingCycle != models.CycleMonthly && billingCycle != models.CycleYearly {
		return nil, &apperr.InvalidArgument{Reason: fmt.Sprintf("unknown billing cycle %q", billingCycle)}
	}

	var sub *models.UserSubscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var plan models.SubscriptionPlan
		if err := tx.First(&plan, "id = ?", planID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &apperr.NotFound{Entity: "plan", ID: planID.String()}
			}
			return err
		}

		now := time.Now()
		end := schedule.AddMonths(now, cycleMonths(billingCycle))
		sub = &models.UserSubscription{
			ID:           uuid.New(),
			UserID:       userID,
			PlanID:       plan.ID,
			BillingCycle: billingCycle,
			Status:       models.SubscriptionActive,
			StartDate:    now,
			EndDate:      &end,
		}
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			Update("current_subscription_id", sub.ID).Error; err != nil {
			return err
		}
		return s.appendHistory(tx, sub, "created", actorID, "created manually by admin")
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// ApplyApprovedPayment runs inside the payment approval transaction. A user
// with a live subscription gets it extended by one billing cycle; everyone
// else gets a fresh subscription linked to the payment. Errors roll back the
// approval along with the subscription work.
func (s *SubscriptionService) ApplyApprovedPayment(tx *gorm.DB, payment *models.SubscriptionPayment, actorID uuid.UUID) (*models.UserSubscription, error) {
	var user models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", payment.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.NotFound{Entity: "user", ID: payment.UserID.String()}
		}
		return nil, err
	}

	now := time.Now()
	months := cycleMonths(payment.BillingCycle)

	if user.CurrentSubscriptionID != nil {
		var current models.UserSubscription
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&current, "id = ?", *user.CurrentSubscriptionID).Error
		if err == nil && current.Status != models.SubscriptionCancelled {
			end := nextEndDate(current.EndDate, now, months)
			current.EndDate = &end
			current.Status = models.SubscriptionActive
			if err := tx.Save(&current).Error; err != nil {
				return nil, err
			}
			if err := s.appendHistory(tx, &current, "renewed", actorID,
				fmt.Sprintf("renewed by payment %s", payment.ID)); err != nil {
				return nil, err
			}
			return &current, nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	end := schedule.AddMonths(now, months)
	sub := &models.UserSubscription{
		ID:           uuid.New(),
		UserID:       payment.UserID,
		PlanID:       payment.PlanID,
		PaymentID:    &payment.ID,
		BillingCycle: payment.BillingCycle,
		Status:       models.SubscriptionActive,
		StartDate:    now,
		EndDate:      &end,
	}
	if err := tx.Create(sub).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&models.User{}).Where("id = ?", payment.UserID).
		Update("current_subscription_id", sub.ID).Error; err != nil {
		return nil, err
	}
	if err := s.appendHistory(tx, sub, "created", actorID,
		fmt.Sprintf("created by payment %s", payment.ID)); err != nil {
		return nil, err
	}
	return sub, nil
}

// History returns the append-only action log for one subscription.
func (s *SubscriptionService) History(ctx context.Context, id uuid.UUID, limit int) ([]models.SubscriptionHistory, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	var rows []models.SubscriptionHistory
	err := s.db.WithContext(ctx).
		Where("subscription_id = ?", id).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, &apperr.PersistenceFailure{Op: "load subscription history", Err: err}
	}
	return rows, nil
}

func (s *SubscriptionService) mutate(ctx context.Context, id uuid.UUID, fn func(tx *gorm.DB, sub *models.UserSubscription) error) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sub, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &apperr.NotFound{Entity: "subscription", ID: id.String()}
		}
		if err != nil {
			return &apperr.PersistenceFailure{Op: "lock subscription", Err: err}
		}
		if err := fn(tx, &sub); err != nil {
			return err
		}
		return tx.Save(&sub).Error
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *SubscriptionService) appendHistory(tx *gorm.DB, sub *models.UserSubscription, action string, actorID uuid.UUID, note string) error {
	row := models.SubscriptionHistory{
		ID:             uuid.New(),
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		PlanID:         sub.PlanID,
		Action:         action,
		EffectiveAt:    time.Now(),
		EndDate:        sub.EndDate,
		Note:           note,
	}
	if actorID != uuid.Nil {
		row.ActorID = &actorID
	}
	return tx.Create(&row).Error
}

func (s *SubscriptionService) notifyChanged(ctx context.Context, sub *models.UserSubscription, body string) {
	event := notify.Event{
		Type:      notify.EventSubscriptionChanged,
		UserID:    sub.UserID.String(),
		Title:     "Subscription updated",
		Body:      body,
		TargetURL: "/subscription",
	}
	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		slog.Error("subscription notification dispatch failed", "subscription_id", sub.ID, "error", err)
	}
}
