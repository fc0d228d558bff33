package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Raihan-Sharif/finmate-sub005/internal/apperr"
	"github.com/Raihan-Sharif/finmate-sub005/internal/dto"
	"github.com/Raihan-Sharif/finmate-sub005/internal/models"
	"github.com/Raihan-Sharif/finmate-sub005/internal/notify"
)

// paymentTransitions is the full lifecycle graph. Approved and rejected have
// no outgoing edges.
var paymentTransitions = map[string][]string{
	models.PaymentPending:   {models.PaymentSubmitted},
	models.PaymentSubmitted: {models.PaymentVerified, models.PaymentApproved, models.PaymentRejected},
	models.PaymentVerified:  {models.PaymentApproved, models.PaymentRejected},
}

func canTransition(from, to string) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func guardTransition(p *models.SubscriptionPayment, to string) error {
	if !canTransition(p.Status, to) {
		return &apperr.StateViolation{Entity: "payment", Current: p.Status, Requested: to}
	}
	return nil
}

// PaymentMutator applies one guarded mutation to a payment under a row lock.
// The fn error aborts the whole unit: the status change and any work fn
// performed on tx commit together or not at all.
type PaymentMutator interface {
	Mutate(ctx context.Context, id uuid.UUID, fn func(tx *gorm.DB, p *models.SubscriptionPayment) error) (*models.SubscriptionPayment, error)
}

// SubscriptionProvisioner creates or extends the payer's subscription inside
// the approval transaction. Implemented by SubscriptionService.
type SubscriptionProvisioner interface {
	ApplyApprovedPayment(tx *gorm.DB, payment *models.SubscriptionPayment, actorID uuid.UUID) (*models.UserSubscription, error)
}

// PaymentService drives a subscription payment from creation to a terminal
// state. Every transition is validated against the lifecycle graph; invalid
// attempts fail loudly, never silently no-op.
type PaymentService struct {
	db            *gorm.DB
	payments      PaymentMutator
	subscriptions SubscriptionProvisioner
	dispatcher    notify.Dispatcher
}

func NewPaymentService(db *gorm.DB, payments PaymentMutator, subscriptions SubscriptionProvisioner, dispatcher notify.Dispatcher) *PaymentService {
	return &PaymentService{db: db, payments: payments, subscriptions: subscriptions, dispatcher: dispatcher}
}

// Create opens a pending payment priced from the plan and billing cycle.
func (s *PaymentService) Create(ctx context.Context, userID uuid.UUID, req *dto.CreatePaymentRequest) (*models.SubscriptionPayment, error) {
	if req.BillingCycle != models.CycleMonthly && req.BillingCycle != models.CycleYearly {
		return nil, &apperr.InvalidArgument{Reason: fmt.Sprintf("unknown billing cycle %q", req.BillingCycle)}
	}

	var plan models.SubscriptionPlan
	if err := s.db.WithContext(ctx).First(&plan, "id = ?", req.PlanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.NotFound{Entity: "plan", ID: req.PlanID.String()}
		}
		return nil, &apperr.PersistenceFailure{Op: "load plan", Err: err}
	}

	base := plan.MonthlyPrice
	if req.BillingCycle == models.CycleYearly {
		base = plan.YearlyPrice
	}
	if req.DiscountAmount < 0 || req.DiscountAmount > base {
		return nil, &apperr.InvalidArgument{Reason: "discount must be between 0 and the base amount"}
	}

	payment := &models.SubscriptionPayment{
		ID:             uuid.New(),
		UserID:         userID,
		PlanID:         plan.ID,
		PaymentMethod:  req.PaymentMethod,
		BillingCycle:   req.BillingCycle,
		BaseAmount:     base,
		DiscountAmount: req.DiscountAmount,
		FinalAmount:    base - req.DiscountAmount,
		Currency:       plan.Currency,
		Status:         models.PaymentPending,
		TransactionRef: req.TransactionRef,
	}
	if err := s.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, &apperr.PersistenceFailure{Op: "create payment", Err: err}
	}
	return payment, nil
}

func (s *PaymentService) Get(ctx context.Context, id uuid.UUID) (*models.SubscriptionPayment, error) {
	var payment models.SubscriptionPayment
	err := s.db.WithContext(ctx).Preload("Plan").First(&payment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperr.NotFound{Entity: "payment", ID: id.String()}
	}
	if err != nil {
		return nil, &apperr.PersistenceFailure{Op: "load payment", Err: err}
	}
	return &payment, nil
}

// Submit moves pending -> submitted and stamps submitted_at.
func (s *PaymentService) Submit(ctx context.Context, id uuid.UUID) (*models.SubscriptionPayment, error) {
	payment, err := s.payments.Mutate(ctx, id, func(_ *gorm.DB, p *models.SubscriptionPayment) error {
		if err := guardTransition(p, models.PaymentSubmitted); err != nil {
			return err
		}
		now := time.Now()
		p.Status = models.PaymentSubmitted
		p.SubmittedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, notify.Event{
		Type:      notify.EventSubscriptionPending,
		UserID:    payment.UserID.String(),
		Title:     "Payment submitted",
		Body:      "Your subscription payment is awaiting verification.",
		TargetURL: "/subscription",
	})
	return payment, nil
}

// Verify moves submitted -> verified and records the verifier.
func (s *PaymentService) Verify(ctx context.Context, id, verifierID uuid.UUID) (*models.SubscriptionPayment, error) {
	return s.payments.Mutate(ctx, id, func(_ *gorm.DB, p *models.SubscriptionPayment) error {
		if err := guardTransition(p, models.PaymentVerified); err != nil {
			return err
		}
		now := time.Now()
		p.Status = models.PaymentVerified
		p.VerifiedAt = &now
		setVerifier(p, verifierID)
		return nil
	})
}

// Approve moves submitted|verified -> approved and creates or extends the
// user's subscription in the same transaction. If subscription provisioning
// fails the approval rolls back with it; the pair applies atomically or not
// at all.
func (s *PaymentService) Approve(ctx context.Context, id, verifierID uuid.UUID) (*models.SubscriptionPayment, *models.UserSubscription, error) {
	var sub *models.UserSubscription
	payment, err := s.payments.Mutate(ctx, id, func(tx *gorm.DB, p *models.SubscriptionPayment) error {
		if err := guardTransition(p, models.PaymentApproved); err != nil {
			return err
		}
		now := time.Now()
		p.Status = models.PaymentApproved
		p.ApprovedAt = &now
		setVerifier(p, verifierID)

		var err error
		sub, err = s.subscriptions.ApplyApprovedPayment(tx, p, verifierID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.dispatch(ctx, notify.Event{
		Type:      notify.EventPaymentApproved,
		UserID:    payment.UserID.String(),
		Title:     "Payment approved",
		Body:      "Your subscription is now active.",
		TargetURL: "/subscription",
	})
	return payment, sub, nil
}

// Reject moves submitted|verified -> rejected with a reason.
func (s *PaymentService) Reject(ctx context.Context, id, verifierID uuid.UUID, reason string) (*models.SubscriptionPayment, error) {
	payment, err := s.payments.Mutate(ctx, id, func(_ *gorm.DB, p *models.SubscriptionPayment) error {
		if err := guardTransition(p, models.PaymentRejected); err != nil {
			return err
		}
		now := time.Now()
		p.Status = models.PaymentRejected
		p.RejectedAt = &now
		p.RejectionReason = reason
		setVerifier(p, verifierID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, notify.Event{
		Type:      notify.EventPaymentRejected,
		UserID:    payment.UserID.String(),
		Title:     "Payment rejected",
		Body:      fmt.Sprintf("Your subscription payment was rejected: %s", reason),
		TargetURL: "/subscription",
	})
	return payment, nil
}

// setVerifier records who reviewed the payment. Admin-token requests carry no
// user id; the column stays null rather than holding a zero UUID.
func setVerifier(p *models.SubscriptionPayment, verifierID uuid.UUID) {
	if verifierID != uuid.Nil {
		p.VerifiedBy = &verifierID
	}
}

func (s *PaymentService) dispatch(ctx context.Context, event notify.Event) {
	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		slog.Error("payment notification dispatch failed", "type", event.Type, "error", err)
	}
}
