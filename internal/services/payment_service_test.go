package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Raihan-Sharif/finmate-sub005/internal/apperr"
	"github.com/Raihan-Sharif/finmate-sub005/internal/models"
	"github.com/Raihan-Sharif/finmate-sub005/internal/notify"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{models.PaymentPending, models.PaymentSubmitted, true},
		{models.PaymentSubmitted, models.PaymentVerified, true},
		{models.PaymentSubmitted, models.PaymentApproved, true},
		{models.PaymentSubmitted, models.PaymentRejected, true},
		{models.PaymentVerified, models.PaymentApproved, true},
		{models.PaymentVerified, models.PaymentRejected, true},

		{models.PaymentPending, models.PaymentApproved, false},
		{models.PaymentPending, models.PaymentVerified, false},
		{models.PaymentPending, models.PaymentRejected, false},
		{models.PaymentVerified, models.PaymentSubmitted, false},
		{models.PaymentSubmitted, models.PaymentPending, false},
	}
	for _, tt := range tests {
		if got := canTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("canTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

// Approved and rejected are terminal: no transition function may move a
// payment out of either state.
func TestTerminalStatesHaveNoExits(t *testing.T) {
	all := []string{
		models.PaymentPending,
		models.PaymentSubmitted,
		models.PaymentVerified,
		models.PaymentApproved,
		models.PaymentRejected,
	}
	for _, terminal := range []string{models.PaymentApproved, models.PaymentRejected} {
		for _, to := range all {
			if canTransition(terminal, to) {
				t.Errorf("terminal state %s must not transition to %s", terminal, to)
			}
		}
	}
}

func TestGuardTransitionReportsBothStates(t *testing.T) {
	payment := &models.SubscriptionPayment{Status: models.PaymentPending}
	err := guardTransition(payment, models.PaymentApproved)
	if err == nil {
		t.Fatal("expected StateViolation")
	}
	if !apperr.IsStateViolation(err) {
		t.Fatalf("expected StateViolation, got %T", err)
	}
	sv := err.(*apperr.StateViolation)
	if sv.Current != models.PaymentPending || sv.Requested != models.PaymentApproved {
		t.Errorf("violation = %+v, want pending->approved", sv)
	}
}

func TestPaymentTerminalHelper(t *testing.T) {
	for status, want := range map[string]bool{
		models.PaymentPending:   false,
		models.PaymentSubmitted: false,
		models.PaymentVerified:  false,
		models.PaymentApproved:  true,
		models.PaymentRejected:  true,
	} {
		p := models.SubscriptionPayment{Status: status}
		if got := p.Terminal(); got != want {
			t.Errorf("Terminal() for %s = %v, want %v", status, got, want)
		}
	}
}

// memPaymentStore mirrors transaction semantics: the stored row only takes
// the mutated state when fn succeeds.
type memPaymentStore struct {
	payments map[uuid.UUID]models.SubscriptionPayment
}

func newMemPaymentStore() *memPaymentStore {
	return &memPaymentStore{payments: make(map[uuid.UUID]models.SubscriptionPayment)}
}

func (s *memPaymentStore) add(p models.SubscriptionPayment) uuid.UUID {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.payments[p.ID] = p
	return p.ID
}

func (s *memPaymentStore) Mutate(_ context.Context, id uuid.UUID, fn func(tx *gorm.DB, p *models.SubscriptionPayment) error) (*models.SubscriptionPayment, error) {
	stored, ok := s.payments[id]
	if !ok {
		return nil, &apperr.NotFound{Entity: "payment", ID: id.String()}
	}
	p := stored
	if err := fn(nil, &p); err != nil {
		return nil, err
	}
	s.payments[id] = p
	return &p, nil
}

type fakeProvisioner struct {
	err         error
	provisioned int
}

func (f *fakeProvisioner) ApplyApprovedPayment(_ *gorm.DB, payment *models.SubscriptionPayment, _ uuid.UUID) (*models.UserSubscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.provisioned++
	return &models.UserSubscription{
		ID:     uuid.New(),
		UserID: payment.UserID,
		PlanID: payment.PlanID,
		Status: models.SubscriptionActive,
	}, nil
}

type recordingDispatcher struct {
	events []notify.Event
}

func (d *recordingDispatcher) Dispatch(_ context.Context, event notify.Event) error {
	d.events = append(d.events, event)
	return nil
}

func newTestPaymentService(store *memPaymentStore, prov *fakeProvisioner, disp *recordingDispatcher) *PaymentService {
	return NewPaymentService(nil, store, prov, disp)
}

// Approval and subscription provisioning apply as one unit: when
// provisioning fails the payment must keep its pre-approval state.
func TestApproveRollsBackWhenProvisioningFails(t *testing.T) {
	store := newMemPaymentStore()
	id := store.add(models.SubscriptionPayment{
		UserID: uuid.New(),
		PlanID: uuid.New(),
		Status: models.PaymentSubmitted,
	})
	disp := &recordingDispatcher{}
	svc := newTestPaymentService(store, &fakeProvisioner{err: errors.New("plan row missing")}, disp)

	_, _, err := svc.Approve(context.Background(), id, uuid.New())
	if err == nil {
		t.Fatal("expected provisioning error to surface")
	}

	stored := store.payments[id]
	if stored.Status != models.PaymentSubmitted {
		t.Errorf("status = %s, want %s after rollback", stored.Status, models.PaymentSubmitted)
	}
	if stored.ApprovedAt != nil {
		t.Error("approved_at must stay unset after rollback")
	}
	if len(disp.events) != 0 {
		t.Errorf("dispatched %d events, want 0", len(disp.events))
	}
}

func TestApproveProvisionsSubscription(t *testing.T) {
	store := newMemPaymentStore()
	userID := uuid.New()
	id := store.add(models.SubscriptionPayment{
		UserID: userID,
		PlanID: uuid.New(),
		Status: models.PaymentVerified,
	})
	prov := &fakeProvisioner{}
	disp := &recordingDispatcher{}
	svc := newTestPaymentService(store, prov, disp)

	payment, sub, err := svc.Approve(context.Background(), id, uuid.New())
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if payment.Status != models.PaymentApproved || payment.ApprovedAt == nil {
		t.Errorf("payment = %s approved_at=%v, want approved with timestamp", payment.Status, payment.ApprovedAt)
	}
	if sub == nil || sub.UserID != userID {
		t.Fatalf("subscription = %+v, want one for user %s", sub, userID)
	}
	if prov.provisioned != 1 {
		t.Errorf("provisioned = %d, want 1", prov.provisioned)
	}
	if len(disp.events) != 1 || disp.events[0].Type != notify.EventPaymentApproved {
		t.Errorf("events = %+v, want one payment_approved", disp.events)
	}
}

// A pending payment cannot be approved; the guard fires before any
// provisioning is attempted.
func TestApproveRejectsInvalidTransition(t *testing.T) {
	store := newMemPaymentStore()
	id := store.add(models.SubscriptionPayment{
		UserID: uuid.New(),
		PlanID: uuid.New(),
		Status: models.PaymentPending,
	})
	prov := &fakeProvisioner{}
	svc := newTestPaymentService(store, prov, &recordingDispatcher{})

	_, _, err := svc.Approve(context.Background(), id, uuid.New())
	if !apperr.IsStateViolation(err) {
		t.Fatalf("expected StateViolation, got %v", err)
	}
	if prov.provisioned != 0 {
		t.Errorf("provisioned = %d, want 0", prov.provisioned)
	}
	if store.payments[id].Status != models.PaymentPending {
		t.Errorf("status = %s, want pending", store.payments[id].Status)
	}
}

// Token-authenticated admins carry no user id; the verifier column must stay
// null instead of recording a zero UUID.
func TestVerifierUnsetForTokenAdmin(t *testing.T) {
	store := newMemPaymentStore()
	id := store.add(models.SubscriptionPayment{
		UserID: uuid.New(),
		PlanID: uuid.New(),
		Status: models.PaymentSubmitted,
	})
	svc := newTestPaymentService(store, &fakeProvisioner{}, &recordingDispatcher{})

	payment, err := svc.Verify(context.Background(), id, uuid.Nil)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if payment.VerifiedBy != nil {
		t.Errorf("verified_by = %v, want nil for token admin", payment.VerifiedBy)
	}

	verifier := uuid.New()
	payment, err = svc.Verify(context.Background(), id, verifier)
	if err == nil {
		t.Fatal("expected StateViolation on second verify")
	}

	id2 := store.add(models.SubscriptionPayment{
		UserID: uuid.New(),
		PlanID: uuid.New(),
		Status: models.PaymentSubmitted,
	})
	payment, err = svc.Verify(context.Background(), id2, verifier)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if payment.VerifiedBy == nil || *payment.VerifiedBy != verifier {
		t.Errorf("verified_by = %v, want %s", payment.VerifiedBy, verifier)
	}
}
