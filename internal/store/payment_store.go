package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Raihan-Sharif/finmate-sub005/internal/apperr"
	"github.com/Raihan-Sharif/finmate-sub005/internal/models"
)

// PaymentStore applies payment mutations under a SELECT FOR UPDATE row lock.
// fn runs inside the transaction; its error rolls back both the payment row
// and whatever fn wrote on tx, so approval and subscription provisioning
// land together or not at all.
type PaymentStore struct {
	db *gorm.DB
}

func NewPaymentStore(db *gorm.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

func (s *PaymentStore) Mutate(ctx context.Context, id uuid.UUID, fn func(tx *gorm.DB, p *models.SubscriptionPayment) error) (*models.SubscriptionPayment, error) {
	var payment models.SubscriptionPayment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payment, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &apperr.NotFound{Entity: "payment", ID: id.String()}
		}
		if err != nil {
			return &apperr.PersistenceFailure{Op: "lock payment", Err: err}
		}
		if err := fn(tx, &payment); err != nil {
			return err
		}
		return tx.Save(&payment).Error
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
