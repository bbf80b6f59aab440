// Package repository implements coffee payment persistence on gorm.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/pointagehq/pointage/internal/payment/domain"
	"gorm.io/gorm"
)

type gormRepository struct {
	db *gorm.DB
}

// Provide builds the payment repository.
func Provide(db *gorm.DB) paymentdomain.Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Insert(ctx context.Context, payment *paymentdomain.CoffeePayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *gormRepository) FindBySession(ctx context.Context, sessionID string) (*paymentdomain.CoffeePayment, error) {
	var payment paymentdomain.CoffeePayment
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, paymentdomain.ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (r *gormRepository) MarkPaid(ctx context.Context, sessionID, eventID string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&paymentdomain.CoffeePayment{}).
		Where("session_id = ? AND status = ?", sessionID, paymentdomain.StatusPending).
		Updates(map[string]any{
			"status":   paymentdomain.StatusPaid,
			"event_id": eventID,
			"paid_at":  at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *gormRepository) ListByOrg(ctx context.Context, orgID snowflake.ID) ([]paymentdomain.CoffeePayment, error) {
	var payments []paymentdomain.CoffeePayment
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}
