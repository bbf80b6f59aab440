// Package repository implements badge persistence on gorm.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	badgedomain "github.com/pointagehq/pointage/internal/badge/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormRepository struct {
	db *gorm.DB
}

// Provide builds the badge repository.
func Provide(db *gorm.DB) badgedomain.Repository {
	return &gormRepository{db: db}
}

// ProvideEvents builds the badge-event ledger accessor.
func ProvideEvents(db *gorm.DB) badgedomain.EventRepository {
	return &eventRepository{db: db}
}

func (r *gormRepository) FindBySerial(ctx context.Context, serial string) (*badgedomain.Badge, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return nil, badgedomain.ErrInvalidSerial
	}
	var badge badgedomain.Badge
	err := r.db.WithContext(ctx).Where("serial = ?", serial).First(&badge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, badgedomain.ErrBadgeNotFound
		}
		return nil, err
	}
	return &badge, nil
}

func (r *gormRepository) ActiveAssignment(ctx context.Context, tx *gorm.DB, badgeID snowflake.ID, at time.Time, lock bool) (*badgedomain.BadgeAssignment, error) {
	if tx == nil {
		tx = r.db
	}
	query := tx.WithContext(ctx).
		Where("badge_id = ?", badgeID).
		Where("starts_at <= ?", at).
		Where("revoked_at IS NULL OR revoked_at > ?", at).
		Where("expires_at IS NULL OR expires_at > ?", at).
		Order("starts_at DESC")
	if lock && tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var assignment badgedomain.BadgeAssignment
	if err := query.First(&assignment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &assignment, nil
}

func (r *gormRepository) ActiveAssignmentForUser(ctx context.Context, userID snowflake.ID, at time.Time) (*badgedomain.BadgeAssignment, error) {
	var assignment badgedomain.BadgeAssignment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("starts_at <= ?", at).
		Where("revoked_at IS NULL OR revoked_at > ?", at).
		Where("expires_at IS NULL OR expires_at > ?", at).
		Order("starts_at DESC").
		First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &assignment, nil
}

func (r *gormRepository) Insert(ctx context.Context, badge *badgedomain.Badge) error {
	return r.db.WithContext(ctx).Create(badge).Error
}

func (r *gormRepository) InsertAssignment(ctx context.Context, assignment *badgedomain.BadgeAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *gormRepository) RevokeAssignment(ctx context.Context, assignmentID snowflake.ID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&badgedomain.BadgeAssignment{}).
		Where("id = ? AND revoked_at IS NULL", assignmentID).
		Update("revoked_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return badgedomain.ErrAssignmentNotFound
	}
	return nil
}

func (r *gormRepository) ListByOrg(ctx context.Context, orgID snowflake.ID) ([]badgedomain.Badge, error) {
	var badges []badgedomain.Badge
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC").
		Find(&badges).Error
	return badges, err
}

func (r *gormRepository) ListAssignmentsForUser(ctx context.Context, userID snowflake.ID) ([]badgedomain.BadgeAssignment, error) {
	var assignments []badgedomain.BadgeAssignment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("starts_at DESC").
		Find(&assignments).Error
	return assignments, err
}

type eventRepository struct {
	db *gorm.DB
}

func (r *eventRepository) ListForUser(ctx context.Context, userID snowflake.ID, from, to time.Time) ([]badgedomain.BadgeEvent, error) {
	var events []badgedomain.BadgeEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("occurred_at >= ? AND occurred_at <= ?", from, to).
		Order("occurred_at ASC, id ASC").
		Find(&events).Error
	return events, err
}

func (r *eventRepository) LastForUser(ctx context.Context, userID snowflake.ID, at time.Time) (*badgedomain.BadgeEvent, error) {
	var event badgedomain.BadgeEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("occurred_at <= ?", at).
		Order("occurred_at DESC, id DESC").
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) Append(ctx context.Context, tx *gorm.DB, event *badgedomain.BadgeEvent) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	if !event.Type.Valid() {
		return errors.New("invalid_event_type")
	}
	return tx.WithContext(ctx).Create(event).Error
}
