// Package repository implements organisation persistence on gorm.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	organizationdomain "github.com/pointagehq/pointage/internal/organization/domain"
	"gorm.io/gorm"
)

type gormRepository struct {
	db *gorm.DB
}

// Provide builds the organisation repository.
func Provide(db *gorm.DB) organizationdomain.Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindOrganisation(ctx context.Context, orgID snowflake.ID) (*organizationdomain.Organisation, error) {
	var org organizationdomain.Organisation
	err := r.db.WithContext(ctx).First(&org, "id = ?", orgID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, organizationdomain.ErrNotFound
		}
		return nil, err
	}
	return &org, nil
}

func (r *gormRepository) ListOrganisations(ctx context.Context) ([]organizationdomain.Organisation, error) {
	var orgs []organizationdomain.Organisation
	err := r.db.WithContext(ctx).Order("name ASC").Find(&orgs).Error
	return orgs, err
}

func (r *gormRepository) FindUser(ctx context.Context, userID snowflake.ID) (*organizationdomain.User, error) {
	var user organizationdomain.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, organizationdomain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) FindUserByEmail(ctx context.Context, email string) (*organizationdomain.User, error) {
	var user organizationdomain.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, organizationdomain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) ListUsersByOrg(ctx context.Context, orgID snowflake.ID) ([]organizationdomain.User, error) {
	var users []organizationdomain.User
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("display_name ASC").
		Find(&users).Error
	return users, err
}

func (r *gormRepository) InsertOrganisation(ctx context.Context, org *organizationdomain.Organisation) error {
	return r.db.WithContext(ctx).Create(org).Error
}

func (r *gormRepository) InsertUser(ctx context.Context, user *organizationdomain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *gormRepository) UpdateUser(ctx context.Context, user *organizationdomain.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *gormRepository) DeactivateUser(ctx context.Context, userID snowflake.ID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&organizationdomain.User{}).
		Where("id = ? AND deactivated_at IS NULL", userID).
		Updates(map[string]any{"deactivated_at": at, "updated_at": at})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return organizationdomain.ErrUserNotFound
	}
	return nil
}

func (r *gormRepository) InsertToken(ctx context.Context, token *organizationdomain.UserToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *gormRepository) FindTokenByHash(ctx context.Context, hash string) (*organizationdomain.UserToken, error) {
	var token organizationdomain.UserToken
	err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, organizationdomain.ErrBadCredentials
		}
		return nil, err
	}
	return &token, nil
}
