// Package repository implements topology persistence on gorm.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	topologydomain "github.com/pointagehq/pointage/internal/topology/domain"
	"gorm.io/gorm"
)

type gormRepository struct {
	db *gorm.DB
}

// Provide builds the topology repository.
func Provide(db *gorm.DB) topologydomain.Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindReader(ctx context.Context, readerID snowflake.ID) (*topologydomain.Reader, error) {
	var reader topologydomain.Reader
	err := r.db.WithContext(ctx).First(&reader, "id = ?", readerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, topologydomain.ErrReaderNotFound
		}
		return nil, err
	}
	return &reader, nil
}

func (r *gormRepository) ZonesForReader(ctx context.Context, readerID snowflake.ID) ([]topologydomain.Zone, error) {
	var zones []topologydomain.Zone
	err := r.db.WithContext(ctx).
		Joins("JOIN reader_zones ON reader_zones.zone_id = zones.id").
		Where("reader_zones.reader_id = ?", readerID).
		Order("zones.is_principal DESC, zones.name ASC").
		Find(&zones).Error
	return zones, err
}

func (r *gormRepository) GrantsForUser(ctx context.Context, userID snowflake.ID, at time.Time) ([]topologydomain.AccessGrant, error) {
	var grants []topologydomain.AccessGrant
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("starts_at <= ?", at).
		Where("expires_at IS NULL OR expires_at > ?", at).
		Find(&grants).Error
	return grants, err
}

func (r *gormRepository) FindZone(ctx context.Context, zoneID snowflake.ID) (*topologydomain.Zone, error) {
	var zone topologydomain.Zone
	err := r.db.WithContext(ctx).First(&zone, "id = ?", zoneID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, topologydomain.ErrZoneNotFound
		}
		return nil, err
	}
	return &zone, nil
}

func (r *gormRepository) InsertReader(ctx context.Context, reader *topologydomain.Reader) error {
	return r.db.WithContext(ctx).Create(reader).Error
}

func (r *gormRepository) InsertZone(ctx context.Context, zone *topologydomain.Zone) error {
	return r.db.WithContext(ctx).Create(zone).Error
}

func (r *gormRepository) LinkReaderZone(ctx context.Context, link *topologydomain.ReaderZone) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *gormRepository) InsertGrant(ctx context.Context, grant *topologydomain.AccessGrant) error {
	return r.db.WithContext(ctx).Create(grant).Error
}

func (r *gormRepository) InsertAPIKey(ctx context.Context, key *topologydomain.ReaderAPIKey) error {
	return r.db.WithContext(ctx).Create(key).Error
}

func (r *gormRepository) ListReadersByOrg(ctx context.Context, orgID snowflake.ID) ([]topologydomain.Reader, error) {
	var readers []topologydomain.Reader
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("reference ASC").
		Find(&readers).Error
	return readers, err
}

func (r *gormRepository) ListZonesByOrg(ctx context.Context, orgID snowflake.ID) ([]topologydomain.Zone, error) {
	var zones []topologydomain.Zone
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("is_principal DESC, name ASC").
		Find(&zones).Error
	return zones, err
}
