// Package seed bootstraps a usable installation: a default organisation with
// an admin account, and optionally a small demo topology for local work.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pointagehq/pointage/internal/auth/password"
	badgedomain "github.com/pointagehq/pointage/internal/badge/domain"
	organizationdomain "github.com/pointagehq/pointage/internal/organization/domain"
	topodomain "github.com/pointagehq/pointage/internal/topology/domain"
	"gorm.io/gorm"
)

const (
	defaultOrgName  = "Main"
	defaultOrgSlug  = "main"
	defaultTimezone = "Europe/Paris"

	defaultAdminEmail    = "admin@pointage.local"
	defaultAdminPassword = "changeme-admin"
	defaultAdminDisplay  = "Pointage Admin"
)

// EnsureDefaultOrgAndAdmin seeds the default organisation and admin user.
func EnsureDefaultOrgAndAdmin(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := ensureDefaultOrgTx(ctx, tx, node)
		if err != nil {
			return err
		}

		var user organizationdomain.User
		err = tx.WithContext(ctx).Where("email = ?", defaultAdminEmail).First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := password.Hash(defaultAdminPassword)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		user = organizationdomain.User{
			ID:           node.Generate(),
			OrgID:        org.ID,
			Email:        strings.ToLower(defaultAdminEmail),
			DisplayName:  defaultAdminDisplay,
			PasswordHash: &hashed,
			Role:         organizationdomain.RoleAdmin,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.WithContext(ctx).Create(&user).Error
	})
}

// EnsureDemoTopology seeds one principal zone, one reader opening it, and one
// unassigned badge, so a fresh install can record a pointage end to end.
func EnsureDemoTopology(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := ensureDefaultOrgTx(ctx, tx, node)
		if err != nil {
			return err
		}

		var reader topodomain.Reader
		err = tx.WithContext(ctx).Where("reference = ?", "DEMO-READER").First(&reader).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		zone := topodomain.Zone{
			ID:          node.Generate(),
			OrgID:       org.ID,
			Name:        "Site principal",
			IsPrincipal: true,
			CreatedAt:   now,
		}
		reader = topodomain.Reader{
			ID:          node.Generate(),
			OrgID:       org.ID,
			Reference:   "DEMO-READER",
			InstalledAt: now,
			CreatedAt:   now,
		}
		badge := badgedomain.Badge{
			ID:        node.Generate(),
			OrgID:     org.ID,
			Serial:    "DEMO-0001",
			CreatedAt: now,
		}
		link := topodomain.ReaderZone{
			ID:       node.Generate(),
			ReaderID: reader.ID,
			ZoneID:   zone.ID,
		}

		for _, row := range []any{&zone, &reader, &badge, &link} {
			if err := tx.WithContext(ctx).Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureDefaultOrgTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (organizationdomain.Organisation, error) {
	var org organizationdomain.Organisation
	err := tx.WithContext(ctx).Where("slug = ?", defaultOrgSlug).First(&org).Error
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return org, err
	}

	now := time.Now().UTC()
	org = organizationdomain.Organisation{
		ID:           node.Generate(),
		Name:         defaultOrgName,
		Slug:         defaultOrgSlug,
		TimezoneName: defaultTimezone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&org).Error; err != nil {
		return org, err
	}
	return org, nil
}
