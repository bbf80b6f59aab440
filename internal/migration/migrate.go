// Package migration applies the embedded SQL schema at startup. Migrations
// are plain files ordered by name; each applied file is recorded in
// schema_migrations so restarts are idempotent.
package migration

import (
	"fmt"
	"path"
	"sort"
	"time"

	"gorm.io/gorm"
)

// RunMigrations applies every pending migration in lexical order.
func RunMigrations(db *gorm.DB) error {
	if err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL
	)`).Error; err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	entries, err := embeddedMigrations.ReadDir(migrationsDir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var count int64
		if err := db.Table("schema_migrations").Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := apply(db, name); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}
	return nil
}

func apply(db *gorm.DB, name string) error {
	script, err := embeddedMigrations.ReadFile(path.Join(migrationsDir, name))
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(string(script)).Error; err != nil {
			return err
		}
		return tx.Exec(
			`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`,
			name, time.Now().UTC(),
		).Error
	})
}
