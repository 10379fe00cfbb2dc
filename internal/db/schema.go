package db

import "gorm.io/gorm"

// EnsureExtensions enables the Postgres extensions the store depends on.
func EnsureExtensions(d *gorm.DB) error {
	for _, ext := range []string{"postgis", "pg_trgm"} {
		if err := d.Exec(`CREATE EXTENSION IF NOT EXISTS ` + ext).Error; err != nil {
			return err
		}
	}
	return nil
}
