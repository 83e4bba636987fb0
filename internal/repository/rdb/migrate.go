package rdb

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

//go:embed migrations/mysql/*.sql migrations/postgres/*.sql
var migrations embed.FS

// Migrate applies the embedded migrations of dialect
func Migrate(ctx context.Context, db *gorm.DB, dialect string) error {
	if dialect == "" {
		dialect = DialectMySQL
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(logrus.StandardLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations/"+dialect); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := goose.EnsureDBVersionContext(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("failed to get DB version: %w", err)
	}
	logrus.Infof("migrations applied, current DB version: %d", version)
	return nil
}
