package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storefront/internal/model"
)

// Open returns a connected GORM DB instance for the given driver ("mysql" or "sqlite").
// Driver errors such as unique-key violations are translated to gorm.ErrDuplicatedKey.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql", "":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	return db, nil
}

// NewMySQL returns a connected GORM DB instance.
func NewMySQL(dsn string) (*gorm.DB, error) {
	return Open("mysql", dsn)
}

// NewSQLiteMemory opens a private in-memory SQLite database with the schema applied.
// The pool is pinned to one connection because every SQLite memory connection is a
// separate database.
func NewSQLiteMemory() (*gorm.DB, error) {
	db, err := Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// models lists every table, children first so Reset can drop in order.
var models = []interface{}{
	&model.CartItem{},
	&model.Cart{},
	&model.Product{},
	&model.User{},
}

// Migrate runs auto-migrations for all models.
func Migrate(db *gorm.DB) error {
	for i := len(models) - 1; i >= 0; i-- {
		if err := db.AutoMigrate(models[i]); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// Reset drops all tables. Missing tables are ignored.
func Reset(db *gorm.DB) error {
	for _, table := range models {
		if err := db.Migrator().DropTable(table); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	return nil
}
