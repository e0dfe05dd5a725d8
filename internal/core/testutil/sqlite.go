// Package testutil holds in-memory doubles shared by package suites.
package testutil

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	departmentDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/department"
	transactionDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/transaction"
	userDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/user"
)

// OpenSQLite returns a single-connection in-memory database with foreign keys enforced
// and every payflow table migrated.
func OpenSQLite() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&userDatamodel.User{},
		&userDatamodel.Permission{},
		&userDatamodel.UserPermission{},
		&departmentDatamodel.Department{},
		&transactionDatamodel.Transaction{},
	)
	if err != nil {
		return nil, err
	}
	return db, nil
}
