// Package testutil builds throwaway databases for package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"syntra-ledger/config"
	"syntra-ledger/internal/database"
	"syntra-ledger/internal/database/models"
)

// NewDB opens a private in-memory sqlite database with the ledger schema.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8])

	db, err := database.NewConnection(config.DBConfig{
		Driver:   "sqlite",
		DSN:      dsn,
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.MigrateLedgerDB(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SeedEmployees inserts active employees with the given ids.
func SeedEmployees(t testing.TB, db *gorm.DB, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		emp := models.Employee{
			ID:           id,
			EmployeeName: fmt.Sprintf("Employee %d", id),
			Department:   "sales",
			IsActive:     true,
		}
		if err := db.Create(&emp).Error; err != nil {
			t.Fatalf("failed to seed employee %d: %v", id, err)
		}
	}
}
