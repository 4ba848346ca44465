package handler_test

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"syntra-ledger/internal/cache"
	"syntra-ledger/internal/database/models"
	"syntra-ledger/internal/services/user/handler"
	"syntra-ledger/internal/testutil"
)

func TestFindInvalidEmployeeIDs(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedEmployees(t, db, 1, 2, 3)

	// 2 is inactive, 3 is deleted
	if err := db.Model(&models.Employee{}).Where("id = ?", 2).Update("is_active", false).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Delete(&models.Employee{}, 3).Error; err != nil {
		t.Fatal(err)
	}

	dir := handler.NewUserHandler(db, cache.NewMemoryStore(time.Minute, time.Minute))
	invalid, err := dir.FindInvalidEmployeeIDs(context.Background(), []int64{1, 2, 3, 99})
	if err != nil {
		t.Fatalf("FindInvalidEmployeeIDs: %v", err)
	}
	want := []int64{2, 3, 99}
	if len(invalid) != len(want) {
		t.Fatalf("got %v, want %v", invalid, want)
	}
	for i := range want {
		if invalid[i] != want[i] {
			t.Errorf("got %v, want %v", invalid, want)
		}
	}
}

func TestGetEmployee(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedEmployees(t, db, 5)
	dir := handler.NewUserHandler(db, cache.NewMemoryStore(time.Minute, time.Minute))
	ctx := context.Background()

	emp, err := dir.GetEmployee(ctx, 5)
	if err != nil {
		t.Fatalf("GetEmployee: %v", err)
	}
	if emp.EmployeeName != "Employee 5" {
		t.Errorf("unexpected name %q", emp.EmployeeName)
	}

	// served from cache after the row is gone
	if err := db.Unscoped().Delete(&models.Employee{}, 5).Error; err != nil {
		t.Fatal(err)
	}
	if _, err := dir.GetEmployee(ctx, 5); err != nil {
		t.Errorf("expected cached employee, got %v", err)
	}

	dir.InvalidateEmployeeCaches(ctx, 5)
	_, err = dir.GetEmployee(ctx, 5)
	if status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestEmployeeNames_IncludesDeleted(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedEmployees(t, db, 1, 2)
	if err := db.Delete(&models.Employee{}, 2).Error; err != nil {
		t.Fatal(err)
	}

	dir := handler.NewUserHandler(db, cache.NewMemoryStore(time.Minute, time.Minute))
	names, err := dir.EmployeeNames(context.Background(), []int64{1, 2})
	if err != nil {
		t.Fatalf("EmployeeNames: %v", err)
	}
	if names[1] != "Employee 1" || names[2] != "Employee 2" {
		t.Errorf("unexpected names %v", names)
	}
}
