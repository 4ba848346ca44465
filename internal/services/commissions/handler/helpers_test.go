package handler_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"syntra-ledger/internal/cache"
	"syntra-ledger/internal/database/models"
	"syntra-ledger/internal/events"
	"syntra-ledger/internal/services/commissions/handler"
	userhandler "syntra-ledger/internal/services/user/handler"
	"syntra-ledger/internal/testutil"
)

func newCommissionHandler(t *testing.T) (*handler.CommissionHandler, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	store := cache.NewMemoryStore(time.Minute, time.Minute)
	h := handler.NewCommissionHandler(db, store, events.NopPublisher{}, userhandler.NewUserHandler(db, store), handler.Options{
		CsFlatFee:       decimal.NewFromInt(300),
		BulkConcurrency: 2,
	})
	return h, db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func int64Ptr(v int64) *int64 {
	return &v
}

func strPtr(s string) *string {
	return &s
}

func seedTransfer(t *testing.T, db *gorm.DB, trxType string, salesperson *int64) int64 {
	t.Helper()
	trx := models.Transaction{
		Type:           trxType,
		DocumentNumber: "TRX-" + uuid.NewString(),
		CustomerID:     1,
		SalespersonID:  salesperson,
		AmountRMB:      dec("1000"),
	}
	if err := db.Create(&trx).Error; err != nil {
		t.Fatalf("failed to seed transfer: %v", err)
	}
	return trx.ID
}

func seedTransferType(t *testing.T, db *gorm.DB, name, rate string, active bool) {
	t.Helper()
	tt := models.TransferType{TypeName: name, CommissionRate: dec(rate), IsActive: active}
	if err := db.Create(&tt).Error; err != nil {
		t.Fatalf("failed to seed transfer type: %v", err)
	}
}

func assertCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	if got := status.Code(err); got != want {
		t.Fatalf("expected code %v, got %v (%v)", want, got, err)
	}
}
