package handler_test

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"

	"syntra-ledger/internal/database/models"
	"syntra-ledger/internal/services/commissions/handler"
)

func TestBulkCalculate_SingleTransferUsesFixedRate(t *testing.T) {
	h, db := newCommissionHandler(t)
	ctx := context.Background()

	seedTransferType(t, db, "transfer", "200", true)
	t1 := seedTransfer(t, db, "deposit", int64Ptr(7))

	res, err := h.BulkCalculateTransferCommissions(ctx, []int64{t1})
	if err != nil {
		t.Fatalf("BulkCalculateTransferCommissions: %v", err)
	}
	if res.Total != 1 || res.Successful != 1 || res.Failed != 0 {
		t.Fatalf("unexpected counts %+v", res)
	}

	var rows []models.TransferCommission
	db.Where("transfer_id = ?", t1).Find(&rows)
	if len(rows) != 1 {
		t.Fatalf("expected one commission row, got %d", len(rows))
	}
	if !rows[0].Amount.Equal(dec("200")) || rows[0].Status != models.TransferCommissionPending || rows[0].EmployeeID != 7 {
		t.Errorf("unexpected commission %+v", rows[0])
	}
	if rows[0].TransferType != "transfer" {
		t.Errorf("expected label transfer, got %q", rows[0].TransferType)
	}
}

func TestBulkCalculate_ExistingCommissionFailsOnlyThatItem(t *testing.T) {
	h, db := newCommissionHandler(t)
	ctx := context.Background()

	seedTransferType(t, db, "transfer", "200", true)
	a := seedTransfer(t, db, "deposit", int64Ptr(1))
	b := seedTransfer(t, db, "deposit", int64Ptr(1))
	c := seedTransfer(t, db, "deposit", int64Ptr(2))

	if _, _, err := h.SaveOrUpdateTransferCommission(ctx, handler.SaveTransferCommissionRequest{
		TransferID: b, SalespersonID: 1, Commission: dec("99"),
	}); err != nil {
		t.Fatalf("SaveOrUpdateTransferCommission: %v", err)
	}

	res, err := h.BulkCalculateTransferCommissions(ctx, []int64{a, b, c})
	if err != nil {
		t.Fatalf("bulk must not fail for partial errors: %v", err)
	}
	if res.Total != 3 || res.Successful != 2 || res.Failed != 1 {
		t.Fatalf("unexpected counts %+v", res)
	}
	if len(res.Errors) != 1 || res.Errors[0].SubjectID != b || res.Errors[0].Code != codes.AlreadyExists.String() {
		t.Errorf("expected error naming %d, got %+v", b, res.Errors)
	}
	if res.Results[0].TransferID != a || res.Results[1].TransferID != c {
		t.Errorf("results out of input order: %+v", res.Results)
	}

	var existing models.TransferCommission
	db.Where("transfer_id = ?", b).First(&existing)
	if !existing.Amount.Equal(dec("99")) {
		t.Errorf("existing commission was modified: %+v", existing)
	}
}

func TestBulkCalculate_PerItemFailures(t *testing.T) {
	h, db := newCommissionHandler(t)
	ctx := context.Background()

	seedTransferType(t, db, "transfer", "200", true)
	seedTransferType(t, db, "topup", "50", false)
	noSales := seedTransfer(t, db, "deposit", nil)
	inactive := seedTransfer(t, db, "topup", int64Ptr(3))
	unconfigured := seedTransfer(t, db, "purchase", int64Ptr(3))
	ok := seedTransfer(t, db, "", int64Ptr(3))

	res, err := h.BulkCalculateTransferCommissions(ctx, []int64{noSales, 424242, inactive, unconfigured, ok})
	if err != nil {
		t.Fatalf("BulkCalculateTransferCommissions: %v", err)
	}
	if res.Successful != 1 || res.Failed != 4 {
		t.Fatalf("unexpected counts %+v", res)
	}

	wantCodes := map[int64]codes.Code{
		noSales:      codes.FailedPrecondition,
		424242:       codes.NotFound,
		inactive:     codes.FailedPrecondition,
		unconfigured: codes.FailedPrecondition,
	}
	for _, e := range res.Errors {
		if e.Code != wantCodes[e.SubjectID].String() {
			t.Errorf("subject %d: expected %v, got %s (%s)", e.SubjectID, wantCodes[e.SubjectID], e.Code, e.Reason)
		}
	}

	_, err = h.BulkCalculateTransferCommissions(ctx, nil)
	assertCode(t, err, codes.InvalidArgument)
}

func TestSaveOrUpdateTransferCommission(t *testing.T) {
	h, db := newCommissionHandler(t)
	ctx := context.Background()
	trx := seedTransfer(t, db, "topup", int64Ptr(4))

	first, created, err := h.SaveOrUpdateTransferCommission(ctx, handler.SaveTransferCommissionRequest{
		TransferID: trx, SalespersonID: 4, Commission: dec("120"),
	})
	if err != nil {
		t.Fatalf("SaveOrUpdateTransferCommission: %v", err)
	}
	if !created || first.Status != models.TransferCommissionPending || first.TransferType != "topup" {
		t.Errorf("unexpected create result created=%v %+v", created, first)
	}

	second, created, err := h.SaveOrUpdateTransferCommission(ctx, handler.SaveTransferCommissionRequest{
		TransferID: trx, SalespersonID: 5, Commission: dec("130"),
	})
	if err != nil {
		t.Fatalf("SaveOrUpdateTransferCommission: %v", err)
	}
	if created || second.ID != first.ID || !second.Amount.Equal(dec("130")) || second.EmployeeID != 5 {
		t.Errorf("expected in-place update, got created=%v %+v", created, second)
	}

	var count int64
	db.Model(&models.TransferCommission{}).Where("transfer_id = ?", trx).Count(&count)
	if count != 1 {
		t.Errorf("expected exactly one row, got %d", count)
	}

	got, err := h.GetTransferCommission(ctx, trx)
	if err != nil || got.ID != first.ID {
		t.Errorf("GetTransferCommission: %v %+v", err, got)
	}

	_, _, err = h.SaveOrUpdateTransferCommission(ctx, handler.SaveTransferCommissionRequest{
		TransferID: 31337, SalespersonID: 4, Commission: dec("1"),
	})
	assertCode(t, err, codes.NotFound)

	_, err = h.GetTransferCommission(ctx, 31337)
	assertCode(t, err, codes.NotFound)
}

func TestUpdateTransferCommissionStatus(t *testing.T) {
	h, db := newCommissionHandler(t)
	ctx := context.Background()
	trx := seedTransfer(t, db, "deposit", int64Ptr(4))

	cm, _, err := h.SaveOrUpdateTransferCommission(ctx, handler.SaveTransferCommissionRequest{
		TransferID: trx, SalespersonID: 4, Commission: dec("10"),
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = h.UpdateTransferCommissionStatus(ctx, cm.ID, "CANCELLED")
	assertCode(t, err, codes.InvalidArgument)

	same, err := h.UpdateTransferCommissionStatus(ctx, cm.ID, "pending")
	if err != nil || same.Status != models.TransferCommissionPending {
		t.Fatalf("re-setting the current status should be a no-op: %v %+v", err, same)
	}

	approved, err := h.UpdateTransferCommissionStatus(ctx, cm.ID, "APPROVED")
	if err != nil {
		t.Fatalf("UpdateTransferCommissionStatus: %v", err)
	}
	if approved.Status != models.TransferCommissionApproved || approved.ApprovedAt == nil || approved.PaidAt != nil {
		t.Errorf("unexpected approved commission %+v", approved)
	}

	paid, err := h.UpdateTransferCommissionStatus(ctx, cm.ID, "PAID")
	if err != nil {
		t.Fatalf("UpdateTransferCommissionStatus: %v", err)
	}
	if paid.Status != models.TransferCommissionPaid || paid.PaidAt == nil || paid.ApprovedAt == nil {
		t.Errorf("unexpected paid commission %+v", paid)
	}

	_, err = h.UpdateTransferCommissionStatus(ctx, cm.ID, "APPROVED")
	assertCode(t, err, codes.FailedPrecondition)

	_, err = h.UpdateTransferCommissionStatus(ctx, 999, "PAID")
	assertCode(t, err, codes.NotFound)
}

func TestUpdateTransferCommissionStatus_SkipToPaid(t *testing.T) {
	h, db := newCommissionHandler(t)
	ctx := context.Background()
	trx := seedTransfer(t, db, "deposit", int64Ptr(4))

	cm, _, err := h.SaveOrUpdateTransferCommission(ctx, handler.SaveTransferCommissionRequest{
		TransferID: trx, SalespersonID: 4, Commission: dec("10"),
	})
	if err != nil {
		t.Fatal(err)
	}
	paid, err := h.UpdateTransferCommissionStatus(ctx, cm.ID, "PAID")
	if err != nil {
		t.Fatalf("UpdateTransferCommissionStatus: %v", err)
	}
	if paid.ApprovedAt == nil || paid.PaidAt == nil {
		t.Errorf("expected both timestamps on skip, got %+v", paid)
	}
}
