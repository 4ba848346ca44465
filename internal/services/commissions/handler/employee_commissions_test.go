package handler_test

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"

	"syntra-ledger/internal/database/models"
	"syntra-ledger/internal/services/commissions/handler"
	"syntra-ledger/internal/testutil"
	"syntra-ledger/internal/utils"
)

func commissionsFor(ids ...int64) []handler.EmployeeCommissionInput {
	out := make([]handler.EmployeeCommissionInput, len(ids))
	for i, id := range ids {
		out[i] = handler.EmployeeCommissionInput{
			EmployeeID:       id,
			CommissionType:   "percentage",
			CommissionValue:  dec("2.5"),
			CommissionAmount: dec("100"),
		}
	}
	return out
}

func TestSubmit_ResubmitReplacesRows(t *testing.T) {
	h, db := newCommissionHandler(t)
	testutil.SeedEmployees(t, db, 1, 2, 3)
	ctx := context.Background()

	if _, err := h.SubmitEmployeeCommissions(ctx, handler.SubmitCommissionsRequest{
		DPurchaseID: 50, Commissions: commissionsFor(1, 2),
	}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := h.SubmitEmployeeCommissions(ctx, handler.SubmitCommissionsRequest{
		DPurchaseID: 50, Commissions: commissionsFor(2, 3),
	}); err != nil {
		t.Fatalf("second submit: %v", err)
	}

	rows, err := h.GetEmployeeCommissions(ctx, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].EmployeeID != 2 || rows[1].EmployeeID != 3 {
		t.Errorf("expected exactly the second set, got %+v", rows)
	}
}

func TestSubmit_CsCommissionCreatedOnce(t *testing.T) {
	h, db := newCommissionHandler(t)
	testutil.SeedEmployees(t, db, 1)
	ctx := context.Background()

	first, err := h.SubmitEmployeeCommissions(ctx, handler.SubmitCommissionsRequest{DPurchaseID: 7, Commissions: commissionsFor(1)})
	if err != nil {
		t.Fatal(err)
	}
	if !first.CsCommissionCreated || first.CsCommission == nil || !first.CsCommission.CommissionAmount.Equal(dec("300")) {
		t.Fatalf("expected CS commission on first submit, got %+v", first)
	}

	second, err := h.SubmitEmployeeCommissions(ctx, handler.SubmitCommissionsRequest{DPurchaseID: 7, Commissions: commissionsFor(1)})
	if err != nil {
		t.Fatal(err)
	}
	if second.CsCommissionCreated || second.CsCommission == nil || second.CsCommission.ID != first.CsCommission.ID {
		t.Errorf("expected existing CS commission on resubmit, got %+v", second)
	}

	var count int64
	db.Model(&models.CsDepartmentCommission{}).Where("d_purchase_id = ?", 7).Count(&count)
	if count != 1 {
		t.Errorf("expected one CS commission, got %d", count)
	}
}

// The CS fee is best-effort: its failure must not roll back the employee
// commissions of the same submission.
func TestSubmit_CsFailureKeepsEmployeeCommissions(t *testing.T) {
	h, db := newCommissionHandler(t)
	testutil.SeedEmployees(t, db, 1, 2)
	ctx := context.Background()

	if err := db.Migrator().DropTable(&models.CsDepartmentCommission{}); err != nil {
		t.Fatalf("DropTable: %v", err)
	}

	res, err := h.SubmitEmployeeCommissions(ctx, handler.SubmitCommissionsRequest{DPurchaseID: 9, Commissions: commissionsFor(1, 2)})
	if err != nil {
		t.Fatalf("submit must succeed when the CS fee fails: %v", err)
	}
	if res.CsCommissionCreated || res.CsCommission != nil {
		t.Errorf("expected no CS commission, got %+v", res)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("expected one warning, got %v", res.Warnings)
	}

	rows, err := h.GetEmployeeCommissions(ctx, 9)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Errorf("employee commissions were rolled back, got %d rows", len(rows))
	}
}

func TestSubmit_InvalidEmployeesWriteNothing(t *testing.T) {
	h, db := newCommissionHandler(t)
	testutil.SeedEmployees(t, db, 1, 2)
	if err := db.Delete(&models.Employee{}, 2).Error; err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	res, err := h.SubmitEmployeeCommissions(ctx, handler.SubmitCommissionsRequest{DPurchaseID: 3, Commissions: commissionsFor(1, 2, 77)})
	assertCode(t, err, codes.InvalidArgument)
	if res == nil || len(res.InvalidEmployeeIDs) != 2 || res.InvalidEmployeeIDs[0] != 2 || res.InvalidEmployeeIDs[1] != 77 {
		t.Fatalf("expected invalid ids [2 77], got %+v", res)
	}

	var ec, cs int64
	db.Model(&models.EmployeeCommission{}).Count(&ec)
	db.Model(&models.CsDepartmentCommission{}).Count(&cs)
	if ec != 0 || cs != 0 {
		t.Errorf("expected no writes, got %d employee and %d CS rows", ec, cs)
	}
}

func TestSubmit_Validation(t *testing.T) {
	h, db := newCommissionHandler(t)
	testutil.SeedEmployees(t, db, 1)
	ctx := context.Background()
	total := dec("150")

	tests := []struct {
		name string
		req  handler.SubmitCommissionsRequest
	}{
		{"missing purchase", handler.SubmitCommissionsRequest{Commissions: commissionsFor(1)}},
		{"no commissions", handler.SubmitCommissionsRequest{DPurchaseID: 1}},
		{"duplicate employee", handler.SubmitCommissionsRequest{DPurchaseID: 1, Commissions: commissionsFor(1, 1)}},
		{"total mismatch", handler.SubmitCommissionsRequest{DPurchaseID: 1, Commissions: commissionsFor(1), TotalCommission: &total}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.SubmitEmployeeCommissions(ctx, tt.req)
			assertCode(t, err, codes.InvalidArgument)
		})
	}
}

func TestCsCommissionPaidToggle(t *testing.T) {
	h, db := newCommissionHandler(t)
	testutil.SeedEmployees(t, db, 1)
	ctx := context.Background()

	res, err := h.SubmitEmployeeCommissions(ctx, handler.SubmitCommissionsRequest{DPurchaseID: 11, Commissions: commissionsFor(1)})
	if err != nil {
		t.Fatal(err)
	}
	id := res.CsCommission.ID

	paid, err := h.UpdateCsCommissionPaid(ctx, id, true)
	if err != nil {
		t.Fatal(err)
	}
	if !paid.IsPaid || paid.PaidDate == nil || paid.Status != models.CsCommissionStatusPaid {
		t.Errorf("unexpected paid commission %+v", paid)
	}

	list, meta, err := h.ListCsCommissions(ctx, handler.ListCsCommissionsRequest{Paid: utils.BoolPtr(true)})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || meta.Total != 1 {
		t.Errorf("expected one paid commission, got %d (meta %+v)", len(list), meta)
	}

	unpaid, err := h.UpdateCsCommissionPaid(ctx, id, false)
	if err != nil {
		t.Fatal(err)
	}
	if unpaid.IsPaid || unpaid.PaidDate != nil || unpaid.Status != models.CsCommissionStatusPending {
		t.Errorf("unexpected unpaid commission %+v", unpaid)
	}

	stored, err := h.GetCsCommission(ctx, 11)
	if err != nil {
		t.Fatal(err)
	}
	if stored.PaidDate != nil {
		t.Errorf("paid_date was not cleared")
	}

	_, err = h.UpdateCsCommissionPaid(ctx, 12345, true)
	assertCode(t, err, codes.NotFound)
}

func TestGetPurchaseStatus(t *testing.T) {
	h, db := newCommissionHandler(t)
	testutil.SeedEmployees(t, db, 1, 2)
	ctx := context.Background()

	st, err := h.GetPurchaseStatus(ctx, 20)
	if err != nil {
		t.Fatal(err)
	}
	if st.Submitted || st.HasCsCommission {
		t.Errorf("expected empty status, got %+v", st)
	}

	if _, err := h.SubmitEmployeeCommissions(ctx, handler.SubmitCommissionsRequest{DPurchaseID: 20, Commissions: commissionsFor(1, 2)}); err != nil {
		t.Fatal(err)
	}
	st, err = h.GetPurchaseStatus(ctx, 20)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Submitted || st.EmployeeCommissionCount != 2 || !st.TotalEmployeeCommission.Equal(dec("200")) || !st.HasCsCommission || st.CsCommissionPaid {
		t.Errorf("unexpected status %+v", st)
	}

	_, err = h.GetCsCommission(ctx, 21)
	assertCode(t, err, codes.NotFound)
}
