package handler_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"syntra-ledger/internal/database/models"
	"syntra-ledger/internal/events"
	"syntra-ledger/internal/services/ledger/handler"
	"syntra-ledger/internal/storage"
	"syntra-ledger/internal/testutil"
	"syntra-ledger/internal/utils"
)

func newLedgerHandler(t *testing.T) (*handler.LedgerHandler, *gorm.DB, string) {
	t.Helper()
	db := testutil.NewDB(t)
	dir := t.TempDir()
	files, err := storage.NewLocalStore(dir, "/uploads/")
	if err != nil {
		t.Fatal(err)
	}
	docnums, err := utils.NewDocumentNumberGenerator(1)
	if err != nil {
		t.Fatal(err)
	}
	return handler.NewLedgerHandler(db, files, events.NopPublisher{}, docnums), db, dir
}

func assertCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	if got := status.Code(err); got != want {
		t.Fatalf("expected code %v, got %v (%v)", want, got, err)
	}
}

func count(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func TestCreateRecordBuildsGraph(t *testing.T) {
	h, _, dir := newLedgerHandler(t)
	ctx := context.Background()

	sub := handler.NormalizeSubmission(map[string]string{
		"type":                             "deposit",
		"customerId":                       "5",
		"salespersonId":                    "3",
		"customerDeposit.amountRMB":        "1000",
		"customerDeposit.exchangeRate":     "5",
		"customerDeposit.receivingAccount": "SCB 001",
	})
	files := []handler.UploadedFile{
		{Field: handler.SlipFieldCustomerDeposit, Name: "slip.PNG", Reader: strings.NewReader("png-bytes")},
	}

	res, err := h.CreateRecord(ctx, sub, files)
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	trx := res.Transaction
	if trx.ID == 0 || trx.CustomerDepositID == nil || trx.ExchangeID != nil {
		t.Fatalf("unexpected transaction %+v", trx)
	}
	if !strings.HasPrefix(trx.DocumentNumber, "TRX-") {
		t.Errorf("expected generated document number, got %q", trx.DocumentNumber)
	}
	if !trx.AmountRMB.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("transaction amount should come from the deposit, got %v", trx.AmountRMB)
	}
	if trx.Date == nil {
		t.Errorf("date should default to now")
	}

	slip := trx.CustomerDeposit.TransferSlipURL
	if !strings.HasPrefix(slip, "/uploads/") || !strings.HasSuffix(slip, ".png") {
		t.Errorf("unexpected slip url %q", slip)
	}
	if _, err := os.Stat(filepath.Join(dir, strings.TrimPrefix(slip, "/uploads/"))); err != nil {
		t.Errorf("slip file not written: %v", err)
	}

	rec := res.FinancialRecord
	if rec.FinancialTransactionID != trx.ID {
		t.Errorf("financial record not linked: %+v", rec)
	}
	if !rec.AmountTHB.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("amount THB should be amountRMB*rate when amount is empty, got %v", rec.AmountTHB)
	}
	if rec.PayTo != "SCB 001" || rec.TransferSlip != slip || !strings.Contains(rec.Title, trx.DocumentNumber) {
		t.Errorf("unexpected financial record %+v", rec)
	}

	got, err := h.GetRecord(ctx, trx.ID)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if got.Transaction.CustomerDeposit == nil || got.FinancialRecord == nil {
		t.Errorf("GetRecord should load the full graph: %+v", got)
	}
}

func TestCreateRecordValidation(t *testing.T) {
	h, db, _ := newLedgerHandler(t)
	ctx := context.Background()

	_, err := h.CreateRecord(ctx, handler.NormalizeSubmission(map[string]string{"type": "deposit"}), nil)
	assertCode(t, err, codes.InvalidArgument)

	_, err = h.CreateRecord(ctx, handler.NormalizeSubmission(map[string]string{"customerId": "1"}), []handler.UploadedFile{
		{Field: "avatar", Name: "a.png", Reader: strings.NewReader("x")},
	})
	assertCode(t, err, codes.InvalidArgument)

	if n := count(t, db, &models.Transaction{}, "1 = 1"); n != 0 {
		t.Errorf("no transaction should be written, got %d", n)
	}

	first := handler.NormalizeSubmission(map[string]string{"customerId": "1", "documentNumber": "DOC-9"})
	if _, err := h.CreateRecord(ctx, first, nil); err != nil {
		t.Fatal(err)
	}
	dup := handler.NormalizeSubmission(map[string]string{
		"customerId":         "1",
		"documentNumber":     "DOC-9",
		"exchange.amountRMB": "10",
	})
	_, err = h.CreateRecord(ctx, dup, nil)
	assertCode(t, err, codes.AlreadyExists)

	if n := count(t, db, &models.Exchange{}, "1 = 1"); n != 0 {
		t.Errorf("failed create should roll back the exchange row, got %d", n)
	}
}

func TestUpdateRecordKeepsSingleFinancialRecord(t *testing.T) {
	h, db, _ := newLedgerHandler(t)
	ctx := context.Background()

	res, err := h.CreateRecord(ctx, handler.NormalizeSubmission(map[string]string{
		"customerId":         "1",
		"notes":              "original",
		"exchange.amountRMB": "100",
		"exchange.amount":    "520",
	}), nil)
	if err != nil {
		t.Fatal(err)
	}
	id := res.Transaction.ID

	if _, err := h.UpdateRecord(ctx, id, handler.NormalizeSubmission(map[string]string{
		"exchange.amount": "530",
	}), nil); err != nil {
		t.Fatalf("first update: %v", err)
	}
	upd, err := h.UpdateRecord(ctx, id, handler.NormalizeSubmission(map[string]string{
		"customerDeposit.amountRMB": "40",
	}), nil)
	if err != nil {
		t.Fatalf("second update: %v", err)
	}

	if upd.Transaction.Notes != "original" {
		t.Errorf("unsupplied fields must be kept, notes = %q", upd.Transaction.Notes)
	}
	if upd.Transaction.CustomerDepositID == nil {
		t.Errorf("missing side should be created on update")
	}
	if !upd.Transaction.Exchange.AmountRMB.Equal(decimal.NewFromInt(100)) {
		t.Errorf("exchange amountRMB should be unchanged, got %v", upd.Transaction.Exchange.AmountRMB)
	}
	if !upd.FinancialRecord.AmountTHB.Equal(decimal.NewFromInt(530)) {
		t.Errorf("financial record should follow the exchange, got %v", upd.FinancialRecord.AmountTHB)
	}
	if n := count(t, db, &models.FinancialRecord{}, "financial_transaction_id = ?", id); n != 1 {
		t.Errorf("expected one financial record, got %d", n)
	}

	if err := db.Where("financial_transaction_id = ?", id).Delete(&models.FinancialRecord{}).Error; err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := h.UpdateRecord(ctx, id, &handler.Submission{}, nil); err != nil {
			t.Fatal(err)
		}
	}
	if n := count(t, db, &models.FinancialRecord{}, "financial_transaction_id = ?", id); n != 1 {
		t.Errorf("missing financial record should be recreated once, got %d", n)
	}

	_, err = h.UpdateRecord(ctx, 9999, &handler.Submission{}, nil)
	assertCode(t, err, codes.NotFound)
}

func TestDeleteRecordCascadesToOwnedRowsOnly(t *testing.T) {
	h, db, _ := newLedgerHandler(t)
	ctx := context.Background()

	create := func() *handler.RecordResult {
		res, err := h.CreateRecord(ctx, handler.NormalizeSubmission(map[string]string{
			"customerId":                "1",
			"customerDeposit.amountRMB": "10",
			"exchange.amountRMB":        "20",
		}), nil)
		if err != nil {
			t.Fatal(err)
		}
		return res
	}
	doomed := create()
	kept := create()

	if err := h.DeleteRecord(ctx, doomed.Transaction.ID); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}

	if n := count(t, db, &models.Transaction{}, "id = ?", doomed.Transaction.ID); n != 0 {
		t.Errorf("transaction should be deleted")
	}
	if n := count(t, db, &models.CustomerDeposit{}, "id = ?", *doomed.Transaction.CustomerDepositID); n != 0 {
		t.Errorf("owned deposit should be deleted")
	}
	if n := count(t, db, &models.Exchange{}, "id = ?", *doomed.Transaction.ExchangeID); n != 0 {
		t.Errorf("owned exchange should be deleted")
	}

	if n := count(t, db, &models.Transaction{}, "id = ?", kept.Transaction.ID); n != 1 {
		t.Errorf("other transaction must survive")
	}
	if n := count(t, db, &models.CustomerDeposit{}, "id = ?", *kept.Transaction.CustomerDepositID); n != 1 {
		t.Errorf("other deposit must survive")
	}
	if n := count(t, db, &models.Exchange{}, "id = ?", *kept.Transaction.ExchangeID); n != 1 {
		t.Errorf("other exchange must survive")
	}

	assertCode(t, h.DeleteRecord(ctx, doomed.Transaction.ID), codes.NotFound)
}

func TestListRecords(t *testing.T) {
	h, _, _ := newLedgerHandler(t)
	ctx := context.Background()

	for _, c := range []string{"1", "1", "2"} {
		if _, err := h.CreateRecord(ctx, handler.NormalizeSubmission(map[string]string{"customerId": c, "type": "deposit"}), nil); err != nil {
			t.Fatal(err)
		}
	}

	records, meta, err := h.ListRecords(ctx, handler.ListRecordsRequest{CustomerID: 1, Limit: 1})
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(records) != 1 || meta.Total != 2 || meta.TotalPages != 2 {
		t.Errorf("unexpected page %d records, meta %+v", len(records), meta)
	}

	_, _, err = h.ListRecords(ctx, handler.ListRecordsRequest{StartDate: "soon"})
	assertCode(t, err, codes.InvalidArgument)
}
