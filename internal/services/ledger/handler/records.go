package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"syntra-ledger/internal/database"
	"syntra-ledger/internal/database/models"
	"syntra-ledger/internal/events"
	"syntra-ledger/internal/storage"
	"syntra-ledger/internal/utils"
)

const (
	SlipFieldTransfer        = "transferSlip"
	SlipFieldCustomerDeposit = "customerDeposit.transferSlip"
	SlipFieldExchange        = "exchange.transferSlip"

	documentNumberPrefix = "TRX"
)

type UploadedFile struct {
	Field  string
	Name   string
	Reader io.Reader
}

type RecordResult struct {
	Transaction     *models.Transaction     `json:"transaction"`
	FinancialRecord *models.FinancialRecord `json:"financial_record"`
}

type ListRecordsRequest struct {
	Page          int
	Limit         int
	CustomerID    int64
	SalespersonID int64
	Type          string
	StartDate     string
	EndDate       string
}

type LedgerHandler struct {
	db      *gorm.DB
	files   storage.FileStore
	events  events.Publisher
	docnums *utils.DocumentNumberGenerator
}

func NewLedgerHandler(db *gorm.DB, files storage.FileStore, publisher events.Publisher, docnums *utils.DocumentNumberGenerator) *LedgerHandler {
	return &LedgerHandler{
		db:      db,
		files:   files,
		events:  publisher,
		docnums: docnums,
	}
}

func (h *LedgerHandler) publish(ctx context.Context, eventType string, id int64, data interface{}) {
	err := h.events.Publish(ctx, events.Event{EventType: eventType, EntityID: id, Timestamp: time.Now(), Data: data})
	if err != nil {
		log.Printf("Failed to publish %s event for %d: %v", eventType, id, err)
	}
}

// saveSlips stores uploaded slips before any row is written and records
// their URLs on the submission.
func (h *LedgerHandler) saveSlips(ctx context.Context, sub *Submission, files []UploadedFile) error {
	for _, f := range files {
		if f.Reader == nil {
			continue
		}
		var target **string
		switch f.Field {
		case SlipFieldTransfer:
			target = &sub.TransferSlipURL
		case SlipFieldCustomerDeposit:
			target = &sub.section(sectionCustomerDeposit).TransferSlipURL
		case SlipFieldExchange:
			target = &sub.section(sectionExchange).TransferSlipURL
		default:
			return status.Errorf(codes.InvalidArgument, "Unknown file field %q", f.Field)
		}

		url, err := h.files.Save(ctx, f.Name, f.Reader)
		if err != nil {
			return status.Errorf(codes.Internal, "Failed to save %s: %v", f.Field, err)
		}
		*target = &url
	}
	return nil
}

// recordTitle reads like "Exchange (topup) TRX-1234".
func recordTitle(trx *models.Transaction, deposit *models.CustomerDeposit, exchange *models.Exchange) string {
	label := "Transfer"
	switch {
	case exchange != nil:
		label = "Exchange"
	case deposit != nil:
		label = "Customer deposit"
	}
	if trx.Type != "" {
		label = fmt.Sprintf("%s (%s)", label, trx.Type)
	}
	return label + " " + trx.DocumentNumber
}

// fillFinancialRecord derives the audit row from the exchange side when
// present, else the deposit side, else the transaction itself.
func fillFinancialRecord(rec *models.FinancialRecord, trx *models.Transaction, deposit *models.CustomerDeposit, exchange *models.Exchange) {
	var src *models.MoneyMovement
	switch {
	case exchange != nil:
		src = &exchange.MoneyMovement
	case deposit != nil:
		src = &deposit.MoneyMovement
	}

	rec.FinancialTransactionID = trx.ID
	rec.AmountRMB = trx.AmountRMB
	rec.TransferSlip = trx.TransferSlipURL
	rec.Title = recordTitle(trx, deposit, exchange)
	if src == nil {
		return
	}

	rec.AmountRMB = src.AmountRMB
	rec.AmountTHB = src.Amount
	if rec.AmountTHB.IsZero() && !src.ExchangeRate.IsZero() {
		rec.AmountTHB = src.AmountRMB.Mul(src.ExchangeRate).Round(2)
	}
	if src.TransferSlipURL != "" {
		rec.TransferSlip = src.TransferSlipURL
	}
	rec.PayTo = src.ReceivingAccount
}

// CreateRecord writes the movement rows, the transaction and its financial
// record in one transaction. Slips are saved first so no row can reference
// a file that failed to save.
func (h *LedgerHandler) CreateRecord(ctx context.Context, sub *Submission, files []UploadedFile) (*RecordResult, error) {
	if sub == nil || sub.CustomerID == nil || *sub.CustomerID <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "customerId is required")
	}
	if err := h.saveSlips(ctx, sub, files); err != nil {
		return nil, err
	}

	var (
		trx models.Transaction
		rec models.FinancialRecord
	)
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var deposit *models.CustomerDeposit
		if sub.CustomerDeposit != nil {
			deposit = &models.CustomerDeposit{MoneyMovement: sub.CustomerDeposit.toMovement()}
			if err := tx.Create(deposit).Error; err != nil {
				return status.Errorf(codes.Internal, "Failed to create customer deposit: %v", err)
			}
		}

		var exchange *models.Exchange
		if sub.Exchange != nil {
			exchange = &models.Exchange{MoneyMovement: sub.Exchange.toMovement()}
			if sub.Exchange.ExchangeType != nil {
				exchange.ExchangeType = *sub.Exchange.ExchangeType
			}
			if err := tx.Create(exchange).Error; err != nil {
				return status.Errorf(codes.Internal, "Failed to create exchange: %v", err)
			}
		}

		now := time.Now()
		trx = models.Transaction{
			Date:       &now,
			CustomerID: *sub.CustomerID,
		}
		applyTransactionFields(&trx, sub)
		if trx.DocumentNumber == "" {
			trx.DocumentNumber = h.docnums.Next(documentNumberPrefix)
		}
		if sub.AmountRMB == nil {
			switch {
			case exchange != nil:
				trx.AmountRMB = exchange.AmountRMB
			case deposit != nil:
				trx.AmountRMB = deposit.AmountRMB
			}
		}
		if trx.TransferDate == nil {
			switch {
			case exchange != nil && exchange.TransferDate != nil:
				trx.TransferDate = exchange.TransferDate
			case deposit != nil && deposit.TransferDate != nil:
				trx.TransferDate = deposit.TransferDate
			}
		}
		if deposit != nil {
			trx.CustomerDepositID = &deposit.ID
		}
		if exchange != nil {
			trx.ExchangeID = &exchange.ID
		}

		if err := tx.Omit(clause.Associations).Create(&trx).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return status.Errorf(codes.AlreadyExists, "Document number %s already exists", trx.DocumentNumber)
			}
			return status.Errorf(codes.Internal, "Failed to create transaction: %v", err)
		}

		fillFinancialRecord(&rec, &trx, deposit, exchange)
		if err := tx.Create(&rec).Error; err != nil {
			return status.Errorf(codes.Internal, "Failed to create financial record: %v", err)
		}

		trx.CustomerDeposit = deposit
		trx.Exchange = exchange
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.publish(ctx, events.RecordCreated, trx.ID, map[string]interface{}{
		"document_number": trx.DocumentNumber,
		"customer_id":     trx.CustomerID,
	})
	return &RecordResult{Transaction: &trx, FinancialRecord: &rec}, nil
}

func applyTransactionFields(trx *models.Transaction, sub *Submission) {
	if sub.Type != nil {
		trx.Type = *sub.Type
	}
	if sub.Date != nil {
		trx.Date = sub.Date
	}
	if sub.DocumentNumber != nil && *sub.DocumentNumber != "" {
		trx.DocumentNumber = *sub.DocumentNumber
	}
	if sub.CustomerID != nil && *sub.CustomerID > 0 {
		trx.CustomerID = *sub.CustomerID
	}
	if sub.SalespersonID != nil {
		if *sub.SalespersonID > 0 {
			id := *sub.SalespersonID
			trx.SalespersonID = &id
		} else {
			trx.SalespersonID = nil
		}
	}
	if sub.AmountRMB != nil {
		trx.AmountRMB = *sub.AmountRMB
	}
	if sub.TransferDate != nil {
		trx.TransferDate = sub.TransferDate
	}
	if sub.TransferSlipURL != nil {
		trx.TransferSlipURL = *sub.TransferSlipURL
	}
	if sub.Notes != nil {
		trx.Notes = *sub.Notes
	}
}

// UpdateRecord applies only the supplied fields. A side that does not exist
// yet is created, and the financial record is updated in place or created
// if it is missing, never duplicated.
func (h *LedgerHandler) UpdateRecord(ctx context.Context, id int64, sub *Submission, files []UploadedFile) (*RecordResult, error) {
	if id <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "Record ID is required")
	}
	if sub == nil {
		sub = &Submission{}
	}
	if sub.CustomerID != nil && *sub.CustomerID <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "customerId must be a positive id")
	}
	if err := h.saveSlips(ctx, sub, files); err != nil {
		return nil, err
	}

	var (
		trx models.Transaction
		rec models.FinancialRecord
	)
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Preload("CustomerDeposit").Preload("Exchange").First(&trx, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return status.Errorf(codes.NotFound, "Record with ID %d not found", id)
			}
			return status.Errorf(codes.Internal, "Failed to get record: %v", err)
		}

		if sub.CustomerDeposit != nil {
			if trx.CustomerDeposit == nil {
				trx.CustomerDeposit = &models.CustomerDeposit{}
			}
			sub.CustomerDeposit.applyTo(&trx.CustomerDeposit.MoneyMovement)
			if err := tx.Save(trx.CustomerDeposit).Error; err != nil {
				return status.Errorf(codes.Internal, "Failed to save customer deposit: %v", err)
			}
			trx.CustomerDepositID = &trx.CustomerDeposit.ID
		}

		if sub.Exchange != nil {
			if trx.Exchange == nil {
				trx.Exchange = &models.Exchange{}
			}
			sub.Exchange.applyTo(&trx.Exchange.MoneyMovement)
			if sub.Exchange.ExchangeType != nil {
				trx.Exchange.ExchangeType = *sub.Exchange.ExchangeType
			}
			if err := tx.Save(trx.Exchange).Error; err != nil {
				return status.Errorf(codes.Internal, "Failed to save exchange: %v", err)
			}
			trx.ExchangeID = &trx.Exchange.ID
		}

		applyTransactionFields(&trx, sub)
		if err := tx.Omit(clause.Associations).Save(&trx).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return status.Errorf(codes.AlreadyExists, "Document number %s already exists", trx.DocumentNumber)
			}
			return status.Errorf(codes.Internal, "Failed to update transaction: %v", err)
		}

		err := tx.Where("financial_transaction_id = ?", trx.ID).First(&rec).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return status.Errorf(codes.Internal, "Failed to get financial record: %v", err)
		}
		fillFinancialRecord(&rec, &trx, trx.CustomerDeposit, trx.Exchange)
		if err := tx.Save(&rec).Error; err != nil {
			return status.Errorf(codes.Internal, "Failed to save financial record: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.publish(ctx, events.RecordUpdated, trx.ID, map[string]interface{}{
		"document_number": trx.DocumentNumber,
	})
	return &RecordResult{Transaction: &trx, FinancialRecord: &rec}, nil
}

func (h *LedgerHandler) GetRecord(ctx context.Context, id int64) (*RecordResult, error) {
	if id <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "Record ID is required")
	}

	var trx models.Transaction
	if err := h.db.WithContext(ctx).Preload("CustomerDeposit").Preload("Exchange").First(&trx, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, status.Errorf(codes.NotFound, "Record with ID %d not found", id)
		}
		return nil, status.Errorf(codes.Internal, "Failed to get record: %v", err)
	}

	res := &RecordResult{Transaction: &trx}
	var rec models.FinancialRecord
	err := h.db.WithContext(ctx).Where("financial_transaction_id = ?", trx.ID).First(&rec).Error
	switch {
	case err == nil:
		res.FinancialRecord = &rec
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, status.Errorf(codes.Internal, "Failed to get financial record: %v", err)
	}
	return res, nil
}

func (h *LedgerHandler) ListRecords(ctx context.Context, req ListRecordsRequest) ([]models.Transaction, *utils.PaginationMeta, error) {
	page, limit := utils.NormalizePage(req.Page, req.Limit)

	query := h.db.WithContext(ctx).Model(&models.Transaction{})
	if req.CustomerID > 0 {
		query = query.Where("customer_id = ?", req.CustomerID)
	}
	if req.SalespersonID > 0 {
		query = query.Where("salesperson_id = ?", req.SalespersonID)
	}
	if t := strings.TrimSpace(req.Type); t != "" {
		query = query.Where("type = ?", t)
	}
	if req.StartDate != "" {
		start := parseDate(req.StartDate)
		if start == nil {
			return nil, nil, status.Errorf(codes.InvalidArgument, "Invalid start_date %q", req.StartDate)
		}
		query = query.Where("date >= ?", *start)
	}
	if req.EndDate != "" {
		end := parseDate(req.EndDate)
		if end == nil {
			return nil, nil, status.Errorf(codes.InvalidArgument, "Invalid end_date %q", req.EndDate)
		}
		query = query.Where("date < ?", end.AddDate(0, 0, 1))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, status.Errorf(codes.Internal, "Failed to count records: %v", err)
	}

	records := []models.Transaction{}
	err := query.
		Preload("CustomerDeposit").
		Preload("Exchange").
		Order("created_at desc").
		Order("id desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, nil, status.Errorf(codes.Internal, "Failed to list records: %v", err)
	}

	return records, utils.NewPaginationMeta(page, limit, total), nil
}

// DeleteRecord soft-deletes the transaction and the movement rows it owns.
// The financial record is an audit row and stays.
func (h *LedgerHandler) DeleteRecord(ctx context.Context, id int64) error {
	if id <= 0 {
		return status.Errorf(codes.InvalidArgument, "Record ID is required")
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trx models.Transaction
		if err := tx.First(&trx, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return status.Errorf(codes.NotFound, "Record with ID %d not found", id)
			}
			return status.Errorf(codes.Internal, "Failed to get record: %v", err)
		}

		if trx.CustomerDepositID != nil {
			if err := tx.Delete(&models.CustomerDeposit{}, *trx.CustomerDepositID).Error; err != nil {
				return status.Errorf(codes.Internal, "Failed to delete customer deposit: %v", err)
			}
		}
		if trx.ExchangeID != nil {
			if err := tx.Delete(&models.Exchange{}, *trx.ExchangeID).Error; err != nil {
				return status.Errorf(codes.Internal, "Failed to delete exchange: %v", err)
			}
		}
		if err := tx.Delete(&trx).Error; err != nil {
			return status.Errorf(codes.Internal, "Failed to delete record: %v", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	h.publish(ctx, events.RecordDeleted, id, nil)
	return nil
}
