package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"syntra-ledger/internal/database"
	"syntra-ledger/internal/database/models"
	"syntra-ledger/internal/events"
)

type SaveTransferCommissionRequest struct {
	TransferID    int64           `json:"transferId"`
	SalespersonID int64           `json:"salespersonId"`
	Commission    decimal.Decimal `json:"commission"`
}

type TransferCommissionResult struct {
	TransferID   int64           `json:"transfer_id"`
	CommissionID int64           `json:"commission_id"`
	EmployeeID   int64           `json:"employee_id"`
	TransferType string          `json:"transfer_type"`
	Amount       decimal.Decimal `json:"amount"`
}

func loadTransfer(tx *gorm.DB, transferID int64) (*models.Transaction, error) {
	var trx models.Transaction
	if err := tx.Preload("Exchange").First(&trx, transferID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, status.Errorf(codes.NotFound, "Transfer with ID %d not found", transferID)
		}
		return nil, status.Errorf(codes.Internal, "Failed to get transfer: %v", err)
	}
	return &trx, nil
}

// SaveOrUpdateTransferCommission finds the commission by transfer id and
// updates it, or creates it as PENDING. The bool reports a create.
func (c *CommissionHandler) SaveOrUpdateTransferCommission(ctx context.Context, req SaveTransferCommissionRequest) (*models.TransferCommission, bool, error) {
	if req.TransferID <= 0 {
		return nil, false, status.Errorf(codes.InvalidArgument, "Transfer ID is required")
	}
	if req.SalespersonID <= 0 {
		return nil, false, status.Errorf(codes.InvalidArgument, "Salesperson ID is required")
	}
	if req.Commission.IsNegative() {
		return nil, false, status.Errorf(codes.InvalidArgument, "Commission must not be negative")
	}

	var (
		commission models.TransferCommission
		created    bool
	)
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		trx, err := loadTransfer(tx, req.TransferID)
		if err != nil {
			return err
		}

		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("transfer_id = ?", req.TransferID).First(&commission).Error
		switch {
		case err == nil:
			commission.EmployeeID = req.SalespersonID
			commission.Amount = req.Commission
			if err := tx.Save(&commission).Error; err != nil {
				return status.Errorf(codes.Internal, "Failed to update transfer commission: %v", err)
			}
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return status.Errorf(codes.Internal, "Failed to get transfer commission: %v", err)
		}

		commission = models.TransferCommission{
			TransferID:   req.TransferID,
			EmployeeID:   req.SalespersonID,
			TransferType: ResolveTransferTypeName(trx),
			Amount:       req.Commission,
			Status:       models.TransferCommissionPending,
		}
		if err := tx.Create(&commission).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return status.Errorf(codes.AlreadyExists, "Commission already exists for transfer %d", req.TransferID)
			}
			return status.Errorf(codes.Internal, "Failed to create transfer commission: %v", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		c.publish(ctx, events.TransferCommissionCreated, commission.ID, commission)
	}
	return &commission, created, nil
}

func (c *CommissionHandler) GetTransferCommission(ctx context.Context, transferID int64) (*models.TransferCommission, error) {
	if transferID <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "Transfer ID is required")
	}
	var commission models.TransferCommission
	if err := c.db.WithContext(ctx).Where("transfer_id = ?", transferID).First(&commission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, status.Errorf(codes.NotFound, "No commission found for transfer %d", transferID)
		}
		return nil, status.Errorf(codes.Internal, "Failed to get transfer commission: %v", err)
	}
	return &commission, nil
}

// UpdateTransferCommissionStatus moves a commission forward through
// PENDING -> APPROVED -> PAID. Repeating the current status is a no-op.
func (c *CommissionHandler) UpdateTransferCommissionStatus(ctx context.Context, commissionID int64, newStatus string) (*models.TransferCommission, error) {
	if commissionID <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "Commission ID is required")
	}
	target := models.TransferCommissionStatus(strings.ToUpper(strings.TrimSpace(newStatus)))
	if target.Step() < 0 {
		return nil, status.Errorf(codes.InvalidArgument, "Invalid status %q", newStatus)
	}

	var (
		commission models.TransferCommission
		changed    bool
	)
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&commission, commissionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return status.Errorf(codes.NotFound, "Transfer commission with ID %d not found", commissionID)
			}
			return status.Errorf(codes.Internal, "Failed to get transfer commission: %v", err)
		}

		current := commission.Status.Step()
		if target.Step() == current {
			return nil
		}
		if target.Step() < current {
			return status.Errorf(codes.FailedPrecondition, "Cannot change status from %s to %s", commission.Status, target)
		}

		now := time.Now()
		if target.Step() >= models.TransferCommissionApproved.Step() && commission.ApprovedAt == nil {
			commission.ApprovedAt = &now
		}
		if target == models.TransferCommissionPaid {
			commission.PaidAt = &now
		}
		commission.Status = target

		if err := tx.Save(&commission).Error; err != nil {
			return status.Errorf(codes.Internal, "Failed to update transfer commission status: %v", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		c.publish(ctx, events.TransferCommissionStatus, commission.ID, map[string]interface{}{
			"transfer_id": commission.TransferID,
			"status":      commission.Status,
		})
	}
	return &commission, nil
}

// BulkCalculateTransferCommissions creates one PENDING commission per
// transfer using the fixed rate of its transfer type. Each transfer runs in
// its own transaction and failures are reported per item.
func (c *CommissionHandler) BulkCalculateTransferCommissions(ctx context.Context, transferIDs []int64) (*BulkResult[TransferCommissionResult], error) {
	if len(transferIDs) == 0 {
		return nil, status.Errorf(codes.InvalidArgument, "Transfer IDs are required")
	}

	res := runBulk(ctx, c.bulkConcurrency, transferIDs, func(ctx context.Context, _ int, transferID int64) (TransferCommissionResult, error) {
		return c.calculateTransferCommission(ctx, transferID)
	})

	for _, r := range res.Results {
		c.publish(ctx, events.TransferCommissionCreated, r.CommissionID, r)
	}
	return res, nil
}

func (c *CommissionHandler) calculateTransferCommission(ctx context.Context, transferID int64) (TransferCommissionResult, error) {
	var result TransferCommissionResult
	if transferID <= 0 {
		return result, status.Errorf(codes.InvalidArgument, "Transfer ID must be positive")
	}

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		trx, err := loadTransfer(tx, transferID)
		if err != nil {
			return err
		}
		if trx.SalespersonID == nil || *trx.SalespersonID <= 0 {
			return status.Errorf(codes.FailedPrecondition, "Transfer %d has no salesperson", transferID)
		}

		var existing int64
		if err := tx.Model(&models.TransferCommission{}).Where("transfer_id = ?", transferID).Count(&existing).Error; err != nil {
			return status.Errorf(codes.Internal, "Failed to check existing commission: %v", err)
		}
		if existing > 0 {
			return status.Errorf(codes.AlreadyExists, "Commission already exists for transfer %d", transferID)
		}

		label := ResolveTransferTypeName(trx)
		tt, err := c.forTransfer(tx, label)
		if err != nil {
			return err
		}

		commission := models.TransferCommission{
			TransferID:   transferID,
			EmployeeID:   *trx.SalespersonID,
			TransferType: label,
			Amount:       tt.CommissionRate,
			Status:       models.TransferCommissionPending,
		}
		if err := tx.Create(&commission).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return status.Errorf(codes.AlreadyExists, "Commission already exists for transfer %d", transferID)
			}
			return status.Errorf(codes.Internal, "Failed to create commission: %v", err)
		}

		result = TransferCommissionResult{
			TransferID:   transferID,
			CommissionID: commission.ID,
			EmployeeID:   commission.EmployeeID,
			TransferType: label,
			Amount:       commission.Amount,
		}
		return nil
	})
	return result, err
}
