package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
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
	"syntra-ledger/internal/utils"
)

const EmployeeCommissionStatusPending = "pending"

type EmployeeCommissionInput struct {
	EmployeeID       int64           `json:"employee_id"`
	CommissionType   string          `json:"commission_type"`
	CommissionValue  decimal.Decimal `json:"commission_value"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
}

type SubmitCommissionsRequest struct {
	DPurchaseID     int64                     `json:"d_purchase_id"`
	Commissions     []EmployeeCommissionInput `json:"commissions"`
	TotalCommission *decimal.Decimal          `json:"total_commission"`
}

type SubmitResult struct {
	DPurchaseID         int64                          `json:"d_purchase_id"`
	Commissions         []models.EmployeeCommission    `json:"commissions"`
	CsCommission        *models.CsDepartmentCommission `json:"cs_commission,omitempty"`
	CsCommissionCreated bool                           `json:"cs_commission_created"`
	InvalidEmployeeIDs  []int64                        `json:"invalid_employee_ids,omitempty"`
	Warnings            []string                       `json:"warnings,omitempty"`
}

type ListCsCommissionsRequest struct {
	Paid   *bool
	Status string
	Page   int
	Limit  int
}

type PurchaseCommissionStatus struct {
	DPurchaseID             int64           `json:"d_purchase_id"`
	Submitted               bool            `json:"submitted"`
	EmployeeCommissionCount int64           `json:"employee_commission_count"`
	TotalEmployeeCommission decimal.Decimal `json:"total_employee_commission"`
	HasCsCommission         bool            `json:"has_cs_commission"`
	CsCommissionPaid        bool            `json:"cs_commission_paid"`
}

// bestEffort runs step inside a savepoint of tx. A failure rolls back only
// the savepoint, is logged, and comes back as a warning.
func bestEffort(tx *gorm.DB, name string, step func(tx *gorm.DB) error) string {
	if err := tx.Transaction(step); err != nil {
		log.Printf("%s failed, continuing without it: %v", name, err)
		return fmt.Sprintf("%s failed: %v", name, err)
	}
	return ""
}

func validateSubmission(req SubmitCommissionsRequest) error {
	if req.DPurchaseID <= 0 {
		return status.Errorf(codes.InvalidArgument, "Purchase ID is required")
	}
	if len(req.Commissions) == 0 {
		return status.Errorf(codes.InvalidArgument, "At least one commission is required")
	}

	seen := make(map[int64]struct{}, len(req.Commissions))
	total := decimal.Zero
	for i, cm := range req.Commissions {
		if cm.EmployeeID <= 0 {
			return status.Errorf(codes.InvalidArgument, "Commission %d: employee ID is required", i+1)
		}
		if _, dup := seen[cm.EmployeeID]; dup {
			return status.Errorf(codes.InvalidArgument, "Employee %d appears more than once", cm.EmployeeID)
		}
		seen[cm.EmployeeID] = struct{}{}
		if cm.CommissionAmount.IsNegative() || cm.CommissionValue.IsNegative() {
			return status.Errorf(codes.InvalidArgument, "Commission %d: amounts must not be negative", i+1)
		}
		total = total.Add(cm.CommissionAmount)
	}

	if req.TotalCommission != nil && !req.TotalCommission.Round(2).Equal(total.Round(2)) {
		return status.Errorf(codes.InvalidArgument, "Total commission %s does not match the sum of commissions %s",
			req.TotalCommission.StringFixed(2), total.StringFixed(2))
	}
	return nil
}

// SubmitEmployeeCommissions replaces every employee commission of a purchase
// with the submitted set. The CS department fee is added once per purchase
// as a best-effort step; if it fails the employee commissions still commit
// and the failure is returned in Warnings.
func (c *CommissionHandler) SubmitEmployeeCommissions(ctx context.Context, req SubmitCommissionsRequest) (*SubmitResult, error) {
	if err := validateSubmission(req); err != nil {
		return nil, err
	}

	ids := make([]int64, len(req.Commissions))
	for i, cm := range req.Commissions {
		ids[i] = cm.EmployeeID
	}
	invalid, err := c.directory.FindInvalidEmployeeIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(invalid) > 0 {
		return &SubmitResult{DPurchaseID: req.DPurchaseID, InvalidEmployeeIDs: invalid},
			status.Errorf(codes.InvalidArgument, "Invalid employee IDs: %v", invalid)
	}

	rows := make([]models.EmployeeCommission, len(req.Commissions))
	for i, cm := range req.Commissions {
		commissionType := strings.TrimSpace(cm.CommissionType)
		if commissionType == "" {
			commissionType = "fixed"
		}
		rows[i] = models.EmployeeCommission{
			DPurchaseID:      req.DPurchaseID,
			EmployeeID:       cm.EmployeeID,
			CommissionType:   commissionType,
			CommissionValue:  cm.CommissionValue,
			CommissionAmount: cm.CommissionAmount,
			Status:           EmployeeCommissionStatusPending,
		}
	}

	result := &SubmitResult{DPurchaseID: req.DPurchaseID}
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("d_purchase_id = ?", req.DPurchaseID).Delete(&models.EmployeeCommission{}).Error; err != nil {
			return status.Errorf(codes.Internal, "Failed to clear previous commissions: %v", err)
		}
		if err := tx.Create(&rows).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return status.Errorf(codes.AlreadyExists, "Duplicate commission for purchase %d", req.DPurchaseID)
			}
			return status.Errorf(codes.Internal, "Failed to save commissions: %v", err)
		}

		warning := bestEffort(tx, "CS department commission", func(sp *gorm.DB) error {
			cs, created, err := c.ensureCsCommission(sp, req.DPurchaseID)
			if err != nil {
				return err
			}
			result.CsCommission = cs
			result.CsCommissionCreated = created
			return nil
		})
		if warning != "" {
			result.CsCommission = nil
			result.CsCommissionCreated = false
			result.Warnings = append(result.Warnings, warning)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Commissions = rows
	c.publish(ctx, events.EmployeeCommissionsSubmit, req.DPurchaseID, map[string]interface{}{
		"employee_ids":          ids,
		"cs_commission_created": result.CsCommissionCreated,
	})
	return result, nil
}

// ensureCsCommission creates the flat CS fee for a purchase unless it exists.
func (c *CommissionHandler) ensureCsCommission(tx *gorm.DB, purchaseID int64) (*models.CsDepartmentCommission, bool, error) {
	var existing models.CsDepartmentCommission
	err := tx.Where("d_purchase_id = ?", purchaseID).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	cs := models.CsDepartmentCommission{
		DPurchaseID:      purchaseID,
		CommissionAmount: c.csFlatFee,
		IsPaid:           false,
		Status:           models.CsCommissionStatusPending,
	}
	if err := tx.Create(&cs).Error; err != nil {
		return nil, false, err
	}
	return &cs, true, nil
}

func (c *CommissionHandler) ListCsCommissions(ctx context.Context, req ListCsCommissionsRequest) ([]models.CsDepartmentCommission, *utils.PaginationMeta, error) {
	page, limit := utils.NormalizePage(req.Page, req.Limit)

	query := c.db.WithContext(ctx).Model(&models.CsDepartmentCommission{})
	if req.Paid != nil {
		query = query.Where("is_paid = ?", *req.Paid)
	}
	if s := strings.ToLower(strings.TrimSpace(req.Status)); s != "" {
		query = query.Where("status = ?", s)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, status.Errorf(codes.Internal, "Failed to count CS commissions: %v", err)
	}

	commissions := []models.CsDepartmentCommission{}
	err := query.Order("created_at desc").Order("id desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&commissions).Error
	if err != nil {
		return nil, nil, status.Errorf(codes.Internal, "Failed to list CS commissions: %v", err)
	}

	return commissions, utils.NewPaginationMeta(page, limit, total), nil
}

// UpdateCsCommissionPaid sets paid_date when marked paid and clears it otherwise.
func (c *CommissionHandler) UpdateCsCommissionPaid(ctx context.Context, id int64, isPaid bool) (*models.CsDepartmentCommission, error) {
	if id <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "CS commission ID is required")
	}

	var cs models.CsDepartmentCommission
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cs, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return status.Errorf(codes.NotFound, "CS commission with ID %d not found", id)
			}
			return status.Errorf(codes.Internal, "Failed to get CS commission: %v", err)
		}

		cs.IsPaid = isPaid
		if isPaid {
			now := time.Now()
			cs.PaidDate = &now
			cs.Status = models.CsCommissionStatusPaid
		} else {
			cs.PaidDate = nil
			cs.Status = models.CsCommissionStatusPending
		}

		if err := tx.Save(&cs).Error; err != nil {
			return status.Errorf(codes.Internal, "Failed to update CS commission: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

func (c *CommissionHandler) GetPurchaseStatus(ctx context.Context, purchaseID int64) (*PurchaseCommissionStatus, error) {
	if purchaseID <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "Purchase ID is required")
	}

	commissions, err := c.GetEmployeeCommissions(ctx, purchaseID)
	if err != nil {
		return nil, err
	}

	res := &PurchaseCommissionStatus{
		DPurchaseID:             purchaseID,
		EmployeeCommissionCount: int64(len(commissions)),
		TotalEmployeeCommission: decimal.Zero,
		Submitted:               len(commissions) > 0,
	}
	for _, cm := range commissions {
		res.TotalEmployeeCommission = res.TotalEmployeeCommission.Add(cm.CommissionAmount)
	}

	var cs models.CsDepartmentCommission
	err = c.db.WithContext(ctx).Where("d_purchase_id = ?", purchaseID).First(&cs).Error
	switch {
	case err == nil:
		res.HasCsCommission = true
		res.CsCommissionPaid = cs.IsPaid
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, status.Errorf(codes.Internal, "Failed to get CS commission: %v", err)
	}
	return res, nil
}

func (c *CommissionHandler) GetEmployeeCommissions(ctx context.Context, purchaseID int64) ([]models.EmployeeCommission, error) {
	if purchaseID <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "Purchase ID is required")
	}
	commissions := []models.EmployeeCommission{}
	if err := c.db.WithContext(ctx).Where("d_purchase_id = ?", purchaseID).Order("employee_id asc").Find(&commissions).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to get employee commissions: %v", err)
	}
	return commissions, nil
}

func (c *CommissionHandler) GetCsCommission(ctx context.Context, purchaseID int64) (*models.CsDepartmentCommission, error) {
	if purchaseID <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "Purchase ID is required")
	}
	var cs models.CsDepartmentCommission
	if err := c.db.WithContext(ctx).Where("d_purchase_id = ?", purchaseID).First(&cs).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, status.Errorf(codes.NotFound, "No CS commission for purchase %d", purchaseID)
		}
		return nil, status.Errorf(codes.Internal, "Failed to get CS commission: %v", err)
	}
	return &cs, nil
}
