package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CommissionRank struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	MinAmount  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"min_amount"`
	MaxAmount  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"max_amount"`
	Percentage decimal.Decimal `gorm:"type:decimal(7,4);not null" json:"percentage"`
	CreatedAt  *time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  *time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CommissionRank) TableName() string {
	return "commission_ranks"
}

// TransferType carries a fixed commission amount per transaction.
// type_name is unique among rows that are not soft-deleted; that is checked
// in the service because deleted rows keep their names.
type TransferType struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TypeName       string          `gorm:"type:varchar(64);not null;index" json:"type_name"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"commission_rate"`
	IsActive       bool            `gorm:"not null" json:"is_active"`
	Description    string          `gorm:"type:text" json:"description"`
	CreatedAt      *time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      *time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (TransferType) TableName() string {
	return "transfer_types"
}

type EmployeeCommission struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	DPurchaseID      int64           `gorm:"column:d_purchase_id;not null;uniqueIndex:idx_employee_commission_purchase_employee,priority:1" json:"d_purchase_id"`
	EmployeeID       int64           `gorm:"not null;index;uniqueIndex:idx_employee_commission_purchase_employee,priority:2" json:"employee_id"`
	CommissionType   string          `gorm:"type:varchar(32);not null" json:"commission_type"`
	CommissionValue  decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"commission_value"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"commission_amount"`
	Status           string          `gorm:"type:varchar(16);not null;index" json:"status"`
	CreatedAt        *time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        *time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (EmployeeCommission) TableName() string {
	return "employee_commissions"
}

const (
	CsCommissionStatusPending = "pending"
	CsCommissionStatusPaid    = "paid"
)

// CsDepartmentCommission is the flat per-purchase fee for customer service.
type CsDepartmentCommission struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	DPurchaseID      int64           `gorm:"column:d_purchase_id;not null;uniqueIndex" json:"d_purchase_id"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"commission_amount"`
	IsPaid           bool            `gorm:"not null;index" json:"is_paid"`
	PaidDate         *time.Time      `json:"paid_date"`
	Status           string          `gorm:"type:varchar(16);not null;index" json:"status"`
	CreatedAt        *time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        *time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CsDepartmentCommission) TableName() string {
	return "cs_department_commissions"
}

type TransferCommissionStatus string

const (
	TransferCommissionPending  TransferCommissionStatus = "PENDING"
	TransferCommissionApproved TransferCommissionStatus = "APPROVED"
	TransferCommissionPaid     TransferCommissionStatus = "PAID"
)

// Step returns the position of s in PENDING -> APPROVED -> PAID, or -1.
func (s TransferCommissionStatus) Step() int {
	switch s {
	case TransferCommissionPending:
		return 0
	case TransferCommissionApproved:
		return 1
	case TransferCommissionPaid:
		return 2
	default:
		return -1
	}
}

// TransferCommission is unique per transfer; the unique index is the
// backstop against two requests racing past the existence check.
type TransferCommission struct {
	ID           int64                    `gorm:"primaryKey;autoIncrement" json:"id"`
	TransferID   int64                    `gorm:"not null;uniqueIndex" json:"transfer_id"`
	EmployeeID   int64                    `gorm:"not null;index" json:"employee_id"`
	TransferType string                   `gorm:"type:varchar(32)" json:"transfer_type"`
	Amount       decimal.Decimal          `gorm:"type:decimal(18,2);not null" json:"amount"`
	Status       TransferCommissionStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	ApprovedAt   *time.Time               `json:"approved_at"`
	PaidAt       *time.Time               `json:"paid_at"`
	CreatedAt    *time.Time               `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    *time.Time               `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TransferCommission) TableName() string {
	return "transfer_commissions"
}
