package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MoneyMovement holds the columns shared by customer deposits and exchanges.
type MoneyMovement struct {
	AmountRMB        decimal.Decimal     `gorm:"column:amount_rmb;type:decimal(18,2);not null" json:"amount_rmb"`
	ExchangeRate     decimal.Decimal     `gorm:"type:decimal(18,6);not null" json:"exchange_rate"`
	Fee              decimal.Decimal     `gorm:"type:decimal(18,2);not null" json:"fee"`
	Amount           decimal.Decimal     `gorm:"type:decimal(18,2);not null" json:"amount"`
	Vat              decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"vat"`
	TransferDate     *time.Time          `json:"transfer_date"`
	ReceivingAccount string              `gorm:"type:varchar(128)" json:"receiving_account"`
	TransferSlipURL  string              `gorm:"column:transfer_slip_url;type:varchar(512)" json:"transfer_slip_url"`
	Notes            string              `gorm:"type:text" json:"notes"`
}

type CustomerDeposit struct {
	ID            int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	MoneyMovement `gorm:"embedded"`
	CreatedAt     *time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     *time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (CustomerDeposit) TableName() string {
	return "customer_deposits"
}

type Exchange struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	// ExchangeType is the sub-type code (topup, purchase, order, ...).
	ExchangeType  string `gorm:"type:varchar(32)" json:"exchange_type"`
	MoneyMovement `gorm:"embedded"`
	CreatedAt     *time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     *time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Exchange) TableName() string {
	return "exchanges"
}

// Transaction is one money-movement event. It owns at most one customer
// deposit and at most one exchange row.
type Transaction struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Type              string          `gorm:"type:varchar(32);index" json:"type"`
	Date              *time.Time      `gorm:"index" json:"date"`
	DocumentNumber    string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"document_number"`
	CustomerID        int64           `gorm:"index;not null" json:"customer_id"`
	SalespersonID     *int64          `gorm:"index" json:"salesperson_id"`
	AmountRMB         decimal.Decimal `gorm:"column:amount_rmb;type:decimal(18,2);not null" json:"amount_rmb"`
	TransferDate      *time.Time      `json:"transfer_date"`
	TransferSlipURL   string          `gorm:"column:transfer_slip_url;type:varchar(512)" json:"transfer_slip_url"`
	Notes             string          `gorm:"type:text" json:"notes"`
	CustomerDepositID *int64          `gorm:"index" json:"customer_deposit_id"`
	ExchangeID        *int64          `gorm:"index" json:"exchange_id"`
	CreatedAt         *time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         *time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"-"`

	CustomerDeposit *CustomerDeposit `gorm:"foreignKey:CustomerDepositID" json:"customer_deposit,omitempty"`
	Exchange        *Exchange        `gorm:"foreignKey:ExchangeID" json:"exchange,omitempty"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// FinancialRecord is the audit row derived from a transaction's movement data.
type FinancialRecord struct {
	ID                     int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	FinancialTransactionID int64           `gorm:"uniqueIndex;not null" json:"financial_transaction_id"`
	AmountRMB              decimal.Decimal `gorm:"column:amount_rmb;type:decimal(18,2);not null" json:"amount_rmb"`
	AmountTHB              decimal.Decimal `gorm:"column:amount_thb;type:decimal(18,2);not null" json:"amount_thb"`
	TransferSlip           string          `gorm:"type:varchar(512)" json:"transfer_slip"`
	PayTo                  string          `gorm:"type:varchar(128)" json:"pay_to"`
	Title                  string          `gorm:"type:varchar(255)" json:"title"`
	CreatedAt              *time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              *time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (FinancialRecord) TableName() string {
	return "financial_records"
}
