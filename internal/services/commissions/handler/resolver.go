package handler

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"syntra-ledger/internal/database/models"
)

const (
	LabelTransfer     = "transfer"
	LabelPurchase     = "purchase"
	LabelTopup        = "topup"
	LabelOrderPayment = "order_payment"
	LabelExchange     = "exchange"
)

var canonicalLabels = map[string]struct{}{
	LabelTransfer:     {},
	LabelPurchase:     {},
	LabelTopup:        {},
	LabelOrderPayment: {},
	LabelExchange:     {},
}

var typeCodeLabels = map[string]string{
	"deposit":  LabelTransfer,
	"purchase": LabelPurchase,
	"topup":    LabelTopup,
	"order":    LabelOrderPayment,
	"payment":  LabelOrderPayment,
}

func labelFor(code string) (string, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if _, ok := canonicalLabels[code]; ok {
		return code, true
	}
	label, ok := typeCodeLabels[code]
	return label, ok
}

// ResolveTransferTypeName derives the transfer type label of a transaction.
// Precedence: canonical stored type, known type code, attached movement,
// then "transfer". Exchange must be preloaded for the sub-type to count.
func ResolveTransferTypeName(trx *models.Transaction) string {
	if label, ok := labelFor(trx.Type); ok {
		return label
	}
	if trx.CustomerDeposit != nil || trx.CustomerDepositID != nil {
		return LabelTransfer
	}
	if trx.Exchange != nil || trx.ExchangeID != nil {
		if trx.Exchange != nil {
			if label, ok := labelFor(trx.Exchange.ExchangeType); ok {
				return label
			}
		}
		return LabelExchange
	}
	return LabelTransfer
}

// forTransfer returns the active transfer type for label. Callers pass the
// transaction they are running in.
func (c *CommissionHandler) forTransfer(tx *gorm.DB, label string) (*models.TransferType, error) {
	var tt models.TransferType
	err := tx.Where("type_name = ? AND is_active = ?", label, true).First(&tt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, status.Errorf(codes.FailedPrecondition, "No active transfer type configured for %q", label)
		}
		return nil, status.Errorf(codes.Internal, "Failed to get transfer type: %v", err)
	}
	return &tt, nil
}

func (c *CommissionHandler) CsFlatFee() decimal.Decimal {
	return c.csFlatFee
}
