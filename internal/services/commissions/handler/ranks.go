package handler

import (
	"context"
	"log"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"syntra-ledger/internal/database/models"
)

var hundred = decimal.NewFromInt(100)

type RankInput struct {
	MinAmount  decimal.Decimal `json:"min_amount"`
	MaxAmount  decimal.Decimal `json:"max_amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

type CalculateResult struct {
	ProfitAmount decimal.Decimal        `json:"profit_amount"`
	Rank         *models.CommissionRank `json:"rank"`
	Commission   decimal.Decimal        `json:"commission"`
	Found        bool                   `json:"found"`
}

type PurchaseProfitItem struct {
	DPurchaseID  int64           `json:"d_purchase_id"`
	ProfitAmount decimal.Decimal `json:"profit_amount"`
}

type PurchaseCommissionPreview struct {
	DPurchaseID int64 `json:"d_purchase_id"`
	CalculateResult
}

// ValidateRanks expects ranks in ascending min_amount order and rejects any
// overlap instead of sorting.
func ValidateRanks(ranks []RankInput) error {
	if len(ranks) == 0 {
		return status.Errorf(codes.InvalidArgument, "At least one commission rank is required")
	}
	for i, r := range ranks {
		if r.MinAmount.IsNegative() {
			return status.Errorf(codes.InvalidArgument, "Rank %d: min_amount must not be negative", i+1)
		}
		if !r.MinAmount.LessThan(r.MaxAmount) {
			return status.Errorf(codes.InvalidArgument, "Rank %d: min_amount must be less than max_amount", i+1)
		}
		if r.Percentage.IsNegative() || r.Percentage.GreaterThan(hundred) {
			return status.Errorf(codes.InvalidArgument, "Rank %d: percentage must be between 0 and 100", i+1)
		}
		if i > 0 && !r.MinAmount.GreaterThan(ranks[i-1].MaxAmount) {
			return status.Errorf(codes.InvalidArgument, "Rank %d overlaps rank %d: min_amount %s must be greater than %s",
				i+1, i, r.MinAmount.String(), ranks[i-1].MaxAmount.String())
		}
	}
	return nil
}

// SaveRanks replaces the whole rank table in one transaction.
func (c *CommissionHandler) SaveRanks(ctx context.Context, ranks []RankInput) ([]models.CommissionRank, error) {
	if err := ValidateRanks(ranks); err != nil {
		return nil, err
	}

	rows := make([]models.CommissionRank, len(ranks))
	for i, r := range ranks {
		rows[i] = models.CommissionRank{
			MinAmount:  r.MinAmount,
			MaxAmount:  r.MaxAmount,
			Percentage: r.Percentage,
		}
	}

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.CommissionRank{}).Error; err != nil {
			return err
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to save commission ranks: %v", err)
	}

	c.InvalidateCommissionCaches(ctx, COMMISSION_RANKS_CACHE_KEY)
	return rows, nil
}

func (c *CommissionHandler) ListRanks(ctx context.Context) ([]models.CommissionRank, error) {
	var ranks []models.CommissionRank
	found, err := c.cache.Get(ctx, COMMISSION_RANKS_CACHE_KEY, &ranks)
	if err != nil {
		log.Printf("Cache error on GET %s: %v. Falling back to DB.", COMMISSION_RANKS_CACHE_KEY, err)
	} else if found {
		return ranks, nil
	}

	ranks = []models.CommissionRank{}
	if err := c.db.WithContext(ctx).Order("min_amount asc").Find(&ranks).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to list commission ranks: %v", err)
	}

	if err := c.cache.Set(ctx, COMMISSION_RANKS_CACHE_KEY, ranks, CACHE_TTL_LONG); err != nil {
		log.Printf("Failed to set cache for key %s: %v", COMMISSION_RANKS_CACHE_KEY, err)
	}
	return ranks, nil
}

// ResolveRank returns the rank with min_amount <= profit <= max_amount.
func ResolveRank(ranks []models.CommissionRank, profit decimal.Decimal) (*models.CommissionRank, bool) {
	for i := range ranks {
		r := ranks[i]
		if profit.GreaterThanOrEqual(r.MinAmount) && profit.LessThanOrEqual(r.MaxAmount) {
			return &r, true
		}
	}
	return nil, false
}

// calculateWithRanks treats "no rank" as zero commission, not as an error.
func calculateWithRanks(ranks []models.CommissionRank, profit decimal.Decimal) CalculateResult {
	rank, ok := ResolveRank(ranks, profit)
	if !ok {
		return CalculateResult{ProfitAmount: profit, Commission: decimal.Zero}
	}
	return CalculateResult{
		ProfitAmount: profit,
		Rank:         rank,
		Commission:   profit.Mul(rank.Percentage).Div(hundred).Round(2),
		Found:        true,
	}
}

// CalculateForProfit resolves the rank for a single profit figure. A loss
// falls outside every rank and yields a zero commission.
func (c *CommissionHandler) CalculateForProfit(ctx context.Context, profit decimal.Decimal) (*CalculateResult, error) {
	ranks, err := c.ListRanks(ctx)
	if err != nil {
		return nil, err
	}
	res := calculateWithRanks(ranks, profit)
	return &res, nil
}

func (c *CommissionHandler) BulkCalculatePurchaseCommissions(ctx context.Context, items []PurchaseProfitItem) (*BulkResult[PurchaseCommissionPreview], error) {
	if len(items) == 0 {
		return nil, status.Errorf(codes.InvalidArgument, "Items are required")
	}

	ranks, err := c.ListRanks(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.DPurchaseID
	}

	return runBulk(ctx, c.bulkConcurrency, ids, func(_ context.Context, idx int, purchaseID int64) (PurchaseCommissionPreview, error) {
		if purchaseID <= 0 {
			return PurchaseCommissionPreview{}, status.Errorf(codes.InvalidArgument, "Purchase ID is required")
		}
		profit := items[idx].ProfitAmount
		if profit.IsNegative() {
			return PurchaseCommissionPreview{}, status.Errorf(codes.InvalidArgument, "Profit amount must not be negative")
		}
		return PurchaseCommissionPreview{
			DPurchaseID:     purchaseID,
			CalculateResult: calculateWithRanks(ranks, profit),
		}, nil
	}), nil
}

// ForPurchase is the purchase side of the resolver.
func (c *CommissionHandler) ForPurchase(ctx context.Context, profit decimal.Decimal) (decimal.Decimal, error) {
	res, err := c.CalculateForProfit(ctx, profit)
	if err != nil {
		return decimal.Zero, err
	}
	return res.Commission, nil
}
