package handler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"syntra-ledger/internal/cache"
	"syntra-ledger/internal/events"
)

const (
	COMMISSION_RANKS_CACHE_KEY      = "commission:ranks"
	TRANSFER_TYPES_CACHE_KEY        = "commission:transfer_types:all"
	TRANSFER_TYPES_ACTIVE_CACHE_KEY = "commission:transfer_types:active"
	CACHE_TTL_LONG                  = 2 * time.Hour
)

// EmployeeDirectory is the slice of the staff directory commissions need.
type EmployeeDirectory interface {
	FindInvalidEmployeeIDs(ctx context.Context, ids []int64) ([]int64, error)
	EmployeeNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

type Options struct {
	CsFlatFee       decimal.Decimal
	BulkConcurrency int
}

type CommissionHandler struct {
	db              *gorm.DB
	cache           cache.Store
	events          events.Publisher
	directory       EmployeeDirectory
	csFlatFee       decimal.Decimal
	bulkConcurrency int
}

func NewCommissionHandler(db *gorm.DB, store cache.Store, publisher events.Publisher, directory EmployeeDirectory, opts Options) *CommissionHandler {
	if opts.BulkConcurrency <= 0 {
		opts.BulkConcurrency = 4
	}
	if opts.CsFlatFee.IsNegative() {
		opts.CsFlatFee = decimal.Zero
	}
	return &CommissionHandler{
		db:              db,
		cache:           store,
		events:          publisher,
		directory:       directory,
		csFlatFee:       opts.CsFlatFee,
		bulkConcurrency: opts.BulkConcurrency,
	}
}

func (c *CommissionHandler) InvalidateCommissionCaches(ctx context.Context, keys ...string) {
	if err := c.cache.Del(ctx, keys...); err != nil {
		log.Printf("Failed to invalidate commission cache %v: %v", keys, err)
	}
}

func (c *CommissionHandler) publish(ctx context.Context, eventType string, entityID int64, data interface{}) {
	err := c.events.Publish(ctx, events.Event{
		EventType: eventType,
		EntityID:  entityID,
		Timestamp: time.Now(),
		Data:      data,
	})
	if err != nil {
		log.Printf("Failed to publish %s event for %d: %v", eventType, entityID, err)
	}
}

// --- Helpers ---

const dateLayout = "2006-01-02"

// parseDateRange parses inclusive yyyy-mm-dd bounds. The returned end is
// exclusive (the day after endDate).
func parseDateRange(startDate, endDate string) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if startDate != "" {
		t, err := time.ParseInLocation(dateLayout, startDate, time.Local)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid start date %q", startDate)
		}
		start = &t
	}
	if endDate != "" {
		t, err := time.ParseInLocation(dateLayout, endDate, time.Local)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid end date %q", endDate)
		}
		t = t.AddDate(0, 0, 1)
		end = &t
	}
	if start != nil && end != nil && !start.Before(*end) {
		return nil, nil, fmt.Errorf("start date must not be after end date")
	}
	return start, end, nil
}
