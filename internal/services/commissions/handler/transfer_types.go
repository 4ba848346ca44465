package handler

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"syntra-ledger/internal/database/models"
)

type TransferTypeInput struct {
	TypeName       *string          `json:"type_name"`
	CommissionRate *decimal.Decimal `json:"commission_rate"`
	IsActive       *bool            `json:"is_active"`
	Description    *string          `json:"description"`
}

func normalizeTypeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// typeNameTaken ignores soft-deleted rows so a deleted name can be reused.
func typeNameTaken(tx *gorm.DB, name string, excludeID int64) (bool, error) {
	var count int64
	q := tx.Model(&models.TransferType{}).Where("type_name = ?", name)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (c *CommissionHandler) invalidateTransferTypeCaches(ctx context.Context) {
	c.InvalidateCommissionCaches(ctx, TRANSFER_TYPES_CACHE_KEY, TRANSFER_TYPES_ACTIVE_CACHE_KEY)
}

func (c *CommissionHandler) CreateTransferType(ctx context.Context, in TransferTypeInput) (*models.TransferType, error) {
	if in.TypeName == nil || normalizeTypeName(*in.TypeName) == "" {
		return nil, status.Errorf(codes.InvalidArgument, "Type name is required")
	}
	tt := models.TransferType{
		TypeName:       normalizeTypeName(*in.TypeName),
		CommissionRate: decimal.Zero,
		IsActive:       true,
	}
	if in.CommissionRate != nil {
		if in.CommissionRate.IsNegative() {
			return nil, status.Errorf(codes.InvalidArgument, "Commission rate must not be negative")
		}
		tt.CommissionRate = *in.CommissionRate
	}
	if in.IsActive != nil {
		tt.IsActive = *in.IsActive
	}
	if in.Description != nil {
		tt.Description = *in.Description
	}

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := typeNameTaken(tx, tt.TypeName, 0)
		if err != nil {
			return status.Errorf(codes.Internal, "Failed to check transfer type name: %v", err)
		}
		if taken {
			return status.Errorf(codes.InvalidArgument, "Transfer type %q already exists", tt.TypeName)
		}
		if err := tx.Create(&tt).Error; err != nil {
			return status.Errorf(codes.Internal, "Failed to create transfer type: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.invalidateTransferTypeCaches(ctx)
	return &tt, nil
}

// UpdateTransferType applies only the supplied fields. A deactivated type
// stays inactive unless is_active=true is sent explicitly.
func (c *CommissionHandler) UpdateTransferType(ctx context.Context, id int64, in TransferTypeInput) (*models.TransferType, error) {
	if id <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "Transfer type ID is required")
	}

	var tt models.TransferType
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&tt, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return status.Errorf(codes.NotFound, "Transfer type with ID %d not found", id)
			}
			return status.Errorf(codes.Internal, "Failed to get transfer type: %v", err)
		}

		if in.TypeName != nil {
			name := normalizeTypeName(*in.TypeName)
			if name == "" {
				return status.Errorf(codes.InvalidArgument, "Type name must not be empty")
			}
			if name != tt.TypeName {
				taken, err := typeNameTaken(tx, name, tt.ID)
				if err != nil {
					return status.Errorf(codes.Internal, "Failed to check transfer type name: %v", err)
				}
				if taken {
					return status.Errorf(codes.InvalidArgument, "Transfer type %q already exists", name)
				}
				tt.TypeName = name
			}
		}
		if in.CommissionRate != nil {
			if in.CommissionRate.IsNegative() {
				return status.Errorf(codes.InvalidArgument, "Commission rate must not be negative")
			}
			tt.CommissionRate = *in.CommissionRate
		}
		if in.IsActive != nil {
			tt.IsActive = *in.IsActive
		}
		if in.Description != nil {
			tt.Description = *in.Description
		}

		if err := tx.Save(&tt).Error; err != nil {
			return status.Errorf(codes.Internal, "Failed to update transfer type: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.invalidateTransferTypeCaches(ctx)
	return &tt, nil
}

func (c *CommissionHandler) GetTransferType(ctx context.Context, id int64) (*models.TransferType, error) {
	var tt models.TransferType
	if err := c.db.WithContext(ctx).First(&tt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, status.Errorf(codes.NotFound, "Transfer type with ID %d not found", id)
		}
		return nil, status.Errorf(codes.Internal, "Failed to get transfer type: %v", err)
	}
	return &tt, nil
}

func (c *CommissionHandler) ListTransferTypes(ctx context.Context, activeOnly bool) ([]models.TransferType, error) {
	cacheKey := TRANSFER_TYPES_CACHE_KEY
	if activeOnly {
		cacheKey = TRANSFER_TYPES_ACTIVE_CACHE_KEY
	}

	var types []models.TransferType
	found, err := c.cache.Get(ctx, cacheKey, &types)
	if err != nil {
		log.Printf("Cache error on GET %s: %v. Falling back to DB.", cacheKey, err)
	} else if found {
		return types, nil
	}

	types = []models.TransferType{}
	q := c.db.WithContext(ctx).Order("type_name asc")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&types).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to list transfer types: %v", err)
	}

	if err := c.cache.Set(ctx, cacheKey, types, CACHE_TTL_LONG); err != nil {
		log.Printf("Failed to set cache for key %s: %v", cacheKey, err)
	}
	return types, nil
}

// DeleteTransferType deactivates the row and soft-deletes it.
func (c *CommissionHandler) DeleteTransferType(ctx context.Context, id int64) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tt models.TransferType
		if err := tx.First(&tt, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return status.Errorf(codes.NotFound, "Transfer type with ID %d not found", id)
			}
			return status.Errorf(codes.Internal, "Failed to get transfer type: %v", err)
		}
		if err := tx.Model(&tt).Update("is_active", false).Error; err != nil {
			return status.Errorf(codes.Internal, "Failed to deactivate transfer type: %v", err)
		}
		if err := tx.Delete(&tt).Error; err != nil {
			return status.Errorf(codes.Internal, "Failed to delete transfer type: %v", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.invalidateTransferTypeCaches(ctx)
	return nil
}
