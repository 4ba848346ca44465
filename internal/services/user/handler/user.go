package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"syntra-ledger/internal/cache"
	"syntra-ledger/internal/database/models"
)

const (
	USER_EMPLOYEE_CACHE_PREFIX = "user:employee:"
	CACHE_TTL_MEDIUM           = 30 * time.Minute
)

// UserHandler is the read side of the staff directory used by the
// commission services. It never writes employees.
type UserHandler struct {
	db    *gorm.DB
	cache cache.Store
}

func NewUserHandler(db *gorm.DB, store cache.Store) *UserHandler {
	return &UserHandler{
		db:    db,
		cache: store,
	}
}

func (s *UserHandler) InvalidateEmployeeCaches(ctx context.Context, ids ...int64) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, fmt.Sprintf("%s%d", USER_EMPLOYEE_CACHE_PREFIX, id))
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		log.Printf("Failed to invalidate employee cache: %v", err)
	}
}

func (s *UserHandler) GetEmployee(ctx context.Context, id int64) (*models.Employee, error) {
	if id <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "Employee ID is required")
	}

	cacheKey := fmt.Sprintf("%s%d", USER_EMPLOYEE_CACHE_PREFIX, id)
	var cached models.Employee
	if found, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
		log.Printf("Cache error on GET %s: %v. Falling back to DB.", cacheKey, err)
	} else if found {
		return &cached, nil
	}

	var employee models.Employee
	if err := s.db.WithContext(ctx).First(&employee, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, status.Errorf(codes.NotFound, "Employee with ID %d not found", id)
		}
		return nil, status.Errorf(codes.Internal, "Failed to get employee: %v", err)
	}

	if err := s.cache.Set(ctx, cacheKey, employee, CACHE_TTL_MEDIUM); err != nil {
		log.Printf("Failed to set cache for key %s: %v", cacheKey, err)
	}
	return &employee, nil
}

func (s *UserHandler) FindInvalidEmployeeIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var validIDs []int64
	err := s.db.WithContext(ctx).Model(&models.Employee{}).
		Where("id IN ? AND is_active = ?", ids, true).
		Pluck("id", &validIDs).Error
	if err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to validate employees: %v", err)
	}

	valid := make(map[int64]struct{}, len(validIDs))
	for _, id := range validIDs {
		valid[id] = struct{}{}
	}

	var invalid []int64
	for _, id := range ids {
		if _, ok := valid[id]; !ok {
			invalid = append(invalid, id)
		}
	}
	return invalid, nil
}

// EmployeeNames includes deleted employees so historical reports keep their names.
func (s *UserHandler) EmployeeNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	var employees []models.Employee
	if err := s.db.WithContext(ctx).Unscoped().Select("id", "employee_name").Where("id IN ?", ids).Find(&employees).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to load employee names: %v", err)
	}
	for _, emp := range employees {
		names[emp.ID] = emp.EmployeeName
	}
	return names, nil
}
