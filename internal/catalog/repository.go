package catalog

import (
	"context"
	"errors"
	"fmt"

	"courtly/internal/shared/apperror"

	"gorm.io/gorm"
)

// Repository reads the court and service price tables.
type Repository interface {
	GetCourt(ctx context.Context, id int64) (*Court, error)
	GetServices(ctx context.Context, ids []int64) ([]Service, error)
	GetBranchServices(ctx context.Context, ids []int64) ([]BranchService, error)
	ListBranchServices(ctx context.Context, branchID int64) ([]BranchService, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetCourt(ctx context.Context, id int64) (*Court, error) {
	var court Court
	err := r.db.WithContext(ctx).First(&court, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Newf(apperror.ErrReferenceNotFound, "court %d not found", id)
		}
		return nil, fmt.Errorf("failed to get court: %w", err)
	}
	return &court, nil
}

func (r *repository) GetServices(ctx context.Context, ids []int64) ([]Service, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var services []Service
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&services).Error; err != nil {
		return nil, fmt.Errorf("failed to get services: %w", err)
	}
	return services, nil
}

func (r *repository) GetBranchServices(ctx context.Context, ids []int64) ([]BranchService, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var list []BranchService
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to get branch services: %w", err)
	}
	return list, nil
}

func (r *repository) ListBranchServices(ctx context.Context, branchID int64) ([]BranchService, error) {
	var list []BranchService
	err := r.db.WithContext(ctx).
		Where("branch_id = ?", branchID).
		Where("status = ?", "ACTIVE").
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list branch services: %w", err)
	}
	return list, nil
}
