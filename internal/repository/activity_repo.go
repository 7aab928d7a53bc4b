package repository

import (
	"context"

	"github.com/opendce/backend/internal/model"
	"gorm.io/gorm"
)

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, a *model.Activity) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// ListByProcedure 按时间倒序返回最近的操作记录
func (r *activityRepository) ListByProcedure(ctx context.Context, procedureID uint, limit int) ([]model.Activity, error) {
	if limit <= 0 {
		limit = 100
	}
	var list []model.Activity
	err := r.db.WithContext(ctx).
		Where("procedure_id = ?", procedureID).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
