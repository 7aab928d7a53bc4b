package repository

import (
	"context"
	"errors"

	"github.com/opendce/backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type procedureRepository struct {
	db *gorm.DB
}

func NewProcedureRepository(db *gorm.DB) ProcedureRepository {
	return &procedureRepository{db: db}
}

func (r *procedureRepository) Create(ctx context.Context, p *model.Procedure) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *procedureRepository) List(ctx context.Context) ([]model.Procedure, error) {
	var list []model.Procedure
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&list).Error
	return list, err
}

// Get 获取程序及其分标段
func (r *procedureRepository) Get(ctx context.Context, id uint) (*model.Procedure, error) {
	var p model.Procedure
	err := r.db.WithContext(ctx).
		Preload("Lots", func(db *gorm.DB) *gorm.DB { return db.Order("number") }).
		First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *procedureRepository) GetByReference(ctx context.Context, reference string) (*model.Procedure, error) {
	var p model.Procedure
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *procedureRepository) Save(ctx context.Context, p *model.Procedure) error {
	return r.db.WithContext(ctx).Omit("Lots").Save(p).Error
}

// Delete 删除程序及其下所有文档、分标段和操作记录
func (r *procedureRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{&model.Lot{}, &model.LotDocument{}, &model.SectionDocument{}, &model.Activity{}} {
			if err := tx.Where("procedure_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&model.Procedure{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// UpsertLot 按 (procedure_id, number) 插入或更新分标段
func (r *procedureRepository) UpsertLot(ctx context.Context, lot *model.Lot) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "procedure_id"}, {Name: "number"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "budget", "updated_at"}),
	}).Create(lot).Error
}

func (r *procedureRepository) ListLots(ctx context.Context, procedureID uint) ([]model.Lot, error) {
	var lots []model.Lot
	err := r.db.WithContext(ctx).Where("procedure_id = ?", procedureID).Order("number").Find(&lots).Error
	return lots, err
}
