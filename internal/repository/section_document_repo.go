package repository

import (
	"context"
	"errors"

	"github.com/opendce/backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sectionDocumentRepository struct {
	db *gorm.DB
}

func NewSectionDocumentRepository(db *gorm.DB) SectionDocumentRepository {
	return &sectionDocumentRepository{db: db}
}

func (r *sectionDocumentRepository) Get(ctx context.Context, key DocKey) (*model.SectionDocument, error) {
	var doc model.SectionDocument
	err := r.db.WithContext(ctx).
		Where("procedure_id = ? AND doc_type = ? AND lot_number = ?", key.ProcedureID, key.DocType, key.LotNumber).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *sectionDocumentRepository) Upsert(ctx context.Context, doc *model.SectionDocument) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   docKeyColumns,
		DoUpdates: clause.AssignmentColumns([]string{"payload", "source_file", "tier", "updated_at"}),
	}).Create(doc).Error
}
