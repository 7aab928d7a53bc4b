package repository

import (
	"context"
	"errors"

	"github.com/opendce/backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var docKeyColumns = []clause.Column{{Name: "procedure_id"}, {Name: "doc_type"}, {Name: "lot_number"}}

type lotDocumentRepository struct {
	db *gorm.DB
}

func NewLotDocumentRepository(db *gorm.DB) LotDocumentRepository {
	return &lotDocumentRepository{db: db}
}

func (r *lotDocumentRepository) Get(ctx context.Context, key DocKey) (*model.LotDocument, error) {
	var doc model.LotDocument
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

func upsertLotDocuments(db *gorm.DB, docs interface{}) error {
	return db.Clauses(clause.OnConflict{
		Columns:   docKeyColumns,
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(docs).Error
}

func (r *lotDocumentRepository) Upsert(ctx context.Context, doc *model.LotDocument) error {
	return upsertLotDocuments(r.db.WithContext(ctx), doc)
}

func (r *lotDocumentRepository) UpsertMany(ctx context.Context, docs []model.LotDocument) error {
	if len(docs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertLotDocuments(tx, &docs)
	})
}

func (r *lotDocumentRepository) ListByNumbers(ctx context.Context, procedureID uint, docType string, lots []int) ([]model.LotDocument, error) {
	var docs []model.LotDocument
	if len(lots) == 0 {
		return docs, nil
	}
	err := r.db.WithContext(ctx).
		Where("procedure_id = ? AND doc_type = ? AND lot_number IN ?", procedureID, docType, lots).
		Order("lot_number").
		Find(&docs).Error
	return docs, err
}

func (r *lotDocumentRepository) ListLotNumbers(ctx context.Context, procedureID uint, docType string) ([]int, error) {
	var numbers []int
	err := r.db.WithContext(ctx).Model(&model.LotDocument{}).
		Where("procedure_id = ? AND doc_type = ?", procedureID, docType).
		Order("lot_number").
		Pluck("lot_number", &numbers).Error
	return numbers, err
}
