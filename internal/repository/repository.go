package repository

import (
	"context"
	"errors"

	"github.com/opendce/backend/internal/model"
)

// ErrNotFound 记录不存在错误
var ErrNotFound = errors.New("record not found")

// DocKey 文档键：程序 + 文档类型 + 分标段号
type DocKey struct {
	ProcedureID uint
	DocType     string
	LotNumber   int
}

type ProcedureRepository interface {
	Create(ctx context.Context, p *model.Procedure) error
	List(ctx context.Context) ([]model.Procedure, error)
	Get(ctx context.Context, id uint) (*model.Procedure, error)
	GetByReference(ctx context.Context, reference string) (*model.Procedure, error)
	Save(ctx context.Context, p *model.Procedure) error
	Delete(ctx context.Context, id uint) error

	UpsertLot(ctx context.Context, lot *model.Lot) error
	ListLots(ctx context.Context, procedureID uint) ([]model.Lot, error)
}

// LotDocumentRepository 表格文档仓储，按 DocKey 插入或覆盖
type LotDocumentRepository interface {
	Get(ctx context.Context, key DocKey) (*model.LotDocument, error)
	Upsert(ctx context.Context, doc *model.LotDocument) error
	// UpsertMany 在同一事务中写入多份文档
	UpsertMany(ctx context.Context, docs []model.LotDocument) error
	ListByNumbers(ctx context.Context, procedureID uint, docType string, lots []int) ([]model.LotDocument, error)
	ListLotNumbers(ctx context.Context, procedureID uint, docType string) ([]int, error)
}

type SectionDocumentRepository interface {
	Get(ctx context.Context, key DocKey) (*model.SectionDocument, error)
	Upsert(ctx context.Context, doc *model.SectionDocument) error
}

type ActivityRepository interface {
	Create(ctx context.Context, a *model.Activity) error
	ListByProcedure(ctx context.Context, procedureID uint, limit int) ([]model.Activity, error)
}
