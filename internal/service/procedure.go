package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/opendce/backend/internal/model"
	"github.com/opendce/backend/internal/pkg/spreadsheet"
	"github.com/opendce/backend/internal/repository"
	"github.com/opendce/backend/internal/service/grid"
	"github.com/opendce/backend/internal/service/statemachine"
	"k8s.io/klog/v2"
)

// CreateProcedureRequest 创建程序请求
type CreateProcedureRequest struct {
	Reference   string  `json:"reference" binding:"required,max=100"`
	Title       string  `json:"title" binding:"required,max=500"`
	Buyer       string  `json:"buyer" binding:"max=255"`
	Description string  `json:"description"`
	Budget      float64 `json:"budget" binding:"gte=0"`
}

// UpdateProcedureRequest 更新程序请求
type UpdateProcedureRequest struct {
	Title       string  `json:"title" binding:"required,max=500"`
	Buyer       string  `json:"buyer" binding:"max=255"`
	Description string  `json:"description"`
	Status      string  `json:"status" binding:"omitempty,oneof=draft published closed"`
	Budget      float64 `json:"budget" binding:"gte=0"`
}

// UpsertLotRequest 创建或更新分标段请求
type UpsertLotRequest struct {
	Title  string  `json:"title" binding:"max=500"`
	Budget float64 `json:"budget" binding:"gte=0"`
}

// ProcedureImportReport 程序导入结果
type ProcedureImportReport struct {
	HeaderRow       int      `json:"header_row"`
	MappedColumns   int      `json:"mapped_columns"`
	UnmappedHeaders []string `json:"unmapped_headers"`
	Created         int      `json:"created"`
	Updated         int      `json:"updated"`
	Skipped         int      `json:"skipped"`
}

// ProcedureService 程序服务接口
type ProcedureService interface {
	Create(ctx context.Context, req CreateProcedureRequest) (*model.Procedure, error)
	List(ctx context.Context) ([]model.Procedure, error)
	Get(ctx context.Context, id uint) (*model.Procedure, error)
	Update(ctx context.Context, id uint, req UpdateProcedureRequest) (*model.Procedure, error)
	Delete(ctx context.Context, id uint) error
	UpsertLot(ctx context.Context, procedureID uint, number int, req UpsertLotRequest) (*model.Lot, error)
	ListLots(ctx context.Context, procedureID uint) ([]model.Lot, error)
	ListActivity(ctx context.Context, procedureID uint, limit int) ([]model.Activity, error)
	ImportProcedures(ctx context.Context, filename string, data []byte) (*ProcedureImportReport, error)
}

type procedureService struct {
	repo         repository.ProcedureRepository
	activityRepo repository.ActivityRepository
	engine       *grid.Engine
	states       *statemachine.ProcedureStateMachine
}

func NewProcedureService(repo repository.ProcedureRepository, activityRepo repository.ActivityRepository, engine *grid.Engine) ProcedureService {
	return &procedureService{repo: repo, activityRepo: activityRepo, engine: engine, states: statemachine.NewProcedureStateMachine()}
}

func (s *procedureService) Create(ctx context.Context, req CreateProcedureRequest) (*model.Procedure, error) {
	ref := strings.TrimSpace(req.Reference)
	title := strings.TrimSpace(req.Title)
	if ref == "" || title == "" || req.Budget < 0 {
		return nil, ErrInvalidProcedure
	}

	if _, err := s.repo.GetByReference(ctx, ref); err == nil {
		return nil, ErrProcedureExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check procedure reference: %w", err)
	}

	p := &model.Procedure{
		Reference:   ref,
		Title:       title,
		Buyer:       strings.TrimSpace(req.Buyer),
		Description: req.Description,
		Status:      string(statemachine.ProcedureDraft),
		Budget:      req.Budget,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create procedure: %w", err)
	}
	return p, nil
}

func (s *procedureService) List(ctx context.Context) ([]model.Procedure, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list procedures: %w", err)
	}
	return list, nil
}

// Get 获取程序详情（含分标段）
func (s *procedureService) Get(ctx context.Context, id uint) (*model.Procedure, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProcedureNotFound
		}
		return nil, fmt.Errorf("failed to get procedure: %w", err)
	}
	return p, nil
}

func (s *procedureService) Update(ctx context.Context, id uint, req UpdateProcedureRequest) (*model.Procedure, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" || req.Budget < 0 {
		return nil, ErrInvalidProcedure
	}

	p.Title = title
	p.Buyer = strings.TrimSpace(req.Buyer)
	p.Description = req.Description
	p.Budget = req.Budget
	if req.Status != "" && req.Status != p.Status {
		to, ok := statemachine.ParseProcedureStatus(req.Status)
		if !ok {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidProcedure, req.Status)
		}
		if err := s.states.Transition(statemachine.ProcedureStatus(p.Status), to, p.ID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidStatusTransition, err)
		}
		p.Status = string(to)
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update procedure: %w", err)
	}
	return p, nil
}

func (s *procedureService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProcedureNotFound
		}
		return fmt.Errorf("failed to delete procedure: %w", err)
	}
	return nil
}

func (s *procedureService) UpsertLot(ctx context.Context, procedureID uint, number int, req UpsertLotRequest) (*model.Lot, error) {
	if number <= 0 || req.Budget < 0 {
		return nil, ErrInvalidLot
	}
	if _, err := s.Get(ctx, procedureID); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = fmt.Sprintf("Lot %d", number)
	}

	lot := &model.Lot{ProcedureID: procedureID, Number: number, Title: title, Budget: req.Budget}
	if err := s.repo.UpsertLot(ctx, lot); err != nil {
		return nil, fmt.Errorf("failed to save lot: %w", err)
	}
	return lot, nil
}

func (s *procedureService) ListLots(ctx context.Context, procedureID uint) ([]model.Lot, error) {
	if _, err := s.Get(ctx, procedureID); err != nil {
		return nil, err
	}
	lots, err := s.repo.ListLots(ctx, procedureID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}
	return lots, nil
}

func (s *procedureService) ListActivity(ctx context.Context, procedureID uint, limit int) ([]model.Activity, error) {
	if _, err := s.Get(ctx, procedureID); err != nil {
		return nil, err
	}
	list, err := s.activityRepo.ListByProcedure(ctx, procedureID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return list, nil
}

// 程序导入表的列
const (
	procColReference   = "reference"
	procColTitle       = "objet"
	procColBuyer       = "acheteur"
	procColBudget      = "budget"
	procColDescription = "description"
)

var procedureColumns = []grid.Column{
	{ID: procColReference, Label: "Référence", IsEditable: true},
	{ID: procColTitle, Label: "Intitulé", IsEditable: true},
	{ID: procColBuyer, Label: "Pouvoir adjudicateur", IsEditable: true},
	{ID: procColBudget, Label: "Budget HT", IsEditable: true},
	{ID: procColDescription, Label: "Description", IsEditable: true},
}

var procedureKeywords = []string{"référence", "intitulé", "objet", "acheteur", "adjudicateur", "budget", "description"}

// ImportProcedures 从电子表格批量创建或更新程序，以 Référence 为键
func (s *procedureService) ImportProcedures(ctx context.Context, filename string, data []byte) (*ProcedureImportReport, error) {
	rows, err := ReadFirstSheet(filename, data)
	if err != nil {
		return nil, err
	}

	cfg := s.engine.Config()
	headerIdx := grid.DetectHeaderRow(rows, procedureKeywords, cfg.HeaderScanRows, cfg.HeaderMinHits)
	mapping := grid.MatchColumns(rows[headerIdx], procedureColumns)
	if _, ok := columnIndex(mapping, procColReference); !ok {
		return nil, fmt.Errorf("%w: missing reference column", ErrNoColumnsMatched)
	}

	report := &ProcedureImportReport{
		HeaderRow:       headerIdx,
		MappedColumns:   len(mapping.Matches),
		UnmappedHeaders: mapping.Unmapped,
	}
	for _, r := range grid.RowsFromImport(rows, headerIdx, mapping) {
		ref := strings.TrimSpace(r.Cells[procColReference])
		if ref == "" {
			report.Skipped++
			continue
		}
		title := strings.TrimSpace(r.Cells[procColTitle])
		if title == "" {
			title = ref
		}

		existing, err := s.repo.GetByReference(ctx, ref)
		switch {
		case err == nil:
			existing.Title = title
			if v, ok := r.Cells[procColBuyer]; ok {
				existing.Buyer = v
			}
			if v, ok := r.Cells[procColDescription]; ok {
				existing.Description = v
			}
			if v, ok := r.Cells[procColBudget]; ok {
				existing.Budget = grid.ParseNumber(v)
			}
			if err := s.repo.Save(ctx, existing); err != nil {
				return report, fmt.Errorf("failed to update procedure %s: %w", ref, err)
			}
			report.Updated++
		case errors.Is(err, repository.ErrNotFound):
			p := &model.Procedure{
				Reference:   ref,
				Title:       title,
				Buyer:       r.Cells[procColBuyer],
				Description: r.Cells[procColDescription],
				Status:      string(statemachine.ProcedureDraft),
				Budget:      grid.ParseNumber(r.Cells[procColBudget]),
			}
			if err := s.repo.Create(ctx, p); err != nil {
				return report, fmt.Errorf("failed to create procedure %s: %w", ref, err)
			}
			report.Created++
		default:
			return report, fmt.Errorf("failed to check procedure reference: %w", err)
		}
	}

	klog.V(6).Infof("[procedure] 导入 %s: 新建 %d，更新 %d，跳过 %d", filename, report.Created, report.Updated, report.Skipped)
	return report, nil
}

func wrapProcedureErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrProcedureNotFound
	}
	return fmt.Errorf("failed to get procedure: %w", err)
}

func columnIndex(m grid.Mapping, columnID string) (int, bool) {
	for _, c := range m.Matches {
		if c.ColumnID == columnID {
			return c.Index, true
		}
	}
	return 0, false
}

// ReadFirstSheet 校验扩展名并读取第一个非空工作表
func ReadFirstSheet(filename string, data []byte) ([][]string, error) {
	if err := spreadsheet.CheckExtension(filename); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFileType, err)
	}
	sheets, err := spreadsheet.Read(data)
	if err != nil {
		if errors.Is(err, spreadsheet.ErrEmptyWorkbook) {
			return nil, ErrEmptyWorkbook
		}
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	sheet, ok := spreadsheet.FirstNonEmpty(sheets)
	if !ok {
		return nil, ErrEmptyWorkbook
	}
	return sheet.Rows, nil
}
