package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/opendce/backend/internal/eventbus"
	"github.com/opendce/backend/internal/model"
	"github.com/opendce/backend/internal/repository"
	"github.com/opendce/backend/internal/service/grid"
	"k8s.io/klog/v2"
)

// LotKey 表格文档键
type LotKey struct {
	ProcedureID uint
	DocType     grid.DocType
	LotNumber   int
}

func (k LotKey) docKey() repository.DocKey {
	return repository.DocKey{ProcedureID: k.ProcedureID, DocType: string(k.DocType), LotNumber: k.LotNumber}
}

// LotDocumentDTO 表格文档
type LotDocumentDTO struct {
	ProcedureID uint         `json:"procedure_id"`
	DocType     grid.DocType `json:"doc_type"`
	LotNumber   int          `json:"lot_number"`
	Grid        *grid.Grid   `json:"grid"`
	Totals      grid.Totals  `json:"totals"`
	Saved       bool         `json:"saved"`
	UpdatedAt   *time.Time   `json:"updated_at,omitempty"`
}

// LotImportResult 导入结果
type LotImportResult struct {
	Document *LotDocumentDTO    `json:"document"`
	Report   *grid.ImportReport `json:"report"`
}

// DuplicateResult 复制结果
type DuplicateResult struct {
	Source     *LotDocumentDTO `json:"source"`
	TargetLots []int           `json:"target_lots"`
}

// LotService 分标段表格文档服务
type LotService interface {
	Get(ctx context.Context, key LotKey) (*LotDocumentDTO, error)
	Save(ctx context.Context, key LotKey, g *grid.Grid) (*LotDocumentDTO, error)
	ApplyEdit(ctx context.Context, key LotKey, edits []grid.Edit) (*LotDocumentDTO, error)
	Import(ctx context.Context, key LotKey, filename string, data []byte) (*LotImportResult, error)
	Duplicate(ctx context.Context, key LotKey, g *grid.Grid, targetLots []int) (*DuplicateResult, error)
	ExportLot(ctx context.Context, key LotKey) (*ExportFile, error)
	ExportConsolidated(ctx context.Context, procedureID uint, docType grid.DocType, lots []int) (*ExportFile, error)
	ListLots(ctx context.Context, procedureID uint, docType grid.DocType) ([]int, error)
}

type lotService struct {
	docs          repository.LotDocumentRepository
	procedures    repository.ProcedureRepository
	engine        *grid.Engine
	bus           *eventbus.LotEventBus
	exportWorkers int
}

func NewLotService(docs repository.LotDocumentRepository, procedures repository.ProcedureRepository, engine *grid.Engine, bus *eventbus.LotEventBus, exportWorkers int) LotService {
	if exportWorkers <= 0 {
		exportWorkers = 4
	}
	return &lotService{docs: docs, procedures: procedures, engine: engine, bus: bus, exportWorkers: exportWorkers}
}

func (s *lotService) validateKey(ctx context.Context, key LotKey) (*model.Procedure, error) {
	if _, err := grid.ParseDocType(string(key.DocType)); err != nil {
		return nil, err
	}
	if key.LotNumber <= 0 {
		return nil, ErrInvalidLot
	}
	p, err := s.procedures.Get(ctx, key.ProcedureID)
	if err != nil {
		return nil, wrapProcedureErr(err)
	}
	return p, nil
}

// load 读取已保存的表格，未保存时返回默认表格
func (s *lotService) load(ctx context.Context, key LotKey) (*grid.Grid, *model.LotDocument, error) {
	doc, err := s.docs.Get(ctx, key.docKey())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			g, err := s.engine.NewGrid(key.DocType)
			return g, nil, err
		}
		return nil, nil, fmt.Errorf("failed to get lot document: %w", err)
	}
	g, err := decodeGrid(doc.Payload, key.DocType)
	if err != nil {
		return nil, nil, err
	}
	return g, doc, nil
}

func decodeGrid(payload string, docType grid.DocType) (*grid.Grid, error) {
	var g grid.Grid
	if err := json.Unmarshal([]byte(payload), &g); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedDocument, err)
	}
	g.DocType = docType
	if g.HeaderLabels == nil {
		g.HeaderLabels = map[string]string{}
	}
	return &g, nil
}

func (s *lotService) toDTO(key LotKey, g *grid.Grid, doc *model.LotDocument) *LotDocumentDTO {
	dto := &LotDocumentDTO{
		ProcedureID: key.ProcedureID,
		DocType:     key.DocType,
		LotNumber:   key.LotNumber,
		Grid:        g,
		Totals:      s.engine.Totals(g),
	}
	if doc != nil {
		dto.Saved = true
		updated := doc.UpdatedAt
		dto.UpdatedAt = &updated
	}
	return dto
}

func (s *lotService) Get(ctx context.Context, key LotKey) (*LotDocumentDTO, error) {
	if _, err := s.validateKey(ctx, key); err != nil {
		return nil, err
	}
	g, doc, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.toDTO(key, g, doc), nil
}

// prepare 规范化客户端提交的表格并重算
func (s *lotService) prepare(key LotKey, g *grid.Grid) (*grid.Grid, error) {
	if g == nil || len(g.Columns) == 0 {
		return nil, fmt.Errorf("%w: grid must have at least one column", ErrInvalidGrid)
	}
	out := g.Clone()
	out.DocType = key.DocType

	seen := make(map[string]bool, len(out.Columns))
	for _, c := range out.Columns {
		if c.ID == "" || seen[c.ID] {
			return nil, fmt.Errorf("%w: duplicate or empty column id %q", ErrInvalidGrid, c.ID)
		}
		seen[c.ID] = true
	}
	for i := range out.Rows {
		if out.Rows[i].ID == "" {
			out.Rows[i].ID = uuid.NewString()
		}
	}
	s.engine.Recompute(out)
	return out, nil
}

func (s *lotService) persist(ctx context.Context, key LotKey, g *grid.Grid) (*model.LotDocument, error) {
	payload, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to encode grid: %w", err)
	}
	doc := &model.LotDocument{
		ProcedureID: key.ProcedureID,
		DocType:     string(key.DocType),
		LotNumber:   key.LotNumber,
		Payload:     string(payload),
	}
	if err := s.docs.Upsert(ctx, doc); err != nil {
		klog.Errorf("[lot] 保存失败 procedure=%d %s lot=%d: %v", key.ProcedureID, key.DocType, key.LotNumber, err)
		return nil, fmt.Errorf("failed to save lot document: %w", err)
	}
	return doc, nil
}

func (s *lotService) publish(ctx context.Context, event eventbus.LotEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, event.Type, event); err != nil {
		klog.Warningf("[lot] 事件处理失败 type=%s: %v", event.Type, err)
	}
}

// Save 重算后按键插入或覆盖
func (s *lotService) Save(ctx context.Context, key LotKey, g *grid.Grid) (*LotDocumentDTO, error) {
	if _, err := s.validateKey(ctx, key); err != nil {
		return nil, err
	}
	prepared, err := s.prepare(key, g)
	if err != nil {
		return nil, err
	}
	doc, err := s.persist(ctx, key, prepared)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, eventbus.LotEvent{
		Type: eventbus.LotEventSaved, ProcedureID: key.ProcedureID, DocType: string(key.DocType),
		LotNumber: key.LotNumber, Rows: len(prepared.Rows),
	})
	return s.toDTO(key, prepared, doc), nil
}

// ApplyEdit 依次执行编辑，任一失败时不保存
func (s *lotService) ApplyEdit(ctx context.Context, key LotKey, edits []grid.Edit) (*LotDocumentDTO, error) {
	if _, err := s.validateKey(ctx, key); err != nil {
		return nil, err
	}
	current, _, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	work := current.Clone()
	for i, ed := range edits {
		if err := s.engine.Apply(work, ed); err != nil {
			return nil, fmt.Errorf("edit %d (%s): %w", i, ed.Op, err)
		}
	}
	doc, err := s.persist(ctx, key, work)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, eventbus.LotEvent{
		Type: eventbus.LotEventSaved, ProcedureID: key.ProcedureID, DocType: string(key.DocType),
		LotNumber: key.LotNumber, Rows: len(work.Rows), Detail: map[string]any{"edits": len(edits)},
	})
	return s.toDTO(key, work, doc), nil
}

// Import 导入电子表格；任何失败都不改变已保存的表格
func (s *lotService) Import(ctx context.Context, key LotKey, filename string, data []byte) (*LotImportResult, error) {
	if _, err := s.validateKey(ctx, key); err != nil {
		return nil, err
	}
	rows, err := ReadFirstSheet(filename, data)
	if err != nil {
		return nil, err
	}

	current, _, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	work := current.Clone()
	report, err := s.engine.Import(work, rows)
	if err != nil {
		return nil, err
	}

	doc, err := s.persist(ctx, key, work)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, eventbus.LotEvent{
		Type: eventbus.LotEventImported, ProcedureID: key.ProcedureID, DocType: string(key.DocType),
		LotNumber: key.LotNumber, Rows: report.ImportedRows,
		Detail: map[string]any{"file": filename, "mapped_columns": report.MappedColumns, "unmapped_headers": report.UnmappedHeaders},
	})
	return &LotImportResult{Document: s.toDTO(key, work, doc), Report: report}, nil
}

// Duplicate 先保存源表格，再在一个事务中写入所有目标分标段
// g 为空时复制已保存的表格；写入目标失败时源表格保持已保存状态
func (s *lotService) Duplicate(ctx context.Context, key LotKey, g *grid.Grid, targetLots []int) (*DuplicateResult, error) {
	targets := normalizeTargets(targetLots, key.LotNumber)
	if len(targets) == 0 {
		return nil, ErrInvalidTargetLots
	}
	if g == nil {
		current, _, err := s.load(ctx, key)
		if err != nil {
			return nil, err
		}
		g = current
	}

	source, err := s.Save(ctx, key, g)
	if err != nil {
		return nil, err
	}

	docs := make([]model.LotDocument, 0, len(targets))
	for _, n := range targets {
		payload, err := json.Marshal(source.Grid.Clone())
		if err != nil {
			return nil, fmt.Errorf("failed to encode grid: %w", err)
		}
		docs = append(docs, model.LotDocument{
			ProcedureID: key.ProcedureID,
			DocType:     string(key.DocType),
			LotNumber:   n,
			Payload:     string(payload),
		})
	}
	if err := s.docs.UpsertMany(ctx, docs); err != nil {
		klog.Errorf("[lot] 复制到分标段 %v 失败: %v", targets, err)
		return nil, fmt.Errorf("%w: %v", ErrDuplicateIncomplete, err)
	}

	s.publish(ctx, eventbus.LotEvent{
		Type: eventbus.LotEventDuplicated, ProcedureID: key.ProcedureID, DocType: string(key.DocType),
		LotNumber: key.LotNumber, TargetLots: targets, Rows: len(source.Grid.Rows),
	})
	return &DuplicateResult{Source: source, TargetLots: targets}, nil
}

// normalizeTargets 去重、排序，去掉非正数与源分标段
func normalizeTargets(lots []int, source int) []int {
	seen := map[int]bool{source: true}
	var out []int
	for _, n := range lots {
		if n <= 0 || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func (s *lotService) ListLots(ctx context.Context, procedureID uint, docType grid.DocType) ([]int, error) {
	if _, err := grid.ParseDocType(string(docType)); err != nil {
		return nil, err
	}
	numbers, err := s.docs.ListLotNumbers(ctx, procedureID, string(docType))
	if err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}
	if numbers == nil {
		numbers = []int{}
	}
	return numbers, nil
}
