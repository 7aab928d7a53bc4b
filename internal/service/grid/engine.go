package grid

import (
	"fmt"

	"k8s.io/klog/v2"
)

// Config 表格引擎参数
type Config struct {
	DefaultRows    int
	DefaultVATRate float64
	HeaderScanRows int
	HeaderMinHits  int
}

// DefaultConfig 默认参数
func DefaultConfig() Config {
	return Config{
		DefaultRows:    10,
		DefaultVATRate: DefaultVATRate,
		HeaderScanRows: 20,
		HeaderMinHits:  3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultRows <= 0 {
		c.DefaultRows = d.DefaultRows
	}
	if c.DefaultVATRate <= 0 {
		c.DefaultVATRate = d.DefaultVATRate
	}
	if c.HeaderScanRows <= 0 {
		c.HeaderScanRows = d.HeaderScanRows
	}
	if c.HeaderMinHits <= 0 {
		c.HeaderMinHits = d.HeaderMinHits
	}
	return c
}

// Engine 表格引擎
type Engine struct {
	cfg Config
}

// NewEngine 创建引擎
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Config 返回生效的参数
func (e *Engine) Config() Config {
	return e.cfg
}

// NewGrid 创建带默认空行的表格
func (e *Engine) NewGrid(docType DocType) (*Grid, error) {
	g, err := New(docType, e.cfg.DefaultRows)
	if err != nil {
		return nil, err
	}
	e.Recompute(g)
	return g, nil
}

// Recompute 重算所有计算列
func (e *Engine) Recompute(g *Grid) {
	Recompute(g, e.cfg.DefaultVATRate)
}

// Totals 表格合计
func (e *Engine) Totals(g *Grid) Totals {
	return Sum(g, e.cfg.DefaultVATRate)
}

// EditOp 编辑操作类型
type EditOp string

const (
	OpAddColumn    EditOp = "add_column"
	OpRemoveColumn EditOp = "remove_column"
	OpRenameHeader EditOp = "rename_header"
	OpAddRow       EditOp = "add_row"
	OpRemoveRow    EditOp = "remove_row"
	OpSetCell      EditOp = "set_cell"
)

// Edit 一次表格编辑
// Position 为空时追加到末尾
type Edit struct {
	Op       EditOp  `json:"op"`
	Column   *Column `json:"column,omitempty"`
	ColumnID string  `json:"column_id,omitempty"`
	RowID    string  `json:"row_id,omitempty"`
	Position *int    `json:"position,omitempty"`
	Label    string  `json:"label,omitempty"`
	Value    string  `json:"value,omitempty"`
}

func (ed Edit) position() int {
	if ed.Position == nil {
		return -1
	}
	return *ed.Position
}

// Apply 执行编辑；修改输入列后立即重算受影响的行
func (e *Engine) Apply(g *Grid, ed Edit) error {
	switch ed.Op {
	case OpAddColumn:
		if ed.Column == nil {
			return fmt.Errorf("%w: missing column", ErrInvalidColumn)
		}
		return g.AddColumn(*ed.Column, ed.position())
	case OpRemoveColumn:
		if err := g.RemoveColumn(ed.ColumnID); err != nil {
			return err
		}
		if isInputColumn(g.DocType, ed.ColumnID) {
			e.Recompute(g)
		}
		return nil
	case OpRenameHeader:
		return g.RenameHeader(ed.ColumnID, ed.Label)
	case OpAddRow:
		row := g.AddRow(ed.position())
		recomputeRow(g, g.RowIndex(row.ID), e.cfg.DefaultVATRate)
		return nil
	case OpRemoveRow:
		return g.RemoveRow(ed.RowID)
	case OpSetCell:
		return e.SetCell(g, ed.RowID, ed.ColumnID, ed.Value)
	}
	return fmt.Errorf("%w: %q", ErrUnknownEdit, ed.Op)
}

// SetCell 写入单元格并在需要时重算该行
func (e *Engine) SetCell(g *Grid, rowID, colID, value string) error {
	if err := g.SetCell(rowID, colID, value); err != nil {
		return err
	}
	if isInputColumn(g.DocType, colID) {
		recomputeRow(g, g.RowIndex(rowID), e.cfg.DefaultVATRate)
	}
	return nil
}

// ImportReport 导入结果统计
type ImportReport struct {
	HeaderRow       int           `json:"header_row"`
	Matches         []ColumnMatch `json:"matches"`
	MappedColumns   int           `json:"mapped_columns"`
	UnmappedHeaders []string      `json:"unmapped_headers"`
	ImportedRows    int           `json:"imported_rows"`
	TotalRows       int           `json:"total_rows"`
}

// Import 将电子表格数据导入表格
// 识别表头、匹配列、构造行并按对账规则合并；没有任何列匹配时返回错误且表格不变
func (e *Engine) Import(g *Grid, data [][]string) (*ImportReport, error) {
	if len(data) == 0 {
		return nil, ErrNoColumnsMatched
	}

	headerIdx := DetectHeaderRow(data, Keywords(g.DocType), e.cfg.HeaderScanRows, e.cfg.HeaderMinHits)
	mapping := MatchColumns(data[headerIdx], g.EffectiveColumns())
	if len(mapping.Matches) == 0 {
		return nil, fmt.Errorf("%w: %d headers", ErrNoColumnsMatched, len(mapping.Unmapped))
	}

	imported := RowsFromImport(data, headerIdx, mapping)
	g.Rows = Reconcile(g.Rows, imported)
	e.Recompute(g)

	klog.V(6).Infof("[grid] 导入 %s: 表头行 %d，匹配列 %d，未匹配 %d，导入行 %d",
		g.DocType, headerIdx, len(mapping.Matches), len(mapping.Unmapped), len(imported))

	return &ImportReport{
		HeaderRow:       headerIdx,
		Matches:         mapping.Matches,
		MappedColumns:   len(mapping.Matches),
		UnmappedHeaders: mapping.Unmapped,
		ImportedRows:    len(imported),
		TotalRows:       len(g.Rows),
	}, nil
}
