package grid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// New 创建指定类型的空表格，包含 rows 个空行
func New(docType DocType, rows int) (*Grid, error) {
	cols, err := DefaultColumns(docType)
	if err != nil {
		return nil, err
	}
	g := &Grid{
		DocType:      docType,
		Columns:      cols,
		HeaderLabels: map[string]string{},
	}
	for i := 0; i < rows; i++ {
		g.Rows = append(g.Rows, NewRow())
	}
	return g, nil
}

// NewRow 创建空行
func NewRow() Row {
	return Row{ID: uuid.NewString(), Cells: map[string]string{}}
}

// ColumnIndex 返回列下标，不存在时返回 -1
func (g *Grid) ColumnIndex(id string) int {
	for i, c := range g.Columns {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// RowIndex 返回行下标，不存在时返回 -1
func (g *Grid) RowIndex(id string) int {
	for i, r := range g.Rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// AddColumn 在 position 处插入一列，超出范围时追加到末尾
// 用户新增的列总是可编辑的普通列
func (g *Grid) AddColumn(col Column, position int) error {
	col.ID = strings.TrimSpace(col.ID)
	if col.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidColumn)
	}
	if g.ColumnIndex(col.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrColumnExists, col.ID)
	}
	if strings.TrimSpace(col.Label) == "" {
		col.Label = col.ID
	}
	if col.Width <= 0 {
		col.Width = defaultColumnWidth
	}
	col.IsEditable = true
	col.IsCalculated = false

	if position < 0 || position > len(g.Columns) {
		position = len(g.Columns)
	}
	g.Columns = append(g.Columns, Column{})
	copy(g.Columns[position+1:], g.Columns[position:])
	g.Columns[position] = col
	return nil
}

// RemoveColumn 删除列及其单元格数据
// 表格至少保留一列：删除最后一列时返回 ErrLastColumn，表格不变
func (g *Grid) RemoveColumn(id string) error {
	idx := g.ColumnIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, id)
	}
	if len(g.Columns) == 1 {
		return ErrLastColumn
	}
	g.Columns = append(g.Columns[:idx], g.Columns[idx+1:]...)
	delete(g.HeaderLabels, id)
	for _, r := range g.Rows {
		delete(r.Cells, id)
	}
	return nil
}

// RenameHeader 设置列显示名，空名称恢复默认
func (g *Grid) RenameHeader(id, label string) error {
	if g.ColumnIndex(id) < 0 {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, id)
	}
	if g.HeaderLabels == nil {
		g.HeaderLabels = map[string]string{}
	}
	label = strings.TrimSpace(label)
	if label == "" {
		delete(g.HeaderLabels, id)
		return nil
	}
	g.HeaderLabels[id] = label
	return nil
}

// Label 列的显示名
func (g *Grid) Label(id string) string {
	if l, ok := g.HeaderLabels[id]; ok && l != "" {
		return l
	}
	if idx := g.ColumnIndex(id); idx >= 0 {
		return g.Columns[idx].Label
	}
	return id
}

// EffectiveColumns 返回应用了显示名覆盖的列定义
func (g *Grid) EffectiveColumns() []Column {
	cols := make([]Column, len(g.Columns))
	for i, c := range g.Columns {
		c.Label = g.Label(c.ID)
		cols[i] = c
	}
	return cols
}

// HeaderRow 导出用的表头
func (g *Grid) HeaderRow() []string {
	header := make([]string, len(g.Columns))
	for i, c := range g.Columns {
		header[i] = g.Label(c.ID)
	}
	return header
}

// AddRow 在 position 处插入空行，超出范围时追加
func (g *Grid) AddRow(position int) Row {
	row := NewRow()
	if position < 0 || position > len(g.Rows) {
		position = len(g.Rows)
	}
	g.Rows = append(g.Rows, Row{})
	copy(g.Rows[position+1:], g.Rows[position:])
	g.Rows[position] = row
	return row
}

// RemoveRow 删除行
func (g *Grid) RemoveRow(id string) error {
	idx := g.RowIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrRowNotFound, id)
	}
	g.Rows = append(g.Rows[:idx], g.Rows[idx+1:]...)
	return nil
}

// SetCell 写入单元格，计算列不可写
func (g *Grid) SetCell(rowID, colID, value string) error {
	ci := g.ColumnIndex(colID)
	if ci < 0 {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, colID)
	}
	if g.Columns[ci].IsCalculated {
		return fmt.Errorf("%w: %s", ErrCalculatedColumn, colID)
	}
	ri := g.RowIndex(rowID)
	if ri < 0 {
		return fmt.Errorf("%w: %s", ErrRowNotFound, rowID)
	}
	if g.Rows[ri].Cells == nil {
		g.Rows[ri].Cells = map[string]string{}
	}
	g.Rows[ri].Cells[colID] = value
	return nil
}

// Cell 读取单元格，缺失视为空字符串
func (r Row) Cell(colID string) string {
	return r.Cells[colID]
}

// Values 按列顺序输出行值
func (g *Grid) Values(r Row) []string {
	values := make([]string, len(g.Columns))
	for i, c := range g.Columns {
		values[i] = r.Cells[c.ID]
	}
	return values
}

// Clone 深拷贝，副本与原表格互不影响
func (g *Grid) Clone() *Grid {
	out := &Grid{
		DocType:      g.DocType,
		Columns:      append([]Column(nil), g.Columns...),
		HeaderLabels: make(map[string]string, len(g.HeaderLabels)),
		Rows:         make([]Row, len(g.Rows)),
	}
	for k, v := range g.HeaderLabels {
		out.HeaderLabels[k] = v
	}
	for i, r := range g.Rows {
		cells := make(map[string]string, len(r.Cells))
		for k, v := range r.Cells {
			cells[k] = v
		}
		out.Rows[i] = Row{ID: r.ID, Cells: cells}
	}
	return out
}
