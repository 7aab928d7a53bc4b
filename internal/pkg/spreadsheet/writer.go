package spreadsheet

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// RowStyle 数据行样式
type RowStyle int

const (
	RowNormal RowStyle = iota
	RowHighlight
	RowTotal
)

const maxSheetName = 31

// Workbook 带样式的工作簿写入器
type Workbook struct {
	f      *excelize.File
	header int
	styles map[RowStyle]int
	names  map[string]bool
	count  int
}

// NewWorkbook 创建工作簿并注册表头、高亮、合计三种样式
func NewWorkbook() (*Workbook, error) {
	f := excelize.NewFile()

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1F4E78"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	highlight, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#9C0006"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFC7CE"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create highlight style: %w", err)
	}
	total, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Border: []excelize.Border{{Type: "top", Color: "#1F4E78", Style: 2}},
	})
	if err != nil {
		return nil, fmt.Errorf("create total style: %w", err)
	}

	return &Workbook{
		f:      f,
		header: header,
		styles: map[RowStyle]int{RowHighlight: highlight, RowTotal: total},
		names:  make(map[string]bool),
	}, nil
}

// AddSheet 写入一个工作表：首行为表头，rowStyles 以数据行下标（从 0 开始）指定样式
func (w *Workbook) AddSheet(name string, header []string, rows [][]any, rowStyles map[int]RowStyle) error {
	name = w.uniqueName(name)

	if w.count == 0 {
		if err := w.f.SetSheetName(w.f.GetSheetName(0), name); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
	} else if _, err := w.f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %q: %w", name, err)
	}
	w.count++

	width := len(header)
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	if width == 0 {
		return nil
	}
	lastCol, err := excelize.ColumnNumberToName(width)
	if err != nil {
		return err
	}

	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := w.f.SetSheetRow(name, "A1", &headerRow); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if len(header) > 0 {
		if err := w.f.SetCellStyle(name, "A1", lastCol+"1", w.header); err != nil {
			return err
		}
	}

	for i, r := range rows {
		row := r
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := w.f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
		if style, ok := w.styles[rowStyles[i]]; ok {
			end := fmt.Sprintf("%s%d", lastCol, i+2)
			if err := w.f.SetCellStyle(name, cell, end, style); err != nil {
				return err
			}
		}
	}

	return w.f.SetColWidth(name, "A", lastCol, 18)
}

// Bytes 序列化工作簿
func (w *Workbook) Bytes() ([]byte, error) {
	if w.count > 0 {
		w.f.SetActiveSheet(0)
	}
	buf, err := w.f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Close 释放工作簿资源
func (w *Workbook) Close() error {
	return w.f.Close()
}

// uniqueName 清理 Excel 不允许的字符、截断到 31 个字符并去重
func (w *Workbook) uniqueName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = "Feuille"
	}
	name = truncate(name, maxSheetName)

	candidate := name
	for i := 2; w.names[strings.ToLower(candidate)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		candidate = truncate(name, maxSheetName-len(suffix)) + suffix
	}
	w.names[strings.ToLower(candidate)] = true
	return candidate
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
