// Package spreadsheet 封装 excelize：读取工作簿为二维字符串数组，写出带样式的工作簿。
package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedExtension = errors.New("unsupported spreadsheet extension")
	ErrEmptyWorkbook        = errors.New("workbook has no data")
)

// Sheet 工作表内容
type Sheet struct {
	Name string     `json:"name"`
	Rows [][]string `json:"rows"`
}

// CheckExtension 导入前校验扩展名，旧版 .xls 不支持
func CheckExtension(filename string) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedExtension, filepath.Ext(filename))
}

// Read 读取所有工作表；全部为空时返回 ErrEmptyWorkbook
func Read(data []byte) ([]Sheet, error) {
	if len(data) == 0 {
		return nil, ErrEmptyWorkbook
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sheets []Sheet
	hasData := false
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		if len(trimEmptyRows(rows)) > 0 {
			hasData = true
		}
		sheets = append(sheets, Sheet{Name: name, Rows: rows})
	}

	if !hasData {
		return nil, ErrEmptyWorkbook
	}
	return sheets, nil
}

// FirstNonEmpty 返回第一个包含数据的工作表
func FirstNonEmpty(sheets []Sheet) (Sheet, bool) {
	for _, s := range sheets {
		if len(trimEmptyRows(s.Rows)) > 0 {
			return s, true
		}
	}
	return Sheet{}, false
}

// trimEmptyRows 去掉末尾的空行
func trimEmptyRows(rows [][]string) [][]string {
	end := len(rows)
	for end > 0 && isBlankRow(rows[end-1]) {
		end--
	}
	return rows[:end]
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
