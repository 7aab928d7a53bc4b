package service

import (
	"errors"

	"github.com/opendce/backend/internal/service/grid"
)

var (
	ErrInvalidFileType         = errors.New("invalid file type")
	ErrEmptyWorkbook           = errors.New("empty workbook")
	ErrParseFailed             = errors.New("document parse failed")
	ErrProcedureNotFound       = errors.New("procedure not found")
	ErrProcedureExists         = errors.New("procedure reference already exists")
	ErrInvalidProcedure        = errors.New("invalid procedure data")
	ErrInvalidStatusTransition = errors.New("invalid procedure status transition")
	ErrInvalidLot              = errors.New("invalid lot number")
	ErrInvalidTargetLots       = errors.New("no valid target lots")
	ErrSectionDocNotFound      = errors.New("section document not found")
	ErrUnknownSectionType      = errors.New("unknown section document type")
	ErrInvalidLevel            = errors.New("section level must be between 1 and 4")
	ErrInvalidPosition         = errors.New("invalid section position")
	ErrInvalidGrid             = errors.New("invalid grid payload")
	ErrNothingToExport         = errors.New("no lots to export")
	ErrCorruptedDocument       = errors.New("stored document payload is corrupted")
	ErrDuplicateIncomplete     = errors.New("source saved but duplication to target lots failed")
)

// 表格编辑错误
var (
	ErrUnknownDocType   = grid.ErrUnknownDocType
	ErrLastColumn       = grid.ErrLastColumn
	ErrColumnExists     = grid.ErrColumnExists
	ErrColumnNotFound   = grid.ErrColumnNotFound
	ErrRowNotFound      = grid.ErrRowNotFound
	ErrCalculatedColumn = grid.ErrCalculatedColumn
	ErrInvalidColumn    = grid.ErrInvalidColumn
	ErrUnknownEdit      = grid.ErrUnknownEdit
	ErrNoColumnsMatched = grid.ErrNoColumnsMatched
)

// ExportFile 导出文件
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

const (
	ContentTypeXLSX     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeMarkdown = "text/markdown; charset=utf-8"
)
