// Package officedoc 将上传的合同模板转换为同一来源的 HTML 与纯文本两种表示。
package officedoc

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format 文档格式
type Format string

const (
	FormatDOCX     Format = "docx"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
	FormatText     Format = "text"
)

// maxZipEntrySize 单个 zip 条目解压后的大小上限（100 MB）
const maxZipEntrySize = 100 << 20

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrEmptyDocument     = errors.New("empty document")
)

var extensions = map[string]Format{
	".docx":     FormatDOCX,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".pdf":      FormatPDF,
	".txt":      FormatText,
}

// Document 转换结果
// HTML 为空表示该格式不保留结构标记（PDF、纯文本）
type Document struct {
	HTML string
	Text string
}

// Detect 按扩展名判断格式，解析前拒绝不支持的文件
func Detect(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// sniffed 无扩展名时按内容识别的 MIME 类型
var sniffed = []struct {
	mime   string
	format Format
}{
	{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", FormatDOCX},
	{"application/pdf", FormatPDF},
	{"text/plain", FormatText},
}

// DetectContent 优先按扩展名判断；文件名没有扩展名时按内容嗅探
// 带有不支持扩展名的文件直接拒绝
func DetectContent(filename string, data []byte) (Format, error) {
	if filepath.Ext(filename) != "" {
		return Detect(filename)
	}
	mtype := mimetype.Detect(data)
	for _, s := range sniffed {
		if mtype.Is(s.mime) {
			return s.format, nil
		}
	}
	return "", fmt.Errorf("%w: content %s", ErrUnsupportedFormat, mtype.String())
}

// SupportedExtensions 支持的扩展名
func SupportedExtensions() []string {
	return []string{".docx", ".md", ".markdown", ".pdf", ".txt"}
}

// Convert 按格式转换
func Convert(format Format, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	switch format {
	case FormatDOCX:
		return convertDOCX(data)
	case FormatMarkdown:
		return convertMarkdown(data)
	case FormatPDF:
		return convertPDF(data)
	case FormatText:
		return &Document{Text: string(data)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
