package officedoc

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"k8s.io/klog/v2"
)

// convertPDF 逐页提取纯文本，PDF 不提供可靠的标题标记
func convertPDF(data []byte) (*Document, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			klog.V(6).Infof("[officedoc] 跳过 PDF 第 %d 页: %v", i, err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no extractable text in pdf", ErrEmptyDocument)
	}
	return &Document{Text: strings.Join(pages, "\n")}, nil
}
