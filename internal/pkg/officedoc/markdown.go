package officedoc

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))

// blockTags 纯文本中各占一行的块级元素
var blockTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true, "blockquote": true, "pre": true, "div": true,
	"table": true, "thead": true, "tbody": true, "tr": true, "hr": true,
}

// convertMarkdown 渲染为 HTML，纯文本由同一份 HTML 导出
func convertMarkdown(data []byte) (*Document, error) {
	var buf bytes.Buffer
	if err := markdown.Convert(data, &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	text, err := htmlText(buf.String())
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	return &Document{HTML: buf.String(), Text: text}, nil
}

// htmlText 每个块级元素输出一行，表格单元格以制表符分隔，行内标记只保留文字
func htmlText(src string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return "", err
	}

	var (
		lines []string
		line  strings.Builder
	)
	breakLine := func() {
		if t := strings.TrimSpace(line.String()); t != "" {
			lines = append(lines, t)
		}
		line.Reset()
	}

	var walk func(sel *goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Each(func(_ int, s *goquery.Selection) {
			switch name := goquery.NodeName(s); {
			case name == "#text":
				line.WriteString(s.Text())
			case name == "br":
				breakLine()
			case name == "td" || name == "th":
				cur := strings.TrimRight(line.String(), " \t\r\n")
				line.Reset()
				line.WriteString(cur)
				if strings.TrimSpace(cur) != "" {
					line.WriteString("\t")
				}
				walk(s.Contents())
			case blockTags[name]:
				breakLine()
				walk(s.Contents())
				breakLine()
			default:
				walk(s.Contents())
			}
		})
	}
	walk(doc.Find("body").Contents())
	breakLine()

	return strings.Join(lines, "\n"), nil
}
