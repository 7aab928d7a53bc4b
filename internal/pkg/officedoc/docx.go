package officedoc

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"strings"
)

// convertDOCX 流式读取 word/document.xml
// 标题样式段落输出为 <hN>，普通段落为 <p>，表格为 <table>
func convertDOCX(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("missing word/document.xml")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	p := &docxParser{decoder: xml.NewDecoder(io.LimitReader(rc, maxZipEntrySize))}
	if err := p.run(); err != nil {
		return nil, fmt.Errorf("parse document.xml: %w", err)
	}

	return &Document{
		HTML: p.html.String(),
		Text: strings.TrimSpace(strings.Join(p.lines, "\n")),
	}, nil
}

type docxParser struct {
	decoder *xml.Decoder
	html    strings.Builder
	lines   []string

	// 段落状态
	inParagraph bool
	inParaProps bool
	inRunProps  bool
	inText      bool
	style       string
	outline     int
	bold        bool
	italic      bool
	runs        []string
	plain       strings.Builder

	// 表格状态，仅处理最外层表格
	tableDepth int
	rowCells   []string
	cellHTML   strings.Builder
	cellText   strings.Builder
	tableRows  [][]string
	tableText  []string
}

func (p *docxParser) run() error {
	for {
		tok, err := p.decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			p.handleStart(t)
		case xml.EndElement:
			p.handleEnd(t.Name.Local)
		case xml.CharData:
			p.handleText(string(t))
		}
	}
}

func (p *docxParser) handleStart(t xml.StartElement) {
	switch t.Name.Local {
	case "p":
		p.inParagraph = true
		p.style = ""
		p.outline = 0
		p.runs = nil
		p.plain.Reset()
	case "pStyle":
		p.style = attrVal(t, "val")
	case "outlineLvl":
		// outlineLvl 从 0 开始
		var lvl int
		if _, err := fmt.Sscanf(attrVal(t, "val"), "%d", &lvl); err == nil && lvl < 9 {
			p.outline = lvl + 1
		}
	case "r":
		p.bold = false
		p.italic = false
	case "pPr":
		p.inParaProps = true
	case "rPr":
		p.inRunProps = true
	case "t":
		p.inText = true
	case "b":
		if p.inRunProps {
			p.bold = toggleOn(t)
		}
	case "i":
		if p.inRunProps {
			p.italic = toggleOn(t)
		}
	case "tab":
		if p.inParagraph && !p.inParaProps && !p.inRunProps {
			p.appendRun("\t")
		}
	case "br":
		if p.inParagraph {
			p.appendRun("\n")
		}
	case "tbl":
		p.tableDepth++
		if p.tableDepth == 1 {
			p.tableRows = nil
			p.tableText = nil
		}
	case "tr":
		if p.tableDepth == 1 {
			p.rowCells = nil
		}
	case "tc":
		if p.tableDepth == 1 {
			p.cellHTML.Reset()
			p.cellText.Reset()
		}
	}
}

func (p *docxParser) handleEnd(local string) {
	switch local {
	case "pPr":
		p.inParaProps = false
	case "rPr":
		p.inRunProps = false
	case "t":
		p.inText = false
	case "p":
		p.endParagraph()
	case "tc":
		if p.tableDepth == 1 {
			p.rowCells = append(p.rowCells, p.cellHTML.String())
			p.tableText = append(p.tableText, strings.TrimSpace(p.cellText.String()))
		}
	case "tr":
		if p.tableDepth == 1 {
			p.tableRows = append(p.tableRows, p.rowCells)
			if line := strings.TrimSpace(strings.Join(p.tableText, "\t")); line != "" {
				p.lines = append(p.lines, line)
			}
			p.tableText = nil
		}
	case "tbl":
		if p.tableDepth == 1 {
			p.writeTable()
		}
		if p.tableDepth > 0 {
			p.tableDepth--
		}
	}
}

func (p *docxParser) handleText(text string) {
	if !p.inParagraph || !p.inText {
		return
	}
	p.appendRun(text)
}

func (p *docxParser) appendRun(text string) {
	p.plain.WriteString(text)

	escaped := html.EscapeString(text)
	if text == "\n" {
		escaped = "<br/>"
	}
	if p.bold {
		escaped = "<strong>" + escaped + "</strong>"
	}
	if p.italic {
		escaped = "<em>" + escaped + "</em>"
	}
	p.runs = append(p.runs, escaped)
}

func (p *docxParser) endParagraph() {
	p.inParagraph = false
	text := strings.TrimSpace(p.plain.String())
	inner := strings.Join(p.runs, "")
	p.runs = nil
	p.plain.Reset()

	if p.tableDepth > 0 {
		// 单元格内多个段落以换行分隔
		if text == "" {
			return
		}
		if p.cellText.Len() > 0 {
			p.cellText.WriteString(" ")
			p.cellHTML.WriteString("<br/>")
		}
		p.cellText.WriteString(text)
		p.cellHTML.WriteString(inner)
		return
	}

	if text == "" {
		return
	}
	p.lines = append(p.lines, text)

	if level := headingLevelFromStyle(p.style); level > 0 {
		fmt.Fprintf(&p.html, "<h%d>%s</h%d>", level, html.EscapeString(text), level)
		return
	}
	if p.outline > 0 && p.outline <= 6 {
		fmt.Fprintf(&p.html, "<h%d>%s</h%d>", p.outline, html.EscapeString(text), p.outline)
		return
	}
	p.html.WriteString("<p>" + inner + "</p>")
}

func (p *docxParser) writeTable() {
	if len(p.tableRows) == 0 {
		return
	}
	p.html.WriteString("<table>")
	for _, row := range p.tableRows {
		p.html.WriteString("<tr>")
		for _, cell := range row {
			p.html.WriteString("<td>" + cell + "</td>")
		}
		p.html.WriteString("</tr>")
	}
	p.html.WriteString("</table>")
	p.tableRows = nil
}

// headingLevelFromStyle 从段落样式名解析标题层级
// "Heading1" → 1，"Titre2" → 2，"Title" → 1
func headingLevelFromStyle(style string) int {
	lower := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if lower == "title" || lower == "titre" {
		return 1
	}
	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if strings.HasPrefix(lower, prefix) {
			rest := lower[len(prefix):]
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}

func attrVal(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// toggleOn <w:b/> 与 <w:b w:val="true"/> 为开启，val 为 0/false 时关闭
func toggleOn(t xml.StartElement) bool {
	switch strings.ToLower(attrVal(t, "val")) {
	case "0", "false", "off":
		return false
	}
	return true
}
