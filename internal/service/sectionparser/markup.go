package sectionparser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"k8s.io/klog/v2"
)

// FromMarkup 按 HTML 顶层节点顺序切分章节
// 遇到 h1-h6 时结束上一章节并以标题文本开启新章节，其余节点的文本追加到当前章节
func FromMarkup(html string) []Section {
	sections, _ := fromMarkup(html)
	return sections
}

// fromMarkup 同时返回由标题开启的章节数，前言不计入
func fromMarkup(html string) ([]Section, int) {
	if strings.TrimSpace(html) == "" {
		return nil, 0
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		klog.V(6).Infof("[sectionparser] HTML 解析失败: %v", err)
		return nil, 0
	}

	var (
		sections []Section
		current  *Section
		buffer   []string
		headings int
	)

	flush := func() {
		content := strings.Join(buffer, "\n")
		buffer = nil
		if current == nil {
			if strings.TrimSpace(content) != "" {
				sections = append(sections, Section{Title: PreambleTitle, Content: content, Level: 1})
			}
			return
		}
		current.Content = content
		sections = append(sections, *current)
		current = nil
	}

	doc.Find("body").Contents().Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		if level := headingLevel(goquery.NodeName(s)); level > 0 {
			flush()
			headings++
			current = &Section{Title: text, Level: ClampLevel(level)}
			return
		}
		buffer = append(buffer, text)
	})
	flush()

	return sections, headings
}

// headingLevel h1..h6 返回 1..6，其他返回 0
func headingLevel(tag string) int {
	if len(tag) != 2 || tag[0] != 'h' {
		return 0
	}
	if tag[1] < '1' || tag[1] > '6' {
		return 0
	}
	return int(tag[1] - '0')
}
