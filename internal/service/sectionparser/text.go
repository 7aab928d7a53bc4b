package sectionparser

import (
	"regexp"
	"sort"
	"strings"
)

// HeadingKind 行模式类别
type HeadingKind string

const (
	KindArticle  HeadingKind = "ARTICLE"
	KindChapitre HeadingKind = "CHAPITRE"
	KindSection  HeadingKind = "SECTION"
)

type headingPattern struct {
	kind HeadingKind
	re   *regexp.Regexp
}

// 关键字大小写不敏感，编号为阿拉伯数字或罗马数字；可选的后缀以 - – : . 分隔，分隔符可连用（如 "1.-"）
var headingPatterns = []headingPattern{
	{KindArticle, regexp.MustCompile(`^(?i:article)\s+(\d+(?:\.\d+)*|[IVXLCDM]+)(?:er)?\s*(?:[-–:.][-–:.\s]*(.*))?$`)},
	{KindChapitre, regexp.MustCompile(`^(?i:chapitre)\s+(\d+(?:\.\d+)*|[IVXLCDM]+)\s*(?:[-–:.][-–:.\s]*(.*))?$`)},
	{KindSection, regexp.MustCompile(`^(?i:section)\s+([A-Z]|\d+(?:\.\d+)*)\s*(?:[-–:.][-–:.\s]*(.*))?$`)},
}

// HeadingMatch 一行被识别为标题
type HeadingMatch struct {
	Line   int
	Kind   HeadingKind
	ID     string
	Suffix string
}

// Title 生成 "<KEYWORD> <id>[ - <suffix>]" 形式的标题
func (m HeadingMatch) Title() string {
	title := string(m.Kind) + " " + m.ID
	if m.Suffix != "" {
		title += " - " + m.Suffix
	}
	return title
}

// SplitLines 去除首尾空白并丢弃空行
func SplitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// FindHeadings 返回匹配指定类别的行，按行号排序
// 每行只归入第一个匹配的模式（ARTICLE > CHAPITRE > SECTION）
func FindHeadings(lines []string, kinds ...HeadingKind) []HeadingMatch {
	wanted := make(map[HeadingKind]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}

	var matches []HeadingMatch
	for i, line := range lines {
		for _, p := range headingPatterns {
			sub := p.re.FindStringSubmatch(line)
			if sub == nil {
				continue
			}
			if wanted[p.kind] {
				matches = append(matches, HeadingMatch{
					Line:   i,
					Kind:   p.kind,
					ID:     sub[1],
					Suffix: strings.TrimSpace(sub[2]),
				})
			}
			break
		}
	}

	sort.SliceStable(matches, func(a, b int) bool { return matches[a].Line < matches[b].Line })
	return matches
}

// BuildFromMatches 每个匹配行生成一个章节，内容为其与下一匹配行之间的所有行
func BuildFromMatches(lines []string, matches []HeadingMatch) []Section {
	sections := make([]Section, 0, len(matches))
	for i, m := range matches {
		end := len(lines)
		if i+1 < len(matches) {
			end = matches[i+1].Line
		}
		var body []string
		if m.Line+1 < end {
			body = lines[m.Line+1 : end]
		}
		sections = append(sections, Section{
			Title:   m.Title(),
			Content: strings.Join(body, "\n"),
			Level:   1,
		})
	}
	return sections
}

// FromText 纯文本上的正则识别，包含过度切分保护与单章节兜底
func FromText(text string, opts Options) ([]Section, Tier) {
	opts = opts.withDefaults()
	lines := SplitLines(text)

	articles := FindHeadings(lines, KindArticle)
	if len(articles) >= opts.ArticleMinMatches {
		return BuildFromMatches(lines, articles), TierArticle
	}

	combined := FindHeadings(lines, KindArticle, KindChapitre, KindSection)
	if len(combined) >= opts.CombinedMinMatches && len(combined) <= opts.CombinedMaxMatches {
		return BuildFromMatches(lines, combined), TierCombined
	}

	// 合并结果过多（多为编号列表被误判），退回仅 ARTICLE 的结果
	if len(combined) > opts.CombinedMaxMatches && len(articles) > 0 {
		return BuildFromMatches(lines, articles), TierArticleGuard
	}

	return []Section{{Title: FallbackTitle, Content: strings.TrimSpace(text), Level: 1}}, TierFallback
}
