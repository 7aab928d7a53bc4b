// Package sectionparser 将合同模板文本切分为带标题的章节序列。
//
// 识别按三层顺序进行：文档原生标题（HTML h1-h6）、正文中的
// ARTICLE / CHAPITRE / SECTION 行模式、最后退化为单一章节。
package sectionparser

// MaxLevel 章节层级上限（章/节/小节/条）
const MaxLevel = 4

// FallbackTitle 无法识别结构时唯一章节的标题
const FallbackTitle = "CCAP"

// PreambleTitle 首个标题之前的正文归入的章节标题
const PreambleTitle = "Préambule"

// Section 文档中的一个章节
type Section struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	Level      int    `json:"level"`
	TitleColor string `json:"title_color,omitempty"`
	TitleSize  string `json:"title_size,omitempty"`
}

// Tier 产生结果的识别层
type Tier string

const (
	TierMarkup       Tier = "markup"
	TierArticle      Tier = "article"
	TierCombined     Tier = "combined"
	TierArticleGuard Tier = "article_guard"
	TierFallback     Tier = "fallback"
)

// Options 识别阈值
type Options struct {
	// ArticleMinMatches ARTICLE 行达到该数量即直接采用
	ArticleMinMatches int
	// CombinedMinMatches / CombinedMaxMatches 三种模式合并后的可接受区间
	CombinedMinMatches int
	CombinedMaxMatches int
	// MarkupMinSections 原生标题至少产生的章节数
	MarkupMinSections int
}

// DefaultOptions 返回默认阈值
func DefaultOptions() Options {
	return Options{
		ArticleMinMatches:  3,
		CombinedMinMatches: 3,
		CombinedMaxMatches: 120,
		MarkupMinSections:  2,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ArticleMinMatches <= 0 {
		o.ArticleMinMatches = d.ArticleMinMatches
	}
	if o.CombinedMinMatches <= 0 {
		o.CombinedMinMatches = d.CombinedMinMatches
	}
	if o.CombinedMaxMatches <= 0 {
		o.CombinedMaxMatches = d.CombinedMaxMatches
	}
	if o.MarkupMinSections <= 0 {
		o.MarkupMinSections = d.MarkupMinSections
	}
	return o
}

// Result 识别结果
type Result struct {
	Sections []Section `json:"sections"`
	Tier     Tier      `json:"tier"`
}

// ClampLevel 将层级限制在 [1, MaxLevel]
func ClampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}
