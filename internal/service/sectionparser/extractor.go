package sectionparser

import (
	"strconv"
	"strings"

	"k8s.io/klog/v2"
)

// Extractor 章节识别器
type Extractor struct {
	opts Options
}

// NewExtractor 创建识别器，未设置的阈值取默认值
func NewExtractor(opts Options) *Extractor {
	return &Extractor{opts: opts.withDefaults()}
}

// Options 返回生效的阈值
func (e *Extractor) Options() Options {
	return e.opts
}

// Extract 对同一文档的 HTML 与纯文本执行识别链
// 原生标题足够多时优先采用（前言不计入），否则对纯文本做正则识别
func (e *Extractor) Extract(html, text string) Result {
	if sections, headings := fromMarkup(html); headings >= e.opts.MarkupMinSections {
		klog.V(6).Infof("[sectionparser] 采用原生标题，章节数: %d", len(sections))
		return Result{Sections: sections, Tier: TierMarkup}
	}

	sections, tier := FromText(text, e.opts)
	klog.V(6).Infof("[sectionparser] 采用文本识别 tier=%s，章节数: %d", tier, len(sections))
	return Result{Sections: sections, Tier: tier}
}

// Numbering 计算章节显示编号
// 每个层级一个计数器，遇到某层级时该层计数加一并清零更深层级
func Numbering(levels []int) []string {
	var counters [MaxLevel]int
	numbers := make([]string, len(levels))
	for i, level := range levels {
		level = ClampLevel(level)
		counters[level-1]++
		for j := level; j < MaxLevel; j++ {
			counters[j] = 0
		}
		parts := make([]string, level)
		for j := 0; j < level; j++ {
			parts[j] = strconv.Itoa(counters[j])
		}
		numbers[i] = strings.Join(parts, ".")
	}
	return numbers
}

// SectionNumbers 对章节序列计算显示编号
func SectionNumbers(sections []Section) []string {
	levels := make([]int, len(sections))
	for i, s := range sections {
		levels[i] = s.Level
	}
	return Numbering(levels)
}
