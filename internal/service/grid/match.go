package grid

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"k8s.io/klog/v2"
)

// minPartialLen 前缀/后缀匹配要求两侧至少 3 个字符
const minPartialLen = 3

// Normalize 小写、去首尾空白、去重音符号，只保留字母和数字
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		folded = strings.ToLower(strings.TrimSpace(s))
	}
	var b strings.Builder
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ColumnMatch 一个导入列到表格列的映射
type ColumnMatch struct {
	Index    int    `json:"index"`
	Header   string `json:"header"`
	ColumnID string `json:"column_id"`
	Exact    bool   `json:"exact"`
}

// Mapping 表头匹配结果
type Mapping struct {
	Matches  []ColumnMatch `json:"matches"`
	Unmapped []string      `json:"unmapped"`
}

// ColumnFor 返回导入列下标对应的表格列
func (m Mapping) ColumnFor(index int) (string, bool) {
	for _, c := range m.Matches {
		if c.Index == index {
			return c.ColumnID, true
		}
	}
	return "", false
}

type candidate struct {
	id    string
	label string
	rawID string
}

// MatchColumns 将导入表头映射到表格的非计算列
// 按表头顺序逐个处理：先精确匹配（显示名或 ID），再做首尾锚定的部分匹配；
// 已被前面表头占用的列不再参与匹配
func MatchColumns(headers []string, columns []Column) Mapping {
	var cands []candidate
	for _, c := range columns {
		if c.IsCalculated {
			continue
		}
		cands = append(cands, candidate{id: Normalize(c.ID), label: Normalize(c.Label), rawID: c.ID})
	}

	claimed := make(map[string]bool)
	var m Mapping
	for i, h := range headers {
		nh := Normalize(h)
		if nh == "" {
			continue
		}

		target, exact := "", false
		for _, c := range cands {
			if !claimed[c.rawID] && (c.label == nh || c.id == nh) {
				target, exact = c.rawID, true
				break
			}
		}
		if target == "" {
			for _, c := range cands {
				if !claimed[c.rawID] && (partialMatch(nh, c.label) || partialMatch(nh, c.id)) {
					target = c.rawID
					break
				}
			}
		}

		if target == "" {
			klog.Warningf("[grid] 导入列未匹配: %q", h)
			m.Unmapped = append(m.Unmapped, h)
			continue
		}
		claimed[target] = true
		m.Matches = append(m.Matches, ColumnMatch{Index: i, Header: h, ColumnID: target, Exact: exact})
		klog.V(6).Infof("[grid] 导入列 %q -> %s (exact=%v)", h, target, exact)
	}
	return m
}

func partialMatch(a, b string) bool {
	if utf8.RuneCountInString(a) < minPartialLen || utf8.RuneCountInString(b) < minPartialLen {
		return false
	}
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a) ||
		strings.HasSuffix(a, b) || strings.HasSuffix(b, a)
}

// DetectHeaderRow 在前 scanRows 行中寻找表头
// 每行按包含关键词的单元格数计分，第一个达到 minHits 的行即表头，都不满足时返回 0
func DetectHeaderRow(rows [][]string, keywords []string, scanRows, minHits int) int {
	normalized := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if nk := Normalize(k); nk != "" {
			normalized = append(normalized, nk)
		}
	}

	for i := 0; i < len(rows) && i < scanRows; i++ {
		hits := 0
		for _, cell := range rows[i] {
			nc := Normalize(cell)
			if nc == "" {
				continue
			}
			for _, k := range normalized {
				if strings.Contains(nc, k) {
					hits++
					break
				}
			}
		}
		if hits >= minHits {
			return i
		}
	}
	return 0
}

// RowsFromImport 由表头之后的数据行构造表格行，映射列全为空的行被跳过
func RowsFromImport(data [][]string, headerIdx int, m Mapping) []Row {
	var rows []Row
	for i := headerIdx + 1; i < len(data); i++ {
		cells := make(map[string]string, len(m.Matches))
		blank := true
		for _, match := range m.Matches {
			if match.Index >= len(data[i]) {
				continue
			}
			v := strings.TrimSpace(data[i][match.Index])
			if v != "" {
				blank = false
			}
			cells[match.ColumnID] = v
		}
		if blank {
			continue
		}
		rows = append(rows, Row{ID: uuid.NewString(), Cells: cells})
	}
	return rows
}

// Reconcile 合并导入行
// 导入行数多于现有行数时整体替换；否则覆盖前 N 行，其余行保持不变
func Reconcile(existing, imported []Row) []Row {
	if len(imported) > len(existing) {
		return imported
	}
	out := make([]Row, len(existing))
	copy(out, existing)
	copy(out, imported)
	return out
}
