package grid

import (
	"math"
	"strconv"
	"strings"
)

// DefaultVATRate 未填写或为 0 时使用的税率（%）
const DefaultVATRate = 20.0

var numberCleaner = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "\t", "", "€", "", "%", "")

// ParseNumber 宽松解析数字：去空白（含不间断空格），逗号转小数点，无法解析时为 0
func ParseNumber(s string) float64 {
	s = numberCleaner.Replace(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// FormatAmount 金额保留两位小数
func FormatAmount(f float64) string {
	return strconv.FormatFloat(round2(f), 'f', 2, 64)
}

func round2(f float64) float64 {
	r := math.Round(f*100) / 100
	if r == 0 {
		// 避免输出 -0.00
		return 0
	}
	return r
}

// ComputeRow 计算单行派生金额
//
//	DQE:  HT = 数量 × (单价 + 环保税)，TVA = HT × 税率 / 100，TTC = HT + TVA
//	DPGF: HT = 数量 × 单价，TVA 按默认税率
//	BPU:  无计算列
func ComputeRow(docType DocType, r Row, defaultRate float64) Totals {
	if defaultRate <= 0 {
		defaultRate = DefaultVATRate
	}

	var ht, rate float64
	switch docType {
	case DocDQE:
		qty := ParseNumber(r.Cell(ColQuantite))
		pu := ParseNumber(r.Cell(ColPrixUnitaire))
		eco := ParseNumber(r.Cell(ColEcoContribution))
		ht = qty * (pu + eco)
		rate = ParseNumber(r.Cell(ColTauxTVA))
	case DocDPGF:
		ht = ParseNumber(r.Cell(ColQuantite)) * ParseNumber(r.Cell(ColPrixUnitaire))
	default:
		return Totals{}
	}
	if rate == 0 {
		rate = defaultRate
	}

	// 链式计算使用未取整的值，仅输出时保留两位小数
	vat := ht * rate / 100
	return Totals{AmountExVAT: round2(ht), VATAmount: round2(vat), AmountIncVAT: round2(ht + vat)}
}

// recomputeRow 将派生金额写回表格中存在的计算列
func recomputeRow(g *Grid, i int, defaultRate float64) {
	if g.Rows[i].Cells == nil {
		g.Rows[i].Cells = map[string]string{}
	}
	t := ComputeRow(g.DocType, g.Rows[i], defaultRate)
	for _, c := range g.Columns {
		if !c.IsCalculated {
			continue
		}
		switch c.ID {
		case ColMontantHT:
			g.Rows[i].Cells[c.ID] = FormatAmount(t.AmountExVAT)
		case ColMontantTVA:
			g.Rows[i].Cells[c.ID] = FormatAmount(t.VATAmount)
		case ColMontantTTC:
			g.Rows[i].Cells[c.ID] = FormatAmount(t.AmountIncVAT)
		}
	}
}

// Recompute 重算所有行的计算列
func Recompute(g *Grid, defaultRate float64) {
	for i := range g.Rows {
		recomputeRow(g, i, defaultRate)
	}
}

// Sum 对所有行的派生金额求和
func Sum(g *Grid, defaultRate float64) Totals {
	var t Totals
	for _, r := range g.Rows {
		rt := ComputeRow(g.DocType, r, defaultRate)
		t.AmountExVAT += rt.AmountExVAT
		t.VATAmount += rt.VATAmount
		t.AmountIncVAT += rt.AmountIncVAT
	}
	return Totals{
		AmountExVAT:  round2(t.AmountExVAT),
		VATAmount:    round2(t.VATAmount),
		AmountIncVAT: round2(t.AmountIncVAT),
	}
}
