// Package grid 实现 BPU / DQE / DPGF 表格模型：列定义、行数据、计算列重算与电子表格导入对账。
package grid

import (
	"errors"
	"fmt"
	"strings"
)

// DocType 表格文档类型
type DocType string

const (
	DocBPU  DocType = "BPU"
	DocDQE  DocType = "DQE"
	DocDPGF DocType = "DPGF"
)

// 列 ID
const (
	ColNumero          = "numero"
	ColCode            = "code"
	ColDesignation     = "designation"
	ColUnite           = "unite"
	ColQuantite        = "quantite"
	ColPrixUnitaire    = "prix_unitaire_ht"
	ColEcoContribution = "eco_contribution"
	ColTauxTVA         = "taux_tva"
	ColMontantHT       = "montant_ht"
	ColMontantTVA      = "montant_tva"
	ColMontantTTC      = "montant_ttc"
)

const defaultColumnWidth = 150

var (
	ErrUnknownDocType   = errors.New("unknown grid document type")
	ErrColumnExists     = errors.New("column already exists")
	ErrColumnNotFound   = errors.New("column not found")
	ErrLastColumn       = errors.New("cannot remove the last column")
	ErrRowNotFound      = errors.New("row not found")
	ErrCalculatedColumn = errors.New("calculated column is read-only")
	ErrInvalidColumn    = errors.New("invalid column definition")
	ErrNoColumnsMatched = errors.New("no imported header matches a grid column")
	ErrUnknownEdit      = errors.New("unknown edit operation")
)

// Column 列定义
type Column struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Width        int    `json:"width"`
	IsEditable   bool   `json:"is_editable"`
	IsCalculated bool   `json:"is_calculated"`
}

// Row 行数据，以列 ID 为键
type Row struct {
	ID    string            `json:"id"`
	Cells map[string]string `json:"cells"`
}

// Grid 表格，列顺序由 Columns 显式保存
type Grid struct {
	DocType      DocType           `json:"doc_type"`
	Columns      []Column          `json:"columns"`
	HeaderLabels map[string]string `json:"header_labels"`
	Rows         []Row             `json:"rows"`
}

// Totals 表格合计
type Totals struct {
	AmountExVAT  float64 `json:"amount_ex_vat"`
	VATAmount    float64 `json:"vat_amount"`
	AmountIncVAT float64 `json:"amount_inc_vat"`
}

// ParseDocType 解析文档类型，大小写不敏感
func ParseDocType(s string) (DocType, error) {
	switch DocType(strings.ToUpper(strings.TrimSpace(s))) {
	case DocBPU:
		return DocBPU, nil
	case DocDQE:
		return DocDQE, nil
	case DocDPGF:
		return DocDPGF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDocType, s)
}

func input(id, label string, width int) Column {
	return Column{ID: id, Label: label, Width: width, IsEditable: true}
}

func calculated(id, label string) Column {
	return Column{ID: id, Label: label, Width: 130, IsCalculated: true}
}

// DefaultColumns 返回文档类型的默认列
func DefaultColumns(docType DocType) ([]Column, error) {
	switch docType {
	case DocBPU:
		return []Column{
			input(ColNumero, "N°", 70),
			input(ColCode, "Code", 100),
			input(ColDesignation, "Désignation", 320),
			input(ColUnite, "Unité", 80),
			input(ColPrixUnitaire, "Prix unitaire HT", 130),
		}, nil
	case DocDQE:
		return []Column{
			input(ColNumero, "N°", 70),
			input(ColCode, "Code", 100),
			input(ColDesignation, "Désignation", 320),
			input(ColUnite, "Unité", 80),
			input(ColQuantite, "Quantité", 100),
			input(ColPrixUnitaire, "Prix unitaire HT", 130),
			input(ColEcoContribution, "Éco-contribution", 120),
			input(ColTauxTVA, "Taux TVA (%)", 100),
			calculated(ColMontantHT, "Montant HT"),
			calculated(ColMontantTVA, "Montant TVA"),
			calculated(ColMontantTTC, "Montant TTC"),
		}, nil
	case DocDPGF:
		return []Column{
			input(ColNumero, "N°", 70),
			input(ColDesignation, "Désignation", 320),
			input(ColUnite, "Unité", 80),
			input(ColQuantite, "Quantité", 100),
			input(ColPrixUnitaire, "Prix unitaire HT", 130),
			calculated(ColMontantHT, "Montant HT"),
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDocType, docType)
}

// InputColumns 参与计算的输入列，修改这些列后需要重算
func InputColumns(docType DocType) []string {
	switch docType {
	case DocDQE:
		return []string{ColQuantite, ColPrixUnitaire, ColEcoContribution, ColTauxTVA}
	case DocDPGF:
		return []string{ColQuantite, ColPrixUnitaire}
	}
	return nil
}

// Keywords 表头识别关键词
func Keywords(docType DocType) []string {
	switch docType {
	case DocBPU:
		return []string{"code", "article", "désignation", "libellé", "unité", "prix", "fournisseur", "référence"}
	case DocDPGF:
		return []string{"poste", "article", "désignation", "unité", "quantité", "prix", "montant", "total"}
	}
	return []string{"code", "article", "désignation", "unité", "quantité", "prix", "éco", "tva", "montant", "fournisseur"}
}

func isInputColumn(docType DocType, id string) bool {
	for _, c := range InputColumns(docType) {
		if c == id {
			return true
		}
	}
	return false
}
