package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/opendce/backend/internal/eventbus"
	"github.com/opendce/backend/internal/model"
	"github.com/opendce/backend/internal/pkg/spreadsheet"
	"github.com/opendce/backend/internal/service/grid"
	"github.com/opendce/backend/internal/utils"
	"github.com/panjf2000/ants/v2"
	"k8s.io/klog/v2"
)

var summaryHeader = []string{"Lot", "Intitulé", "Budget HT", "Montant HT", "TVA", "Montant TTC", "Écart", "Écart %"}

// lotExport 单个分标段的导出数据
type lotExport struct {
	number int
	grid   *grid.Grid
	totals grid.Totals
	saved  bool
	err    error
}

// sheetRows 表格转为工作表行，末尾追加合计行
func (s *lotService) sheetRows(g *grid.Grid, totals grid.Totals) ([][]any, map[int]spreadsheet.RowStyle) {
	rows := make([][]any, 0, len(g.Rows)+1)
	for _, r := range g.Rows {
		values := make([]any, len(g.Columns))
		for i, c := range g.Columns {
			v := r.Cells[c.ID]
			if c.IsCalculated {
				values[i] = grid.ParseNumber(v)
			} else {
				values[i] = v
			}
		}
		rows = append(rows, values)
	}

	total := make([]any, len(g.Columns))
	hasTotal := false
	for i, c := range g.Columns {
		switch c.ID {
		case grid.ColMontantHT:
			total[i], hasTotal = totals.AmountExVAT, true
		case grid.ColMontantTVA:
			total[i], hasTotal = totals.VATAmount, true
		case grid.ColMontantTTC:
			total[i], hasTotal = totals.AmountIncVAT, true
		}
	}
	if !hasTotal {
		return rows, nil
	}
	if total[0] == nil {
		total[0] = "Total"
	}
	rows = append(rows, total)
	return rows, map[int]spreadsheet.RowStyle{len(rows) - 1: spreadsheet.RowTotal}
}

// ExportLot 导出单个分标段
func (s *lotService) ExportLot(ctx context.Context, key LotKey) (*ExportFile, error) {
	p, err := s.validateKey(ctx, key)
	if err != nil {
		return nil, err
	}
	g, _, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}

	wb, err := spreadsheet.NewWorkbook()
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	rows, styles := s.sheetRows(g, s.engine.Totals(g))
	if err := wb.AddSheet(fmt.Sprintf("%s Lot %d", key.DocType, key.LotNumber), g.HeaderRow(), rows, styles); err != nil {
		return nil, fmt.Errorf("failed to build workbook: %w", err)
	}
	data, err := wb.Bytes()
	if err != nil {
		return nil, err
	}

	s.publish(ctx, eventbus.LotEvent{
		Type: eventbus.LotEventExported, ProcedureID: key.ProcedureID, DocType: string(key.DocType),
		LotNumber: key.LotNumber, Rows: len(g.Rows),
	})
	return &ExportFile{
		Filename:    utils.SafeFilename(fmt.Sprintf("%s_%s_lot%d.xlsx", p.Reference, key.DocType, key.LotNumber)),
		ContentType: ContentTypeXLSX,
		Data:        data,
	}, nil
}

// ExportConsolidated 导出多个分标段：一张汇总表（预算与实际对比）加每个分标段一张表
// lots 为空时导出程序下所有分标段和所有已保存的表格
func (s *lotService) ExportConsolidated(ctx context.Context, procedureID uint, docType grid.DocType, lots []int) (*ExportFile, error) {
	if _, err := grid.ParseDocType(string(docType)); err != nil {
		return nil, err
	}
	p, err := s.procedures.Get(ctx, procedureID)
	if err != nil {
		return nil, wrapProcedureErr(err)
	}

	if len(lots) == 0 {
		saved, err := s.docs.ListLotNumbers(ctx, procedureID, string(docType))
		if err != nil {
			return nil, fmt.Errorf("failed to list lots: %w", err)
		}
		lots = saved
		for _, l := range p.Lots {
			lots = append(lots, l.Number)
		}
	}
	lots = normalizeTargets(lots, 0)
	if len(lots) == 0 {
		return nil, ErrNothingToExport
	}

	docs, err := s.docs.ListByNumbers(ctx, procedureID, string(docType), lots)
	if err != nil {
		return nil, fmt.Errorf("failed to load lot documents: %w", err)
	}
	byNumber := make(map[int]*model.LotDocument, len(docs))
	for i := range docs {
		byNumber[docs[i].LotNumber] = &docs[i]
	}

	results, err := s.computeLots(docType, lots, byNumber)
	if err != nil {
		return nil, err
	}

	data, err := s.buildConsolidated(p, docType, results)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, eventbus.LotEvent{
		Type: eventbus.LotEventExported, ProcedureID: procedureID, DocType: string(docType),
		TargetLots: lots, Detail: map[string]any{"consolidated": true},
	})
	return &ExportFile{
		Filename:    utils.SafeFilename(fmt.Sprintf("%s_%s_consolide.xlsx", p.Reference, docType)),
		ContentType: ContentTypeXLSX,
		Data:        data,
	}, nil
}

// computeLots 在协程池中计算各分标段合计，结果按 lots 顺序返回
func (s *lotService) computeLots(docType grid.DocType, lots []int, byNumber map[int]*model.LotDocument) ([]lotExport, error) {
	pool, err := ants.NewPool(s.exportWorkers)
	if err != nil {
		return nil, fmt.Errorf("failed to create export pool: %w", err)
	}
	defer pool.Release()

	results := make([]lotExport, len(lots))
	var wg sync.WaitGroup
	for i, n := range lots {
		wg.Add(1)
		doc := byNumber[n]
		if err := pool.Submit(func() {
			defer wg.Done()
			results[i] = s.computeLot(docType, n, doc)
		}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("failed to submit export job: %w", err)
		}
	}
	wg.Wait()

	for _, r := range results {
		if r.err != nil {
			return nil, fmt.Errorf("lot %d: %w", r.number, r.err)
		}
	}
	klog.V(6).Infof("[lot] 汇总导出 %s，分标段数: %d", docType, len(results))
	return results, nil
}

func (s *lotService) computeLot(docType grid.DocType, number int, doc *model.LotDocument) lotExport {
	out := lotExport{number: number}
	if doc == nil {
		out.grid, out.err = s.engine.NewGrid(docType)
	} else {
		out.saved = true
		out.grid, out.err = decodeGrid(doc.Payload, docType)
		if out.err == nil {
			s.engine.Recompute(out.grid)
		}
	}
	if out.err == nil {
		out.totals = s.engine.Totals(out.grid)
	}
	return out
}

func (s *lotService) buildConsolidated(p *model.Procedure, docType grid.DocType, results []lotExport) ([]byte, error) {
	lotInfo := make(map[int]model.Lot, len(p.Lots))
	for _, l := range p.Lots {
		lotInfo[l.Number] = l
	}

	summary := make([][]any, 0, len(results)+1)
	highlight := map[int]spreadsheet.RowStyle{}
	var sumBudget float64
	var sum grid.Totals
	for i, r := range results {
		info := lotInfo[r.number]
		title := info.Title
		if title == "" {
			title = fmt.Sprintf("Lot %d", r.number)
		}
		variance := r.totals.AmountExVAT - info.Budget
		var variancePct any = ""
		if info.Budget > 0 {
			variancePct = roundAmount(variance / info.Budget * 100)
			if r.totals.AmountExVAT > info.Budget {
				highlight[i] = spreadsheet.RowHighlight
			}
		}
		summary = append(summary, []any{
			r.number, title, info.Budget,
			r.totals.AmountExVAT, r.totals.VATAmount, r.totals.AmountIncVAT,
			roundAmount(variance), variancePct,
		})

		sumBudget += info.Budget
		sum.AmountExVAT += r.totals.AmountExVAT
		sum.VATAmount += r.totals.VATAmount
		sum.AmountIncVAT += r.totals.AmountIncVAT
	}
	summary = append(summary, []any{
		"Total", "", roundAmount(sumBudget),
		roundAmount(sum.AmountExVAT), roundAmount(sum.VATAmount), roundAmount(sum.AmountIncVAT),
		roundAmount(sum.AmountExVAT - sumBudget), "",
	})
	highlight[len(summary)-1] = spreadsheet.RowTotal

	wb, err := spreadsheet.NewWorkbook()
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	if err := wb.AddSheet("Synthèse "+string(docType), summaryHeader, summary, highlight); err != nil {
		return nil, fmt.Errorf("failed to build summary sheet: %w", err)
	}
	for _, r := range results {
		rows, styles := s.sheetRows(r.grid, r.totals)
		if err := wb.AddSheet(fmt.Sprintf("Lot %d", r.number), r.grid.HeaderRow(), rows, styles); err != nil {
			return nil, fmt.Errorf("failed to build sheet for lot %d: %w", r.number, err)
		}
	}
	return wb.Bytes()
}

func roundAmount(f float64) float64 {
	return grid.ParseNumber(grid.FormatAmount(f))
}
