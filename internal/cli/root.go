// Package cli 实现 dcectl：离线查看模板章节、表头匹配与表格合计。
package cli

import (
	"fmt"
	"os"

	"github.com/opendce/backend/config"
	"github.com/opendce/backend/internal/service/grid"
	"github.com/opendce/backend/internal/service/sectionparser"
	"github.com/spf13/cobra"
)

// NewRootCmd 创建根命令
func NewRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "dcectl",
		Short: "Inspect DCE templates and price schedules offline",
		Long: `dcectl runs the document service's extraction and grid logic on local files:
outline a CCAP/CCTP template, check how spreadsheet headers map onto BPU/DQE/DPGF
columns, or compute the totals of a priced schedule.`,
		SilenceUsage: true,
	}
	root.AddCommand(
		newSectionsCmd(newExtractor(cfg)),
		newMatchCmd(newEngine(cfg)),
		newTotalsCmd(cfg),
	)
	return root
}

// Execute 运行根命令
func Execute() {
	if err := NewRootCmd(config.GetConfig()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newExtractor(cfg *config.Config) *sectionparser.Extractor {
	return sectionparser.NewExtractor(sectionparser.Options{
		ArticleMinMatches:  cfg.Extractor.ArticleMinMatches,
		CombinedMinMatches: cfg.Extractor.CombinedMinMatches,
		CombinedMaxMatches: cfg.Extractor.CombinedMaxMatches,
		MarkupMinSections:  cfg.Extractor.MarkupMinSections,
	})
}

func newEngine(cfg *config.Config) *grid.Engine {
	return grid.NewEngine(grid.Config{
		DefaultRows:    cfg.Grid.DefaultRows,
		DefaultVATRate: cfg.Grid.DefaultVATRate,
		HeaderScanRows: cfg.Import.HeaderScanRows,
		HeaderMinHits:  cfg.Import.HeaderMinHits,
	})
}
