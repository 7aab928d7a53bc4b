package cli

import (
	"fmt"

	"github.com/opendce/backend/config"
	"github.com/opendce/backend/internal/service/grid"
	"github.com/spf13/cobra"
)

func newTotalsCmd(cfg *config.Config) *cobra.Command {
	var (
		docType string
		vatRate float64
	)
	cmd := &cobra.Command{
		Use:   "totals <file.xlsx>",
		Short: "Import a priced schedule into a fresh grid and print its totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dt, err := grid.ParseDocType(docType)
			if err != nil {
				return err
			}
			rows, err := readSheet(args[0])
			if err != nil {
				return err
			}

			engineCfg := *cfg
			if vatRate > 0 {
				engineCfg.Grid.DefaultVATRate = vatRate
			}
			engine := newEngine(&engineCfg)
			g, err := engine.NewGrid(dt)
			if err != nil {
				return err
			}
			report, err := engine.Import(g, rows)
			if err != nil {
				return err
			}
			totals := engine.Totals(g)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, boxStyle.Render(fmt.Sprintf("%s %s  %s %d  %s %d",
				dimStyle.Render("Type:"), titleStyle.Render(string(dt)),
				dimStyle.Render("Rows:"), report.ImportedRows,
				dimStyle.Render("Mapped columns:"), report.MappedColumns,
			)))
			fmt.Fprintf(out, "%s %s\n", dimStyle.Render("Montant HT: "), okStyle.Render(grid.FormatAmount(totals.AmountExVAT)))
			fmt.Fprintf(out, "%s %s\n", dimStyle.Render("TVA:        "), grid.FormatAmount(totals.VATAmount))
			fmt.Fprintf(out, "%s %s\n", dimStyle.Render("Montant TTC:"), titleStyle.Render(grid.FormatAmount(totals.AmountIncVAT)))
			if len(report.UnmappedHeaders) > 0 {
				fmt.Fprintf(out, "%s %v\n", warnStyle.Render("Unmapped:"), report.UnmappedHeaders)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&docType, "type", "t", string(grid.DocDQE), "Grid type: BPU, DQE or DPGF")
	cmd.Flags().Float64Var(&vatRate, "vat", 0, "Default VAT rate in percent (0 = configured default)")
	return cmd
}
