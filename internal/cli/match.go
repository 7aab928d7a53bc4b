package cli

import (
	"fmt"
	"os"

	"github.com/opendce/backend/internal/service"
	"github.com/opendce/backend/internal/service/grid"
	"github.com/spf13/cobra"
)

func newMatchCmd(engine *grid.Engine) *cobra.Command {
	var docType string
	cmd := &cobra.Command{
		Use:   "match <file.xlsx>",
		Short: "Show how spreadsheet headers map onto the columns of a BPU/DQE/DPGF grid",
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
			columns, err := grid.DefaultColumns(dt)
			if err != nil {
				return err
			}

			cfg := engine.Config()
			headerRow := grid.DetectHeaderRow(rows, grid.Keywords(dt), cfg.HeaderScanRows, cfg.HeaderMinHits)
			mapping := grid.MatchColumns(rows[headerRow], columns)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, boxStyle.Render(fmt.Sprintf("%s %s  %s %d  %s %d/%d",
				dimStyle.Render("Type:"), titleStyle.Render(string(dt)),
				dimStyle.Render("Header row:"), headerRow+1,
				dimStyle.Render("Mapped:"), len(mapping.Matches), len(mapping.Matches)+len(mapping.Unmapped),
			)))
			for _, m := range mapping.Matches {
				kind := "exact"
				if !m.Exact {
					kind = "partial"
				}
				fmt.Fprintf(out, "%s %q -> %s %s\n", okStyle.Render("✓"), m.Header, m.ColumnID, dimStyle.Render("("+kind+")"))
			}
			for _, h := range mapping.Unmapped {
				fmt.Fprintf(out, "%s %q %s\n", warnStyle.Render("✗"), h, dimStyle.Render("(unmapped)"))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&docType, "type", "t", string(grid.DocDQE), "Grid type: BPU, DQE or DPGF")
	return cmd
}

func readSheet(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return service.ReadFirstSheet(path, data)
}
