package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/opendce/backend/internal/pkg/officedoc"
	"github.com/opendce/backend/internal/service"
	"github.com/opendce/backend/internal/service/sectionparser"
	"github.com/spf13/cobra"
)

func newSectionsCmd(extractor *sectionparser.Extractor) *cobra.Command {
	var showContent bool
	cmd := &cobra.Command{
		Use:   "sections <file>",
		Short: "Print the numbered outline extracted from a template (.docx, .md, .pdf, .txt)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			format, err := officedoc.Detect(path)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			res, err := service.ExtractSections(extractor, format, data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, boxStyle.Render(fmt.Sprintf("%s %s\n%s %s  %s %d",
				dimStyle.Render("File:"), titleStyle.Render(filepath.Base(path)),
				dimStyle.Render("Tier:"), okStyle.Render(string(res.Tier)),
				dimStyle.Render("Sections:"), len(res.Sections),
			)))

			numbers := sectionparser.SectionNumbers(res.Sections)
			for i, s := range res.Sections {
				fmt.Fprintf(out, "%s%s %s\n", indent(s.Level), dimStyle.Render(numbers[i]), s.Title)
				if showContent && s.Content != "" {
					fmt.Fprintln(out, dimStyle.Render(s.Content))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showContent, "content", "c", false, "Also print each section's content")
	return cmd
}
