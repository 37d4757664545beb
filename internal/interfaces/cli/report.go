package cli

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/DockFlow/internal/domain/pose"
)

var (
	reportCompound string
	reportLimit    int
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <results.tsv>",
		Short: "Show a rescoring report written by a diffdock run",
		Long: `Read an aggregate or per-compound results file and print its rows, with the
gnina CNN score coloured by confidence.

Examples:
  dockflow report runs/1abc/results.tsv
  dockflow report runs/1abc/results.tsv --compound CHEMBL25 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: runReport,
	}

	cmd.Flags().StringVar(&reportCompound, "compound", "", "only show rows of this compound")
	cmd.Flags().IntVar(&reportLimit, "limit", 0, "maximum number of rows (0 shows all)")
	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	rows, err := pose.ReadReport(args[0])
	if err != nil {
		return err
	}

	selected := make([]pose.Row, 0, len(rows))
	for _, r := range rows {
		if reportCompound != "" && r.Ident != reportCompound {
			continue
		}
		selected = append(selected, r)
		if reportLimit > 0 && len(selected) == reportLimit {
			break
		}
	}

	if err := PrintResult(cmd, reportRows(selected)); err != nil {
		return err
	}
	if cliCtx, err := GetCLIContext(cmd); err == nil && cliCtx.OutputFormat == "table" {
		fmt.Fprintf(cmd.OutOrStdout(), "\nTotal rows: %d\n", len(selected))
	}
	return nil
}

// reportRows renders report rows.
type reportRows []pose.Row

// TableHeaders implements tableData.
func (r reportRows) TableHeaders() []string {
	return pose.ReportHeader
}

// TableRows implements tableData.
func (r reportRows) TableRows() [][]string {
	out := make([][]string, 0, len(r))
	for _, row := range r {
		out = append(out, []string{
			row.Ident,
			strconv.Itoa(row.Rank),
			row.Score,
			row.LigandFile,
			row.ComplexFile,
			colorizeCNNScore(row.CNNScore),
			row.CNNAffinity,
			row.Vinardo,
		})
	}
	return out
}

// colorizeCNNScore colours a CNN pose score: green from 0.8, yellow from 0.5.
func colorizeCNNScore(s string) string {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	switch {
	case v >= 0.8:
		return color.GreenString(s)
	case v >= 0.5:
		return color.YellowString(s)
	default:
		return s
	}
}

//Personal.AI order the ending
