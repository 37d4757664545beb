package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/DockFlow/internal/domain/compound"
)

var (
	parseStrict   bool
	parseRejected bool
)

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <compound-list>",
		Short: "Validate a compound list without docking it",
		Long: `Read a compound list, correct lines whose identifier and SMILES columns are
swapped and report the lines that would be rejected by a docking run.

Examples:
  dockflow parse ligands.txt
  dockflow parse ligands.txt --rejected --strict`,
		Args: cobra.ExactArgs(1),
		RunE: runParse,
	}

	cmd.Flags().BoolVar(&parseStrict, "strict", false, "exit with an error when any line is rejected")
	cmd.Flags().BoolVar(&parseRejected, "rejected", false, "list rejected lines instead of accepted compounds")
	return cmd
}

func runParse(cmd *cobra.Command, args []string) error {
	res, err := compound.ParseFile(args[0])
	if err != nil {
		return err
	}

	out := parseResult{ParseResult: res, ShowRejected: parseRejected}
	if err := PrintResult(cmd, out); err != nil {
		return err
	}
	if cliCtx, err := GetCLIContext(cmd); err == nil && cliCtx.OutputFormat == "table" {
		fmt.Fprintln(cmd.OutOrStdout(), out.String())
	}
	if parseStrict {
		return res.Err(args[0])
	}
	return nil
}

// parseResult renders a compound.ParseResult.
type parseResult struct {
	*compound.ParseResult
	ShowRejected bool `json:"-"`
}

// TableHeaders implements tableData.
func (p parseResult) TableHeaders() []string {
	if p.ShowRejected {
		return []string{"Line", "Status", "Reason", "Text"}
	}
	return []string{"Line", "ID", "SMILES"}
}

// TableRows implements tableData.
func (p parseResult) TableRows() [][]string {
	if p.ShowRejected {
		rows := make([][]string, 0, len(p.ParseResult.Rejected))
		for _, r := range p.ParseResult.Rejected {
			rows = append(rows, []string{strconv.Itoa(r.Line), colorizeStatus("rejected"), r.Reason, truncateString(r.Text, 50)})
		}
		return rows
	}
	rows := make([][]string, 0, len(p.Compounds))
	for _, c := range p.Compounds {
		rows = append(rows, []string{strconv.Itoa(c.Line), c.ID, truncateString(c.SMILES, 60)})
	}
	return rows
}

// String implements fmt.Stringer for text output.
func (p parseResult) String() string {
	return fmt.Sprintf("valid: %d, swapped: %d, failed: %d", len(p.Compounds), p.Swapped, p.Failed)
}

//Personal.AI order the ending
