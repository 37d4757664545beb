package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/DockFlow/internal/bootstrap"
	"github.com/turtacn/DockFlow/internal/config"
	"github.com/turtacn/DockFlow/internal/domain/job"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
)

var (
	dockReceptor     string
	dockCompounds    string
	dockOutput       string
	dockTopN         int
	dockBatchSize    int
	dockWorkers      int
	dockContinue     bool
	dockSkipInvalid  bool
	dockIncludeSeq   bool
	dockDiffDockDir  string
	dockPython       string
	fredCPUs         int
	fredHitlistSize  int
	fredOpenEyeDir   string
	fredLicense      string
	fredFpocket      string
	fredConverterBin string
)

func newDiffDockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diffdock",
		Short: "Dock a compound list against a receptor with DiffDock",
		Long: `Validate the compound list, write the DiffDock manifest, run inference and
post-process the ranked poses into merged complexes rescored with gnina.

Examples:
  dockflow diffdock -r 1abc.pdb -l ligands.txt -d runs/1abc --diffdock-dir /opt/DiffDock
  dockflow diffdock -r 1abc.pdb -l ligands.txt -d runs/1abc --top-n 3 --workers 8`,
		RunE: runDiffDock,
	}

	f := cmd.Flags()
	f.StringVarP(&dockReceptor, "receptor", "r", "", "receptor PDB file (required)")
	f.StringVarP(&dockCompounds, "compounds", "l", "", "compound list, one 'ID SMILES' per line (required)")
	f.StringVarP(&dockOutput, "output", "d", "", "output directory, must not exist unless --continue (required)")
	f.IntVar(&dockTopN, "top-n", 1, "keep ranks 1..N of every compound (0 keeps all)")
	f.IntVar(&dockBatchSize, "batch-size", 0, "inference batch size (-1 lets DiffDock decide)")
	f.IntVar(&dockWorkers, "workers", 0, "concurrent rescoring workers")
	f.BoolVar(&dockContinue, "continue", false, "reuse an existing output directory")
	f.BoolVar(&dockSkipInvalid, "skip-invalid", false, "dock the valid compounds when some lines are rejected")
	f.BoolVar(&dockIncludeSeq, "include-sequence", false, "fill the protein_sequence manifest column")
	f.StringVar(&dockDiffDockDir, "diffdock-dir", "", "DiffDock installation directory")
	f.StringVar(&dockPython, "python", "", "python interpreter used for inference")

	_ = cmd.MarkFlagRequired("receptor")
	_ = cmd.MarkFlagRequired("compounds")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newFredCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fred",
		Short: "Dock a compound list with the OpenEye pocket-search pipeline",
		Long: `Detect the binding pocket with fpocket when the receptor carries no ligand,
prepare the receptor and ligands with the OpenEye tools, dock with FRED and
write the docked complexes as PDB files.

Examples:
  dockflow fred -r 1abc.pdb -l ligands.txt --license /opt/oe_license.txt
  dockflow fred -r 1abc.pdb -l ligands.txt --cpus 8 --hitlist-size 100`,
		RunE: runFred,
	}

	f := cmd.Flags()
	f.StringVarP(&dockReceptor, "receptor", "r", "", "receptor PDB file (required)")
	f.StringVarP(&dockCompounds, "compounds", "l", "", "compound list, one 'ID SMILES' per line (required)")
	f.StringVarP(&dockOutput, "output", "d", "", "directory the run_<label> directory is created in (default: working directory)")
	f.IntVar(&fredCPUs, "cpus", 0, "MPI processes for docking")
	f.IntVar(&fredHitlistSize, "hitlist-size", 0, "docked molecules to keep (0 keeps all)")
	f.StringVar(&fredOpenEyeDir, "openeye-dir", "", "directory holding the OpenEye executables")
	f.StringVar(&fredLicense, "license", "", "OpenEye license file")
	f.StringVar(&fredFpocket, "fpocket", "", "fpocket executable")
	f.StringVar(&fredConverterBin, "converter", "", "converter used for the PDB complexes")

	_ = cmd.MarkFlagRequired("receptor")
	_ = cmd.MarkFlagRequired("compounds")
	return cmd
}

func runDiffDock(cmd *cobra.Command, _ []string) error {
	req := job.Request{
		Engine:          job.EngineDiffDock,
		Receptor:        dockReceptor,
		CompoundList:    dockCompounds,
		OutputDir:       dockOutput,
		BatchSize:       dockBatchSize,
		ScoreWorkers:    dockWorkers,
		SkipInvalid:     dockSkipInvalid,
		IncludeSequence: dockIncludeSeq,
		ContinueRun:     dockContinue,
	}
	if cmd.Flags().Changed("top-n") {
		topN := dockTopN
		req.TopN = &topN
	}
	return runDockJob(cmd, req, func(cfg *config.Config) {
		if dockDiffDockDir != "" {
			cfg.DiffDock.Dir = dockDiffDockDir
		}
		if dockPython != "" {
			cfg.Tools.Python = dockPython
		}
	})
}

func runFred(cmd *cobra.Command, _ []string) error {
	req := job.Request{
		Engine:       job.EngineFred,
		Receptor:     dockReceptor,
		CompoundList: dockCompounds,
		OutputDir:    dockOutput,
		CPUs:         fredCPUs,
		HitlistSize:  hitlistFlag(cmd),
	}
	return runDockJob(cmd, req, func(cfg *config.Config) {
		if fredOpenEyeDir != "" {
			cfg.Tools.OpenEye = fredOpenEyeDir
		}
		if fredLicense != "" {
			cfg.Fred.License = fredLicense
		}
		if fredFpocket != "" {
			cfg.Tools.Fpocket = fredFpocket
		}
		if fredConverterBin != "" {
			cfg.Tools.Converter = fredConverterBin
		}
	})
}

// hitlistFlag returns --hitlist-size when it was given, so an explicit 0
// overrides a configured limit.
func hitlistFlag(cmd *cobra.Command) *int {
	if !cmd.Flags().Changed("hitlist-size") {
		return nil
	}
	n := fredHitlistSize
	return &n
}

// runDockJob runs req in-process as a tracked job and prints its outcome.
// The job is printed even when the run failed.
func runDockJob(cmd *cobra.Command, req job.Request, override func(*config.Config)) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	override(cliCtx.Config)

	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	infra, err := bootstrap.Open(ctx, cliCtx.Config, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	svc, err := infra.NewService()
	if err != nil {
		return err
	}

	j, runErr := svc.Execute(ctx, req)
	if j == nil {
		return runErr
	}
	poses, err := svc.ListPoses(ctx, j.ID)
	if err != nil {
		cliCtx.Logger.Warn("failed to list poses", logging.String("job_id", j.ID), logging.Err(err))
	}
	if err := printJobResult(cmd, jobResult{Job: j, Poses: poses}); err != nil {
		return err
	}
	return runErr
}

// jobResult is a job with its accepted poses.
type jobResult struct {
	Job   *job.Job   `json:"job"`
	Poses []job.Pose `json:"poses,omitempty"`
}

// TableHeaders implements tableData.
func (r jobResult) TableHeaders() []string {
	return []string{"Compound", "Rank", "Confidence", "CNNscore", "CNNaffinity", "Vinardo", "Complex"}
}

// TableRows implements tableData.
func (r jobResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Poses))
	for _, p := range r.Poses {
		rows = append(rows, []string{
			p.Compound,
			strconv.Itoa(p.Rank),
			p.Score,
			p.CNNScore,
			p.CNNAffinity,
			p.Vinardo,
			truncateString(p.ComplexFile, 40),
		})
	}
	return rows
}

func printJobResult(cmd *cobra.Command, r jobResult) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil || cliCtx.OutputFormat == "json" {
		return printJSON(cmd.OutOrStdout(), r)
	}
	w := cmd.OutOrStdout()
	writeJobSummary(w, r.Job)
	if len(r.Poses) > 0 {
		fmt.Fprintln(w)
		fmt.Fprint(w, FormatTable(r.TableHeaders(), r.TableRows()))
	}
	return nil
}

func writeJobSummary(w io.Writer, j *job.Job) {
	rows := [][]string{
		{"Job", j.ID},
		{"Engine", j.Request.Engine},
		{"Status", colorizeStatus(string(j.Status))},
	}
	if j.Label != "" {
		rows = append(rows, []string{"Label", j.Label})
	}
	if j.RunDir != "" {
		rows = append(rows, []string{"Run directory", j.RunDir})
	}
	if j.ReportPath != "" {
		rows = append(rows, []string{"Report", j.ReportPath})
	}
	if j.SiteResidue != "" {
		rows = append(rows, []string{"Site residue", j.SiteResidue})
	}
	if j.Request.Engine == job.EngineDiffDock {
		rows = append(rows,
			[]string{"Compounds", strconv.Itoa(j.Compounds)},
			[]string{"Rejected lines", strconv.Itoa(j.Failed)},
			[]string{"Missing", strconv.Itoa(j.Missing)},
			[]string{"Scored", strconv.Itoa(j.Scored)},
			[]string{"Dropped", strconv.Itoa(j.Dropped)},
		)
	}
	rows = append(rows, []string{"Poses", strconv.Itoa(j.Poses)})
	if j.Artifacts > 0 {
		rows = append(rows, []string{"Artifacts", strconv.Itoa(j.Artifacts)})
	}
	if j.Error != "" {
		rows = append(rows, []string{"Error", j.Error})
	}
	fmt.Fprint(w, FormatTable([]string{"Field", "Value"}, rows))
}

//Personal.AI order the ending
