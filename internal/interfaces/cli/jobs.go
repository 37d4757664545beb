package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/DockFlow/internal/application/jobs"
	"github.com/turtacn/DockFlow/internal/bootstrap"
	"github.com/turtacn/DockFlow/internal/domain/job"
)

var (
	submitEngine string
	jobsLimit    int
)

func newSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Queue a docking job for a worker",
		Long: `Record a queued job and publish it on the job request topic. A worker picks
it up and runs it. Requires kafka.enabled.

Examples:
  dockflow submit --engine diffdock -r /data/1abc.pdb -l /data/ligands.txt -d /data/runs/1abc
  dockflow submit --engine fred -r /data/1abc.pdb -l /data/ligands.txt --cpus 8`,
		RunE: runSubmit,
	}

	f := cmd.Flags()
	f.StringVar(&submitEngine, "engine", job.EngineDiffDock, "docking engine (diffdock, fred)")
	f.StringVarP(&dockReceptor, "receptor", "r", "", "receptor PDB file, as seen by the worker (required)")
	f.StringVarP(&dockCompounds, "compounds", "l", "", "compound list, as seen by the worker (required)")
	f.StringVarP(&dockOutput, "output", "d", "", "output directory on the worker (required for diffdock)")
	f.IntVar(&dockTopN, "top-n", 1, "diffdock: keep ranks 1..N of every compound (0 keeps all)")
	f.IntVar(&dockBatchSize, "batch-size", 0, "diffdock: inference batch size")
	f.IntVar(&dockWorkers, "workers", 0, "diffdock: concurrent rescoring workers")
	f.BoolVar(&dockSkipInvalid, "skip-invalid", false, "diffdock: dock the valid compounds when some lines are rejected")
	f.IntVar(&fredCPUs, "cpus", 0, "fred: MPI processes for docking")
	f.IntVar(&fredHitlistSize, "hitlist-size", 0, "fred: docked molecules to keep (0 keeps all)")

	_ = cmd.MarkFlagRequired("receptor")
	_ = cmd.MarkFlagRequired("compounds")
	return cmd
}

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect recorded docking jobs",
		Long:  "Look up jobs and their poses in the run history. Requires database.enabled.",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs, newest first",
		Args:  cobra.NoArgs,
		RunE:  runJobsList,
	}
	list.Flags().IntVar(&jobsLimit, "limit", 20, "maximum number of jobs")

	get := &cobra.Command{
		Use:   "get <job-id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobsGet,
	}

	poses := &cobra.Command{
		Use:   "poses <job-id>",
		Short: "Show a job with its accepted poses",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobsPoses,
	}

	cmd.AddCommand(list, get, poses, newArtifactsCmd())
	return cmd
}

// withInfra opens the configured infrastructure for the duration of fn.
func withInfra(cmd *cobra.Command, fn func(ctx context.Context, infra *bootstrap.Infrastructure) error) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	infra, err := bootstrap.Open(ctx, cliCtx.Config, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer infra.Close()
	return fn(ctx, infra)
}

// withService is withInfra plus the job service built on it.
func withService(cmd *cobra.Command, fn func(ctx context.Context, svc jobs.Service) error) error {
	return withInfra(cmd, func(ctx context.Context, infra *bootstrap.Infrastructure) error {
		svc, err := infra.NewService()
		if err != nil {
			return err
		}
		return fn(ctx, svc)
	})
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	req := job.Request{
		Engine:       submitEngine,
		Receptor:     dockReceptor,
		CompoundList: dockCompounds,
		OutputDir:    dockOutput,
		BatchSize:    dockBatchSize,
		ScoreWorkers: dockWorkers,
		SkipInvalid:  dockSkipInvalid,
		CPUs:         fredCPUs,
		HitlistSize:  hitlistFlag(cmd),
	}
	if cmd.Flags().Changed("top-n") {
		topN := dockTopN
		req.TopN = &topN
	}

	return withService(cmd, func(ctx context.Context, svc jobs.Service) error {
		j, err := svc.Submit(ctx, req)
		if err != nil {
			return err
		}
		PrintSuccess(cmd, "job "+j.ID+" queued")
		return nil
	})
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	return withService(cmd, func(ctx context.Context, svc jobs.Service) error {
		list, err := svc.List(ctx, jobsLimit)
		if err != nil {
			return err
		}
		return PrintResult(cmd, jobList(list))
	})
}

func runJobsGet(cmd *cobra.Command, args []string) error {
	return withService(cmd, func(ctx context.Context, svc jobs.Service) error {
		j, err := svc.Get(ctx, args[0])
		if err != nil {
			return err
		}
		return printJobResult(cmd, jobResult{Job: j})
	})
}

func runJobsPoses(cmd *cobra.Command, args []string) error {
	return withService(cmd, func(ctx context.Context, svc jobs.Service) error {
		j, err := svc.Get(ctx, args[0])
		if err != nil {
			return err
		}
		poses, err := svc.ListPoses(ctx, j.ID)
		if err != nil {
			return err
		}
		return printJobResult(cmd, jobResult{Job: j, Poses: poses})
	})
}

// jobList renders a list of jobs.
type jobList []*job.Job

// TableHeaders implements tableData.
func (l jobList) TableHeaders() []string {
	return []string{"ID", "Engine", "Status", "Label", "Poses", "Created"}
}

// TableRows implements tableData.
func (l jobList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, j := range l {
		rows = append(rows, []string{
			j.ID,
			j.Request.Engine,
			colorizeStatus(string(j.Status)),
			j.Label,
			strconv.Itoa(j.Poses),
			j.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return rows
}

//Personal.AI order the ending
