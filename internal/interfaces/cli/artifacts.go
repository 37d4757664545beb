package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/DockFlow/internal/bootstrap"
	"github.com/turtacn/DockFlow/internal/infrastructure/storage/minio"
	"github.com/turtacn/DockFlow/pkg/errors"
)

var (
	artifactsURLs   bool
	artifactsExpiry time.Duration
	artifactsDelete bool
)

func newArtifactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifacts <job-id>",
		Short: "List or delete the stored files of a job",
		Long: `List the report, complexes and manifest uploaded for a job. Requires
minio.enabled.

Examples:
  dockflow jobs artifacts 7f9c...
  dockflow jobs artifacts 7f9c... --urls --expiry 15m
  dockflow jobs artifacts 7f9c... --delete`,
		Args: cobra.ExactArgs(1),
		RunE: runArtifacts,
	}

	f := cmd.Flags()
	f.BoolVar(&artifactsURLs, "urls", false, "include presigned download URLs")
	f.DurationVar(&artifactsExpiry, "expiry", time.Hour, "lifetime of presigned URLs")
	f.BoolVar(&artifactsDelete, "delete", false, "delete every artifact of the job")
	return cmd
}

func runArtifacts(cmd *cobra.Command, args []string) error {
	jobID := args[0]
	if artifactsURLs && artifactsDelete {
		return errors.New(errors.ErrCodeBadRequest, "--urls and --delete are exclusive")
	}

	return withInfra(cmd, func(ctx context.Context, infra *bootstrap.Infrastructure) error {
		if infra.Artifacts == nil {
			return errors.New(errors.ErrCodeServiceUnavailable, "artifact storage is disabled (minio.enabled)")
		}

		if artifactsDelete {
			n, err := infra.Artifacts.DeleteRun(ctx, jobID)
			if err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("deleted %d artifact(s) of job %s", n, jobID))
			return nil
		}

		arts, err := infra.Artifacts.List(ctx, jobID)
		if err != nil {
			return err
		}
		list := artifactList{Artifacts: make([]artifactEntry, 0, len(arts))}
		for _, a := range arts {
			entry := artifactEntry{Artifact: a}
			if artifactsURLs {
				if entry.URL, err = infra.Artifacts.PresignedURL(ctx, a.Key, artifactsExpiry); err != nil {
					return err
				}
			}
			list.Artifacts = append(list.Artifacts, entry)
		}
		list.WithURLs = artifactsURLs
		return PrintResult(cmd, list)
	})
}

type artifactEntry struct {
	minio.Artifact
	URL string `json:"url,omitempty"`
}

// artifactList renders the stored files of one job.
type artifactList struct {
	Artifacts []artifactEntry `json:"artifacts"`
	WithURLs  bool            `json:"-"`
}

// TableHeaders implements tableData.
func (l artifactList) TableHeaders() []string {
	h := []string{"Key", "Kind", "Size", "Modified"}
	if l.WithURLs {
		h = append(h, "URL")
	}
	return h
}

// TableRows implements tableData.
func (l artifactList) TableRows() [][]string {
	rows := make([][]string, 0, len(l.Artifacts))
	for _, a := range l.Artifacts {
		row := []string{
			a.Key,
			a.Kind,
			strconv.FormatInt(a.Size, 10),
			a.Modified.Format("2006-01-02 15:04:05"),
		}
		if l.WithURLs {
			row = append(row, a.URL)
		}
		rows = append(rows, row)
	}
	return rows
}

//Personal.AI order the ending
