package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// BuildInfo holds version information injected at build time.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// String implements fmt.Stringer.
func (b BuildInfo) String() string {
	return fmt.Sprintf("dockflow %s (commit: %s, built: %s, %s %s)", b.Version, b.Commit, b.BuildDate, b.GoVersion, b.Platform)
}

// CurrentBuildInfo returns the ldflags-injected build information.
func CurrentBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := CurrentBuildInfo()
			if cliCtx, err := GetCLIContext(cmd); err == nil && cliCtx.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), info)
			}
			return printText(cmd.OutOrStdout(), info)
		},
	}
}

//Personal.AI order the ending
