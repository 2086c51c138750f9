package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsisso/internal/cli/output"
	"github.com/leapstack-labs/leapsisso/pkg/sisso"
	"github.com/leapstack-labs/leapsisso/pkg/token"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the leapsisso version, the solver report format it reads and the
size of the descriptor operator catalog.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			return renderVersion(cmdCtx.Renderer, versionInfo(version))
		},
	}
}

func versionInfo(version string) output.VersionOutput {
	return output.VersionOutput{
		Version:      version,
		ReportFormat: fmt.Sprintf("SISSO %d.x", sisso.FormatMajor),
		Operators:    len(token.Catalog),
		GoVersion:    runtime.Version(),
		Platform:     runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func renderVersion(r *output.Renderer, v output.VersionOutput) error {
	if ok, err := r.Structured(v); ok {
		return err
	}
	r.Println("leapsisso v" + v.Version)
	r.KeyValue("Report format", v.ReportFormat)
	r.KeyValue("Operators", fmt.Sprint(v.Operators))
	r.KeyValue("Go", v.GoVersion+" "+v.Platform)
	return nil
}
