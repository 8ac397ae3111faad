package cmd

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set at build time with
// -ldflags "-X github.com/habedi/sessiond/cmd.version=... -X github.com/habedi/sessiond/cmd.commit=..."
var (
	version   = "0.1.0-dev"
	commit    = ""
	buildDate = "unknown"
)

// buildInfo describes the running binary.
type buildInfo struct {
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	Platform  string
}

func currentBuild() buildInfo {
	info := buildInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info.Commit == "" {
		info.Commit = vcsRevision()
	}
	return info
}

// vcsRevision falls back to the revision the Go toolchain embedded, if any.
func vcsRevision() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return "unknown"
}

func versionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show sessiond build information",
		Run: func(cmd *cobra.Command, args []string) {
			info := currentBuild()
			if short {
				cmd.Println(info.Version)
				return
			}
			cmd.Printf("sessiond %s (commit %s, built %s)\n", info.Version, info.Commit, info.BuildDate)
			cmd.Printf("Go: %s %s\n", info.GoVersion, info.Platform)
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")
	return cmd
}
