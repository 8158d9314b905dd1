package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/example/meetsched/cmd.Version=v1.2.0 \
//	  -X github.com/example/meetsched/cmd.CommitSHA=$(git rev-parse --short HEAD) \
//	  -X github.com/example/meetsched/cmd.BuildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/meetsched
var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

func newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build version, commit and Go runtime",
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), Version)
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "meetsched %s (commit=%s, built=%s, %s %s/%s)\n",
				Version, CommitSHA, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print only the version")
	return cmd
}
