package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/meetsched/internal/config"
)

func NewRootCmd() *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:           "meetsched",
		Short:         "Publish bookable slots from a Google calendar and take bookings against them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(envFiles...)
		},
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env, missing files are ignored)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newKeysCmd())
	root.AddCommand(newServerCmd())
	root.AddCommand(newWorkerCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newOwnerCmd())
	root.AddCommand(newMeetingTypeCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
