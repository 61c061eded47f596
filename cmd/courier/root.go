package main

import (
	"fmt"
	"os"

	"github.com/apex/log"
	logcli "github.com/apex/log/handlers/cli"
	"github.com/spf13/cobra"

	"github.com/podded/courier"
)

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "courier",
		Short:         "Fetch URLs and check that the response has the expected shape",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetHandler(logcli.New(cmd.ErrOrStderr()))
			log.SetLevel(log.InfoLevel)
			if verbose {
				log.SetLevel(log.DebugLevel)
				log.Debugf("courier version %s", courier.BuiltVersion)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose log output")

	root.AddCommand(newFetchCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the courier version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), courier.BuiltVersion)
		},
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
