package main

import (
	"time"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "clamdctl",
		Short:         "Control and scan through a clamd daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx.timeoutSet = cmd.Flags().Changed("timeout")
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.addressFlag, "address", "a", "",
		"Daemon endpoint (unix:///path, tcp://host:port, socket path, or host:port)")
	rootCmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "",
		"Configuration file path")
	rootCmd.PersistentFlags().DurationVarP(&ctx.timeoutFlag, "timeout", "t", 30*time.Second,
		"Connect and response timeout (0 blocks indefinitely)")
	rootCmd.PersistentFlags().BoolVarP(&ctx.verboseFlag, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&ctx.jsonFlag, "json", false,
		"Emit results as JSON")

	rootCmd.AddCommand(newPingCommand(ctx))
	rootCmd.AddCommand(newVersionCommand(ctx))
	rootCmd.AddCommand(newReloadCommand(ctx))
	rootCmd.AddCommand(newShutdownCommand(ctx))
	rootCmd.AddCommand(newStatsCommand(ctx))
	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newInstreamCommand(ctx))

	return rootCmd
}
