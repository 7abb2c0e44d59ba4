package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	f := &flags{}
	ctx := newCommandContext(f)

	rootCmd := &cobra.Command{
		Use:           "contentctl",
		Short:         "Inspect and drive the contentflow editorial workflow",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.server, "server", "", "REST API base URL (CONTENTFLOW_URL)")
	pf.StringVar(&f.grpc, "grpc", "", "gRPC sync address (CONTENTFLOW_GRPC_ADDR)")
	pf.StringVar(&f.media, "media", "", "Media server base URL (CONTENTFLOW_MEDIA_URL)")
	pf.StringVar(&f.token, "token", "", "Bearer token (CONTENTFLOW_TOKEN)")
	pf.StringVarP(&f.scope, "scope", "s", "feed", "Scope to operate on")
	pf.StringVar(&f.mode, "mode", "", "Sync transport for watch: push, grpc or poll (CONTENTFLOW_SYNC_MODE)")

	rootCmd.AddCommand(newTokenCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newCreateCommand(ctx))
	rootCmd.AddCommand(newTransitionCommand(ctx))
	rootCmd.AddCommand(newEditCommand(ctx))
	rootCmd.AddCommand(newReorderCommand(ctx))
	rootCmd.AddCommand(newDeleteCommand(ctx))

	return rootCmd
}
