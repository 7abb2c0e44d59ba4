package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"contentflow/internal/client"
	"contentflow/internal/config"
	"contentflow/internal/grpcapi"
	"contentflow/internal/logger"
	"contentflow/internal/reconcile"
	"contentflow/internal/syncchannel"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var previews bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a scope live over push, gRPC or poll",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			s, err := ctx.session(cmd)
			if err != nil {
				return err
			}
			channel, closeChannel, err := buildChannel(cfg)
			if err != nil {
				return err
			}
			defer closeChannel()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sub, err := channel.Subscribe(runCtx, ctx.flags.scope)
			if err != nil {
				return err
			}

			var loader reconcile.PreviewLoader
			if previews {
				loader = client.NewMediaClient(cfg.Client.MediaURL, nil)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %s over %s (Ctrl-C to stop)\n", ctx.flags.scope, cfg.Client.Mode)

			return s.Run(runCtx, sub, func(reconcile.State) {
				if loader != nil {
					fillCtx, cancel := context.WithTimeout(runCtx, 30*time.Second)
					if err := s.FillPreviews(fillCtx, loader); err != nil {
						logger.App().WithError(err).Warn("preview load failed")
					}
					cancel()
				}
				fmt.Fprintf(out, "\n%s\n", time.Now().Format("15:04:05"))
				fmt.Fprintln(out, renderItems(reconcile.Ordered(s.State())))
			})
		},
	}
	cmd.Flags().BoolVar(&previews, "previews", false, "Fetch media previews from the media server")
	return cmd
}

func buildChannel(cfg *config.Config) (syncchannel.Channel, func(), error) {
	mode, err := syncchannel.ParseMode(cfg.Client.Mode)
	if err != nil {
		return nil, nil, err
	}
	api := client.NewAPI(cfg.Client.ServerURL, cfg.Client.Token)
	opts := syncchannel.FromConfig(cfg.Sync)

	switch mode {
	case syncchannel.ModePoll:
		return syncchannel.NewPoll(api, opts...), func() {}, nil
	case syncchannel.ModeGRPC:
		d, err := grpcapi.NewDialer(cfg.Client.GRPCAddr, cfg.Client.Token)
		if err != nil {
			return nil, nil, err
		}
		return syncchannel.NewPush(api, d, opts...), func() { _ = d.Close() }, nil
	default:
		d := syncchannel.NewWSDialer(cfg.Client.ServerURL, cfg.Client.Token)
		return syncchannel.NewPush(api, d, opts...), func() {}, nil
	}
}
