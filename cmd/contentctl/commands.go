package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"contentflow/internal/client"
	"contentflow/internal/common"
	"contentflow/internal/reconcile"
	"contentflow/internal/workflow"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var userID, role string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			r, err := common.ParseRole(role)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}
			tok, err := common.GenerateToken([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer, ttl, common.Actor{UserID: userID, Role: r})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "dev", "User id to embed")
	cmd.Flags().StringVar(&role, "role", string(common.RoleContentCreator), "ADMIN, MANAGER, CONTENT_CREATOR or USER")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to JWT_TTL)")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the items of a scope in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.api()
			if err != nil {
				return err
			}
			resp, err := api.FetchChanges(cmd.Context(), ctx.flags.scope, 0)
			if err != nil {
				return err
			}
			st := reconcile.State{}
			for _, it := range resp.Items {
				st[it.ID] = reconcile.LocalItem{Item: it}
			}
			if len(st) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Scope %s is empty\n", ctx.flags.scope)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderItems(reconcile.Ordered(st)))
			return nil
		},
	}
}

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var mediaRef, caption, kind string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft bound to an uploaded mediaRef",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.session(cmd)
			if err != nil {
				return err
			}
			it, err := s.Create(cmd.Context(), client.CreateOptions{
				MediaRef: mediaRef,
				Caption:  caption,
				Kind:     common.Kind(strings.ToUpper(kind)),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderItem(it))
			return nil
		},
	}
	cmd.Flags().StringVar(&mediaRef, "media", "", "mediaRef returned by the media server")
	cmd.Flags().StringVar(&caption, "caption", "", "Caption text")
	cmd.Flags().StringVar(&kind, "kind", string(common.KindPost), "POST, REEL or STORY")
	_ = cmd.MarkFlagRequired("media")
	return cmd
}

func newTransitionCommand(ctx *commandContext) *cobra.Command {
	var reason, at string

	cmd := &cobra.Command{
		Use:   "transition <id> <submit|approve|reject|schedule|publish|revert>",
		Short: "Move an item along the workflow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := client.TransitionOptions{Reason: reason}
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return common.NewValidationError("at", "must be RFC3339: %v", err)
				}
				opts.ScheduledDate = &t
			}
			s, err := ctx.session(cmd)
			if err != nil {
				return err
			}
			it, err := s.Transition(cmd.Context(), args[0], common.Transition(strings.ToLower(args[1])), opts)
			if err != nil {
				if common.IsPermission(err) {
					return fmt.Errorf("%w (your role may: %s)", err, allowedList(s.Actor().Role))
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderItem(it))
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Rejection reason (reject)")
	cmd.Flags().StringVar(&at, "at", "", "Scheduled date, RFC3339 (schedule)")
	return cmd
}

func allowedList(role common.Role) string {
	allowed := workflow.Allowed(role)
	if len(allowed) == 0 {
		return "nothing"
	}
	names := make([]string, len(allowed))
	for i, t := range allowed {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var caption, at string
	var clearSchedule bool

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change an item's caption or scheduled date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts client.EditOptions
			if cmd.Flags().Changed("caption") {
				opts.Caption = &caption
			}
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return common.NewValidationError("at", "must be RFC3339: %v", err)
				}
				opts.ScheduledDate = &t
			}
			opts.ClearScheduledDate = clearSchedule

			s, err := ctx.session(cmd)
			if err != nil {
				return err
			}
			it, err := s.Edit(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderItem(it))
			return nil
		},
	}
	cmd.Flags().StringVar(&caption, "caption", "", "New caption")
	cmd.Flags().StringVar(&at, "at", "", "New scheduled date, RFC3339")
	cmd.Flags().BoolVar(&clearSchedule, "clear-schedule", false, "Remove the scheduled date")
	return cmd
}

func newReorderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <from> <to>",
		Short: "Move the item at index from to index to",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := strconv.Atoi(args[0])
			if err != nil {
				return common.NewValidationError("from", "must be an index")
			}
			to, err := strconv.Atoi(args[1])
			if err != nil {
				return common.NewValidationError("to", "must be an index")
			}
			s, err := ctx.session(cmd)
			if err != nil {
				return err
			}
			if err := s.Move(cmd.Context(), from, to); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderItems(reconcile.Ordered(s.State())))
			return nil
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var cascade bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove an item; --cascade also deletes its media",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.session(cmd)
			if err != nil {
				return err
			}
			ack, err := s.Delete(cmd.Context(), args[0], cascade)
			if err != nil {
				return err
			}
			if cascade && !ack.MediaDeleted {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s; media was kept (delete from the media store failed)\n", ack.ID)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", ack.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&cascade, "cascade", false, "Delete the media from the media store as well")
	return cmd
}
