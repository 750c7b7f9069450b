package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/quicktext/internal/appconfig"
)

func newRetainedCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "retained",
		Short: "Inspect the retained file set",
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	cmd.AddCommand(newRetainedListCmd(&cfgPath))
	cmd.AddCommand(newRetainedPruneCmd(&cfgPath))
	return cmd
}

func newRetainedListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List retained files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := appconfig.Load(*cfgPath)
			if err != nil {
				return err
			}
			store, adapter, err := openState(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			entries := adapter.Retained(ctx)
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				_, err := fmt.Fprintln(out, "no retained files")
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tHOST\tNAME\tPATH\tLAST ACCESSED")
			for _, entry := range entries {
				last := ""
				if !entry.LastAccessed.IsZero() {
					last = entry.LastAccessed.Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", entry.ID, entry.Host, entry.Name, entry.Path, last)
			}
			return tw.Flush()
		},
	}
}

func newRetainedPruneCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Forget retained files that no longer exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := pslog.Ctx(ctx)
			cfg, err := appconfig.Load(*cfgPath)
			if err != nil {
				return err
			}
			store, adapter, err := openState(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			pruned := 0
			for _, entry := range adapter.Retained(ctx) {
				if entry.Host != adapter.Kind() {
					continue
				}
				ref, err := adapter.Restore(ctx, entry.ID)
				if err != nil {
					return err
				}
				if ref != nil && adapter.Revalidate(ctx, *ref) {
					continue
				}
				if err := adapter.Forget(ctx, entry.ID); err != nil {
					return err
				}
				logger.Info("retained entry pruned", "id", string(entry.ID), "file", entry.Name)
				pruned++
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "pruned %d retained file(s)\n", pruned)
			return err
		},
	}
}
