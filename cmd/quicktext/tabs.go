package main

import (
	"fmt"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/quicktext/internal/appconfig"
	"pkt.systems/quicktext/internal/persist"
)

func newTabsCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "tabs",
		Short: "Print the saved session snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			store, err := persist.NewStoreWithLogger(cfg.StateDir, pslog.Ctx(ctx))
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			snap := store.LoadSessionSnapshot(ctx)
			if snap.Empty() {
				_, err := fmt.Fprintln(out, "no saved session")
				return err
			}
			fmt.Fprintf(out, "saved %s\n", snap.SavedAt.Format("2006-01-02 15:04:05"))
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "\t#\tNAME\tSTATE\tCHARS\tRETENTION")
			for i, tab := range snap.Tabs {
				marker := ""
				if tab.IsCurrent {
					marker = "*"
				}
				name := string(tab.CustomName)
				if name == "" {
					name = tab.EntryName
				}
				if name == "" {
					name = cfg.Registry.UntitledName
				}
				state := "saved"
				if tab.Dirty {
					state = "modified"
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d\t%s\n", marker, i+1, name, state, utf8.RuneCountInString(tab.Content), tab.RetentionID)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}
