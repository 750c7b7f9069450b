package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/quicktext/internal/appconfig"
	"pkt.systems/quicktext/schema"
)

func newLaunchCmd() *cobra.Command {
	var cfgPath string
	var newDocument bool
	cmd := &cobra.Command{
		Use:   "launch [FILE...]",
		Short: "Start a session, reconcile launch inputs and tear down",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := pslog.Ctx(ctx)
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			app, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}

			req := schema.LaunchRequest{NewDocument: newDocument}
			for _, arg := range args {
				ref, err := app.Host().Grant(ctx, arg)
				if err != nil {
					logger.Warn("launch file rejected", "path", arg, "err", err)
					continue
				}
				req.Files = append(req.Files, schema.LaunchFile{Ref: ref})
			}

			res, err := app.Start(ctx, req)
			if err != nil {
				_ = app.Close(ctx)
				return err
			}
			out := cmd.OutOrStdout()
			if res.FirstRun {
				fmt.Fprintln(out, "Welcome to quicktext.")
			}
			fmt.Fprintf(out, "session from %s: %d tab(s)\n", res.Reconcile.Source, res.Reconcile.Tabs)
			if n := len(res.Reconcile.Pruned); n > 0 {
				fmt.Fprintf(out, "forgot %d missing file(s)\n", n)
			}
			if err := printTabs(out, app.Registry().List(ctx)); err != nil {
				_ = app.Close(ctx)
				return err
			}
			if err := app.SaveSession(ctx); err != nil {
				logger.Warn("launch snapshot failed", "err", err)
			}
			return app.Close(ctx)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&newDocument, "new", false, "start with one empty document")
	return cmd
}
