package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/undoredo/internal/app"
	"github.com/dshills/undoredo/internal/engine/history"
)

type runOptions struct {
	dump        string
	metricsAddr string
	watch       bool
	serve       bool
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <script.lua>...",
		Short: "Run Lua scripts against a shared history",
		Long: `Runs each script in order against one history. With --dump the final
history is written to stdout. With --serve the process stays up after the
scripts finish, serving metrics and reloading the config file until
interrupted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScripts(cmd, flags, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.dump, "dump", "", "write the final history to stdout (yaml or json)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics on this address (overrides metrics.addr)")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "reload the config file when it changes")
	cmd.Flags().BoolVar(&opts.serve, "serve", false, "keep running after the scripts finish")
	return cmd
}

func runScripts(cmd *cobra.Command, flags *globalFlags, opts *runOptions, scripts []string) error {
	var format history.Format
	if opts.dump != "" {
		f, err := history.ParseFormat(opts.dump)
		if err != nil {
			return err
		}
		format = f
	}

	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}

	application, err := app.New(app.Options{
		ConfigPath: flags.configPath,
		Config:     cfg,
		LogOutput:  cmd.ErrOrStderr(),
		Watch:      opts.watch,
	})
	if err != nil {
		return err
	}
	defer application.Shutdown()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return application.ServeMetrics(gctx, opts.metricsAddr)
	})
	g.Go(func() error {
		defer func() {
			if !opts.serve {
				cancel()
			}
		}()
		for _, script := range scripts {
			if err := application.RunScript(gctx, script); err != nil {
				return err
			}
		}
		if format != "" {
			if err := application.Dump(cmd.OutOrStdout(), format); err != nil {
				return err
			}
		}
		if opts.serve {
			application.Logger().Info("scripts finished; serving until interrupted")
			<-gctx.Done()
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}
