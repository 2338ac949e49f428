package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCmd(config func(*cobra.Command) (*Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the control api, the preview view and the metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(cfg, cfg.Addr)
			if err != nil {
				return err
			}
			a.serve()

			<-ctx.Done()
			a.close()
			return nil
		},
	}

	cmd.Flags().String("addr", "", "address to listen to")

	return cmd
}
