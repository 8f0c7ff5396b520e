package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"reciboqr/internal/api"
	"reciboqr/internal/app"
	"reciboqr/internal/config"
)

func main() {
	if err := newServeCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	var configFile, addr string
	cmd := &cobra.Command{
		Use:          "reciboqr-server",
		Short:        "Serve receipt QR verification",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			key, err := a.SigningKey()
			if err != nil {
				return err
			}
			srv := api.NewServer(key, a.Log, api.ServerOptions{
				Addr:            cfg.Server.Addr,
				ReadTimeout:     cfg.Server.ReadTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
				RateLimit:       cfg.Server.RateLimit,
				RateBurst:       cfg.Server.RateBurst,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(srv.Start)
			g.Go(func() error {
				<-ctx.Done()
				return srv.Shutdown(context.Background())
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file (default ./reciboqr.yaml)")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}
