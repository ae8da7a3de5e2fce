package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrsteele09/storefront-session/auth"
	"github.com/jrsteele09/storefront-session/devserver"
	"github.com/jrsteele09/storefront-session/internal/config"
	"github.com/jrsteele09/storefront-session/token"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// watchCmd keeps the sessions validated until interrupted. SIGUSR1 triggers an
// immediate check, the same as the application regaining focus.
func watchCmd(cfg config.Config, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Validate sessions periodically and print every change",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			displayAppname(cfg.GetAppName())

			a, err := newApp(ctx, cfg, flags)
			if err != nil {
				return err
			}
			defer a.close()

			guard, err := auth.NewGuard(a.controller,
				auth.WithGuardPeriod(cfg.GetGuardPeriod()),
				auth.WithGuardLogger(log.Logger.With().Str("component", "session_guard").Logger()),
			)
			if err != nil {
				return err
			}
			if err := guard.Start(ctx); err != nil {
				return err
			}
			defer guard.Stop()

			if addr := cfg.GetMetricsAddr(); addr != "" {
				metricsServer := &http.Server{
					Addr:              addr,
					Handler:           promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					log.Info().Str("addr", addr).Msg("serving metrics")
					if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						log.Err(err).Msg("metrics server stopped")
					}
				}()
				defer shutdown(metricsServer)
			}

			focus := make(chan os.Signal, 1)
			signal.Notify(focus, syscall.SIGUSR1)
			defer signal.Stop(focus)

			states, unsubscribe := a.controller.Subscribe()
			defer unsubscribe()

			codec := token.NewCodec()
			printState(os.Stdout, a.controller.State(), codec)
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-focus:
					guard.NotifyFocus()
				case state := <-states:
					printState(os.Stdout, state, codec)
				}
			}
		},
	}
}

func devserverCmd(cfg config.Config) *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run a local storefront identity API",
		RunE: func(cmd *cobra.Command, args []string) error {
			displayAppname(cfg.GetAppName() + " dev")

			srv, err := devserver.New(cfg.GetDevServerSecret(),
				devserver.WithAccessTokenExpiry(cfg.GetDevAccessTokenExpiry()),
				devserver.WithRefreshTokenExpiry(cfg.GetDevRefreshTokenExpiry()),
			)
			if err != nil {
				return err
			}
			if seed {
				if err := srv.SeedDemoAccounts(); err != nil {
					return err
				}
			}
			return srv.ListenAndServe(cmd.Context(), cfg.GetDevServerAddr())
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", true, "create the demo admin and customer accounts")
	return cmd
}

func shutdown(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Err(err).Msg("server.Shutdown")
	}
}
